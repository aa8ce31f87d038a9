package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/engine"
	"github.com/MJE43/fairpace/internal/pattern"
	"github.com/MJE43/fairpace/internal/session"
)

func newSampleCmd() *cobra.Command {
	var (
		seed       string
		runMode    string
		difficulty string
		count      int
		phase      int
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the spawn sequence a seed produces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			mode, err := config.ParseRunMode(runMode)
			if err != nil {
				return err
			}
			diff, err := config.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}
			sess, err := session.New(cfg, session.Params{Seed: seed, RunMode: mode, Difficulty: diff}, time.Now())
			if err != nil {
				return err
			}

			spawns := make([]session.Spawn, 0, count)
			for i := 0; i < count; i++ {
				p := phase
				progress := float64(i) / float64(max(count, 1))
				if p == 0 {
					p = 1 + int(progress*3)
				}
				spawns = append(spawns, sess.PickNextSpawn(pattern.Context{Phase: p, Progress: progress}))
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"seedHash": sess.SeedHash(),
				"runMode":  sess.RunMode(),
				"spawns":   spawns,
			})
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "session seed")
	cmd.Flags().StringVar(&runMode, "mode", "research", "run mode: play, research, practice")
	cmd.Flags().StringVar(&difficulty, "difficulty", "normal", "difficulty: easy, normal, hard")
	cmd.Flags().IntVarP(&count, "count", "n", 20, "number of spawns")
	cmd.Flags().IntVar(&phase, "phase", 0, "fixed phase (0 follows progress)")
	return cmd
}

func newRNGCmd() *cobra.Command {
	var (
		seed   string
		cursor uint64
		count  int
	)
	cmd := &cobra.Command{
		Use:   "rng",
		Short: "Print raw draws of the seeded stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"seed":       seed,
				"streamSeed": engine.HashSeed(seed),
				"cursor":     cursor,
				"values":     engine.Floats(seed, cursor, count),
			})
		},
	}
	cmd.Flags().StringVar(&seed, "seed", engine.DefaultSeed, "stream seed")
	cmd.Flags().Uint64Var(&cursor, "cursor", 0, "draws to skip")
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of draws")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
