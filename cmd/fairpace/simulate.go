package main

import (
	"io"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MJE43/fairpace/internal/config"
	"github.com/MJE43/fairpace/internal/journal"
	"github.com/MJE43/fairpace/internal/session"
	"github.com/MJE43/fairpace/internal/simulate"
	"github.com/MJE43/fairpace/internal/store"
)

func newSimulateCmd() *cobra.Command {
	var (
		player      string
		seed        string
		runMode     string
		difficulty  string
		spawns      int
		stormEvery  int
		sampleEvery int
		journalPath string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scripted player model against a session",
		Long: "Run a scripted player model against a session. Built-in models: " +
			strings.Join(simulate.Players(), ", ") + ". Any other value is read as a script file.",
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
			src, err := simulate.LoadPlayer(player)
			if err != nil {
				return err
			}

			var rec session.Recorder
			if journalPath != "" {
				db, err := store.NewSQLiteDB(journalPath)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Migrate(); err != nil {
					return err
				}
				jr := journal.New(db, cfg.Journal.FlushSize)
				defer jr.Close()
				rec = jr
			}

			runner := simulate.NewRunner(cfg, rec, simulate.Options{
				Spawns:      spawns,
				StormEvery:  stormEvery,
				SampleEvery: sampleEvery,
				Params:      session.Params{Seed: seed, RunMode: mode, Difficulty: diff},
			})
			rep, err := runner.Run(cmd.Context(), src)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&player, "player", "p", "steady", "player model name or script path")
	cmd.Flags().StringVar(&seed, "seed", "", "session seed")
	cmd.Flags().StringVar(&runMode, "mode", "play", "run mode: play, research, practice")
	cmd.Flags().StringVar(&difficulty, "difficulty", "normal", "difficulty: easy, normal, hard")
	cmd.Flags().IntVarP(&spawns, "spawns", "n", 120, "number of spawns")
	cmd.Flags().IntVar(&stormEvery, "storm-every", 0, "mark every Nth second as storm pressure")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", 10, "trace sample interval in spawns")
	cmd.Flags().StringVar(&journalPath, "journal", "", "record the run to this sqlite journal")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func printReport(w io.Writer, rep *simulate.Report) {
	out := log.New(w, "", 0)
	out.Printf("session %s (seed %s)", rep.SessionID, rep.SeedHash)
	out.Printf("spawns=%d hits=%d misses=%d accuracy=%.1f%% duration=%.1fs ticks=%d",
		rep.Spawns, rep.Hits, rep.Misses, rep.Accuracy*100, float64(rep.DurationMs)/1000, rep.Ticks)
	p := rep.Final.Pacing
	out.Printf("final spawn=%.3f life=%.3f risk=%.3f", p.SpawnMultiplier, p.LifetimeMultiplier, p.RiskEstimate)
	t := rep.Final.Tuning
	out.Printf("tuning spawn=%.3f life=%.3f size=%.3f wrong=%.3f junk=%.3f", t.Spawn, t.Life, t.Size, t.Wrong, t.Junk)
	out.Printf("%-6s %-8s %-8s %-6s", "seq", "spawn", "life", "risk")
	for _, s := range rep.Trace {
		out.Printf("%-6d %-8.3f %-8.3f %-6.3f", s.Seq, s.SpawnMul, s.LifeMul, s.Risk)
	}
	for _, l := range rep.Logs {
		out.Printf("log[%d] %s", l.Seq, l.Message)
	}
}
