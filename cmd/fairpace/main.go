// Command fairpace serves adaptive pacing sessions over HTTP and runs
// offline previews and simulations.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MJE43/fairpace/internal/apiauth"
	"github.com/MJE43/fairpace/internal/config"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fairpace",
		Short:         "Seeded, fair adaptive pacing for target games",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(
		newServeCmd(),
		newSampleCmd(),
		newSimulateCmd(),
		newRNGCmd(),
		newTokenCmd(),
	)
	return root
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func tokenStore(cfg config.Config) *apiauth.TokenStore {
	fallback := ""
	if dir, err := os.UserConfigDir(); err == nil {
		fallback = filepath.Join(dir, "fairpace", "secrets.json")
	}
	return apiauth.NewTokenStore(cfg.Server.KeyringService, fallback)
}
