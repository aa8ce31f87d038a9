package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the API bearer token in the OS keyring",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set [token]",
			Short: "Store a token (read from stdin when omitted)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				var token string
				if len(args) == 1 {
					token = args[0]
				} else {
					line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if err != nil && line == "" {
						return fmt.Errorf("read token: %w", err)
					}
					token = strings.TrimSpace(line)
				}
				if err := tokenStore(cfg).Set(token); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token stored")
				return nil
			},
		},
		&cobra.Command{
			Use:   "generate",
			Short: "Create, store and print a random token",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				token, err := tokenStore(cfg).Generate()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored token",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if err := tokenStore(cfg).Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token cleared")
				return nil
			},
		},
	)
	return cmd
}
