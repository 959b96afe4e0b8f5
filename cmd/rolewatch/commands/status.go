// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/rolewatch-foundation/rolewatch/cmd/rolewatch/cli"
	"github.com/rolewatch-foundation/rolewatch/lib/statefile"
)

func statusCommand() *cli.Command {
	var (
		configPath string
		hostname   string
	)

	return &cli.Command{
		Name:    "status",
		Summary: "show the agent's persisted reconciliation state",
		Examples: []cli.Example{
			{Description: "status of the local node", Command: "rolewatch status"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
			fs.StringVar(&configPath, "config", "/etc/rolewatch/config.yaml", "agent config file")
			fs.StringVar(&hostname, "hostname", "", "node hostname (defaults to os.Hostname)")
			return fs
		},
		Run: func(args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if hostname == "" {
				hostname, err = os.Hostname()
				if err != nil {
					return fmt.Errorf("determining hostname: %w", err)
				}
			}

			store := statefile.NewStore(cfg.StateDir, hostname, slog.New(slog.NewTextHandler(io.Discard, nil)))
			state, ok := store.Load()
			if !ok {
				fmt.Printf("no persisted state at %s (agent never completed a cycle?)\n", store.Path())
				return nil
			}

			fmt.Printf("node:       %s\n", hostname)
			fmt.Printf("role:       %s\n", cfg.Role)
			if state.HasRole {
				fmt.Printf("membership: held\n")
			} else {
				fmt.Printf("membership: absent\n")
			}
			fmt.Printf("last check: %s\n", state.LastCheck.Format("2006-01-02 15:04:05 MST"))

			if len(state.RetryState) == 0 {
				fmt.Printf("units:      all healthy\n")
				return nil
			}

			fmt.Printf("\nUnits with pending retries:\n")
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "  UNIT\tATTEMPTS\tNEXT ELIGIBLE\tPERMANENT\n")
			for unit, entry := range state.RetryState {
				next := "-"
				if entry.NextEligible != nil {
					next = entry.NextEligible.Format("15:04:05")
				}
				fmt.Fprintf(tw, "  %s\t%d\t%s\t%v\n",
					unit, entry.Attempts, next, entry.PermanentlyFailed)
			}
			return tw.Flush()
		},
	}
}
