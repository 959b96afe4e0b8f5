// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/rolewatch-foundation/rolewatch/cmd/rolewatch/cli"
	"github.com/rolewatch-foundation/rolewatch/lib/journal"
)

func journalCommand() *cli.Command {
	var (
		configPath string
		limit      int
	)

	return &cli.Command{
		Name:    "journal",
		Summary: "show recent role transitions and failures",
		Examples: []cli.Example{
			{Description: "the last 20 events", Command: "rolewatch journal"},
			{Description: "a longer history", Command: "rolewatch journal --limit 100"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("journal", pflag.ContinueOnError)
			fs.StringVar(&configPath, "config", "/etc/rolewatch/config.yaml", "agent config file")
			fs.IntVar(&limit, "limit", 20, "maximum events to show")
			return fs
		},
		Run: func(args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.JournalPath == "" {
				return fmt.Errorf("journaling is disabled in the agent config")
			}
			if _, err := os.Stat(cfg.JournalPath); err != nil {
				return fmt.Errorf("no journal at %s (agent never ran?)", cfg.JournalPath)
			}

			log, err := journal.Open(cfg.JournalPath)
			if err != nil {
				return err
			}
			defer log.Close()

			events, err := log.Recent(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no events recorded")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "WHEN\tKIND\tDETAIL\n")
			for _, event := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					event.At.Local().Format("2006-01-02 15:04:05"),
					event.Kind, event.Detail)
			}
			return tw.Flush()
		},
	}
}
