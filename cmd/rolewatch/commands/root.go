// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands assembles the rolewatch CLI command tree.
package commands

import (
	"fmt"

	"github.com/rolewatch-foundation/rolewatch/cmd/rolewatch/cli"
	"github.com/rolewatch-foundation/rolewatch/lib/config"
	"github.com/rolewatch-foundation/rolewatch/lib/version"
)

// Root returns the top-level rolewatch command.
func Root() *cli.Command {
	return &cli.Command{
		Name:    "rolewatch",
		Summary: "inspect the node role reconciliation agent",
		Description: "Rolewatch inspects the state the rolewatch-agent daemon maintains\n" +
			"on this node: the last known role assignment, per-unit retry\n" +
			"bookkeeping, and the transition journal.",
		Subcommands: []*cli.Command{
			statusCommand(),
			journalCommand(),
			checkRoleCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "print version information",
		Run: func(args []string) error {
			fmt.Printf("rolewatch %s\n", version.Info())
			return nil
		},
	}
}

// loadConfig is the shared --config handling for all subcommands.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading agent config: %w", err)
	}
	return cfg, nil
}
