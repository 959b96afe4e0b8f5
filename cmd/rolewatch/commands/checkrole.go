// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/rolewatch-foundation/rolewatch/cmd/rolewatch/cli"
	"github.com/rolewatch-foundation/rolewatch/lib/authority"
)

func checkRoleCommand() *cli.Command {
	var (
		configPath string
		hostname   string
	)

	return &cli.Command{
		Name:    "check-role",
		Summary: "query the authority for this node's role, bypassing the agent",
		Description: "Check-role performs a single live query against the configured\n" +
			"authority endpoints and prints the tri-state answer. Useful for\n" +
			"distinguishing an authority outage from a genuine role change.",
		Examples: []cli.Example{
			{Description: "check the local node", Command: "rolewatch check-role"},
			{Description: "check another node", Command: "rolewatch check-role --hostname gpu-07"},
		},
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("check-role", pflag.ContinueOnError)
			fs.StringVar(&configPath, "config", "/etc/rolewatch/config.yaml", "agent config file")
			fs.StringVar(&hostname, "hostname", "", "node to check (defaults to os.Hostname)")
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
			if i := strings.IndexByte(hostname, '.'); i >= 0 {
				hostname = hostname[:i]
			}

			client, err := authority.NewClient(authority.ClientConfig{
				Endpoints: cfg.AuthorityEndpoints,
				Port:      cfg.AuthorityPort,
				Role:      cfg.Role,
				CertPath:  cfg.CertPath,
				KeyPath:   cfg.KeyPath,
				Timeout:   cfg.QueryTimeout.Std(),
				Logger:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
			})
			if err != nil {
				return err
			}

			switch client.QueryRole(context.Background(), hostname) {
			case authority.RoleHeld:
				fmt.Printf("%s holds role %q\n", hostname, cfg.Role)
			case authority.RoleAbsent:
				fmt.Printf("%s does not hold role %q\n", hostname, cfg.Role)
			default:
				return fmt.Errorf("no definite answer: every authority endpoint failed or omits %s", hostname)
			}
			return nil
		},
	}
}
