// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Rolewatch-agent is the per-node reconciliation daemon. It polls the
// cluster management authority for this node's role assignment and
// keeps local telemetry exporters and the shared Prometheus file-sd
// directory in line with it:
//
//   - role held: exporter units are started (with bounded retries for
//     units that refuse to start) and a target descriptor advertising
//     their scrape endpoints is published.
//   - role absent: exporter units are stopped and the descriptor is
//     removed.
//   - authority unreachable: nothing is touched. An unreachable
//     authority gives no information, and acting on no information
//     would tear down healthy exporters during a head-node outage.
//
// State (last known role, retry bookkeeping) persists across restarts
// so a redeployed agent neither re-logs old transitions nor hammers a
// permanently broken unit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rolewatch-foundation/rolewatch/lib/authority"
	"github.com/rolewatch-foundation/rolewatch/lib/clock"
	"github.com/rolewatch-foundation/rolewatch/lib/config"
	"github.com/rolewatch-foundation/rolewatch/lib/gpuprobe"
	"github.com/rolewatch-foundation/rolewatch/lib/journal"
	"github.com/rolewatch-foundation/rolewatch/lib/scrapetarget"
	"github.com/rolewatch-foundation/rolewatch/lib/servicemgr"
	"github.com/rolewatch-foundation/rolewatch/lib/statefile"
	"github.com/rolewatch-foundation/rolewatch/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		hostname    string
		targetsDir  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "/etc/rolewatch/config.yaml", "path to the agent configuration file")
	flag.StringVar(&hostname, "hostname", "", "override the node hostname (defaults to os.Hostname)")
	flag.StringVar(&targetsDir, "targets-dir", "", "override the configured targets directory")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("rolewatch-agent %s\n", version.Info())
		return nil
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	if targetsDir != "" {
		cfg.TargetsDir = targetsDir
	}

	if hostname == "" {
		hostname, err = os.Hostname()
		if err != nil {
			return fmt.Errorf("determining hostname: %w", err)
		}
	}
	// The authority records short hostnames; match its convention.
	if i := strings.IndexByte(hostname, '.'); i >= 0 {
		hostname = hostname[:i]
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := authority.NewClient(authority.ClientConfig{
		Endpoints: cfg.AuthorityEndpoints,
		Port:      cfg.AuthorityPort,
		Role:      cfg.Role,
		CertPath:  cfg.CertPath,
		KeyPath:   cfg.KeyPath,
		Timeout:   cfg.QueryTimeout.Std(),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	// A failed probe is worth a log line but not an exit: the
	// authority may simply be down, and the loop handles that.
	if err := client.Ping(ctx); err != nil {
		logger.Warn("authority not reachable at startup", "error", err)
	}

	var eventLog *journal.Journal
	if cfg.JournalPath != "" {
		if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
		eventLog, err = journal.Open(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer eventLog.Close()
	}

	realClock := clock.Real()
	agent := newAgent(agentConfig{
		hostname:  hostname,
		config:    cfg,
		authority: client,
		services:  servicemgr.NewController(nil, realClock, cfg.EnableOnStart, logger),
		targets:   scrapetarget.NewRegistry(cfg.TargetsDir, logger),
		state:     statefile.NewStore(cfg.StateDir, hostname, logger),
		journal:   eventLog,
		gpus:      gpuprobe.New(),
		clock:     realClock,
		logger:    logger,
	})

	logger.Info("rolewatch-agent starting",
		"version", version.Info(),
		"hostname", hostname,
		"role", cfg.Role,
		"check_interval", cfg.CheckInterval.Std().String())

	return agent.Run(ctx)
}
