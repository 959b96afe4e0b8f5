// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rolewatch-foundation/rolewatch/lib/authority"
	"github.com/rolewatch-foundation/rolewatch/lib/clock"
	"github.com/rolewatch-foundation/rolewatch/lib/config"
	"github.com/rolewatch-foundation/rolewatch/lib/journal"
	"github.com/rolewatch-foundation/rolewatch/lib/scrapetarget"
	"github.com/rolewatch-foundation/rolewatch/lib/statefile"
)

// roleQuerier is the slice of the authority client the agent needs.
type roleQuerier interface {
	QueryRole(ctx context.Context, hostname string) authority.RoleStatus
}

// serviceController is the slice of servicemgr.Controller the agent
// needs.
type serviceController interface {
	Active(ctx context.Context, unit string) (bool, error)
	Start(ctx context.Context, unit string) error
	Stop(ctx context.Context, unit string) error
}

// gpuCounter reports how many GPUs the node carries.
type gpuCounter interface {
	Count() int
}

// cycleOutcome summarizes one reconciliation cycle for logging.
type cycleOutcome int

const (
	// cycleApplied means the role answer was definite and local state
	// was reconciled against it.
	cycleApplied cycleOutcome = iota

	// cycleSkipped means the authority gave no usable answer and
	// nothing was touched.
	cycleSkipped

	// cycleFailed means the cycle panicked or could not complete.
	cycleFailed
)

// agentConfig collects the agent's collaborators.
type agentConfig struct {
	hostname  string
	config    *config.Config
	authority roleQuerier
	services  serviceController
	targets   *scrapetarget.Registry
	state     *statefile.Store

	// journal may be nil when journaling is disabled.
	journal *journal.Journal

	gpus   gpuCounter
	clock  clock.Clock
	logger *slog.Logger
}

// agent is the reconciliation loop.
type agent struct {
	agentConfig

	// previousRole is the last definite role answer, used to detect
	// transitions. RoleUnknown until the first definite answer (or
	// seeded from persisted state).
	previousRole authority.RoleStatus

	// retries is the per-unit start bookkeeping, persisted across
	// restarts.
	retries map[string]statefile.RetryState
}

func newAgent(cfg agentConfig) *agent {
	a := &agent{
		agentConfig:  cfg,
		previousRole: authority.RoleUnknown,
		retries:      make(map[string]statefile.RetryState),
	}

	if state, ok := cfg.state.Load(); ok {
		if state.HasRole {
			a.previousRole = authority.RoleHeld
		} else {
			a.previousRole = authority.RoleAbsent
		}
		a.retries = state.RetryState
		cfg.logger.Info("restored persisted state",
			"had_role", state.HasRole,
			"last_check", state.LastCheck,
			"tracked_units", len(state.RetryState))
	}
	return a
}

// Run executes reconciliation cycles until ctx is cancelled: one
// immediately, then one per check interval.
func (a *agent) Run(ctx context.Context) error {
	a.recordEvent(journal.KindAgentStart,
		fmt.Sprintf("agent started on %s watching role %q", a.hostname, a.config.Role))

	a.runCycle(ctx)

	ticker := a.clock.NewTicker(a.config.CheckInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
			return nil
		case <-ticker.C:
			a.runCycle(ctx)
		}
	}
}

// runCycle runs one cycle, containing panics so that a bug in one
// cycle (or a misbehaving systemctl) cannot take the agent down and
// leave the node unmanaged.
func (a *agent) runCycle(ctx context.Context) {
	outcome := func() (outcome cycleOutcome) {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("cycle panicked",
					"panic", r,
					"stack", string(debug.Stack()))
				outcome = cycleFailed
			}
		}()
		return a.reconcile(ctx)
	}()

	switch outcome {
	case cycleApplied:
		a.logger.Debug("cycle complete")
	case cycleSkipped:
		a.logger.Info("cycle skipped, authority gave no answer")
	}
}

// recordEvent writes to the journal if journaling is enabled. Journal
// failures are logged, never propagated: the journal is an
// operator convenience, not part of the control loop.
func (a *agent) recordEvent(kind, detail string) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Record(a.clock.Now(), kind, detail); err != nil {
		a.logger.Warn("journal write failed", "kind", kind, "error", err)
	}
}
