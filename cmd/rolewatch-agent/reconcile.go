// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/rolewatch-foundation/rolewatch/lib/authority"
	"github.com/rolewatch-foundation/rolewatch/lib/journal"
	"github.com/rolewatch-foundation/rolewatch/lib/scrapetarget"
	"github.com/rolewatch-foundation/rolewatch/lib/statefile"
)

// reconcile runs one cycle: query the authority, then drive exporter
// units and the published descriptor toward the answer.
//
// An indeterminate answer aborts the cycle before any mutation,
// including state persistence: the persisted state must keep
// describing the last world the agent actually observed.
func (a *agent) reconcile(ctx context.Context) cycleOutcome {
	role := a.authority.QueryRole(ctx, a.hostname)
	if role == authority.RoleUnknown {
		return cycleSkipped
	}

	if a.previousRole != role {
		a.logTransition(role)
	}
	a.previousRole = role

	switch role {
	case authority.RoleHeld:
		a.converge(ctx)
	case authority.RoleAbsent:
		a.withdraw(ctx)
	}

	a.persist(role)
	return cycleApplied
}

// logTransition records a definite role change. The very first
// definite answer after a fresh start (no persisted state) is also a
// transition: the node went from unmanaged to managed.
func (a *agent) logTransition(role authority.RoleStatus) {
	if role == authority.RoleHeld {
		a.logger.Info("role assigned", "role", a.config.Role)
		a.recordEvent(journal.KindRoleAdded,
			fmt.Sprintf("role %q assigned", a.config.Role))
	} else {
		a.logger.Info("role withdrawn", "role", a.config.Role)
		a.recordEvent(journal.KindRoleRemoved,
			fmt.Sprintf("role %q withdrawn", a.config.Role))
	}
}

// converge drives the node toward the role-held state: every exporter
// running and the descriptor published. Publication is attempted every
// cycle regardless of unit health; it is idempotent, and a descriptor
// pointing at a down exporter lets Prometheus surface the outage
// instead of hiding the node.
func (a *agent) converge(ctx context.Context) {
	for _, exporter := range a.config.Exporters {
		a.ensureRunning(ctx, exporter.Service)
	}

	if err := a.targets.Publish(a.hostname, a.buildTargets()); err != nil {
		if errors.Is(err, scrapetarget.ErrUnavailable) {
			a.logger.Warn("targets directory unavailable, will retry", "error", err)
		} else {
			a.logger.Error("publishing targets failed", "error", err)
		}
	}
}

// withdraw drives the node toward the role-absent state: every
// exporter stopped and the descriptor removed.
func (a *agent) withdraw(ctx context.Context) {
	for _, exporter := range a.config.Exporters {
		a.ensureStopped(ctx, exporter.Service)
	}

	if err := a.targets.Retract(a.hostname); err != nil {
		if errors.Is(err, scrapetarget.ErrUnavailable) {
			a.logger.Warn("targets directory unavailable, will retry", "error", err)
		} else {
			a.logger.Error("retracting targets failed", "error", err)
		}
	}
}

// buildTargets produces one target group per exporter. Each group
// carries the job label for its exporter plus the node-wide cluster
// and hostname labels; GPU nodes additionally advertise their GPU
// count.
func (a *agent) buildTargets() []scrapetarget.Target {
	gpus := 0
	if a.gpus != nil {
		gpus = a.gpus.Count()
	}

	targets := make([]scrapetarget.Target, 0, len(a.config.Exporters))
	for _, exporter := range a.config.Exporters {
		labels := map[string]string{
			"job":      exporter.Job,
			"cluster":  a.config.ClusterName,
			"hostname": a.hostname,
		}
		if gpus > 0 {
			labels["gpus"] = strconv.Itoa(gpus)
		}
		targets = append(targets, scrapetarget.Target{
			Targets: []string{net.JoinHostPort(a.hostname, strconv.Itoa(exporter.Port))},
			Labels:  labels,
		})
	}
	return targets
}

// persist saves the cycle's outcome. A save failure costs continuity
// across a restart, not correctness now, so it is logged and the loop
// continues.
func (a *agent) persist(role authority.RoleStatus) {
	err := a.state.Save(statefile.AgentState{
		HasRole:    role == authority.RoleHeld,
		LastCheck:  a.clock.Now(),
		RetryState: a.retries,
	})
	if err != nil {
		a.logger.Warn("persisting state failed", "error", err)
	}
}
