// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/rolewatch-foundation/rolewatch/lib/journal"
	"github.com/rolewatch-foundation/rolewatch/lib/statefile"
)

// ensureRunning drives one unit toward running, with bounded retries.
//
// A unit observed active always resets its bookkeeping, including a
// permanent-failure verdict: if something (an operator, a package
// upgrade) got the unit running again, the agent trusts the evidence
// and resumes managing it. A unit that keeps failing to start is
// retried at most maxRetries times, spaced retryInterval apart, then
// marked permanently failed and left alone.
func (a *agent) ensureRunning(ctx context.Context, unit string) {
	active, err := a.services.Active(ctx, unit)
	if err != nil {
		a.logger.Error("querying unit state failed", "unit", unit, "error", err)
		return
	}
	if active {
		if entry, ok := a.retries[unit]; ok && (entry.Attempts > 0 || entry.PermanentlyFailed) {
			a.logger.Info("unit recovered", "unit", unit, "attempts", entry.Attempts)
		}
		delete(a.retries, unit)
		return
	}

	entry := a.retries[unit]
	if entry.PermanentlyFailed {
		return
	}

	now := a.clock.Now()
	if entry.NextEligible != nil && now.Before(*entry.NextEligible) {
		a.logger.Debug("unit in retry backoff",
			"unit", unit, "next_eligible", entry.NextEligible)
		return
	}

	a.logger.Info("starting unit", "unit", unit, "attempt", entry.Attempts+1)
	startErr := a.services.Start(ctx, unit)
	if startErr == nil {
		delete(a.retries, unit)
		a.logger.Info("unit started", "unit", unit)
		return
	}
	a.logger.Error("starting unit failed",
		"unit", unit, "attempt", entry.Attempts+1, "error", startErr)

	entry.Attempts++
	entry.LastAttempt = &now
	eligible := now.Add(a.config.RetryInterval.Std())
	entry.NextEligible = &eligible

	if entry.Attempts >= a.config.MaxRetries {
		entry.PermanentlyFailed = true
		a.logger.Error("unit permanently failed, giving up",
			"unit", unit, "attempts", entry.Attempts)
		a.recordEvent(journal.KindPermanentFailure,
			fmt.Sprintf("unit %s failed to start %d times", unit, entry.Attempts))
	}
	a.retries[unit] = entry
}

// ensureStopped drives one unit toward stopped. Retry bookkeeping is
// always cleared: a node losing the role abandons any pending start
// attempts, and a later role re-assignment starts with a clean slate.
func (a *agent) ensureStopped(ctx context.Context, unit string) {
	defer delete(a.retries, unit)

	active, err := a.services.Active(ctx, unit)
	if err != nil {
		a.logger.Error("querying unit state failed", "unit", unit, "error", err)
		return
	}
	if !active {
		return
	}

	a.logger.Info("stopping unit", "unit", unit)
	if err := a.services.Stop(ctx, unit); err != nil {
		// Next cycle sees the unit still active and tries again.
		a.logger.Error("stopping unit failed", "unit", unit, "error", err)
	}
}

// retryStateSnapshot returns a copy of the per-unit bookkeeping.
func (a *agent) retryStateSnapshot() map[string]statefile.RetryState {
	snapshot := make(map[string]statefile.RetryState, len(a.retries))
	for unit, entry := range a.retries {
		snapshot[unit] = entry
	}
	return snapshot
}
