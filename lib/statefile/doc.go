// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package statefile persists the agent's reconciliation state across
// restarts: the last known role membership and per-unit retry
// bookkeeping. State is advisory; a corrupt or missing file means the
// agent starts from scratch, never that it refuses to run.
package statefile
