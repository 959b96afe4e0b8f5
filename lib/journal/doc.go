// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal records notable agent events (role transitions,
// permanent unit failures, agent starts) in a local SQLite database,
// giving operators a queryable history that outlives log rotation.
package journal
