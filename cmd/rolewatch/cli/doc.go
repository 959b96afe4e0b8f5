// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-tree plumbing for the rolewatch
// operator CLI: declarative Command values with pflag flag sets,
// nested subcommand dispatch, and consistent help output.
package cli
