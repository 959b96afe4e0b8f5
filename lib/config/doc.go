// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the rolewatch
// agent and CLI.
//
// Configuration is loaded from a single file passed via --config.
// There are no fallbacks, no home-directory discovery, and no
// environment variable overrides. This ensures deterministic,
// auditable configuration with no hidden state.
//
// Every recognized option has a default from [Default]; a config file
// overrides only the fields it names, and unrecognized fields are
// silently ignored so config files can be shared across agent
// versions. Validation runs once at load time; components receive a
// Config that is already known to be coherent and never re-check
// individual fields.
//
// YAML is the native format. Files with a .json extension are parsed
// as JSON with comments and trailing commas (via tidwall/jsonc), which
// keeps config files from earlier deployments loadable unchanged.
// Interval fields accept both duration strings ("10m") and bare
// seconds (600) for the same reason.
//
// Key exports:
//
//   - [Config] -- the recognized options, with documentation per field
//   - [Default] -- the defaults for a DCGM deployment on Slurm
//   - [LoadFile] -- the single loading entry point
//
// This package depends on no other rolewatch packages.
package config
