// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of rolewatch binaries.
//
// The version and commit are injected at build time via -ldflags:
//
//	-X github.com/rolewatch-foundation/rolewatch/lib/version.number=v0.3.0
//	-X github.com/rolewatch-foundation/rolewatch/lib/version.commit=abc1234
//
// Development builds that skip the ldflags report "dev".
package version

// number is the semantic version of the build, set via ldflags.
var number = "dev"

// commit is the short git commit hash of the build, set via ldflags.
var commit = ""

// Info returns a human-readable version string, e.g. "v0.3.0 (abc1234)"
// or "dev" for local builds.
func Info() string {
	if commit == "" {
		return number
	}
	return number + " (" + commit + ")"
}
