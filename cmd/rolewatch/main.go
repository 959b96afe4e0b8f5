// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Rolewatch is the operator CLI for the rolewatch agent. It inspects
// the agent's persisted state, tails the transition journal, and
// queries the authority directly for debugging.
package main

import (
	"fmt"
	"os"

	"github.com/rolewatch-foundation/rolewatch/cmd/rolewatch/commands"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}
