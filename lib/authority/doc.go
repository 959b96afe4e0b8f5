// Copyright 2026 The Rolewatch Authors
// SPDX-License-Identifier: Apache-2.0

// Package authority queries the cluster management authority for role
// assignments. The authority exposes a REST API over mutually
// authenticated HTTPS on each head node; the client tries configured
// endpoints in order and reports a tri-state result so that callers
// can distinguish "the node does not hold the role" from "the
// authority could not be reached".
package authority
