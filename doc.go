// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

// Package hirc implements the core of an interactive, terminal-based IRC
// client: the wire protocol engine (transport, framing, parsing,
// dispatch), the per-connection server/channel/nick state model, the
// expectation/scheduler subsystem used to correlate outgoing commands
// with asynchronous replies, the bounded history/log subsystem, and the
// format engine that renders history into display strings.
//
// The terminal UI, keybindings, command parser/aliases, completion, and
// configuration store are intentionally not part of this package. See
// cmd/hirc for a minimal host that drives this package from a terminal.
package hirc
