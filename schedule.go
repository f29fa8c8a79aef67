// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

// TriggerKind classifies when a scheduled write is released.
type TriggerKind int

const (
	// TriggerNow fires immediately on the next flush, regardless of
	// connection state. Used for writes the caller wants ordered behind
	// other already-queued entries rather than sent out-of-band.
	TriggerNow TriggerKind = iota
	// TriggerConnected fires once the server's status becomes Connected
	// (i.e. RPL_WELCOME has been seen).
	TriggerConnected
	// TriggerCommand fires when the next incoming message whose Command
	// equals Trigger.Tag is processed (e.g. "376" to defer a JOIN until
	// end-of-MOTD, per spec scenario D).
	TriggerCommand
)

// Trigger names the condition gating a ScheduleEntry.
type Trigger struct {
	Kind TriggerKind
	Tag  string // command or numeric name, meaningful only for TriggerCommand
}

// ScheduleEntry is a deferred outbound line paired with the condition
// that releases it (spec §4.5).
type ScheduleEntry struct {
	Trigger Trigger
	Payload string
}

// Schedule is a per-server FIFO of deferred writes. Grounded on the
// spec's "per-server FIFO of (trigger, payload) pairs"; implemented as
// a plain slice since the poll loop processes one server's queue at a
// time and entries are few (single digits in practice).
type Schedule struct {
	entries []ScheduleEntry
}

// Enqueue appends a new deferred entry, preserving FIFO order among
// entries sharing the same trigger (testable property 5).
func (s *Schedule) Enqueue(t Trigger, payload string) {
	s.entries = append(s.entries, ScheduleEntry{Trigger: t, Payload: payload})
}

// flushMatching removes every entry whose trigger is satisfied by the
// predicate, in original enqueue order, and returns their payloads.
func (s *Schedule) flushMatching(match func(Trigger) bool) []string {
	if len(s.entries) == 0 {
		return nil
	}
	var fired []string
	kept := s.entries[:0]
	for _, e := range s.entries {
		if match(e.Trigger) {
			fired = append(fired, e.Payload)
		} else {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	return fired
}

// FlushNow releases every TriggerNow entry.
func (s *Schedule) FlushNow() []string {
	return s.flushMatching(func(t Trigger) bool { return t.Kind == TriggerNow })
}

// FlushConnected releases every TriggerConnected entry; called once
// when a server transitions to Connected.
func (s *Schedule) FlushConnected() []string {
	return s.flushMatching(func(t Trigger) bool { return t.Kind == TriggerConnected })
}

// FlushCommand releases every TriggerCommand entry tagged with cmd;
// called for every dispatched message, keyed by its Command.
func (s *Schedule) FlushCommand(cmd string) []string {
	return s.flushMatching(func(t Trigger) bool { return t.Kind == TriggerCommand && t.Tag == cmd })
}

// Cancel discards every pending entry, used when a server disconnects
// (spec §5 "Cancellation").
func (s *Schedule) Cancel() {
	s.entries = nil
}

// Len reports the number of pending entries.
func (s *Schedule) Len() int { return len(s.entries) }
