// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

// ExpectKind identifies a slot in a Server's expectation register
// (spec §4.4).
type ExpectKind int

const (
	ExpectJoin ExpectKind = iota
	ExpectPart
	ExpectPong
	ExpectNames
	ExpectTopic
	ExpectTopicWhoTime
	ExpectChannelModeIs
	ExpectNicknameInUse
	ExpectNoSuchNick
	expectCount
)

// Expectations is a fixed-slot, one-shot correlation register: each
// slot holds at most one pending correlation string, set when an
// outgoing command is issued and consumed when the matching reply
// arrives. Grounded on the spec's description of a small enum-indexed
// array rather than girc's map-of-callbacks Caller, since correlation
// here is 1:1 per kind and never needs multiple concurrent waiters.
type Expectations struct {
	slots [expectCount]*string
}

// Set replaces the correlation value for kind, discarding whatever was
// previously pending (spec §4.4: "set(kind, s) replaces the slot").
func (e *Expectations) Set(kind ExpectKind, value string) {
	v := value
	e.slots[kind] = &v
}

// Get returns the pending correlation for kind and whether one is set.
func (e *Expectations) Get(kind ExpectKind) (string, bool) {
	p := e.slots[kind]
	if p == nil {
		return "", false
	}
	return *p, true
}

// Clear empties the slot unconditionally.
func (e *Expectations) Clear(kind ExpectKind) {
	e.slots[kind] = nil
}

// Match reports whether kind is pending and equal to got; on a match it
// clears the slot (one-shot semantics, spec §4.4 and testable property
// 4) and returns true. A non-matching event leaves the slot untouched.
func (e *Expectations) Match(kind ExpectKind, got string) bool {
	want, ok := e.Get(kind)
	if !ok || want != got {
		return false
	}
	e.Clear(kind)
	return true
}

// Pending reports whether any correlation is set for kind, without
// consuming it. Used by handlers that gate a "show" decision on an
// expectation being armed (e.g. RPL_CHANNELMODEIS, RPL_TOPIC) without
// necessarily matching a specific string.
func (e *Expectations) Pending(kind ExpectKind) bool {
	return e.slots[kind] != nil
}
