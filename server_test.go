// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"testing"
	"time"
)

func TestServerEnsureChannelCreatesOnce(t *testing.T) {
	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	a := s.EnsureChannel("#chan")
	b := s.EnsureChannel("#chan")
	if a != b {
		t.Error("EnsureChannel should return the same Channel on repeat calls")
	}
	if len(s.Channels) != 1 {
		t.Errorf("len(Channels) = %d, want 1", len(s.Channels))
	}
}

func TestServerEnsureQueryCreatesOnce(t *testing.T) {
	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	a := s.EnsureQuery("bob")
	b := s.EnsureQuery("bob")
	if a != b {
		t.Error("EnsureQuery should return the same Channel on repeat calls")
	}
}

func TestServerCloseChannel(t *testing.T) {
	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	s.EnsureChannel("#chan")
	if !s.CloseChannel("#chan") {
		t.Fatal("CloseChannel should report true for a tracked channel")
	}
	if s.FindChannel("#chan") != nil {
		t.Error("channel should be gone after CloseChannel")
	}
	if s.CloseChannel("#chan") {
		t.Error("second CloseChannel should report false")
	}
}

func TestServerRemoveNickEverywhere(t *testing.T) {
	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	c1 := s.EnsureChannel("#a")
	c2 := s.EnsureChannel("#b")
	c1.Add(&Nick{Nick: "alice"})
	c2.Add(&Nick{Nick: "alice"})
	s.EnsureChannel("#c") // alice absent here

	affected := s.RemoveNickEverywhere("alice")
	if len(affected) != 2 {
		t.Fatalf("RemoveNickEverywhere affected %d channels, want 2", len(affected))
	}
	if c1.Find("alice") != nil || c2.Find("alice") != nil {
		t.Error("alice should be removed from every channel")
	}
}

// TestServerRenameNickEverywhere covers testable property 6 at the
// server level: a NICK change propagates to every channel the nick
// is a member of, and nowhere else.
func TestServerRenameNickEverywhere(t *testing.T) {
	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	c1 := s.EnsureChannel("#a")
	c2 := s.EnsureChannel("#b")
	c1.Add(&Nick{Nick: "alice", Priv: '@'})
	c2.Add(&Nick{Nick: "bob"})

	affected := s.RenameNickEverywhere("alice", "alicia")
	if len(affected) != 1 || affected[0] != c1 {
		t.Fatalf("RenameNickEverywhere affected %v, want [#a]", affected)
	}
	if c1.Find("alicia") == nil {
		t.Error("alicia should be present in #a")
	}
	if c2.Find("bob") == nil {
		t.Error("#b should be untouched")
	}
}

func TestEqualFold(t *testing.T) {
	if !equalFold("#Chan", "#chan") {
		t.Error("equalFold should be case-insensitive")
	}
	if equalFold("#chan", "#chans") {
		t.Error("equalFold should compare full strings, not prefixes")
	}
}

// TestReconnectDueBackoff covers testable property 7: reconnection is
// gated by min(max_interval, failures * interval) since the last
// attempt, and never fires while still connected or not wanted.
func TestReconnectDueBackoff(t *testing.T) {
	policy := ReconnectPolicy{Interval: 10 * time.Second, MaxInterval: 30 * time.Second}

	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	s.ReconnectWanted = true
	s.ConnectFailCount = 2 // backoff = 20s
	now := time.Now()
	s.LastConnected = now.Add(-15 * time.Second)

	if s.ReconnectDue(policy, now) {
		t.Error("ReconnectDue should be false before the backoff elapses")
	}
	if !s.ReconnectDue(policy, now.Add(10*time.Second)) {
		t.Error("ReconnectDue should be true once the backoff elapses")
	}
}

func TestReconnectDueCapsAtMaxInterval(t *testing.T) {
	policy := ReconnectPolicy{Interval: 10 * time.Second, MaxInterval: 30 * time.Second}
	if got := policy.Delay(100); got != 30*time.Second {
		t.Errorf("Delay(100) = %v, want capped at %v", got, 30*time.Second)
	}
}

func TestReconnectDueFalseWhenNotWanted(t *testing.T) {
	policy := ReconnectPolicy{Interval: time.Second, MaxInterval: time.Second}
	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	s.LastConnected = time.Now().Add(-time.Hour)
	if s.ReconnectDue(policy, time.Now()) {
		t.Error("ReconnectDue should be false when ReconnectWanted is unset")
	}
}

func TestReconnectDueFalseWhenConnected(t *testing.T) {
	policy := ReconnectPolicy{Interval: time.Second, MaxInterval: time.Second}
	s := NewServer("libera", "irc.libera.chat", 6697, Identity{Nick: "h"}, TLSConfig{})
	s.ReconnectWanted = true
	s.Status = Connected
	s.LastConnected = time.Now().Add(-time.Hour)
	if s.ReconnectDue(policy, time.Now()) {
		t.Error("ReconnectDue should be false while still Connected")
	}
}
