// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import "testing"

func TestChannelAddFindRemove(t *testing.T) {
	c := &Channel{Name: "#chan"}
	c.Add(&Nick{Nick: "alice", Ident: "a", Host: "h"})
	if n := c.Find("alice"); n == nil || n.Ident != "a" {
		t.Fatalf("Find(alice) = %+v", n)
	}
	if !c.Remove("alice") {
		t.Error("Remove(alice) should report true")
	}
	if c.Find("alice") != nil {
		t.Error("alice should be gone after Remove")
	}
}

func TestChannelAddIsIdempotent(t *testing.T) {
	c := &Channel{Name: "#chan"}
	first := c.Add(&Nick{Nick: "alice", Priv: '@'})
	second := c.Add(&Nick{Nick: "alice"})
	if first != second {
		t.Error("Add with an existing nick should return the existing entry")
	}
	if len(c.Nicks) != 1 {
		t.Errorf("len(Nicks) = %d, want 1", len(c.Nicks))
	}
}

// TestChannelRenamePreservesPriv covers testable property 6: a NICK
// change must relabel the member in place without losing its
// channel-specific privilege.
func TestChannelRenamePreservesPriv(t *testing.T) {
	c := &Channel{Name: "#chan"}
	c.Add(&Nick{Nick: "alice", Priv: '@', Ident: "a", Host: "h"})

	if !c.Rename("alice", "alicia") {
		t.Fatal("Rename should report true for a present nick")
	}
	if c.Find("alice") != nil {
		t.Error("old nick should no longer resolve")
	}
	n := c.Find("alicia")
	if n == nil {
		t.Fatal("new nick should resolve")
	}
	if n.Priv != '@' || n.Ident != "a" || n.Host != "h" {
		t.Errorf("Rename changed more than Nick: %+v", n)
	}
}

func TestChannelRenameAbsentNick(t *testing.T) {
	c := &Channel{Name: "#chan"}
	if c.Rename("ghost", "ghost2") {
		t.Error("Rename of an absent nick should report false")
	}
}

func TestChannelClear(t *testing.T) {
	c := &Channel{Name: "#chan"}
	c.Add(&Nick{Nick: "alice"})
	c.Add(&Nick{Nick: "bob"})
	c.Clear()
	if len(c.Nicks) != 0 {
		t.Errorf("len(Nicks) after Clear = %d, want 0", len(c.Nicks))
	}
}

func TestSupportChanTypesAndIsChannel(t *testing.T) {
	s := newSupport()
	if s.ChanTypes() != DefaultChanTypes {
		t.Errorf("ChanTypes() = %q before ISUPPORT, want default", s.ChanTypes())
	}
	s.Set("CHANTYPES=#")
	if s.ChanTypes() != "#" {
		t.Errorf("ChanTypes() = %q, want #", s.ChanTypes())
	}
	if !s.IsChannel("#general") {
		t.Error("#general should be recognized as a channel")
	}
	if s.IsChannel("alice") {
		t.Error("alice should not be recognized as a channel")
	}
}

func TestSupportGetMissingKey(t *testing.T) {
	s := newSupport()
	if _, ok := s.Get("NETWORK"); ok {
		t.Error("Get of an unset key should report false")
	}
	s.Set("NETWORK=Libera.Chat")
	v, ok := s.Get("NETWORK")
	if !ok || v != "Libera.Chat" {
		t.Errorf("Get(NETWORK) = (%q, %v)", v, ok)
	}
}
