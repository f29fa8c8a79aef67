// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"strings"

	cmap "github.com/orcaman/concurrent-map"
)

// DefaultChanTypes/DefaultPrefixes are the fallbacks used until a
// server's RPL_ISUPPORT overrides them (spec §3 Support).
const (
	DefaultChanTypes = "#&!+"
	DefaultPrefixes  = "(ov)@+"
)

// Support is the key/value table populated from RPL_ISUPPORT (005).
// Backed by cmap.ConcurrentMap as girc's state.serverOptions was, so
// a reader outside the poll loop needs no hand-rolled mutex. cmd/hirc
// itself reads terminal input on the same goroutine as the poll loop.
type Support struct {
	m cmap.ConcurrentMap
}

func newSupport() Support {
	return Support{m: cmap.New()}
}

// Set records KEY or KEY=VALUE from a single 005 parameter.
func (s Support) Set(param string) {
	if eq := strings.IndexByte(param, '='); eq >= 0 {
		s.m.Set(param[:eq], param[eq+1:])
	} else {
		s.m.Set(param, "")
	}
}

// Get returns the value for key and whether it was ever set.
func (s Support) Get(key string) (string, bool) {
	v, ok := s.m.Get(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// ChanTypes returns CHANTYPES, falling back to DefaultChanTypes.
func (s Support) ChanTypes() string {
	if v, ok := s.Get("CHANTYPES"); ok && v != "" {
		return v
	}
	return DefaultChanTypes
}

// Prefix returns PREFIX, falling back to DefaultPrefixes.
func (s Support) Prefix() string {
	if v, ok := s.Get("PREFIX"); ok && isValidUserPrefix(v) {
		return v
	}
	return DefaultPrefixes
}

// IsChannel reports whether name begins with a configured channel
// type sigil.
func (s Support) IsChannel(name string) bool {
	return len(name) > 0 && strings.IndexByte(s.ChanTypes(), name[0]) >= 0
}

// Nick is a single member of a Channel's nick list (spec §3).
type Nick struct {
	Priv  byte // one of '~','&','@','%','+',' '
	Nick  string
	Ident string
	Host  string
	Self  bool
}

// Prefix renders "nick!ident@host", omitting absent components.
func (n *Nick) Prefix() string {
	var b strings.Builder
	b.WriteString(n.Nick)
	if n.Ident != "" {
		b.WriteByte('!')
		b.WriteString(n.Ident)
	}
	if n.Host != "" {
		b.WriteByte('@')
		b.WriteString(n.Host)
	}
	return b.String()
}

// Channel is a joined channel, query buffer, or a formerly-joined
// channel retained for scrollback (spec §3 Channel, glossary "Old
// channel"/"Query").
type Channel struct {
	Name    string
	Modes   CModes
	Topic   string
	IsQuery bool
	Old     bool
	Nicks   []*Nick
	History HistInfo

	serverName string // back-reference by handle, not pointer (spec §9)
}

// Find returns the Nick named nick, or nil.
func (c *Channel) Find(nick string) *Nick {
	for _, n := range c.Nicks {
		if n.Nick == nick {
			return n
		}
	}
	return nil
}

// Add inserts nick if absent, or returns the existing entry.
func (c *Channel) Add(n *Nick) *Nick {
	if existing := c.Find(n.Nick); existing != nil {
		return existing
	}
	c.Nicks = append(c.Nicks, n)
	return n
}

// Remove deletes nick from the member list, reporting whether it was
// present.
func (c *Channel) Remove(nick string) bool {
	for i, n := range c.Nicks {
		if n.Nick == nick {
			c.Nicks = append(c.Nicks[:i], c.Nicks[i+1:]...)
			return true
		}
	}
	return false
}

// Rename moves a nick entry to a new name, preserving Priv and every
// other field (spec scenario B, testable property 6).
func (c *Channel) Rename(oldNick, newNick string) bool {
	n := c.Find(oldNick)
	if n == nil {
		return false
	}
	n.Nick = newNick
	return true
}

// Clear empties the nick list, used on self-PART/KICK (spec §4.3).
func (c *Channel) Clear() {
	c.Nicks = nil
}
