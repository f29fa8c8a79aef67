// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"fmt"
	"time"
)

// Status is a Server's connection lifecycle state (spec §4.3 "Connection
// lifecycle state machine").
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Server is a single network connection and everything the protocol
// engine tracks for it (spec §3 Server).
type Server struct {
	Name string
	Host string
	Port int
	TLS  TLSConfig

	Identity Identity
	Status   Status
	SelfNick string

	Supports Support
	Channels []*Channel
	Queries  []*Channel

	schedule Schedule
	expect   Expectations

	History HistInfo

	Autocmds []string

	in  *frameBuffer
	out Transport

	LastRecv        time.Time
	PingSent        time.Time
	LastConnected   time.Time
	ConnectFailCount int

	ReconnectWanted bool

	modes CModes
}

// NewServer constructs a Server in the Disconnected state.
func NewServer(name, host string, port int, id Identity, tlsCfg TLSConfig) *Server {
	id.normalize()
	return &Server{
		Name:     name,
		Host:     host,
		Port:     port,
		TLS:      tlsCfg,
		Identity: id,
		Status:   Disconnected,
		SelfNick: id.Nick,
		Supports: newSupport(),
	}
}

// Addr returns "host:port" for dialing.
func (s *Server) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// Connected reports whether the server has completed RFC1459 welcome.
func (s *Server) Connected() bool { return s.Status == Connected }

// FindChannel returns a joined-or-old channel by name, or nil.
func (s *Server) FindChannel(name string) *Channel {
	for _, c := range s.Channels {
		if equalFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// FindQuery returns a query buffer by nick, or nil.
func (s *Server) FindQuery(nick string) *Channel {
	for _, c := range s.Queries {
		if equalFold(c.Name, nick) {
			return c
		}
	}
	return nil
}

// EnsureChannel returns the named channel, creating it (not old, no
// nicks) if absent -- the "implicit create" tolerance from spec §7
// StateError and the JOIN handler contract in §4.3.
func (s *Server) EnsureChannel(name string) *Channel {
	if c := s.FindChannel(name); c != nil {
		return c
	}
	c := &Channel{Name: name, serverName: s.Name, Modes: newCModes("", "", 4)}
	s.Channels = append(s.Channels, c)
	return c
}

// EnsureQuery returns the query buffer for nick, creating it if absent
// (spec §4.3 PRIVMSG/NOTICE: "target==self -> query channel (create if
// absent)").
func (s *Server) EnsureQuery(nick string) *Channel {
	if c := s.FindQuery(nick); c != nil {
		return c
	}
	c := &Channel{Name: nick, IsQuery: true, serverName: s.Name}
	s.Queries = append(s.Queries, c)
	return c
}

// CloseChannel removes a channel entirely (spec §5 "User /close on a
// channel removes that channel entirely").
func (s *Server) CloseChannel(name string) bool {
	for i, c := range s.Channels {
		if equalFold(c.Name, name) {
			s.Channels = append(s.Channels[:i], s.Channels[i+1:]...)
			return true
		}
	}
	for i, c := range s.Queries {
		if equalFold(c.Name, name) {
			s.Queries = append(s.Queries[:i], s.Queries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveNickEverywhere deletes nick from every channel it is a member
// of, returning the affected channels (spec §4.3 QUIT handler).
func (s *Server) RemoveNickEverywhere(nick string) []*Channel {
	var affected []*Channel
	for _, c := range s.Channels {
		if c.Remove(nick) {
			affected = append(affected, c)
		}
	}
	return affected
}

// RenameNickEverywhere applies a NICK change across every channel,
// preserving Priv (spec §4.3 NICK handler, testable property 6).
func (s *Server) RenameNickEverywhere(oldNick, newNick string) []*Channel {
	var affected []*Channel
	for _, c := range s.Channels {
		if c.Rename(oldNick, newNick) {
			affected = append(affected, c)
		}
	}
	return affected
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// ReconnectDue reports whether enough time has elapsed since the last
// connect attempt to retry, per the backoff formula of spec §4.3 /
// testable property 7.
func (s *Server) ReconnectDue(policy ReconnectPolicy, now time.Time) bool {
	if s.Status != Disconnected || !s.ReconnectWanted {
		return false
	}
	return now.Sub(s.LastConnected) >= policy.Delay(s.ConnectFailCount)
}
