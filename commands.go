// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// maxIRCLen is the RFC2812 wire limit excluding the trailing CRLF.
const maxIRCLen = 512 - len("\r\n")

// maxPrefixLen estimates the largest possible ":nick!user@host " prefix
// the server might echo back or prepend, using NICKLEN/USERLEN/HOSTLEN
// from ISUPPORT when known. Grounded on girc's split.go maxPrefixLen.
func maxPrefixLen(s *Server) int {
	nicklen := getIntSupport(s, "NICKLEN", 10)
	userlen := getIntSupport(s, "USERLEN", 18)
	hostlen := getIntSupport(s, "HOSTLEN", 63)
	return 1 + nicklen + 1 + userlen + 1 + hostlen + 1
}

func getIntSupport(s *Server, key string, def int) int {
	v, ok := s.Supports.Get(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// splitPRIVMSG breaks a too-long PRIVMSG/NOTICE trailing parameter
// across multiple messages that each individually fit maxLen,
// preferring to break on whitespace. Grounded on girc's splitPRIVMSG.
func splitPRIVMSG(msg *Message, maxLen int) []*Message {
	base := &Message{Command: msg.Command, Params: msg.Params}
	maxTextLen := maxLen - len(base.String()) - len(" :")
	if maxTextLen <= 0 {
		return []*Message{msg}
	}

	b := []byte(msg.Trailing)
	var out []*Message
	for len(b) > maxTextLen {
		idx := bytes.LastIndexByte(b[:maxTextLen], ' ')
		if idx > 0 {
			idx++
		} else {
			idx = bytes.LastIndexFunc(b[:maxTextLen+1], utf8.ValidRune)
		}
		out = append(out, &Message{Command: msg.Command, Params: msg.Params, Trailing: string(b[:idx]), HasTrailing: true})
		b = b[idx:]
	}
	out = append(out, &Message{Command: msg.Command, Params: msg.Params, Trailing: string(b), HasTrailing: true})
	return out
}

// splitForServer splits msg if, once a plausible echo prefix is
// accounted for, it would exceed the 512-byte wire limit.
func splitForServer(s *Server, msg *Message) []*Message {
	maxLen := maxIRCLen - maxPrefixLen(s)
	if len(msg.String()) <= maxLen {
		return []*Message{msg}
	}
	if msg.Command == cmdPRIVMSG || msg.Command == cmdNOTICE {
		return splitPRIVMSG(msg, maxLen)
	}
	return []*Message{msg}
}

// sendSplit writes every chunk of a (possibly split) outgoing message
// in order.
func (c *Core) sendSplit(s *Server, msg *Message) error {
	for _, chunk := range splitForServer(s, msg) {
		if err := c.writeRaw(s, chunk); err != nil {
			return err
		}
	}
	return nil
}

// Join sends JOIN for one or more channels, optionally with keys, and
// arms ExpectJoin so the JOIN reply selects the (first) channel
// (spec scenario A).
func (c *Core) Join(serverName string, channels []string, keys []string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.join", fmt.Errorf("unknown server %q", serverName))
	}
	if len(channels) == 0 {
		return &ErrInvalidTarget{Target: ""}
	}
	msg := &Message{Command: cmdJOIN, Params: []string{joinList(channels)}}
	if len(keys) > 0 {
		msg.Params = append(msg.Params, joinList(keys))
	}
	s.expect.Set(ExpectJoin, channels[0])

	if s.Status != Connected {
		s.schedule.Enqueue(Trigger{Kind: TriggerCommand, Tag: RPL_ENDOFMOTD}, msg.String())
		return nil
	}
	return c.sendSplit(s, msg)
}

func joinList(items []string) string {
	out := items[0]
	for _, it := range items[1:] {
		out += "," + it
	}
	return out
}

// Part sends PART for a channel with an optional reason, falling back
// to def.partmessage.
func (c *Core) Part(serverName, channel, reason string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.part", fmt.Errorf("unknown server %q", serverName))
	}
	if reason == "" {
		reason = c.Config.Defaults.PartMessage
	}
	s.expect.Set(ExpectPart, channel)
	return c.sendSplit(s, &Message{Command: cmdPART, Params: []string{channel}, Trailing: reason, HasTrailing: true})
}

// Message sends a PRIVMSG to target.
func (c *Core) Message(serverName, target, text string) error {
	return c.sendTo(serverName, cmdPRIVMSG, target, text)
}

// Notice sends a NOTICE to target.
func (c *Core) Notice(serverName, target, text string) error {
	return c.sendTo(serverName, cmdNOTICE, target, text)
}

// Action sends a CTCP ACTION ("/me") PRIVMSG to target.
func (c *Core) Action(serverName, target, text string) error {
	return c.sendTo(serverName, cmdPRIVMSG, target, encodeCTCP("ACTION", text))
}

func (c *Core) sendTo(serverName, cmd, target, text string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.send", fmt.Errorf("unknown server %q", serverName))
	}
	return c.sendSplit(s, &Message{Command: cmd, Params: []string{target}, Trailing: text, HasTrailing: true})
}

// Mode queries or sets a channel/nick mode string.
func (c *Core) Mode(serverName, target string, args ...string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.mode", fmt.Errorf("unknown server %q", serverName))
	}
	if len(args) == 0 {
		s.expect.Set(ExpectChannelModeIs, target)
	}
	return c.sendSplit(s, &Message{Command: cmdMODE, Params: append([]string{target}, args...)})
}

// Nick requests a nickname change.
func (c *Core) Nick(serverName, nick string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.nick", fmt.Errorf("unknown server %q", serverName))
	}
	return c.writeRaw(s, &Message{Command: cmdNICK, Params: []string{nick}})
}

// Topic sets (or queries, if topic == "") a channel's topic.
func (c *Core) Topic(serverName, channel, topic string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.topic", fmt.Errorf("unknown server %q", serverName))
	}
	if topic == "" {
		s.expect.Set(ExpectTopic, channel)
		return c.writeRaw(s, &Message{Command: cmdTOPIC, Params: []string{channel}})
	}
	return c.sendSplit(s, &Message{Command: cmdTOPIC, Params: []string{channel}, Trailing: topic, HasTrailing: true})
}

// Kick removes nick from channel with an optional reason.
func (c *Core) Kick(serverName, channel, nick, reason string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.kick", fmt.Errorf("unknown server %q", serverName))
	}
	if reason == "" {
		reason = c.Config.Defaults.KillMessage
	}
	return c.sendSplit(s, &Message{Command: cmdKICK, Params: []string{channel, nick}, Trailing: reason, HasTrailing: true})
}

// Invite invites nick to channel.
func (c *Core) Invite(serverName, nick, channel string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.invite", fmt.Errorf("unknown server %q", serverName))
	}
	return c.writeRaw(s, &Message{Command: cmdINVITE, Params: []string{nick, channel}})
}

// Away toggles away status (empty message clears it).
func (c *Core) Away(serverName, message string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.away", fmt.Errorf("unknown server %q", serverName))
	}
	if message == "" {
		return c.writeRaw(s, &Message{Command: cmdAWAY})
	}
	return c.writeRaw(s, &Message{Command: cmdAWAY, Trailing: message, HasTrailing: true})
}

// Who issues a WHO query.
func (c *Core) Who(serverName, mask string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.who", fmt.Errorf("unknown server %q", serverName))
	}
	return c.writeRaw(s, &Message{Command: cmdWHO, Params: []string{mask}})
}

// Whois issues a WHOIS query.
func (c *Core) Whois(serverName, nick string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.whois", fmt.Errorf("unknown server %q", serverName))
	}
	return c.writeRaw(s, &Message{Command: cmdWHOIS, Params: []string{nick}})
}

// Whowas issues a WHOWAS query.
func (c *Core) Whowas(serverName, nick string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.whowas", fmt.Errorf("unknown server %q", serverName))
	}
	return c.writeRaw(s, &Message{Command: cmdWHOWAS, Params: []string{nick}})
}

// Oper authenticates as an IRC operator.
func (c *Core) Oper(serverName, name, password string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.oper", fmt.Errorf("unknown server %q", serverName))
	}
	return c.writeRaw(s, &Message{Command: cmdOPER, Params: []string{name, password}})
}

// List requests the channel list, optionally filtered by mask.
func (c *Core) List(serverName, mask string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.list", fmt.Errorf("unknown server %q", serverName))
	}
	if mask == "" {
		return c.writeRaw(s, &Message{Command: cmdLIST})
	}
	return c.writeRaw(s, &Message{Command: cmdLIST, Params: []string{mask}})
}

// Ping sends an application-level PING with a correlation token and
// arms ExpectPong.
func (c *Core) Ping(serverName, token string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.ping", fmt.Errorf("unknown server %q", serverName))
	}
	s.expect.Set(ExpectPong, token)
	return c.writeRaw(s, &Message{Command: cmdPING, Trailing: token, HasTrailing: true})
}

// Pong replies to a server PING manually (normally handled by
// handlePing; exposed for host collaborators driving raw_send).
func (c *Core) Pong(serverName, token string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.pong", fmt.Errorf("unknown server %q", serverName))
	}
	return c.writeRaw(s, &Message{Command: cmdPONG, Trailing: token, HasTrailing: true})
}
