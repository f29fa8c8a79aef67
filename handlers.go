// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"strings"
	"time"
)

// handlerFunc processes one parsed Message against Server/Core state
// (spec §4.3). Grounded on girc's handler.go dispatch shape (command ->
// func(*Client, Event)), generalized to hirc's Server/Core split.
type handlerFunc func(c *Core, s *Server, msg *Message)

var handlerTable map[string]handlerFunc

func init() {
	handlerTable = map[string]handlerFunc{
		cmdPING:           handlePing,
		cmdPONG:           handlePong,
		cmdJOIN:           handleJoin,
		cmdPART:           handlePart,
		cmdKICK:           handleKick,
		cmdQUIT:           handleQuit,
		cmdNICK:           handleNick,
		cmdMODE:           handleMode,
		cmdTOPIC:          handleTopic,
		cmdPRIVMSG:        handlePrivmsgNotice,
		cmdNOTICE:         handlePrivmsgNotice,
		cmdINVITE:         handleInvite,
		cmdERROR:          handleError,
		RPL_WELCOME:       handleWelcome,
		RPL_ISUPPORT:      handleISupport,
		RPL_CHANNELMODEIS: handleChannelModeIs,
		RPL_NOTOPIC:       handleTopicReply,
		RPL_TOPIC:         handleTopicReply,
		RPL_TOPICWHOTIME:  handleTopicWhoTime,
		RPL_INVITING:      handleInviting,
		RPL_NAMREPLY:      handleNamReply,
		RPL_ENDOFNAMES:    handleEndOfNames,
		RPL_MOTDSTART:     handleMotdLine,
		RPL_MOTD:          handleMotdLine,
		RPL_ENDOFMOTD:     handleEndOfMotd,
		ERR_NOSUCHNICK:    handleNoSuchNick,
		ERR_NICKNAMEINUSE: handleNicknameInUse,
	}
}

// dispatch routes msg to its handler, or logs it as status/error per
// spec §4.3's "Unknown commands" rule.
func (c *Core) dispatch(s *Server, msg *Message) {
	if h, ok := handlerTable[msg.Command]; ok {
		h(c, s, msg)
		return
	}

	isError := len(msg.Command) == 3 && (msg.Command[0] == '4' || msg.Command[0] == '5')
	c.appendStatus(s, msg, msg.String(), isError)
}

func selfNickEntry(s *Server, ch *Channel) *Nick {
	if ch != nil {
		if n := ch.Find(s.SelfNick); n != nil {
			return n
		}
	}
	return &Nick{Nick: s.SelfNick, Self: true}
}

// logMsg appends a server-level SHOW|LOG entry for the raw line,
// convenient for handlers whose history target is "server" alone.
func (c *Core) logMsg(s *Server, msg *Message, act Activity) {
	h := &History{
		Timestamp: time.Now(),
		Activity:  act,
		Options:   OptShow | OptLog,
		Raw:       msg.String(),
		Origin:    Handle{Server: s.Name},
	}
	c.appendHistory(&s.History, h, s.SelfNick, nil, true, c.selServer == s.Name && c.selChannel == "")
}

// channelEntry appends an entry to a channel's history with the given
// options.
func (c *Core) channelEntry(s *Server, ch *Channel, msg *Message, act Activity, opt HistOpt, from *Nick) {
	h := &History{
		Timestamp: time.Now(),
		Activity:  act,
		Options:   opt,
		Raw:       msg.String(),
		From:      from,
		Origin:    Handle{Server: s.Name, Channel: ch.Name},
	}
	selected := c.selServer == s.Name && c.selChannel == ch.Name
	c.appendHistory(&ch.History, h, s.SelfNick, selfNickEntry(s, ch), false, selected)
}

func handlePing(c *Core, s *Server, msg *Message) {
	c.writeRaw(s, &Message{Command: cmdPONG, Trailing: msg.Last(), HasTrailing: true})
}

func handlePong(c *Core, s *Server, msg *Message) {
	s.expect.Match(ExpectPong, msg.Last())
	c.logMsg(s, msg, ActivityStatus)
}

func handleJoin(c *Core, s *Server, msg *Message) {
	if len(msg.AllParams()) < 1 {
		return
	}
	chanName := msg.Param(1)
	ch := s.EnsureChannel(chanName)
	ch.Old = false

	isSelf := msg.Prefix != nil && msg.Prefix.Name == s.SelfNick
	n := &Nick{Nick: msg.Prefix.Name, Ident: msg.Prefix.Ident, Host: msg.Prefix.Host, Self: isSelf}
	ch.Add(n)

	c.logMsg(s, msg, ActivityStatus)
	c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)

	if isSelf {
		if s.expect.Match(ExpectJoin, chanName) {
			c.Selection(s.Name, chanName)
		}
	}
}

func handlePart(c *Core, s *Server, msg *Message) {
	chanName := msg.Param(1)
	ch := s.FindChannel(chanName)
	if ch == nil {
		return
	}
	isSelf := msg.Prefix != nil && msg.Prefix.Name == s.SelfNick
	if isSelf {
		ch.Old = true
		ch.Clear()
		s.expect.Match(ExpectPart, chanName)
	} else if msg.Prefix != nil {
		ch.Remove(msg.Prefix.Name)
	}
	c.logMsg(s, msg, ActivityStatus)
	c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
}

func handleKick(c *Core, s *Server, msg *Message) {
	chanName := msg.Param(1)
	target := msg.Param(2)
	ch := s.FindChannel(chanName)
	if ch == nil {
		return
	}
	if target == s.SelfNick {
		ch.Old = true
		ch.Clear()
	} else {
		ch.Remove(target)
	}
	c.logMsg(s, msg, ActivityStatus)
	c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
}

func handleQuit(c *Core, s *Server, msg *Message) {
	if msg.Prefix == nil {
		return
	}
	if msg.Prefix.Name == s.SelfNick {
		s.Status = Disconnected
		s.ReconnectWanted = false
		c.logMsg(s, msg, ActivityStatus)
		return
	}
	affected := s.RemoveNickEverywhere(msg.Prefix.Name)
	c.logMsg(s, msg, ActivityStatus)
	for _, ch := range affected {
		c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
	}
}

func handleNick(c *Core, s *Server, msg *Message) {
	if msg.Prefix == nil || len(msg.AllParams()) < 1 {
		return
	}
	newNick := msg.Param(1)
	isSelf := msg.Prefix.Name == s.SelfNick

	if isSelf {
		s.SelfNick = newNick
		s.expect.Clear(ExpectNicknameInUse)
	}
	affected := s.RenameNickEverywhere(msg.Prefix.Name, newNick)
	c.logMsg(s, msg, ActivityStatus)
	for _, ch := range affected {
		c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
	}
}

func handleMode(c *Core, s *Server, msg *Message) {
	if len(msg.AllParams()) < 2 {
		c.logMsg(s, msg, ActivityStatus)
		return
	}
	target := msg.Param(1)
	if ch := s.FindChannel(target); ch != nil {
		s.expect.Clear(ExpectNoSuchNick)
		c.logMsg(s, msg, ActivityStatus)
		c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
		c.writeRaw(s, &Message{Command: cmdMODE, Params: []string{target}})
		c.writeRaw(s, &Message{Command: "NAMES", Params: []string{target}})
		return
	}
	c.logMsg(s, msg, ActivityStatus)
}

func handleTopic(c *Core, s *Server, msg *Message) {
	chanName := msg.Param(1)
	ch := s.FindChannel(chanName)
	if ch == nil {
		return
	}
	ch.Topic = msg.Last()
	c.channelEntry(s, ch, msg, ActivityStatus, OptShow|OptLog, nil)
}

func handlePrivmsgNotice(c *Core, s *Server, msg *Message) {
	if msg.Prefix == nil || len(msg.AllParams()) < 1 {
		return
	}
	target := msg.Param(1)
	body := msg.Last()

	direct := isMentioned(body, s.SelfNick)
	selfSourced := msg.Prefix.Name == s.SelfNick

	var ch *Channel
	switch {
	case msg.Prefix.IsServer():
		c.logMsg(s, msg, ActivityStatus)
		return
	case target == s.SelfNick:
		ch = s.EnsureQuery(msg.Prefix.Name)
	case selfSourced:
		ch = s.EnsureQuery(target)
	case s.Supports.IsChannel(target):
		ch = s.EnsureChannel(target)
	default:
		ch = s.EnsureQuery(msg.Prefix.Name)
	}

	act := ActivityMessage
	if msg.Command == cmdNOTICE {
		act = ActivityStatus
	} else if direct || target == s.SelfNick {
		act = ActivityHilight
	}

	c.channelEntry(s, ch, msg, act, OptShow|OptLog, nil)
}

// isMentioned reports whether body contains selfNick, compared
// case-insensitively, used to upgrade channel PRIVMSG activity to
// hilight. It matches substrings: the nick inside a longer word counts.
func isMentioned(body, selfNick string) bool {
	if selfNick == "" {
		return false
	}
	return strings.Contains(strings.ToLower(body), strings.ToLower(selfNick))
}

func handleInvite(c *Core, s *Server, msg *Message) {
	if msg.Prefix == nil {
		return
	}
	if q := s.FindQuery(msg.Prefix.Name); q != nil {
		c.channelEntry(s, q, msg, ActivityStatus, OptShow, nil)
		return
	}
	c.logMsg(s, msg, ActivityStatus)
}

// errorKeywords classifies ERROR lines as non-recoverable per
// spec §4.3.
var errorKeywords = []string{"unauthorized", "invalid", "kill", "ban", "kline", "gline", "k-line", "g-line"}

func handleError(c *Core, s *Server, msg *Message) {
	text := strings.ToLower(msg.Last())
	recoverable := true
	for _, kw := range errorKeywords {
		if strings.Contains(text, kw) {
			recoverable = false
			break
		}
	}
	c.logMsg(s, msg, ActivityError)
	c.disconnect(s, recoverable, msg.Last())
}

func handleWelcome(c *Core, s *Server, msg *Message) {
	s.Status = Connected
	c.logMsg(s, msg, ActivityStatus)
	for _, payload := range s.schedule.FlushConnected() {
		c.writeRaw(s, ParseMessage(payload))
	}
	for _, cmdline := range s.Autocmds {
		c.writeRaw(s, ParseMessage(cmdline))
	}
}

func handleISupport(c *Core, s *Server, msg *Message) {
	for _, p := range msg.Params[1:] {
		if strings.HasPrefix(p, "are supported by this server") {
			continue
		}
		s.Supports.Set(p)
	}
	c.logMsg(s, msg, ActivityStatus)
}

func handleChannelModeIs(c *Core, s *Server, msg *Message) {
	if len(msg.Params) < 2 {
		return
	}
	chanName := msg.Params[1]
	ch := s.FindChannel(chanName)
	if ch == nil {
		return
	}
	flags := ""
	if len(msg.Params) > 2 {
		flags = msg.Params[2]
	}
	var args []string
	if len(msg.Params) > 3 {
		args = msg.Params[3:]
	}
	changes := ch.Modes.Parse(flags, args)
	ch.Modes.Apply(changes)
	if s.expect.Pending(ExpectChannelModeIs) {
		s.expect.Clear(ExpectChannelModeIs)
		c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
	}
}

func handleTopicReply(c *Core, s *Server, msg *Message) {
	if len(msg.Params) < 2 {
		return
	}
	chanName := msg.Params[1]
	ch := s.FindChannel(chanName)
	if ch == nil {
		return
	}
	if msg.Command == RPL_TOPIC {
		ch.Topic = msg.Last()
		s.expect.Set(ExpectTopicWhoTime, chanName)
	}
	if s.expect.Pending(ExpectTopic) {
		s.expect.Clear(ExpectTopic)
		c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
	}
}

func handleTopicWhoTime(c *Core, s *Server, msg *Message) {
	if len(msg.Params) < 2 {
		return
	}
	chanName := msg.Params[1]
	ch := s.FindChannel(chanName)
	if ch == nil {
		return
	}
	if s.expect.Match(ExpectTopicWhoTime, chanName) {
		c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
	}
}

func handleInviting(c *Core, s *Server, msg *Message) {
	if len(msg.Params) < 2 {
		return
	}
	chanName := msg.Params[1]
	ch := s.FindChannel(chanName)
	if ch == nil {
		c.logMsg(s, msg, ActivityStatus)
		return
	}
	c.channelEntry(s, ch, msg, ActivityStatus, OptShow, nil)
}

func handleNamReply(c *Core, s *Server, msg *Message) {
	if len(msg.Params) < 3 {
		return
	}
	chanName := msg.Params[2]
	ch := s.EnsureChannel(chanName)
	symbols := prefixSymbols(s.Supports.Prefix())

	names := strings.Fields(msg.Last())
	for _, raw := range names {
		nick, priv := stripNickPrefix(raw, symbols)
		if nick == "" {
			continue
		}
		if existing := ch.Find(nick); existing != nil {
			existing.Priv = priv
			continue
		}
		ch.Add(&Nick{Nick: nick, Priv: priv, Self: nick == s.SelfNick})
	}
	c.logMsg(s, msg, ActivityStatus)
}

func prefixSymbols(raw string) string {
	_, symbols := parsePrefixes(raw)
	return symbols
}

func handleEndOfNames(c *Core, s *Server, msg *Message) {
	if len(msg.Params) < 2 {
		return
	}
	s.expect.Match(ExpectNames, msg.Params[1])
}

func handleMotdLine(c *Core, s *Server, msg *Message) {
	raw := msg.String()
	if c.Config.MotdRemoveDash && msg.HasTrailing && strings.HasPrefix(msg.Trailing, "- ") {
		stripped := *msg
		stripped.Trailing = msg.Trailing[2:]
		raw = stripped.String()
	}
	h := &History{
		Timestamp: time.Now(),
		Activity:  ActivityStatus,
		Options:   OptShow | OptLog,
		Raw:       raw,
		Origin:    Handle{Server: s.Name},
	}
	c.appendHistory(&s.History, h, s.SelfNick, nil, true, c.selServer == s.Name && c.selChannel == "")
}

func handleEndOfMotd(c *Core, s *Server, msg *Message) {
	handleMotdLine(c, s, msg)
	if s.Status != Connected {
		s.Status = Connected
		for _, payload := range s.schedule.FlushConnected() {
			c.writeRaw(s, ParseMessage(payload))
		}
		for _, cmdline := range s.Autocmds {
			c.writeRaw(s, ParseMessage(cmdline))
		}
	}
}

func handleNoSuchNick(c *Core, s *Server, msg *Message) {
	if len(msg.Params) < 2 {
		c.logMsg(s, msg, ActivityError)
		return
	}
	target := msg.Params[1]
	if want, ok := s.expect.Get(ExpectNoSuchNick); ok && want == target {
		s.expect.Clear(ExpectNoSuchNick)
		if ch := s.FindChannel(want); ch != nil {
			c.channelEntry(s, ch, msg, ActivityError, OptShow|OptErr, nil)
			return
		}
	}
	c.logMsg(s, msg, ActivityError)
}

func handleNicknameInUse(c *Core, s *Server, msg *Message) {
	if s.expect.Pending(ExpectNicknameInUse) {
		s.expect.Clear(ExpectNicknameInUse)
		c.logMsg(s, msg, ActivityError)
		return
	}
	s.SelfNick += "_"
	c.writeRaw(s, &Message{Command: cmdNICK, Params: []string{s.SelfNick}})
	c.logMsg(s, msg, ActivityStatus)
}
