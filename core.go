// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	cmap "github.com/orcaman/concurrent-map"
)

// Core is the process-wide, explicitly constructed value that replaces
// the original's global mutable singletons (spec §9 "Global mutable
// state"). Every subsystem hangs off Core; only the poll loop (and, for
// the terminal-input path, cmd/hirc) ever mutates it.
type Core struct {
	Logger *log.Logger
	Config *Config

	servers    []*Server
	serverIdx  cmap.ConcurrentMap // name -> *Server, mirrors girc's state registries
	format     *FormatEngine
	poll       *pollset
	Main       HistInfo

	selServer  string
	selChannel string

	redrawHint bool
}

// NewCore builds a Core with discard logging unless HIRC_DEBUG is set,
// following girc's Client.debug default (SPEC_FULL.md §2).
func NewCore(cfg *Config) *Core {
	if cfg == nil {
		cfg = NewConfig()
	} else {
		cfg.normalize()
	}

	var w io.Writer = io.Discard
	if os.Getenv("HIRC_DEBUG") != "" {
		w = os.Stderr
	}

	return &Core{
		Logger:    log.New(w, "hirc: ", log.LstdFlags),
		Config:    cfg,
		serverIdx: cmap.New(),
		format:    NewFormatEngine(cfg),
		poll:      newPollset(),
	}
}

func (c *Core) debugf(format string, args ...any) {
	c.Logger.Printf(format, args...)
}

// AddServer registers a new Server and returns it.
func (c *Core) AddServer(name, host string, port int, id Identity, tlsCfg TLSConfig) *Server {
	s := NewServer(name, host, port, id, tlsCfg)
	c.servers = append(c.servers, s)
	c.serverIdx.Set(name, s)
	return s
}

// Server looks up a registered server by name.
func (c *Core) Server(name string) *Server {
	v, ok := c.serverIdx.Get(name)
	if !ok {
		return nil
	}
	return v.(*Server)
}

// Servers returns every registered server.
func (c *Core) Servers() []*Server { return c.servers }

// RemoveServer disconnects (best-effort) and forgets a server.
func (c *Core) RemoveServer(name string) {
	if s := c.Server(name); s != nil {
		c.disconnect(s, false, "removed")
	}
	c.serverIdx.Remove(name)
	for i, s := range c.servers {
		if s.Name == name {
			c.servers = append(c.servers[:i], c.servers[i+1:]...)
			break
		}
	}
}

// Connect dials name's host:port, performs the optional TLS handshake,
// and queues PASS/NICK/USER (spec §4.3 "On success, queue PASS, NICK,
// USER in that order").
func (c *Core) Connect(name string) error {
	s := c.Server(name)
	if s == nil {
		return newCoreError(KindUser, "core.connect", fmt.Errorf("unknown server %q", name))
	}

	s.Status = Connecting
	tr, info, err := DialTransport(s.Addr(), s.TLS, 10*time.Second)
	s.LastConnected = time.Now()
	if err != nil {
		s.ConnectFailCount++
	} else {
		s.ConnectFailCount = 0
	}
	if err != nil {
		s.Status = Disconnected
		c.appendStatus(s, nil, fmt.Sprintf("connect failed: %v", err), true)
		return err
	}

	s.out = tr
	s.in = newFrameBuffer()
	s.LastRecv = time.Now()
	s.PingSent = time.Time{}

	if info != nil {
		c.appendStatus(s, nil, fmt.Sprintf("TLS_VERSION %s", info.Version), false)
		c.appendStatus(s, nil, fmt.Sprintf("TLS_SNI %s", info.SNI), false)
		if info.Issuer != "" {
			c.appendStatus(s, nil, fmt.Sprintf("TLS_ISSUER %s", info.Issuer), false)
			c.appendStatus(s, nil, fmt.Sprintf("TLS_SUBJECT %s", info.Subject), false)
		}
	}

	if s.Identity.Password != "" {
		c.writeRaw(s, &Message{Command: cmdPASS, Params: []string{s.Identity.Password}})
	}
	c.writeRaw(s, &Message{Command: cmdNICK, Params: []string{s.SelfNick}})
	c.writeRaw(s, &Message{Command: cmdUSER, Params: []string{s.Identity.User, "0", "*"}, Trailing: s.Identity.Real, HasTrailing: true})

	return nil
}

// disconnect transitions s to Disconnected, cancels its schedule, and
// optionally requests reconnection (spec §5 "Cancellation").
func (c *Core) disconnect(s *Server, reconnect bool, reason string) {
	if s.out != nil {
		s.out.Close()
		s.out = nil
	}
	s.Status = Disconnected
	s.ReconnectWanted = reconnect
	s.schedule.Cancel()
	c.appendStatus(s, nil, fmt.Sprintf("CONNECTLOST %s", reason), true)
}

// writeRaw sends msg immediately to s, marking the server disconnected
// on a write failure (spec §4.1).
func (c *Core) writeRaw(s *Server, msg *Message) error {
	if s.out == nil {
		return ErrNotConnected
	}
	if err := s.out.WriteAll(msg.Bytes()); err != nil {
		c.disconnect(s, true, err.Error())
		return err
	}
	return nil
}

// RawSend lets a host collaborator inject a raw protocol line
// (spec §6 "raw_send(server, bytes)").
func (c *Core) RawSend(serverName string, line string) error {
	s := c.Server(serverName)
	if s == nil {
		return newCoreError(KindUser, "core.raw_send", fmt.Errorf("unknown server %q", serverName))
	}
	msg := ParseMessage(line)
	if msg == nil {
		return newCoreError(KindProtocol, "core.raw_send", fmt.Errorf("malformed line"))
	}
	return c.writeRaw(s, msg)
}

// Tick runs one iteration of the poll loop (spec §4.8).
func (c *Core) Tick() error {
	c.poll.Reset()
	fdToServer := map[int]*Server{}
	for _, s := range c.servers {
		if s.Status != Disconnected && s.out != nil {
			c.poll.Add(s.Name, s.out.FD())
			fdToServer[s.out.FD()] = s
		}
	}

	ready, err := c.poll.Poll()
	if err != nil {
		return err
	}
	readySet := map[string]bool{}
	for _, tag := range ready {
		readySet[tag] = true
	}

	now := time.Now()
	for _, s := range c.servers {
		switch {
		case s.Status != Disconnected && readySet[s.Name]:
			c.readAndDispatch(s)
		case s.Status == Connected && s.PingSent.IsZero() && !s.LastRecv.IsZero() && now.Sub(s.LastRecv) >= c.Config.PingTime:
			c.writeRaw(s, &Message{Command: cmdPING, Trailing: s.Name, HasTrailing: true})
			s.PingSent = now
		case s.Status == Connected && !s.PingSent.IsZero() && now.Sub(s.PingSent) >= c.Config.PingTime:
			c.disconnect(s, true, "no ping reply")
		case s.Status == Disconnected && s.ReconnectDue(c.Config.Reconnect, now):
			c.Connect(s.Name)
		}
	}

	return nil
}

// readAndDispatch reads whatever is available from s, frames it into
// lines, and dispatches each in order (spec §5 ordering guarantees).
func (c *Core) readAndDispatch(s *Server) {
	buf := s.in.Free()
	n, err := s.out.ReadInto(buf)
	if err != nil || n == 0 {
		if err != nil {
			c.disconnect(s, true, err.Error())
		}
		return
	}
	s.in.Advance(n)

	for _, line := range s.in.Lines() {
		msg := ParseMessage(line)
		s.PingSent = time.Time{}
		s.LastRecv = time.Now()
		if msg == nil {
			continue
		}
		c.dispatch(s, msg)
		for _, payload := range s.schedule.FlushCommand(msg.Command) {
			c.writeRaw(s, ParseMessage(payload))
		}
	}
}

// Shutdown issues a best-effort QUIT to every connected server
// (spec §5 "On process shutdown").
func (c *Core) Shutdown(message string) {
	for _, s := range c.servers {
		if s.Status == Connected {
			c.writeRaw(s, &Message{Command: cmdQUIT, Trailing: message, HasTrailing: true})
		}
		if s.out != nil {
			s.out.Close()
		}
	}
}

// ---- History / selection surface (spec §6) ----

// appendHistory implements the add-time fan-out rules of spec §4.6:
// MAIN fan-out, SELF stamping, unread/ignored/activity accounting, and
// log persistence.
func (c *Core) appendHistory(hi *HistInfo, h *History, selfNick string, selfEntry *Nick, isMainTarget bool, selected bool) {
	if h.Options&OptSelf != 0 && h.From == nil {
		h.From = selfEntry
	}

	hi.Add(h)
	hi.bumpActivity(h, selected)

	if h.Options&OptMain != 0 && !isMainTarget {
		shallow := *h
		shallow.Options = OptShow
		shallow.next, shallow.prev = nil, nil
		c.Main.Add(&shallow)
		c.Main.bumpActivity(&shallow, c.selServer == "" && c.selChannel == "")
	}

	if h.Options&OptLog != 0 && h.Origin.Server != "" {
		if hi.log == nil && c.Config.Log.Enabled {
			ls, err := openLogStore(c.Config.Log.Dir, h.Origin.Server, h.Origin.Channel)
			if err != nil {
				c.debugf("log open: %v", err)
			} else {
				hi.log = ls
			}
		}
		if err := hi.log.Append(h); err != nil {
			c.debugf("log append: %v", err)
		}
	}

	c.redrawHint = true
}

// appendStatus is a convenience used by connection-lifecycle code to
// record a synthetic (non-protocol) server-level entry.
func (c *Core) appendStatus(s *Server, msg *Message, text string, isError bool) {
	act := ActivityStatus
	opt := OptShow | OptLog
	if isError {
		act = ActivityError
		opt |= OptErr
	}
	h := &History{
		Timestamp: time.Now(),
		Activity:  act,
		Options:   opt,
		Raw:       text,
		Origin:    Handle{Server: s.Name},
	}
	selected := c.selServer == s.Name && c.selChannel == ""
	if s.History.log == nil && c.Config.Log.Enabled {
		ls, err := openLogStore(c.Config.Log.Dir, s.Name, "")
		if err == nil {
			s.History.log = ls
		}
	}
	c.appendHistory(&s.History, h, s.SelfNick, nil, true, selected)
}

// HistoryIter returns up to limit rendered lines for the given
// server/channel buffer, newest-first (spec §6 "history_iter").
func (c *Core) HistoryIter(serverName, channelName string, limit int) []string {
	hi, s, ch := c.resolveBuffer(serverName, channelName)
	if hi == nil {
		return nil
	}
	entries := hi.Entries(limit)
	out := make([]string, 0, len(entries))
	width := 0
	for _, h := range entries {
		msg := ParseMessage(h.Raw)
		name := formatNameFor(h, msg, s.SelfNick)
		chName := ""
		if ch != nil {
			chName = ch.Name
		}
		out = append(out, c.format.Render(name, h, msg, serverName, chName, s.SelfNick, width))
	}
	return out
}

func (c *Core) resolveBuffer(serverName, channelName string) (*HistInfo, *Server, *Channel) {
	s := c.Server(serverName)
	if s == nil {
		if serverName == "" && channelName == "" {
			return &c.Main, nil, nil
		}
		return nil, nil, nil
	}
	if channelName == "" {
		return &s.History, s, nil
	}
	if ch := s.FindChannel(channelName); ch != nil {
		return &ch.History, s, ch
	}
	if ch := s.FindQuery(channelName); ch != nil {
		return &ch.History, s, ch
	}
	return nil, s, nil
}

// Activity reports the HistInfo.Activity for a buffer (spec §6).
func (c *Core) Activity(serverName, channelName string) Activity {
	hi, _, _ := c.resolveBuffer(serverName, channelName)
	if hi == nil {
		return ActivityNone
	}
	return hi.Activity
}

// Unread/Ignored report the corresponding counters (spec §6).
func (c *Core) Unread(serverName, channelName string) int {
	hi, _, _ := c.resolveBuffer(serverName, channelName)
	if hi == nil {
		return 0
	}
	return hi.Unread
}

func (c *Core) Ignored(serverName, channelName string) int {
	hi, _, _ := c.resolveBuffer(serverName, channelName)
	if hi == nil {
		return 0
	}
	return hi.Ignored
}

// Selection changes the selected buffer, clearing its activity and
// purging TMP entries, and triggers log replay if it is newly visible
// (spec §6 "selection").
func (c *Core) Selection(serverName, channelName string) {
	c.selServer, c.selChannel = serverName, channelName
	hi, s, ch := c.resolveBuffer(serverName, channelName)
	if hi == nil {
		return
	}
	firstVisit := hi.Len() == 0
	hi.Select()
	if firstVisit && c.Config.Log.Enabled && s != nil {
		chName := ""
		if ch != nil {
			chName = ch.Name
		}
		c.replayInto(hi, s, chName)
	}
	c.redrawHint = true
}

// ClearBuffer purges TMP entries from a buffer without changing
// selection or activity, for a host collaborator's "/clear" command
// (spec.md §5, original_source/src/commands.c's cmd_clear).
func (c *Core) ClearBuffer(serverName, channelName string) bool {
	hi, _, _ := c.resolveBuffer(serverName, channelName)
	if hi == nil {
		return false
	}
	hi.PurgeByOpt(OptTmp)
	c.redrawHint = true
	return true
}

// replayInto loads persisted log entries into hi, oldest-first, behind
// a synthetic "log restored" status entry (spec §4.6 "Replay").
func (c *Core) replayInto(hi *HistInfo, s *Server, channelName string) {
	entries, err := replayLog(c.Config.Log.Dir, s.Name, channelName)
	if err != nil || len(entries) == 0 {
		return
	}
	marker := &History{
		Timestamp: time.Now(),
		Activity:  ActivityStatus,
		Options:   OptShow,
		Raw:       fmt.Sprintf("log restored up to %s", entries[len(entries)-1].Timestamp.Format(time.RFC3339)),
		Origin:    Handle{Server: s.Name, Channel: channelName},
	}
	hi.Add(marker)
	for _, e := range entries {
		opt := OptRLog
		if e.Show {
			opt |= OptShow
		}
		h := &History{
			Timestamp: e.Timestamp,
			Activity:  e.Activity,
			Options:   opt,
			Raw:       e.Raw,
			Origin:    Handle{Server: s.Name, Channel: channelName},
		}
		if e.Nick != "" {
			h.From = &Nick{Nick: e.Nick, Ident: e.Ident, Host: e.Host, Priv: e.Priv, Self: e.Self}
		}
		hi.Add(h)
	}
}

// RedrawPending reports and clears the redraw hint (spec §6
// "Core -> host events: redraw_hint").
func (c *Core) RedrawPending() bool {
	v := c.redrawHint
	c.redrawHint = false
	return v
}
