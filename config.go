// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Identity carries the NICK/USER fields sent on connect and the
// def.nick/def.user/def.real fallbacks (spec §6).
type Identity struct {
	Nick     string
	User     string
	Real     string
	Password string
}

func (id *Identity) normalize() {
	if id.Nick == "" {
		id.Nick = "hirc"
	}
	if id.User == "" {
		id.User = id.Nick
	}
	if id.Real == "" {
		id.Real = id.Nick
	}
}

// ReconnectPolicy holds the backoff parameters from spec §4.3/§6.
type ReconnectPolicy struct {
	Interval    time.Duration // reconnect.interval
	MaxInterval time.Duration // reconnect.maxinterval
}

func (r *ReconnectPolicy) normalize() {
	if r.Interval <= 0 {
		r.Interval = 10 * time.Second
	}
	if r.MaxInterval <= 0 {
		r.MaxInterval = 5 * time.Minute
	}
}

// Delay returns the backoff for the given failure count, per
// spec §4.3/testable property 7: min(max_interval, k * base).
func (r ReconnectPolicy) Delay(failures int) time.Duration {
	d := time.Duration(failures) * r.Interval
	if d > r.MaxInterval {
		return r.MaxInterval
	}
	return d
}

// LogPolicy controls the persistent log (spec §4.6/§6).
type LogPolicy struct {
	Enabled bool
	Dir     string // log.dir, "~" expands to $HOME
}

func (l *LogPolicy) normalize() {
	if l.Dir == "" {
		l.Dir = "~/.hirc/logs"
	}
	if strings.HasPrefix(l.Dir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			l.Dir = filepath.Join(home, strings.TrimPrefix(l.Dir, "~"))
		}
	}
}

// NickColourPolicy controls the %{nick:EXPR} derivation (spec §4.7).
type NickColourPolicy struct {
	Self     int // nickcolour.self
	RangeLow int // nickcolour.range low bound
	RangeHi  int // nickcolour.range high bound
}

func (n *NickColourPolicy) normalize() {
	if n.RangeHi <= n.RangeLow {
		n.RangeLow, n.RangeHi = 2, 98
	}
	if n.Self < 0 || n.Self > 99 {
		n.Self = 1
	}
}

// DividerPolicy controls the format engine's %{=} rendering (spec §4.7/§6).
type DividerPolicy struct {
	Enabled bool
	String  string
	Margin  int
}

func (d *DividerPolicy) normalize() {
	if d.String == "" {
		d.String = "┆"
	}
	if d.Margin <= 0 {
		d.Margin = 10
	}
}

// Defaults carries the def.* ISUPPORT fallbacks (spec §6, §9
// "modelset... fall back to def.modes").
type Defaults struct {
	ChanTypes    string
	Prefixes     string
	Modes        int
	QuitMessage  string
	PartMessage  string
	KillMessage string
}

func (d *Defaults) normalize() {
	if d.ChanTypes == "" {
		d.ChanTypes = DefaultChanTypes
	}
	if d.Prefixes == "" {
		d.Prefixes = DefaultPrefixes
	}
	if d.Modes <= 0 {
		d.Modes = 4
	}
	if d.QuitMessage == "" {
		d.QuitMessage = "leaving"
	}
	if d.PartMessage == "" {
		d.PartMessage = d.QuitMessage
	}
	if d.KillMessage == "" {
		d.KillMessage = d.QuitMessage
	}
}

// Config aggregates every value spec §6 lists the core as consuming.
// Mirrors girc's Config struct: a plain exported struct with a
// normalize method run once at Core construction, rather than the
// generic string-keyed store original_source/src/config.c used. Each
// named setting is an exported field; there are no getter methods.
type Config struct {
	Defaults    Defaults
	Log         LogPolicy
	PingTime    time.Duration // misc.pingtime
	Reconnect   ReconnectPolicy
	MotdRemoveDash bool // motd.removedash
	NickColour  NickColourPolicy
	Formats     map[string]string // format.*
	Divider     DividerPolicy
}

// DefaultFormats returns the built-in format.* templates, named as the
// original's format_get table does (PRIVMSG, PRIVMSG-ACTION,
// PRIVMSG-CTCP, NOTICE, NOTICE-CTCP, JOIN, PART, QUIT, NICK, TOPIC,
// MODE-CHANNEL, MODE-NICK, MODE-NICK-SELF, STATUS, ERROR).
func DefaultFormats() map[string]string {
	return map[string]string{
		"PRIVMSG":        "%{=}%{time:%H:%M,${time}} %{nick:${nick}}${nick}%{b} %{=}${3-}",
		"PRIVMSG-ACTION":  "%{=}%{time:%H:%M,${time}} * %{nick:${nick}}${nick} %{=}${3-}",
		"PRIVMSG-CTCP":    "%{=}%{time:%H:%M,${time}} CTCP %{nick:${nick}}${nick} %{=}${3-}",
		"NOTICE":         "%{=}%{time:%H:%M,${time}} -${nick}- %{=}${3-}",
		"NOTICE-CTCP":    "%{=}%{time:%H:%M,${time}} CTCP reply %{nick:${nick}}${nick} %{=}${3-}",
		"JOIN":           "%{=}%{time:%H:%M,${time}} -!- %{nick:${nick}}${nick}%{b} (${ident}@${host}) has joined ${channel}",
		"PART":           "%{=}%{time:%H:%M,${time}} -!- %{nick:${nick}}${nick}%{b} has left ${channel} %{=}${3-}",
		"QUIT":           "%{=}%{time:%H:%M,${time}} -!- %{nick:${nick}}${nick}%{b} has quit %{=}${2-}",
		"NICK":           "%{=}%{time:%H:%M,${time}} -!- %{nick:${nick}}${nick}%{b} is now known as %{nick:${2}}${2}",
		"TOPIC":          "%{=}%{time:%H:%M,${time}} -!- %{nick:${nick}}${nick}%{b} changed the topic of ${channel} to: ${3-}",
		"MODE-CHANNEL":   "%{=}%{time:%H:%M,${time}} -!- mode/${channel} %{=}[${3-} by ${nick}]",
		"MODE-NICK":      "%{=}%{time:%H:%M,${time}} -!- mode/${nick} %{=}[${3-}]",
		"MODE-NICK-SELF": "%{=}%{time:%H:%M,${time}} -!- your mode %{=}[${3-}]",
		"STATUS":         "%{=}%{time:%H:%M,${time}} -!- %{=}${raw}",
		"ERROR":          "%{=}%{time:%H:%M,${time}} %{c:04}-!- ${raw}%{o}",
	}
}

func (c *Config) normalize() {
	c.Defaults.normalize()
	c.Log.normalize()
	c.Reconnect.normalize()
	c.NickColour.normalize()
	c.Divider.normalize()
	if c.PingTime <= 0 {
		c.PingTime = 3 * time.Minute
	}
	if c.Formats == nil {
		c.Formats = DefaultFormats()
	} else {
		for k, v := range DefaultFormats() {
			if _, ok := c.Formats[k]; !ok {
				c.Formats[k] = v
			}
		}
	}
}

// NewConfig returns a Config with every field normalized to its
// default, equivalent to a zero-value girc.Config passed through
// Client.New's defaulting path.
func NewConfig() *Config {
	c := &Config{}
	c.normalize()
	return c
}
