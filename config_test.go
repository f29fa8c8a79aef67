// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"strings"
	"testing"
	"time"
)

func TestIdentityNormalizeFillsFromNick(t *testing.T) {
	id := Identity{}
	id.normalize()
	if id.Nick != "hirc" || id.User != "hirc" || id.Real != "hirc" {
		t.Errorf("normalize() = %+v", id)
	}

	id2 := Identity{Nick: "alice"}
	id2.normalize()
	if id2.User != "alice" || id2.Real != "alice" {
		t.Errorf("User/Real should fall back to Nick: %+v", id2)
	}

	id3 := Identity{Nick: "alice", User: "au", Real: "Alice R"}
	id3.normalize()
	if id3.User != "au" || id3.Real != "Alice R" {
		t.Errorf("normalize must not overwrite explicit values: %+v", id3)
	}
}

func TestReconnectPolicyNormalizeDefaults(t *testing.T) {
	r := ReconnectPolicy{}
	r.normalize()
	if r.Interval != 10*time.Second || r.MaxInterval != 5*time.Minute {
		t.Errorf("normalize() = %+v", r)
	}
}

func TestReconnectPolicyDelayFormula(t *testing.T) {
	r := ReconnectPolicy{Interval: 10 * time.Second, MaxInterval: time.Minute}
	if got := r.Delay(0); got != 0 {
		t.Errorf("Delay(0) = %v, want 0", got)
	}
	if got := r.Delay(3); got != 30*time.Second {
		t.Errorf("Delay(3) = %v, want 30s", got)
	}
	if got := r.Delay(100); got != time.Minute {
		t.Errorf("Delay(100) = %v, want capped at 1m", got)
	}
}

func TestLogPolicyNormalizeDefaultDir(t *testing.T) {
	l := LogPolicy{}
	l.normalize()
	if l.Dir == "~/.hirc/logs" || l.Dir == "" {
		t.Errorf("~ should have been expanded: %q", l.Dir)
	}
	if strings.Contains(l.Dir, "~") {
		t.Errorf("Dir should not contain a literal ~ after normalize: %q", l.Dir)
	}
}

func TestLogPolicyNormalizeExplicitDirUntouched(t *testing.T) {
	l := LogPolicy{Dir: "/var/log/hirc"}
	l.normalize()
	if l.Dir != "/var/log/hirc" {
		t.Errorf("explicit non-~ Dir should be left alone: %q", l.Dir)
	}
}

func TestNickColourPolicyNormalizeDefaults(t *testing.T) {
	n := NickColourPolicy{}
	n.normalize()
	if n.RangeLow != 2 || n.RangeHi != 98 {
		t.Errorf("range = [%d,%d], want [2,98]", n.RangeLow, n.RangeHi)
	}
	if n.Self != 1 {
		t.Errorf("Self = %d, want 1", n.Self)
	}
}

func TestNickColourPolicyNormalizeRejectsOutOfRangeSelf(t *testing.T) {
	n := NickColourPolicy{Self: 150, RangeLow: 5, RangeHi: 20}
	n.normalize()
	if n.Self != 1 {
		t.Errorf("out-of-range Self should reset to 1, got %d", n.Self)
	}
	if n.RangeLow != 5 || n.RangeHi != 20 {
		t.Errorf("a valid explicit range must be preserved: [%d,%d]", n.RangeLow, n.RangeHi)
	}
}

func TestDividerPolicyNormalizeDefaults(t *testing.T) {
	d := DividerPolicy{}
	d.normalize()
	if d.String != "┆" || d.Margin != 10 {
		t.Errorf("normalize() = %+v", d)
	}
}

func TestDefaultsNormalizeChainsQuitMessage(t *testing.T) {
	d := Defaults{QuitMessage: "bye"}
	d.normalize()
	if d.PartMessage != "bye" || d.KillMessage != "bye" {
		t.Errorf("Part/Kill should fall back to QuitMessage: %+v", d)
	}
	if d.ChanTypes != DefaultChanTypes || d.Prefixes != DefaultPrefixes {
		t.Errorf("ChanTypes/Prefixes should fall back to package defaults: %+v", d)
	}
	if d.Modes != 4 {
		t.Errorf("Modes = %d, want 4", d.Modes)
	}
}

func TestDefaultsNormalizePreservesExplicitPartMessage(t *testing.T) {
	d := Defaults{QuitMessage: "bye", PartMessage: "see ya"}
	d.normalize()
	if d.PartMessage != "see ya" {
		t.Errorf("explicit PartMessage must not be overwritten: %q", d.PartMessage)
	}
}

func TestNewConfigIsFullyNormalized(t *testing.T) {
	c := NewConfig()
	if c.PingTime != 3*time.Minute {
		t.Errorf("PingTime = %v, want 3m", c.PingTime)
	}
	if len(c.Formats) != len(DefaultFormats()) {
		t.Errorf("Formats = %d entries, want %d", len(c.Formats), len(DefaultFormats()))
	}
	if c.Defaults.ChanTypes == "" || c.Reconnect.Interval == 0 || c.Log.Dir == "" {
		t.Errorf("NewConfig left a sub-policy unnormalized: %+v", c)
	}
}

func TestConfigNormalizePreservesCustomFormatsAndFillsMissing(t *testing.T) {
	c := &Config{Formats: map[string]string{"PRIVMSG": "custom"}}
	c.normalize()
	if c.Formats["PRIVMSG"] != "custom" {
		t.Error("an explicit format override must survive normalize")
	}
	if c.Formats["NOTICE"] != DefaultFormats()["NOTICE"] {
		t.Error("missing format keys should be filled from DefaultFormats")
	}
}
