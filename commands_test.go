// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import "testing"

func TestGetIntSupport(t *testing.T) {
	c, s := newTestCoreAndServer(t, "hirc")
	_ = c
	if got := getIntSupport(s, "NICKLEN", 10); got != 10 {
		t.Errorf("getIntSupport with no ISUPPORT entry = %d, want default 10", got)
	}
	s.Supports.Set("NICKLEN=30")
	if got := getIntSupport(s, "NICKLEN", 10); got != 30 {
		t.Errorf("getIntSupport = %d, want 30", got)
	}
	s.Supports.Set("NICKLEN=notanumber")
	if got := getIntSupport(s, "NICKLEN", 10); got != 10 {
		t.Errorf("getIntSupport with unparseable value = %d, want default fallback 10", got)
	}
}

func TestJoinListJoinsWithCommas(t *testing.T) {
	if got := joinList([]string{"#a"}); got != "#a" {
		t.Errorf("joinList single = %q", got)
	}
	if got := joinList([]string{"#a", "#b", "#c"}); got != "#a,#b,#c" {
		t.Errorf("joinList multi = %q", got)
	}
}

func TestSplitPRIVMSGShortMessageUnchanged(t *testing.T) {
	msg := &Message{Command: cmdPRIVMSG, Params: []string{"#chan"}, Trailing: "hello", HasTrailing: true}
	out := splitPRIVMSG(msg, 400)
	if len(out) != 1 || out[0].Trailing != "hello" {
		t.Errorf("splitPRIVMSG on a short message = %+v", out)
	}
}

func TestSplitPRIVMSGBreaksOnWhitespace(t *testing.T) {
	msg := &Message{Command: cmdPRIVMSG, Params: []string{"#chan"}, Trailing: "one two three four five", HasTrailing: true}
	// base = "PRIVMSG #chan", len ~13; maxLen small enough to force a split
	// but large enough to fit a handful of words per chunk.
	out := splitPRIVMSG(msg, 13+len(" :")+12)

	if len(out) < 2 {
		t.Fatalf("expected the long trailing text to split into multiple messages, got %d", len(out))
	}
	var rebuilt string
	for _, m := range out {
		if m.Command != cmdPRIVMSG || m.Params[0] != "#chan" {
			t.Errorf("chunk lost command/target: %+v", m)
		}
		if !m.HasTrailing {
			t.Errorf("chunk must carry trailing text: %+v", m)
		}
		rebuilt += m.Trailing
	}
	if rebuilt != msg.Trailing {
		t.Errorf("rebuilt text = %q, want %q", rebuilt, msg.Trailing)
	}
}

func TestSplitPRIVMSGDegenerateMaxLenReturnsOriginal(t *testing.T) {
	msg := &Message{Command: cmdPRIVMSG, Params: []string{"#chan"}, Trailing: "hi", HasTrailing: true}
	out := splitPRIVMSG(msg, 1)
	if len(out) != 1 || out[0] != msg {
		t.Errorf("splitPRIVMSG with no room for text should return the message unsplit: %+v", out)
	}
}

func TestSplitForServerLeavesShortMessageAlone(t *testing.T) {
	_, s := newTestCoreAndServer(t, "hirc")
	msg := &Message{Command: cmdPRIVMSG, Params: []string{"#chan"}, Trailing: "hi", HasTrailing: true}
	out := splitForServer(s, msg)
	if len(out) != 1 || out[0] != msg {
		t.Errorf("splitForServer on a short message = %+v", out)
	}
}

func TestSplitForServerSplitsLongPRIVMSG(t *testing.T) {
	_, s := newTestCoreAndServer(t, "hirc")
	text := make([]byte, 600)
	for i := range text {
		text[i] = 'a'
		if i%10 == 9 {
			text[i] = ' '
		}
	}
	msg := &Message{Command: cmdPRIVMSG, Params: []string{"#chan"}, Trailing: string(text), HasTrailing: true}
	out := splitForServer(s, msg)
	if len(out) < 2 {
		t.Fatalf("a 600-byte PRIVMSG body should split, got %d message(s)", len(out))
	}
	for _, m := range out {
		if len(m.String()) > maxIRCLen {
			t.Errorf("chunk exceeds maxIRCLen: %d bytes", len(m.String()))
		}
	}
}

func TestSplitForServerDoesNotSplitNonPRIVMSG(t *testing.T) {
	_, s := newTestCoreAndServer(t, "hirc")
	text := make([]byte, 600)
	for i := range text {
		text[i] = 'x'
	}
	msg := &Message{Command: cmdTOPIC, Params: []string{"#chan"}, Trailing: string(text), HasTrailing: true}
	out := splitForServer(s, msg)
	if len(out) != 1 {
		t.Errorf("non-PRIVMSG/NOTICE commands are never split, got %d chunks", len(out))
	}
}

func TestJoinUnknownServerErrors(t *testing.T) {
	c := NewCore(nil)
	if err := c.Join("nope", []string{"#chan"}, nil); err == nil {
		t.Error("Join against an unknown server should error")
	}
}

func TestJoinNoChannelsErrors(t *testing.T) {
	c, s := newTestCoreAndServer(t, "hirc")
	_ = s
	if err := c.Join("libera", nil, nil); err == nil {
		t.Error("Join with no channels should error")
	}
}

func TestJoinDefersWhenNotConnected(t *testing.T) {
	c := NewCore(nil)
	s := c.AddServer("libera", "irc.libera.chat", 6697, Identity{Nick: "hirc"}, TLSConfig{})
	s.Status = Connecting

	if err := c.Join("libera", []string{"#a", "#b"}, nil); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if s.schedule.Len() != 1 {
		t.Fatalf("schedule.Len() = %d, want 1", s.schedule.Len())
	}
	if !s.expect.Pending(ExpectJoin) {
		t.Error("ExpectJoin should be armed even when the JOIN is deferred")
	}
}

func TestPartArmsExpectPartWhenReasonEmpty(t *testing.T) {
	c, s := newTestCoreAndServer(t, "hirc")
	c.Config.Defaults.PartMessage = "leaving"

	// No live transport, so the actual send fails, but expect.Set and the
	// reason substitution happen before the write is attempted.
	_ = c.Part("libera", "#chan", "")
	if !s.expect.Pending(ExpectPart) {
		t.Error("ExpectPart should be armed by Part")
	}
}

func TestModeQueryArmsExpectChannelModeIs(t *testing.T) {
	c, s := newTestCoreAndServer(t, "hirc")
	_ = c.Mode("libera", "#chan")
	if !s.expect.Pending(ExpectChannelModeIs) {
		t.Error("Mode with no args should arm ExpectChannelModeIs")
	}
}

func TestModeSetDoesNotArmExpectChannelModeIs(t *testing.T) {
	c, s := newTestCoreAndServer(t, "hirc")
	_ = c.Mode("libera", "#chan", "+n")
	if s.expect.Pending(ExpectChannelModeIs) {
		t.Error("Mode with args is a set, not a query; must not arm ExpectChannelModeIs")
	}
}

func TestTopicQueryArmsExpectTopic(t *testing.T) {
	c, s := newTestCoreAndServer(t, "hirc")
	_ = c.Topic("libera", "#chan", "")
	if !s.expect.Pending(ExpectTopic) {
		t.Error("Topic with an empty string should be a query and arm ExpectTopic")
	}
}

func TestPingArmsExpectPong(t *testing.T) {
	c, s := newTestCoreAndServer(t, "hirc")
	_ = c.Ping("libera", "token123")
	if !s.expect.Pending(ExpectPong) {
		t.Error("Ping should arm ExpectPong")
	}
}

func TestCommandsReturnErrNotConnectedWithoutTransport(t *testing.T) {
	c, _ := newTestCoreAndServer(t, "hirc")
	if err := c.Nick("libera", "newnick"); err != ErrNotConnected {
		t.Errorf("Nick without a transport = %v, want ErrNotConnected", err)
	}
	if err := c.Whois("libera", "alice"); err != ErrNotConnected {
		t.Errorf("Whois without a transport = %v, want ErrNotConnected", err)
	}
}

func TestCommandsUnknownServerErrors(t *testing.T) {
	c := NewCore(nil)
	cases := []func() error{
		func() error { return c.Part("nope", "#c", "") },
		func() error { return c.Message("nope", "#c", "hi") },
		func() error { return c.Mode("nope", "#c") },
		func() error { return c.Nick("nope", "x") },
		func() error { return c.Topic("nope", "#c", "") },
		func() error { return c.Kick("nope", "#c", "bob", "") },
		func() error { return c.Invite("nope", "bob", "#c") },
		func() error { return c.Away("nope", "") },
		func() error { return c.Who("nope", "*") },
		func() error { return c.Whois("nope", "bob") },
		func() error { return c.Whowas("nope", "bob") },
		func() error { return c.Oper("nope", "n", "p") },
		func() error { return c.List("nope", "") },
		func() error { return c.Ping("nope", "t") },
		func() error { return c.Pong("nope", "t") },
	}
	for i, fn := range cases {
		if err := fn(); err == nil {
			t.Errorf("case %d: expected an error for an unknown server", i)
		}
	}
}
