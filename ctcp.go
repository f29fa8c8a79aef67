// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import "strings"

// ctcpDelim is the framing byte for CTCP-formatted PRIVMSG/NOTICE
// payloads: http://www.irchelp.org/protocol/ctcpspec.html.
const ctcpDelim byte = 0x01

// CTCP is a decoded client-to-client-protocol request or reply.
type CTCP struct {
	Source  *Source
	Command string // e.g. ACTION, VERSION, PING
	Text    string
	Reply   bool // true if carried in a NOTICE (a CTCP reply)
}

// decodeCTCP decodes the trailing parameter of a PRIVMSG/NOTICE as CTCP.
// Returns nil if msg is not CTCP-framed, mirroring girc's decodeCTCP.
func decodeCTCP(msg *Message) *CTCP {
	if msg.Command != cmdPRIVMSG && msg.Command != cmdNOTICE {
		return nil
	}
	if len(msg.Params) != 1 || !msg.HasTrailing || len(msg.Trailing) < 2 {
		return nil
	}
	if msg.Trailing[0] != ctcpDelim || msg.Trailing[len(msg.Trailing)-1] != ctcpDelim {
		return nil
	}

	text := msg.Trailing[1 : len(msg.Trailing)-1]
	sp := strings.IndexByte(text, ' ')

	c := &CTCP{Source: msg.Prefix, Reply: msg.Command == cmdNOTICE}
	if sp < 0 {
		c.Command = text
		return c
	}
	c.Command = text[:sp]
	c.Text = text[sp+1:]
	return c
}

// encodeCTCP wraps a command/text pair in CTCP delimiters, for use as a
// PRIVMSG/NOTICE trailing parameter.
func encodeCTCP(cmd, text string) string {
	var b strings.Builder
	b.WriteByte(ctcpDelim)
	b.WriteString(cmd)
	if text != "" {
		b.WriteByte(' ')
		b.WriteString(text)
	}
	b.WriteByte(ctcpDelim)
	return b.String()
}

// actionText returns (text, true) if msg is a PRIVMSG-wrapped CTCP
// ACTION (i.e. "/me"), used by the format engine to pick the
// PRIVMSG-ACTION format name and strip framing before substitution.
func actionText(msg *Message) (string, bool) {
	c := decodeCTCP(msg)
	if c == nil || c.Reply || c.Command != "ACTION" {
		return "", false
	}
	return c.Text, true
}
