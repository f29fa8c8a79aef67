// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import "strings"

// CMode is a single applied channel mode change, e.g. "+n" or "-k key".
// Grounded on girc's modes.go CMode/CModes, generalized from girc's
// four-letter-category bookkeeping to the spec's channel Mode string.
type CMode struct {
	Add  bool
	Name byte
	Arg  string
}

func (c CMode) String() string {
	s := "-"
	if c.Add {
		s = "+"
	}
	s += string(c.Name)
	if c.Arg != "" {
		s += " " + c.Arg
	}
	return s
}

// CModes tracks a channel's CHANMODES categories (A,B,C,D per
// RFC2812/ISUPPORT) so that mode argument consumption ("modelset" in
// the original) can decide how many parameters a given letter takes.
// When the server never supplied CHANMODES, defModes (def.modes,
// spec §9) is the fallback argument count for every settable letter.
type CModes struct {
	listArgs string // A: always takes an arg, returns a list when absent
	setArgs  string // B: always takes an arg
	onArgs   string // C: takes an arg only when set (+)
	noArgs   string // D: never takes an arg
	prefixes string // mode letters usable via PREFIX, e.g. "ov"
	defModes int    // fallback arg count when CHANMODES is unknown

	applied []CMode
}

// newCModes builds a CModes from a raw "A,B,C,D" CHANMODES value and
// the mode-letter half of PREFIX, e.g. "ov" from "(ov)@+".
func newCModes(chanmodes, prefixModes string, defModes int) CModes {
	parts := strings.SplitN(chanmodes, ",", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return CModes{
		listArgs: parts[0],
		setArgs:  parts[1],
		onArgs:   parts[2],
		noArgs:   parts[3],
		prefixes: prefixModes,
		defModes: defModes,
	}
}

// hasArg reports whether letter consumes a parameter when set/unset as
// indicated by add.
func (c *CModes) hasArg(add bool, letter byte) bool {
	switch {
	case strings.IndexByte(c.listArgs, letter) >= 0:
		return true
	case strings.IndexByte(c.setArgs, letter) >= 0:
		return true
	case strings.IndexByte(c.onArgs, letter) >= 0:
		return add
	case strings.IndexByte(c.prefixes, letter) >= 0:
		return true
	case c.listArgs == "" && c.setArgs == "" && c.onArgs == "" && c.noArgs == "":
		// CHANMODES unknown: def.modes governs how many of the
		// remaining parameters this mode batch may still claim,
		// enforced by the caller (spec §9 "modelset... fall back to
		// def.modes").
		return add
	default:
		return false
	}
}

// Parse tokenizes a MODE flags string plus its trailing arguments into
// individual CMode changes, consuming arguments left to right.
func (c *CModes) Parse(flags string, args []string) []CMode {
	var out []CMode
	add := true
	ai := 0
	claimed := 0

	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case '+':
			add = true
			continue
		case '-':
			add = false
			continue
		}

		m := CMode{Name: flags[i], Add: add}
		if c.hasArg(add, flags[i]) && ai < len(args) {
			if c.defModes > 0 && c.listArgs == "" && c.setArgs == "" && c.onArgs == "" {
				if claimed >= c.defModes {
					out = append(out, m)
					continue
				}
				claimed++
			}
			m.Arg = args[ai]
			ai++
		}
		out = append(out, m)
	}
	return out
}

// Apply folds a parsed batch of CMode changes into the accumulated
// channel mode string returned by String.
func (c *CModes) Apply(changes []CMode) {
	for _, m := range changes {
		if strings.IndexByte(c.prefixes, m.Name) >= 0 {
			continue // per-nick privilege, not a channel-wide flag
		}
		idx := -1
		for i, existing := range c.applied {
			if existing.Name == m.Name {
				idx = i
				break
			}
		}
		if m.Add {
			if idx >= 0 {
				c.applied[idx] = m
			} else {
				c.applied = append(c.applied, m)
			}
		} else if idx >= 0 {
			c.applied = append(c.applied[:idx], c.applied[idx+1:]...)
		}
	}
}

// String renders the accumulated channel mode as "+ntk key".
func (c *CModes) String() string {
	if len(c.applied) == 0 {
		return ""
	}
	var letters strings.Builder
	var args strings.Builder
	letters.WriteByte('+')
	for _, m := range c.applied {
		letters.WriteByte(m.Name)
		if m.Arg != "" {
			args.WriteByte(' ')
			args.WriteString(m.Arg)
		}
	}
	return letters.String() + args.String()
}

// isValidChannelMode validates a raw CHANMODES value: comma-separated,
// letters only.
func isValidChannelMode(raw string) bool {
	if len(raw) < 1 {
		return false
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != ',' && !(c >= 'A' && c <= 'Z') && !(c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

// isValidUserPrefix validates a raw PREFIX value of the form
// "(modes)symbols" with equal-length halves.
func isValidUserPrefix(raw string) bool {
	if len(raw) < 1 || raw[0] != '(' {
		return false
	}
	close := strings.IndexByte(raw, ')')
	if close < 1 {
		return false
	}
	return close-1 == len(raw)-close-1
}

// parsePrefixes splits a validated PREFIX value into its mode-letter
// half and symbol half, e.g. "(ov)@+" -> ("ov", "@+").
func parsePrefixes(raw string) (modes, symbols string) {
	if !isValidUserPrefix(raw) {
		return "", ""
	}
	i := strings.IndexByte(raw, ')')
	return raw[1:i], raw[i+1:]
}

// stripNickPrefix removes any leading characters of name that appear in
// symbols, returning the bare nick and the first stripped symbol (the
// nick's priv), or 0 if none matched. Used by the RPL_NAMREPLY handler
// (spec §4.3: "strip leading characters that match the supported
// prefix symbols, taking the first as priv").
func stripNickPrefix(name, symbols string) (nick string, priv byte) {
	i := 0
	for i < len(name) && strings.IndexByte(symbols, name[i]) >= 0 {
		if priv == 0 {
			priv = name[i]
		}
		i++
	}
	return name[i:], priv
}
