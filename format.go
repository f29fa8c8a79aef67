// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Style/colour control bytes (spec §4.7).
const (
	styleBold      = 0x02
	styleItalic    = 0x09
	styleReset     = 0x0F
	styleReverse   = 0x12
	styleUnderline = 0x15
	colourCode     = 0x03
)

// maxExpandDepth bounds recursive ${}/%{} expansion; the spec calls for
// suppressing recursion inside time:/nick: evaluation specifically to
// prevent cycles, which a hard depth cap achieves without needing to
// track "are we inside a nick: call" as separate state.
const maxExpandDepth = 8

// renderCtx is everything a single format expansion needs to resolve
// ${name} references and %{...} directives (spec §4.7).
type renderCtx struct {
	cfg *Config

	msg      *Message // nil for synthetic (non-protocol) entries
	nick     string
	ident    string
	host     string
	priv     byte
	channel  string
	server   string
	selfNick string
	ts       time.Time

	depth int
}

// FormatEngine renders History entries through named templates
// (Config.Formats) into display strings (spec §4.7).
type FormatEngine struct {
	cfg *Config
}

func NewFormatEngine(cfg *Config) *FormatEngine {
	return &FormatEngine{cfg: cfg}
}

// formatNameFor picks the format.* template name for a History entry,
// mirroring original_source/src/format.c's format_get special cases
// for MODE and CTCP-wrapped PRIVMSG/NOTICE.
func formatNameFor(h *History, msg *Message, selfNick string) string {
	switch {
	case msg == nil:
		if h.Activity == ActivityError {
			return "ERROR"
		}
		return "STATUS"
	case msg.Command == cmdJOIN:
		return "JOIN"
	case msg.Command == cmdPART:
		return "PART"
	case msg.Command == cmdQUIT:
		return "QUIT"
	case msg.Command == cmdNICK:
		return "NICK"
	case msg.Command == cmdTOPIC:
		return "TOPIC"
	case msg.Command == cmdMODE:
		if len(msg.Params) > 0 && !isChannelName(msg.Params[0]) {
			if msg.Params[0] == selfNick {
				return "MODE-NICK-SELF"
			}
			return "MODE-NICK"
		}
		return "MODE-CHANNEL"
	case msg.Command == cmdPRIVMSG:
		if _, ok := actionText(msg); ok {
			return "PRIVMSG-ACTION"
		}
		if c := decodeCTCP(msg); c != nil {
			return "PRIVMSG-CTCP"
		}
		return "PRIVMSG"
	case msg.Command == cmdNOTICE:
		if c := decodeCTCP(msg); c != nil {
			return "NOTICE-CTCP"
		}
		return "NOTICE"
	default:
		return "STATUS"
	}
}

func isChannelName(s string) bool {
	return len(s) > 0 && strings.ContainsRune(DefaultChanTypes, rune(s[0]))
}

// Render expands the template named formatName against h and msg,
// folding to width columns if width > 0 (spec §4.7).
func (fe *FormatEngine) Render(formatName string, h *History, msg *Message, server, channel, selfNick string, width int) string {
	tmpl, ok := fe.cfg.Formats[formatName]
	if !ok {
		tmpl = fe.cfg.Formats["STATUS"]
	}

	ctx := &renderCtx{
		cfg:      fe.cfg,
		msg:      msg,
		channel:  channel,
		server:   server,
		selfNick: selfNick,
		ts:       h.Timestamp,
	}
	if msg != nil && msg.Prefix != nil {
		ctx.nick, ctx.ident, ctx.host = msg.Prefix.Name, msg.Prefix.Ident, msg.Prefix.Host
	} else if h.From != nil {
		ctx.nick, ctx.ident, ctx.host, ctx.priv = h.From.Nick, h.From.Ident, h.From.Host, h.From.Priv
	}
	if ctx.nick == "" {
		ctx.nick = server
	}

	out, _ := expand(tmpl, ctx)
	if width > 0 {
		out = foldLine(out, width, fe.cfg.Divider)
	} else {
		out = applyDivider(out, fe.cfg.Divider, 0)
	}
	return out
}

// dividerMark is a private-use sentinel standing in for %{=} during
// expansion; resolved to real divider placement once the whole string
// is known, since divider placement depends on visible-column widths
// computed over the fully expanded string.
const dividerMark = ''

// expand performs one recursive pass of template expansion.
func expand(s string, ctx *renderCtx) (string, error) {
	if ctx.depth > maxExpandDepth {
		return "", fmt.Errorf("format: max expansion depth exceeded")
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			switch s[i+1] {
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
		case s[i] == '$' && i+1 < len(s) && s[i+1] == '{':
			end := matchBrace(s, i+1)
			if end < 0 {
				b.WriteByte(s[i])
				i++
				continue
			}
			val := expandVar(s[i+2:end], ctx)
			b.WriteString(val)
			i = end + 1
		case s[i] == '%' && i+1 < len(s) && s[i+1] == '{':
			end := matchBrace(s, i+1)
			if end < 0 {
				b.WriteByte(s[i])
				i++
				continue
			}
			val, err := expandDirective(s[i+2:end], ctx)
			if err != nil {
				return "", err
			}
			b.WriteString(val)
			i = end + 1
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String(), nil
}

// matchBrace returns the index of the '}' matching the '{' at s[open],
// accounting for nested braces, or -1 if unbalanced.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits a directive body on top-level commas, respecting
// brace nesting so that e.g. "pad:10,${nick:${x}}" keeps its nested
// comma intact.
func splitArgs(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// expandVar resolves a ${name} body: a named variable or a positional
// N / N- reference.
func expandVar(name string, ctx *renderCtx) string {
	if isAllDigits(name) {
		n, _ := strconv.Atoi(name)
		return paramOrAction(ctx, n, false)
	}
	if strings.HasSuffix(name, "-") && isAllDigits(name[:len(name)-1]) {
		n, _ := strconv.Atoi(name[:len(name)-1])
		return paramOrAction(ctx, n, true)
	}

	switch name {
	case "raw":
		if ctx.msg != nil {
			return ctx.msg.String()
		}
		return ""
	case "cmd":
		if ctx.msg != nil {
			return ctx.msg.Command
		}
		return ""
	case "nick":
		return ctx.nick
	case "ident":
		return ctx.ident
	case "host":
		return ctx.host
	case "priv":
		if ctx.priv == 0 {
			return ""
		}
		return string(ctx.priv)
	case "channel":
		return ctx.channel
	case "topic":
		if ctx.msg != nil {
			return ctx.msg.Last()
		}
		return ""
	case "server":
		return ctx.server
	case "time":
		return strconv.FormatInt(ctx.ts.Unix(), 10)
	default:
		return ""
	}
}

// paramOrAction resolves ${N}/${N-}, unwrapping a CTCP ACTION payload
// in the referenced parameter. N is 1-based over the command plus its
// parameters (N=1 is the command itself, matching the original's
// hist->params numbering before format_'s cmd-consuming params++;
// spec.md scenario F: "${3-}" on a PRIVMSG names the trailing text).
func paramOrAction(ctx *renderCtx, n int, from bool) string {
	if ctx.msg == nil {
		return ""
	}
	all := append([]string{ctx.msg.Command}, ctx.msg.AllParams()...)
	if action, ok := actionText(ctx.msg); ok {
		all = append([]string{ctx.msg.Command}, ctx.msg.AllParams()[:len(ctx.msg.AllParams())-1]...)
		all = append(all, action)
	}
	if n < 1 || n > len(all) {
		return ""
	}
	if from {
		return strings.Join(all[n-1:], " ")
	}
	return all[n-1]
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// expandDirective dispatches a %{...} directive body.
func expandDirective(body string, ctx *renderCtx) (string, error) {
	switch {
	case body == "b":
		return string(byte(styleBold)), nil
	case body == "i":
		return string(byte(styleItalic)), nil
	case body == "o":
		return string(byte(styleReset)), nil
	case body == "r":
		return string(byte(styleReverse)), nil
	case body == "u":
		return string(byte(styleUnderline)), nil
	case body == "=":
		return string(dividerMark), nil
	case strings.HasPrefix(body, "c:"):
		return expandColour(body[2:]), nil
	case strings.HasPrefix(body, "pad:"):
		return expandPad(body[4:], ctx)
	case strings.HasPrefix(body, "time:"):
		return expandTime(body[5:], ctx)
	case strings.HasPrefix(body, "rdate:"):
		return expandRdate(body[6:], ctx)
	case strings.HasPrefix(body, "split:"):
		return expandSplit(body[6:], ctx)
	case strings.HasPrefix(body, "nick:"):
		return expandNickColour(body[5:], ctx)
	default:
		return "", nil
	}
}

func expandColour(args string) string {
	parts := splitArgs(args)
	fg, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	bg := 99
	if len(parts) > 1 {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			bg = v
		}
	}
	return fmt.Sprintf("%c%02d,%02d", colourCode, fg, bg)
}

func expandPad(args string, ctx *renderCtx) (string, error) {
	parts := splitArgs(args)
	if len(parts) < 2 {
		return "", nil
	}
	n, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	body, err := expand(strings.Join(parts[1:], ","), nextDepth(ctx))
	if err != nil {
		return "", err
	}
	w := visibleWidth(body)
	if w >= n {
		return body, nil
	}
	return body + strings.Repeat(" ", n-w), nil
}

func expandTime(args string, ctx *renderCtx) (string, error) {
	parts := splitArgs(args)
	if len(parts) < 2 {
		return "", nil
	}
	format := parts[0]
	exprStr, err := expand(strings.Join(parts[1:], ","), nextDepth(ctx))
	if err != nil {
		return "", err
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(exprStr), 10, 64)
	if err != nil {
		ts = ctx.ts.Unix()
	}
	return time.Unix(ts, 0).Format(strftimeToGo(format)), nil
}

// strftimeToGo translates the small set of strftime directives the
// spec's %{time:FMT,EXPR} needs into Go's reference-time layout.
func strftimeToGo(format string) string {
	repl := strings.NewReplacer(
		"%Y", "2006", "%y", "06",
		"%m", "01", "%d", "02",
		"%H", "15", "%M", "04", "%S", "05",
		"%a", "Mon", "%A", "Monday",
		"%b", "Jan", "%B", "January",
		"%p", "PM", "%%", "%",
	)
	return repl.Replace(format)
}

func expandRdate(args string, ctx *renderCtx) (string, error) {
	exprStr, err := expand(args, nextDepth(ctx))
	if err != nil {
		return "", err
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(exprStr), 10, 64)
	if err != nil {
		return "", nil
	}
	return rdate(secs), nil
}

// rdate renders a duration in seconds as "yr, mo, wk, d, h, m, s",
// showing at most the two most significant non-zero units.
func rdate(secs int64) string {
	if secs < 0 {
		secs = -secs
	}
	units := []struct {
		n    int64
		abbr string
	}{
		{365 * 24 * 3600, "yr"},
		{30 * 24 * 3600, "mo"},
		{7 * 24 * 3600, "wk"},
		{24 * 3600, "d"},
		{3600, "h"},
		{60, "m"},
		{1, "s"},
	}
	var out []string
	for _, u := range units {
		if secs >= u.n {
			v := secs / u.n
			secs -= v * u.n
			out = append(out, fmt.Sprintf("%d%s", v, u.abbr))
			if len(out) == 2 {
				break
			}
		}
	}
	if len(out) == 0 {
		return "0s"
	}
	return strings.Join(out, ", ")
}

func expandSplit(args string, ctx *renderCtx) (string, error) {
	parts := splitArgs(args)
	if len(parts) < 3 {
		return "", nil
	}
	n, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	sep, err := expand(parts[1], nextDepth(ctx))
	if err != nil {
		return "", err
	}
	body, err := expand(strings.Join(parts[2:], ","), nextDepth(ctx))
	if err != nil {
		return "", err
	}
	pieces := strings.Split(body, sep)
	if n < 1 || n > len(pieces) {
		return "", nil
	}
	return pieces[n-1], nil
}

// expandNickColour implements the deterministic colour derivation
// described in spec §4.7, ignoring trailing '_' and digits and routing
// the self nick to the configured self colour.
func expandNickColour(args string, ctx *renderCtx) (string, error) {
	name, err := expand(args, nextDepth(ctx))
	if err != nil {
		return "", err
	}
	if ctx.selfNick != "" && name == ctx.selfNick {
		return fmt.Sprintf("%c%02d", colourCode, ctx.cfg.NickColour.Self), nil
	}
	return fmt.Sprintf("%c%02d", colourCode, nickColour(name, ctx.cfg.NickColour)), nil
}

// nickColour computes the colour index for a nick name: strip trailing
// '_' and digits, then sum char[i]*(i+1) XOR char[i], modulo the
// configured range width, plus low-1, giving a value in [low-1, high-2].
func nickColour(name string, p NickColourPolicy) int {
	n := strings.TrimRight(name, "_0123456789")
	if n == "" {
		n = name
	}
	sum := 0
	for i := 0; i < len(n); i++ {
		c := int(n[i])
		sum += (c * (i + 1)) ^ c
	}
	width := p.RangeHi - p.RangeLow
	if width <= 0 {
		width = 1
	}
	return sum%width + p.RangeLow - 1
}

func nextDepth(ctx *renderCtx) *renderCtx {
	n := *ctx
	n.depth = ctx.depth + 1
	return &n
}

var dividerMarkBytes = []byte(string(dividerMark))

// visibleWidth counts display columns, skipping style/colour escapes
// and UTF-8 continuation bytes (spec §4.7 folding rule).
func visibleWidth(s string) int {
	w := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case styleBold, styleItalic, styleReset, styleReverse, styleUnderline:
			continue
		case colourCode:
			i++
			for i < len(s) && (isDigit(s[i]) || s[i] == ',') {
				i++
			}
			i--
			continue
		}
		if strings.HasPrefix(s[i:], string(dividerMarkBytes)) {
			i += len(dividerMarkBytes) - 1
			continue
		}
		if s[i]&0xC0 == 0x80 {
			continue // UTF-8 continuation byte
		}
		w++
	}
	return w
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// applyDivider resolves the first dividerMark sentinel (if any) into
// LHS padding + divider string + RHS, or strips it silently when the
// divider is disabled.
func applyDivider(s string, d DividerPolicy, width int) string {
	idx := strings.IndexRune(s, dividerMark)
	if idx < 0 {
		return s
	}
	lhs := strings.ReplaceAll(s[:idx], string(dividerMark), "")
	rhs := strings.ReplaceAll(s[idx+utf8RuneLen(dividerMark):], string(dividerMark), "")
	if !d.Enabled {
		return lhs + rhs
	}
	pad := d.Margin - visibleWidth(lhs)
	if pad < 0 {
		pad = 0
	}
	return lhs + strings.Repeat(" ", pad) + d.String + rhs
}

func utf8RuneLen(r rune) int {
	return len(string(r))
}

// foldLine inserts a newline + divider-prefixed continuation every
// width visible columns, ignoring escapes and UTF-8 continuation bytes
// (spec §4.7).
func foldLine(s string, width int, d DividerPolicy) string {
	s = applyDivider(s, d, width)
	if width <= 0 {
		return s
	}
	var b strings.Builder
	col := 0
	cont := strings.Repeat(" ", max(0, d.Margin)) + d.String
	i := 0
	for i < len(s) {
		switch s[i] {
		case styleBold, styleItalic, styleReset, styleReverse, styleUnderline:
			b.WriteByte(s[i])
			i++
			continue
		case colourCode:
			b.WriteByte(s[i])
			i++
			for i < len(s) && (isDigit(s[i]) || s[i] == ',') {
				b.WriteByte(s[i])
				i++
			}
			continue
		case '\n':
			b.WriteByte('\n')
			if d.Enabled {
				b.WriteString(cont)
			}
			col = 0
			i++
			continue
		}
		if s[i]&0xC0 == 0x80 {
			b.WriteByte(s[i])
			i++
			continue
		}
		if col >= width {
			b.WriteByte('\n')
			if d.Enabled {
				b.WriteString(cont)
			}
			col = 0
		}
		b.WriteByte(s[i])
		col++
		i++
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
