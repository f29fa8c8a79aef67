// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// logStore appends and replays the per-buffer persistent log described
// in spec §4.6. One logStore is opened per (server[, channel]) pair the
// first time a loggable entry is appended.
type logStore struct {
	path string
	file *os.File
}

// logFilePath builds "<dir>/<server>[,<channel>].log", per spec §4.6.
func logFilePath(dir, server, channel string) string {
	name := server
	if channel != "" {
		name = server + "," + channel
	}
	return filepath.Join(dir, name+".log")
}

// openLogStore creates dir (mode 0700) if missing and opens the log
// file for append, creating it if absent.
func openLogStore(dir, server, channel string) (*logStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, newCoreError(KindIO, "log.open", err)
	}
	path := logFilePath(dir, server, channel)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, newCoreError(KindIO, "log.open", err)
	}
	return &logStore{path: path, file: f}, nil
}

// encodeLogLine renders h as one tab-separated record as laid out in spec §4.6:
// <timestamp>\t<activity>\t<show 0|1>\t<self 0|1>\t<priv char>\t<nick>\t<ident>\t<host>\t<raw>
func encodeLogLine(h *History) string {
	priv := " "
	nick, ident, host := " ", " ", " "
	self := "0"
	if h.From != nil {
		if h.From.Priv != 0 {
			priv = string(h.From.Priv)
		}
		if h.From.Nick != "" {
			nick = h.From.Nick
		}
		if h.From.Ident != "" {
			ident = h.From.Ident
		}
		if h.From.Host != "" {
			host = h.From.Host
		}
		if h.From.Self {
			self = "1"
		}
	}
	show := "0"
	if h.Options&OptShow != 0 {
		show = "1"
	}
	raw := strings.ReplaceAll(h.Raw, "\t", " ")
	raw = strings.ReplaceAll(raw, "\n", " ")
	return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s",
		h.Timestamp.Unix(), h.Activity.String(), show, self, priv, nick, ident, host, raw)
}

// Append writes one log line for h. A nil logStore is a no-op; the
// store itself is opened lazily by Core.appendHistory.
func (ls *logStore) Append(h *History) error {
	if ls == nil || ls.file == nil {
		return nil
	}
	if _, err := ls.file.WriteString(encodeLogLine(h) + "\n"); err != nil {
		return newCoreError(KindIO, "log.append", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (ls *logStore) Close() error {
	if ls == nil || ls.file == nil {
		return nil
	}
	return ls.file.Close()
}

// replayedEntry is a decoded log line, ready to be turned into a
// History entry by Core (which alone knows how to resolve a Nick
// handle and the owning HistInfo).
type replayedEntry struct {
	Timestamp time.Time
	Activity  Activity
	Show      bool
	Self      bool
	Priv      byte
	Nick      string
	Ident     string
	Host      string
	Raw       string
}

func decodeLogLine(line string) (*replayedEntry, bool) {
	f := strings.Split(line, "\t")
	if len(f) < 9 {
		return nil, false
	}

	ts, err := parseLogTimestamp(f[0])
	if err != nil {
		return nil, false
	}

	e := &replayedEntry{
		Timestamp: ts,
		Activity:  parseActivity(f[1]),
		Show:      f[2] == "1",
		Self:      f[3] == "1",
		Raw:       f[8],
	}
	if len(f[4]) == 1 && f[4] != " " {
		e.Priv = f[4][0]
	}
	if f[5] != " " {
		e.Nick = f[5]
	}
	if f[6] != " " {
		e.Ident = f[6]
	}
	if f[7] != " " {
		e.Host = f[7]
	}
	return e, true
}

// parseLogTimestamp accepts the canonical unix-seconds form, falling
// back to free-form date parsing for hand-edited or foreign-format log
// lines -- the same role builtin.go's dateparse use plays in girc for
// server-supplied date strings that aren't strictly unix time.
func parseLogTimestamp(field string) (time.Time, error) {
	if n, err := strconv.ParseInt(field, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	t, err := dateparse.ParseAny(field)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func parseActivity(s string) Activity {
	switch s {
	case "status":
		return ActivityStatus
	case "error":
		return ActivityError
	case "message":
		return ActivityMessage
	case "hilight":
		return ActivityHilight
	default:
		return ActivityNone
	}
}

// replayLog reads up to HistMax lines from the log file for
// (server, channel) and returns them oldest-first, ready for
// chronological replay (spec §4.6 "Replay"). Returns (nil, nil) if no
// log file exists yet.
func replayLog(dir, server, channel string) ([]*replayedEntry, error) {
	path := logFilePath(dir, server, channel)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, newCoreError(KindIO, "log.replay", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, newCoreError(KindIO, "log.replay", err)
	}

	if len(lines) > HistMax {
		lines = lines[len(lines)-HistMax:]
	}

	out := make([]*replayedEntry, 0, len(lines))
	for _, l := range lines {
		if e, ok := decodeLogLine(l); ok {
			out = append(out, e)
		}
	}
	return out, nil
}
