// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

// Command hirc is a minimal terminal host for the hirc core: it reads
// one line of input at a time and hands "/"-prefixed lines to a small
// command set. It has no selected buffer to send plain text to: any
// other line only prints a hint to use /msg, and nothing is sent. It
// exists to exercise every module end to end
// (spec.md §6's "host collaborator"); the full curses-style UI,
// keybindings, and command parser/aliases/completion are out of scope.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/hhvn-go/hirc"
)

func main() {
	var (
		host = flag.String("host", "", "server host")
		port = flag.Int("port", 6667, "server port")
		nick = flag.String("nick", "hirc", "nickname")
		name = flag.String("server", "", "server name (defaults to host)")
		tlsOn = flag.Bool("tls", false, "use TLS")
	)
	flag.Parse()

	cfg := hirc.NewConfig()
	core := hirc.NewCore(cfg)

	if *host != "" {
		srvName := *name
		if srvName == "" {
			srvName = *host
		}
		id := hirc.Identity{Nick: *nick}
		core.AddServer(srvName, *host, *port, id, hirc.TLSConfig{Enabled: *tlsOn, Verify: true, ServerName: *host})
		if err := core.Connect(srvName); err != nil {
			fmt.Fprintln(os.Stderr, "connect:", err)
		}
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err == nil {
		defer term.Restore(fd, oldState)
	}

	repl := &repl{core: core, fd: fd}
	repl.run()
}

// repl drives the poll loop and a single-threaded, non-blocking
// terminal input reader, per spec.md §4.8's "process at most one
// terminal input event (non-blocking)" step.
type repl struct {
	core *hirc.Core
	fd   int
	line []byte
}

func (r *repl) run() {
	for {
		if err := r.core.Tick(); err != nil {
			fmt.Fprintln(os.Stderr, "tick:", err)
		}

		if r.core.RedrawPending() {
			r.redraw()
		}

		if line, ok := r.pollInput(); ok {
			r.handleLine(line)
		}
	}
}

// pollInput peeks stdin with a zero-timeout poll and, if readable,
// consumes exactly one byte, returning a completed line once Enter is
// seen. This keeps terminal input on the same cooperative loop as the
// socket poll rather than a dedicated reader goroutine.
func (r *repl) pollInput() (string, bool) {
	fds := []unix.PollFd{{Fd: int32(r.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil || n == 0 || fds[0].Revents&unix.POLLIN == 0 {
		return "", false
	}

	buf := make([]byte, 1)
	if _, err := unix.Read(r.fd, buf); err != nil {
		return "", false
	}

	switch buf[0] {
	case '\r', '\n':
		line := string(r.line)
		r.line = r.line[:0]
		fmt.Fprint(os.Stdout, "\r\n")
		return line, true
	case 0x7f, 0x08: // backspace/delete
		if len(r.line) > 0 {
			r.line = r.line[:len(r.line)-1]
			fmt.Fprint(os.Stdout, "\b \b")
		}
	case 0x03: // Ctrl-C
		r.core.Shutdown(r.core.Config.Defaults.QuitMessage)
		term.Restore(r.fd, nil)
		os.Exit(0)
	default:
		r.line = append(r.line, buf[0])
		os.Stdout.Write(buf)
	}
	return "", false
}

func (r *repl) redraw() {
	// A full redraw would repaint the buffer list and nicklist; this
	// minimal host only needs to demonstrate history_iter, so it does
	// nothing here and lets commands print their own output below.
}

func (r *repl) handleLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	if !strings.HasPrefix(line, "/") {
		r.println(fmt.Sprintf("(no selected buffer; use /msg <target> <text>) %s", line))
		return
	}

	fields := strings.SplitN(line[1:], " ", 3)
	cmd := strings.ToLower(fields[0])

	switch cmd {
	case "connect":
		r.cmdConnect(fields)
	case "join":
		if len(fields) < 2 {
			r.println("usage: /join <#channel>[,<#channel>...]")
			return
		}
		channels := strings.Split(fields[1], ",")
		if err := r.core.Join(firstServer(r.core), channels, nil); err != nil {
			r.println(err.Error())
		}
	case "part":
		if len(fields) < 2 {
			return
		}
		parts := strings.SplitN(fields[1], " ", 2)
		server := firstServer(r.core)
		reason := ""
		if len(parts) > 1 {
			reason = parts[1]
		}
		if err := r.core.Part(server, parts[0], reason); err != nil {
			r.println(err.Error())
		}
	case "msg":
		if len(fields) < 3 {
			r.println("usage: /msg <target> <text>")
			return
		}
		if err := r.core.Message(firstServer(r.core), fields[1], fields[2]); err != nil {
			r.println(err.Error())
		}
	case "me":
		if len(fields) < 3 {
			return
		}
		if err := r.core.Action(firstServer(r.core), fields[1], fields[2]); err != nil {
			r.println(err.Error())
		}
	case "nick":
		if len(fields) < 2 {
			return
		}
		if err := r.core.Nick(firstServer(r.core), fields[1]); err != nil {
			r.println(err.Error())
		}
	case "close":
		if len(fields) < 2 {
			r.println("usage: /close <#channel>")
			return
		}
		s := r.core.Server(firstServer(r.core))
		if s == nil || !s.CloseChannel(fields[1]) {
			r.println("no such channel: " + fields[1])
		}
	case "clear":
		if !r.core.ClearBuffer(firstServer(r.core), secondArg(fields)) {
			r.println("nothing to clear")
		}
	case "raw", "quote":
		if len(fields) < 2 {
			return
		}
		if err := r.core.RawSend(firstServer(r.core), fields[1]); err != nil {
			r.println(err.Error())
		}
	case "history":
		for _, l := range r.core.HistoryIter(firstServer(r.core), secondArg(fields), 20) {
			r.println(l)
		}
	case "quit":
		msg := r.core.Config.Defaults.QuitMessage
		if len(fields) > 1 {
			msg = fields[1]
		}
		r.core.Shutdown(msg)
		term.Restore(r.fd, nil)
		os.Exit(0)
	default:
		r.println("unknown command: " + cmd)
	}
}

func secondArg(fields []string) string {
	if len(fields) > 1 {
		return fields[1]
	}
	return ""
}

func firstServer(core *hirc.Core) string {
	servers := core.Servers()
	if len(servers) == 0 {
		return ""
	}
	return servers[0].Name
}

func (r *repl) cmdConnect(fields []string) {
	if len(fields) < 2 {
		r.println("usage: /connect <host:port> <nick>")
		return
	}
	hostPort := fields[1]
	nick := "hirc"
	if len(fields) > 2 {
		nick = fields[2]
	}
	host, portStr, ok := strings.Cut(hostPort, ":")
	port := 6667
	if ok {
		fmt.Sscanf(portStr, "%d", &port)
	}
	r.core.AddServer(host, host, port, hirc.Identity{Nick: nick}, hirc.TLSConfig{})
	if err := r.core.Connect(host); err != nil {
		r.println(err.Error())
	}
}

func (r *repl) println(s string) {
	fmt.Fprint(os.Stdout, s, "\r\n")
}
