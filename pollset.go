// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollBudgetMillis is the poll(2) timeout used by the main loop
// (spec §4.8: "poll(all server rfds, 25ms)").
const pollBudgetMillis = 25

// pollset is the single multiplexing point for every server connection
// (spec §5 "Suspension points. Only poll"). It wraps unix.Poll rather
// than runtime-level channels or goroutines, per spec §9's explicit
// concurrency rewrite away from girc's per-connection goroutines.
type pollset struct {
	fds  []unix.PollFd
	tags []string // server name per fds[i], parallel slice
}

func newPollset() *pollset {
	return &pollset{}
}

// Reset rebuilds the descriptor list from scratch; called once per
// Tick before polling, since servers can connect/disconnect between
// ticks.
func (p *pollset) Reset() {
	p.fds = p.fds[:0]
	p.tags = p.tags[:0]
}

// Add registers fd for readability notifications, tagged with a server
// name so results can be routed back after Poll returns.
func (p *pollset) Add(tag string, fd int) {
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	p.tags = append(p.tags, tag)
}

// Poll blocks for at most the 25ms budget and returns the tags whose
// descriptor is readable.
func (p *pollset) Poll() ([]string, error) {
	if len(p.fds) == 0 {
		time.Sleep(pollBudgetMillis * time.Millisecond)
		return nil, nil
	}

	n, err := unix.Poll(p.fds, pollBudgetMillis)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, newCoreError(KindIO, "pollset.poll", err)
	}
	if n == 0 {
		return nil, nil
	}

	var ready []string
	for i, fd := range p.fds {
		if fd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready = append(ready, p.tags[i])
		}
	}
	return ready, nil
}
