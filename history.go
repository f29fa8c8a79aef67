// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import "time"

// HistMax is the ring capacity for every HistInfo (spec §9 resolves the
// original's two conflicting MAX_HISTORY defines at 8192).
const HistMax = 8192

// Activity is the ordinal "how interesting" level of unread entries in
// a buffer (spec §3 HistInfo, glossary "Activity level").
type Activity int

const (
	ActivityNone Activity = iota
	ActivityStatus
	ActivityError
	ActivityMessage
	ActivityHilight
)

func (a Activity) String() string {
	switch a {
	case ActivityNone:
		return "none"
	case ActivityStatus:
		return "status"
	case ActivityError:
		return "error"
	case ActivityMessage:
		return "message"
	case ActivityHilight:
		return "hilight"
	default:
		return "unknown"
	}
}

// HistOpt is a bitset of per-entry rendering/persistence flags
// (spec §3 History.options).
type HistOpt uint16

const (
	OptShow HistOpt = 1 << iota
	OptLog
	OptMain
	OptSelf
	OptTmp
	OptGrep
	OptErr
	OptSErr
	OptRLog
	OptIgn
	OptUI
	OptNIgn
	OptAll
)

// Handle identifies the owner of a History entry without an intrusive
// back-pointer (spec §9: "refer to parents... by a handle rather than
// a raw back-pointer"). Channel is empty for a server-level buffer.
type Handle struct {
	Server  string
	Channel string
}

// History is a single rendered-or-renderable log entry.
type History struct {
	Timestamp time.Time
	Activity  Activity
	Options   HistOpt
	Raw       string
	Params    []string
	From      *Nick
	Origin    Handle

	cachedFormat      string
	cachedPlainFormat string
	cacheValid        bool

	next, prev *History
}

// invalidateCache drops memoized renders; called whenever a field that
// feeds format.go's substitution changes after construction (notably
// never for History itself, but kept for forward compatibility with
// in-place edits such as topic rewrites reusing an entry).
func (h *History) invalidateCache() {
	h.cacheValid = false
	h.cachedFormat = ""
	h.cachedPlainFormat = ""
}

// HistInfo is a per-buffer bounded ring of History entries plus the
// activity accounting described in spec §3/§4.6. The ring is an
// intrusive doubly linked list, newest entry at head, so that eviction
// of the oldest entry (the tail) is O(1); testable property 3 requires
// next/prev symmetry, which this representation makes structural
// rather than incidental.
type HistInfo struct {
	Activity Activity
	Unread   int
	Ignored  int

	handle Handle
	log    *logStore // nil if logging disabled for this buffer

	head, tail *History
	count      int
}

// Len reports the number of entries currently in the ring.
func (hi *HistInfo) Len() int { return hi.count }

// Add prepends an entry to the ring, evicting the oldest entry if the
// ring is at capacity (spec §4.6). The main-buffer fan-out, self-nick
// stamping, unread/ignored accounting, and log append described in
// §4.6 are performed by Core.appendHistory, which calls Add once state
// has been resolved; Add itself only maintains ring structure.
func (hi *HistInfo) Add(h *History) {
	h.next = hi.head
	h.prev = nil
	if hi.head != nil {
		hi.head.prev = h
	}
	hi.head = h
	if hi.tail == nil {
		hi.tail = h
	}
	hi.count++

	if hi.count > HistMax {
		old := hi.tail
		hi.tail = old.prev
		if hi.tail != nil {
			hi.tail.next = nil
		}
		old.prev = nil
		hi.count--
	}
}

// Entries returns the ring contents newest-first as a slice, bounded by
// limit (0 means unbounded). Used by history_iter (§6).
func (hi *HistInfo) Entries(limit int) []*History {
	out := make([]*History, 0, hi.count)
	for n := hi.head; n != nil; n = n.next {
		out = append(out, n)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// PurgeByOpt removes every entry whose Options intersect mask,
// relinking neighbors (spec §4.6 "Purge").
func (hi *HistInfo) PurgeByOpt(mask HistOpt) {
	for n := hi.head; n != nil; {
		next := n.next
		if n.Options&mask != 0 {
			hi.unlink(n)
		}
		n = next
	}
}

func (hi *HistInfo) unlink(n *History) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		hi.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		hi.tail = n.prev
	}
	n.next, n.prev = nil, nil
	hi.count--
}

// Select resets activity/unread/ignored when a buffer becomes the
// selected one (spec §6 "selection": "side-effect: clears activity").
func (hi *HistInfo) Select() {
	hi.Activity = ActivityNone
	hi.Unread = 0
	hi.Ignored = 0
	hi.PurgeByOpt(OptTmp)
}

// bumpActivity applies the unread/ignored/activity accounting rule
// from spec §4.6 for an entry that is not part of the currently
// selected buffer.
func (hi *HistInfo) bumpActivity(h *History, selected bool) {
	if selected {
		return
	}
	if h.Options&OptShow == 0 {
		return
	}
	if h.Options&OptIgn != 0 {
		hi.Ignored++
	} else {
		hi.Unread++
	}
	if h.Activity > hi.Activity {
		hi.Activity = h.Activity
	}
}
