// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import "testing"

func TestFrameBufferSplitsLines(t *testing.T) {
	f := newFrameBuffer()
	n := copy(f.Free(), []byte("PING :one\r\nPING :two\r\nPING :thr"))
	f.Advance(n)

	lines := f.Lines()
	if len(lines) != 2 {
		t.Fatalf("Lines() = %v, want 2 complete lines", lines)
	}
	if lines[0] != "PING :one" || lines[1] != "PING :two" {
		t.Errorf("Lines() = %v", lines)
	}

	n = copy(f.Free(), []byte("ee\r\n"))
	f.Advance(n)
	lines = f.Lines()
	if len(lines) != 1 || lines[0] != "PING :three" {
		t.Errorf("residual-carried line = %v, want [PING :three]", lines)
	}
}

func TestFrameBufferGrowsOnLargeWrite(t *testing.T) {
	f := newFrameBuffer()
	startCap := f.Capacity()

	big := make([]byte, startCap) // forces at least one grow via Free()
	for i := range big {
		big[i] = 'a'
	}
	n := copy(f.Free(), big)
	f.Advance(n)
	f.Free() // the next read's Free() finds the buffer full and grows it

	if f.Capacity() <= startCap {
		t.Errorf("Capacity() = %d, want > %d after large write", f.Capacity(), startCap)
	}
}

func TestFrameBufferShrinksAfterDrain(t *testing.T) {
	f := newFrameBuffer()
	for f.Capacity() < minBufSize*4 {
		f.grow()
	}
	grownCap := f.Capacity()

	n := copy(f.Free(), []byte("PING :x\r\n"))
	f.Advance(n)
	f.Lines()

	if f.Capacity() >= grownCap {
		t.Errorf("Capacity() = %d, want < %d after drain", f.Capacity(), grownCap)
	}
	if f.Capacity() < minBufSize {
		t.Errorf("Capacity() = %d, want >= minBufSize", f.Capacity())
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{0: minBufSize, 1: minBufSize, minBufSize: minBufSize, minBufSize + 1: minBufSize * 2}
	for in, want := range cases {
		if got := nextPow2(in); got != want {
			t.Errorf("nextPow2(%d) = %d, want %d", in, got, want)
		}
	}
}
