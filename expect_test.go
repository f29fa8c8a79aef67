// Copyright (c) hirc contributors. All rights reserved. Use of this
// source code is governed by the MIT license that can be found in the
// LICENSE file.

package hirc

import "testing"

func TestExpectationsSetGetClear(t *testing.T) {
	var e Expectations
	if _, ok := e.Get(ExpectJoin); ok {
		t.Fatal("fresh Expectations should have nothing pending")
	}
	e.Set(ExpectJoin, "#chan")
	v, ok := e.Get(ExpectJoin)
	if !ok || v != "#chan" {
		t.Fatalf("Get(ExpectJoin) = (%q, %v), want (#chan, true)", v, ok)
	}
	e.Clear(ExpectJoin)
	if _, ok := e.Get(ExpectJoin); ok {
		t.Error("Clear did not empty the slot")
	}
}

func TestExpectationsSetReplaces(t *testing.T) {
	var e Expectations
	e.Set(ExpectJoin, "#first")
	e.Set(ExpectJoin, "#second")
	v, _ := e.Get(ExpectJoin)
	if v != "#second" {
		t.Errorf("Get(ExpectJoin) = %q, want #second (Set must replace)", v)
	}
}

// TestExpectationsMatchIsOneShot verifies testable property 4: a
// successful Match consumes the slot, and a second identical event
// does not match again.
func TestExpectationsMatchIsOneShot(t *testing.T) {
	var e Expectations
	e.Set(ExpectPong, "token-1")

	if !e.Match(ExpectPong, "token-1") {
		t.Fatal("first Match should succeed")
	}
	if e.Match(ExpectPong, "token-1") {
		t.Error("second Match with the same value should fail: slot was already consumed")
	}
	if e.Pending(ExpectPong) {
		t.Error("Pending should be false after a consuming Match")
	}
}

func TestExpectationsMatchWrongValueLeavesSlot(t *testing.T) {
	var e Expectations
	e.Set(ExpectPong, "token-1")
	if e.Match(ExpectPong, "token-2") {
		t.Fatal("Match with wrong value should not succeed")
	}
	if !e.Pending(ExpectPong) {
		t.Error("a failed Match must not clear the slot")
	}
}

func TestExpectationsSlotsAreIndependent(t *testing.T) {
	var e Expectations
	e.Set(ExpectJoin, "#chan")
	e.Set(ExpectPart, "#chan")
	if !e.Match(ExpectJoin, "#chan") {
		t.Fatal("ExpectJoin should match")
	}
	if !e.Pending(ExpectPart) {
		t.Error("consuming ExpectJoin must not affect ExpectPart")
	}
}
