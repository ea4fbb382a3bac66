// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeStandsStill(t *testing.T) {
	c := Fake(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now = %v, want %v", c.Now(), epoch)
	}
	if elapsed := c.Since(epoch); elapsed != 0 {
		t.Errorf("Since = %v, want 0 before Advance", elapsed)
	}
}

func TestFakeAdvance(t *testing.T) {
	c := Fake(epoch)
	c.Advance(3 * time.Second)
	c.Advance(-time.Hour)

	if elapsed := c.Since(epoch); elapsed != 3*time.Second {
		t.Errorf("Since = %v, want 3s (negative Advance ignored)", elapsed)
	}
}

func TestFakeConcurrentAdvance(t *testing.T) {
	c := Fake(epoch)
	var group sync.WaitGroup
	for range 50 {
		group.Add(1)
		go func() {
			defer group.Done()
			c.Advance(time.Millisecond)
			_ = c.Now()
		}()
	}
	group.Wait()

	if elapsed := c.Since(epoch); elapsed != 50*time.Millisecond {
		t.Errorf("Since = %v, want 50ms", elapsed)
	}
}

func TestRealMovesForward(t *testing.T) {
	c := Real()
	start := c.Now()
	if c.Since(start) < 0 {
		t.Error("real clock went backwards")
	}
}
