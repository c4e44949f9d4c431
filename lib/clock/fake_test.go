// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	c := Fake(epoch)
	c.Advance(90 * time.Second)
	if got, want := c.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFakeTickerFiresOnInterval(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	c.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("ticker fired before its interval elapsed")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case fired := <-ticker.C:
		if !fired.Equal(epoch.Add(time.Second)) {
			t.Errorf("tick time = %v, want %v", fired, epoch.Add(time.Second))
		}
	default:
		t.Fatal("ticker did not fire after one interval")
	}
}

func TestFakeTickerDropsWhenFull(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	c.Advance(5 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker queued more than one tick")
	default:
	}
}

func TestFakeTickerStop(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	if c.ActiveTickers() != 1 {
		t.Fatalf("ActiveTickers() = %d, want 1", c.ActiveTickers())
	}
	ticker.Stop()
	if c.ActiveTickers() != 0 {
		t.Fatalf("ActiveTickers() after Stop = %d, want 0", c.ActiveTickers())
	}
	c.Advance(time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestWaitForTickers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.WaitForTickers(1)
		close(done)
	}()
	c.NewTicker(time.Second)
	<-done
}
