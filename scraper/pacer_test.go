package scraper

import (
	"context"
	"testing"
	"time"
)

func TestPacerPausesAfterSlowFetch(t *testing.T) {
	const every = 40 * time.Millisecond
	p := newPacer(every)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= every {
		t.Fatalf("first fetch waited %v, want no pause", elapsed)
	}

	// A fetch slower than the delay still gets the full pause afterwards.
	time.Sleep(2 * every)
	finished := time.Now()
	p.Done()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(finished); elapsed < every-5*time.Millisecond {
		t.Fatalf("pause after fetch = %v, want about %v", elapsed, every)
	}
}

func TestPacerZeroDelay(t *testing.T) {
	p := newPacer(0)
	p.Done()
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("zero delay waited %v", elapsed)
	}
}

func TestPacerWaitHonoursCancel(t *testing.T) {
	p := newPacer(time.Hour)
	p.Done()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected canceled wait to fail")
	}
}
