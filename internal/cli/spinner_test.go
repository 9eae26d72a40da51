package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerBasic(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Testing...", true)
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "Testing...") {
		t.Errorf("spinner output %q should contain the message", buf.String())
	}
	if s.Cancelled() {
		t.Error("Stop should not count as cancellation")
	}
}

func TestSpinnerDisabledPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(context.Background(), &buf, "Quiet", false)
	s.Start()
	s.Progress(1, 2)
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if buf.Len() != 0 {
		t.Errorf("disabled spinner wrote %q", buf.String())
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var buf bytes.Buffer
	s := newSpinner(ctx, &buf, "Testing with context...", true)
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerProgress(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "Scanning", false)
	s.Progress(3, 10)

	if got, want := s.Message(), "Analyzing files 3/10"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "Testing idempotent stop...", true)
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner(context.Background(), &bytes.Buffer{}, "never started", true)
	s.Stop()
}

func TestCLISpinnerDisabledOffTerminal(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	s := c.spinner(context.Background(), "Scanning")
	if s.enabled {
		t.Error("spinner should be disabled when stderr is not a terminal")
	}
}
