package spinner

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestStartStop(t *testing.T) {
	var buf bytes.Buffer
	s := New(context.Background(), &buf, "Building corpus")

	if s.Active() {
		t.Error("new spinner should not be active")
	}
	s.Start()
	s.Start()
	if !s.Active() {
		t.Error("spinner should be active after Start()")
	}

	time.Sleep(2 * interval)
	s.Stop()
	s.Stop()

	if s.Active() {
		t.Error("spinner should not be active after Stop()")
	}
	out := buf.String()
	if !strings.Contains(out, "Building corpus") {
		t.Errorf("output %q missing message", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("output %q should end with a carriage return", out)
	}
}

func TestUpdate(t *testing.T) {
	var buf bytes.Buffer
	s := New(context.Background(), &buf, "Normalizing")
	s.Start()
	s.Update("Fitting model")
	time.Sleep(2 * interval)
	s.Stop()

	if !strings.Contains(buf.String(), "Fitting model") {
		t.Errorf("output %q missing updated message", buf.String())
	}
}

func TestStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	New(context.Background(), &buf, "idle").Stop()
	if buf.Len() != 0 {
		t.Errorf("Stop() without Start() wrote %q", buf.String())
	}
}

func TestContextCancel(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, &buf, "cancel me")
	s.Start()
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return after context cancellation")
	}
}

func TestNilSpinner(t *testing.T) {
	var s *Spinner
	s.Start()
	s.Update("x")
	s.Stop()
	if s.Active() {
		t.Error("nil spinner reported active")
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal(buffer) = true")
	}
}
