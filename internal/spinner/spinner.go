// Package spinner shows a one-line progress indicator on a terminal while a
// corpus build runs.
package spinner

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var frames = []string{"|", "/", "-", "\\"}

const interval = 120 * time.Millisecond

// Spinner redraws "<frame> <message>" on one line until stopped.
// A nil *Spinner is valid and does nothing.
type Spinner struct {
	w      io.Writer
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	message string
	active  bool
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// New returns a stopped spinner writing to w. Cancelling ctx stops the animation.
func New(ctx context.Context, w io.Writer, message string) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &Spinner{w: w, ctx: sctx, cancel: cancel, message: message}
}

// Start begins the animation. Calling it on a running spinner does nothing.
func (s *Spinner) Start() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.wg.Add(1)
	go s.run()
}

// Update replaces the message shown next to the frame.
func (s *Spinner) Update(message string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Active reports whether the animation is running.
func (s *Spinner) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	if IsTerminal(s.w) {
		fmt.Fprint(s.w, "\r\033[2K")
	} else {
		fmt.Fprint(s.w, "\r")
	}
}

func (s *Spinner) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		s.mu.Lock()
		msg := s.message
		s.mu.Unlock()
		fmt.Fprintf(s.w, "\r%s %s", frames[i%len(frames)], msg)

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
