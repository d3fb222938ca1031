package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"debugtrail/internal/command"
)

const defaultSpinnerInterval = 120 * time.Millisecond

type progressSpinner struct {
	writer        io.Writer
	delay         time.Duration
	frameInterval time.Duration
	frames        []rune

	events chan string
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once

	mu       sync.Mutex
	frameIdx int
}

func newProgressSpinner(w io.Writer, delay time.Duration) *progressSpinner {
	return newCustomProgressSpinner(w, delay, defaultSpinnerInterval)
}

func newCustomProgressSpinner(w io.Writer, delay, frameInterval time.Duration) *progressSpinner {
	if w == nil {
		w = io.Discard
	}
	sp := &progressSpinner{
		writer:        w,
		delay:         delay,
		frameInterval: frameInterval,
		frames:        []rune{'|', '/', '-', '\\'},
		events:        make(chan string, 8),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go sp.loop()
	return sp
}

// Stage replaces the message shown next to the spinner.
func (s *progressSpinner) Stage(message string) {
	if s == nil {
		return
	}
	select {
	case <-s.stopCh:
		return
	default:
	}
	select {
	case s.events <- message:
	default:
	}
}

// Stop clears the spinner line and waits for the render loop to exit.
func (s *progressSpinner) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

// loop only starts drawing once delay has passed, so fast commands never
// flash a spinner.
func (s *progressSpinner) loop() {
	defer close(s.doneCh)

	var delayCh <-chan time.Time
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		delayCh = timer.C
	}

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	var current string
	hasStage := false
	visible := s.delay == 0

	for {
		select {
		case <-s.stopCh:
			if visible {
				s.clearLine()
			}
			return
		case msg := <-s.events:
			current = msg
			hasStage = true
			if visible {
				s.render(current)
			}
		case <-ticker.C:
			if visible && hasStage {
				s.render(current)
			}
		case <-delayCh:
			delayCh = nil
			visible = true
			if hasStage {
				s.render(current)
			}
		}
	}
}

func (s *progressSpinner) render(message string) {
	frame := s.nextFrame()
	_, _ = fmt.Fprintf(s.writer, "\r\033[2K%c %s", frame, message)
}

func (s *progressSpinner) clearLine() {
	_, _ = fmt.Fprint(s.writer, "\r\033[2K")
}

func (s *progressSpinner) nextFrame() rune {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.frames[s.frameIdx%len(s.frames)]
	s.frameIdx++
	return frame
}

func formatRunMessage(argv []string) string {
	if len(argv) == 0 {
		return "Running..."
	}
	msg := fmt.Sprintf("Running %s...", filepath.Base(argv[0]))
	if rest := strings.TrimSpace(strings.Join(argv[1:], " ")); rest != "" {
		msg += " " + rest
	}
	return msg
}

// progressRunner shows a spinner on w while the wrapped runner executes.
type progressRunner struct {
	inner command.Runner
	w     io.Writer
	delay time.Duration
}

func (r progressRunner) Run(ctx context.Context, argv []string) (command.Result, error) {
	sp := newProgressSpinner(r.w, r.delay)
	sp.Stage(formatRunMessage(argv))
	defer sp.Stop()
	return r.inner.Run(ctx, argv)
}
