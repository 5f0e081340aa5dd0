package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Spinner is a text spinner for operations of unknown length
type Spinner struct {
	writer   io.Writer
	message  string
	frames   []string
	interval time.Duration
	noColor  bool

	mu     sync.Mutex
	active bool
	done   chan struct{}
	wg     sync.WaitGroup
}

var defaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a new spinner. A zero interval selects 100ms.
func NewSpinner(w io.Writer, message string, interval time.Duration, noColor bool) *Spinner {
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	return &Spinner{
		writer:   w,
		message:  message,
		frames:   defaultFrames,
		interval: interval,
		noColor:  noColor,
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.animate(s.done)
}

// Stop stops the spinner and clears the line
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	fmt.Fprint(s.writer, "\r\033[K")
}

// Success stops the spinner and shows a success message
func (s *Spinner) Success(message string) {
	s.Stop()
	WriteSuccess(s.writer, message, s.noColor)
}

// Error stops the spinner and shows an error message
func (s *Spinner) Error(message string) {
	s.Stop()
	red := color.New(color.FgRed, color.Bold)
	if s.noColor {
		red.DisableColor()
	}
	red.Fprintf(s.writer, "❌ %s\n", message)
}

func (s *Spinner) animate(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	cyan := color.New(color.FgCyan)
	if s.noColor {
		cyan.DisableColor()
	}

	for frame := 0; ; frame = (frame + 1) % len(s.frames) {
		select {
		case <-done:
			return
		case <-ticker.C:
			cyan.Fprintf(s.writer, "\r%s %s", s.frames[frame], s.message)
		}
	}
}

// WithSpinner runs fn while a spinner shows message
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	spinner := NewSpinner(w, message, 0, noColor)
	spinner.Start()

	if err := fn(); err != nil {
		spinner.Error(fmt.Sprintf("%s failed", message))
		return err
	}
	spinner.Success(message)
	return nil
}
