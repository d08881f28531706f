package cli

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const defaultSpinInterval = 100 * time.Millisecond

// Spinner is an indeterminate progress indicator for long running stages.
type Spinner struct {
	writer   io.Writer
	bar      *progressbar.ProgressBar
	stop     chan struct{}
	done     chan struct{}
	interval time.Duration
	mu       sync.Mutex
}

// NewSpinner creates a spinner drawing to w, or stderr when w is nil.
func NewSpinner(w io.Writer) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	return &Spinner{writer: w, interval: defaultSpinInterval}
}

// Start begins drawing with the given message. Starting a running
// spinner replaces it.
func (s *Spinner) Start(message string) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("[cyan]"+message+"[reset]"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.spin(s.bar, s.stop, s.done)
}

func (s *Spinner) spin(bar *progressbar.ProgressBar, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := bar.Add(1); err != nil {
				slog.Debug("Failed to update spinner", "error", err)
			}
		}
	}
}

// Stop halts the spinner and clears its line. It returns once the
// drawing goroutine has exited. Stopping an idle spinner is a no-op.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop == nil {
		return
	}

	close(s.stop)
	<-s.done

	if err := s.bar.Finish(); err != nil {
		slog.Debug("Failed to finish spinner", "error", err)
	}

	s.bar = nil
	s.stop = nil
	s.done = nil
}

// Running reports whether the spinner is drawing.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}
