package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

type Stats struct {
	Succeeded atomic.Int64
	Skipped   atomic.Int64
	Failed    atomic.Int64
	Words     atomic.Int64

	start time.Time
}

func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// Partial reports a run where some items failed.
func (s *Stats) Partial() bool {
	return s.Failed.Load() > 0
}

func (s *Stats) Summary(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s Summary:\n", title)
	fmt.Fprintf(w, "Succeeded: %d\n", s.Succeeded.Load())
	fmt.Fprintf(w, "Skipped:   %d\n", s.Skipped.Load())
	fmt.Fprintf(w, "Failed:    %d\n", s.Failed.Load())
	if n := s.Words.Load(); n > 0 {
		fmt.Fprintf(w, "Words:     %d\n", n)
	}
	if !s.start.IsZero() {
		fmt.Fprintf(w, "Time:      %s\n", time.Since(s.start).Round(time.Second))
	}
}
