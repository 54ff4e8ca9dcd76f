// Package report prints batch progress the same way the rest of this
// codebase always has: plain fmt.Fprintf lines to stdout/stderr, no
// structured logger.
package report

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Progress tracks throughput for a batch run and periodically prints a
// "[done/total] rate/sec" line, mirroring the ticker goroutine
// pattern used for item-render batches.
type Progress struct {
	total   int
	start   time.Time
	out     io.Writer
	done    chan struct{}
	stopped bool
}

// NewProgress starts a ticker that reports every interval until Stop is called.
func NewProgress(total int, interval time.Duration, current func() int64) *Progress {
	p := &Progress{total: total, start: time.Now(), out: os.Stdout, done: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				n := current()
				if n > 0 {
					elapsed := time.Since(p.start).Seconds()
					rate := float64(n) / elapsed
					fmt.Fprintf(p.out, "  [%d/%d] %.1f/sec\n", n, p.total, rate)
				}
			}
		}
	}()
	return p
}

// Stop halts the ticker. Safe to call once.
func (p *Progress) Stop() {
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.done)
}

// OK prints a success line for one unit of work.
func OK(format string, args ...any) {
	fmt.Printf("OK  "+format+"\n", args...)
}

// Err prints a failure line for one unit of work to stderr.
func Err(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERR "+format+"\n", args...)
}

// Info prints an informational line.
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
