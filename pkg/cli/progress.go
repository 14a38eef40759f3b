package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Progress reports progress for multi-item operations such as directory
// ingestion. It is safe for concurrent use.
type Progress struct {
	mu      sync.Mutex
	total   int
	current int
	failed  int
	started time.Time
	writer  io.Writer
}

// NewProgress creates a progress reporter that writes to w. A nil writer
// defaults to os.Stdout.
func NewProgress(w io.Writer, total int) *Progress {
	if w == nil {
		w = os.Stdout
	}
	return &Progress{
		total:   total,
		started: time.Now(),
		writer:  w,
	}
}

// Step records one completed item and prints the running count.
func (p *Progress) Step(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	fmt.Fprintf(p.writer, "[%d/%d] %s\n", p.current, p.total, label)
}

// Fail records one failed item.
func (p *Progress) Fail(label string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	p.failed++
	fmt.Fprintf(p.writer, "[%d/%d] %s: %v\n", p.current, p.total, label, err)
}

// Finish prints a summary line and returns the number of failed items.
func (p *Progress) Finish() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := time.Since(p.started).Round(time.Millisecond)
	if p.failed > 0 {
		fmt.Fprintf(p.writer, "done: %d of %d succeeded in %s\n", p.current-p.failed, p.total, elapsed)
	} else {
		fmt.Fprintf(p.writer, "done: %d in %s\n", p.current, elapsed)
	}
	return p.failed
}
