package trace

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Writer streams trace entries to a file as they are recorded. The header
// is written on open and every entry is flushed immediately, so a tailing
// reader observes progress and a crash loses at most the entry in flight.
// The closing bracket is written only on Close, which must run on every
// exit path (defer it right after NewWriter).
type Writer struct {
	mu        sync.Mutex
	w         io.Writer
	count     int
	finalized bool
	entries   []Entry
}

// NewWriter wraps w and writes the versioned header. The caller keeps
// ownership of w's lifetime except that Close finalizes the JSON document
// and, if w is an io.Closer, closes it.
func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := fmt.Fprintf(w, "{\"version\": %d, \"trace\": [\n", Version); err != nil {
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	return &Writer{w: w}, nil
}

// Create opens (truncating) a trace file at path and returns a writer over
// it.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	tw, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return tw, nil
}

// Record appends one entry: serialized, comma-separated, flushed.
// Recording after Close is a programming error.
func (tw *Writer) Record(e Entry) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.finalized {
		return fmt.Errorf("record %s entry: trace already finalized", e.Event())
	}
	raw, err := Marshal(e)
	if err != nil {
		return err
	}
	if tw.count > 0 {
		if _, err := io.WriteString(tw.w, ",\n"); err != nil {
			return fmt.Errorf("write trace entry: %w", err)
		}
	}
	if _, err := tw.w.Write(raw); err != nil {
		return fmt.Errorf("write trace entry: %w", err)
	}
	tw.flush()
	tw.count++
	tw.entries = append(tw.entries, e)
	return nil
}

// Entries returns the entries recorded so far, in append order.
func (tw *Writer) Entries() []Entry {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	out := make([]Entry, len(tw.entries))
	copy(out, tw.entries)
	return out
}

// Len returns the number of recorded entries.
func (tw *Writer) Len() int {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.count
}

// Close finalizes the JSON document and closes the underlying writer if
// it is a Closer. Safe to call more than once.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.finalized {
		return nil
	}
	tw.finalized = true
	_, werr := io.WriteString(tw.w, "]}")
	tw.flush()
	var cerr error
	if c, ok := tw.w.(io.Closer); ok {
		cerr = c.Close()
	}
	if werr != nil {
		return fmt.Errorf("finalize trace: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("close trace file: %w", cerr)
	}
	return nil
}

// flush pushes buffered bytes to stable storage where the underlying
// writer supports it. Writer failures after a data commit are a known
// gap; flush is best effort.
func (tw *Writer) flush() {
	if s, ok := tw.w.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
