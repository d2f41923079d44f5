package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/roach88/crucible/internal/value"
)

// Trace is a fully loaded historical trace.
type Trace struct {
	Version int
	Entries []Entry
}

// PathStep is one visited position of a run: the full part (or command)
// name from an at_part entry, optionally paired with the part-scoped
// payload logged by the part that ran there.
type PathStep struct {
	Part string
	Data value.Value
}

// Load parses a complete trace file. The document must be strict JSON
// with a supported version; any unknown event or malformed entry is a
// fatal FormatError. Entries are sorted by timestamp; the sort is stable,
// so entries with equal timestamps keep their write order.
func Load(r io.Reader) (*Trace, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	var doc struct {
		Version *int              `json:"version"`
		Entries []json.RawMessage `json:"trace"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &FormatError{Index: -1, Message: fmt.Sprintf("not a valid trace document: %v", err)}
	}
	if doc.Version == nil {
		return nil, &FormatError{Index: -1, Message: "missing version"}
	}
	if *doc.Version < 1 || *doc.Version > Version {
		return nil, &FormatError{Index: -1, Message: fmt.Sprintf("unsupported version %d (current %d)", *doc.Version, Version)}
	}

	t := &Trace{Version: *doc.Version, Entries: make([]Entry, 0, len(doc.Entries))}
	for i, rawEntry := range doc.Entries {
		entry, err := parseEntry(i, rawEntry)
		if err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, entry)
	}
	sort.SliceStable(t.Entries, func(i, j int) bool {
		return t.Entries[i].When().Before(t.Entries[j].When())
	})
	return t, nil
}

// LoadFile loads a trace from disk.
func LoadFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()
	t, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// PartPath derives the ordered sequence of visited part/command names
// from the at_part entries, pairing each with the part data recorded by
// the step or decision that ran at that position.
func (t *Trace) PartPath() []PathStep {
	var path []PathStep
	for _, e := range t.Entries {
		switch entry := e.(type) {
		case AtPart:
			path = append(path, PathStep{Part: entry.Part})
		case Step:
			if entry.PartData != nil && len(path) > 0 && path[len(path)-1].Part == entry.Part {
				path[len(path)-1].Data = entry.PartData
			}
		case Decision:
			if entry.PartData != nil && len(path) > 0 && path[len(path)-1].Part == entry.Part {
				path[len(path)-1].Data = entry.PartData
			}
		}
	}
	return path
}
