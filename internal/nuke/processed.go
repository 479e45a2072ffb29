package nuke

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/safetyops/scnuke/internal/resource"
)

// processedEntry is one line of the processed-identifier log.
type processedEntry struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ProcessedLog appends successfully deleted identifiers to a JSONL
// file. A later run can load the file and skip everything in it, which
// matters when a huge purge gets interrupted partway.
type ProcessedLog struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// OpenProcessedLog opens (or creates) the log at path for appending.
func OpenProcessedLog(path string) (*ProcessedLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open processed log: %w", err)
	}
	return &ProcessedLog{f: f, enc: json.NewEncoder(f)}, nil
}

// Record appends one identifier. Errors are swallowed: the log is an
// optimization for the next run, never a reason to fail this one.
func (l *ProcessedLog) Record(kind resource.Kind, id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(processedEntry{Kind: string(kind), ID: id})
}

// Close flushes and closes the log file.
func (l *ProcessedLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// LoadProcessed reads a processed log written by an earlier run and
// returns a predicate suitable for Options.AlreadyProcessed. Unparsable
// lines (e.g. a torn final write) are skipped.
func LoadProcessed(path string) (func(resource.Kind, string) bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open processed log: %w", err)
	}
	defer func() { _ = f.Close() }()

	done := make(map[processedEntry]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var entry processedEntry
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			continue
		}
		done[entry] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read processed log: %w", err)
	}

	return func(kind resource.Kind, id string) bool {
		_, ok := done[processedEntry{Kind: string(kind), ID: id}]
		return ok
	}, nil
}
