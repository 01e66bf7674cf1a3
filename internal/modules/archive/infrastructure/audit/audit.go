package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry statuses.
const (
	StatusOK     = "ok"
	StatusDryRun = "dry_run"
	StatusError  = "error"
)

// Entry is one reconciliation action. Every mutation of the vector index
// gets exactly one entry, dry-run included.
type Entry struct {
	Timestamp string `json:"ts"`
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	Action    string `json:"action"`
	VectorID  string `json:"vector_id,omitempty"`
	ContentID string `json:"content_id,omitempty"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

// Log buffers entries for one reconciliation run and exports them as JSONL.
type Log struct {
	runID string

	mu      sync.Mutex
	entries []Entry
}

func NewLog(runID string) *Log {
	return &Log{runID: runID}
}

func (l *Log) RunID() string { return l.runID }

func (l *Log) Append(phase, action, vectorID, contentID, status, detail string) {
	e := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RunID:     l.runID,
		Phase:     phase,
		Action:    action,
		VectorID:  vectorID,
		ContentID: contentID,
		Status:    status,
		Detail:    detail,
	}
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Export writes the buffered entries to <dir>/reconcile_<runID>.jsonl and
// returns the file path. The file is written even when the log is empty, so
// every run leaves a trace.
func (l *Log) Export(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create audit dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("reconcile_%s.jsonl", l.runID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audit file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, e := range l.Entries() {
		if err := enc.Encode(e); err != nil {
			return "", fmt.Errorf("write audit entry: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("sync audit file: %w", err)
	}
	return path, nil
}
