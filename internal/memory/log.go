// Package memory provides Luca's episodic memory. The memory log is an
// append-only JSONL file of typed entries; working memory holds the live
// per-session transcripts that the consolidation cycle later folds into
// long-term stores.
package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry kinds written by the runtime.
const (
	KindInteraction       = "interaction"
	KindInsight           = "insight"
	KindSimulationInsight = "physical_simulation_insight"
	KindWisdom            = "wisdom"
	KindBenchmark         = "benchmark_result"
	KindSelfCorrection    = "self_correction"
)

// Entry is one episodic memory record.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	SessionID string    `json:"session_id,omitempty"`
	Content   string    `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Log is the append-only episodic memory log.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a log writing to path. The file is created lazily.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append writes one entry. ID and Timestamp are filled when zero.
func (l *Log) Append(entry Entry) error {
	if entry.ID == "" {
		entry.ID = "mem_" + uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal memory entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create memory log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open memory log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append memory entry: %w", err)
	}
	return nil
}

// All reads every entry in file order. Malformed lines are skipped.
func (l *Log) All() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open memory log: %w", err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan memory log: %w", err)
	}
	return out, nil
}

// Recent returns the last n entries of the given kind, newest last.
// An empty kind matches everything.
func (l *Log) Recent(kind string, n int) ([]Entry, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	var matched []Entry
	for _, e := range all {
		if kind == "" || e.Kind == kind {
			matched = append(matched, e)
		}
	}
	if n > 0 && len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched, nil
}
