package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// processedLogName is the sidecar tracking which session files the
// consolidation cycle has already folded into long-term memory.
const processedLogName = "processed_sessions.log"

// Turn is one exchange within a session.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Mode      string    `json:"mode,omitempty"`
}

// WorkingMemory persists per-session transcripts, one JSONL file per session.
type WorkingMemory struct {
	mu  sync.Mutex
	dir string
}

// NewWorkingMemory creates working memory rooted at dir.
func NewWorkingMemory(dir string) *WorkingMemory {
	return &WorkingMemory{dir: dir}
}

func (w *WorkingMemory) sessionPath(sessionID string) string {
	return filepath.Join(w.dir, sessionID+".jsonl")
}

// AppendTurn records one turn in the session's transcript.
func (w *WorkingMemory) AppendTurn(sessionID string, turn Turn) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is empty")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create working memory dir: %w", err)
	}
	f, err := os.OpenFile(w.sessionPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Transcript returns all turns of a session in order.
func (w *WorkingMemory) Transcript(sessionID string) ([]Turn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.sessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var turns []Turn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var t Turn
		if err := json.Unmarshal(scanner.Bytes(), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan session file: %w", err)
	}
	return turns, nil
}

// Sessions lists all known session IDs, sorted.
func (w *WorkingMemory) Sessions() ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read working memory dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".jsonl"))
	}
	sort.Strings(out)
	return out, nil
}

// UnprocessedSessions returns session IDs not yet marked processed.
func (w *WorkingMemory) UnprocessedSessions() ([]string, error) {
	sessions, err := w.Sessions()
	if err != nil {
		return nil, err
	}
	processed, err := w.processedSet()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range sessions {
		if !processed[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// MarkProcessed records that a session has been consolidated.
func (w *WorkingMemory) MarkProcessed(sessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create working memory dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(w.dir, processedLogName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open processed log: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, sessionID); err != nil {
		return fmt.Errorf("append processed session: %w", err)
	}
	return nil
}

func (w *WorkingMemory) processedSet() (map[string]bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(filepath.Join(w.dir, processedLogName))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("open processed log: %w", err)
	}
	defer f.Close()

	set := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			set[id] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan processed log: %w", err)
	}
	return set, nil
}
