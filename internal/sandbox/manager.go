// Package sandbox runs untrusted commands in an isolated transport and keeps
// an append-only JSONL audit log of every command. Commands are serialized;
// a transport failure triggers a rebuild so the next command gets a fresh
// environment, while the failing command reports a typed failure result.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lucaproject/luca/internal/logging"
)

// Transport executes commands in the isolated environment.
type Transport interface {
	Exec(ctx context.Context, command string) (exitCode int, output string, err error)
	Close() error
}

// TransportFactory builds a fresh transport, used at startup and on rebuild.
type TransportFactory func() (Transport, error)

// Result is the outcome of one command.
type Result struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
	// Failed marks a transport-level failure, as opposed to a non-zero
	// exit from the command itself.
	Failed bool   `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

type logRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	ExitCode  int       `json:"exit_code"`
	Failed    bool      `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Manager owns one transport at a time and serializes all execution.
type Manager struct {
	mu        sync.Mutex
	factory   TransportFactory
	transport Transport
	logPath   string
	log       *logging.Logger
}

// NewManager creates a manager. The transport is built lazily on first use.
func NewManager(factory TransportFactory, logPath string) *Manager {
	return &Manager{
		factory: factory,
		logPath: logPath,
		log:     logging.Component("sandbox"),
	}
}

// ExecuteCommand runs one command. On transport error the sandbox is rebuilt
// and the command reports failure; it is not retried.
func (m *Manager) ExecuteCommand(ctx context.Context, command string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := Result{Command: command}
	t, err := m.transportLocked()
	if err != nil {
		res.Failed = true
		res.ExitCode = -1
		res.Error = fmt.Sprintf("sandbox unavailable: %v", err)
		m.appendLog(res)
		return res
	}

	exitCode, output, err := t.Exec(ctx, command)
	if err != nil {
		m.log.Warn("sandbox transport failed, rebuilding: %v", err)
		m.rebuildLocked()
		res.Failed = true
		res.ExitCode = -1
		res.Error = err.Error()
		m.appendLog(res)
		return res
	}

	res.ExitCode = exitCode
	res.Output = output
	m.appendLog(res)
	return res
}

// RebuildSandbox discards the current transport; the next command builds a
// fresh one.
func (m *Manager) RebuildSandbox() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuildLocked()
}

// StopSandbox closes the transport.
func (m *Manager) StopSandbox() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuildLocked()
}

func (m *Manager) transportLocked() (Transport, error) {
	if m.transport != nil {
		return m.transport, nil
	}
	t, err := m.factory()
	if err != nil {
		return nil, err
	}
	m.transport = t
	return t, nil
}

func (m *Manager) rebuildLocked() {
	if m.transport != nil {
		if err := m.transport.Close(); err != nil {
			m.log.Warn("close sandbox transport: %v", err)
		}
		m.transport = nil
	}
}

func (m *Manager) appendLog(res Result) {
	rec := logRecord{
		Timestamp: time.Now().UTC(),
		Command:   res.Command,
		ExitCode:  res.ExitCode,
		Failed:    res.Failed,
		Error:     res.Error,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.logPath), 0o755); err != nil {
		m.log.Warn("create sandbox log dir: %v", err)
		return
	}
	f, err := os.OpenFile(m.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		m.log.Warn("open sandbox log: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		m.log.Warn("append sandbox log: %v", err)
	}
}
