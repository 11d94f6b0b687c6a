package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultCommandTimeout bounds one sandbox command.
const DefaultCommandTimeout = 60 * time.Second

// LocalTransport runs commands in a scratch working directory on the host.
// It stands in for a container transport in environments without one; the
// Transport interface keeps the manager agnostic.
type LocalTransport struct {
	workDir string
	timeout time.Duration
}

// NewLocalTransport creates a transport with a fresh scratch directory.
func NewLocalTransport() (*LocalTransport, error) {
	dir, err := os.MkdirTemp("", "luca-sandbox-*")
	if err != nil {
		return nil, fmt.Errorf("create sandbox workdir: %w", err)
	}
	return &LocalTransport{workDir: dir, timeout: DefaultCommandTimeout}, nil
}

// Exec runs one shell command in the scratch directory.
func (t *LocalTransport) Exec(ctx context.Context, command string) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = t.workDir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), out.String(), nil
		}
		return -1, out.String(), fmt.Errorf("run sandbox command: %w", err)
	}
	return 0, out.String(), nil
}

// Close removes the scratch directory.
func (t *LocalTransport) Close() error {
	return os.RemoveAll(t.workDir)
}
