package backend

import (
	"bytes"
	"context"
	"log/slog"
	"time"
)

// Probe detects whether an accelerated inference backend is usable.
// Implementations never fail: any problem means "not available".
type Probe interface {
	Available(ctx context.Context) bool
}

// StaticProbe always returns the same answer.
type StaticProbe bool

// Available implements Probe.
func (p StaticProbe) Available(context.Context) bool {
	return bool(p)
}

// CommandProbe asks a device query tool (nvidia-smi -L by default) whether a
// device is present. A non-zero exit, a timeout, or empty output all mean
// that no accelerator is available.
type CommandProbe struct {
	executor *Executor
	args     []string
}

// NewCommandProbe builds a probe from a command line. When the binary cannot
// be found the returned probe always reports false.
func NewCommandProbe(command []string, timeout time.Duration) Probe {
	if len(command) == 0 {
		return StaticProbe(false)
	}

	executor, err := NewExecutor(command[0], timeout)
	if err != nil {
		slog.Debug("Accelerator probe binary not found", "binary", command[0], "error", err)
		return StaticProbe(false)
	}

	return NewCommandProbeWithExecutor(executor, command[1:])
}

// NewCommandProbeWithExecutor builds a probe on an existing executor.
func NewCommandProbeWithExecutor(executor *Executor, args []string) *CommandProbe {
	return &CommandProbe{
		executor: executor,
		args:     args,
	}
}

// Available implements Probe.
func (p *CommandProbe) Available(ctx context.Context) bool {
	stdout, stderr, err := p.executor.Execute(ctx, p.args, nil)
	if err != nil {
		slog.Debug("Accelerator probe failed", "error", err, "stderr", string(bytes.TrimSpace(stderr)))
		return false
	}

	return len(bytes.TrimSpace(stdout)) > 0
}
