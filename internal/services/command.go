package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner executes an external tool and returns its standard output.
// Collaborators accept one so tests can substitute a fake.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommand runs name with args through os/exec. A missing binary is a
// configuration error; any other failure is an external tool error carrying
// the tail of stderr.
func ExecCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// Torch 2.6 changed torch.load to weights_only by default, which breaks
	// the pyannote and demucs checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, Wrap(ErrConfiguration, name, "exec", "binary not found on PATH", err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return stdout.Bytes(), Wrap(ErrExternalTool, name, "exec", tail(stderr.String(), 800), err)
	}
	return stdout.Bytes(), nil
}

// Run invokes runner, falling back to ExecCommand when runner is nil.
func Run(ctx context.Context, runner CommandRunner, name string, args ...string) ([]byte, error) {
	if runner == nil {
		runner = ExecCommand
	}
	return runner(ctx, name, args...)
}

func tail(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
