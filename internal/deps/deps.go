// Package deps checks that the external tools the pipeline shells out to
// are installed, and reports their versions.
package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"youdub/internal/services"
)

// versionTimeout bounds each version probe; some Python CLIs import torch
// before printing anything.
const versionTimeout = 20 * time.Second

// Requirement defines an external binary the pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, are passed to the binary to print its version.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// CheckBinaries resolves each requirement on PATH. Versions are probed only
// for binaries that were found and declare VersionArgs; a failed probe
// leaves Version empty without marking the binary unavailable.
func CheckBinaries(ctx context.Context, runner services.CommandRunner, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(ctx, runner, req))
	}
	return results
}

func check(ctx context.Context, runner services.CommandRunner, req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = path
	status.Available = true
	if len(req.VersionArgs) > 0 {
		probeCtx, cancel := context.WithTimeout(ctx, versionTimeout)
		defer cancel()
		if out, err := services.Run(probeCtx, runner, path, req.VersionArgs...); err == nil {
			status.Version = firstLine(out)
		}
	}
	return status
}

func firstLine(out []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}
