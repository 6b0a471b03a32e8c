package hookenv

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
)

// Runner executes a hook tool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, stdin []byte, tool string, args ...string) ([]byte, error)
}

// ExecRunner runs hook tools as child processes.
type ExecRunner struct {
	// ToolsDir is prepended to the tool name when set. Otherwise the tool
	// is resolved through PATH, which the agent populates for every hook.
	ToolsDir string

	// Wrapper is prepended to every invocation. Processes running outside
	// a hook set it to juju-exec so the tools get a hook context.
	Wrapper []string
}

// NewJujuExecRunner returns a runner that executes every tool through
// juju-exec on behalf of unit.
func NewJujuExecRunner(unit string) ExecRunner {
	return ExecRunner{Wrapper: []string{"juju-exec", "-u", unit, "--"}}
}

// Run implements Runner
func (r ExecRunner) Run(ctx context.Context, stdin []byte, tool string, args ...string) ([]byte, error) {
	name := tool
	if r.ToolsDir != "" {
		name = filepath.Join(r.ToolsDir, tool)
	}

	argv := append(append(append([]string{}, r.Wrapper...), name), args...)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, errors.Annotatef(err, "running %s", tool)
		}
		return nil, errors.Annotatef(err, "running %s: %s", tool, msg)
	}
	return stdout.Bytes(), nil
}
