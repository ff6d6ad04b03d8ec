package apps

import (
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes an OS command and returns its combined output. The
// controller shells out exclusively through this interface so tests can
// observe and fake the commands instead of touching the machine.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and returns trimmed combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return output, errors.Wrapf(err, "%s failed: %s", name, output)
		}
		return output, errors.Wrapf(err, "%s failed", name)
	}
	return output, nil
}
