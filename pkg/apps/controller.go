package apps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/logger"
)

const defaultCommandTimeout = 10 * time.Second

// Controller performs the OS-facing operations: launch, quit, activate,
// and process inspection. Every operation issues at most one command per
// strategy and nothing is retried; failures surface to the caller.
type Controller struct {
	catalog *Catalog
	runner  Runner
	procs   ProcessManager
	timeout time.Duration
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithRunner overrides the OS command runner.
func WithRunner(r Runner) ControllerOption {
	return func(c *Controller) { c.runner = r }
}

// WithProcessManager overrides the process table access.
func WithProcessManager(p ProcessManager) ControllerOption {
	return func(c *Controller) { c.procs = p }
}

// WithCommandTimeout overrides the per-command timeout.
func WithCommandTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) { c.timeout = d }
}

// NewController creates a controller over the given catalog.
func NewController(catalog *Catalog, opts ...ControllerOption) *Controller {
	c := &Controller{
		catalog: catalog,
		runner:  ExecRunner{},
		procs:   GopsutilManager{},
		timeout: defaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog returns the catalog the controller resolves against.
func (c *Controller) Catalog() *Catalog {
	return c.catalog
}

// Resolve fuzzy-matches a spoken name against the catalog.
func (c *Controller) Resolve(ctx context.Context, spoken string) (Match, error) {
	return c.catalog.Resolve(ctx, spoken)
}

// Launch resolves a spoken name and issues exactly one open call for it.
// User command entries run their configured executable directly; bundles
// go through the system open command.
func (c *Controller) Launch(ctx context.Context, spoken string) (Application, error) {
	match, err := c.catalog.Resolve(ctx, spoken)
	if err != nil {
		return Application{}, err
	}
	app := match.App

	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if app.Source == SourceUserCommand {
		_, err = c.runner.Run(cmdCtx, app.Path)
	} else {
		_, err = c.runner.Run(cmdCtx, "open", app.Path)
	}
	if err != nil {
		return app, errors.Wrapf(err, "failed to launch %s", app.Name)
	}

	logger.G(ctx).WithField("app", app.Name).Info("application launched")
	return app, nil
}

// Close resolves a spoken name and quits the application: politely via
// AppleScript first, then by terminating matching processes when the
// script fails. Closing something that is not running returns
// ErrNotRunning without side effects.
func (c *Controller) Close(ctx context.Context, spoken string) (Application, error) {
	match, err := c.catalog.Resolve(ctx, spoken)
	if err != nil {
		return Application{}, err
	}
	app := match.App

	if !c.IsRunning(ctx, app.Name) {
		return app, errors.Wrap(ErrNotRunning, app.Name)
	}

	if err := c.CloseByScript(ctx, app.Name); err != nil {
		logger.G(ctx).WithError(err).WithField("app", app.Name).
			Debug("applescript quit failed, falling back to process termination")
		if err := c.CloseByProcess(ctx, app.Name); err != nil {
			return app, errors.Wrapf(err, "failed to close %s", app.Name)
		}
	}

	logger.G(ctx).WithField("app", app.Name).Info("application closed")
	return app, nil
}

// CloseByScript asks the application to quit via AppleScript.
func (c *Controller) CloseByScript(ctx context.Context, name string) error {
	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.runner.Run(cmdCtx, "osascript", "-e", fmt.Sprintf("tell application %q to quit", name))
	return err
}

// CloseByProcess terminates every process matching the application name.
func (c *Controller) CloseByProcess(ctx context.Context, name string) error {
	matches, err := c.MatchProcess(ctx, name)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return errors.Wrap(ErrNotRunning, name)
	}

	var termErrs *multierror.Error
	for _, proc := range matches {
		if err := c.procs.Terminate(ctx, proc.PID); err != nil {
			termErrs = multierror.Append(termErrs, errors.Wrapf(err, "pid %d", proc.PID))
		}
	}
	return termErrs.ErrorOrNil()
}

// SwitchTo brings a running application to the foreground.
func (c *Controller) SwitchTo(ctx context.Context, name string) error {
	if !c.IsRunning(ctx, name) {
		return errors.Wrap(ErrNotRunning, name)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.runner.Run(cmdCtx, "osascript", "-e", fmt.Sprintf("tell application %q to activate", name))
	return err
}

// IsRunning reports whether any process matches the application name.
// The process table is queried fresh on every call.
func (c *Controller) IsRunning(ctx context.Context, name string) bool {
	matches, err := c.MatchProcess(ctx, name)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to inspect process table")
		return false
	}
	return len(matches) > 0
}

// MatchProcess returns the live processes whose name matches the
// application name after normalization.
func (c *Controller) MatchProcess(ctx context.Context, name string) ([]ProcessInfo, error) {
	procs, err := c.procs.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processes")
	}

	want := normalize(name)
	if want == "" {
		return nil, nil
	}

	var matches []ProcessInfo
	for _, proc := range procs {
		if strings.Contains(normalize(proc.Name), want) {
			matches = append(matches, proc)
		}
	}
	return matches, nil
}
