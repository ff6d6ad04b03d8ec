package apps

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessManager abstracts the OS process table. The real implementation
// uses gopsutil; tests inject a fake.
type ProcessManager interface {
	// List returns the visible processes. Entries whose name cannot be
	// read (already-exited processes, permission errors) are omitted.
	List(ctx context.Context) ([]ProcessInfo, error)
	// Terminate asks the process to exit (SIGTERM).
	Terminate(ctx context.Context, pid int32) error
}

// GopsutilManager implements ProcessManager on the live process table.
type GopsutilManager struct{}

// List returns the visible processes.
func (GopsutilManager) List(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		infos = append(infos, ProcessInfo{PID: p.Pid, Name: name})
	}
	return infos, nil
}

// Terminate sends SIGTERM to the process.
func (GopsutilManager) Terminate(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	return p.TerminateWithContext(ctx)
}
