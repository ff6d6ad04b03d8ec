// Package apps discovers installed macOS applications and controls them:
// launching, quitting, activating, and checking whether they are running.
// The catalog resolves spoken names to exactly one application; the
// controller turns a resolved application into a single OS command.
package apps

import (
	"github.com/pkg/errors"
)

// Source identifies where a catalog entry came from.
type Source string

const (
	// SourceScan marks applications found by scanning application directories.
	SourceScan Source = "scan"
	// SourceUserCommand marks applications configured explicitly in settings.
	SourceUserCommand Source = "user_command"
)

// Application is one launchable entry in the catalog.
type Application struct {
	// Name is the canonical application name, e.g. "Safari".
	Name string `json:"name" db:"name"`
	// Path is the bundle path (scan entries) or the executable path
	// (user command entries).
	Path string `json:"path" db:"path"`
	// Source records how the entry entered the catalog.
	Source Source `json:"source" db:"source"`
}

// Match is the result of resolving a spoken name against the catalog.
type Match struct {
	App Application
	// Score is the similarity between the spoken name and the matched
	// entry, in [0, 1].
	Score float64
}

// ProcessInfo describes one running process from the OS process table.
type ProcessInfo struct {
	PID  int32  `json:"pid"`
	Name string `json:"name"`
}

var (
	// ErrNotFound is returned when no catalog entry matches a spoken name.
	ErrNotFound = errors.New("no matching application")
	// ErrNotRunning is returned when an operation needs a running
	// application but no matching process exists.
	ErrNotRunning = errors.New("application is not running")
)
