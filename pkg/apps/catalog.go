package apps

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ovoskit/maclaunch/pkg/logger"
)

// bundlePatterns match .app bundles directly inside an application
// directory and one level down (e.g. /Applications/Utilities on older
// layouts, or vendor subdirectories).
var bundlePatterns = []string{"*.app", "*/*.app"}

const (
	defaultThreshold = 0.7
	defaultTTL       = time.Hour
)

// CatalogConfig configures a Catalog.
type CatalogConfig struct {
	// Dirs are the application directories to scan. Empty means DefaultDirs.
	Dirs []string
	// ExcludePatterns are glob patterns of bundle names to skip, e.g. "* Helper*".
	ExcludePatterns []string
	// Aliases maps a canonical application name to its spoken aliases.
	Aliases map[string][]string
	// UserCommands maps a spoken name to an explicit executable path,
	// bypassing bundle resolution entirely.
	UserCommands map[string]string
	// Threshold is the minimum similarity for Resolve to accept a match.
	Threshold float64
	// TTL is how long a scan stays fresh.
	TTL time.Duration
	// Store persists the scanned catalog across restarts. Optional.
	Store *Store
}

// DefaultDirs returns the standard macOS application directories.
func DefaultDirs() []string {
	dirs := []string{
		"/Applications",
		"/Applications/Utilities",
		"/System/Applications",
		"/System/Applications/Utilities",
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "Applications"))
	}
	return dirs
}

// Catalog holds the discovered applications and resolves spoken names
// against them.
type Catalog struct {
	mu          sync.RWMutex
	cfg         CatalogConfig
	excludes    []glob.Glob
	aliases     map[string][]string    // normalized name -> spoken aliases
	apps        map[string]Application // canonical name -> entry
	refreshedAt time.Time
}

// aliasIndex keys the alias table by normalized application name so that
// config-file keys match catalog names regardless of casing (viper
// lowercases map keys on unmarshal).
func aliasIndex(aliases map[string][]string) map[string][]string {
	idx := make(map[string][]string, len(aliases))
	for name, list := range aliases {
		key := normalize(name)
		idx[key] = append(idx[key], list...)
	}
	return idx
}

func compileExcludes(patterns []string) ([]glob.Glob, error) {
	excludes := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid exclude pattern %q", pattern)
		}
		excludes = append(excludes, g)
	}
	return excludes, nil
}

// NewCatalog creates a catalog. It does not scan; call Refresh or Load first,
// or let Resolve refresh lazily.
func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if len(cfg.Dirs) == 0 {
		cfg.Dirs = DefaultDirs()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	excludes, err := compileExcludes(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		cfg:      cfg,
		excludes: excludes,
		aliases:  aliasIndex(cfg.Aliases),
		apps:     make(map[string]Application),
	}, nil
}

// UpdateConfig applies reloaded settings to a live catalog. Scan
// directories and the persistent store are fixed at construction and keep
// their current values. The scan is marked stale so the next lookup
// rescans with the new excludes and user commands.
func (c *Catalog) UpdateConfig(cfg CatalogConfig) error {
	excludes, err := compileExcludes(cfg.ExcludePatterns)
	if err != nil {
		return err
	}

	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cfg.Dirs = c.cfg.Dirs
	cfg.Store = c.cfg.Store
	c.cfg = cfg
	c.excludes = excludes
	c.aliases = aliasIndex(cfg.Aliases)
	c.refreshedAt = time.Time{}
	return nil
}

// Refresh rescans the application directories and rebuilds the catalog.
// Missing directories are skipped; other per-directory errors are
// aggregated but do not discard results from directories that scanned fine.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.RLock()
	dirs := c.cfg.Dirs
	userCommands := c.cfg.UserCommands
	excludes := c.excludes
	store := c.cfg.Store
	c.mu.RUnlock()

	apps := make(map[string]Application)
	var scanErrs *multierror.Error

	for _, dir := range dirs {
		found, err := scanDir(dir, excludes)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			scanErrs = multierror.Append(scanErrs, errors.Wrapf(err, "scanning %s", dir))
			continue
		}
		for _, app := range found {
			// First directory wins so /Applications shadows /System/Applications.
			if _, ok := apps[app.Name]; !ok {
				apps[app.Name] = app
			}
		}
	}

	for name, command := range userCommands {
		apps[name] = Application{Name: name, Path: command, Source: SourceUserCommand}
	}

	if len(apps) == 0 && scanErrs.ErrorOrNil() != nil {
		return errors.Wrap(scanErrs.ErrorOrNil(), "application scan produced nothing")
	}

	c.mu.Lock()
	c.apps = apps
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	logger.G(ctx).WithField("count", len(apps)).Debug("application catalog refreshed")

	if store != nil {
		if err := store.Save(ctx, c.Apps()); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to persist application catalog")
		}
	}

	return scanErrs.ErrorOrNil()
}

func scanDir(dir string, excludes []glob.Glob) ([]Application, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	fsys := os.DirFS(dir)
	var apps []Application
	for _, pattern := range bundlePatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			name := strings.TrimSuffix(filepath.Base(match), ".app")
			if excluded(name, excludes) {
				continue
			}
			apps = append(apps, Application{
				Name:   name,
				Path:   filepath.Join(dir, filepath.FromSlash(match)),
				Source: SourceScan,
			})
		}
	}
	return apps, nil
}

func excluded(name string, excludes []glob.Glob) bool {
	for _, g := range excludes {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Load restores the catalog from the persistent store. It returns false
// when there is no store or the stored scan is stale.
func (c *Catalog) Load(ctx context.Context) (bool, error) {
	c.mu.RLock()
	store := c.cfg.Store
	ttl := c.cfg.TTL
	userCommands := c.cfg.UserCommands
	c.mu.RUnlock()

	if store == nil {
		return false, nil
	}

	stored, refreshedAt, err := store.Load(ctx)
	if err != nil {
		return false, err
	}
	if len(stored) == 0 || time.Since(refreshedAt) >= ttl {
		return false, nil
	}

	apps := make(map[string]Application, len(stored))
	for _, app := range stored {
		apps[app.Name] = app
	}
	for name, command := range userCommands {
		apps[name] = Application{Name: name, Path: command, Source: SourceUserCommand}
	}

	c.mu.Lock()
	c.apps = apps
	c.refreshedAt = refreshedAt
	c.mu.Unlock()

	return true, nil
}

// Valid reports whether the current scan is still fresh.
func (c *Catalog) Valid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.apps) > 0 && time.Since(c.refreshedAt) < c.cfg.TTL
}

// EnsureFresh refreshes the catalog if the current scan is stale.
func (c *Catalog) EnsureFresh(ctx context.Context) error {
	if c.Valid() {
		return nil
	}
	return c.Refresh(ctx)
}

// Apps returns the catalog entries sorted by name.
func (c *Catalog) Apps() []Application {
	c.mu.RLock()
	defer c.mu.RUnlock()

	apps := make([]Application, 0, len(c.apps))
	for _, app := range c.apps {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps
}

// Get returns the entry with the exact canonical name.
func (c *Catalog) Get(name string) (Application, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	app, ok := c.apps[name]
	return app, ok
}

// Resolve fuzzy-matches a spoken name against the catalog, refreshing a
// stale scan first. It returns at most one application; ErrNotFound when
// nothing scores above the threshold.
func (c *Catalog) Resolve(ctx context.Context, spoken string) (Match, error) {
	if err := c.EnsureFresh(ctx); err != nil {
		return Match{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var best Match
	for _, app := range c.apps {
		score := similarity(spoken, app.Name)
		for _, alias := range c.aliases[normalize(app.Name)] {
			if s := similarity(spoken, alias); s > score {
				score = s
			}
		}

		if score > best.Score ||
			(score == best.Score && best.Score > 0 && len(app.Name) < len(best.App.Name)) {
			best = Match{App: app, Score: score}
		}
	}

	if best.Score < c.cfg.Threshold {
		return Match{}, errors.Wrapf(ErrNotFound, "%q", spoken)
	}
	return best, nil
}
