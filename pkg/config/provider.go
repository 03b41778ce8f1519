package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnvConfigPath is the environment variable naming the configuration
// file when no explicit path is given.
const EnvConfigPath = "SHOOT_CONFIG"

// DefaultConfigPath is used when neither an explicit path nor
// SHOOT_CONFIG is set.
const DefaultConfigPath = "shoot.yaml"

// ErrNotConfigured is returned by Provider.Get when no configuration
// has been loaded yet. Callers (readiness probes in particular) treat
// this differently from a load failure.
var ErrNotConfigured = errors.New("no configuration loaded")

// Provider owns a loaded configuration and hands it to whoever asks.
// Components receive a Provider instead of reaching for package-level
// state, so tests can inject their own configuration and reloads are
// visible everywhere at once.
type Provider struct {
	path string
	opts LoadOptions

	mu      sync.RWMutex
	cfg     *ShootConfig
	loadErr error
	watcher func() // cancel for the active watch, if any
	closed  bool
}

// ResolveConfigPath decides which configuration file to use: the
// explicit path if non-empty, then $SHOOT_CONFIG, then shoot.yaml in
// the working directory.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// NewProvider creates a provider bound to the given path (resolved per
// ResolveConfigPath) without loading anything yet.
func NewProvider(path string, opts LoadOptions) (*Provider, error) {
	resolved := ResolveConfigPath(path)
	absPath, err := filepath.Abs(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path '%s': %w", resolved, err)
	}
	return &Provider{path: absPath, opts: opts}, nil
}

// NewStaticProvider wraps an already-built configuration, for tests and
// embedders that assemble ShootConfig programmatically.
func NewStaticProvider(cfg *ShootConfig, baseDir string) *Provider {
	return &Provider{path: filepath.Join(baseDir, "shoot.yaml"), cfg: cfg}
}

// Path returns the absolute configuration file path.
func (p *Provider) Path() string {
	return p.path
}

// BaseDir returns the directory containing the configuration file.
// Relative paths inside the configuration resolve against it.
func (p *Provider) BaseDir() string {
	return filepath.Dir(p.path)
}

// Get returns the current configuration, ErrNotConfigured if nothing
// was ever loaded, or the last load error.
func (p *Provider) Get() (*ShootConfig, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.cfg != nil {
		return p.cfg, nil
	}
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return nil, ErrNotConfigured
}

// Reload loads the configuration file from disk. On failure the
// previous configuration (if any) stays active and the error is
// recorded for Get callers that have nothing else.
func (p *Provider) Reload() (*ShootConfig, error) {
	cfg, err := Load(p.path, p.opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.loadErr = err
		return nil, err
	}
	p.cfg = cfg
	p.loadErr = nil
	return cfg, nil
}

// Watch reloads the configuration whenever the file changes on disk.
// Invalid configurations are logged and skipped; the previous valid
// configuration stays active. Watching stops when ctx is cancelled or
// the provider is closed.
func (p *Provider) Watch(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("provider is closed")
	}
	if p.watcher != nil {
		p.mu.Unlock()
		return fmt.Errorf("already watching %s", p.path)
	}
	watchCtx, cancel := context.WithCancel(ctx)
	p.watcher = cancel
	p.mu.Unlock()

	ch, err := watchFile(watchCtx, p.path)
	if err != nil {
		cancel()
		p.mu.Lock()
		p.watcher = nil
		p.mu.Unlock()
		return err
	}

	go func() {
		for range ch {
			if _, err := p.Reload(); err != nil {
				slog.Error("Config reload failed, keeping previous configuration", "path", p.path, "error", err)
				continue
			}
			slog.Info("Configuration reloaded", "path", p.path)
		}
	}()

	slog.Info("Watching config file", "path", p.path)
	return nil
}

// Close stops any active watch. The last loaded configuration remains
// available through Get.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.watcher != nil {
		p.watcher()
		p.watcher = nil
	}
	return nil
}

// debounceDelay coalesces the bursts of write events editors and
// kubelet config-map syncs produce into a single reload.
const debounceDelay = 100 * time.Millisecond
