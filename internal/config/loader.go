package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Loader loads configuration and publishes immutable snapshots. Consumers
// read the current snapshot atomically per request; a reload never mutates
// a published snapshot, it replaces it.
type Loader struct {
	path    string
	current atomic.Pointer[Config]

	log         *zap.Logger
	watcher     *fsnotify.Watcher
	subscribers []chan ConfigUpdate
	mu          sync.RWMutex
	started     bool
	closeCh     chan struct{}
	closeOnce   sync.Once
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger for the loader.
func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader creates a new configuration loader for the given config file.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:    path,
		log:     zap.NewNop(),
		closeCh: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.log = l.log.Named("config-loader")

	return l
}

// Load reads, validates, and publishes the initial configuration snapshot.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	if err := NewConfigValidator().Validate(cfg); err != nil {
		return nil, err
	}

	l.current.Store(cfg)

	l.log.Info("configuration loaded",
		zap.String("path", l.path),
		zap.Strings("allowed_certificate_types", cfg.Authn.AllowedCertificateTypes),
		zap.String("revocation_mode", cfg.Authn.RevocationMode))

	return cfg, nil
}

// Get returns the current configuration snapshot. The returned value is
// immutable; callers must not modify it.
func (l *Loader) Get() *Config {
	return l.current.Load()
}

// StartWatching watches the config file and publishes a new snapshot on
// change. Invalid updates are rejected and the previous snapshot stays
// active.
func (l *Loader) StartWatching(ctx context.Context) error {
	if l.path == "" {
		l.log.Info("no config file path, watching disabled")
		return nil
	}

	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = true
	l.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory containing the file (for atomic writes)
	dir := filepath.Dir(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	l.mu.Lock()
	l.watcher = watcher
	l.mu.Unlock()

	go l.watchLoop(ctx, watcher)

	l.log.Info("started watching for configuration changes",
		zap.String("path", l.path))
	return nil
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	// Debounce timer to avoid multiple reloads for the same write
	var (
		debounceMu    sync.Mutex
		debounceTimer *time.Timer
	)

	for {
		select {
		case <-ctx.Done():
			l.log.Info("stopping config watcher due to context cancellation")
			return

		case <-l.closeCh:
			l.log.Info("stopping config watcher due to close")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if !l.isConfigFile(event.Name) {
				continue
			}

			// Only handle write/create events
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, l.reload)
			debounceMu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.log.Error("config watcher error", zap.Error(err))
		}
	}
}

func (l *Loader) isConfigFile(name string) bool {
	if name == l.path {
		return true
	}
	// Handle symlinked config directories (Kubernetes ConfigMap mounts)
	absName, _ := filepath.Abs(name)
	absPath, _ := filepath.Abs(l.path)
	return absName == absPath
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		l.log.Error("failed to reload config, keeping previous snapshot",
			zap.Error(err))
		return
	}

	if err := NewConfigValidator().Validate(cfg); err != nil {
		l.log.Error("config update rejected: validation failed",
			zap.Error(err))
		return
	}

	l.current.Store(cfg)

	update := ConfigUpdate{
		Version:   time.Now().UTC().Format(time.RFC3339Nano),
		Config:    cfg,
		Timestamp: time.Now(),
		Source:    "file",
	}

	l.log.Info("configuration reloaded",
		zap.String("version", update.Version))

	l.notifySubscribers(update)
}

func (l *Loader) notifySubscribers(update ConfigUpdate) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, ch := range l.subscribers {
		select {
		case ch <- update:
		default:
			l.log.Warn("subscriber channel full, dropping update")
		}
	}
}

// Subscribe returns a channel that receives configuration updates.
func (l *Loader) Subscribe() <-chan ConfigUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan ConfigUpdate, 10)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Stop stops the loader and releases resources.
func (l *Loader) Stop() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = false

	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
