package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Overlay holds the subset of settings that may change at runtime. It is
// loaded from an optional YAML file and re-read whenever the file changes.
type Overlay struct {
	LogLevel              string  `yaml:"log_level"`
	TurningPointThreshold float64 `yaml:"turning_point_threshold"`
	SnapshotWindow        int     `yaml:"snapshot_window"`
}

// Watcher re-reads the overlay file on filesystem change events and hands the
// merged result to subscribers. Writes are debounced because editors often
// produce several events per save.
type Watcher struct {
	base    *Config
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)

	debounce time.Duration
}

// NewWatcher builds a watcher for the overlay path configured on cfg. When no
// overlay path is set the watcher is inert and Current always returns cfg.
func NewWatcher(cfg *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		base:     cfg,
		path:     cfg.OverlayPath,
		logger:   logger,
		current:  cfg,
		debounce: 200 * time.Millisecond,
	}
	if w.path == "" {
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.watcher = fsw

	// Watch the directory, not the file: editors replace files on save,
	// which drops a watch registered on the file itself.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return nil, err
	}

	if err := w.reload(); err != nil {
		logger.Warn("Initial overlay load failed, using base config",
			zap.String("path", w.path),
			zap.Error(err),
		)
	}
	return w, nil
}

// Current returns the most recently merged configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked with each successfully merged config.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Run blocks processing change events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.watcher == nil {
		<-ctx.Done()
		return nil
	}
	defer w.watcher.Close()

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		case <-pending:
			if err := w.reload(); err != nil {
				w.logger.Warn("Overlay reload failed, keeping previous config",
					zap.String("path", w.path),
					zap.Error(err),
				)
			}
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}

	var overlay Overlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return err
	}

	merged := *w.base
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.TurningPointThreshold > 0 {
		merged.TurningPointThreshold = overlay.TurningPointThreshold
	}
	if overlay.SnapshotWindow > 0 {
		merged.SnapshotWindow = overlay.SnapshotWindow
	}
	if err := merged.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	w.current = &merged
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("Configuration overlay applied",
		zap.String("path", w.path),
		zap.String("log_level", merged.LogLevel),
		zap.Float64("turning_point_threshold", merged.TurningPointThreshold),
		zap.Int("snapshot_window", merged.SnapshotWindow),
	)

	for _, fn := range callbacks {
		fn(&merged)
	}
	return nil
}
