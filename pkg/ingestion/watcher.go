package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures the commitments directory watcher.
type WatcherConfig struct {
	// Dir is the directory holding commitment markdown files.
	Dir string `yaml:"dir"`

	// DebounceInterval is how long to wait after the last event before
	// re-ingesting, to absorb editor write bursts.
	// Default: 500ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Extensions limits which files trigger ingestion.
	// Default: .md, .markdown, .txt
	Extensions []string `yaml:"extensions"`
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: 500 * time.Millisecond,
		Extensions:       []string{".md", ".markdown", ".txt"},
	}
}

// Watcher re-ingests commitment files when they change on disk. Events
// are debounced per file so a stream of editor writes produces one
// ingestion.
type Watcher struct {
	ingester *Ingester
	config   *WatcherConfig
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher creates a watcher over the given ingester.
func NewWatcher(ingester *Ingester, config *WatcherConfig) (*Watcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("watcher requires a directory")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultWatcherConfig().Extensions
	}
	return &Watcher{
		ingester: ingester,
		config:   config,
		logger:   slog.Default().With("component", "ingestion.watcher"),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch blocks processing file events until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.config.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.config.Dir, err)
	}
	w.logger.Info("watching commitments directory",
		"dir", w.config.Dir,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			w.schedule(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching despite transient errors.
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range w.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}

// schedule arms (or re-arms) the per-file debounce timer.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.config.DebounceInterval, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.ingester.IngestFile(ctx, path); err != nil {
			w.logger.Error("re-ingestion failed", "path", path, "error", err)
			return
		}
		w.logger.Info("commitment re-ingested", "path", path)
	})
}
