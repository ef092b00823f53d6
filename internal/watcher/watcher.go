// Package watcher reloads the config file when it changes on disk.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nghyane/inkledger/internal/config"
	log "github.com/nghyane/inkledger/internal/logging"
)

const defaultDebounce = 250 * time.Millisecond

// ReloadFunc receives the previous and the freshly loaded config.
type ReloadFunc func(oldCfg, newCfg *config.Config)

type Option func(*Watcher)

// WithPrepare runs fn on every loaded config before it is compared, e.g. to
// reapply environment overrides.
func WithPrepare(fn func(*config.Config)) Option {
	return func(w *Watcher) { w.prepare = fn }
}

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher watches the config file's directory, since editors often replace
// files by rename rather than writing in place.
type Watcher struct {
	path     string
	onReload ReloadFunc
	prepare  func(*config.Config)
	debounce time.Duration

	reloadMu sync.Mutex

	mu      sync.Mutex
	current *config.Config
	hash    string
	timer   *time.Timer

	fsw  *fsnotify.Watcher
	stop chan struct{}
	wg   sync.WaitGroup
}

func New(path string, current *config.Config, onReload ReloadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onReload: onReload,
		debounce: defaultDebounce,
		current:  current,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.hash = computeContentHash(data)
	}
	return w
}

// Current returns the most recently applied config.
func (w *Watcher) Current() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watcher: watch %s: %w", dir, err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					w.schedule()
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("config watcher error")
			case <-w.stop:
				return
			}
		}
	}()
	log.Debugf("watching %s for changes", w.path)
	return nil
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if _, err := w.Reload(); err != nil {
			log.WithError(err).Warn("config reload skipped, keeping previous config")
		}
	})
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
	}
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	w.wg.Wait()
}

// Reload reads the config file and applies it when its content changed.
// It reports whether a new config was applied. A file that fails to parse or
// validate leaves the current config in place.
func (w *Watcher) Reload() (bool, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("watcher: read config: %w", err)
	}
	hash := computeContentHash(data)

	w.mu.Lock()
	unchanged := hash == w.hash
	w.mu.Unlock()
	if unchanged {
		return false, nil
	}

	newCfg, err := config.Parse(data, filepath.Ext(w.path))
	if err != nil {
		return false, err
	}
	if w.prepare != nil {
		w.prepare(newCfg)
	}

	w.mu.Lock()
	oldCfg := w.current
	w.current = newCfg
	w.hash = hash
	w.mu.Unlock()

	changes := buildConfigChangeDetails(oldCfg, newCfg)
	if len(changes) == 0 {
		log.Debug("config file rewritten with no effective changes")
	} else {
		log.Infof("config reloaded, %d change(s):", len(changes))
		for _, c := range changes {
			log.Infof("  %s", c)
		}
	}
	if w.onReload != nil {
		w.onReload(oldCfg, newCfg)
	}
	return true, nil
}
