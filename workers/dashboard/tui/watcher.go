package tui

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 500 * time.Millisecond

// Watcher reports changes to the artifact directory. Bursts of events, such
// as a cleaned CSV followed by its summary, collapse into one notification.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	changes  chan struct{}
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(dir string, logger *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", dir)
	}
	return &Watcher{
		dir:      dir,
		watcher:  fw,
		changes:  make(chan struct{}, 1),
		debounce: watchDebounce,
		logger:   logger,
	}, nil
}

// Changes is signalled at most once per debounce period.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run consumes fsnotify events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	defer func() { _ = w.watcher.Close() }()
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if relevant(event) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("artifact watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// relevant drops chmod events and in-flight temp files.
func relevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".tmp-") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)
}
