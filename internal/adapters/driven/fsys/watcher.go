package fsys

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ecaudit/internal/logger"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports schema file changes under a set of roots.
// Bursts of events are coalesced into one batch of changed paths.
type Watcher struct {
	Suffix   string
	Debounce time.Duration
}

// NewWatcher creates a watcher for files ending in suffix.
func NewWatcher(suffix string) *Watcher {
	return &Watcher{Suffix: suffix, Debounce: DefaultDebounce}
}

// Watch starts watching roots and every directory below them. Each value
// sent on the returned channel is a sorted batch of changed paths. The
// channel is closed when ctx is done.
func (w *Watcher) Watch(ctx context.Context, roots []string) (<-chan []string, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, root := range roots {
		if err := addTree(fw, root); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}

	out := make(chan []string)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- []string) {
	defer close(out)
	defer fw.Close()

	log := logger.With("watcher")
	pending := make(map[string]bool)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addTree(fw, event.Name)
					continue
				}
			}
			if !w.relevant(event) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.Debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watch error")
		case <-timer.C:
			batch := make([]string, 0, len(pending))
			for p := range pending {
				batch = append(batch, p)
			}
			pending = make(map[string]bool)
			sort.Strings(batch)
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// relevant reports whether an event concerns a visible schema file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if isHidden(name) {
		return false
	}
	return HasSuffixFold(name, w.Suffix)
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (isHidden(d.Name()) || ignoredDirs[d.Name()]) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
