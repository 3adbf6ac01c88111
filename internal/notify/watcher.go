// Package notify watches the entity collection for file changes and
// triggers debounced re-enrichment, backing weaver-enrich --watch.
package notify

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CollectionWatcher watches the collection root (recursively) for markdown
// changes and invokes a callback after a quiet period. Bursts of writes,
// like an editor saving many files or an enrichment pass committing edges,
// collapse into a single callback.
type CollectionWatcher struct {
	root     string
	debounce time.Duration
	callback func()
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewCollectionWatcher creates a watcher over root. debounce is the quiet
// period after the last change before callback fires.
func NewCollectionWatcher(root string, debounce time.Duration, callback func()) *CollectionWatcher {
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	return &CollectionWatcher{
		root:     root,
		debounce: debounce,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching the root and its subdirectories. Call Stop to
// clean up.
func (cw *CollectionWatcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	cw.watcher = w

	if err := cw.addRecursive(cw.root); err != nil {
		_ = w.Close()
		return err
	}

	go cw.loop()
	log.Printf("notify: watching %s for collection changes", cw.root)
	return nil
}

// Stop shuts down the watcher.
func (cw *CollectionWatcher) Stop() {
	if cw.watcher != nil {
		_ = cw.watcher.Close()
	}
	<-cw.done
}

func (cw *CollectionWatcher) loop() {
	defer close(cw.done)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case evt, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !cw.relevant(evt) {
				continue
			}
			if evt.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					_ = cw.addRecursive(evt.Name)
					continue
				}
			}
			if timer == nil {
				timer = time.NewTimer(cw.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(cw.debounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			if cw.callback != nil {
				cw.callback()
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

// relevant reports whether the event should trigger re-enrichment. Only
// markdown writes count; hidden directories and the run-history database
// are ignored so enrichment's own bookkeeping never retriggers it.
func (cw *CollectionWatcher) relevant(evt fsnotify.Event) bool {
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(cw.root, evt.Name)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	if evt.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
			return true // new subdirectory, needs a watch
		}
	}
	return strings.HasSuffix(evt.Name, ".md") || strings.HasSuffix(evt.Name, ".yaml")
}

func (cw *CollectionWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return cw.watcher.Add(path)
	})
}
