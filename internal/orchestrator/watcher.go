package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/YuminosukeSato/codex-sdd/internal/logging"
)

// artifactWatcher logs run artifacts as agents write them, giving the
// operator progress feedback during long dispatches. It is purely
// observational; dispatch correctness never depends on it.
type artifactWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// watchArtifacts watches the run directory for created or written
// artifact files and logs each one.
func watchArtifacts(runDir string, log *logging.Logger) (*artifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// fsnotify works more reliably on directories than on files that may
	// not exist yet.
	if err := watcher.Add(runDir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &artifactWatcher{watcher: watcher, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		seen := make(map[string]bool)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				name := filepath.Base(event.Name)
				if !strings.HasSuffix(name, ".md") || seen[name] {
					continue
				}
				seen[name] = true
				log.Info("artifact written", "artifact", name)
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return w, nil
}

// Close stops watching and waits for the event loop to drain.
func (w *artifactWatcher) Close() {
	w.watcher.Close()
	<-w.done
}
