// Package filewatcher monitors a drop directory for documents to ingest.
package filewatcher

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/abdullahrasheed837/smart-pdfs-docs-rag/internal/domain/ports"
)

// defaultExtensions are the document types picked up from a watched directory.
var defaultExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// DirWatcher implements ports.FileWatcher on top of fsnotify.
type DirWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
}

// NewDirWatcher creates a watcher filtering on the given extensions.
// Passing nil selects the supported document extensions.
func NewDirWatcher(extensions []string) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(extensions) == 0 {
		extensions = defaultExtensions
	}
	return &DirWatcher{watcher: w, extensions: extensions}, nil
}

// Watch starts monitoring dir and emits events until ctx is cancelled.
func (w *DirWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.watched(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op.Has(fsnotify.Create):
					op = ports.FileCreated
				case event.Op.Has(fsnotify.Write):
					op = ports.FileModified
				case event.Op.Has(fsnotify.Remove):
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[ERROR] watching directory: %v", err)
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *DirWatcher) Stop() error {
	return w.watcher.Close()
}

// watched filters out hidden files and unsupported extensions.
func (w *DirWatcher) watched(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
