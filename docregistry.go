package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/gamma-omg/rag-themes/readers"
)

type documentIngester interface {
	IngestDocument(ctx context.Context, data []byte, filename string) (pipeline.IngestResult, error)
}

type fileFilter interface {
	CanRead(filename string) bool
}

// DocRegistry keeps the corpus in step with the files under root. Removed
// files stay in the corpus; reset clears it.
type DocRegistry struct {
	log              *slog.Logger
	root             string
	mergeEventsDelay time.Duration
	ingester         documentIngester
	filter           fileFilter

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Sync ingests every supported file found under root.
func (dr *DocRegistry) Sync(ctx context.Context) error {
	files, err := dr.collectDocs()
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dr.ingestFile(ctx, f)
	}

	return nil
}

// Watch starts watching root and returns. Events are processed until ctx
// is cancelled.
func (dr *DocRegistry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	err = filepath.WalkDir(dr.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dr.root, err)
	}

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				dr.stopPending()
				return
			case e, ok := <-watcher.Events:
				if !ok {
					return
				}
				dr.handleEvent(ctx, watcher, e)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				dr.log.Error("watcher error", "error", err)
			}
		}
	}()

	return nil
}

func (dr *DocRegistry) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, e fsnotify.Event) {
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(e.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if err := watcher.Add(e.Name); err != nil {
			dr.log.Error("failed to watch directory", "dir", e.Name, "error", err)
		}
		return
	}

	if !dr.filter.CanRead(e.Name) {
		return
	}

	dr.schedule(ctx, e.Name)
}

// schedule merges bursts of events for one file into a single ingest.
func (dr *DocRegistry) schedule(ctx context.Context, path string) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.pending == nil {
		dr.pending = make(map[string]*time.Timer)
	}

	if t, ok := dr.pending[path]; ok {
		t.Stop()
	}

	dr.pending[path] = time.AfterFunc(dr.mergeEventsDelay, func() {
		dr.mu.Lock()
		delete(dr.pending, path)
		dr.mu.Unlock()

		dr.ingestFile(ctx, path)
	})
}

func (dr *DocRegistry) stopPending() {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	for path, t := range dr.pending {
		t.Stop()
		delete(dr.pending, path)
	}
}

func (dr *DocRegistry) collectDocs() (docs []string, err error) {
	err = filepath.WalkDir(dr.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		if !dr.filter.CanRead(path) {
			dr.log.Warn(fmt.Sprintf("unsupported file: %s", path))
			return nil
		}

		docs = append(docs, path)
		return nil
	})

	return
}

func (dr *DocRegistry) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		dr.log.Error("failed to read document", "file", path, "error", err)
		return
	}

	res, err := dr.ingester.IngestDocument(ctx, data, path)
	if errors.Is(err, readers.ErrUnsupportedType) {
		dr.log.Warn("unsupported file", "file", path)
		return
	}
	if err != nil {
		dr.log.Error("failed to ingest document", "file", path, "error", err)
		return
	}

	for _, w := range res.Warnings {
		dr.log.Warn("ingest warning", "file", path, "doc_id", res.DocID, "warning", w)
	}
}
