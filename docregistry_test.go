package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type txtFilter struct{}

func (txtFilter) CanRead(path string) bool {
	return filepath.Ext(path) == ".txt"
}

type fakeIngester struct {
	mu    sync.Mutex
	calls map[string][]string
	err   error
}

func (f *fakeIngester) IngestDocument(_ context.Context, data []byte, filename string) (pipeline.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls == nil {
		f.calls = make(map[string][]string)
	}
	name := filepath.Base(filename)
	f.calls[name] = append(f.calls[name], string(data))

	return pipeline.IngestResult{DocID: pipeline.DocID(filename), Warnings: []string{"page 1: ocr failed"}}, f.err
}

func (f *fakeIngester) snapshot() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := make(map[string][]string, len(f.calls))
	for k, v := range f.calls {
		res[k] = append([]string(nil), v...)
	}
	return res
}

func newTestRegistry(root string, ingester documentIngester) *DocRegistry {
	return &DocRegistry{
		log:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		root:             root,
		mergeEventsDelay: 50 * time.Millisecond,
		ingester:         ingester,
		filter:           txtFilter{},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func Test_Sync(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "f1.txt", "f1")
	writeFile(t, tmp, "nested/f2.txt", "f2")
	writeFile(t, tmp, "tool.bin", "bin")

	ingester := &fakeIngester{}
	reg := newTestRegistry(tmp, ingester)

	require.NoError(t, reg.Sync(context.Background()))

	assert.Equal(t, map[string][]string{"f1.txt": {"f1"}, "f2.txt": {"f2"}}, ingester.snapshot())
}

func Test_Sync_IngestErrorsDoNotStop(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "f1.txt", "f1")
	writeFile(t, tmp, "f2.txt", "f2")

	ingester := &fakeIngester{err: errors.New("store down")}
	reg := newTestRegistry(tmp, ingester)

	require.NoError(t, reg.Sync(context.Background()))
	assert.Len(t, ingester.snapshot(), 2)
}

func Test_Sync_MissingRoot(t *testing.T) {
	reg := newTestRegistry(filepath.Join(t.TempDir(), "missing"), &fakeIngester{})
	assert.Error(t, reg.Sync(context.Background()))
}

func Test_collectDocs(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "f1.txt", "f1 content")
	writeFile(t, tmp, "f2.txt", "f2 content")
	writeFile(t, tmp, "unsupported.bin", "f3 content")

	reg := newTestRegistry(tmp, &fakeIngester{})

	docs, err := reg.collectDocs()
	require.NoError(t, err)

	var files []string
	for _, d := range docs {
		files = append(files, filepath.Base(d))
	}
	assert.ElementsMatch(t, []string{"f1.txt", "f2.txt"}, files)
}

func Test_Watch(t *testing.T) {
	tmp := t.TempDir()
	ingester := &fakeIngester{}
	reg := newTestRegistry(tmp, ingester)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, reg.Watch(ctx))

	writeFile(t, tmp, "f1.txt", "draft")
	writeFile(t, tmp, "f1.txt", "final")
	writeFile(t, tmp, "ignored.bin", "x")

	require.Eventually(t, func() bool {
		return len(ingester.snapshot()["f1.txt"]) == 1
	}, 2*time.Second, 20*time.Millisecond)

	time.Sleep(150 * time.Millisecond)
	calls := ingester.snapshot()
	assert.Equal(t, []string{"final"}, calls["f1.txt"])
	assert.NotContains(t, calls, "ignored.bin")
}

func Test_Watch_NewDirectory(t *testing.T) {
	tmp := t.TempDir()
	ingester := &fakeIngester{}
	reg := newTestRegistry(tmp, ingester)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, reg.Watch(ctx))

	require.NoError(t, os.Mkdir(filepath.Join(tmp, "sub"), 0o755))
	time.Sleep(100 * time.Millisecond)
	writeFile(t, tmp, "sub/f2.txt", "f2")

	require.Eventually(t, func() bool {
		return len(ingester.snapshot()["f2.txt"]) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func Test_Watch_StopsOnCancel(t *testing.T) {
	tmp := t.TempDir()
	ingester := &fakeIngester{}
	reg := newTestRegistry(tmp, ingester)
	reg.mergeEventsDelay = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, reg.Watch(ctx))

	writeFile(t, tmp, "f1.txt", "f1")
	time.Sleep(50 * time.Millisecond)
	cancel()

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, ingester.snapshot())
}
