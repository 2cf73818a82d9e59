package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/gamma-omg/rag-themes/docstore"
	"github.com/gamma-omg/rag-themes/ocr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *Config {
	cfg := &Config{}
	cfg.Store.Type = storeMemory
	cfg.applyDefaults()
	return cfg
}

func Test_initDocStore_Memory(t *testing.T) {
	store, err := initDocStore(context.Background(), memoryConfig(), false)
	require.NoError(t, err)
	assert.IsType(t, &docstore.MemoryStore{}, store)
}

func Test_createEmbeddingFunction_None(t *testing.T) {
	_, err := createEmbeddingFunction(memoryConfig())
	assert.ErrorIs(t, err, errNoEmbeddings)
}

func Test_initOCR_Tesseract(t *testing.T) {
	engine, closeFn, err := initOCR(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer closeFn()

	assert.Equal(t, &ocr.Tesseract{Languages: []string{"eng"}}, engine)
}

func Test_initExtractor(t *testing.T) {
	ext := initExtractor(memoryConfig(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for _, f := range []string{"a.txt", "a.pdf", "a.png", "a.docx"} {
		assert.True(t, ext.CanRead(f), f)
	}
	assert.False(t, ext.CanRead("a.exe"))

	res, err := ext.Extract(context.Background(), []byte("one\n\ntwo"), "notes.md")
	require.NoError(t, err)
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "one\n\ntwo", res.Pages[0].Text)
}

func Test_initModel(t *testing.T) {
	cfg := memoryConfig()
	c, err := initModel(cfg, cfg.LLM.Stage2, themeSystemPrompt)
	require.NoError(t, err)
	assert.Equal(t, "llama3-70b-8192", c.Model())
}
