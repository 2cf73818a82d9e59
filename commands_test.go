package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/gamma-omg/rag-themes/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) IngestDocument(ctx context.Context, data []byte, filename string) (pipeline.IngestResult, error) {
	args := m.Called(ctx, data, filename)
	return args.Get(0).(pipeline.IngestResult), args.Error(1)
}

func Test_runIngest(t *testing.T) {
	tmp := t.TempDir()
	a := filepath.Join(tmp, "a.txt")
	b := filepath.Join(tmp, "b.exe")
	c := filepath.Join(tmp, "c.pdf")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("MZ"), 0o644))
	require.NoError(t, os.WriteFile(c, []byte("%PDF"), 0o644))

	ingester := new(mockIngester)
	ingester.On("IngestDocument", mock.Anything, []byte("alpha"), "a.txt").
		Return(pipeline.IngestResult{DocID: "id-a", Snippets: 3}, nil)
	ingester.On("IngestDocument", mock.Anything, []byte("MZ"), "b.exe").
		Return(pipeline.IngestResult{}, errors.New("unsupported file type: .exe"))
	ingester.On("IngestDocument", mock.Anything, []byte("%PDF"), "c.pdf").
		Return(pipeline.IngestResult{DocID: "id-c", Skipped: true, Warnings: []string{"page 2: no text extracted"}}, nil)

	var out bytes.Buffer
	err := runIngest(context.Background(), &out, ingester, []string{a, b, c, filepath.Join(tmp, "missing.txt")})
	assert.ErrorContains(t, err, "2 of 4 files failed")

	text := out.String()
	assert.Contains(t, text, "id-a, 3 snippets")
	assert.Contains(t, text, "unsupported file type")
	assert.Contains(t, text, "already ingested as id-c")
	assert.Contains(t, text, "warning: page 2: no text extracted")
	ingester.AssertExpectations(t)
}

func Test_printAnswer(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printAnswer(&out, pipeline.Answer{
		PerDocumentAnswers: []synth.CitedAnswer{{DocID: "d1", AnswerText: "A fine of 500.", SourcePage: 2, SourceParagraph: 3}},
		Themes:             []synth.Theme{{Title: "Fines", Summary: "Penalties were imposed.", SupportingDocIDs: []string{"d1"}}},
		Warnings:           []string{"d2: retrieval failed"},
	}))

	text := out.String()
	assert.Contains(t, text, "page 2, para 3")
	assert.Contains(t, text, "A fine of 500.")
	assert.Contains(t, text, "1. Fines [d1]")
	assert.Contains(t, text, "Penalties were imposed.")
	assert.Contains(t, text, "warning: d2: retrieval failed")
}

func Test_printAnswer_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printAnswer(&out, pipeline.Answer{}))
	assert.Equal(t, "No document answered the question.\n", out.String())
}
