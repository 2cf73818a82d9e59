package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/gamma-omg/rag-themes/synth"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCorpus struct {
	mock.Mock
}

func (m *mockCorpus) AnswerQuery(ctx context.Context, query string) (pipeline.Answer, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(pipeline.Answer), args.Error(1)
}

func (m *mockCorpus) Documents() []string {
	return m.Called().Get(0).([]string)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func Test_answerQuery(t *testing.T) {
	corpus := new(mockCorpus)
	corpus.On("AnswerQuery", mock.Anything, "what fines?").Return(pipeline.Answer{
		QueryID:            "q1",
		PerDocumentAnswers: []synth.CitedAnswer{{DocID: "d1", AnswerText: "500", SourcePage: 2, SourceParagraph: 1}},
		Themes:             []synth.Theme{{Title: "Fines", Summary: "s", SupportingDocIDs: []string{"d1"}}},
		Warnings:           []string{},
	}, nil)

	tools := &ragTools{corpus: corpus}
	res, err := tools.answerQuery(context.Background(), callRequest(map[string]any{"query": "what fines?"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got struct {
		PerDocumentAnswers []map[string]any `json:"per_document_answers"`
		Themes             []map[string]any `json:"themes"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	require.Len(t, got.PerDocumentAnswers, 1)
	assert.Equal(t, "d1", got.PerDocumentAnswers[0]["doc_id"])
	assert.Equal(t, float64(2), got.PerDocumentAnswers[0]["source_page"])
	require.Len(t, got.Themes, 1)
	assert.Equal(t, []any{"d1"}, got.Themes[0]["supporting_doc_ids"])

	corpus.AssertExpectations(t)
}

func Test_answerQuery_Errors(t *testing.T) {
	corpus := new(mockCorpus)
	corpus.On("AnswerQuery", mock.Anything, " ").Return(pipeline.Answer{}, pipeline.ErrEmptyQuery)
	corpus.On("AnswerQuery", mock.Anything, "boom").Return(pipeline.Answer{}, errors.New("context canceled"))
	tools := &ragTools{corpus: corpus}

	res, err := tools.answerQuery(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tools.answerQuery(context.Background(), callRequest(map[string]any{"query": " "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "empty")

	res, err = tools.answerQuery(context.Background(), callRequest(map[string]any{"query": "boom"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func Test_listDocuments(t *testing.T) {
	corpus := new(mockCorpus)
	corpus.On("Documents").Return([]string{"a", "b"})
	tools := &ragTools{corpus: corpus}

	res, err := tools.listDocuments(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"documents":["a","b"]}`, resultText(t, res))
}

func Test_NewRagServer(t *testing.T) {
	assert.NotNil(t, NewRagServer(new(mockCorpus)))
}
