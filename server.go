package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gamma-omg/rag-themes/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type queryAnswerer interface {
	AnswerQuery(ctx context.Context, query string) (pipeline.Answer, error)
	Documents() []string
}

type ragTools struct {
	corpus queryAnswerer
}

func NewRagServer(corpus queryAnswerer) *server.MCPServer {
	tools := &ragTools{corpus: corpus}

	answer := mcp.NewTool("answer_query",
		mcp.WithDescription("Answers a question from every ingested document with page and paragraph citations, and groups the answers into themes"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Question to ask the document corpus"),
		))

	list := mcp.NewTool("list_documents",
		mcp.WithDescription("Lists the ids of every ingested document"))

	srv := server.NewMCPServer("rag-themes", "0.1.0", server.WithToolCapabilities(false))
	srv.AddTool(answer, tools.answerQuery)
	srv.AddTool(list, tools.listDocuments)

	return srv
}

func (t *ragTools) answerQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := t.corpus.AnswerQuery(ctx, q)
	if errors.Is(err, pipeline.ErrEmptyQuery) {
		return mcp.NewToolResultError("query must not be empty"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(raw)), nil
}

func (t *ragTools) listDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(struct {
		Documents []string `json:"documents"`
	}{
		Documents: t.corpus.Documents(),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(raw)), nil
}
