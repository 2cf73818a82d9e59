// Package synth turns retrieved snippets into cited per-document answers
// and groups those answers into cross-document themes.
package synth

import "context"

// Completer sends a prompt to a language model and returns the raw reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CitedAnswer is a validated answer for one document. The citation always
// names a snippet that was given to the model.
type CitedAnswer struct {
	DocID           string `json:"doc_id"`
	AnswerText      string `json:"answer_text"`
	SourcePage      int    `json:"source_page"`
	SourceParagraph int    `json:"source_paragraph"`
}

// Theme is a topic shared by one or more answered documents.
type Theme struct {
	Title            string   `json:"title"`
	Summary          string   `json:"summary"`
	SupportingDocIDs []string `json:"supporting_doc_ids"`
}
