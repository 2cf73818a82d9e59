package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gamma-omg/rag-themes/docstore"
)

var errIrrelevant = errors.New("model marked the snippets as irrelevant")

// AnswerSynthesizer produces a single cited answer for one document.
type AnswerSynthesizer struct {
	model Completer
	log   *slog.Logger
}

func NewAnswerSynthesizer(model Completer, log *slog.Logger) *AnswerSynthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &AnswerSynthesizer{model: model, log: log.With("component", "answer_synth")}
}

// Synthesize asks the model to answer query from snippets. A nil answer with
// a nil error means the document had nothing usable: no snippets, an
// irrelevant verdict or a malformed reply. The error is only set when the
// model call itself fails.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, docID, query string, snippets []docstore.Snippet) (*CitedAnswer, error) {
	if len(snippets) == 0 {
		return nil, nil
	}

	prompt, err := renderAnswerPrompt(docID, query, snippets)
	if err != nil {
		return nil, err
	}

	raw, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to complete answer for %s: %w", docID, err)
	}

	answer, err := parseCitedAnswer(docID, raw, snippets)
	if errors.Is(err, errIrrelevant) {
		s.log.Debug("no relevant answer", "doc_id", docID)
		return nil, nil
	}
	if err != nil {
		s.log.Warn("discarding model answer", "doc_id", docID, "reason", err.Error(), "raw", truncate(raw, 500))
		return nil, nil
	}

	return answer, nil
}

// answerKeys tell a reply object apart from braces quoted in prose.
var answerKeys = []string{"answer_text", "source_page", "source_paragraph", "is_relevant"}

func parseCitedAnswer(docID, raw string, snippets []docstore.Snippet) (*CitedAnswer, error) {
	objects := topLevelValues(raw, objectWithAny(answerKeys...), 0)
	switch len(objects) {
	case 0:
		return nil, errors.New("no JSON object in reply")
	case 1:
	default:
		return nil, fmt.Errorf("expected one JSON object, got %d", len(objects))
	}

	m, ok := fields(objects[0])
	if !ok {
		return nil, errors.New("reply is not a JSON object")
	}

	if v, present := m["is_relevant"]; present && !isNull(v) {
		relevant, ok := boolField(m, "is_relevant")
		if !ok {
			return nil, errors.New("is_relevant is not a boolean")
		}
		if !relevant {
			return nil, errIrrelevant
		}
	}

	text, ok := stringField(m, "answer_text")
	if !ok {
		return nil, errors.New("answer_text missing or not a string")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("answer_text is blank")
	}

	page, ok := intField(m, "source_page")
	if !ok {
		return nil, errors.New("source_page missing or not an integer")
	}

	para, ok := intField(m, "source_paragraph")
	if !ok {
		return nil, errors.New("source_paragraph missing or not an integer")
	}

	if !cites(snippets, page, para) {
		return nil, fmt.Errorf("citation page %d paragraph %d was not retrieved", page, para)
	}

	return &CitedAnswer{
		DocID:           docID,
		AnswerText:      strings.TrimSpace(text),
		SourcePage:      page,
		SourceParagraph: para,
	}, nil
}

func cites(snippets []docstore.Snippet, page, para int) bool {
	for _, s := range snippets {
		if s.Page == page && s.Paragraph == para {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
