package synth

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/gamma-omg/rag-themes/docstore"
)

var answerPrompt = template.Must(template.New("answer").Parse(`You are a precise data extraction assistant. Answer the user's question using only the context snippets below, all taken from document {{.DocID}}.

Rules:
1. Read every <source> snippet in the context and ignore any other knowledge.
2. Combine them into ONE consolidated answer.
3. Reply with exactly ONE JSON object and nothing else. Never emit several objects.
4. The object has these keys:
   - "answer_text" (string): the consolidated answer.
   - "source_page" (integer): the page attribute of the most relevant snippet.
   - "source_paragraph" (integer): the paragraph attribute of the same snippet.
   - "is_relevant" (boolean): false when no snippet answers the question.
5. Cite only page and paragraph pairs that appear in the context.

Example:
{"answer_text": "The fine was imposed for late filing of returns.", "source_page": 4, "source_paragraph": 2, "is_relevant": true}

CONTEXT:
---
{{range .Snippets}}<source page='{{.Page}}' paragraph='{{.Paragraph}}'>
{{.Content}}
</source>

{{end}}---
QUESTION: {{.Query}}

JSON RESPONSE:`))

var themePrompt = template.Must(template.New("themes").Parse(`You are a research analyst. Identify 2-4 distinct themes across the answers below for the question: '{{.Query}}'.

Reply with a single JSON object of this shape:
{"themes": [{"title": "string", "summary": "string", "supporting_doc_ids": ["doc_id_1", "doc_id_2"]}]}

Every theme must have all three keys. Use only doc ids that appear in the answers.

Example:
{"themes": [{"title": "Regulatory penalties", "summary": "Several documents describe fines for late filings.", "supporting_doc_ids": ["a1b2c3d4e5", "f6a7b8c9d0"]}]}

ANSWERS:
---
{{range .Answers}}<answer doc_id='{{.DocID}}'>
{{.AnswerText}}
</answer>

{{end}}---
JSON RESPONSE:`))

func renderAnswerPrompt(docID, query string, snippets []docstore.Snippet) (string, error) {
	return render(answerPrompt, struct {
		DocID    string
		Query    string
		Snippets []docstore.Snippet
	}{docID, query, snippets})
}

func renderThemePrompt(query string, answers []CitedAnswer) (string, error) {
	return render(themePrompt, struct {
		Query   string
		Answers []CitedAnswer
	}{query, answers})
}

func render(t *template.Template, data any) (string, error) {
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return strings.TrimSpace(b.String()), nil
}
