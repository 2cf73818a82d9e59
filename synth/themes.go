package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// ThemeSynthesizer groups cited answers from several documents into themes.
type ThemeSynthesizer struct {
	model Completer
	log   *slog.Logger
}

func NewThemeSynthesizer(model Completer, log *slog.Logger) *ThemeSynthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &ThemeSynthesizer{model: model, log: log.With("component", "theme_synth")}
}

// Synthesize returns the themes the model found across answers. Malformed
// themes are dropped one by one. Only a failed model call is an error.
func (s *ThemeSynthesizer) Synthesize(ctx context.Context, query string, answers []CitedAnswer) ([]Theme, error) {
	if len(answers) == 0 {
		return []Theme{}, nil
	}

	prompt, err := renderThemePrompt(query, answers)
	if err != nil {
		return nil, err
	}

	raw, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to complete themes: %w", err)
	}

	known := make(map[string]bool, len(answers))
	for _, a := range answers {
		known[a.DocID] = true
	}

	themes, problems := parseThemes(raw, known)
	for _, p := range problems {
		s.log.Warn("discarding theme", "reason", p)
	}

	return themes, nil
}

// themesValue accepts an object with a themes member or a bare list of
// theme objects; citation markers like [1] in prose are not themes.
func themesValue(v json.RawMessage) bool {
	return objectWithAny("themes")(v) || arrayOfObjects(v)
}

func parseThemes(raw string, known map[string]bool) ([]Theme, []string) {
	values := topLevelValues(raw, themesValue, 1)
	if len(values) == 0 {
		return []Theme{}, []string{"no JSON value in reply"}
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(values[0], &entries); err != nil {
		m, ok := fields(values[0])
		if !ok {
			return []Theme{}, []string{"reply is neither a theme list nor an object"}
		}
		list, present := m["themes"]
		if !present || json.Unmarshal(list, &entries) != nil {
			return []Theme{}, []string{"reply has no themes array"}
		}
	}

	themes := []Theme{}
	var problems []string
	for i, e := range entries {
		t, err := parseTheme(e, known)
		if err != nil {
			problems = append(problems, fmt.Sprintf("theme %d: %s", i, err))
			continue
		}
		if len(t.SupportingDocIDs) == 0 {
			continue
		}
		themes = append(themes, t)
	}

	return themes, problems
}

func parseTheme(v json.RawMessage, known map[string]bool) (Theme, error) {
	m, ok := fields(v)
	if !ok {
		return Theme{}, fmt.Errorf("not an object")
	}

	title, ok := stringField(m, "title")
	if !ok || strings.TrimSpace(title) == "" {
		return Theme{}, fmt.Errorf("title missing or blank")
	}

	summary, ok := stringField(m, "summary")
	if !ok || strings.TrimSpace(summary) == "" {
		return Theme{}, fmt.Errorf("summary missing or blank")
	}

	rawIDs, ok := m["supporting_doc_ids"]
	if !ok || isNull(rawIDs) {
		return Theme{}, fmt.Errorf("supporting_doc_ids missing")
	}
	var ids []string
	if err := json.Unmarshal(rawIDs, &ids); err != nil {
		return Theme{}, fmt.Errorf("supporting_doc_ids is not a list of strings")
	}

	seen := make(map[string]bool, len(ids))
	supporting := []string{}
	for _, id := range ids {
		if !known[id] || seen[id] {
			continue
		}
		seen[id] = true
		supporting = append(supporting, id)
	}

	return Theme{
		Title:            strings.TrimSpace(title),
		Summary:          strings.TrimSpace(summary),
		SupportingDocIDs: supporting,
	}, nil
}
