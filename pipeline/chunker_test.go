package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/gamma-omg/rag-themes/docstore"
	"github.com/gamma-omg/rag-themes/readers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Paragraphs(t *testing.T) {
	var cases = []struct {
		text   string
		output []string
	}{
		{text: "one\n\ntwo\n\nthree", output: []string{"one", "two", "three"}},
		{text: "one\r\n\r\ntwo", output: []string{"one", "two"}},
		{text: "one\n   \t\ntwo", output: []string{"one", "two"}},
		{text: "\n\n  one\nstill one  \n\n\n\ntwo\n\n", output: []string{"one\nstill one", "two"}},
		{text: "single line", output: []string{"single line"}},
		{text: "   \n\n \n", output: nil},
		{text: "", output: nil},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			var out []string
			for s := range Paragraphs("d", []readers.Page{{Number: 1, Text: c.text}}) {
				out = append(out, s.Content)
			}
			assert.Equal(t, c.output, out)
		})
	}
}

func Test_Paragraphs_NumberingPerPage(t *testing.T) {
	pages := []readers.Page{
		{Number: 1, Text: "a\n\nb\n\nc"},
		{Number: 2, Text: ""},
		{Number: 3, Text: "d\n\ne"},
	}

	got := slices.Collect(Paragraphs("doc", pages))

	assert.Equal(t, []docstore.Snippet{
		{DocID: "doc", Content: "a", Page: 1, Paragraph: 1},
		{DocID: "doc", Content: "b", Page: 1, Paragraph: 2},
		{DocID: "doc", Content: "c", Page: 1, Paragraph: 3},
		{DocID: "doc", Content: "d", Page: 3, Paragraph: 1},
		{DocID: "doc", Content: "e", Page: 3, Paragraph: 2},
	}, got)
}

func Test_Paragraphs_Restartable(t *testing.T) {
	seq := Paragraphs("doc", []readers.Page{{Number: 1, Text: "a\n\nb"}, {Number: 2, Text: "c"}})

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func Test_Paragraphs_StopsEarly(t *testing.T) {
	n := 0
	for range Paragraphs("doc", []readers.Page{{Number: 1, Text: "a\n\nb\n\nc"}}) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func Test_Paragraphs_NeverEmpty(t *testing.T) {
	text := strings.Repeat("word \n \n\n\t\n", 20) + "end"
	for s := range Paragraphs("doc", []readers.Page{{Number: 1, Text: text}}) {
		require.NotEmpty(t, strings.TrimSpace(s.Content))
	}
}

func Test_DocID(t *testing.T) {
	id := DocID("Report.PDF")
	assert.Len(t, id, 10)
	assert.Equal(t, id, DocID("report.pdf"))
	assert.Equal(t, id, DocID("/uploads/report.pdf"))
	assert.NotEqual(t, id, DocID("other.pdf"))
}
