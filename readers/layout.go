package readers

import (
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	defaultFontSize = 10
	// a row gap this many times the page's line height starts a new paragraph
	paragraphGap = 1.5
)

type textRow struct {
	y        float64
	fontSize float64
	items    []pdf.Text
}

// layoutText rebuilds page text from positioned glyphs. Glyphs sharing a
// baseline form a line, lines are ordered top to bottom, and a vertical gap
// noticeably larger than the page's line spacing becomes a blank line.
func layoutText(glyphs []pdf.Text) string {
	rows := groupRows(glyphs)
	if len(rows) == 0 {
		return ""
	}

	lineHeight := pageLineHeight(rows)

	var sb strings.Builder
	for i, row := range rows {
		line := rowText(row)
		if line == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteByte('\n')
			if gap := rows[i-1].y - row.y; gap > paragraphGap*lineHeight {
				sb.WriteByte('\n')
			}
		}
		sb.WriteString(line)
	}

	return sb.String()
}

func groupRows(glyphs []pdf.Text) []textRow {
	items := make([]pdf.Text, 0, len(glyphs))
	for _, g := range glyphs {
		if strings.Trim(g.S, "\r\n") == "" {
			continue
		}
		items = append(items, g)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Y > items[j].Y
	})

	var rows []textRow
	for _, it := range items {
		size := fontSize(it)
		if n := len(rows); n > 0 && rows[n-1].y-it.Y < 0.5*max(size, rows[n-1].fontSize) {
			rows[n-1].items = append(rows[n-1].items, it)
			rows[n-1].fontSize = max(rows[n-1].fontSize, size)
			continue
		}
		rows = append(rows, textRow{y: it.Y, fontSize: size, items: []pdf.Text{it}})
	}

	return rows
}

// pageLineHeight is the smallest gap between consecutive rows, capped at
// twice the font size so pages of one-line paragraphs still split.
func pageLineHeight(rows []textRow) float64 {
	size := 0.0
	for _, r := range rows {
		size = max(size, r.fontSize)
	}

	h := 2 * size
	for i := 1; i < len(rows); i++ {
		if gap := rows[i-1].y - rows[i].y; gap > 0 {
			h = min(h, gap)
		}
	}

	return max(h, size)
}

func rowText(row textRow) string {
	items := row.items
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].X < items[j].X
	})

	var sb strings.Builder
	var prev *pdf.Text
	for i := range items {
		it := &items[i]
		if prev != nil && it.X-(prev.X+prev.W) > 0.25*fontSize(*it) &&
			!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(it.S, " ") {
			sb.WriteByte(' ')
		}
		sb.WriteString(it.S)
		prev = it
	}

	return strings.TrimSpace(sb.String())
}

func fontSize(t pdf.Text) float64 {
	if t.FontSize > 0 {
		return t.FontSize
	}
	return defaultFontSize
}
