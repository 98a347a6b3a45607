package convert

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// span is a run of text sharing one character style.
type span struct {
	text   string
	bold   bool
	italic bool
	size   float64
}

// line is one visual row of a page, split into column segments where the
// horizontal gap is wide enough to separate table cells.
type line struct {
	y        float64
	size     float64
	bold     bool
	spans    []span
	segments []string
}

func (l line) text() string {
	var b strings.Builder
	for _, s := range l.spans {
		b.WriteString(s.text)
	}
	return strings.TrimSpace(b.String())
}

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockTable
)

type block struct {
	kind  blockKind
	level int
	spans []span
	rows  [][]string
}

const (
	lineTolerance = 0.35 // of font size, for glyphs sharing a baseline
	wordGap       = 0.2  // of font size, inserts a space
	columnGap     = 2.0  // of font size, starts a new segment
	paragraphGap  = 1.7  // of font size, max baseline distance inside a paragraph
)

// buildLines groups positioned glyphs into rows, top to bottom.
func buildLines(texts []pdf.Text) []line {
	type row struct {
		y      float64
		glyphs []pdf.Text
	}
	var rows []*row
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		var hit *row
		for _, r := range rows {
			if math.Abs(r.y-t.Y) <= math.Max(1, lineTolerance*t.FontSize) {
				hit = r
				break
			}
		}
		if hit == nil {
			hit = &row{y: t.Y}
			rows = append(rows, hit)
		}
		hit.glyphs = append(hit.glyphs, t)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	out := make([]line, 0, len(rows))
	for _, r := range rows {
		sort.SliceStable(r.glyphs, func(i, j int) bool { return r.glyphs[i].X < r.glyphs[j].X })
		if l, ok := assembleLine(r.y, r.glyphs); ok {
			out = append(out, l)
		}
	}
	return out
}

func assembleLine(y float64, glyphs []pdf.Text) (line, bool) {
	l := line{y: y, bold: true}
	var seg strings.Builder
	var cur *span
	var prev *pdf.Text
	sizes := map[float64]int{}
	visible := 0

	flushSpan := func() {
		if cur != nil && cur.text != "" {
			l.spans = append(l.spans, *cur)
		}
		cur = nil
	}
	flushSegment := func() {
		if s := strings.TrimSpace(seg.String()); s != "" {
			l.segments = append(l.segments, s)
		}
		seg.Reset()
	}

	for i := range glyphs {
		g := glyphs[i]
		bold, italic := fontStyle(g.Font)
		size := math.Round(g.FontSize*2) / 2
		isSpace := strings.TrimSpace(g.S) == ""

		if prev != nil {
			gap := g.X - (prev.X + prev.W)
			switch {
			case gap > columnGap*g.FontSize:
				flushSegment()
				if cur != nil && !strings.HasSuffix(cur.text, " ") {
					cur.text += " "
				}
			case gap > wordGap*g.FontSize && !isSpace && strings.TrimSpace(prev.S) != "":
				seg.WriteString(" ")
				if cur != nil {
					cur.text += " "
				}
			}
		}

		if cur == nil || cur.bold != bold || cur.italic != italic || cur.size != size {
			flushSpan()
			cur = &span{bold: bold, italic: italic, size: size}
		}
		cur.text += g.S
		seg.WriteString(g.S)

		if !isSpace {
			visible++
			sizes[size]++
			if !bold {
				l.bold = false
			}
		}
		prev = &glyphs[i]
	}
	flushSpan()
	flushSegment()
	if visible == 0 {
		return line{}, false
	}
	l.size = dominantSize(sizes)
	trimSpans(l.spans)
	return l, true
}

func trimSpans(spans []span) {
	if len(spans) == 0 {
		return
	}
	spans[0].text = strings.TrimLeft(spans[0].text, " ")
	last := len(spans) - 1
	spans[last].text = strings.TrimRight(spans[last].text, " ")
}

func dominantSize(sizes map[float64]int) float64 {
	best, n := 0.0, -1
	for s, c := range sizes {
		if c > n || (c == n && s > best) {
			best, n = s, c
		}
	}
	return best
}

func fontStyle(font string) (bold, italic bool) {
	f := strings.ToLower(font)
	bold = strings.Contains(f, "bold") || strings.Contains(f, "black") || strings.Contains(f, "heavy") || strings.Contains(f, "semibold")
	italic = strings.Contains(f, "italic") || strings.Contains(f, "oblique")
	return bold, italic
}

// bodySize is the font size carrying the most characters.
func bodySize(pages [][]line) float64 {
	weights := map[float64]int{}
	for _, p := range pages {
		for _, l := range p {
			weights[l.size] += len(l.text())
		}
	}
	return dominantSize(weights)
}

// buildBlocks turns a page's lines into headings, tables and paragraphs.
func buildBlocks(lines []line, body float64) []block {
	var out []block
	for i := 0; i < len(lines); {
		if n := tableRun(lines[i:]); n >= 2 {
			rows := make([][]string, 0, n)
			for _, l := range lines[i : i+n] {
				rows = append(rows, l.segments)
			}
			out = append(out, block{kind: blockTable, rows: rows})
			i += n
			continue
		}

		l := lines[i]
		if lvl := lineHeadingLevel(l, body); lvl > 0 {
			out = append(out, block{kind: blockHeading, level: lvl, spans: l.spans})
			i++
			continue
		}

		para := block{kind: blockParagraph, spans: append([]span(nil), l.spans...)}
		prev := l
		i++
		for i < len(lines) {
			next := lines[i]
			if !continuesParagraph(prev, next, body) || tableRun(lines[i:]) >= 2 {
				break
			}
			para.spans = appendSpans(para.spans, next.spans)
			prev = next
			i++
		}
		out = append(out, para)
	}
	return out
}

func tableRun(lines []line) int {
	if len(lines) == 0 || len(lines[0].segments) < 2 {
		return 0
	}
	cols := len(lines[0].segments)
	n := 0
	for _, l := range lines {
		if len(l.segments) != cols {
			break
		}
		n++
	}
	return n
}

func lineHeadingLevel(l line, body float64) int {
	text := l.text()
	if text == "" || len(text) > maxHeadingLen || isToCLine(text) {
		return 0
	}
	if lvl := headingLevel(l.size, body); lvl > 0 {
		return lvl
	}
	if depth, ok := numberedHeading(text); ok && (l.bold || l.size > body*1.05) {
		return min(depth, 3)
	}
	return 0
}

func continuesParagraph(prev, next line, body float64) bool {
	if math.Abs(prev.size-next.size) > 0.5 {
		return false
	}
	if lineHeadingLevel(next, body) > 0 {
		return false
	}
	gap := prev.y - next.y
	return gap > 0 && gap <= paragraphGap*math.Max(prev.size, 1)
}

// appendSpans joins a wrapped line onto a paragraph, merging the seam when
// both sides share a style.
func appendSpans(dst, src []span) []span {
	if len(src) == 0 {
		return dst
	}
	if len(dst) == 0 {
		return append(dst, src...)
	}
	last := &dst[len(dst)-1]
	first := src[0]
	sep := " "
	if strings.HasSuffix(last.text, " ") {
		sep = ""
	}
	if last.bold == first.bold && last.italic == first.italic && last.size == first.size {
		last.text += sep + first.text
		return append(dst, src[1:]...)
	}
	last.text += sep
	return append(dst, src...)
}
