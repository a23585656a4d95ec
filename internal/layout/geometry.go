package layout

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/dgallion1/docatlas/internal/model"
	pdflib "github.com/ledongthuc/pdf"
)

// Letter size, used when a page carries no usable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// pageGeometry maps PDF user space (origin bottom-left, y up) to layout
// space (origin top-left, y down).
type pageGeometry struct {
	x0, y0, x1, y1 float64
}

func newPageGeometry(page pdflib.Page) pageGeometry {
	g := pageGeometry{x1: defaultPageWidth, y1: defaultPageHeight}
	mb := mediaBox(page)
	if mb.Len() != 4 {
		return g
	}
	x0, y0 := mb.Index(0).Float64(), mb.Index(1).Float64()
	x1, y1 := mb.Index(2).Float64(), mb.Index(3).Float64()
	if x1 <= x0 || y1 <= y0 {
		return g
	}
	return pageGeometry{x0: x0, y0: y0, x1: x1, y1: y1}
}

// mediaBox returns the page's MediaBox, inherited from the nearest
// ancestor in the page tree when the page itself has none. The walk is
// bounded so a cyclic Parent chain cannot loop.
func mediaBox(page pdflib.Page) pdflib.Value {
	v := page.V
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		if mb := v.Key("MediaBox"); !mb.IsNull() {
			return mb
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}

func (g pageGeometry) x(v float64) float64 { return v - g.x0 }
func (g pageGeometry) y(v float64) float64 { return g.y1 - v }

// glyph is one positioned character in layout space.
type glyph struct {
	text   string
	font   string
	size   float64
	left   float64
	right  float64
	top    float64
	bottom float64
}

func (c glyph) centerX() float64 { return (c.left + c.right) / 2 }
func (c glyph) centerY() float64 { return (c.top + c.bottom) / 2 }

func glyphs(g pageGeometry, content pdflib.Content) []glyph {
	var out []glyph
	for _, t := range content.Text {
		if t.S == "" || t.S == "\n" {
			continue
		}
		size := math.Abs(t.FontSize)
		if size == 0 {
			size = 1
		}
		w := t.W
		if w <= 0 {
			w = size / 2
		}
		left := g.x(t.X)
		bottom := g.y(t.Y)
		out = append(out, glyph{
			text:   t.S,
			font:   t.Font,
			size:   size,
			left:   left,
			right:  left + w,
			top:    bottom - size,
			bottom: bottom,
		})
	}
	return out
}

// line is a run of glyphs sharing a rounded top coordinate.
type line struct {
	text     string
	top      float64
	bottom   float64
	left     float64
	right    float64
	fontSize float64
	bold     bool
}

func (l line) bbox() model.BBox {
	return model.BBox{Left: l.left, Top: l.top, Right: l.right, Bottom: l.bottom}
}

// groupLines buckets glyphs by top rounded to 0.1 units and orders the
// buckets top to bottom.
func groupLines(chars []glyph) []line {
	buckets := make(map[int64][]glyph)
	for _, c := range chars {
		k := int64(math.Round(c.top * 10))
		buckets[k] = append(buckets[k], c)
	}
	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	lines := make([]line, 0, len(keys))
	for _, k := range keys {
		row := buckets[k]
		sort.SliceStable(row, func(i, j int) bool { return row[i].left < row[j].left })
		first := row[0]
		l := line{
			text:     joinGlyphs(row),
			top:      float64(k) / 10,
			left:     first.left,
			right:    first.right,
			bottom:   first.bottom,
			fontSize: first.size,
			bold:     strings.Contains(strings.ToLower(first.font), "bold"),
		}
		for _, c := range row[1:] {
			l.left = min(l.left, c.left)
			l.right = max(l.right, c.right)
			l.bottom = max(l.bottom, c.bottom)
		}
		lines = append(lines, l)
	}
	return lines
}

// joinGlyphs concatenates a left-to-right glyph run, inserting a space
// where the horizontal gap exceeds a fifth of the font size.
func joinGlyphs(row []glyph) string {
	var b strings.Builder
	for i, c := range row {
		if i > 0 {
			prev := row[i-1]
			if !endsWithSpace(prev.text) && !startsWithSpace(c.text) && c.left-prev.right > 0.2*c.size {
				b.WriteByte(' ')
			}
		}
		b.WriteString(c.text)
	}
	return b.String()
}

func endsWithSpace(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsSpace(r[len(r)-1])
}

func startsWithSpace(s string) bool {
	for _, r := range s {
		return unicode.IsSpace(r)
	}
	return false
}

// linesToBlocks merges consecutive lines into text blocks. A vertical gap
// larger than max(15, 1.5 x line height) starts a new block; lines that
// overlap a table are skipped and end the current block.
func linesToBlocks(lines []line, page int, tables []model.BBox) []model.Block {
	var (
		blocks  []model.Block
		current []line
		bbox    model.BBox
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, l := range current {
			parts[i] = l.text
		}
		text := strings.TrimSpace(strings.Join(parts, "\n"))
		if text != "" {
			box := bbox
			size := current[0].fontSize
			blocks = append(blocks, model.Block{
				Type:     model.BlockText,
				Content:  text,
				Page:     page,
				BBox:     &box,
				FontSize: &size,
				IsBold:   current[0].bold,
			})
		}
		current = nil
	}

	for _, l := range lines {
		if overlapsAny(l.bbox(), tables) {
			flush()
			continue
		}
		if len(current) > 0 {
			gap := l.top - current[len(current)-1].bottom
			if gap > max(15, 1.5*(l.bottom-l.top)) {
				flush()
			}
		}
		if len(current) == 0 {
			bbox = l.bbox()
		} else {
			bbox = bbox.Union(l.bbox())
		}
		current = append(current, l)
	}
	flush()
	return blocks
}

func overlapsAny(b model.BBox, boxes []model.BBox) bool {
	for _, t := range boxes {
		if b.Overlaps(t) {
			return true
		}
	}
	return false
}
