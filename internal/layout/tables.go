package layout

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/docatlas/internal/model"
)

const (
	// ruleThickness is the widest a rectangle can be and still count as a
	// ruling line rather than a cell outline.
	ruleThickness = 2.0
	// snapTolerance merges edge coordinates that differ by less than this.
	snapTolerance = 1.0
)

// edge is an axis-aligned ruling segment in layout space.
type edge struct {
	vertical bool
	pos      float64 // x for vertical edges, y for horizontal
	from, to float64
}

func (e edge) touches(o edge) bool {
	if e.vertical == o.vertical {
		return math.Abs(e.pos-o.pos) <= snapTolerance &&
			e.from <= o.to+snapTolerance && o.from <= e.to+snapTolerance
	}
	v, h := e, o
	if !v.vertical {
		v, h = o, e
	}
	return v.pos >= h.from-snapTolerance && v.pos <= h.to+snapTolerance &&
		h.pos >= v.from-snapTolerance && h.pos <= v.to+snapTolerance
}

// table is a detected grid with its cell text.
type table struct {
	bbox model.BBox
	rows [][]string
}

// serialize renders rows as "cell | cell" lines. A table whose cells are
// all empty serializes to "".
func (t table) serialize() string {
	var lines []string
	empty := true
	for _, row := range t.rows {
		for _, c := range row {
			if c != "" {
				empty = false
			}
		}
		lines = append(lines, strings.Join(row, " | "))
	}
	if empty {
		return ""
	}
	return strings.Join(lines, "\n")
}

// findTables detects ruled grids from the page's rectangles, given in
// layout space. Every grid with at least two cells is reported, whether or
// not any text falls in it.
func findTables(rects []model.BBox, chars []glyph) []table {
	edges := rectEdges(rects)
	if len(edges) == 0 {
		return nil
	}

	var tables []table
	for _, group := range connectedEdges(edges) {
		xs, ys := gridLines(group)
		if len(xs) < 2 || len(ys) < 2 || (len(xs)-1)*(len(ys)-1) < 2 {
			continue
		}
		t := table{bbox: model.BBox{Left: xs[0], Top: ys[0], Right: xs[len(xs)-1], Bottom: ys[len(ys)-1]}}
		for r := 0; r+1 < len(ys); r++ {
			row := make([]string, 0, len(xs)-1)
			for c := 0; c+1 < len(xs); c++ {
				cell := model.BBox{Left: xs[c], Top: ys[r], Right: xs[c+1], Bottom: ys[r+1]}
				row = append(row, cellText(cell, chars))
			}
			t.rows = append(t.rows, row)
		}
		tables = append(tables, t)
	}
	return tables
}

func rectEdges(rects []model.BBox) []edge {
	var edges []edge
	for _, b := range rects {
		w, h := b.Width(), b.Height()
		switch {
		case w <= ruleThickness && h <= ruleThickness:
			continue
		case h <= ruleThickness:
			edges = append(edges, edge{pos: (b.Top + b.Bottom) / 2, from: b.Left, to: b.Right})
		case w <= ruleThickness:
			edges = append(edges, edge{vertical: true, pos: (b.Left + b.Right) / 2, from: b.Top, to: b.Bottom})
		default:
			edges = append(edges,
				edge{pos: b.Top, from: b.Left, to: b.Right},
				edge{pos: b.Bottom, from: b.Left, to: b.Right},
				edge{vertical: true, pos: b.Left, from: b.Top, to: b.Bottom},
				edge{vertical: true, pos: b.Right, from: b.Top, to: b.Bottom},
			)
		}
	}
	return edges
}

// connectedEdges partitions edges into groups of mutually touching segments.
func connectedEdges(edges []edge) [][]edge {
	parent := make([]int, len(edges))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range edges {
		for j := i + 1; j < len(edges); j++ {
			if edges[i].touches(edges[j]) {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := make(map[int][]edge)
	var order []int
	for i, e := range edges {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], e)
	}
	out := make([][]edge, 0, len(order))
	for _, root := range order {
		out = append(out, groups[root])
	}
	return out
}

// gridLines returns the distinct x positions of vertical edges and y
// positions of horizontal edges, sorted and snapped.
func gridLines(group []edge) (xs, ys []float64) {
	for _, e := range group {
		if e.vertical {
			xs = append(xs, e.pos)
		} else {
			ys = append(ys, e.pos)
		}
	}
	return snap(xs), snap(ys)
}

func snap(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	out := []float64{vals[0]}
	for _, v := range vals[1:] {
		if v-out[len(out)-1] > snapTolerance {
			out = append(out, v)
		}
	}
	return out
}

func cellText(cell model.BBox, chars []glyph) string {
	var inside []glyph
	for _, c := range chars {
		cx, cy := c.centerX(), c.centerY()
		if cx >= cell.Left && cx < cell.Right && cy >= cell.Top && cy < cell.Bottom {
			inside = append(inside, c)
		}
	}
	if len(inside) == 0 {
		return ""
	}
	lines := groupLines(inside)
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(l.text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
