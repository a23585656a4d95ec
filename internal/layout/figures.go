package layout

import (
	"fmt"

	"github.com/dgallion1/docatlas/internal/model"
	pdflib "github.com/ledongthuc/pdf"
)

// affine is a PDF transformation matrix [a b c d e f].
type affine [6]float64

var identity = affine{1, 0, 0, 1, 0, 0}

// then returns the transform that applies m first and n second.
func (m affine) then(n affine) affine {
	return affine{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m affine) apply(u, v float64) (float64, float64) {
	return m[0]*u + m[2]*v + m[4], m[1]*u + m[3]*v + m[5]
}

// graphics holds the non-text marks of one page, in layout space.
type graphics struct {
	figures []model.BBox // image XObject placements
	rects   []model.BBox // re operands, through the CTM in effect
}

// scanGraphics walks the page content stream tracking the CTM and
// collects image placements and rectangles.
func scanGraphics(page pdflib.Page, g pageGeometry) (out graphics, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = graphics{}, fmt.Errorf("interpret content: %v", p)
		}
	}()

	contents := page.V.Key("Contents")
	if contents.IsNull() {
		return graphics{}, nil
	}
	xobjects := page.Resources().Key("XObject")

	ctm := identity
	var stack []affine

	pdflib.Interpret(contents, func(stk *pdflib.Stack, op string) {
		n := stk.Len()
		args := make([]pdflib.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		switch op {
		case "q":
			stack = append(stack, ctm)
		case "Q":
			if len(stack) > 0 {
				ctm = stack[len(stack)-1]
				stack = stack[:len(stack)-1]
			}
		case "cm":
			if len(args) != 6 {
				return
			}
			var m affine
			for i := range m {
				m[i] = args[i].Float64()
			}
			ctm = m.then(ctm)
		case "re":
			if len(args) != 4 {
				return
			}
			x, y := args[0].Float64(), args[1].Float64()
			w, h := args[2].Float64(), args[3].Float64()
			out.rects = append(out.rects, transformedBox(ctm, g, x, y, x+w, y+h))
		case "Do":
			if len(args) != 1 || xobjects.IsNull() {
				return
			}
			xo := xobjects.Key(args[0].Name())
			if xo.Key("Subtype").Name() != "Image" {
				return
			}
			out.figures = append(out.figures, unitSquare(ctm, g))
		}
	})
	return out, nil
}

// unitSquare maps the image space unit square through ctm into layout space.
func unitSquare(ctm affine, g pageGeometry) model.BBox {
	return transformedBox(ctm, g, 0, 0, 1, 1)
}

// transformedBox maps the rectangle (x0,y0)-(x1,y1) through ctm and returns
// the layout-space box enclosing its corners.
func transformedBox(ctm affine, g pageGeometry, x0, y0, x1, y1 float64) model.BBox {
	var b model.BBox
	for i, corner := range [][2]float64{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		x, y := ctm.apply(corner[0], corner[1])
		lx, ly := g.x(x), g.y(y)
		if i == 0 {
			b = model.BBox{Left: lx, Top: ly, Right: lx, Bottom: ly}
			continue
		}
		b.Left, b.Right = min(b.Left, lx), max(b.Right, lx)
		b.Top, b.Bottom = min(b.Top, ly), max(b.Bottom, ly)
	}
	return b
}
