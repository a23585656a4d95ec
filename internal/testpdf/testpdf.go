// Package testpdf builds small uncompressed PDFs for tests.
package testpdf

import (
	"fmt"
	"strings"
)

// Page is the raw content stream of one page. Fonts /F1 (Helvetica) and
// /F2 (Helvetica-Bold) are available to every page.
type Page string

// Text returns a content stream drawing each line at 12pt with 14pt
// leading, starting at (72, 720).
func Text(lines ...string) Page {
	return Styled("F1", 12, lines...)
}

// Styled is Text with an explicit font resource and size.
func Styled(font string, size float64, lines ...string) Page {
	var b strings.Builder
	fmt.Fprintf(&b, "BT\n/%s %g Tf\n%g TL\n72 720 Td\n", font, size, size+2)
	for i, l := range lines {
		if i > 0 {
			b.WriteString("T*\n")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", Escape(l))
	}
	b.WriteString("ET")
	return Page(b.String())
}

// Escape quotes a literal string for use inside ( ).
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	return strings.ReplaceAll(s, ")", `\)`)
}

// Options vary the document structure Build produces.
type Options struct {
	// PageTreeMediaBox, when set, is declared on the page tree node and
	// omitted from the pages.
	PageTreeMediaBox []float64
	// Image adds a 1x1 gray image XObject available to every page as /Im1.
	Image bool
	// StartXRefShift is added to the startxref offset. A non-zero value
	// yields a file whose trailer points into the wrong place.
	StartXRefShift int
}

// Figure returns a content stream that draws /Im1 scaled to w x h with its
// lower-left corner at (x, y).
func Figure(x, y, w, h float64) Page {
	return Page(fmt.Sprintf("q\n%g 0 0 %g %g %g cm\n/Im1 Do\nQ", w, h, x, y))
}

// Build assembles a complete PDF with a correct xref table.
func Build(pages ...Page) []byte {
	return BuildWith(Options{}, pages...)
}

// BuildWith is Build with structural options.
func BuildWith(opts Options, pages ...Page) []byte {
	n := len(pages)
	// Objects: 1 catalog, 2 pages, 3 F1, 4 F2, the optional image, then
	// page/content pairs.
	first := 5
	if opts.Image {
		first = 6
	}
	total := first - 1 + 2*n
	offsets := make([]int, total+1)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	obj := func(num int, body string) {
		offsets[num] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", first+2*i)
	}
	pageBox := " /MediaBox [0 0 612 792]"
	treeBox := ""
	if len(opts.PageTreeMediaBox) > 0 {
		nums := make([]string, len(opts.PageTreeMediaBox))
		for i, v := range opts.PageTreeMediaBox {
			nums[i] = fmt.Sprintf("%g", v)
		}
		pageBox = ""
		treeBox = fmt.Sprintf(" /MediaBox [%s]", strings.Join(nums, " "))
	}
	resources := "/Font << /F1 3 0 R /F2 4 0 R >>"
	if opts.Image {
		resources += " /XObject << /Im1 5 0 R >>"
	}

	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d%s >>", strings.Join(kids, " "), n, treeBox))
	obj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	obj(4, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>")
	if opts.Image {
		obj(5, "<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length 1 >>\nstream\n0\nendstream")
	}

	for i, p := range pages {
		pageNum, contentNum := first+2*i, first+1+2*i
		obj(pageNum, fmt.Sprintf("<< /Type /Page /Parent 2 0 R%s /Contents %d 0 R /Resources << %s >> >>", pageBox, contentNum, resources))
		obj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p), p))
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", total+1)
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref+opts.StartXRefShift)
	return []byte(b.String())
}
