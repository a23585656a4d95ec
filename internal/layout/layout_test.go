package layout

import (
	"strings"
	"testing"

	"github.com/dgallion1/docatlas/internal/model"
	"github.com/dgallion1/docatlas/internal/segmenter"
	"github.com/dgallion1/docatlas/internal/testpdf"
	pdflib "github.com/ledongthuc/pdf"
)

var letter = pageGeometry{x1: 612, y1: 792}

func TestExtract_TooShort(t *testing.T) {
	e := New(nil)
	if got := e.Extract([]byte("%PDF-1.4")); len(got) != 0 {
		t.Errorf("expected no blocks, got %d", len(got))
	}
}

func TestExtract_Garbage(t *testing.T) {
	e := New(nil)
	data := []byte(strings.Repeat("not a pdf at all ", 20))
	if got := e.Extract(data); len(got) != 0 {
		t.Errorf("expected no blocks, got %d", len(got))
	}
}

func TestExtract_HelloWorld(t *testing.T) {
	e := New(nil)
	blocks := e.Extract(testpdf.Build(testpdf.Text("Hello world")))
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.Type != model.BlockText || b.Page != 1 {
		t.Errorf("block = %+v", b)
	}
	if !strings.Contains(b.Content, "Hello") || !strings.Contains(b.Content, "world") {
		t.Errorf("content = %q", b.Content)
	}
}

func TestExtract_PagesInOrder(t *testing.T) {
	e := New(nil)
	blocks := e.Extract(testpdf.Build(testpdf.Text("first page"), testpdf.Text("second page")))
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Page != 1 || blocks[1].Page != 2 {
		t.Errorf("pages = %d, %d", blocks[0].Page, blocks[1].Page)
	}
}

func TestWithLayout_TextBlockGeometry(t *testing.T) {
	e := New(nil)
	blocks, err := e.withLayout(testpdf.Build(testpdf.Text("Hello world")))
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.BBox == nil || b.FontSize == nil {
		t.Fatalf("missing geometry: %+v", b)
	}
	if *b.FontSize != 12 {
		t.Errorf("font size = %v", *b.FontSize)
	}
	if b.BBox.Top != 60 || b.BBox.Bottom != 72 {
		t.Errorf("bbox = %+v", *b.BBox)
	}
	if b.Content != "Hello world" {
		t.Errorf("content = %q", b.Content)
	}
}

func chars(y, size float64, font string, xs ...float64) []pdflib.Text {
	var out []pdflib.Text
	for i, x := range xs {
		out = append(out, pdflib.Text{Font: font, FontSize: size, X: x, Y: y, W: size / 2, S: string(rune('a' + i))})
	}
	return out
}

func TestGroupLines_SpacesAndBold(t *testing.T) {
	content := pdflib.Content{Text: chars(700, 10, "Helvetica-Bold", 100, 105, 130)}
	lines := groupLines(glyphs(letter, content))
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].text != "ab c" {
		t.Errorf("text = %q", lines[0].text)
	}
	if !lines[0].bold {
		t.Error("expected bold")
	}
}

func TestGroupLines_SkipsTJNewline(t *testing.T) {
	content := pdflib.Content{Text: append(chars(700, 10, "Helvetica", 100), pdflib.Text{S: "\n", X: 200, Y: 700, FontSize: 10})}
	lines := groupLines(glyphs(letter, content))
	if len(lines) != 1 || lines[0].text != "a" {
		t.Errorf("lines = %+v", lines)
	}
}

func TestLinesToBlocks_GapSplits(t *testing.T) {
	lines := []line{
		{text: "one", top: 100, bottom: 110, left: 50, right: 100, fontSize: 10},
		{text: "two", top: 112, bottom: 122, left: 50, right: 120, fontSize: 10},
		{text: "far", top: 200, bottom: 210, left: 60, right: 90, fontSize: 10},
	}
	blocks := linesToBlocks(lines, 3, nil)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Content != "one\ntwo" {
		t.Errorf("content = %q", blocks[0].Content)
	}
	want := model.BBox{Left: 50, Top: 100, Right: 120, Bottom: 122}
	if *blocks[0].BBox != want {
		t.Errorf("bbox = %+v", *blocks[0].BBox)
	}
	if blocks[1].Page != 3 {
		t.Errorf("page = %d", blocks[1].Page)
	}
}

func TestLinesToBlocks_TableMasksLines(t *testing.T) {
	lines := []line{
		{text: "before", top: 100, bottom: 110, left: 50, right: 100},
		{text: "inside", top: 112, bottom: 122, left: 50, right: 100},
		{text: "after", top: 124, bottom: 134, left: 50, right: 100},
	}
	table := model.BBox{Left: 40, Top: 111, Right: 200, Bottom: 123}
	blocks := linesToBlocks(lines, 1, []model.BBox{table})
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].Content != "before" || blocks[1].Content != "after" {
		t.Errorf("blocks = %q, %q", blocks[0].Content, blocks[1].Content)
	}
}

func gridRects() []model.BBox {
	// Two columns by two rows of cells, 100 wide and 20 tall, with the
	// top-left corner at (100, 700) in user space.
	var rects []model.BBox
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			x := 100 + float64(c)*100
			y := 680 - float64(r)*20
			rects = append(rects, transformedBox(identity, letter, x, y, x+100, y+20))
		}
	}
	return rects
}

func TestFindTables_Grid(t *testing.T) {
	var text []pdflib.Text
	text = append(text, pdflib.Text{Font: "Helvetica", FontSize: 8, X: 110, Y: 685, W: 4, S: "A"})
	text = append(text, pdflib.Text{Font: "Helvetica", FontSize: 8, X: 210, Y: 685, W: 4, S: "B"})
	text = append(text, pdflib.Text{Font: "Helvetica", FontSize: 8, X: 110, Y: 665, W: 4, S: "1"})
	text = append(text, pdflib.Text{Font: "Helvetica", FontSize: 8, X: 210, Y: 665, W: 4, S: "2"})

	tables := findTables(gridRects(), glyphs(letter, pdflib.Content{Text: text}))
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if got := tables[0].serialize(); got != "A | B\n1 | 2" {
		t.Errorf("serialize = %q", got)
	}
	want := model.BBox{Left: 100, Top: 92, Right: 300, Bottom: 132}
	if tables[0].bbox != want {
		t.Errorf("bbox = %+v", tables[0].bbox)
	}
}

func TestFindTables_EmptyGridStillReported(t *testing.T) {
	tables := findTables(gridRects(), nil)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if got := tables[0].serialize(); got != "" {
		t.Errorf("serialize = %q", got)
	}
}

func TestFindTables_SingleBoxIgnored(t *testing.T) {
	rect := transformedBox(identity, letter, 50, 50, 500, 700)
	if tables := findTables([]model.BBox{rect}, nil); len(tables) != 0 {
		t.Errorf("expected no tables, got %d", len(tables))
	}
}

func TestUnitSquare(t *testing.T) {
	ctm := affine{200, 0, 0, 100, 72, 500}
	got := unitSquare(ctm, letter)
	want := model.BBox{Left: 72, Top: 192, Right: 272, Bottom: 292}
	if got != want {
		t.Errorf("unitSquare = %+v, want %+v", got, want)
	}
}

func TestExtract_PageTreeMediaBox(t *testing.T) {
	data := testpdf.BuildWith(testpdf.Options{PageTreeMediaBox: []float64{0, 0, 600, 1000}}, testpdf.Text("Hello world"))
	r, err := openReader(data)
	if err != nil {
		t.Fatal(err)
	}
	g := newPageGeometry(r.Page(1))
	if g != (pageGeometry{x1: 600, y1: 1000}) {
		t.Fatalf("geometry = %+v", g)
	}

	blocks, err := New(nil).withLayout(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0].BBox == nil {
		t.Fatalf("blocks = %+v", blocks)
	}
	// Baseline 720 measured from the top of a 1000pt page.
	if b := blocks[0].BBox; b.Top != 268 || b.Bottom != 280 {
		t.Errorf("bbox = %+v", *b)
	}
}

func TestExtract_FigureFromContentStream(t *testing.T) {
	data := testpdf.BuildWith(testpdf.Options{Image: true}, testpdf.Figure(72, 600, 100, 50))
	blocks := New(nil).Extract(data)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %+v", blocks)
	}
	b := blocks[0]
	if b.Type != model.BlockFigure || b.Page != 1 || b.BBox == nil {
		t.Fatalf("block = %+v", b)
	}
	want := model.BBox{Left: 72, Top: 142, Right: 172, Bottom: 192}
	if *b.BBox != want {
		t.Errorf("bbox = %+v, want %+v", *b.BBox, want)
	}

	if segs := segmenter.Segment(blocks, segmenter.DefaultConfig()); len(segs) != 0 {
		t.Errorf("uncaptioned figure should be dropped, got %+v", segs)
	}
}

func TestExtract_FigureNeedsImageSubtype(t *testing.T) {
	// /Im1 is declared only when Image is set; a Do of an unknown name
	// draws nothing.
	blocks := New(nil).Extract(testpdf.Build(testpdf.Figure(72, 600, 100, 50)))
	if len(blocks) != 0 {
		t.Errorf("expected no blocks, got %+v", blocks)
	}
}

func TestScanGraphics_RectsFollowCTM(t *testing.T) {
	// A 2x2 grid drawn at the origin and moved into place by cm.
	stream := "q\n1 0 0 1 100 660 cm\n" +
		"0 20 100 20 re\n100 20 100 20 re\n0 0 100 20 re\n100 0 100 20 re\nS\nQ\n" +
		"10 10 5 5 re\nf"
	data := testpdf.Build(testpdf.Page(stream))
	r, err := openReader(data)
	if err != nil {
		t.Fatal(err)
	}
	gfx, err := scanGraphics(r.Page(1), letter)
	if err != nil {
		t.Fatal(err)
	}
	if len(gfx.rects) != 5 {
		t.Fatalf("expected 5 rects, got %d", len(gfx.rects))
	}
	if got, want := gfx.rects[0], (model.BBox{Left: 100, Top: 92, Right: 200, Bottom: 112}); got != want {
		t.Errorf("first rect = %+v, want %+v", got, want)
	}
	// The rect after Q is back in untransformed space.
	if got, want := gfx.rects[4], (model.BBox{Left: 10, Top: 777, Right: 15, Bottom: 782}); got != want {
		t.Errorf("last rect = %+v, want %+v", got, want)
	}

	tables := findTables(gfx.rects, nil)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if want := (model.BBox{Left: 100, Top: 92, Right: 300, Bottom: 132}); tables[0].bbox != want {
		t.Errorf("table bbox = %+v, want %+v", tables[0].bbox, want)
	}
}

func TestExtract_RepairsBrokenXRefOffset(t *testing.T) {
	data := testpdf.BuildWith(testpdf.Options{StartXRefShift: -len("endobj\n")}, testpdf.Text("Hello world"))
	if _, err := openReader(data); err == nil {
		t.Fatal("expected the unrepaired file to be unreadable")
	}

	blocks := New(nil).Extract(data)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if !strings.Contains(blocks[0].Content, "Hello") {
		t.Errorf("content = %q", blocks[0].Content)
	}
}

func TestRepair_Garbage(t *testing.T) {
	if _, err := repair([]byte(strings.Repeat("not a pdf at all ", 20))); err == nil {
		t.Error("expected error")
	}
}

func TestAffineThen(t *testing.T) {
	scale := affine{2, 0, 0, 2, 0, 0}
	move := affine{1, 0, 0, 1, 10, 20}
	x, y := scale.then(move).apply(1, 1)
	if x != 12 || y != 22 {
		t.Errorf("apply = (%v, %v)", x, y)
	}
}

func TestSortReadingOrder(t *testing.T) {
	top := func(v float64) *model.BBox { return &model.BBox{Top: v} }
	blocks := []model.Block{
		{Page: 2, Content: "c"},
		{Page: 1, Content: "b", BBox: top(50)},
		{Page: 1, Content: "a"},
	}
	sortReadingOrder(blocks)
	var got []string
	for _, b := range blocks {
		got = append(got, b.Content)
	}
	if strings.Join(got, "") != "abc" {
		t.Errorf("order = %v", got)
	}
}
