// Package layout turns raw PDF bytes into positioned content blocks.
//
// A fast path reads one plain-text block per page. When that yields nothing
// the layout-aware path reads glyphs, ruling lines and image placements to
// produce text, table and figure blocks with bounding boxes. Files the reader
// cannot open are rewritten through pdfcpu and tried once more.
package layout

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgallion1/docatlas/internal/model"
	pdflib "github.com/ledongthuc/pdf"
)

// minPDFBytes is the smallest input worth handing to a PDF reader.
const minPDFBytes = 100

// Extractor runs layout extraction. It holds no per-document state and is
// safe for concurrent use.
type Extractor struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{log: log}
}

// Extract returns the blocks of data in reading order. It never fails:
// unreadable input produces an empty slice.
func (e *Extractor) Extract(data []byte) []model.Block {
	if len(data) < minPDFBytes {
		return nil
	}

	blocks, err := e.extract(data)
	if err == nil {
		return blocks
	}
	e.log.Warn("layout extraction failed", "error", err)

	fixed, rerr := repair(data)
	if rerr != nil {
		e.log.Debug("repair failed", "error", rerr)
		return nil
	}
	blocks, err = e.extract(fixed)
	if err != nil {
		e.log.Warn("extraction failed after repair", "error", err)
		return nil
	}
	e.log.Info("extracted repaired pdf", "blocks", len(blocks))
	return blocks
}

// extract runs both strategies. The error is non-nil only when the file
// could not be read at all.
func (e *Extractor) extract(data []byte) ([]model.Block, error) {
	blocks, err := e.plainText(data)
	if err != nil {
		e.log.Debug("plain text extraction failed", "error", err)
	}
	if len(blocks) > 0 {
		return sortReadingOrder(blocks), nil
	}

	blocks, err = e.withLayout(data)
	if err != nil {
		return nil, err
	}
	return sortReadingOrder(blocks), nil
}

func openReader(data []byte) (r *pdflib.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("open pdf: %v", p)
		}
	}()
	r, err = pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return r, nil
}

// plainText emits one text block per non-empty page.
func (e *Extractor) plainText(data []byte) (blocks []model.Block, err error) {
	defer func() {
		if p := recover(); p != nil {
			blocks, err = nil, fmt.Errorf("plain text: %v", p)
		}
	}()

	r, err := openReader(data)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		blocks = append(blocks, model.Block{
			Type:    model.BlockText,
			Content: text,
			Page:    i,
		})
	}
	return blocks, nil
}

// withLayout runs the table, figure and text strategies page by page.
func (e *Extractor) withLayout(data []byte) (blocks []model.Block, err error) {
	defer func() {
		if p := recover(); p != nil {
			blocks, err = nil, fmt.Errorf("layout: %v", p)
		}
	}()

	r, err := openReader(data)
	if err != nil {
		return nil, err
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		blocks = append(blocks, e.layoutPage(page, i)...)
	}
	return blocks, nil
}

func (e *Extractor) layoutPage(page pdflib.Page, pageNum int) []model.Block {
	log := e.log.With("page", pageNum)
	geom := newPageGeometry(page)

	var blocks []model.Block

	content, err := pageContent(page)
	if err != nil {
		log.Warn("read page content failed", "error", err)
	}

	gfx, err := scanGraphics(page, geom)
	if err != nil {
		log.Warn("graphics scan failed", "error", err)
	}
	chars := glyphs(geom, content)

	tables := findTables(gfx.rects, chars)
	var tableBoxes []model.BBox
	for _, t := range tables {
		tableBoxes = append(tableBoxes, t.bbox)
		if text := t.serialize(); text != "" {
			bbox := t.bbox
			blocks = append(blocks, model.Block{
				Type:    model.BlockTable,
				Content: text,
				Page:    pageNum,
				BBox:    &bbox,
			})
		}
	}

	for _, bbox := range gfx.figures {
		blocks = append(blocks, model.Block{
			Type: model.BlockFigure,
			Page: pageNum,
			BBox: &bbox,
		})
	}

	if len(chars) == 0 {
		text, err := page.GetPlainText(nil)
		if err == nil {
			if text = strings.TrimSpace(text); text != "" {
				blocks = append(blocks, model.Block{
					Type:    model.BlockText,
					Content: text,
					Page:    pageNum,
				})
			}
		}
		return blocks
	}

	blocks = append(blocks, linesToBlocks(groupLines(chars), pageNum, tableBoxes)...)
	return blocks
}

func pageContent(page pdflib.Page) (c pdflib.Content, err error) {
	defer func() {
		if p := recover(); p != nil {
			c, err = pdflib.Content{}, fmt.Errorf("content stream: %v", p)
		}
	}()
	return page.Content(), nil
}

func sortReadingOrder(blocks []model.Block) []model.Block {
	key := func(b model.Block) (float64, float64) {
		if b.BBox == nil {
			return 0, 0
		}
		return b.BBox.Top, b.BBox.Left
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Page != blocks[j].Page {
			return blocks[i].Page < blocks[j].Page
		}
		ti, li := key(blocks[i])
		tj, lj := key(blocks[j])
		if ti != tj {
			return ti < tj
		}
		return li < lj
	})
	return blocks
}
