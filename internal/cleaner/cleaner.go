// Package cleaner drops layout blocks that carry no retrievable content:
// page furniture, boilerplate, repeated headers and footers, and
// degenerate text.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docatlas/internal/model"
)

const (
	minChars          = 20
	minAlnumRatio     = 0.6
	maxAspectRatio    = 2.0
	minUniqueRatio    = 0.2
	maxSeparatorRatio = 0.3
	// repeatPages is the number of distinct pages on which identical text
	// is treated as a running header or footer.
	repeatPages = 3
)

var (
	pageNumberRE = regexp.MustCompile(`^\s*\d+\s*$`)
	pageRangeRE  = regexp.MustCompile(`^\s*\d+\s*[|/]\s*\d+\s*$`)
	copyrightRE  = regexp.MustCompile(`(?i)©|Â©|copyright|all rights reserved|not for use in diagnostic`)
)

type repeatKey struct {
	text string
	typ  model.BlockType
}

// Clean returns the blocks worth keeping, in their original order.
func Clean(blocks []model.Block) []model.Block {
	if len(blocks) == 0 {
		return nil
	}

	pages := make(map[repeatKey]map[int]struct{})
	for _, b := range blocks {
		k := repeatKey{normalize(blockText(b)), b.Type}
		if pages[k] == nil {
			pages[k] = make(map[int]struct{})
		}
		pages[k][b.Page] = struct{}{}
	}

	var out []model.Block
	for _, b := range blocks {
		k := repeatKey{normalize(blockText(b)), b.Type}
		if len(pages[k]) >= repeatPages {
			continue
		}
		if drop(b) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// drop applies the per-block rules.
func drop(b model.Block) bool {
	text := blockText(b)
	runes := []rune(text)
	n := len(runes)
	if n < minChars {
		return true
	}

	var alnum, seps int
	unique := make(map[rune]struct{})
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			alnum++
		}
		if r == '|' || r == '-' {
			seps++
		}
		unique[r] = struct{}{}
	}
	if float64(alnum)/float64(n) < minAlnumRatio {
		return true
	}

	if b.Type == model.BlockText && b.BBox != nil {
		if w := b.BBox.Width(); w > 0 && b.BBox.Height()/w > maxAspectRatio {
			return true
		}
	}

	if pageNumberRE.MatchString(text) || pageRangeRE.MatchString(text) {
		return true
	}
	if strings.Contains(strings.ToLower(text), "for research use only") {
		return true
	}
	if copyrightRE.MatchString(text) {
		return true
	}
	if float64(len(unique))/float64(n) < minUniqueRatio {
		return true
	}
	return float64(seps)/float64(n) > maxSeparatorRatio
}

// blockText is the text a block is judged on: content, plus caption for
// figures.
func blockText(b model.Block) string {
	if b.Type == model.BlockFigure {
		return strings.TrimSpace(b.Content + " " + b.Caption)
	}
	return strings.TrimSpace(b.Content)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
