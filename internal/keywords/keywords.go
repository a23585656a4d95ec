// Package keywords derives search keywords for sections from headings,
// table header rows and bold phrases.
package keywords

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docatlas/internal/model"
)

const (
	maxKeywords      = 50
	maxKeywordLength = 80
)

var (
	tokenRE     = regexp.MustCompile(`[A-Za-z0-9]+(?:-[A-Za-z0-9]+)*`)
	cellSplitRE = regexp.MustCompile(`\s*\|\s*`)
)

// Hints are optional extra keyword sources for one section.
type Hints struct {
	BoldPhrases    []string
	TableHeaderRow string
}

// Extract returns up to 50 keywords for s in first-seen order.
func Extract(s model.Section, h Hints) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	add := func(c string) {
		c = normalize(c)
		if len([]rune(c)) <= 1 {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}

	for _, tok := range Tokenize(s.Heading) {
		add(tok)
	}
	if s.Type == model.SectionTable && h.TableHeaderRow != "" {
		for _, cell := range cellSplitRE.Split(h.TableHeaderRow, -1) {
			add(cell)
		}
	}
	for _, phrase := range h.BoldPhrases {
		for _, tok := range Tokenize(phrase) {
			add(tok)
		}
	}

	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// ExtractAll returns copies of sections with keywords filled in. Hints are
// looked up by section id.
func ExtractAll(sections []model.Section, boldPhrases map[string][]string, tableHeaders map[string]string) []model.Section {
	out := make([]model.Section, len(sections))
	for i, s := range sections {
		s.Keywords = Extract(s, Hints{
			BoldPhrases:    boldPhrases[s.SectionID],
			TableHeaderRow: tableHeaders[s.SectionID],
		})
		out[i] = s
	}
	return out
}

// Tokenize splits text into alphanumeric tokens with internal hyphens,
// keeping tokens of two or more characters and all-digit tokens.
func Tokenize(text string) []string {
	var out []string
	for _, tok := range tokenRE.FindAllString(text, -1) {
		if len(tok) >= 2 || isDigits(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func normalize(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxKeywordLength {
		s = string(r[:maxKeywordLength])
	}
	return s
}
