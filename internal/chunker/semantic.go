package chunker

import "strings"

const (
	minSemanticWords = 40
	minUniqueRatio   = 0.3
)

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// IsSemantic reports whether text is worth keeping as a section: at least
// 40 words, more than 30% distinct words, and not axis-like.
func IsSemantic(text string) bool {
	words := strings.Fields(text)
	if len(words) < minSemanticWords {
		return false
	}
	return varied(words) && !LooksLikeAxis(text)
}

// isSemanticBlock is IsSemantic without the word floor, for tables and
// figures.
func isSemanticBlock(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}
	return varied(words) && !LooksLikeAxis(text)
}

func varied(words []string) bool {
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[strings.ToLower(w)] = struct{}{}
	}
	return float64(len(unique))/float64(len(words)) > minUniqueRatio
}

// LooksLikeAxis reports whether more than half of the non-blank lines are
// mostly | and - characters.
func LooksLikeAxis(text string) bool {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return false
	}
	heavy := 0
	for _, l := range lines {
		runes := []rune(l)
		seps := 0
		for _, r := range runes {
			if r == '|' || r == '-' {
				seps++
			}
		}
		if float64(seps)/float64(len(runes)) > 0.5 {
			heavy++
		}
	}
	return float64(heavy)/float64(len(lines)) > 0.5
}
