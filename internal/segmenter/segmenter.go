// Package segmenter builds a heading outline from layout blocks.
package segmenter

import (
	"math"
	"regexp"
	"strings"

	"github.com/dgallion1/docatlas/internal/model"
)

var (
	figureCaptionRE = regexp.MustCompile(`(?i)figure\s+\d+`)
	tableCaptionRE  = regexp.MustCompile(`(?i)table\s+\d+`)
	numberedRE      = regexp.MustCompile(`^\s*(\d+\.?)+\s+\S`)
)

const (
	// A first table row longer than this is not treated as a caption.
	maxCaptionLine = 200
	// Above this share of | and - the first row is a rule, not a caption.
	maxCaptionSeparators = 0.5
	// Text shorter than this with no line break counts as short.
	shortText = 100
	// A size this far above body text makes a medium heading level 2.
	levelTwoMargin = 4
)

// Config holds the font size thresholds for heading levels H1 to H4.
type Config struct {
	Levels [4]float64

	// InferWithoutFontSize enables the low-confidence heading heuristic
	// for blocks that carry no font size.
	InferWithoutFontSize bool
}

func DefaultConfig() Config {
	return Config{
		Levels:               [4]float64{18, 14, 12, 10},
		InferWithoutFontSize: true,
	}
}

// Segment converts blocks into segments in block order.
func Segment(blocks []model.Block, cfg Config) []model.Segment {
	if len(blocks) == 0 {
		return nil
	}
	body, hasBody := BodySize(blocks)
	classify := func(b model.Block) Class {
		return Classify(b, body, hasBody, cfg)
	}

	var segments []model.Segment
	for i := 0; i < len(blocks); {
		b := blocks[i]
		switch b.Type {
		case model.BlockTable:
			i++
			if !hasTableCaption(b) {
				continue
			}
			segments = append(segments, model.Segment{
				Level:      1,
				Type:       model.SectionTable,
				Content:    b.Content,
				Page:       b.Page,
				Caption:    b.Caption,
				Confidence: tableConfidence(b),
			})
			continue

		case model.BlockFigure:
			i++
			if !hasFigureCaption(b) {
				continue
			}
			heading := b.Caption
			if heading == "" {
				heading = "Figure"
			}
			content := b.Content
			if content == "" {
				content = b.Caption
			}
			segments = append(segments, model.Segment{
				Heading:    heading,
				Level:      1,
				Type:       model.SectionFigure,
				Content:    content,
				Page:       b.Page,
				Caption:    b.Caption,
				Confidence: figureConfidence(b),
			})
			continue
		}

		c := classify(b)
		text := strings.TrimSpace(b.Content)
		if !c.IsHeading || text == "" {
			segments = append(segments, model.Segment{
				Level:      1,
				Type:       model.SectionText,
				Content:    text,
				Page:       b.Page,
				Confidence: c.Confidence,
			})
			i++
			continue
		}

		// Absorb following text blocks until the next heading or a
		// non-text block.
		conf := c.Confidence
		var parts []string
		for i++; i < len(blocks) && blocks[i].Type == model.BlockText; i++ {
			next := classify(blocks[i])
			if next.IsHeading {
				break
			}
			if p := strings.TrimSpace(blocks[i].Content); p != "" {
				parts = append(parts, p)
			}
			conf = model.MinConfidence(conf, next.Confidence)
		}
		content := strings.Join(parts, "\n\n")
		if content == "" {
			content = text
		}
		segments = append(segments, model.Segment{
			Heading:    text,
			Level:      c.Level,
			Type:       model.SectionText,
			Content:    content,
			Page:       b.Page,
			Confidence: conf,
		})
	}
	return segments
}

// BodySize returns the most frequent text block font size rounded to 0.1.
// Ties go to the smaller size.
func BodySize(blocks []model.Block) (float64, bool) {
	counts := make(map[int64]int)
	for _, b := range blocks {
		if b.Type != model.BlockText || b.FontSize == nil {
			continue
		}
		counts[int64(math.Round(*b.FontSize*10))]++
	}
	if len(counts) == 0 {
		return 0, false
	}
	var best int64
	bestN := -1
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return float64(best) / 10, true
}

func hasFigureCaption(b model.Block) bool {
	if strings.TrimSpace(b.Caption) != "" {
		return true
	}
	return figureCaptionRE.MatchString(b.Content)
}

func hasTableCaption(b model.Block) bool {
	if strings.TrimSpace(b.Caption) != "" {
		return true
	}
	if tableCaptionRE.MatchString(b.Content) {
		return true
	}
	content := strings.TrimSpace(b.Content)
	if content == "" {
		return false
	}
	first, _, _ := strings.Cut(content, "\n")
	first = strings.TrimSpace(first)
	n := len([]rune(first))
	if n == 0 || n > maxCaptionLine {
		return false
	}
	seps := strings.Count(first, "|") + strings.Count(first, "-")
	return float64(seps)/float64(n) <= maxCaptionSeparators
}

func tableConfidence(b model.Block) model.Confidence {
	if strings.TrimSpace(b.Content) != "" {
		return model.High
	}
	return model.Medium
}

func figureConfidence(b model.Block) model.Confidence {
	if b.Caption != "" {
		return model.High
	}
	return model.Medium
}
