package segmenter

import (
	"strings"

	"github.com/dgallion1/docatlas/internal/model"
)

// Class is the heading decision for one block.
type Class struct {
	Level      int
	IsHeading  bool
	Confidence model.Confidence
}

// Classify decides whether a text block is a heading. Blocks with a font
// size are judged against the level thresholds and the body size; blocks
// without one fall back to boldness and numbering.
func Classify(b model.Block, body float64, hasBody bool, cfg Config) Class {
	c := Class{Level: 1, Confidence: model.High}
	if b.Type != model.BlockText {
		return c
	}
	text := strings.TrimSpace(b.Content)
	if text == "" {
		return c
	}

	short := len([]rune(text)) < shortText && !strings.Contains(text, "\n")
	numbered := numberedRE.MatchString(text)
	emphasized := b.IsBold || numbered
	h1, h2, h3, h4 := cfg.Levels[0], cfg.Levels[1], cfg.Levels[2], cfg.Levels[3]

	if b.FontSize == nil {
		if cfg.InferWithoutFontSize && ((b.IsBold && short) || numbered) {
			c.IsHeading = true
			c.Level = 3
			if b.IsBold {
				c.Level = 2
			}
			c.Confidence = model.Low
		}
		return c
	}

	switch size := *b.FontSize; {
	case size >= h1:
		c.Level, c.IsHeading = 1, true
	case size >= h2:
		c.Level, c.IsHeading = 2, true
	case size >= h3:
		c.Level, c.IsHeading = 3, true
	case size >= h4 && emphasized:
		c.Level, c.IsHeading = 4, true
	case hasBody && size > body && emphasized:
		c.IsHeading = true
		c.Level = 3
		if size > body+levelTwoMargin {
			c.Level = 2
		}
		c.Confidence = model.Medium
	}
	return c
}
