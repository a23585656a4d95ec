// Package chunker turns segments into size-bounded, deduplicated sections.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/dgallion1/docatlas/internal/model"
	"github.com/google/uuid"
)

// Config controls section sizing.
type Config struct {
	MaxWords     int // Hard ceiling for a text section.
	SoftMaxWords int // A running chunk at or above this is flushed early.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxWords:     600,
		SoftMaxWords: 300,
	}
}

var (
	paragraphBreakRE = regexp.MustCompile(`\n\s*\n`)
	sentenceEndRE    = regexp.MustCompile(`[.!?]\s+`)
)

// Chunk converts segments into sections and the document that lists them.
// Tables and figures are never split. Text segments over MaxWords are split
// at paragraph and then sentence boundaries.
func Chunk(segments []model.Segment, fileID string, source model.Source, cfg Config) (model.Document, []model.Section) {
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = 600
	}
	if cfg.SoftMaxWords <= 0 || cfg.SoftMaxWords > cfg.MaxWords {
		cfg.SoftMaxWords = cfg.MaxWords / 2
	}

	var candidates []model.Section
	for _, seg := range segments {
		switch seg.Type {
		case model.SectionTable, model.SectionFigure:
			if !isSemanticBlock(seg.Content) {
				continue
			}
			candidates = append(candidates, newSection(fileID, seg.Heading, seg.Type, seg.Content, seg.Confidence))
		default:
			candidates = append(candidates, splitText(seg, fileID, cfg)...)
		}
	}

	sections := Dedup(candidates)
	doc := model.NewDocument(fileID, source)
	for _, s := range sections {
		doc.Sections = append(doc.Sections, s.SectionID)
	}
	return doc, sections
}

func newSection(fileID, heading string, typ model.SectionType, content string, conf model.Confidence) model.Section {
	return model.Section{
		SectionID:  uuid.NewString(),
		FileID:     fileID,
		Heading:    heading,
		Type:       typ,
		Content:    content,
		Keywords:   []string{},
		Confidence: conf,
	}
}

// splitText emits the sections of one text segment.
func splitText(seg model.Segment, fileID string, cfg Config) []model.Section {
	content := strings.TrimSpace(seg.Content)
	heading := strings.TrimSpace(seg.Heading)
	if content == "" && heading == "" {
		return nil
	}

	full := content
	if heading != "" {
		full = strings.TrimSpace(heading + "\n\n" + content)
	}

	if WordCount(full) <= cfg.MaxWords {
		if !IsSemantic(full) {
			return nil
		}
		if content == "" {
			content = full
		}
		return []model.Section{newSection(fileID, heading, model.SectionText, content, seg.Confidence)}
	}

	var out []model.Section
	for i, chunk := range splitByParagraphs(full, cfg) {
		if !IsSemantic(chunk) {
			continue
		}
		chunkHeading := ""
		body := chunk
		if i == 0 && heading != "" {
			chunkHeading = heading
			if strings.HasPrefix(body, heading) {
				body = strings.TrimLeft(body[len(heading):], " \t\r\n")
			}
		}
		if body == "" {
			body = chunk
		}
		out = append(out, newSection(fileID, chunkHeading, model.SectionText, body, seg.Confidence))
	}
	return out
}

// packer folds units into chunks. A unit that would push the running chunk
// past max flushes it first; a running chunk that has reached soft max is
// flushed before the next unit is added.
type packer struct {
	cfg    Config
	sep    string
	chunks []string
	units  []string
	words  int
}

func (p *packer) flush() {
	if len(p.units) > 0 {
		p.chunks = append(p.chunks, strings.Join(p.units, p.sep))
	}
	p.units = nil
	p.words = 0
}

func (p *packer) add(unit string, words int) {
	if len(p.units) > 0 && (p.words+words > p.cfg.MaxWords || p.words >= p.cfg.SoftMaxWords) {
		p.flush()
	}
	p.units = append(p.units, unit)
	p.words += words
}

// emit appends a finished chunk after whatever is pending.
func (p *packer) emit(chunk string) {
	p.flush()
	p.chunks = append(p.chunks, chunk)
}

func (p *packer) result() []string {
	p.flush()
	return p.chunks
}

// splitByParagraphs packs blank-line separated paragraphs. A paragraph over
// MaxWords is split at sentence boundaries instead.
func splitByParagraphs(text string, cfg Config) []string {
	p := &packer{cfg: cfg, sep: "\n\n"}
	for _, para := range paragraphBreakRE.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n := WordCount(para)
		if n <= cfg.MaxWords {
			p.add(para, n)
			continue
		}
		p.flush()
		for _, chunk := range splitBySentences(para, cfg) {
			p.emit(chunk)
		}
	}
	return p.result()
}

// splitBySentences packs sentences. A sentence over MaxWords is emitted
// on its own, unsplit.
func splitBySentences(text string, cfg Config) []string {
	p := &packer{cfg: cfg, sep: " "}
	for _, sent := range splitSentences(text) {
		n := WordCount(sent)
		if n > cfg.MaxWords {
			p.emit(sent)
			continue
		}
		p.add(sent, n)
	}
	return p.result()
}

// splitSentences breaks text after ., ! or ? followed by whitespace.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEndRE.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start : loc[0]+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Dedup drops sections whose normalized heading and content were already
// seen. The first occurrence wins and order is preserved.
func Dedup(sections []model.Section) []model.Section {
	seen := make(map[string]struct{}, len(sections))
	out := make([]model.Section, 0, len(sections))
	for _, s := range sections {
		h := ContentHash(s.Heading, s.Content)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ContentHash is the SHA-256 of heading and content, lower-cased with
// whitespace collapsed.
func ContentHash(heading, content string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(heading+" "+content)), " ")
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
