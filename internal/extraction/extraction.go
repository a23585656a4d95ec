// Package extraction runs the PDF to sections pipeline: layout extraction,
// optional block cleaning, structural segmentation, semantic chunking and
// keyword extraction.
package extraction

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docatlas/internal/chunker"
	"github.com/dgallion1/docatlas/internal/cleaner"
	"github.com/dgallion1/docatlas/internal/keywords"
	"github.com/dgallion1/docatlas/internal/layout"
	"github.com/dgallion1/docatlas/internal/model"
	"github.com/dgallion1/docatlas/internal/segmenter"
)

// ErrUnsupportedType is returned for input that is not a PDF by content
// type or file extension.
var ErrUnsupportedType = errors.New("unsupported type for extraction")

// UploadDateLayout is the UTC timestamp format of Source.UploadDate.
const UploadDateLayout = "2006-01-02T15:04:05Z"

// Options control one extraction run.
type Options struct {
	ApplyBlockCleaning bool
	IncludeKeywords    bool
}

func DefaultOptions() Options {
	return Options{IncludeKeywords: true}
}

// Pipeline holds the stage configuration. It has no per-document state
// and may be used from many goroutines at once.
type Pipeline struct {
	log       *slog.Logger
	layout    *layout.Extractor
	segmenter segmenter.Config
	chunker   chunker.Config
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithSegmenterConfig(cfg segmenter.Config) Option {
	return func(p *Pipeline) { p.segmenter = cfg }
}

func WithChunkerConfig(cfg chunker.Config) Option {
	return func(p *Pipeline) { p.chunker = cfg }
}

// WithClock overrides the clock used for Source.UploadDate.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(log *slog.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{
		log:       log,
		layout:    layout.New(log),
		segmenter: segmenter.DefaultConfig(),
		chunker:   chunker.DefaultConfig(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Extract runs the full pipeline over content. The only error is
// ErrUnsupportedType; unreadable PDFs produce a document with no sections.
func (p *Pipeline) Extract(content []byte, fileName, contentType, fileID string, opts Options) (model.Document, []model.Section, error) {
	if !IsPDF(contentType, fileName) {
		return model.Document{}, nil, fmt.Errorf("%w: %s / %s", ErrUnsupportedType, contentType, fileName)
	}

	log := p.log.With("file_id", fileID, "file_name", fileName)
	source := model.Source{
		FileName:   fileName,
		FileHash:   FileHash(content),
		UploadDate: p.now().UTC().Format(UploadDateLayout),
	}

	blocks := p.layout.Extract(content)
	log.Info("layout extraction", "blocks", len(blocks))

	if opts.ApplyBlockCleaning {
		blocks = cleaner.Clean(blocks)
		log.Info("block cleaning", "blocks", len(blocks))
	}

	segments := segmenter.Segment(blocks, p.segmenter)
	log.Info("structural segmentation", "segments", len(segments))

	doc, sections := chunker.Chunk(segments, fileID, source, p.chunker)
	log.Info("semantic chunking", "sections", len(sections))

	sections, headers := normalizeSections(sections)
	if opts.IncludeKeywords {
		sections = keywords.ExtractAll(sections, nil, headers)
	}
	return doc, sections, nil
}

// IsPDF reports whether the content type (parameters ignored) or the file
// extension names a PDF.
func IsPDF(contentType, fileName string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	if strings.EqualFold(strings.TrimSpace(base), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

// FileHash is the hex SHA-256 of content.
func FileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NormalizeContent collapses whitespace runs to single spaces and trims.
func NormalizeContent(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeSections returns copies of sections with normalized content,
// and the first line of each table's original content keyed by section id.
func normalizeSections(sections []model.Section) ([]model.Section, map[string]string) {
	out := make([]model.Section, len(sections))
	headers := make(map[string]string)
	for i, s := range sections {
		if s.Type == model.SectionTable {
			headers[s.SectionID] = firstLine(s.Content)
		}
		s.Content = NormalizeContent(s.Content)
		out[i] = s
	}
	return out, headers
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

// Marshal renders the persisted {document, sections} payload.
func Marshal(doc model.Document, sections []model.Section) ([]byte, error) {
	if sections == nil {
		sections = []model.Section{}
	}
	data, err := json.MarshalIndent(model.Result{Document: doc, Sections: sections}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal extraction: %w", err)
	}
	return data, nil
}

// Unmarshal parses a payload written by Marshal.
func Unmarshal(data []byte) (model.Result, error) {
	var r model.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return model.Result{}, fmt.Errorf("unmarshal extraction: %w", err)
	}
	return r, nil
}
