// Package model holds the values passed between extraction stages.
package model

// BlockType classifies a layout block.
type BlockType string

const (
	BlockText   BlockType = "text"
	BlockTable  BlockType = "table"
	BlockFigure BlockType = "figure"
)

// SectionType mirrors BlockType on the output side.
type SectionType string

const (
	SectionText   SectionType = "text"
	SectionTable  SectionType = "table"
	SectionFigure SectionType = "figure"
)

// BBox is a rectangle in page layout units, top-down coordinates.
type BBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (b BBox) Width() float64  { return b.Right - b.Left }
func (b BBox) Height() float64 { return b.Bottom - b.Top }

// Overlaps reports whether b and o share any area.
func (b BBox) Overlaps(o BBox) bool {
	return !(b.Right <= o.Left || b.Left >= o.Right || b.Bottom <= o.Top || b.Top >= o.Bottom)
}

// Union returns the smallest box covering b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		Left:   min(b.Left, o.Left),
		Top:    min(b.Top, o.Top),
		Right:  max(b.Right, o.Right),
		Bottom: max(b.Bottom, o.Bottom),
	}
}

// Block is a positioned unit of page content produced by layout extraction.
type Block struct {
	Type     BlockType
	Content  string
	Page     int // 1-based
	BBox     *BBox
	Caption  string
	FontSize *float64
	IsBold   bool
}

// Segment is a heading-scoped unit produced by the segmenter.
type Segment struct {
	Heading    string
	Level      int
	Type       SectionType
	Content    string
	Page       int
	Caption    string
	Confidence Confidence
}

// Section is a final retrieval unit.
type Section struct {
	SectionID  string      `json:"section_id"`
	FileID     string      `json:"file_id"`
	Heading    string      `json:"heading"`
	Type       SectionType `json:"section_type"`
	Content    string      `json:"content"`
	Keywords   []string    `json:"keywords"`
	Confidence Confidence  `json:"-"`
}

// Source records where a document came from.
type Source struct {
	FileName   string `json:"file_name"`
	FileHash   string `json:"file_hash"`
	UploadDate string `json:"upload_date"`
}

// TechnicalContext is reserved for downstream enrichment.
type TechnicalContext struct {
	Equipment *string  `json:"equipment"`
	Version   *string  `json:"version"`
	Workflow  []string `json:"workflow"`
}

// Document is the file-level record. Sections lists the ids of the
// document's sections in order. Enrichment fields are never filled by
// extraction but always serialized.
type Document struct {
	FileID           string           `json:"file_id"`
	Source           Source           `json:"source"`
	DocumentType     *string          `json:"document_type"`
	TechnicalContext TechnicalContext `json:"technical_context"`
	RiskLevel        *string          `json:"risk_level"`
	Audience         []string         `json:"audience"`
	State            *string          `json:"state"`
	EffectiveDate    *string          `json:"effective_date"`
	OwnerTeam        *string          `json:"owner_team"`
	Sections         []string         `json:"sections"`
}

// NewDocument returns a Document with empty enrichment fields.
func NewDocument(fileID string, src Source) Document {
	return Document{
		FileID:           fileID,
		Source:           src,
		TechnicalContext: TechnicalContext{Workflow: []string{}},
		Audience:         []string{},
		Sections:         []string{},
	}
}

// Result is the persisted extraction payload.
type Result struct {
	Document Document  `json:"document"`
	Sections []Section `json:"sections"`
}
