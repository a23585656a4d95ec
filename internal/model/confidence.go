package model

// Confidence is an ordered extraction confidence: Low < Medium < High.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// MinConfidence returns the lower of a and b.
func MinConfidence(a, b Confidence) Confidence {
	if a < b {
		return a
	}
	return b
}
