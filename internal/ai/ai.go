package ai

import "context"

type BlockKind string

const (
	KindHeading   BlockKind = "heading"
	KindParagraph BlockKind = "paragraph"
)

// Block is one transcribed unit of page content.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"`
	Text  string    `json:"text"`
	Page  int       `json:"page"`
}

type Transcript struct {
	Blocks []Block `json:"blocks"`
}

// Transcriber reads pages that carry no text layer (scans, flattened
// exports). first and last are 1-based and inclusive.
type Transcriber interface {
	Transcribe(ctx context.Context, pdfPath string, first, last int) (Transcript, error)
}

type Noop struct{}

func (Noop) Transcribe(ctx context.Context, pdfPath string, first, last int) (Transcript, error) {
	return Transcript{}, nil
}
