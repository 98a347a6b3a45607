package convert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
)

type Mode string

const (
	ModeText   Mode = "text"
	ModeImages Mode = "images"
)

var (
	ErrUnknownMode = errors.New("unknown conversion mode")
	ErrNotPDF      = errors.New("file is not a PDF")
	ErrNoText      = errors.New("no extractable text in the selected pages; try exact layout mode")
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "editable":
		return ModeText, nil
	case "images", "image", "exact":
		return ModeImages, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Label is the wording shown next to the mode selector.
func (m Mode) Label() string {
	switch m {
	case ModeText:
		return "Preserve editable text (recommended)"
	case ModeImages:
		return "Exact layout as images (fallback)"
	}
	return string(m)
}

type Request struct {
	PDFPath  string
	Filename string
	Mode     Mode
	Range    PageRange
}

// Stats describes what a conversion produced.
type Stats struct {
	Pages      int `json:"pages" yaml:"pages"`
	TotalPages int `json:"total_pages" yaml:"total_pages"`
	Images     int `json:"images" yaml:"images"`
	PageBreaks int `json:"page_breaks" yaml:"page_breaks"`
	Paragraphs int `json:"paragraphs" yaml:"paragraphs"`
	Headings   int `json:"headings" yaml:"headings"`
	Tables     int `json:"tables" yaml:"tables"`
}

type Result struct {
	Data        []byte `json:"-" yaml:"-"`
	Filename    string `json:"filename" yaml:"filename"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Mode        Mode   `json:"mode" yaml:"mode"`
	Stats       Stats  `json:"stats" yaml:"stats"`
	Message     string `json:"message" yaml:"message"`
}

type Config struct {
	// TempDir holds scratch files; empty uses the OS default.
	TempDir string
	// ExtractImages embeds images found on text-mode pages.
	ExtractImages bool
	Transcriber   ai.Transcriber
	Log           logrus.FieldLogger
}
