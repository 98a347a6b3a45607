// Package docx builds Word documents on top of godocx: paragraphs with styled
// runs, headings, simple tables, inline pictures and page breaks.
package docx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/common/units"
	gdocx "github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/stypes"
)

// MIMEType is the content type of a serialized package.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// EMU conversions.
const (
	EMUPerInch = 914400
	EMUPerTwip = 635
)

// Section is the page geometry of the single document section, in EMU.
type Section struct {
	PageWidth    int64
	PageHeight   int64
	MarginTop    int64
	MarginBottom int64
	MarginLeft   int64
	MarginRight  int64
}

// DefaultSection is US Letter with 1in top/bottom and 1.25in side margins,
// the geometry of the godocx base template.
func DefaultSection() Section {
	return Section{
		PageWidth:    8.5 * EMUPerInch,
		PageHeight:   11 * EMUPerInch,
		MarginTop:    1 * EMUPerInch,
		MarginBottom: 1 * EMUPerInch,
		MarginLeft:   1.25 * EMUPerInch,
		MarginRight:  1.25 * EMUPerInch,
	}
}

// UsableWidth is the page width minus the side margins.
func (s Section) UsableWidth() int64 {
	return s.PageWidth - s.MarginLeft - s.MarginRight
}

// Run is a span of text sharing one character style. HalfPoints of zero
// inherits the paragraph style size.
type Run struct {
	Text       string
	Bold       bool
	Italic     bool
	HalfPoints int
}

var ErrEmptyImage = errors.New("docx: empty image")

// MediaStore holds picture files until the document is written. godocx
// reads pictures from disk, so every image passes through one.
type MediaStore interface {
	Write(content []byte, suffix string) (string, error)
}

// Document is a package under construction.
type Document struct {
	root    *gdocx.RootDoc
	media   MediaStore
	section Section

	blocks     int
	pictures   int
	pageBreaks int
}

func New(media MediaStore) (*Document, error) {
	if media == nil {
		return nil, errors.New("docx: nil media store")
	}
	root, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("docx: load base template: %w", err)
	}
	return &Document{root: root, media: media, section: DefaultSection()}, nil
}

func (d *Document) Section() Section { return d.section }

// Pictures reports how many pictures were added.
func (d *Document) Pictures() int { return d.pictures }

// PageBreaks reports how many explicit page breaks were added.
func (d *Document) PageBreaks() int { return d.pageBreaks }

// Empty reports whether the body has no content yet.
func (d *Document) Empty() bool { return d.blocks == 0 }

func (d *Document) AddParagraph(runs ...Run) {
	p := d.root.AddEmptyParagraph()
	for _, r := range runs {
		run := p.AddText(clean(r.Text))
		if r.Bold {
			run.Bold(true)
		}
		if r.Italic {
			run.Italic(true)
		}
		if r.HalfPoints > 0 {
			run.Size(uint64(math.Round(float64(r.HalfPoints) / 2)))
		}
	}
	d.blocks++
}

// AddHeading adds a paragraph styled Heading1..Heading3. Levels outside that
// range are clamped.
func (d *Document) AddHeading(text string, level int) {
	level = min(max(level, 1), 3)
	// Levels 1..3 are always accepted.
	_, _ = d.root.AddHeading(clean(text), uint(level))
	d.blocks++
}

// AddTable adds a grid-styled table spanning the text column. Rows shorter
// than the widest row are padded.
func (d *Document) AddTable(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	colTwips := d.section.UsableWidth() / EMUPerTwip / int64(cols)
	widths := make([]uint64, cols)
	for i := range widths {
		widths[i] = uint64(colTwips)
	}

	tbl := d.root.AddTable()
	tbl.Style("TableGrid")
	tbl.Width(int(colTwips)*cols, stypes.TableWidthDxa)
	tbl.Grid(widths...)
	for _, r := range rows {
		row := tbl.AddRow()
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(r) {
				cell = clean(r[i])
			}
			row.AddCell().Width(int(colTwips), stypes.TableWidthDxa).AddParagraph(cell)
		}
	}
	d.blocks++
}

// AddPicture embeds a PNG, JPEG or GIF inline, scaled to width EMU with the
// height following the pixel aspect ratio.
func (d *Document) AddPicture(data []byte, width int64) error {
	if len(data) == 0 {
		return ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("docx: decode image: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return ErrEmptyImage
	}
	ext := "." + format
	if format == "jpeg" {
		ext = ".jpg"
	}
	path, err := d.media.Write(data, ext)
	if err != nil {
		return fmt.Errorf("docx: stage image: %w", err)
	}
	height := width * int64(cfg.Height) / int64(cfg.Width)
	if _, err := d.root.AddPicture(path, emuToInch(width), emuToInch(height)); err != nil {
		return fmt.Errorf("docx: add picture: %w", err)
	}
	d.pictures++
	d.blocks++
	return nil
}

// AddPageBreak adds a paragraph holding a single page break run.
func (d *Document) AddPageBreak() {
	d.root.AddPageBreak()
	d.pageBreaks++
	d.blocks++
}

// WriteTo serializes the package as a zip archive.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := d.root.Write(cw); err != nil {
		return cw.n, fmt.Errorf("docx: write package: %w", err)
	}
	return cw.n, nil
}

// Bytes serializes the package into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emuToInch(emu int64) units.Inch {
	return units.Inch(float64(emu) / EMUPerInch)
}

// clean drops control characters that XML 1.0 cannot carry.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return -1
		}
		return r
	}, s)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
