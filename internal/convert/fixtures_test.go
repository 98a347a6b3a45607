package convert

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
	ndocx "github.com/nguyenthenguyen/docx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// writeChapters writes a PDF whose page n carries a "Chapter n" heading,
// a two-line paragraph and a two-row table.
func writeChapters(t *testing.T, dir string, pages int) string {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "Letter", "")
	for n := 1; n <= pages; n++ {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 20)
		pdf.Text(72, 72, fmt.Sprintf("Chapter %d", n))
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(72, 120, fmt.Sprintf("This is page %d of the fixture.", n))
		pdf.Text(72, 134, "It continues on a second line.")
		pdf.Text(72, 200, "Item")
		pdf.Text(300, 200, "Quantity")
		pdf.Text(72, 214, "Apples")
		pdf.Text(300, 214, "Three")
	}
	path := filepath.Join(dir, "chapters.pdf")
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

// writeIllustrated writes pages like writeChapters into dir/name and places
// a 60x30 px PNG below the table on page imagePage.
func writeIllustrated(t *testing.T, dir, name string, pages, imagePage int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 30))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 20, G: 90, B: 160, A: 255}), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	pdf := gofpdf.New("P", "pt", "Letter", "")
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("logo", opt, &buf)
	for n := 1; n <= pages; n++ {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 20)
		pdf.Text(72, 72, fmt.Sprintf("Chapter %d", n))
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(72, 120, fmt.Sprintf("This is page %d of the fixture.", n))
		pdf.Text(72, 134, "It continues on a second line.")
		if n == imagePage {
			pdf.ImageOptions("logo", 72, 260, 120, 60, false, opt, 0, "")
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

// writeBlank writes a PDF whose pages have no text layer.
func writeBlank(t *testing.T, dir string, pages int) string {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "Letter", "")
	for n := 1; n <= pages; n++ {
		pdf.AddPage()
		pdf.SetFillColor(30, 30, 30)
		pdf.Rect(72, 72, 200, 100, "F")
	}
	path := filepath.Join(dir, "scan.pdf")
	require.NoError(t, pdf.OutputFileAndClose(path))
	return path
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func docxContent(t *testing.T, data []byte) string {
	t.Helper()
	r, err := ndocx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	defer r.Close()
	return r.Editable().GetContent()
}

func docxMedia(t *testing.T, data []byte) int {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	n := 0
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/media/") {
			n++
		}
	}
	return n
}

func countDrawings(content string) int { return strings.Count(content, "<w:drawing>") }

func countPageBreaks(content string) int { return strings.Count(content, `<w:br w:type="page"></w:br>`) }

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
