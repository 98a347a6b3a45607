package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
)

type fakeTranscriber struct {
	tr    ai.Transcript
	err   error
	calls int
	first int
	last  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, pdfPath string, first, last int) (ai.Transcript, error) {
	f.calls++
	f.first, f.last = first, last
	return f.tr, f.err
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func convertText(t *testing.T, src string, rng PageRange, opts TextOptions) (string, Stats, error) {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "out.docx")
	opts.Log = quietLog()
	st, err := ConvertText(context.Background(), src, dst, rng, opts)
	if err != nil {
		return dst, st, err
	}
	data, rerr := os.ReadFile(dst)
	require.NoError(t, rerr)
	return docxContent(t, data), st, nil
}

func TestConvertTextWholeDocument(t *testing.T) {
	src := writeChapters(t, t.TempDir(), 3)

	content, st, err := convertText(t, src, AllPages, TextOptions{})
	require.NoError(t, err)

	for n := 1; n <= 3; n++ {
		assert.Contains(t, content, fmt.Sprintf("Chapter %d", n))
		assert.Contains(t, content, fmt.Sprintf("This is page %d of the fixture. It continues on a second line.", n))
	}
	assert.Contains(t, content, "Quantity")
	assert.Contains(t, content, "<w:pStyle w:val=\"Heading")
	assert.Equal(t, 2, countPageBreaks(content))

	assert.Equal(t, 3, st.Pages)
	assert.Equal(t, 3, st.TotalPages)
	assert.Equal(t, 3, st.Headings)
	assert.Equal(t, 3, st.Tables)
	assert.Equal(t, 3, st.Paragraphs)
	assert.Equal(t, 2, st.PageBreaks)
}

func TestConvertTextStartToEnd(t *testing.T) {
	src := writeChapters(t, t.TempDir(), 5)
	rng, err := NewPageRange(2, 0)
	require.NoError(t, err)

	content, st, err := convertText(t, src, rng, TextOptions{})
	require.NoError(t, err)

	assert.NotContains(t, content, "Chapter 1<")
	assert.NotContains(t, content, "page 1 of")
	for n := 2; n <= 5; n++ {
		assert.Contains(t, content, fmt.Sprintf("Chapter %d", n))
	}
	assert.Equal(t, 4, st.Pages)
	assert.Equal(t, 5, st.TotalPages)
	assert.Equal(t, 3, countPageBreaks(content))
}

func TestConvertTextBoundedRange(t *testing.T) {
	src := writeChapters(t, t.TempDir(), 5)

	content, st, err := convertText(t, src, PageRange{Start: 2, End: 3}, TextOptions{})
	require.NoError(t, err)
	assert.Contains(t, content, "page 2 of")
	assert.Contains(t, content, "page 3 of")
	assert.NotContains(t, content, "page 4 of")
	assert.Equal(t, 2, st.Pages)
}

func TestConvertTextBadRangeLeavesNoOutput(t *testing.T) {
	src := writeChapters(t, t.TempDir(), 3)

	for name, rng := range map[string]PageRange{
		"start beyond last page": {Start: 4},
		"inverted":               {Start: 3, End: 2},
	} {
		t.Run(name, func(t *testing.T) {
			dst, _, err := convertText(t, src, rng, TextOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRangeOutOfBounds) || errors.Is(err, ErrInvertedRange))
			_, statErr := os.Stat(dst)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestConvertTextNoTextLayer(t *testing.T) {
	src := writeBlank(t, t.TempDir(), 2)

	_, _, err := convertText(t, src, AllPages, TextOptions{})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestConvertTextTranscribesScans(t *testing.T) {
	src := writeBlank(t, t.TempDir(), 2)
	fake := &fakeTranscriber{tr: ai.Transcript{Blocks: []ai.Block{
		{Kind: ai.KindHeading, Level: 1, Text: "Scanned title", Page: 1},
		{Kind: ai.KindParagraph, Text: "Scanned body", Page: 1},
		{Kind: ai.KindParagraph, Text: "Second page body", Page: 2},
	}}}

	content, st, err := convertText(t, src, AllPages, TextOptions{Transcriber: fake})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, 1, fake.first)
	assert.Equal(t, 2, fake.last)
	assert.Contains(t, content, "Scanned title")
	assert.Contains(t, content, "Second page body")
	assert.Equal(t, 1, countPageBreaks(content))
	assert.Equal(t, 1, st.Headings)
	assert.Equal(t, 2, st.Paragraphs)
}

func TestConvertTextTranscriberFailure(t *testing.T) {
	src := writeBlank(t, t.TempDir(), 1)
	_, _, err := convertText(t, src, AllPages, TextOptions{Transcriber: &fakeTranscriber{err: errors.New("quota exceeded")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, _, err = convertText(t, src, AllPages, TextOptions{Transcriber: ai.Noop{}})
	assert.ErrorIs(t, err, ErrNoText)
}

func TestConvertTextCorruptInput(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "broken.pdf", []byte("%PDF-1.4\nthis is not really a pdf"))
	_, _, err := convertText(t, src, AllPages, TextOptions{})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "open pdf"))
}

func convertIllustrated(t *testing.T, name string, rng PageRange) (string, Stats) {
	t.Helper()
	dir := t.TempDir()
	src := writeIllustrated(t, dir, name, 3, 2)
	imgDir := filepath.Join(dir, "images")
	require.NoError(t, os.Mkdir(imgDir, 0o700))

	content, st, err := convertText(t, src, rng, TextOptions{ImageDir: imgDir})
	require.NoError(t, err)
	return content, st
}

func TestConvertTextPlacesImageAfterItsPage(t *testing.T) {
	content, st := convertIllustrated(t, "illustrated.pdf", AllPages)

	assert.Equal(t, 1, st.Images)
	require.Equal(t, 1, countDrawings(content))
	pic := strings.Index(content, "<w:drawing>")
	assert.Greater(t, pic, strings.Index(content, "This is page 2 of the fixture."))
	assert.Less(t, pic, strings.Index(content, "Chapter 3"))
	// 60px at 96 DPI fits the text column, so it keeps its natural size.
	assert.Contains(t, content, `cx="571500" cy="285750"`)
}

func TestConvertTextSkipsImagesOutsideRange(t *testing.T) {
	content, st := convertIllustrated(t, "illustrated.pdf", PageRange{Start: 3, End: 3})
	assert.Zero(t, st.Images)
	assert.Zero(t, countDrawings(content))
	assert.Contains(t, content, "Chapter 3")
}

func TestConvertTextImagesWithUppercaseExtension(t *testing.T) {
	content, st := convertIllustrated(t, "ILLUSTRATED.PDF", AllPages)
	assert.Equal(t, 1, st.Images)
	assert.Equal(t, 1, countDrawings(content))
}

func TestConvertTextSurvivesExtractorPanic(t *testing.T) {
	orig := extractImagesFile
	extractImagesFile = func(string, string, []string, *model.Configuration) error {
		panic("index out of range")
	}
	t.Cleanup(func() { extractImagesFile = orig })

	err := pdfcpuExtractImages("x.pdf", t.TempDir(), []string{"1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index out of range")

	content, st := convertIllustrated(t, "illustrated.pdf", AllPages)
	assert.Zero(t, st.Images)
	assert.Contains(t, content, "Chapter 3")
}

func TestConvertTextWithoutEmbeddedImages(t *testing.T) {
	dir := t.TempDir()
	src := writeChapters(t, dir, 2)
	imgDir := filepath.Join(dir, "images")
	require.NoError(t, os.Mkdir(imgDir, 0o700))

	content, st, err := convertText(t, src, AllPages, TextOptions{ImageDir: imgDir})
	require.NoError(t, err)
	assert.Contains(t, content, "Chapter 2")
	assert.Equal(t, 0, st.Images)
}

func TestConvertTextIsRepeatable(t *testing.T) {
	src := writeChapters(t, t.TempDir(), 4)
	_, a, err := convertText(t, src, PageRange{Start: 2}, TextOptions{})
	require.NoError(t, err)
	_, b, err := convertText(t, src, PageRange{Start: 2}, TextOptions{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestImageStem(t *testing.T) {
	assert.Equal(t, "report", imageStem("/tmp/x/report.pdf"))
	assert.Equal(t, "Report.PDF", imageStem("/tmp/x/Report.PDF"))
	assert.Equal(t, 1, parsePageFromName("Report.PDF_1_Im0.png", imageStem("Report.PDF")))
	assert.Equal(t, 2, parsePageFromName("big_02_Im0.png", imageStem("big.pdf")))
}

func TestPictureWidth(t *testing.T) {
	usable := int64(6 * 914400)
	small := pngOf(t, 96, 10)
	wide := pngOf(t, 2000, 10)
	assert.Equal(t, int64(914400), pictureWidth(small, usable))
	assert.Equal(t, usable, pictureWidth(wide, usable))
	assert.Equal(t, usable, pictureWidth([]byte("junk"), usable))
}

func TestParsePageFromName(t *testing.T) {
	assert.Equal(t, 3, parsePageFromName("pdf2docx-123_3_Im0.png", "pdf2docx-123"))
	assert.Equal(t, 12, parsePageFromName("my_report_12_Im1.jpg", "my_report"))
	assert.Equal(t, 0, parsePageFromName("other_3_Im0.png", "pdf2docx-123"))
	assert.Equal(t, 0, parsePageFromName("pdf2docx-123_x_Im0.png", "pdf2docx-123"))
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":             "report.docx",
		"Annual Report 2024.PDF": "Annual Report 2024.docx",
		`C:\Users\me\scan.pdf`:   "scan.docx",
		"dir/archive.tar.pdf":    "archive.tar.docx",
		"":                       "document.docx",
		".pdf":                   "document.docx",
		"noext":                  "noext.docx",
	}
	for in, want := range tests {
		assert.Equal(t, want, OutputName(in), in)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeText, "text": ModeText, "Editable": ModeText, "images": ModeImages, "exact": ModeImages} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("ocr")
	assert.ErrorIs(t, err, ErrUnknownMode)
	assert.Equal(t, "Exact layout as images (fallback)", ModeImages.Label())
}
