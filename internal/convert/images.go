package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"

	fitz "github.com/gen2brain/go-fitz"
	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
	"github.com/thywilljoshua/pdf-to-docx/internal/tempfile"
)

// RenderScale oversamples pages relative to 72 DPI so text stays sharp.
const RenderScale = 2.0

type ImageOptions struct {
	// Media stages page images for the document. Nil uses a private scope.
	Media docx.MediaStore
	Log   logrus.FieldLogger
}

// ConvertImages rasterizes every page of src and stacks the images in a new
// document, one page per image.
func ConvertImages(ctx context.Context, src string, opts ImageOptions) ([]byte, Stats, error) {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	doc, err := openFitz(src)
	if err != nil {
		return nil, Stats{}, err
	}
	defer func() {
		if err := doc.Close(); err != nil {
			log.WithError(err).Debug("close pdf")
		}
	}()

	n := doc.NumPage()
	if n <= 0 {
		return nil, Stats{}, ErrEmptyDocument
	}
	st := Stats{Pages: n, TotalPages: n}

	media := opts.Media
	if media == nil {
		scope := tempfile.NewScope("", log)
		defer scope.Close()
		media = scope
	}
	out, err := docx.New(media)
	if err != nil {
		return nil, st, err
	}
	width := out.Section().UsableWidth()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, st, err
		}
		img, err := renderPage(doc, i, RenderScale)
		if err != nil {
			return nil, st, err
		}
		if err := out.AddPicture(img, width); err != nil {
			return nil, st, fmt.Errorf("page %d: %w", i+1, err)
		}
		if i < n-1 {
			out.AddPageBreak()
		}
		log.WithField("page", i+1).Debug("rendered page")
	}
	st.Images = out.Pictures()
	st.PageBreaks = out.PageBreaks()

	data, err := out.Bytes()
	if err != nil {
		return nil, st, err
	}
	return data, st, nil
}

func openFitz(src string) (doc *fitz.Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("open pdf: malformed document: %v", p)
		}
	}()
	doc, err = fitz.New(src)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return doc, nil
}

// renderPage returns the page as an opaque PNG; transparent areas are
// composited onto white so the encoder drops the alpha channel.
func renderPage(doc *fitz.Document, i int, scale float64) ([]byte, error) {
	src, err := doc.ImageDPI(i, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", i+1, err)
	}
	b := src.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", i+1, err)
	}
	return buf.Bytes(), nil
}
