package convert

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
	"github.com/thywilljoshua/pdf-to-docx/internal/tempfile"
)

type TextOptions struct {
	// Transcriber reads pages that have no text layer. Nil disables it.
	Transcriber ai.Transcriber
	// ImageDir is scratch space for embedded image extraction. Empty
	// skips images.
	ImageDir string
	// Media stages pictures for the document. Nil uses a private scope.
	Media docx.MediaStore
	Log   logrus.FieldLogger
}

// ConvertText rebuilds pages first..last of src as editable paragraphs,
// headings and tables and writes the package to dst. dst is written only
// once the whole document has been built.
func ConvertText(ctx context.Context, src, dst string, rng PageRange, opts TextOptions) (Stats, error) {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	f, r, err := openTextPDF(src)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()

	total := r.NumPage()
	first, last, err := rng.Resolve(total)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Pages: last - first + 1, TotalPages: total}

	pages := make([][]line, 0, st.Pages)
	glyphs := 0
	for n := first; n <= last; n++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		lines, err := pageLines(r, n)
		if err != nil {
			return st, err
		}
		for _, l := range lines {
			glyphs += len(l.text())
		}
		pages = append(pages, lines)
	}

	media := opts.Media
	if media == nil {
		scope := tempfile.NewScope("", log)
		defer scope.Close()
		media = scope
	}
	doc, err := docx.New(media)
	if err != nil {
		return st, err
	}

	if glyphs == 0 {
		if opts.Transcriber == nil {
			return st, ErrNoText
		}
		log.WithFields(logrus.Fields{"first": first, "last": last}).Info("no text layer, transcribing pages")
		tr, err := opts.Transcriber.Transcribe(ctx, src, first, last)
		if err != nil {
			return st, fmt.Errorf("transcribe pages: %w", err)
		}
		writeTranscript(doc, tr, &st)
	} else {
		var images map[int][][]byte
		if opts.ImageDir != "" {
			images, err = extractPageImages(src, opts.ImageDir, first, last)
			if err != nil {
				log.WithError(err).Warn("image extraction failed, continuing with text only")
			}
		}
		body := bodySize(pages)
		blocks := make([][]block, len(pages))
		for i, lines := range pages {
			blocks[i] = buildBlocks(lines, body)
		}
		normalizeOutline(blocks)
		for i := range blocks {
			writeBlocks(doc, blocks[i], &st)
			for _, img := range images[first+i] {
				if err := doc.AddPicture(img, pictureWidth(img, doc.Section().UsableWidth())); err != nil {
					log.WithError(err).WithField("page", first+i).Debug("skipping unreadable image")
				}
			}
			if i < len(pages)-1 {
				doc.AddPageBreak()
			}
		}
	}

	if doc.Empty() {
		return st, ErrNoText
	}
	st.Images = doc.Pictures()
	st.PageBreaks = doc.PageBreaks()

	data, err := doc.Bytes()
	if err != nil {
		return st, err
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return st, fmt.Errorf("write docx: %w", err)
	}
	return st, nil
}

func openTextPDF(src string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("open pdf: malformed document: %v", p)
		}
	}()
	f, r, err = pdf.Open(src)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	return f, r, nil
}

func pageLines(r *pdf.Reader, n int) (lines []line, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("read page %d: %v", n, p)
		}
	}()
	p := r.Page(n)
	if p.V.IsNull() {
		return nil, nil
	}
	return buildLines(p.Content().Text), nil
}

func writeBlocks(doc *docx.Document, blocks []block, st *Stats) {
	for _, b := range blocks {
		switch b.kind {
		case blockHeading:
			doc.AddHeading(spansText(b.spans), b.level)
			st.Headings++
		case blockTable:
			doc.AddTable(b.rows)
			st.Tables++
		default:
			runs := make([]docx.Run, 0, len(b.spans))
			for _, s := range b.spans {
				runs = append(runs, docx.Run{Text: s.text, Bold: s.bold, Italic: s.italic, HalfPoints: int(math.Round(s.size * 2))})
			}
			doc.AddParagraph(runs...)
			st.Paragraphs++
		}
	}
}

func writeTranscript(doc *docx.Document, tr ai.Transcript, st *Stats) {
	page := 0
	for _, b := range tr.Blocks {
		if page != 0 && b.Page > page {
			doc.AddPageBreak()
		}
		if b.Page > page {
			page = b.Page
		}
		if b.Kind == ai.KindHeading {
			doc.AddHeading(b.Text, b.Level)
			st.Headings++
			continue
		}
		doc.AddParagraph(docx.Run{Text: b.Text})
		st.Paragraphs++
	}
}

func spansText(spans []span) string {
	s := ""
	for _, sp := range spans {
		s += sp.text
	}
	return s
}
