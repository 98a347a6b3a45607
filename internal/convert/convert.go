package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
	"github.com/thywilljoshua/pdf-to-docx/internal/tempfile"
)

// ContentType is the MIME type of every conversion result.
const ContentType = docx.MIMEType

type Converter struct {
	cfg Config
	log logrus.FieldLogger
}

func New(cfg Config) *Converter {
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Converter{cfg: cfg, log: log}
}

// Run converts req.PDFPath with the selected mode. Scratch files live in a
// scope of their own and are gone by the time Run returns; the result bytes
// are the only thing handed back.
func (c *Converter) Run(ctx context.Context, req Request) (Result, error) {
	log := c.log.WithFields(logrus.Fields{"mode": req.Mode, "range": req.Range.String(), "file": req.Filename})
	scope := tempfile.NewScope(c.cfg.TempDir, log)
	defer scope.Close()

	if err := sniffPDF(req.PDFPath); err != nil {
		return Result{}, err
	}

	start := time.Now()
	res := Result{Filename: OutputName(req.Filename), ContentType: ContentType, Mode: req.Mode}

	switch req.Mode {
	case ModeText:
		dst, err := scope.Reserve(".docx")
		if err != nil {
			return Result{}, err
		}
		opts := TextOptions{Transcriber: c.cfg.Transcriber, Media: scope, Log: log}
		if c.cfg.ExtractImages {
			if opts.ImageDir, err = scope.Dir(); err != nil {
				return Result{}, err
			}
		}
		st, err := ConvertText(ctx, req.PDFPath, dst, req.Range, opts)
		if err != nil {
			return Result{}, err
		}
		data, err := os.ReadFile(dst)
		if err != nil {
			return Result{}, fmt.Errorf("read converted docx: %w", err)
		}
		res.Data, res.Stats = data, st
		res.Message = "Conversion complete."
	case ModeImages:
		if !req.Range.IsAll() {
			log.Info("page range applies to text mode only; converting every page")
		}
		data, st, err := ConvertImages(ctx, req.PDFPath, ImageOptions{Media: scope, Log: log})
		if err != nil {
			return Result{}, err
		}
		res.Data, res.Stats = data, st
		res.Message = "Conversion complete (image-based)."
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	log.WithFields(logrus.Fields{
		"pages":       res.Stats.Pages,
		"images":      res.Stats.Images,
		"bytes":       len(res.Data),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("conversion finished")
	return res, nil
}
