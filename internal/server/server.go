// Package server is the interactive front end: an upload form, a page
// counter for the options panel and the conversion endpoint.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
	"github.com/thywilljoshua/pdf-to-docx/internal/tempfile"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const requestIDKey = "request_id"

var ErrNoFile = errors.New("no file uploaded")

// Converter runs one conversion to completion.
type Converter interface {
	Run(ctx context.Context, req convert.Request) (convert.Result, error)
}

type Options struct {
	TempDir     string
	BodyLimitMB int
	Log         logrus.FieldLogger
	// CountPages defaults to convert.CountPages.
	CountPages func(path string) convert.PageCount
}

type Server struct {
	app  *fiber.App
	conv Converter
	opts Options
	log  logrus.FieldLogger
}

func New(conv Converter, opts Options) *Server {
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = l
	}
	if opts.CountPages == nil {
		opts.CountPages = convert.CountPages
	}
	if opts.BodyLimitMB <= 0 {
		opts.BodyLimitMB = 256
	}
	s := &Server{conv: conv, opts: opts, log: opts.Log}

	s.app = fiber.New(fiber.Config{
		AppName:               "pdf2docx",
		BodyLimit:             opts.BodyLimitMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(fiberrecover.New())
	s.app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	s.app.Use(s.accessLog)

	s.app.Get("/", s.handleIndex)
	s.app.Get("/healthz", s.handleHealth)
	s.app.Post("/pages", s.handlePages)
	s.app.Post("/convert", s.handleConvert)
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.WithField("addr", addr).Info("listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLog(c *fiber.Ctx) logrus.FieldLogger {
	id, _ := c.Locals(requestIDKey).(string)
	return s.log.WithField("request_id", id)
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.requestLog(c).WithFields(logrus.Fields{
		"method":      c.Method(),
		"path":        c.Path(),
		"status":      c.Response().StatusCode(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("request")
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	s.requestLog(c).WithError(err).WithField("status", code).Warn("request failed")
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

type modeOption struct {
	Value   convert.Mode
	Label   string
	Checked bool
}

type formView struct {
	Modes      []modeOption
	Start      int
	End        int
	PagesLabel string
	Error      string

	// upload is counted only when the form is shown again.
	upload string
}

func newFormView(selected convert.Mode) formView {
	v := formView{Start: 1}
	for _, m := range []convert.Mode{convert.ModeText, convert.ModeImages} {
		v.Modes = append(v.Modes, modeOption{Value: m, Label: m.Label(), Checked: m == selected})
	}
	return v
}

func (s *Server) render(c *fiber.Ctx, status int, v formView) error {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, v); err != nil {
		return fmt.Errorf("render form: %w", err)
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, newFormView(convert.ModeText))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

type pagesResponse struct {
	Pages *int   `json:"pages"`
	Label string `json:"label"`
}

// handlePages counts pages for the options panel. A file that cannot be
// parsed is reported as Unknown rather than as an error.
func (s *Server) handlePages(c *fiber.Ctx) error {
	log := s.requestLog(c)
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrNoFile.Error()})
	}

	scope := tempfile.NewScope(s.opts.TempDir, log)
	defer scope.Close()

	resp := pagesResponse{Label: convert.UnknownPages.String()}
	path, err := saveUpload(scope, fh)
	if err != nil {
		log.WithError(err).Warn("could not store upload for page count")
		return c.JSON(resp)
	}
	if n := s.opts.CountPages(path); n.Known() {
		pages := int(n)
		resp.Pages, resp.Label = &pages, n.String()
	}
	log.WithFields(logrus.Fields{"file": fh.Filename, "pages": resp.Label}).Debug("counted pages")
	return c.JSON(resp)
}

func (s *Server) handleConvert(c *fiber.Ctx) error {
	log := s.requestLog(c)
	flow := NewFlow()
	mode, modeErr := convert.ParseMode(c.FormValue("mode"))
	view := newFormView(convert.ModeText)
	if modeErr == nil {
		view = newFormView(mode)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return s.fail(c, log, flow, view, ErrNoFile)
	}

	scope := tempfile.NewScope(s.opts.TempDir, log)
	defer scope.Close()

	path, err := saveUpload(scope, fh)
	if err != nil {
		return s.fail(c, log, flow, view, err)
	}
	if err := s.advance(log, flow, FileUploaded); err != nil {
		return s.fail(c, log, flow, view, err)
	}
	view.upload = path
	if modeErr != nil {
		return s.fail(c, log, flow, view, modeErr)
	}

	rng, err := parseRange(c.FormValue("start"), c.FormValue("end"))
	if err != nil {
		return s.fail(c, log, flow, view, err)
	}
	view.Start, view.End = rng.Start, rng.End
	if !rng.IsAll() {
		if err := s.advance(log, flow, ConfiguringOptions); err != nil {
			return s.fail(c, log, flow, view, err)
		}
	}

	if err := s.advance(log, flow, Converting); err != nil {
		return s.fail(c, log, flow, view, err)
	}
	start := time.Now()
	res, err := s.conv.Run(c.UserContext(), convert.Request{
		PDFPath:  path,
		Filename: fh.Filename,
		Mode:     mode,
		Range:    rng,
	})
	if ferr := flow.Finish(err); ferr != nil {
		log.WithError(ferr).Error("flow")
	}
	if err != nil {
		return s.fail(c, log, flow, view, err)
	}

	log.WithFields(logrus.Fields{
		"mode":        res.Mode,
		"range":       rng.String(),
		"pages":       res.Stats.Pages,
		"bytes":       len(res.Data),
		"duration_ms": time.Since(start).Milliseconds(),
		"flow":        flow.History(),
	}).Info("conversion served")

	c.Set(fiber.HeaderContentDisposition, contentDisposition(res.Filename))
	c.Set(fiber.HeaderContentType, res.ContentType)
	c.Set("X-Conversion-Message", res.Message)
	c.Set("X-Conversion-Pages", strconv.Itoa(res.Stats.Pages))
	return c.Send(res.Data)
}

func (s *Server) advance(log logrus.FieldLogger, flow *Flow, next State) error {
	from := flow.State()
	if err := flow.To(next); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"from": from, "to": next}).Debug("flow")
	return nil
}

// fail surfaces err to the user. Nothing is offered for download.
func (s *Server) fail(c *fiber.Ctx, log logrus.FieldLogger, flow *Flow, view formView, err error) error {
	msg := "Conversion failed: " + err.Error()
	log.WithError(err).WithFields(logrus.Fields{
		"state": flow.State(),
		"flow":  flow.History(),
	}).Warn("conversion failed")

	if c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": msg})
	}
	view.Error = msg
	if view.upload != "" {
		view.PagesLabel = s.opts.CountPages(view.upload).String()
	}
	return s.render(c, fiber.StatusUnprocessableEntity, view)
}

// contentDisposition keeps a plain ASCII filename for old clients and adds
// the RFC 5987 form when the name needed mangling.
func contentDisposition(name string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, name)
	v := `attachment; filename="` + ascii + `"`
	if ascii != name {
		v += "; filename*=UTF-8''" + url.PathEscape(name)
	}
	return v
}

func saveUpload(scope *tempfile.Scope, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return scope.WriteFrom(f, ".pdf")
}

func parseRange(start, end string) (convert.PageRange, error) {
	s, err := parsePage(start, 1, "start page")
	if err != nil {
		return convert.PageRange{}, err
	}
	e, err := parsePage(end, 0, "end page")
	if err != nil {
		return convert.PageRange{}, err
	}
	return convert.NewPageRange(s, e)
}

func parsePage(v string, def int, name string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number, got %q", name, v)
	}
	return n, nil
}
