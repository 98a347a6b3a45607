package convert

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/thywilljoshua/pdf-to-docx/internal/docx"
)

// OutputName derives the download name from the uploaded file name.
func OutputName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." || stem == "/" {
		stem = "document"
	}
	return stem + ".docx"
}

var embeddable = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// extractPageImages pulls embedded images of pages first..last into dir and
// returns their bytes keyed by page number.
func extractPageImages(src, dir string, first, last int) (map[int][][]byte, error) {
	var pages []string
	for p := first; p <= last; p++ {
		pages = append(pages, strconv.Itoa(p))
	}
	if err := pdfcpuExtractImages(src, dir, pages); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && embeddable[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	stem := imageStem(src)
	out := map[int][][]byte{}
	for _, name := range names {
		pg := parsePageFromName(name, stem)
		if pg < first || pg > last {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || len(b) == 0 {
			continue
		}
		out[pg] = append(out[pg], b)
	}
	return out, nil
}

var extractImagesFile = api.ExtractImagesFile

func pdfcpuExtractImages(src, dir string, pages []string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("extract images: malformed document: %v", p)
		}
	}()
	return extractImagesFile(src, dir, pages, pdfcpuConfig())
}

// imageStem is the prefix pdfcpu gives extracted images. Only a lowercase
// ".pdf" is stripped, so "Report.PDF" keeps its extension.
func imageStem(src string) string {
	return strings.TrimSuffix(filepath.Base(src), ".pdf")
}

// parsePageFromName reads the page from pdfcpu's "<stem>_<page>_<id>.<ext>".
func parsePageFromName(name, stem string) int {
	rest, ok := strings.CutPrefix(name, stem+"_")
	if !ok {
		return 0
	}
	digits, _, _ := strings.Cut(rest, "_")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// pictureWidth keeps small images at their natural 96 DPI size and shrinks
// anything wider than the text column.
func pictureWidth(data []byte, usable int64) int64 {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 {
		return usable
	}
	natural := int64(cfg.Width) * docx.EMUPerInch / 96
	if natural < usable {
		return natural
	}
	return usable
}
