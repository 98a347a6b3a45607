package convert

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	rpdf "rsc.io/pdf"
)

// PageCount is advisory. UnknownPages means no parser could open the file.
type PageCount int

const UnknownPages PageCount = 0

func (c PageCount) Known() bool { return c > 0 }

func (c PageCount) String() string {
	if !c.Known() {
		return "Unknown"
	}
	return strconv.Itoa(int(c))
}

// CountPages never fails: corrupt, encrypted or non-PDF input yields
// UnknownPages.
func CountPages(path string) PageCount {
	if n := rscPageCount(path); n > 0 {
		return PageCount(n)
	}
	if n := pdfcpuPageCount(path); n > 0 {
		return PageCount(n)
	}
	return UnknownPages
}

func rscPageCount(path string) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0
	}
	doc, err := rpdf.NewReader(f, fi.Size())
	if err != nil {
		return 0
	}
	return doc.NumPage()
}

func pdfcpuPageCount(path string) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	pdfcpuInit()
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0
	}
	return n
}

var pdfcpuOnce sync.Once

// pdfcpuInit keeps pdfcpu from creating a config directory under $HOME.
func pdfcpuInit() {
	pdfcpuOnce.Do(api.DisableConfigDir)
}

func pdfcpuConfig() *model.Configuration {
	pdfcpuInit()
	return model.NewDefaultConfiguration()
}

// sniffPDF checks for the %PDF- header within the first kilobyte.
func sniffPDF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("read upload: %w", err)
	}
	if !bytes.Contains(head[:n], []byte("%PDF-")) {
		return ErrNotPDF
	}
	return nil
}
