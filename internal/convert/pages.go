package convert

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange     = errors.New("page numbers must not be negative")
	ErrInvertedRange    = errors.New("end page is before start page")
	ErrRangeOutOfBounds = errors.New("start page is beyond the last page")
	ErrEmptyDocument    = errors.New("pdf has no pages")
)

// PageRange selects pages 1-based and inclusive. End == 0 runs through the
// last page.
type PageRange struct {
	Start int
	End   int
}

// AllPages is the range covering the whole document.
var AllPages = PageRange{Start: 1}

// NewPageRange validates user input. A zero start means the first page.
func NewPageRange(start, end int) (PageRange, error) {
	if start < 0 || end < 0 {
		return PageRange{}, fmt.Errorf("%w (start=%d, end=%d)", ErrInvalidRange, start, end)
	}
	if start == 0 {
		start = 1
	}
	if end != 0 && end < start {
		return PageRange{}, fmt.Errorf("%w (start=%d, end=%d)", ErrInvertedRange, start, end)
	}
	return PageRange{Start: start, End: end}, nil
}

// Resolve clamps the range to a document of total pages and returns the
// first and last page to convert.
func (r PageRange) Resolve(total int) (first, last int, err error) {
	if total <= 0 {
		return 0, 0, ErrEmptyDocument
	}
	first = r.Start
	if first < 1 {
		first = 1
	}
	if first > total {
		return 0, 0, fmt.Errorf("%w (start=%d, pages=%d)", ErrRangeOutOfBounds, first, total)
	}
	last = r.End
	if last == 0 || last > total {
		last = total
	}
	if last < first {
		return 0, 0, fmt.Errorf("%w (start=%d, end=%d)", ErrInvertedRange, first, last)
	}
	return first, last, nil
}

func (r PageRange) IsAll() bool { return r.Start <= 1 && r.End == 0 }

func (r PageRange) String() string {
	start := r.Start
	if start < 1 {
		start = 1
	}
	if r.End == 0 {
		return fmt.Sprintf("%d-end", start)
	}
	return fmt.Sprintf("%d-%d", start, r.End)
}
