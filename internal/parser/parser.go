package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrCorrupt   = errors.New("pdf is corrupt or unsupported")
	ErrEncrypted = errors.New("pdf is password protected")
)

// ExtractionError carries the library failure together with its kind
// (ErrCorrupt or ErrEncrypted), so errors.Is works against both.
type ExtractionError struct {
	Kind error
	Err  error
}

func (e *ExtractionError) Error() string { return e.Err.Error() }

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == e.Kind }

// Kind returns a short label for err suitable for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEncrypted):
		return "encrypted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "corrupt"
	}
}

// pageSource is the part of a PDF reader the extractor needs.
// Pages are numbered from 1.
type pageSource interface {
	NumPage() int
	PageItems(num int) ([]string, error)
}

type pdfSource struct {
	reader *pdf.Reader
}

func (s pdfSource) NumPage() int {
	return s.reader.NumPage()
}

// PageItems returns one item per text row of the page, in reading order.
func (s pdfSource) PageItems(num int) ([]string, error) {
	page := s.reader.Page(num)
	if page.V.IsNull() {
		return nil, nil
	}
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}
	items := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for _, text := range row.Content {
			sb.WriteString(text.S)
		}
		items = append(items, sb.String())
	}
	return items, nil
}

// Extractor turns PDF bytes into plain text.
type Extractor struct {
	open func(data []byte) (pageSource, error)
}

func NewExtractor() *Extractor {
	return &Extractor{open: openPDF}
}

func openPDF(data []byte) (pageSource, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return pdfSource{reader: reader}, nil
}

// ExtractText concatenates every page's items joined by single spaces, with a
// newline after each page. Library errors and panics are returned as *ExtractionError.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = classify(fmt.Errorf("pdf library panic: %v", r))
			text = ""
		}
	}()

	src, err := e.open(data)
	if err != nil {
		return "", classify(errors.Wrap(err, "open pdf"))
	}
	return extract(ctx, src)
}

func extract(ctx context.Context, src pageSource) (string, error) {
	var sb strings.Builder
	numPages := src.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		items, err := src.PageItems(i)
		if err != nil {
			return "", classify(errors.Wrapf(err, "read page %d", i))
		}
		sb.WriteString(strings.Join(items, " "))
		sb.WriteString("\n")
	}
	log.Debug().Int("pages", numPages).Int("bytes", sb.Len()).Msg("Extracted PDF text")
	return sb.String(), nil
}

func classify(err error) error {
	kind := ErrCorrupt
	if errors.Is(err, pdf.ErrInvalidPassword) {
		kind = ErrEncrypted
	}
	return &ExtractionError{Kind: kind, Err: err}
}
