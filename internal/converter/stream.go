package converter

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/parsekit/parsekit-converter/internal/models"
)

// PageStream is a pull-based, forward-only sequence of rendered pages. Pages
// arrive in order 1..TotalPages, each exactly once; Next returns io.EOF after
// the last page. Close releases the stream's scratch workspace and must be
// called on every path, including early abandonment.
type PageStream interface {
	TotalPages() int
	Next(ctx context.Context) (*models.PageImage, error)
	Close() error
}

// singlePageStream serves an image passthrough: exactly one page holding the
// original bytes, never re-encoded.
type singlePageStream struct {
	content []byte
	done    bool
}

func newSinglePageStream(content []byte) *singlePageStream {
	return &singlePageStream{content: content}
}

func (s *singlePageStream) TotalPages() int { return 1 }

func (s *singlePageStream) Next(ctx context.Context) (*models.PageImage, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return &models.PageImage{Page: 1, Content: s.content, TotalPages: 1}, nil
}

func (s *singlePageStream) Close() error { return nil }

// pdfPageStream renders one page per Next call from a PDF materialized inside
// workDir. The cursor state is explicit: current page, total, source path.
type pdfPageStream struct {
	raster  *Rasterizer
	pdfPath string
	workDir string
	format  string
	dpi     int
	total   int
	next    int
	err     error
	closer  sync.Once
}

// newPDFPageStream queries the page count up front and returns a stream
// positioned before page 1. The caller's workDir is owned by the stream from
// here on and is removed by Close.
func newPDFPageStream(ctx context.Context, raster *Rasterizer, workDir, pdfPath, format string, dpi int) (*pdfPageStream, error) {
	total, err := raster.PageCount(ctx, pdfPath)
	if err != nil {
		return nil, err
	}
	return &pdfPageStream{
		raster:  raster,
		pdfPath: pdfPath,
		workDir: workDir,
		format:  NormalizeFormat(format),
		dpi:     dpi,
		total:   total,
		next:    1,
	}, nil
}

func (s *pdfPageStream) TotalPages() int { return s.total }

func (s *pdfPageStream) Next(ctx context.Context) (*models.PageImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.next > s.total {
		return nil, io.EOF
	}

	content, err := s.raster.renderPage(ctx, s.pdfPath, s.workDir, s.next, s.dpi, s.format)
	if err != nil {
		// Abort the sequence; pages already yielded stay with the consumer.
		s.err = err
		return nil, err
	}

	page := &models.PageImage{
		Page:       s.next,
		Content:    content,
		TotalPages: s.total,
	}
	s.next++
	return page, nil
}

func (s *pdfPageStream) Close() error {
	s.closer.Do(func() {
		os.RemoveAll(s.workDir)
	})
	return nil
}
