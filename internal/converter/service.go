package converter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parsekit/parsekit-converter/internal/apperr"
	"github.com/parsekit/parsekit-converter/internal/models"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

// Converter is the orchestration surface the HTTP layer talks to.
type Converter interface {
	// ToPDF converts an upload to PDF, passing PDF and image inputs through
	// unchanged.
	ToPDF(ctx context.Context, up *models.Upload) (*models.PDFResult, error)
	// ToImages converts an upload to one raster image per page, all held in
	// memory at once.
	ToImages(ctx context.Context, up *models.Upload, format string, dpi int) ([]models.PageImage, error)
	// StreamImages converts an upload to a lazy page sequence bounded to one
	// rendered page in memory at a time. The caller must Close the stream.
	StreamImages(ctx context.Context, up *models.Upload, format string, dpi int) (PageStream, error)
}

// Service composes the classifier, the office converter and the rasterizer.
type Service struct {
	office *OfficeConverter
	raster *Rasterizer
	logger logger.Logger
}

func NewService(office *OfficeConverter, raster *Rasterizer, log logger.Logger) *Service {
	return &Service{
		office: office,
		raster: raster,
		logger: log,
	}
}

func (s *Service) ToPDF(ctx context.Context, up *models.Upload) (*models.PDFResult, error) {
	if len(up.Content) == 0 {
		return nil, apperr.EmptyFile()
	}

	switch Classify(up.Filename, up.ContentType) {
	case models.ClassPDF:
		s.logger.Debug("file is already PDF", logger.String("filename", up.Filename))
		return &models.PDFResult{Filename: up.Filename, Content: up.Content, Converted: false}, nil
	case models.ClassImage:
		s.logger.Debug("image file, no conversion needed", logger.String("filename", up.Filename))
		return &models.PDFResult{Filename: up.Filename, Content: up.Content, Converted: false}, nil
	}

	if _, ok := convertExtensions[strings.ToLower(filepath.Ext(up.Filename))]; !ok {
		s.logger.Warn("unknown format, attempting LibreOffice conversion",
			logger.String("filename", up.Filename),
		)
	}

	pdfContent, err := s.office.Convert(ctx, up.Content, up.Filename)
	if err != nil {
		return nil, err
	}
	return &models.PDFResult{
		Filename:  pdfFilename(up.Filename),
		Content:   pdfContent,
		Converted: true,
	}, nil
}

func (s *Service) ToImages(ctx context.Context, up *models.Upload, format string, dpi int) ([]models.PageImage, error) {
	if len(up.Content) == 0 {
		return nil, apperr.EmptyFile()
	}

	if Classify(up.Filename, up.ContentType) == models.ClassImage {
		s.logger.Debug("image file, returning as-is", logger.String("filename", up.Filename))
		return []models.PageImage{{Page: 1, Content: up.Content, TotalPages: 1}}, nil
	}

	res, err := s.ToPDF(ctx, up)
	if err != nil {
		return nil, err
	}
	return s.raster.RenderAll(ctx, res.Content, format, dpi)
}

func (s *Service) StreamImages(ctx context.Context, up *models.Upload, format string, dpi int) (PageStream, error) {
	if len(up.Content) == 0 {
		return nil, apperr.EmptyFile()
	}

	if Classify(up.Filename, up.ContentType) == models.ClassImage {
		s.logger.Debug("image file, returning as-is", logger.String("filename", up.Filename))
		return newSinglePageStream(up.Content), nil
	}

	res, err := s.ToPDF(ctx, up)
	if err != nil {
		return nil, err
	}

	// The rasterizer reads from disk, so the PDF is materialized into a
	// workspace whose lifetime is tied to the stream.
	workDir, err := os.MkdirTemp("", "parsekit-stream-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	pdfPath := filepath.Join(workDir, "document.pdf")
	if err := os.WriteFile(pdfPath, res.Content, 0o600); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("write PDF: %w", err)
	}

	stream, err := newPDFPageStream(ctx, s.raster, workDir, pdfPath, format, dpi)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	return stream, nil
}

// pdfFilename replaces a filename's extension with .pdf.
func pdfFilename(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".pdf"
}
