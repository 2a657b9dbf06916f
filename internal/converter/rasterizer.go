package converter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/parsekit/parsekit-converter/internal/apperr"
	"github.com/parsekit/parsekit-converter/internal/models"
	"github.com/parsekit/parsekit-converter/pkg/execx"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

// encodeWorkers bounds concurrent page encoding in eager mode.
const encodeWorkers = 4

// Rasterizer renders PDF pages to raster images through the Poppler CLI
// tools (pdfinfo for page counts, pdftoppm for rendering).
type Rasterizer struct {
	runner      execx.Runner
	logger      logger.Logger
	pdfinfoBin  string
	pdftoppmBin string
}

// NewRasterizer creates a rasterizer. Empty binary names select the defaults
// ("pdfinfo", "pdftoppm").
func NewRasterizer(runner execx.Runner, log logger.Logger, pdfinfoBin, pdftoppmBin string) *Rasterizer {
	if pdfinfoBin == "" {
		pdfinfoBin = "pdfinfo"
	}
	if pdftoppmBin == "" {
		pdftoppmBin = "pdftoppm"
	}
	return &Rasterizer{
		runner:      runner,
		logger:      log,
		pdfinfoBin:  pdfinfoBin,
		pdftoppmBin: pdftoppmBin,
	}
}

// PageCount queries the number of pages of a PDF on disk via pdfinfo.
func (r *Rasterizer) PageCount(ctx context.Context, pdfPath string) (int, error) {
	res, err := r.runner.Run(ctx, execx.Command{
		Name: r.pdfinfoBin,
		Args: []string{pdfPath},
	})
	if err != nil {
		if errors.Is(err, execx.ErrNotFound) {
			r.logger.Error("Poppler is not installed")
			return 0, apperr.PopplerNotFound()
		}
		return 0, apperr.ImageConversionFailed(err)
	}
	if res.ExitCode != 0 {
		return 0, apperr.ImageConversionFailed(fmt.Errorf("pdfinfo exited %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))))
	}

	pages, err := parsePageCount(res.Stdout)
	if err != nil {
		return 0, apperr.ImageConversionFailed(err)
	}
	return pages, nil
}

// parsePageCount extracts the page count from pdfinfo output.
func parsePageCount(output []byte) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "Pages:"))
		pages, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("parse pdfinfo page count %q: %w", value, err)
		}
		return pages, nil
	}
	return 0, errors.New("pdfinfo output has no Pages line")
}

// renderPage renders exactly one page into workDir and returns the encoded
// image bytes. The intermediate PNG is removed before returning so a stream
// never accumulates more than one page on disk.
func (r *Rasterizer) renderPage(ctx context.Context, pdfPath, workDir string, page, dpi int, format string) ([]byte, error) {
	outBase := filepath.Join(workDir, fmt.Sprintf("page-%d", page))
	res, err := r.runner.Run(ctx, execx.Command{
		Name: r.pdftoppmBin,
		Args: []string{
			"-png",
			"-r", strconv.Itoa(dpi),
			"-f", strconv.Itoa(page),
			"-l", strconv.Itoa(page),
			"-singlefile",
			pdfPath,
			outBase,
		},
	})
	if err != nil {
		if errors.Is(err, execx.ErrNotFound) {
			r.logger.Error("Poppler is not installed")
			return nil, apperr.PopplerNotFound()
		}
		return nil, apperr.ImageConversionFailed(err)
	}
	if res.ExitCode != 0 {
		return nil, apperr.ImageConversionFailed(fmt.Errorf("pdftoppm exited %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))))
	}

	outputPath := outBase + ".png"
	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, apperr.ImageConversionFailed(fmt.Errorf("read rendered page %d: %w", page, err))
	}
	os.Remove(outputPath)

	return encodePNGAs(data, format)
}

// RenderAll rasterizes every page of an in-memory PDF at once. Page encoding
// runs on a small worker pool; output order is preserved by index.
func (r *Rasterizer) RenderAll(ctx context.Context, pdfBytes []byte, format string, dpi int) ([]models.PageImage, error) {
	format = NormalizeFormat(format)

	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, apperr.ImageConversionFailed(fmt.Errorf("parse PDF: %w", err))
	}
	total := reader.NumPage()
	if total == 0 {
		return nil, apperr.ImageConversionFailed(errors.New("PDF has no pages"))
	}

	workDir, err := os.MkdirTemp("", "parsekit-images-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	pdfPath := filepath.Join(workDir, "document.pdf")
	if err := os.WriteFile(pdfPath, pdfBytes, 0o600); err != nil {
		return nil, fmt.Errorf("write PDF: %w", err)
	}

	outBase := filepath.Join(workDir, "page")
	res, err := r.runner.Run(ctx, execx.Command{
		Name: r.pdftoppmBin,
		Args: []string{"-png", "-r", strconv.Itoa(dpi), pdfPath, outBase},
	})
	if err != nil {
		if errors.Is(err, execx.ErrNotFound) {
			r.logger.Error("Poppler is not installed")
			return nil, apperr.PopplerNotFound()
		}
		return nil, apperr.ImageConversionFailed(err)
	}
	if res.ExitCode != 0 {
		return nil, apperr.ImageConversionFailed(fmt.Errorf("pdftoppm exited %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))))
	}

	// pdftoppm zero-pads page numbers to the width of the last page number.
	width := len(strconv.Itoa(total))
	pages := make([]models.PageImage, total)

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, encodeWorkers)
	for i := 1; i <= total; i++ {
		page := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			path := fmt.Sprintf("%s-%0*d.png", outBase, width, page)
			data, err := os.ReadFile(path)
			if err != nil {
				return apperr.ImageConversionFailed(fmt.Errorf("read rendered page %d: %w", page, err))
			}
			encoded, err := encodePNGAs(data, format)
			if err != nil {
				return err
			}
			pages[page-1] = models.PageImage{
				Page:       page,
				Content:    encoded,
				TotalPages: total,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apperr.ImageConversionFailed(err)
	}

	r.logger.Info("rasterized PDF",
		logger.Int("pages", total),
		logger.String("format", format),
		logger.Int("dpi", dpi),
	)
	return pages, nil
}

// NormalizeFormat uppercases the requested format name and maps JPG onto the
// encoder's JPEG identifier.
func NormalizeFormat(name string) string {
	format := strings.ToUpper(name)
	if format == "JPG" {
		format = "JPEG"
	}
	return format
}

// encodePNGAs re-encodes PNG bytes into the normalized target format. PNG is
// passed through untouched since pdftoppm already produced it.
func encodePNGAs(pngBytes []byte, format string) ([]byte, error) {
	if format == "PNG" {
		return pngBytes, nil
	}

	img, err := imaging.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, apperr.ImageConversionFailed(fmt.Errorf("decode rendered page: %w", err))
	}

	var buf bytes.Buffer
	switch format {
	case "JPEG":
		err = imaging.Encode(&buf, img, imaging.JPEG)
	case "GIF":
		err = imaging.Encode(&buf, img, imaging.GIF)
	case "TIFF":
		err = imaging.Encode(&buf, img, imaging.TIFF)
	case "BMP":
		err = imaging.Encode(&buf, img, imaging.BMP)
	case "WEBP":
		// imaging has no WEBP encoder.
		err = nativewebp.Encode(&buf, img, nil)
	default:
		return nil, apperr.ImageConversionFailed(fmt.Errorf("unsupported image format: %s", format))
	}
	if err != nil {
		return nil, apperr.ImageConversionFailed(fmt.Errorf("encode page as %s: %w", format, err))
	}
	return buf.Bytes(), nil
}
