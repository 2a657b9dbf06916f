package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parsekit/parsekit-converter/internal/apperr"
	"github.com/parsekit/parsekit-converter/pkg/execx"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

// DefaultOfficeTimeout bounds a single LibreOffice invocation.
const DefaultOfficeTimeout = 120 * time.Second

// OfficeConverter turns office documents into PDF bytes by driving a
// headless LibreOffice process. Each call owns a scratch directory that is
// removed on every exit path.
type OfficeConverter struct {
	runner  execx.Runner
	logger  logger.Logger
	binary  string
	timeout time.Duration
}

// NewOfficeConverter creates an office converter. Empty binary and zero
// timeout select the defaults ("libreoffice", 120s).
func NewOfficeConverter(runner execx.Runner, log logger.Logger, binary string, timeout time.Duration) *OfficeConverter {
	if binary == "" {
		binary = "libreoffice"
	}
	if timeout <= 0 {
		timeout = DefaultOfficeTimeout
	}
	return &OfficeConverter{
		runner:  runner,
		logger:  log,
		binary:  binary,
		timeout: timeout,
	}
}

// Convert writes content into a scratch directory under its original
// filename, runs LibreOffice against it, and returns the produced PDF bytes.
// A single invocation per call; retries are the caller's business.
func (c *OfficeConverter) Convert(ctx context.Context, content []byte, filename string) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "parsekit-office-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	name := filepath.Base(filename)
	inputPath := filepath.Join(workDir, name)
	if err := os.WriteFile(inputPath, content, 0o600); err != nil {
		return nil, fmt.Errorf("write input file: %w", err)
	}

	res, err := c.runner.Run(ctx, execx.Command{
		Name:    c.binary,
		Args:    []string{"--headless", "--convert-to", "pdf", "--outdir", workDir, inputPath},
		Timeout: c.timeout,
	})
	if err != nil {
		switch {
		case errors.Is(err, execx.ErrNotFound):
			c.logger.Error("LibreOffice is not installed")
			return nil, apperr.LibreOfficeNotFound()
		case errors.Is(err, execx.ErrTimeout):
			c.logger.Error("LibreOffice conversion timed out", logger.String("filename", name))
			return nil, apperr.ConversionTimeout()
		default:
			return nil, err
		}
	}

	if res.ExitCode != 0 {
		stderr := strings.TrimSpace(string(res.Stderr))
		c.logger.Error("LibreOffice conversion failed",
			logger.String("filename", name),
			logger.Int("exitCode", res.ExitCode),
			logger.String("stderr", stderr),
		)
		return nil, apperr.ConversionFailed(stderr)
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	outputPath := filepath.Join(workDir, stem+".pdf")
	if _, err := os.Stat(outputPath); err != nil {
		c.logger.Error("PDF output not found", logger.String("path", outputPath))
		return nil, apperr.ConversionOutputNotFound(outputPath)
	}

	pdfContent, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read conversion output: %w", err)
	}

	c.logger.Info("converted document to PDF",
		logger.String("filename", name),
		logger.Int("size", len(pdfContent)),
	)
	return pdfContent, nil
}
