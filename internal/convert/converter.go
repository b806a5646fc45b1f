// Package convert renders XHTML filings into paginated PDFs ready for
// visual annotation. It drives the wkhtmltopdf binary through
// go-wkhtmltopdf; there is no fallback renderer.
package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"go.uber.org/zap"

	"github.com/polbb/annotations/internal/domain"
)

// Options configures the renderer.
type Options struct {
	BinaryPath string // empty = look up wkhtmltopdf on $PATH
	OutputDir  string // created on demand
	PageSize   string // e.g. "A4"
	Grayscale  bool
}

// Converter turns one XHTML file into one PDF per call.
type Converter struct {
	opts   Options
	logger *zap.Logger
}

// New creates a converter. If a binary path is configured it is registered
// process-wide with go-wkhtmltopdf.
func New(opts Options, logger *zap.Logger) *Converter {
	if opts.BinaryPath != "" {
		wkhtmltopdf.SetPath(opts.BinaryPath)
	}
	if opts.PageSize == "" {
		opts.PageSize = wkhtmltopdf.PageSizeA4
	}
	return &Converter{opts: opts, logger: logger}
}

// Convert renders xhtmlPath to {outputDir}/{identifier}.pdf and returns the
// output path. All renderer failures surface as domain.ErrConversion.
func (c *Converter) Convert(ctx context.Context, xhtmlPath, identifier string) (string, error) {
	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", c.opts.OutputDir, err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return "", fmt.Errorf("init renderer: %v: %w", err, domain.ErrConversion)
	}
	pdfg.PageSize.Set(c.opts.PageSize)
	if c.opts.Grayscale {
		pdfg.Grayscale.Set(true)
	}

	page := wkhtmltopdf.NewPage(xhtmlPath)
	page.EnableLocalFileAccess.Set(true)
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return "", fmt.Errorf("render %s: %v: %w", xhtmlPath, err, domain.ErrConversion)
	}

	outputPath := filepath.Join(c.opts.OutputDir, identifier+".pdf")
	if err := pdfg.WriteFile(outputPath); err != nil {
		return "", fmt.Errorf("write %s: %v: %w", outputPath, err, domain.ErrConversion)
	}

	c.logger.Info("converted document",
		zap.String("source", xhtmlPath),
		zap.String("output", outputPath),
	)
	return outputPath, nil
}
