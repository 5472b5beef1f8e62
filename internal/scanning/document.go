package scanning

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
)

// Document routes uploads by type: images go straight to the image scanner,
// PDFs are read for embedded text first and only OCR'd page by page when they
// carry none.
type Document struct {
	images Scanner
	dpi    float64
}

// NewDocument wraps an image scanner
func NewDocument(images Scanner) *Document {
	return &Document{
		images: images,
		dpi:    pdfRenderDPI,
	}
}

// ScanText reads text from an image or PDF upload
func (d *Document) ScanText(data []byte, contentType string) (string, error) {
	if !IsPDF(data, contentType) {
		return d.images.ScanText(data, contentType)
	}
	return d.scanPDF(data)
}

// SourceFor reports which pipeline source an upload counts as
func SourceFor(data []byte, contentType string) bill.Source {
	if IsPDF(data, contentType) {
		return bill.SourcePDF
	}
	return bill.SourceImage
}

func (d *Document) scanPDF(data []byte) (string, error) {
	if text, err := fitzText(data); err != nil {
		slog.Debug("pdf text extraction failed", "extractor", "fitz", "error", err)
	} else if strings.TrimSpace(text) != "" {
		slog.Debug("pdf text extracted", "extractor", "fitz", "characters", len(text))
		return text, nil
	}

	if text, err := plainText(data); err != nil {
		slog.Debug("pdf text extraction failed", "extractor", "pdf", "error", err)
	} else if strings.TrimSpace(text) != "" {
		slog.Debug("pdf text extracted", "extractor", "pdf", "characters", len(text))
		return text, nil
	}

	pages, err := renderPDFPages(data, d.dpi)
	if err != nil {
		slog.Warn("pdf could not be rendered for ocr", "error", err)
		return bill.PDFExtractionFailedSentinel, nil
	}

	var sb strings.Builder
	for i, page := range pages {
		text, err := d.images.ScanText(page, "image/png")
		if err != nil {
			slog.Warn("pdf page ocr failed", "page", i+1, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" || strings.Contains(text, bill.ManualEntrySentinel) {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		slog.Info("no text extracted from pdf")
		return bill.PDFExtractionFailedSentinel, nil
	}
	return sb.String(), nil
}

// fitzText concatenates the embedded text of every page
func fitzText(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("reading page %d: %w", n+1, err)
		}
		if strings.TrimSpace(text) != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// plainText is the second extractor; the parser panics on some malformed
// files so failures are recovered into errors
func plainText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	content, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	out, err := io.ReadAll(content)
	if err != nil {
		return "", fmt.Errorf("reading PDF text: %w", err)
	}
	return string(out), nil
}

// Close closes the image scanner
func (d *Document) Close() error {
	return d.images.Close()
}
