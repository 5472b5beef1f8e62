package scanning

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
)

// Tesseract implements the Scanner interface with local Tesseract OCR
type Tesseract struct {
	languages []string
	modes     []gosseract.PageSegMode
}

// NewTesseract creates a Tesseract scanner. languages defaults to "eng".
func NewTesseract(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{
		languages: languages,
		// uniform block, single column, automatic, sparse text
		modes: []gosseract.PageSegMode{
			gosseract.PSM_SINGLE_BLOCK,
			gosseract.PSM_SINGLE_COLUMN,
			gosseract.PSM_AUTO,
			gosseract.PSM_SPARSE_TEXT_OSD,
		},
	}
}

// ScanText runs OCR once per page segmentation mode and keeps the longest
// output. An image with no readable text yields the manual entry sentinel.
func (t *Tesseract) ScanText(imageData []byte, contentType string) (string, error) {
	img, err := decodeImage(imageData, contentType)
	if err != nil {
		return "", err
	}

	prepared, err := encodePNG(preprocessForOCR(img))
	if err != nil {
		return "", err
	}

	best := ""
	for _, mode := range t.modes {
		text, err := t.recognize(prepared, mode)
		if err != nil {
			slog.Debug("ocr pass failed", "mode", mode, "error", err)
			continue
		}
		if len(strings.TrimSpace(text)) > len(strings.TrimSpace(best)) {
			best = text
		}
	}

	// retry on the unprocessed image
	if strings.TrimSpace(best) == "" {
		original, err := encodePNG(img)
		if err != nil {
			return "", err
		}
		if text, err := t.recognize(original, gosseract.PSM_SINGLE_BLOCK); err == nil {
			best = text
		}
	}

	if strings.TrimSpace(best) == "" {
		slog.Info("ocr found no text")
		return bill.ManualEntrySentinel, nil
	}

	slog.Debug("ocr extracted text", "characters", len(best))
	return best, nil
}

func (t *Tesseract) recognize(imageData []byte, mode gosseract.PageSegMode) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetPageSegMode(mode); err != nil {
		return "", fmt.Errorf("setting page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("loading image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return text, nil
}

// Close is a no-op; a client is created per OCR pass
func (t *Tesseract) Close() error {
	return nil
}
