package scanning

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Scanner turns an uploaded bill into plain text. A scanner that cannot read
// the document returns one of the bill sentinels instead of an error.
type Scanner interface {
	// ScanText reads all printed text from an image or PDF
	ScanText(data []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// Config selects and configures the image text source
type Config struct {
	Kind               string // tesseract, gemini or ollama
	TesseractLanguages []string
	GeminiAPIKey       string
	GeminiModel        string
	OllamaURL          string
	OllamaModel        string
}

// New builds a Document scanner whose images are read by the configured source
func New(cfg Config) (*Document, error) {
	var images Scanner
	switch strings.ToLower(cfg.Kind) {
	case "", "tesseract":
		images = NewTesseract(cfg.TesseractLanguages...)
	case "gemini":
		g, err := NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		images = g
	case "ollama":
		o, err := NewOllama(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama: %w", err)
		}
		images = o
	default:
		return nil, fmt.Errorf("unknown scanner %q: want tesseract, gemini or ollama", cfg.Kind)
	}
	return NewDocument(images), nil
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".txt":  "text/plain",
}

// ContentTypeFromFilename guesses a MIME type from a file extension
func ContentTypeFromFilename(name string) string {
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsText reports whether the upload is already plain text
func IsText(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/plain")
}

// IsPDF reports whether the upload is a PDF, by MIME type or magic bytes
func IsPDF(data []byte, contentType string) bool {
	if strings.EqualFold(strings.TrimSpace(contentType), "application/pdf") {
		return true
	}
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
