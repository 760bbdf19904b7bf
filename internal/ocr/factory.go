// factory.go - Recognition engine factory

package ocr

import (
	"fmt"
	"log"

	"github.com/pagomovil/comprobante-ocr/configs"
)

// CreateEngine creates a recognition engine based on configuration
func CreateEngine() (Engine, error) {
	engine := configs.OCR_ENGINE

	switch engine {
	case "tesseract":
		log.Printf("🔵 Creating Tesseract recognition engine (langs: %s)", configs.OCR_LANGUAGES)
		return NewTesseractEngine(configs.OCR_LANGUAGES, configs.OCR_PAGE_SEG_MODE), nil

	default:
		return nil, fmt.Errorf("unsupported recognition engine: %s (supported: tesseract)", engine)
	}
}
