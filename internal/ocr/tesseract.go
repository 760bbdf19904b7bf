// tesseract.go - Tesseract backend via gosseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
)

// TesseractEngine runs a local Tesseract installation through gosseract
type TesseractEngine struct {
	languages string
	psm       int
}

// NewTesseractEngine creates a Tesseract backend for the configured languages
func NewTesseractEngine(languages string, psm int) *TesseractEngine {
	if languages == "" {
		languages = "spa+eng"
	}
	return &TesseractEngine{
		languages: languages,
		psm:       psm,
	}
}

// Name identifies the backend for logging
func (e *TesseractEngine) Name() string {
	return "tesseract"
}

// Recognize encodes the image losslessly, feeds it to Tesseract and
// collects word-level boxes with confidences. A fresh client per call
// keeps recognition stateless and safe under concurrency.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image) (*Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for recognition: %w", err)
	}

	timeout := time.Duration(configs.OCR_TIMEOUT_SECONDS) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type recognition struct {
		result *Result
		err    error
	}
	done := make(chan recognition, 1)

	go func() {
		result, err := e.recognize(buf.Bytes())
		done <- recognition{result, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", common.ErrRecognitionUnavailable, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrRecognitionUnavailable, r.err)
		}
		return r.result, nil
	}
}

func (e *TesseractEngine) recognize(imageBytes []byte) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(e.languages, "+")...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(e.psm)); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(imageBytes); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding box extraction failed: %w", err)
	}

	tokens := make([]Token, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		conf := float64(box.Confidence)
		// Tokens below the floor are engine guesses, not evidence
		if conf < configs.OCR_MIN_TOKEN_CONF {
			continue
		}
		tokens = append(tokens, Token{
			Text:       word,
			X:          box.Box.Min.X,
			Y:          box.Box.Min.Y,
			Width:      box.Box.Max.X - box.Box.Min.X,
			Height:     box.Box.Max.Y - box.Box.Min.Y,
			Confidence: conf,
		})
	}

	return &Result{Tokens: tokens, FullText: text}, nil
}
