// engine.go - Recognition engine abstraction

package ocr

import (
	"context"
	"image"
	"strings"
)

// Token is a single recognized word with its position and confidence.
// Confidence is on the engine's native 0-100 scale.
type Token struct {
	Text       string  `json:"text"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Result is the full recognition output for one image
type Result struct {
	Tokens   []Token `json:"tokens"`
	FullText string  `json:"full_text"`
}

// Engine is implemented by every supported recognition backend
type Engine interface {
	// Recognize runs OCR over the preprocessed image and returns
	// positioned tokens. Blocking, honors ctx cancellation.
	Recognize(ctx context.Context, img image.Image) (*Result, error)

	// Name identifies the backend for logging
	Name() string
}

// MeanConfidence averages token confidences, 0 when there are none
func (r *Result) MeanConfidence() float64 {
	if len(r.Tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range r.Tokens {
		sum += t.Confidence
	}
	return sum / float64(len(r.Tokens))
}

// TextAreaRatio returns the fraction of the image covered by token boxes
func (r *Result) TextAreaRatio(imgWidth, imgHeight int) float64 {
	if imgWidth == 0 || imgHeight == 0 {
		return 0
	}
	var area int
	for _, t := range r.Tokens {
		area += t.Width * t.Height
	}
	return float64(area) / float64(imgWidth*imgHeight)
}

// NormalizedText returns the lowercased full text for keyword scans
func (r *Result) NormalizedText() string {
	return strings.ToLower(r.FullText)
}

// CenterY returns the vertical center of the token box
func (t Token) CenterY() int {
	return t.Y + t.Height/2
}

// Right returns the x coordinate just past the token box
func (t Token) Right() int {
	return t.X + t.Width
}

// Bottom returns the y coordinate just past the token box
func (t Token) Bottom() int {
	return t.Y + t.Height
}
