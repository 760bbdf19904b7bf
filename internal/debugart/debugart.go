// debugart.go - Optional debug artifacts for extraction troubleshooting

package debugart

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/extract"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
)

var boxColor = color.NRGBA{R: 220, G: 30, B: 30, A: 255}

// Save writes the preprocessed image, a token overlay and the raw token
// dump under DEBUG_DIR/<runID>/. Failures only warn; debug output must
// never break an extraction.
func Save(rc *common.RunContext, processed image.Image, result *ocr.Result) {
	if !configs.SAVE_DEBUG_ARTIFACTS {
		return
	}

	dir := filepath.Join(configs.DEBUG_DIR, rc.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		rc.LogWarning("no se pudo crear directorio de depuración: %v", err)
		return
	}

	if err := imaging.Save(processed, filepath.Join(dir, "preprocessed.png")); err != nil {
		rc.LogWarning("no se pudo guardar imagen preprocesada: %v", err)
	}

	overlay := drawOverlay(processed, result.Tokens)
	if err := imaging.Save(overlay, filepath.Join(dir, "tokens_overlay.png")); err != nil {
		rc.LogWarning("no se pudo guardar superposición de tokens: %v", err)
	}

	dump, err := json.MarshalIndent(result, "", "  ")
	if err == nil {
		if err := os.WriteFile(filepath.Join(dir, "tokens.json"), dump, 0o644); err != nil {
			rc.LogWarning("no se pudo guardar volcado de tokens: %v", err)
		}
	}

	rc.LogInfo("artefactos de depuración en %s", dir)
}

// SaveFields writes one crop per successfully extracted field, padded a
// few pixels around the union of its value tokens.
func SaveFields(rc *common.RunContext, processed image.Image, fields map[string]extract.FieldResult) {
	if !configs.SAVE_DEBUG_ARTIFACTS {
		return
	}

	dir := filepath.Join(configs.DEBUG_DIR, rc.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		rc.LogWarning("no se pudo crear directorio de depuración: %v", err)
		return
	}

	const pad = 6
	for name, field := range fields {
		if !field.Successful || len(field.Tokens) == 0 {
			continue
		}
		box := image.Rect(field.Tokens[0].X, field.Tokens[0].Y,
			field.Tokens[0].Right(), field.Tokens[0].Bottom())
		for _, token := range field.Tokens[1:] {
			box = box.Union(image.Rect(token.X, token.Y, token.Right(), token.Bottom()))
		}
		box = box.Inset(-pad).Intersect(processed.Bounds())
		if box.Empty() {
			continue
		}

		crop := imaging.Crop(processed, box)
		path := filepath.Join(dir, fmt.Sprintf("campo_%s.png", name))
		if err := imaging.Save(crop, path); err != nil {
			rc.LogWarning("no se pudo guardar recorte de '%s': %v", name, err)
		}
	}
}

// drawOverlay paints each token's bounding box and confidence onto a copy
// of the image
func drawOverlay(img image.Image, tokens []ocr.Token) image.Image {
	canvas := imaging.Clone(img)

	for _, token := range tokens {
		rect := image.Rect(token.X, token.Y, token.Right(), token.Bottom())
		drawRect(canvas, rect)
		drawLabel(canvas, fmt.Sprintf("%.0f", token.Confidence), token.X, token.Y-3)
	}
	return canvas
}

// drawLabel renders a small text label anchored just above (x, y)
func drawLabel(canvas draw.Image, text string, x, y int) {
	drawer := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(boxColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// drawRect strokes a 2px rectangle outline
func drawRect(canvas draw.Image, rect image.Rectangle) {
	bounds := canvas.Bounds()
	rect = rect.Intersect(bounds)
	if rect.Empty() {
		return
	}

	for x := rect.Min.X; x < rect.Max.X; x++ {
		for t := 0; t < 2; t++ {
			setIfInside(canvas, x, rect.Min.Y+t)
			setIfInside(canvas, x, rect.Max.Y-1-t)
		}
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for t := 0; t < 2; t++ {
			setIfInside(canvas, rect.Min.X+t, y)
			setIfInside(canvas, rect.Max.X-1-t, y)
		}
	}
}

func setIfInside(canvas draw.Image, x, y int) {
	if image.Pt(x, y).In(canvas.Bounds()) {
		canvas.Set(x, y, boxColor)
	}
}
