// preprocess.go - Adaptive image preprocessing driven by the quality report

package preprocess

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/quality"
)

// Result carries the processed image plus a record of what was done to it
type Result struct {
	Image         image.Image
	StepsApplied  []string
	DeskewDegrees float64
	SkewTooLarge  bool // detected angle exceeded the correction range
	UpscaleFactor float64
	Inverted      bool
}

// Apply runs the preprocessing ladder selected by the quality report. The
// whole image is always forwarded; nothing is ever cropped here. The same
// input image and report always produce the same output.
func Apply(rc *common.RunContext, img image.Image, report quality.Report) Result {
	result := Result{Image: img, UpscaleFactor: 1.0}

	// Step 1: Polarity. Light text on dark background confuses OCR, so
	// dark-theme screenshots are inverted before anything else.
	if report.DarkBackground {
		rc.StartSubStep("invert_polarity")
		result.Image = imaging.Invert(result.Image)
		result.Inverted = true
		result.StepsApplied = append(result.StepsApplied, "invert_polarity")
		rc.EndSubStep("")
	}

	// Step 2: Deskew. Every capture goes through the detector; screenshots
	// and clean scans come back near zero and pass through unrotated.
	rc.StartSubStep("deskew")
	angle, outOfRange := detectSkew(result.Image)
	if outOfRange {
		result.SkewTooLarge = true
		rc.EndSubStep("ángulo fuera de rango, imagen sin rotar")
	} else if angle >= configs.MIN_DESKEW_DEGREES || angle <= -configs.MIN_DESKEW_DEGREES {
		result.Image = imaging.Rotate(result.Image, angle, image.White)
		result.DeskewDegrees = angle
		result.StepsApplied = append(result.StepsApplied, "deskew")
		rc.EndSubStep("")
	} else {
		rc.EndSubStep("inclinación despreciable")
	}

	// Step 3: Upscale. Blurry or tiny captures get a bounded Lanczos
	// upscale so small glyphs survive binarization inside the engine.
	factor := upscaleFactor(report)
	if factor > 1.0 {
		rc.StartSubStep("upscale")
		bounds := result.Image.Bounds()
		newWidth := int(float64(bounds.Dx()) * factor)
		if maxDim := configs.MAX_IMAGE_DIMENSION; newWidth > maxDim {
			factor = float64(maxDim) / float64(bounds.Dx())
			newWidth = maxDim
		}
		result.Image = imaging.Resize(result.Image, newWidth, 0, imaging.Lanczos)
		result.UpscaleFactor = factor
		result.StepsApplied = append(result.StepsApplied, "upscale")
		rc.EndSubStep("")
	} else {
		// Oversized scans are shrunk to the working bound
		bounds := result.Image.Bounds()
		if bounds.Dx() > configs.MAX_IMAGE_DIMENSION || bounds.Dy() > configs.MAX_IMAGE_DIMENSION {
			if bounds.Dx() > bounds.Dy() {
				result.Image = imaging.Resize(result.Image, configs.MAX_IMAGE_DIMENSION, 0, imaging.Lanczos)
			} else {
				result.Image = imaging.Resize(result.Image, 0, configs.MAX_IMAGE_DIMENSION, imaging.Lanczos)
			}
			result.StepsApplied = append(result.StepsApplied, "downscale")
		}
	}

	// Step 4: Denoise proportionally to the measured grain
	if report.Noise >= configs.NOISE_HIGH {
		rc.StartSubStep("denoise")
		result.Image = imaging.Blur(result.Image, 1.2)
		result.StepsApplied = append(result.StepsApplied, "denoise_strong")
		rc.EndSubStep("")
	} else if report.Noise >= configs.NOISE_MEDIUM {
		rc.StartSubStep("denoise")
		result.Image = imaging.Blur(result.Image, 0.6)
		result.StepsApplied = append(result.StepsApplied, "denoise_light")
		rc.EndSubStep("")
	}

	// Step 5: Category-specific enhancement ladder
	switch report.Category {
	case quality.CategoryScan:
		result.Image = applyScanLadder(result.Image)
	case quality.CategoryWhatsApp:
		result.Image = applyScreenshotLadder(result.Image)
	case quality.CategoryPhoto:
		result.Image = applyPhotoLadder(result.Image, report)
	default:
		result.Image = applyMixedLadder(result.Image, report)
	}
	result.StepsApplied = append(result.StepsApplied, "enhance_"+string(report.Category))

	return result
}

// upscaleFactor decides how much to enlarge based on sharpness and size
func upscaleFactor(report quality.Report) float64 {
	factor := 1.0
	if report.Sharpness < configs.SHARPNESS_MEDIUM {
		factor = 2.0
	}
	if report.Width < 700 {
		factor = configs.MAX_UPSCALE_FACTOR
	}
	if factor > configs.MAX_UPSCALE_FACTOR {
		factor = configs.MAX_UPSCALE_FACTOR
	}
	return factor
}

// applyScanLadder: clean scans only need a light touch
func applyScanLadder(img image.Image) image.Image {
	result := imaging.Sharpen(img, 1.5)
	result = imaging.Grayscale(result)
	result = imaging.AdjustContrast(result, 20)
	result = imaging.AdjustGamma(result, 1.05)
	return result
}

// applyScreenshotLadder: screenshots are already flat, boost glyph edges
func applyScreenshotLadder(img image.Image) image.Image {
	result := imaging.Sharpen(img, 2.0)
	result = imaging.Grayscale(result)
	result = imaging.AdjustContrast(result, 30)
	result = imaging.AdjustGamma(result, 1.1)
	return result
}

// applyPhotoLadder: physical photos need the aggressive treatment
func applyPhotoLadder(img image.Image, report quality.Report) image.Image {
	result := imaging.Sharpen(img, 3.0)
	result = imaging.AdjustContrast(result, 45)
	if report.Brightness < configs.BRIGHTNESS_LOW {
		result = imaging.AdjustBrightness(result, 25)
	} else if report.Brightness > configs.BRIGHTNESS_HIGH {
		result = imaging.AdjustBrightness(result, -15)
	}
	result = imaging.Grayscale(result)
	result = imaging.AdjustContrast(result, 35)
	result = imaging.AdjustGamma(result, 1.2)
	result = imaging.Sharpen(result, 1.0)
	return result
}

// applyMixedLadder: middle ground for ambiguous captures
func applyMixedLadder(img image.Image, report quality.Report) image.Image {
	result := imaging.Sharpen(img, 2.5)
	result = imaging.AdjustContrast(result, 35)
	if report.Brightness < configs.BRIGHTNESS_LOW {
		result = imaging.AdjustBrightness(result, 15)
	}
	result = imaging.Grayscale(result)
	result = imaging.AdjustContrast(result, 25)
	result = imaging.AdjustGamma(result, 1.1)
	return result
}
