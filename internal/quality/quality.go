// quality.go - Image quality diagnosis before preprocessing

package quality

import (
	"bytes"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
)

// ImageCategory is the diagnosed capture category of the input
type ImageCategory string

const (
	CategoryWhatsApp ImageCategory = "captura_whatsapp"
	CategoryScan     ImageCategory = "escaneo_digital"
	CategoryPhoto    ImageCategory = "foto_fisica"
	CategoryMixed    ImageCategory = "imagen_mixta"
)

// Report holds the quality metrics measured on the raw input image
type Report struct {
	Sharpness      float64       `json:"sharpness"`
	Brightness     float64       `json:"brightness"`
	Noise          float64       `json:"noise"`
	Contrast       float64       `json:"contrast"`
	DarkBackground bool          `json:"dark_background"`
	Category       ImageCategory `json:"image_type"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
}

// Decode parses raw image bytes. Returns common.ErrInvalidImage when the
// bytes are not a decodable image.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.ErrInvalidImage
	}
	return img, nil
}

// Diagnose measures sharpness, brightness, noise and polarity on the raw
// image. Same image bytes always yield the same report.
func Diagnose(img image.Image) Report {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()

	report := Report{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}

	report.Brightness, report.Contrast = measureLuminance(gray)
	report.Sharpness = measureSharpness(gray)
	report.Noise = measureNoise(gray)
	report.DarkBackground = dominantMode(gray) < configs.DARK_BACKGROUND_MEAN

	report.Category = classifyCategory(report)

	return report
}

// measureLuminance computes mean brightness and min-max contrast spread.
// Samples every 4th pixel for speed.
func measureLuminance(gray *image.NRGBA) (float64, float64) {
	bounds := gray.Bounds()
	var total float64
	var minV float64 = 255
	var maxV float64 = 0
	count := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += 4 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 4 {
			r, _, _, _ := gray.At(x, y).RGBA()
			v := float64(r >> 8)
			total += v
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
			count++
		}
	}

	if count == 0 {
		return 0, 0
	}
	return total / float64(count), maxV - minV
}

// measureSharpness estimates focus as the variance of a Laplacian response.
// Blurry captures give low variance, crisp screenshots give high variance.
func measureSharpness(gray *image.NRGBA) float64 {
	bounds := gray.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return 0
	}

	var sum, sumSq float64
	count := 0

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y += 2 {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x += 2 {
			center := lum(gray, x, y)
			lap := 4*center - lum(gray, x-1, y) - lum(gray, x+1, y) - lum(gray, x, y-1) - lum(gray, x, y+1)
			sum += lap
			sumSq += lap * lap
			count++
		}
	}

	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	return sumSq/float64(count) - mean*mean
}

// measureNoise estimates grain as the standard deviation of the residual
// between the image and a lightly blurred copy of itself.
func measureNoise(gray *image.NRGBA) float64 {
	blurred := imaging.Blur(gray, 1.5)
	bounds := gray.Bounds()

	var sum, sumSq float64
	count := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y += 3 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 3 {
			diff := lum(gray, x, y) - lum(blurred, x, y)
			sum += diff
			sumSq += diff * diff
			count++
		}
	}

	if count == 0 {
		return 0
	}
	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// dominantMode returns the luminance value of the tallest histogram bucket.
// Dark-theme screenshots have their mode well below mid-gray even when
// bright text pulls the mean up.
func dominantMode(gray *image.NRGBA) float64 {
	bounds := gray.Bounds()
	var hist [256]int

	for y := bounds.Min.Y; y < bounds.Max.Y; y += 4 {
		for x := bounds.Min.X; x < bounds.Max.X; x += 4 {
			r, _, _, _ := gray.At(x, y).RGBA()
			hist[r>>8]++
		}
	}

	best := 0
	for v, c := range hist {
		if c > hist[best] {
			best = v
		}
	}
	return float64(best)
}

// classifyCategory maps the measured metrics onto a capture category
func classifyCategory(r Report) ImageCategory {
	cleanBackground := r.Noise < configs.NOISE_MEDIUM
	sharp := r.Sharpness >= configs.SHARPNESS_HIGH
	noisy := r.Noise >= configs.NOISE_HIGH

	switch {
	case cleanBackground && sharp && !r.DarkBackground && r.Brightness >= configs.BRIGHTNESS_HIGH:
		// Flat bright background with crisp edges reads as a scan
		return CategoryScan
	case cleanBackground && (r.DarkBackground || sharp):
		// Screenshots are noise-free; dark themes are common in banking apps
		return CategoryWhatsApp
	case noisy:
		return CategoryPhoto
	default:
		return CategoryMixed
	}
}

// lum reads the red channel of an already grayscale image as 0-255
func lum(img *image.NRGBA, x, y int) float64 {
	r, _, _, _ := img.At(x, y).RGBA()
	return float64(r >> 8)
}
