// deskew.go - Skew angle detection via horizontal projection profiles

package preprocess

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/pagomovil/comprobante-ocr/configs"
)

// detectSkew searches for the rotation angle that maximizes row-profile
// variance on a downscaled binarized copy. Text lines aligned with the
// raster produce sharply alternating dark and light rows, so the variance
// peaks at the correct counter-rotation.
//
// Returns the angle to rotate by, and true when the detected lean exceeds
// the correctable range.
func detectSkew(img image.Image) (float64, bool) {
	// Work on a small high-contrast copy; precision does not need pixels
	small := imaging.Resize(img, 400, 0, imaging.NearestNeighbor)
	small = imaging.Grayscale(small)
	small = imaging.AdjustContrast(small, 50)

	maxAngle := configs.MAX_DESKEW_DEGREES
	bestAngle := 0.0
	bestScore := profileVariance(small)
	baseScore := bestScore

	// Coarse sweep in 1 degree steps, then refine around the winner
	for a := -maxAngle; a <= maxAngle; a += 1.0 {
		if a == 0 {
			continue
		}
		score := profileVariance(imaging.Rotate(small, a, image.White))
		if score > bestScore {
			bestScore = score
			bestAngle = a
		}
	}

	if bestAngle != 0 {
		for a := bestAngle - 0.75; a <= bestAngle+0.75; a += 0.25 {
			score := profileVariance(imaging.Rotate(small, a, image.White))
			if score > bestScore {
				bestScore = score
				bestAngle = a
			}
		}
	}

	// A peak at the sweep boundary means the true lean is likely beyond it
	if bestAngle >= maxAngle || bestAngle <= -maxAngle {
		return 0, true
	}

	// Require a real improvement over the unrotated profile. A near-zero
	// base means there are no text lines to align, only fill-color bias
	// introduced by the rotation itself.
	if baseScore <= 0 || bestScore < baseScore*1.05 {
		return 0, false
	}

	return bestAngle, false
}

// profileVariance computes the variance of per-row mean darkness
func profileVariance(img *image.NRGBA) float64 {
	bounds := img.Bounds()
	height := bounds.Dy()
	if height == 0 {
		return 0
	}

	rows := make([]float64, 0, height)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		var rowSum float64
		for x := bounds.Min.X; x < bounds.Max.X; x += 2 {
			r, _, _, _ := img.At(x, y).RGBA()
			rowSum += 255 - float64(r>>8)
		}
		rows = append(rows, rowSum)
	}

	var sum float64
	for _, v := range rows {
		sum += v
	}
	mean := sum / float64(len(rows))

	var variance float64
	for _, v := range rows {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(rows))
}
