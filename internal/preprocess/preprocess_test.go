package preprocess_test

import (
	"image"
	"image/color"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/preprocess"
	"github.com/pagomovil/comprobante-ocr/internal/quality"
)

func grayImage(width, height int, level uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return img
}

var _ = Describe("Apply", func() {
	var rc *common.RunContext

	BeforeEach(func() {
		rc = common.NewRunContext("test")
	})

	It("inverts polarity for dark background screenshots", func() {
		img := grayImage(800, 800, 30)
		report := quality.Report{
			Category:       quality.CategoryWhatsApp,
			DarkBackground: true,
			Brightness:     40,
			Sharpness:      600,
			Width:          800,
			Height:         800,
		}

		result := preprocess.Apply(rc, img, report)

		Expect(result.Inverted).To(BeTrue())
		Expect(result.StepsApplied).To(ContainElement("invert_polarity"))
	})

	It("upscales small blurry captures within the configured bound", func() {
		img := grayImage(400, 400, 200)
		report := quality.Report{
			Category:   quality.CategoryPhoto,
			Sharpness:  50, // below the blur threshold
			Brightness: 150,
			Width:      400,
			Height:     400,
		}

		result := preprocess.Apply(rc, img, report)

		Expect(result.UpscaleFactor).To(BeNumerically(">", 1.0))
		Expect(result.UpscaleFactor).To(BeNumerically("<=", configs.MAX_UPSCALE_FACTOR))
		Expect(result.Image.Bounds().Dx()).To(BeNumerically("<=", configs.MAX_IMAGE_DIMENSION))
	})

	It("shrinks oversized scans to the working bound", func() {
		img := grayImage(3000, 1000, 220)
		report := quality.Report{
			Category:   quality.CategoryScan,
			Sharpness:  800,
			Brightness: 220,
			Width:      3000,
			Height:     1000,
		}

		result := preprocess.Apply(rc, img, report)

		Expect(result.Image.Bounds().Dx()).To(BeNumerically("<=", configs.MAX_IMAGE_DIMENSION))
		Expect(result.StepsApplied).To(ContainElement("downscale"))
	})

	It("runs the deskew detector on screenshots without rotating flat ones", func() {
		img := grayImage(800, 800, 220)
		report := quality.Report{
			Category:   quality.CategoryWhatsApp,
			Sharpness:  700,
			Brightness: 220,
			Width:      800,
			Height:     800,
		}

		result := preprocess.Apply(rc, img, report)

		Expect(result.DeskewDegrees).To(BeZero())
		Expect(result.StepsApplied).NotTo(ContainElement("deskew"))
	})

	It("leaves a flat image unrotated", func() {
		// A uniform image has no text lines; the profile search must
		// not find a spurious improvement
		img := grayImage(800, 800, 220)
		report := quality.Report{
			Category:   quality.CategoryPhoto,
			Sharpness:  700,
			Brightness: 220,
			Width:      800,
			Height:     800,
		}

		result := preprocess.Apply(rc, img, report)

		Expect(result.DeskewDegrees).To(BeZero())
	})

	It("is deterministic for identical input", func() {
		img := grayImage(600, 600, 190)
		report := quality.Report{
			Category:   quality.CategoryMixed,
			Sharpness:  300,
			Brightness: 190,
			Noise:      10,
			Width:      600,
			Height:     600,
		}

		first := preprocess.Apply(rc, img, report)
		second := preprocess.Apply(common.NewRunContext("test2"), img, report)

		Expect(second.StepsApplied).To(Equal(first.StepsApplied))
		Expect(second.UpscaleFactor).To(Equal(first.UpscaleFactor))
		Expect(second.Image.Bounds()).To(Equal(first.Image.Bounds()))
	})
})
