package quality_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/quality"
)

// flatImage renders a uniform background with optional stripe texture
func flatImage(bg color.Gray, stripes bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			c := bg
			if stripes && y%10 < 3 {
				c = color.Gray{Y: 255 - bg.Y}
			}
			img.SetGray(x, y, c)
		}
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Decode", func() {
	It("decodes valid image bytes", func() {
		img, err := quality.Decode(encodePNG(flatImage(color.Gray{Y: 200}, false)))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(Equal(200))
	})

	It("rejects non-image bytes with the sentinel error", func() {
		_, err := quality.Decode([]byte("this is not an image at all"))
		Expect(err).To(MatchError(common.ErrInvalidImage))
	})

	It("rejects empty input", func() {
		_, err := quality.Decode(nil)
		Expect(err).To(MatchError(common.ErrInvalidImage))
	})
})

var _ = Describe("Diagnose", func() {
	It("measures high brightness on a light image", func() {
		report := quality.Diagnose(flatImage(color.Gray{Y: 230}, false))
		Expect(report.Brightness).To(BeNumerically(">", 200))
		Expect(report.DarkBackground).To(BeFalse())
	})

	It("flags dark backgrounds for polarity inversion", func() {
		report := quality.Diagnose(flatImage(color.Gray{Y: 30}, true))
		Expect(report.DarkBackground).To(BeTrue())
	})

	It("scores striped high-contrast images as sharper than flat ones", func() {
		sharp := quality.Diagnose(flatImage(color.Gray{Y: 230}, true))
		flat := quality.Diagnose(flatImage(color.Gray{Y: 230}, false))
		Expect(sharp.Sharpness).To(BeNumerically(">", flat.Sharpness))
	})

	It("is deterministic for identical input", func() {
		img := flatImage(color.Gray{Y: 180}, true)
		first := quality.Diagnose(img)
		second := quality.Diagnose(img)
		Expect(second).To(Equal(first))
	})

	It("records the raw image dimensions", func() {
		report := quality.Diagnose(flatImage(color.Gray{Y: 128}, false))
		Expect(report.Width).To(Equal(200))
		Expect(report.Height).To(Equal(200))
	})
})
