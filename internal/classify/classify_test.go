package classify_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pagomovil/comprobante-ocr/internal/classify"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
)

func wideToken(text string, y int) ocr.Token {
	return ocr.Token{Text: text, X: 10, Y: y, Width: 400, Height: 30, Confidence: 90}
}

var _ = Describe("Classify", func() {
	var rc *common.RunContext

	BeforeEach(func() {
		rc = common.NewRunContext("test")
	})

	It("accepts a payment receipt with several keywords", func() {
		result := &ocr.Result{
			FullText: "Comprobante de Pago Móvil\nTransferencia exitosa\nMonto Bs 1.234,50\nFecha 15/03/2024\nOperación 123456789\nBanco Mercantil",
			Tokens: []ocr.Token{
				wideToken("Comprobante", 10),
				wideToken("Transferencia", 50),
				wideToken("Monto", 90),
				wideToken("Fecha", 130),
				wideToken("Operación", 170),
			},
		}

		verdict, err := classify.Classify(rc, result, 800, 600)

		Expect(err).NotTo(HaveOccurred())
		Expect(verdict.IsReceipt).To(BeTrue())
		Expect(len(verdict.MatchedKeywords)).To(BeNumerically(">=", 3))
	})

	It("rejects a photo of something else", func() {
		result := &ocr.Result{
			FullText: "un gato dormido sobre el sofa",
			Tokens: []ocr.Token{
				wideToken("un", 10),
				wideToken("gato", 50),
				wideToken("dormido", 90),
				wideToken("sobre", 130),
				wideToken("el", 170),
				wideToken("sofa", 210),
			},
		}

		verdict, err := classify.Classify(rc, result, 800, 600)

		Expect(err).To(MatchError(common.ErrNotAReceipt))
		Expect(verdict.IsReceipt).To(BeFalse())
		Expect(verdict.Reason).To(Equal("no_payment_receipt"))
	})

	It("rejects an image with almost no detected text", func() {
		result := &ocr.Result{
			FullText: "pago transferencia monto banco",
			Tokens:   []ocr.Token{},
		}

		verdict, err := classify.Classify(rc, result, 800, 600)

		Expect(err).To(MatchError(common.ErrNotAReceipt))
		Expect(verdict.Reason).To(Equal("no_payment_receipt"))
	})

	It("rejects a document below the keyword minimum even with a banking word", func() {
		result := &ocr.Result{
			FullText: "factura electronica transferencia",
			Tokens: []ocr.Token{
				wideToken("factura", 10),
				wideToken("electronica", 50),
				wideToken("transferencia", 90),
			},
		}

		verdict, err := classify.Classify(rc, result, 800, 600)

		Expect(err).To(MatchError(common.ErrNotAReceipt))
		Expect(verdict.IsReceipt).To(BeFalse())
		Expect(verdict.StrongMatches).To(BeNumerically(">", 0))
	})

	It("tolerates fuzzy keyword noise from the engine", func() {
		result := &ocr.Result{
			FullText: "Comprobamte de Pago\nTransferencla exitosa\nMonto Bs 500,00\nOperacion 987654321",
			Tokens: []ocr.Token{
				wideToken("Comprobamte", 10),
				wideToken("Transferencla", 50),
				wideToken("Monto", 90),
				wideToken("Operacion", 130),
			},
		}

		verdict, err := classify.Classify(rc, result, 800, 600)

		Expect(err).NotTo(HaveOccurred())
		Expect(verdict.IsReceipt).To(BeTrue())
	})
})
