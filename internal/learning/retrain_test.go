package learning_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/learning"
)

const feedbackHeader = "id_unico_imagen,campo_nombre,raw_ocr_output,valor_corregido,causa_raiz,timestamp_feedback,plantilla_id\n"

var _ = Describe("Retrain", func() {
	var (
		dir       string
		csvPath   string
		modelPath string
		rc        *common.RunContext
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "learning-test-*")
		Expect(err).NotTo(HaveOccurred())
		csvPath = filepath.Join(dir, "feedback.csv")
		modelPath = filepath.Join(dir, "model.json")
		rc = common.NewRunContext("test")
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	writeCSV := func(rows string) {
		Expect(os.WriteFile(csvPath, []byte(feedbackHeader+rows), 0o644)).To(Succeed())
	}

	It("raises the weight for the corrected field and cause", func() {
		writeCSV("img-1,monto,1.23450,\"1.234,50\",caracter_mal_reconocido,2026-08-20T10:00:00Z,pago_movil_banesco\n")

		report, err := learning.Retrain(rc, csvPath, modelPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.RowsAccepted).To(Equal(1))
		Expect(report.EntriesUpdated).To(Equal(1))

		model, err := learning.Load(modelPath)
		Expect(err).NotTo(HaveOccurred())

		key := learning.EntryKey("pago_movil_banesco", "monto", learning.CauseMisrecognizedChar)
		Expect(model.Entries[key].Weight).To(BeNumerically(">", 0))
		Expect(model.Entries[key].Samples).To(Equal(1))

		// The learned weight now lowers effective confidence
		Expect(model.Penalty("pago_movil_banesco", "monto")).To(BeNumerically(">", 0))
		Expect(model.Penalty("pago_movil_banesco", "fecha")).To(BeZero())
	})

	It("is idempotent over the same feedback batch", func() {
		writeCSV("img-1,monto,1.23450,\"1.234,50\",caracter_mal_reconocido,2026-08-20T10:00:00Z,\n")

		first, err := learning.Retrain(rc, csvPath, modelPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.AlreadyApplied).To(BeFalse())

		modelAfterFirst, err := learning.Load(modelPath)
		Expect(err).NotTo(HaveOccurred())

		second, err := learning.Retrain(rc, csvPath, modelPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.AlreadyApplied).To(BeTrue())

		modelAfterSecond, err := learning.Load(modelPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(modelAfterSecond.Entries).To(Equal(modelAfterFirst.Entries))
	})

	It("rejects rows with an unknown root cause", func() {
		writeCSV("img-1,monto,raw,fixed,causa_inventada,2026-08-20T10:00:00Z,\n" +
			"img-2,fecha,raw,15/03/2026,formato_erroneo,2026-08-20T10:00:00Z,\n")

		report, err := learning.Retrain(rc, csvPath, modelPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.RowsAccepted).To(Equal(1))
		Expect(report.Rejections).To(HaveLen(1))
		Expect(report.Rejections[0].Reason).To(ContainSubstring("causa_inventada"))
	})

	It("rejects rows with an unknown field name", func() {
		writeCSV("img-1,campo_inexistente,raw,fixed,otro,2026-08-20T10:00:00Z,\n")

		report, err := learning.Retrain(rc, csvPath, modelPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.RowsAccepted).To(BeZero())
		Expect(report.Rejections).To(HaveLen(1))
	})

	It("fails the whole file when a required column is missing", func() {
		bad := "id_unico_imagen,campo_nombre\nimg-1,monto\n"
		Expect(os.WriteFile(csvPath, []byte(bad), 0o644)).To(Succeed())

		_, err := learning.Retrain(rc, csvPath, modelPath)
		Expect(err).To(MatchError(common.ErrFeedbackRejected))
	})

	It("caps entry weights at the configured maximum", func() {
		rows := ""
		timestamps := []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}
		for _, d := range timestamps {
			rows += "img-" + d + ",monto,raw,fixed,campo_no_detectado,2026-08-" + d + "T10:00:00Z,\n"
		}
		writeCSV(rows)

		_, err := learning.Retrain(rc, csvPath, modelPath)
		Expect(err).NotTo(HaveOccurred())

		model, err := learning.Load(modelPath)
		Expect(err).NotTo(HaveOccurred())

		key := learning.EntryKey("none", "monto", learning.CauseFieldNotDetected)
		Expect(model.Entries[key].Weight).To(BeNumerically("<=", 1.0))
		Expect(model.Entries[key].Samples).To(Equal(12))
	})
})

var _ = Describe("Model persistence", func() {
	It("loads an empty model when the file does not exist", func() {
		model, err := learning.Load(filepath.Join(os.TempDir(), "does-not-exist-model.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(model.Entries).To(BeEmpty())
		Expect(model.Penalty("none", "monto")).To(BeZero())
	})

	It("round-trips entries through save and load", func() {
		dir, err := os.MkdirTemp("", "model-test-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(dir)

		path := filepath.Join(dir, "model.json")
		model := learning.NewModel()
		model.Entries[learning.EntryKey("none", "fecha", learning.CauseBadFormat)] = learning.Entry{
			Weight: 0.3, Samples: 3,
		}

		Expect(model.Save(path)).To(Succeed())

		loaded, err := learning.Load(path)
		Expect(err).NotTo(HaveOccurred())
		key := learning.EntryKey("none", "fecha", learning.CauseBadFormat)
		Expect(loaded.Entries[key].Weight).To(BeNumerically("~", 0.3, 1e-9))
	})
})
