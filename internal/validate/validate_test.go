package validate_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/extract"
	"github.com/pagomovil/comprobante-ocr/internal/template"
	"github.com/pagomovil/comprobante-ocr/internal/validate"
)

type fixedPenalizer struct{ penalty float64 }

func (p fixedPenalizer) Penalty(templateID, fieldName string) float64 { return p.penalty }

func mandatoryTargets() template.Resolution {
	names := []string{"monto", "fecha", "operacion"}
	targets := make([]template.FieldTarget, 0, len(names))
	for _, name := range names {
		field, ok := template.DefaultFieldByName(name)
		Expect(ok).To(BeTrue())
		targets = append(targets, template.FieldTarget{Field: field, Kind: template.TargetZOI})
	}
	return template.Resolution{Targets: targets, Score: 0.8}
}

func goodFields() map[string]extract.FieldResult {
	return map[string]extract.FieldResult{
		"monto":     {Value: "1.234,50", Confidence: 95, Successful: true},
		"fecha":     {Value: "15/03/2024", Confidence: 93, Successful: true},
		"operacion": {Value: "123456789", Confidence: 94, Successful: true},
	}
}

var _ = Describe("Apply", func() {
	var rc *common.RunContext

	BeforeEach(func() {
		rc = common.NewRunContext("test")
	})

	It("reports success when mandatory fields pass their rules", func() {
		outcome := validate.Apply(rc, goodFields(), mandatoryTargets(), nil)

		Expect(outcome.Status).To(Equal(validate.StatusSuccess))
		Expect(outcome.OverallConfidence).To(BeNumerically(">", 60))
		Expect(outcome.RuleErrors).To(BeEmpty())
	})

	It("fails validation when an extracted value violates its rule", func() {
		fields := goodFields()
		fields["monto"] = extract.FieldResult{Value: "0,00", Confidence: 95, Successful: true}

		outcome := validate.Apply(rc, fields, mandatoryTargets(), nil)

		Expect(outcome.Status).To(Equal(validate.StatusValidationFailed))
		Expect(outcome.Fields["monto"].Successful).To(BeFalse())
		Expect(outcome.Fields["monto"].Confidence).To(BeZero())
		Expect(outcome.RuleErrors).To(HaveKey("monto"))
	})

	It("rejects receipt dates in the future", func() {
		fields := goodFields()
		fields["fecha"] = extract.FieldResult{Value: "15/03/2099", Confidence: 93, Successful: true}

		outcome := validate.Apply(rc, fields, mandatoryTargets(), nil)

		Expect(outcome.Status).To(Equal(validate.StatusValidationFailed))
		Expect(outcome.Fields["fecha"].Successful).To(BeFalse())
	})

	It("keeps rule compliance in range with several simultaneous failures", func() {
		fields := goodFields()
		fields["monto"] = extract.FieldResult{Value: "0,00", Confidence: 95, Successful: true}
		fields["fecha"] = extract.FieldResult{Value: "15/03/2099", Confidence: 93, Successful: true}

		outcome := validate.Apply(rc, fields, mandatoryTargets(), nil)

		Expect(outcome.Status).To(Equal(validate.StatusValidationFailed))
		// One of three extracted values survived its rule
		Expect(outcome.Factors.RuleCompliance).To(BeNumerically("~", 33.33, 0.1))
		Expect(outcome.Factors.RuleCompliance).To(BeNumerically(">=", 0))
	})

	It("halves rule compliance when one of two extracted values fails", func() {
		fields := map[string]extract.FieldResult{
			"monto": {Value: "0,00", Confidence: 95, Successful: true},
			"fecha": {Value: "15/03/2024", Confidence: 93, Successful: true},
		}
		resolution := mandatoryTargets()
		resolution.Targets = resolution.Targets[:2] // monto and fecha only

		outcome := validate.Apply(rc, fields, resolution, nil)

		Expect(outcome.Factors.RuleCompliance).To(BeNumerically("==", 50))
	})

	It("discards an identity that duplicates the operation number", func() {
		resolution := mandatoryTargets()
		identity, ok := template.DefaultFieldByName("identificacion")
		Expect(ok).To(BeTrue())
		resolution.Targets = append(resolution.Targets,
			template.FieldTarget{Field: identity, Kind: template.TargetZOI})

		fields := goodFields()
		fields["identificacion"] = extract.FieldResult{Value: "V-123456789", Confidence: 88, Successful: true}

		outcome := validate.Apply(rc, fields, resolution, nil)

		Expect(outcome.Fields["identificacion"].Successful).To(BeFalse())
		Expect(outcome.RuleErrors).To(HaveKey("identificacion"))
		// The mandatory set is intact, the run itself still succeeds
		Expect(outcome.Status).To(Equal(validate.StatusSuccess))
	})

	It("fails validation when a mandatory field was not extracted", func() {
		fields := goodFields()
		fields["fecha"] = extract.FieldResult{Successful: false, Confidence: 0}

		outcome := validate.Apply(rc, fields, mandatoryTargets(), nil)

		Expect(outcome.Status).To(Equal(validate.StatusValidationFailed))
	})

	It("demotes to low confidence when fields barely scraped through", func() {
		fields := map[string]extract.FieldResult{
			"monto":     {Value: "1.234,50", Confidence: 10, Successful: true},
			"fecha":     {Value: "15/03/2024", Confidence: 10, Successful: true},
			"operacion": {Value: "123456789", Confidence: 10, Successful: true},
		}
		resolution := mandatoryTargets()
		resolution.Score = 0 // no template matched

		outcome := validate.Apply(rc, fields, resolution, nil)

		Expect(outcome.Status).To(Equal(validate.StatusLowConfidence))
	})

	It("deducts learned penalties from field confidence", func() {
		withoutPenalty := validate.Apply(rc, goodFields(), mandatoryTargets(), nil)
		withPenalty := validate.Apply(rc, goodFields(), mandatoryTargets(), fixedPenalizer{penalty: 20})

		Expect(withPenalty.Fields["monto"].Confidence).To(
			BeNumerically("==", withoutPenalty.Fields["monto"].Confidence-20))
		Expect(withPenalty.OverallConfidence).To(
			BeNumerically("<", withoutPenalty.OverallConfidence))
	})

	It("never lets confidence go negative under heavy penalties", func() {
		outcome := validate.Apply(rc, goodFields(), mandatoryTargets(), fixedPenalizer{penalty: 500})

		for _, field := range outcome.Fields {
			Expect(field.Confidence).To(BeNumerically(">=", 0))
		}
	})
})
