// validate.go - Field validation and result status decision

package validate

import (
	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/extract"
	"github.com/pagomovil/comprobante-ocr/internal/template"
)

// Result status values
const (
	StatusSuccess          = "success"
	StatusLowConfidence    = "low_confidence"
	StatusValidationFailed = "validation_failed"
)

// Penalizer supplies learned confidence deductions per template and field.
// Implemented by the probabilistic model; a nil Penalizer deducts nothing.
type Penalizer interface {
	Penalty(templateID, fieldName string) float64
}

// Outcome is the validated extraction result
type Outcome struct {
	Fields            map[string]extract.FieldResult
	OverallConfidence float64
	Factors           ConfidenceFactors
	Status            string
	RuleErrors        map[string]string
}

// Apply runs business rules over the extracted fields, deducts learned
// penalties and decides the final status. A field that violates its rule
// is demoted to unsuccessful with confidence 0; it never rides along in a
// success result.
func Apply(
	rc *common.RunContext,
	fields map[string]extract.FieldResult,
	resolution template.Resolution,
	penalizer Penalizer,
) Outcome {

	outcome := Outcome{
		Fields:     make(map[string]extract.FieldResult, len(fields)),
		RuleErrors: map[string]string{},
	}

	templateID := "none"
	if resolution.Template != nil {
		templateID = resolution.Template.ID
	}

	ruleFailures := 0
	mandatoryFailed := false

	for _, target := range resolution.Targets {
		name := target.Field.Name
		result := fields[name]

		if result.Successful {
			if err := checkRule(target.Field.Kind, result.Value); err != nil {
				rc.LogWarning("campo '%s' viola regla: %v", name, err)
				outcome.RuleErrors[name] = err.Error()
				result.Successful = false
				result.Confidence = 0
				ruleFailures++
			} else if penalizer != nil {
				penalty := penalizer.Penalty(templateID, name)
				if penalty > 0 {
					rc.StartSubStep("model_penalties")
					if penalty > configs.MODEL_MAX_PENALTY {
						penalty = configs.MODEL_MAX_PENALTY
					}
					result.Confidence -= penalty
					if result.Confidence < 0 {
						result.Confidence = 0
					}
					rc.EndSubStep("")
					rc.LogInfo("penalización aprendida para '%s': -%.1f", name, penalty)
				}
			}
		}

		if target.Field.Mandatory && !result.Successful {
			mandatoryFailed = true
		}

		outcome.Fields[name] = result
	}

	// Cross-field check: the operation number and the identity document
	// must not be the same digit run. When they collide the generalized
	// scan grabbed one value twice; the identity is the less certain claim.
	operacion := outcome.Fields["operacion"]
	identificacion := outcome.Fields["identificacion"]
	if operacion.Successful && identificacion.Successful &&
		digitsOf(operacion.Value) == digitsOf(identificacion.Value) {
		rc.LogWarning("identificacion coincide con el número de operación, descartada")
		outcome.RuleErrors["identificacion"] = "coincide con el número de operación"
		identificacion.Successful = false
		identificacion.Confidence = 0
		outcome.Fields["identificacion"] = identificacion
		ruleFailures++
	}

	outcome.OverallConfidence, outcome.Factors = calculateOverall(
		rc, outcome.Fields, resolution.Targets, resolution.Score, ruleFailures)

	switch {
	case mandatoryFailed:
		outcome.Status = StatusValidationFailed
	case outcome.OverallConfidence < configs.MIN_CONFIDENCE_FLOOR:
		outcome.Status = StatusLowConfidence
	default:
		outcome.Status = StatusSuccess
	}

	rc.LogInfo("estado final: %s (confianza %.1f%%)", outcome.Status, outcome.OverallConfidence)
	return outcome
}
