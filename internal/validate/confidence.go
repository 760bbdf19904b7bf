// confidence.go - Weighted Confidence Score Calculator

package validate

import (
	"math"

	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/extract"
	"github.com/pagomovil/comprobante-ocr/internal/template"
)

// ConfidenceFactors holds the score of each factor (0-100)
type ConfidenceFactors struct {
	FieldConfidence float64 `json:"field_confidence"` // mean adjusted confidence of extracted fields
	Completeness    float64 `json:"completeness"`     // mandatory fields actually extracted
	TemplateMatch   float64 `json:"template_match"`   // fingerprint match strength
	RuleCompliance  float64 `json:"rule_compliance"`  // extracted values passing business rules
}

// ConfidenceWeights weighs each factor (sums to 1.0)
type ConfidenceWeights struct {
	FieldConfidence float64
	Completeness    float64
	TemplateMatch   float64
	RuleCompliance  float64
}

// DefaultWeights are the standard calculation weights
var DefaultWeights = ConfidenceWeights{
	FieldConfidence: 0.40,
	Completeness:    0.25,
	TemplateMatch:   0.15,
	RuleCompliance:  0.20,
}

// calculateOverall computes the weighted aggregate confidence
func calculateOverall(
	rc *common.RunContext,
	fields map[string]extract.FieldResult,
	targets []template.FieldTarget,
	templateScore float64,
	ruleFailures int,
) (float64, ConfidenceFactors) {

	var confSum float64
	extracted := 0
	mandatory := 0
	mandatoryOK := 0

	for _, target := range targets {
		result := fields[target.Field.Name]
		if target.Field.Mandatory {
			mandatory++
			if result.Successful {
				mandatoryOK++
			}
		}
		if result.Successful {
			confSum += result.Confidence
			extracted++
		}
	}

	factors := ConfidenceFactors{}

	if extracted > 0 {
		factors.FieldConfidence = confSum / float64(extracted)
	}
	if mandatory > 0 {
		factors.Completeness = float64(mandatoryOK) / float64(mandatory) * 100
	} else {
		factors.Completeness = 100
	}
	// Generic ZOI extraction is workable but inherently less certain
	// than a recognized layout, so it scores the neutral middle
	if templateScore > 0 {
		factors.TemplateMatch = templateScore * 100
	} else {
		factors.TemplateMatch = 50
	}
	// Fields that failed a rule were already demoted out of extracted, so
	// the original extraction count is extracted + ruleFailures
	if extracted+ruleFailures > 0 {
		factors.RuleCompliance = float64(extracted) / float64(extracted+ruleFailures) * 100
	}

	overall := (factors.FieldConfidence * DefaultWeights.FieldConfidence) +
		(factors.Completeness * DefaultWeights.Completeness) +
		(factors.TemplateMatch * DefaultWeights.TemplateMatch) +
		(factors.RuleCompliance * DefaultWeights.RuleCompliance)

	overall = math.Round(overall*100) / 100

	rc.LogInfo("📊 Cálculo de confianza:")
	rc.LogInfo("  ├─ Confianza de campos: %.1f%% (peso: %.0f%%)", factors.FieldConfidence, DefaultWeights.FieldConfidence*100)
	rc.LogInfo("  ├─ Completitud: %.1f%% (peso: %.0f%%)", factors.Completeness, DefaultWeights.Completeness*100)
	rc.LogInfo("  ├─ Plantilla: %.1f%% (peso: %.0f%%)", factors.TemplateMatch, DefaultWeights.TemplateMatch*100)
	rc.LogInfo("  ├─ Reglas: %.1f%% (peso: %.0f%%)", factors.RuleCompliance, DefaultWeights.RuleCompliance*100)
	rc.LogInfo("  └─ Total: %.1f%%", overall)

	return overall, factors
}
