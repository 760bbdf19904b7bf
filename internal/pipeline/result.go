// result.go - Extraction result envelope

package pipeline

import (
	"github.com/pagomovil/comprobante-ocr/internal/quality"
	"github.com/pagomovil/comprobante-ocr/internal/validate"
)

// FieldOutput is the per-field payload in campos_extraidos
type FieldOutput struct {
	Value                string  `json:"value"`
	Confidence           float64 `json:"confidence"`
	ExtractionSuccessful bool    `json:"extraction_successful"`
}

// Data carries the extraction payload of a processed receipt
type Data struct {
	Status            string                 `json:"status"`
	ExtractionMethod  string                 `json:"extraction_method"`
	Campos            map[string]FieldOutput `json:"campos_extraidos"`
	OverallConfidence float64                `json:"overall_confidence"`
}

// QualityOutput reports the quality diagnosis of the raw input
type QualityOutput struct {
	Sharpness  float64 `json:"sharpness"`
	Brightness float64 `json:"brightness"`
	ImageType  string  `json:"image_type"`
}

// ExtractionResult is the top-level response envelope
type ExtractionResult struct {
	Success bool           `json:"success"`
	Reason  string         `json:"reason,omitempty"`
	Data    *Data          `json:"data,omitempty"`
	Quality *QualityOutput `json:"initial_image_quality,omitempty"`
}

// ExitCode maps the result onto the process exit convention:
// 0 extracted, 2 extracted but unusable, 1 not a receipt
func (r *ExtractionResult) ExitCode() int {
	if r.Success {
		return 0
	}
	if r.Data != nil &&
		(r.Data.Status == validate.StatusLowConfidence || r.Data.Status == validate.StatusValidationFailed) {
		return 2
	}
	return 1
}

func qualityOutput(report quality.Report) *QualityOutput {
	return &QualityOutput{
		Sharpness:  report.Sharpness,
		Brightness: report.Brightness,
		ImageType:  string(report.Category),
	}
}
