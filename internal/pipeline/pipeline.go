// pipeline.go - Extraction pipeline orchestration

package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/classify"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/debugart"
	"github.com/pagomovil/comprobante-ocr/internal/extract"
	"github.com/pagomovil/comprobante-ocr/internal/learning"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
	"github.com/pagomovil/comprobante-ocr/internal/preprocess"
	"github.com/pagomovil/comprobante-ocr/internal/quality"
	"github.com/pagomovil/comprobante-ocr/internal/storage"
	"github.com/pagomovil/comprobante-ocr/internal/template"
	"github.com/pagomovil/comprobante-ocr/internal/validate"
)

// Pipeline wires the extraction stages together
type Pipeline struct {
	engine  ocr.Engine
	model   atomic.Pointer[learning.Model]
	archive *storage.Archive
}

// New assembles a pipeline with the current model snapshot. A run always
// works against one immutable snapshot; it never observes a mid-retrain
// state.
func New(engine ocr.Engine, archive *storage.Archive) (*Pipeline, error) {
	p := &Pipeline{
		engine:  engine,
		archive: archive,
	}
	if err := p.ReloadModel(); err != nil {
		return nil, err
	}
	return p, nil
}

// ReloadModel swaps in the model currently on disk. Called after a
// retrain so new penalties apply without a restart.
func (p *Pipeline) ReloadModel() error {
	model, err := learning.Load(configs.MODEL_PATH)
	if err != nil {
		return err
	}
	p.model.Store(model)
	return nil
}

// Run processes one receipt image end to end. Identical input bytes and
// model state always produce the identical result.
func (p *Pipeline) Run(ctx context.Context, imageID string, imageBytes []byte) (*ExtractionResult, error) {
	rc := common.NewRunContext(imageID)
	defer rc.GetSummary()

	// Stage 1: quality diagnosis on the untouched input
	rc.StartStep("quality_diagnosis")
	rc.StartSubStep("decode_image")
	img, err := quality.Decode(imageBytes)
	if err != nil {
		rc.EndStep("failed", err)
		return nil, err
	}
	rc.EndSubStep("")
	report := quality.Diagnose(img)
	rc.EndStep("success", nil)
	rc.LogInfo("calidad: nitidez=%.1f brillo=%.1f ruido=%.1f tipo=%s",
		report.Sharpness, report.Brightness, report.Noise, report.Category)

	// Stage 2: adaptive preprocessing
	rc.StartStep("preprocessing")
	processed := preprocess.Apply(rc, img, report)
	rc.EndStep("success", nil)

	// Stage 3: recognition
	rc.StartStep("ocr_recognition")
	rc.StartSubStep("tesseract_call")
	recognized, err := p.engine.Recognize(ctx, processed.Image)
	if err != nil {
		rc.EndStep("failed", err)
		return nil, err
	}
	rc.EndSubStep("")
	rc.EndStep("success", nil)
	rc.LogInfo("%d tokens reconocidos (confianza media %.1f)",
		len(recognized.Tokens), recognized.MeanConfidence())

	debugart.Save(rc, processed.Image, recognized)

	bounds := processed.Image.Bounds()

	// Stage 4: classification with early exit. A rejected document gets
	// no field extraction at all.
	rc.StartStep("classification")
	_, err = classify.Classify(rc, recognized, bounds.Dx(), bounds.Dy())
	if err != nil {
		if errors.Is(err, common.ErrNotAReceipt) {
			rc.EndStep("failed", err)
			result := &ExtractionResult{
				Success: false,
				Reason:  "no_payment_receipt",
				Quality: qualityOutput(report),
			}
			p.archiveRun(ctx, rc, result)
			return result, nil
		}
		rc.EndStep("failed", err)
		return nil, err
	}
	rc.EndStep("success", nil)

	// Stage 5: template and target resolution
	rc.StartStep("template_resolution")
	resolution, err := template.Resolve(rc, recognized)
	if err != nil {
		rc.EndStep("failed", err)
		return nil, err
	}
	rc.EndStep("success", nil)

	// Stage 6: two-phase field extraction
	rc.StartStep("field_extraction")
	fields := extract.Run(rc, recognized.Tokens, resolution)
	rc.EndStep("success", nil)

	// Stage 7: validation, learned penalties, final status
	rc.StartStep("validation")
	outcome := validate.Apply(rc, fields, resolution, p.model.Load())
	rc.EndStep("success", nil)

	debugart.SaveFields(rc, processed.Image, outcome.Fields)

	result := &ExtractionResult{
		Success: outcome.Status == validate.StatusSuccess,
		Quality: qualityOutput(report),
		Data: &Data{
			Status:            outcome.Status,
			ExtractionMethod:  resolution.Method,
			Campos:            fieldOutputs(outcome),
			OverallConfidence: outcome.OverallConfidence,
		},
	}
	if !result.Success {
		result.Reason = outcome.Status
	}

	p.archiveRun(ctx, rc, result)
	return result, nil
}

func fieldOutputs(outcome validate.Outcome) map[string]FieldOutput {
	campos := make(map[string]FieldOutput, len(outcome.Fields))
	for name, field := range outcome.Fields {
		campos[name] = FieldOutput{
			Value:                field.Value,
			Confidence:           field.Confidence,
			ExtractionSuccessful: field.Successful,
		}
	}
	return campos
}

// archiveRun persists the run when an archive is configured
func (p *Pipeline) archiveRun(ctx context.Context, rc *common.RunContext, result *ExtractionResult) {
	record := storage.RunRecord{
		RunID:   rc.RunID,
		ImageID: rc.ImageID,
		Reason:  result.Reason,
		Steps:   rc.Steps,
	}
	if result.Quality != nil {
		record.Quality = result.Quality
	}
	if result.Data != nil {
		record.Status = result.Data.Status
		record.ExtractionMethod = result.Data.ExtractionMethod
		record.OverallConfidence = result.Data.OverallConfidence
		record.Fields = map[string]interface{}{}
		for name, field := range result.Data.Campos {
			record.Fields[name] = field
		}
	} else {
		record.Status = "rejected"
	}

	if err := p.archive.SaveRun(ctx, record); err != nil {
		rc.LogWarning("no se pudo archivar la corrida: %v", err)
	}
}
