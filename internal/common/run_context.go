// run_context.go - Pipeline run tracking and logging system

package common

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// RunContext tracks a full extraction run with per-step timing
type RunContext struct {
	RunID            string
	ImageID          string
	StartTime        time.Time
	Steps            []StepLog
	CurrentStep      string
	CurrentStepStart time.Time
	CurrentSubSteps  []SubStepLog
	CurrentSubStep   string
	CurrentSubStart  time.Time
}

// StepLog represents a single processing step
type StepLog struct {
	Name      string       `json:"name"`
	StartTime time.Time    `json:"start_time"`
	Duration  int64        `json:"duration_ms"`
	Status    string       `json:"status"` // "success", "failed", "skipped"
	Error     string       `json:"error,omitempty"`
	SubSteps  []SubStepLog `json:"sub_steps,omitempty"`
}

// SubStepLog represents a detailed sub-operation within a step
type SubStepLog struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Duration  int64     `json:"duration_ms"`
	Details   string    `json:"details,omitempty"`
}

// NewRunContext creates a new run tracking context
func NewRunContext(imageID string) *RunContext {
	runID := uuid.New().String()
	now := time.Now()

	log.Printf("[%s] 🚀 Nueva solicitud de extracción | Imagen: %s | Hora: %s",
		runID, imageID, now.Format("15:04:05"))

	return &RunContext{
		RunID:     runID,
		ImageID:   imageID,
		StartTime: now,
		Steps:     []StepLog{},
	}
}

// StartStep begins tracking a new processing step
func (rc *RunContext) StartStep(stepName string) {
	rc.CurrentStep = stepName
	rc.CurrentStepStart = time.Now()

	stepDescriptions := map[string]string{
		"quality_diagnosis":   "🔬 Diagnóstico de calidad de imagen",
		"preprocessing":       "🔧 Preprocesamiento adaptativo",
		"ocr_recognition":     "🔍 Reconocimiento OCR",
		"classification":      "📋 Clasificación de documento",
		"template_resolution": "🧩 Resolución de plantilla / ZOI",
		"field_extraction":    "📝 Extracción de campos",
		"validation":          "✅ Validación y confianza",
		"retrain_model":       "🧠 Reentrenamiento del modelo",
	}

	desc := stepDescriptions[stepName]
	if desc == "" {
		desc = stepName
	}

	log.Printf("[%s] \n┌── %s", rc.RunID, desc)
}

// EndStep completes the current step and records timing
func (rc *RunContext) EndStep(status string, err error) {
	duration := time.Since(rc.CurrentStepStart).Milliseconds()

	stepLog := StepLog{
		Name:      rc.CurrentStep,
		StartTime: rc.CurrentStepStart,
		Duration:  duration,
		Status:    status,
		SubSteps:  rc.CurrentSubSteps,
	}

	if err != nil {
		stepLog.Error = err.Error()
		log.Printf("[%s] ❌ FALLÓ - %s (%.2fs) - Error: %v",
			rc.RunID, rc.CurrentStep, float64(duration)/1000, err)
	} else {
		logMsg := fmt.Sprintf("[%s] └── ✅ Completado: %.2fs",
			rc.RunID, float64(duration)/1000)

		if len(rc.CurrentSubSteps) > 0 {
			logMsg += fmt.Sprintf(" | subpasos: %d", len(rc.CurrentSubSteps))
		}

		log.Print(logMsg)
	}

	rc.Steps = append(rc.Steps, stepLog)
	rc.CurrentStep = ""
	rc.CurrentSubSteps = []SubStepLog{}
}

// StartSubStep begins tracking a detailed sub-operation
func (rc *RunContext) StartSubStep(subStepName string) {
	rc.CurrentSubStep = subStepName
	rc.CurrentSubStart = time.Now()

	subStepDesc := map[string]string{
		"decode_image":      "🖼️ Decodificar imagen",
		"deskew":            "📐 Corregir inclinación",
		"upscale":           "🔎 Escalar imagen",
		"denoise":           "🧹 Reducir ruido",
		"invert_polarity":   "🌓 Invertir polaridad",
		"tesseract_call":    "🚀 Invocar motor OCR",
		"fingerprint_match": "🔑 Comparar huellas de plantilla",
		"anchor_search":     "⚓ Buscar anclas de campo",
		"zoi_projection":    "📦 Proyectar zonas de interés",
		"model_penalties":   "🧠 Aplicar penalizaciones del modelo",
	}

	desc := subStepDesc[subStepName]
	if desc == "" {
		desc = subStepName
	}

	log.Printf("[%s]    ├─ %s...", rc.RunID, desc)
}

// EndSubStep completes the current sub-step and records timing
func (rc *RunContext) EndSubStep(details string) {
	if rc.CurrentSubStep == "" {
		return
	}

	duration := time.Since(rc.CurrentSubStart).Milliseconds()

	rc.CurrentSubSteps = append(rc.CurrentSubSteps, SubStepLog{
		Name:      rc.CurrentSubStep,
		StartTime: rc.CurrentSubStart,
		Duration:  duration,
		Details:   details,
	})

	detailsMsg := ""
	if details != "" {
		detailsMsg = " | " + details
	}
	log.Printf("[%s]    └─ ✅ %.2fs%s",
		rc.RunID, float64(duration)/1000, detailsMsg)

	rc.CurrentSubStep = ""
}

// LogInfo logs info-level message with run ID prefix
func (rc *RunContext) LogInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] ℹ️  %s", rc.RunID, msg)
}

// LogWarning logs warning-level message with run ID prefix
func (rc *RunContext) LogWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] ⚠️  %s", rc.RunID, msg)
}

// LogError logs error-level message with run ID prefix
func (rc *RunContext) LogError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] ❌ %s", rc.RunID, msg)
}

// GetSummary returns a final summary of the entire run
func (rc *RunContext) GetSummary() map[string]interface{} {
	totalDuration := time.Since(rc.StartTime).Milliseconds()

	stepBreakdown := make(map[string]int64)
	for _, step := range rc.Steps {
		stepBreakdown[step.Name] = step.Duration
	}

	summary := map[string]interface{}{
		"run_id":             rc.RunID,
		"image_id":           rc.ImageID,
		"total_duration_ms":  totalDuration,
		"total_duration_sec": float64(totalDuration) / 1000,
		"step_breakdown":     stepBreakdown,
		"total_steps":        len(rc.Steps),
	}

	log.Printf("[%s] \n═══ 🎯 Resumen ═══", rc.RunID)
	log.Printf("[%s] ⏱️  Tiempo total: %.2fs | 📝 Pasos: %d",
		rc.RunID, float64(totalDuration)/1000, len(rc.Steps))
	log.Printf("[%s] ═══════════════════════════\n", rc.RunID)

	return summary
}
