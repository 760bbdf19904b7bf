// model.go - Probabilistic error model with atomic single-writer persistence

package learning

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pagomovil/comprobante-ocr/configs"
)

// RootCause tags the diagnosed reason behind a bad extraction
type RootCause string

const (
	CauseBadSegmentation    RootCause = "mala_segmentacion"
	CauseMisrecognizedChar  RootCause = "caracter_mal_reconocido"
	CauseFieldNotDetected   RootCause = "campo_no_detectado"
	CauseTemplateError      RootCause = "error_de_plantilla"
	CauseBadFormat          RootCause = "formato_erroneo"
	CauseMissingInfo        RootCause = "info_faltante"
	CauseImageNoise         RootCause = "ruido_imagen"
	CauseImageDistortion    RootCause = "distorsion_imagen"
	CauseMisclassifiedImage RootCause = "clasificacion_erronea_no_recibo"
	CauseOther              RootCause = "otro"
)

// KnownCauses is the closed set of accepted root cause tags
var KnownCauses = map[RootCause]bool{
	CauseBadSegmentation:    true,
	CauseMisrecognizedChar:  true,
	CauseFieldNotDetected:   true,
	CauseTemplateError:      true,
	CauseBadFormat:          true,
	CauseMissingInfo:        true,
	CauseImageNoise:         true,
	CauseImageDistortion:    true,
	CauseMisclassifiedImage: true,
	CauseOther:              true,
}

// Entry is the learned weight for one (template, field, cause) triple
type Entry struct {
	Weight   float64   `json:"weight"`
	Samples  int       `json:"samples"`
	LastSeen time.Time `json:"last_seen"`
}

// Model is an immutable in-memory snapshot of the probabilistic model.
// Readers never see partial state; retraining swaps whole files on disk.
type Model struct {
	Version        int              `json:"version"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Entries        map[string]Entry `json:"entries"`
	AppliedBatches []string         `json:"applied_batches"`
}

// NewModel creates an empty model
func NewModel() *Model {
	return &Model{
		Version: 1,
		Entries: map[string]Entry{},
	}
}

// EntryKey builds the canonical "(template|none)|field|cause" key
func EntryKey(templateID, field string, cause RootCause) string {
	if templateID == "" {
		templateID = "none"
	}
	return templateID + "|" + field + "|" + string(cause)
}

// Penalty returns the confidence deduction for a field under a template.
// Weights over all causes for the template are summed with the generic
// "none" weights, capped at 1.0, then scaled by the configured maximum.
func (m *Model) Penalty(templateID, fieldName string) float64 {
	if m == nil || len(m.Entries) == 0 {
		return 0
	}
	if templateID == "" {
		templateID = "none"
	}

	var total float64
	for key, entry := range m.Entries {
		parts := strings.SplitN(key, "|", 3)
		if len(parts) != 3 || parts[1] != fieldName {
			continue
		}
		if parts[0] == templateID || parts[0] == "none" {
			total += entry.Weight
		}
	}

	if total > 1.0 {
		total = 1.0
	}
	return total * configs.MODEL_MAX_PENALTY
}

// HasBatch reports whether a feedback batch digest was already applied
func (m *Model) HasBatch(digest string) bool {
	for _, applied := range m.AppliedBatches {
		if applied == digest {
			return true
		}
	}
	return false
}

// Load reads a model snapshot from disk. A missing file yields an empty
// model so a fresh deployment extracts without penalties.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewModel(), nil
		}
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	model := NewModel()
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("corrupt model file %s: %w", path, err)
	}
	if model.Entries == nil {
		model.Entries = map[string]Entry{}
	}
	return model, nil
}

// Save writes the model atomically: full serialize to a temp file in the
// same directory, then rename over the old snapshot. Concurrent readers
// keep the old file or get the new one, never a torn write.
func (m *Model) Save(path string) error {
	m.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp model file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}
