// retrain.go - Feedback batch application with idempotent digests

package learning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
)

// Report summarizes one retrain run
type Report struct {
	RowsRead       int            `json:"rows_read"`
	RowsAccepted   int            `json:"rows_accepted"`
	Rejections     []Rejection    `json:"rejections,omitempty"`
	EntriesUpdated int            `json:"entries_updated"`
	ByField        map[string]int `json:"por_campo,omitempty"`
	ByCause        map[string]int `json:"por_causa,omitempty"`
	BatchDigest    string         `json:"batch_digest"`
	AlreadyApplied bool           `json:"already_applied"`
	ModelPath      string         `json:"model_path"`
}

// Retrain ingests the feedback CSV and folds the corrections into the
// probabilistic model. Re-running over the same feedback is a no-op: the
// batch digest is recorded in the model and checked before applying.
func Retrain(rc *common.RunContext, csvPath, modelPath string) (Report, error) {
	report := Report{ModelPath: modelPath}

	rows, rejections, err := ReadFeedback(csvPath)
	if err != nil {
		return report, err
	}
	report.RowsRead = len(rows) + len(rejections)
	report.RowsAccepted = len(rows)
	report.Rejections = rejections

	for _, rej := range rejections {
		rc.LogWarning("fila %d rechazada: %s", rej.Line, rej.Reason)
	}

	if len(rows) == 0 {
		rc.LogWarning("ningún feedback válido, modelo sin cambios")
		return report, nil
	}

	report.BatchDigest = batchDigest(rows)

	release, err := acquireLock(modelPath)
	if err != nil {
		return report, err
	}
	defer release()

	model, err := Load(modelPath)
	if err != nil {
		return report, err
	}

	if model.HasBatch(report.BatchDigest) {
		report.AlreadyApplied = true
		rc.LogInfo("lote %s ya aplicado, modelo sin cambios", report.BatchDigest[:12])
		return report, nil
	}

	report.ByField = map[string]int{}
	report.ByCause = map[string]int{}

	updated := map[string]bool{}
	for _, row := range rows {
		report.ByField[row.FieldName]++
		report.ByCause[string(row.Cause)]++
		key := EntryKey(row.TemplateID, row.FieldName, row.Cause)
		entry := model.Entries[key]
		entry.Weight += configs.MODEL_WEIGHT_STEP
		if entry.Weight > configs.MODEL_WEIGHT_MAX {
			entry.Weight = configs.MODEL_WEIGHT_MAX
		}
		entry.Samples++
		entry.LastSeen = time.Now()
		model.Entries[key] = entry
		updated[key] = true
	}
	report.EntriesUpdated = len(updated)

	model.AppliedBatches = append(model.AppliedBatches, report.BatchDigest)

	if err := model.Save(modelPath); err != nil {
		return report, err
	}

	rc.LogInfo("modelo actualizado: %d entradas tocadas por %d correcciones",
		report.EntriesUpdated, report.RowsAccepted)
	return report, nil
}

// batchDigest hashes the canonical content of the accepted rows. Row order
// in the CSV does not change the digest.
func batchDigest(rows []FeedbackRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join([]string{
			row.ImageID,
			row.FieldName,
			row.RawOutput,
			row.Corrected,
			string(row.Cause),
			row.Timestamp.UTC().Format(time.RFC3339),
			row.TemplateID,
		}, "\x1f"))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		fmt.Fprintln(h, line)
	}
	return hex.EncodeToString(h.Sum(nil))
}
