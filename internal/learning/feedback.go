// feedback.go - Strict manual feedback CSV ingestion

package learning

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/template"
)

// FeedbackRow is one validated manual correction
type FeedbackRow struct {
	ImageID    string
	FieldName  string
	RawOutput  string
	Corrected  string
	Cause      RootCause
	Timestamp  time.Time
	TemplateID string // "none" when the operator did not record one
}

// Rejection records a discarded row with its reason
type Rejection struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

var requiredColumns = []string{
	"id_unico_imagen",
	"campo_nombre",
	"raw_ocr_output",
	"valor_corregido",
	"causa_raiz",
	"timestamp_feedback",
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadFeedback parses the feedback CSV under a strict schema. Malformed
// rows are rejected individually; a malformed header rejects the file.
// Rejections wrap common.ErrFeedbackRejected so callers can count them.
func ReadFeedback(path string) ([]FeedbackRow, []Rejection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open feedback csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unreadable header: %v", common.ErrFeedbackRejected, err)
	}

	index := map[string]int{}
	for i, col := range header {
		index[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("%w: missing column %q", common.ErrFeedbackRejected, col)
		}
	}
	templateCol, hasTemplateCol := index["plantilla_id"]

	rows := []FeedbackRow{}
	rejections := []Rejection{}
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rejections = append(rejections, Rejection{Line: line, Reason: err.Error()})
			continue
		}

		row, err := parseRow(record, index, templateCol, hasTemplateCol)
		if err != nil {
			rejections = append(rejections, Rejection{Line: line, Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}

	return rows, rejections, nil
}

func parseRow(record []string, index map[string]int, templateCol int, hasTemplateCol bool) (FeedbackRow, error) {
	get := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := FeedbackRow{
		ImageID:    get("id_unico_imagen"),
		FieldName:  get("campo_nombre"),
		RawOutput:  get("raw_ocr_output"),
		Corrected:  get("valor_corregido"),
		TemplateID: "none",
	}

	if row.ImageID == "" {
		return row, fmt.Errorf("%w: empty id_unico_imagen", common.ErrFeedbackRejected)
	}
	if _, known := template.DefaultFieldByName(row.FieldName); !known {
		return row, fmt.Errorf("%w: unknown field %q", common.ErrFeedbackRejected, row.FieldName)
	}

	cause := RootCause(get("causa_raiz"))
	if !KnownCauses[cause] {
		return row, fmt.Errorf("%w: unknown root cause %q", common.ErrFeedbackRejected, string(cause))
	}
	row.Cause = cause

	ts := get("timestamp_feedback")
	var parsed time.Time
	var err error
	for _, layout := range timestampLayouts {
		parsed, err = time.Parse(layout, ts)
		if err == nil {
			break
		}
	}
	if err != nil {
		return row, fmt.Errorf("%w: bad timestamp %q", common.ErrFeedbackRejected, ts)
	}
	row.Timestamp = parsed

	if hasTemplateCol && templateCol < len(record) {
		if t := strings.TrimSpace(record[templateCol]); t != "" {
			row.TemplateID = t
		}
	}

	return row, nil
}
