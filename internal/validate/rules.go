// rules.go - Per-field business rules

package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/template"
)

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"2006-01-02",
}

// checkRule validates an extracted value against the rules for its kind.
// nil means the value is acceptable.
func checkRule(kind template.FieldKind, value string) error {
	switch kind {
	case template.KindAmount:
		return checkAmount(value)
	case template.KindDate:
		return checkDate(value)
	case template.KindReference:
		if len(value) < 6 {
			return fmt.Errorf("referencia demasiado corta: %q", value)
		}
		return nil
	default:
		return nil
	}
}

// checkAmount requires a parseable positive amount
func checkAmount(value string) error {
	// "1.234,50" to decimal form
	normalized := strings.ReplaceAll(value, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")

	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return fmt.Errorf("monto no numérico: %q", value)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("monto no positivo: %s", amount)
	}
	return nil
}

// checkDate requires a real calendar date that is not in the future beyond
// the configured tolerance. Receipts for tomorrow do not exist.
func checkDate(value string) error {
	var parsed time.Time
	var err error

	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, value)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("fecha no reconocible: %q", value)
	}

	limit := time.Now().AddDate(0, 0, configs.DATE_FUTURE_TOLERANCE)
	if parsed.After(limit) {
		return fmt.Errorf("fecha futura: %s", parsed.Format("02/01/2006"))
	}
	return nil
}

// digitsOf keeps only the digit runs of a value, for cross-field comparison
func digitsOf(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
