// patterns.go - Value patterns per field kind

package extract

import (
	"regexp"
	"strings"

	"github.com/pagomovil/comprobante-ocr/internal/template"
)

var (
	// Venezuelan amount format: thousands with dots, decimals with comma
	amountRe = regexp.MustCompile(`^(?:bs\.?\s*)?\d{1,3}(?:\.\d{3})*,\d{2}$|^\d+,\d{2}$|^\d+\.\d{2}$`)

	// dd/mm/yyyy, dd-mm-yyyy and ISO yyyy-mm-dd, two-digit years allowed
	dateRe = regexp.MustCompile(`^\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}$|^\d{4}-\d{2}-\d{2}$`)

	// Operation and reference numbers are plain digit runs
	referenceRe = regexp.MustCompile(`^\d{6,20}$`)

	// Venezuelan mobile numbers: 0412, 0414, 0416, 0424, 0426 prefixes
	phoneRe = regexp.MustCompile(`^0\d{3}[\-.]?\d{7}$|^\*{4,8}\d{4}$`)

	// Cedula or RIF: optional V/E/J/G prefix then the document digits
	identityRe = regexp.MustCompile(`^[VEJGvejg][\-.]?\d{6,9}$|^\d{6,9}$`)
)

// matchesKind reports whether a token's text looks like a value for the kind.
// Bank and free text fields accept any word; their selection is positional.
func matchesKind(kind template.FieldKind, text string) bool {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return false
	}

	switch kind {
	case template.KindAmount:
		return amountRe.MatchString(text)
	case template.KindDate:
		return dateRe.MatchString(text)
	case template.KindReference:
		return referenceRe.MatchString(strings.TrimPrefix(text, "#"))
	case template.KindPhone:
		return phoneRe.MatchString(text)
	case template.KindIdentity:
		return identityRe.MatchString(text)
	case template.KindBank, template.KindFreeText:
		return len(text) >= 2
	default:
		return false
	}
}

// cleanValue strips anchor punctuation the engine tends to glue onto values
func cleanValue(kind template.FieldKind, text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, ":;|")

	if kind == template.KindAmount {
		lower := strings.ToLower(text)
		lower = strings.TrimPrefix(lower, "bs.")
		lower = strings.TrimPrefix(lower, "bs")
		return strings.TrimSpace(lower)
	}
	if kind == template.KindReference {
		return strings.TrimPrefix(text, "#")
	}
	return text
}
