// classify.go - Payment receipt classification over recognized text

package classify

import (
	"fmt"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
	"github.com/pagomovil/comprobante-ocr/internal/textmatch"
)

// Keywords that payment receipts carry. Matching is fuzzy because the
// engine routinely garbles a character or two.
var receiptKeywords = []string{
	"pago",
	"transferencia",
	"comprobante",
	"operacion",
	"referencia",
	"monto",
	"banco",
	"fecha",
	"beneficiario",
	"exitosa",
	"bolivares",
	"cuenta",
	"telefono",
	"destino",
}

// Banking-specific markers, tallied separately for the verdict detail
var strongKeywords = map[string]bool{
	"transferencia": true,
	"comprobante":   true,
	"operacion":     true,
	"referencia":    true,
}

// Verdict is the classification decision for one document
type Verdict struct {
	IsReceipt       bool     `json:"is_receipt"`
	MatchedKeywords []string `json:"matched_keywords"`
	StrongMatches   int      `json:"strong_matches"`
	TextAreaRatio   float64  `json:"text_area_ratio"`
	Reason          string   `json:"reason,omitempty"`
}

// Classify decides whether the recognized document is a payment receipt.
// Rejection returns common.ErrNotAReceipt so callers can branch on it.
func Classify(rc *common.RunContext, result *ocr.Result, imgWidth, imgHeight int) (Verdict, error) {
	verdict := Verdict{
		TextAreaRatio: result.TextAreaRatio(imgWidth, imgHeight),
	}

	text := textmatch.Normalize(result.FullText)

	for _, keyword := range receiptKeywords {
		ok, sim := textmatch.ContainsFuzzy(text, keyword, configs.FUZZY_MATCH_THRESHOLD)
		if !ok {
			continue
		}
		verdict.MatchedKeywords = append(verdict.MatchedKeywords, keyword)
		if strongKeywords[keyword] {
			verdict.StrongMatches++
		}
		rc.LogInfo("palabra clave '%s' encontrada (%.0f%%)", keyword, sim*100)
	}

	// A nearly text-free image is a photo of something else, no matter
	// which words the engine hallucinated into it
	if verdict.TextAreaRatio < configs.MIN_TEXT_AREA_RATIO {
		verdict.Reason = "no_payment_receipt"
		rc.LogWarning("área de texto insuficiente: %.3f", verdict.TextAreaRatio)
		return verdict, fmt.Errorf("%w: text area %.3f below minimum", common.ErrNotAReceipt, verdict.TextAreaRatio)
	}

	if len(verdict.MatchedKeywords) < configs.MIN_RECEIPT_KEYWORDS {
		verdict.Reason = "no_payment_receipt"
		rc.LogWarning("solo %d palabras clave de recibo (mínimo %d)",
			len(verdict.MatchedKeywords), configs.MIN_RECEIPT_KEYWORDS)
		return verdict, fmt.Errorf("%w: %d keywords matched", common.ErrNotAReceipt, len(verdict.MatchedKeywords))
	}

	verdict.IsReceipt = true
	rc.LogInfo("documento aceptado como comprobante (%d palabras clave, %d fuertes)",
		len(verdict.MatchedKeywords), verdict.StrongMatches)
	return verdict, nil
}
