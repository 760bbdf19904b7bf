// extract.go - Two-phase field extraction over positioned tokens

package extract

import (
	"sort"
	"strings"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
	"github.com/pagomovil/comprobante-ocr/internal/template"
	"github.com/pagomovil/comprobante-ocr/internal/textmatch"
)

// FieldResult is the extraction outcome for one field
type FieldResult struct {
	Value      string      `json:"value"`
	Confidence float64     `json:"confidence"`
	Successful bool        `json:"extraction_successful"`
	Method     string      `json:"method,omitempty"` // "anclada" or "generalizada"
	Tokens     []ocr.Token `json:"-"`
}

// Run extracts every resolved field target from the token stream. Phase A
// searches anchored zones of interest; fields marked generalized fall back
// to phase B pattern scans when no anchor yields a value. A field with no
// value comes back unsuccessful with confidence 0, never omitted.
func Run(rc *common.RunContext, tokens []ocr.Token, resolution template.Resolution) map[string]FieldResult {
	results := make(map[string]FieldResult, len(resolution.Targets))

	rc.StartSubStep("anchor_search")
	anchorHits := findAnchors(tokens, resolution.Targets)
	rc.EndSubStep("")

	rc.StartSubStep("zoi_projection")
	for _, target := range resolution.Targets {
		field := target.Field

		if target.Kind == template.TargetTemplate && target.Box != nil {
			if result, found := extractFromBox(tokens, field, *target.Box); found {
				result.Method = "caja_fija"
				results[field.Name] = result
				rc.LogInfo("campo '%s' extraído de caja fija: %s (%.0f%%)",
					field.Name, result.Value, result.Confidence)
				continue
			}
		}

		if hit, ok := anchorHits[field.Name]; ok {
			if result, found := extractFromZone(tokens, field, hit); found {
				result.Method = "anclada"
				results[field.Name] = result
				rc.LogInfo("campo '%s' extraído por ancla '%s': %s (%.0f%%)",
					field.Name, hit.Text, result.Value, result.Confidence)
				continue
			}
		}

		if field.Generalized {
			if result, found := extractGeneralized(tokens, field, results); found {
				result.Method = "generalizada"
				results[field.Name] = result
				rc.LogInfo("campo '%s' extraído sin ancla: %s (%.0f%%)",
					field.Name, result.Value, result.Confidence)
				continue
			}
		}

		results[field.Name] = FieldResult{Successful: false, Confidence: 0}
		rc.LogWarning("campo '%s' no detectado", field.Name)
	}
	rc.EndSubStep("")

	return results
}

// findAnchors locates the best anchor token per field. Anchors below the
// confidence floor are ignored; a garbled anchor must not seed a zone.
func findAnchors(tokens []ocr.Token, targets []template.FieldTarget) map[string]ocr.Token {
	hits := make(map[string]ocr.Token)
	best := make(map[string]float64)

	for _, target := range targets {
		for _, token := range tokens {
			if token.Confidence < configs.ANCHOR_MIN_CONFIDENCE {
				continue
			}
			word := textmatch.Normalize(token.Text)
			if word == "" {
				continue
			}
			for _, anchor := range target.Field.Anchors {
				normalized := textmatch.Normalize(anchor)
				sim := textmatch.Similarity(normalized, word)
				if sim < configs.FUZZY_MATCH_THRESHOLD {
					continue
				}
				if sim > best[target.Field.Name] {
					best[target.Field.Name] = sim
					hits[target.Field.Name] = token
				}
			}
		}
	}

	return hits
}

// extractFromBox collects the tokens overlapping a template's fixed box,
// reading order, with label tokens filtered out so an anchor printed
// inside the box is never taken as the value.
func extractFromBox(tokens []ocr.Token, field template.FieldSpec, box template.Box) (FieldResult, bool) {
	inside := []ocr.Token{}
	for _, token := range tokens {
		if !box.Overlaps(token.X, token.Y, token.Width, token.Height) {
			continue
		}
		if isAnchorToken(token, field.Anchors) {
			continue
		}
		inside = append(inside, token)
	}

	sort.Slice(inside, func(i, j int) bool {
		if inside[i].Y != inside[j].Y {
			return inside[i].Y < inside[j].Y
		}
		return inside[i].X < inside[j].X
	})

	return pickValue(inside, field)
}

// isAnchorToken reports whether a token is one of the field's labels
func isAnchorToken(token ocr.Token, anchors []string) bool {
	word := textmatch.Normalize(token.Text)
	if word == "" {
		return false
	}
	for _, anchor := range anchors {
		if textmatch.Similarity(textmatch.Normalize(anchor), word) >= configs.FUZZY_MATCH_THRESHOLD {
			return true
		}
	}
	return false
}

// extractFromZone projects the zone of interest off the anchor and picks
// value tokens inside it. Same line to the right first, the band below as
// fallback for stacked label layouts.
func extractFromZone(tokens []ocr.Token, field template.FieldSpec, anchor ocr.Token) (FieldResult, bool) {
	sameLine := []ocr.Token{}
	below := []ocr.Token{}

	for _, token := range tokens {
		if token == anchor {
			continue
		}

		onLine := abs(token.CenterY()-anchor.CenterY()) <= configs.VALUE_LINE_TOLERANCE &&
			token.X >= anchor.Right() &&
			token.X <= anchor.Right()+configs.ZOI_MARGIN_RIGHT

		inBand := token.Y > anchor.Bottom() &&
			token.Y <= anchor.Bottom()+configs.ZOI_MARGIN_BELOW &&
			abs(token.X-anchor.X) <= configs.ZOI_MARGIN_RIGHT

		if onLine {
			sameLine = append(sameLine, token)
		} else if inBand {
			below = append(below, token)
		}
	}

	sort.Slice(sameLine, func(i, j int) bool { return sameLine[i].X < sameLine[j].X })
	sort.Slice(below, func(i, j int) bool {
		if below[i].Y != below[j].Y {
			return below[i].Y < below[j].Y
		}
		return below[i].X < below[j].X
	})

	if result, ok := pickValue(sameLine, field); ok {
		return result, true
	}
	return pickValue(below, field)
}

// pickValue selects the value tokens from an ordered candidate zone
func pickValue(zone []ocr.Token, field template.FieldSpec) (FieldResult, bool) {
	if field.Multiword {
		return pickMultiword(zone, field)
	}

	for _, token := range zone {
		if matchesKind(field.Kind, token.Text) {
			return FieldResult{
				Value:      cleanValue(field.Kind, token.Text),
				Confidence: token.Confidence,
				Successful: true,
				Tokens:     []ocr.Token{token},
			}, true
		}
	}
	return FieldResult{}, false
}

// pickMultiword concatenates consecutive plausible tokens up to the bound
func pickMultiword(zone []ocr.Token, field template.FieldSpec) (FieldResult, bool) {
	words := []string{}
	picked := []ocr.Token{}
	var confSum float64

	for _, token := range zone {
		if !matchesKind(field.Kind, token.Text) {
			break
		}
		words = append(words, cleanValue(field.Kind, token.Text))
		picked = append(picked, token)
		confSum += token.Confidence
		if len(words) >= configs.MAX_VALUE_TOKENS {
			break
		}
	}

	if len(words) == 0 {
		return FieldResult{}, false
	}

	return FieldResult{
		Value:      strings.Join(words, " "),
		Confidence: confSum / float64(len(picked)),
		Successful: true,
		Tokens:     picked,
	}, true
}

// candidate is one value hypothesis in the generalized scan, either a
// single token or a same-line join of consecutive tokens
type candidate struct {
	text   string
	conf   float64
	tokens []ocr.Token
}

// extractGeneralized scans the whole token stream by value pattern alone.
// Split values are recovered by joining up to three consecutive tokens on
// the same line ("Bs." "1.234,50", halves of an operation number).
// Disambiguation heuristics: the largest amount is the payment total, the
// longest digit run is the operation number. Values already claimed by
// another field are skipped.
func extractGeneralized(tokens []ocr.Token, field template.FieldSpec, done map[string]FieldResult) (FieldResult, bool) {
	claimed := map[string]bool{}
	for _, r := range done {
		if r.Successful {
			claimed[r.Value] = true
		}
	}

	var best *candidate
	bestScore := -1.0

	for _, cand := range generalizedCandidates(tokens, field.Kind) {
		value := cleanValue(field.Kind, cand.text)
		if claimed[value] {
			continue
		}

		score := 0.0
		switch field.Kind {
		case template.KindAmount:
			score = amountMagnitude(value)
		case template.KindReference:
			score = float64(len(value))
		default:
			score = cand.conf
		}

		if score > bestScore {
			bestScore = score
			c := cand
			best = &c
		}
	}

	if best == nil {
		return FieldResult{}, false
	}

	return FieldResult{
		Value:      cleanValue(field.Kind, best.text),
		Confidence: best.conf,
		Successful: true,
		Tokens:     best.tokens,
	}, true
}

// generalizedCandidates yields every token and every same-line run of up
// to three consecutive tokens whose text matches the kind's pattern.
// Digit kinds are also tried glued together, since the engine splits long
// numbers at its own whim.
func generalizedCandidates(tokens []ocr.Token, kind template.FieldKind) []candidate {
	ordered := make([]ocr.Token, len(tokens))
	copy(ordered, tokens)
	sort.Slice(ordered, func(i, j int) bool {
		if abs(ordered[i].CenterY()-ordered[j].CenterY()) > configs.VALUE_LINE_TOLERANCE {
			return ordered[i].Y < ordered[j].Y
		}
		return ordered[i].X < ordered[j].X
	})

	var out []candidate
	for i := range ordered {
		run := []ocr.Token{ordered[i]}
		confSum := ordered[i].Confidence

		for length := 1; length <= configs.MAX_VALUE_TOKENS; length++ {
			joined := joinTexts(run, " ")
			if matchesKind(kind, joined) {
				out = append(out, candidate{text: joined, conf: confSum / float64(length), tokens: append([]ocr.Token(nil), run...)})
			} else if length > 1 && (kind == template.KindReference || kind == template.KindAmount) {
				glued := joinTexts(run, "")
				if matchesKind(kind, glued) {
					out = append(out, candidate{text: glued, conf: confSum / float64(length), tokens: append([]ocr.Token(nil), run...)})
				}
			}

			next := i + length
			if next >= len(ordered) {
				break
			}
			if abs(ordered[next].CenterY()-run[length-1].CenterY()) > configs.VALUE_LINE_TOLERANCE {
				break
			}
			run = append(run, ordered[next])
			confSum += ordered[next].Confidence
		}
	}
	return out
}

func joinTexts(tokens []ocr.Token, sep string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Text
	}
	return strings.Join(parts, sep)
}

// amountMagnitude parses "1.234,50" into a comparable float
func amountMagnitude(value string) float64 {
	normalized := strings.ReplaceAll(value, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")

	var result float64
	var fraction float64 = 0.1
	afterPoint := false
	for _, r := range normalized {
		switch {
		case r >= '0' && r <= '9':
			if afterPoint {
				result += float64(r-'0') * fraction
				fraction /= 10
			} else {
				result = result*10 + float64(r-'0')
			}
		case r == '.':
			afterPoint = true
		}
	}
	return result
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
