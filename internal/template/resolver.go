// resolver.go - Template fingerprint matching and field target planning

package template

import (
	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
	"github.com/pagomovil/comprobante-ocr/internal/textmatch"
)

// TargetKind says which extraction plan owns a field
type TargetKind string

const (
	// TargetTemplate means a matched template declares the field, pinned
	// to a fixed box and carrying issuer-specific anchors
	TargetTemplate TargetKind = "plantilla"
	// TargetZOI means the field falls back to generic zone-of-interest
	// search around universal anchor synonyms
	TargetZOI TargetKind = "zoi"
)

// FieldTarget is the resolved extraction plan for one field. Box is the
// template's fixed region, nil for ZOI targets and for template fields
// declared without one.
type FieldTarget struct {
	Field FieldSpec
	Kind  TargetKind
	Box   *Box
}

// Resolution is the full target plan for one document
type Resolution struct {
	Template *Template
	Score    float64
	Targets  []FieldTarget
	Method   string // "plantilla_<id>" or "zoi_generica"
}

// Resolve matches the recognized text against the catalog fingerprints and
// plans a target per universal field. Fields a matched template declares
// use the template plan; everything else goes through generic ZOI. A field
// never gets both.
func Resolve(rc *common.RunContext, result *ocr.Result) (Resolution, error) {
	templates, err := GetCatalog()
	if err != nil {
		return Resolution{}, err
	}

	text := textmatch.Normalize(result.FullText)

	var best *Template
	bestScore := 0.0

	rc.StartSubStep("fingerprint_match")
	for i := range templates {
		score := fingerprintScore(text, &templates[i])
		if score < configs.MIN_FINGERPRINT_MATCH {
			continue
		}
		// Catalog order already encodes priority, so strict greater
		// keeps the higher-priority template on equal scores
		if score > bestScore {
			bestScore = score
			best = &templates[i]
		}
	}
	rc.EndSubStep("")

	resolution := Resolution{Template: best, Score: bestScore}

	if best != nil {
		resolution.Method = "plantilla_" + best.ID
		rc.LogInfo("plantilla '%s' reconocida (huella %.0f%%)", best.ID, bestScore*100)
	} else {
		resolution.Method = "zoi_generica"
		rc.LogInfo("ninguna plantilla coincide, extracción por ZOI genérica")
	}

	for _, field := range DefaultFields() {
		if best != nil && best.CoversField(field.Name) {
			spec := templateField(best, field)
			resolution.Targets = append(resolution.Targets, FieldTarget{
				Field: spec,
				Kind:  TargetTemplate,
				Box:   spec.Caja,
			})
			continue
		}
		resolution.Targets = append(resolution.Targets, FieldTarget{
			Field: field,
			Kind:  TargetZOI,
		})
	}

	return resolution, nil
}

// fingerprintScore is the fraction of fingerprint strings found in the text
func fingerprintScore(text string, tmpl *Template) float64 {
	if len(tmpl.Huella) == 0 {
		return 0
	}
	matched := 0
	for _, mark := range tmpl.Huella {
		normalized := textmatch.Normalize(mark)
		if ok, _ := textmatch.ContainsFuzzy(text, normalized, configs.FUZZY_MATCH_THRESHOLD); ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tmpl.Huella))
}

// templateField merges a template's field declaration with the universal
// defaults, so a template only needs to override what differs.
func templateField(tmpl *Template, defaults FieldSpec) FieldSpec {
	for _, campo := range tmpl.Campos {
		if campo.Name != defaults.Name {
			continue
		}
		spec := defaults
		if len(campo.Anchors) > 0 {
			spec.Anchors = campo.Anchors
		}
		if campo.Kind != "" {
			spec.Kind = campo.Kind
		}
		if campo.Mandatory {
			spec.Mandatory = true
		}
		if campo.Multiword {
			spec.Multiword = true
		}
		spec.Caja = campo.Caja
		return spec
	}
	return defaults
}
