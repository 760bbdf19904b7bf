// fields.go - Universal field catalog for payment receipts

package template

// FieldKind drives which value patterns the extractor accepts
type FieldKind string

const (
	KindAmount    FieldKind = "monto"
	KindDate      FieldKind = "fecha"
	KindReference FieldKind = "referencia"
	KindPhone     FieldKind = "telefono"
	KindIdentity  FieldKind = "identificacion"
	KindBank      FieldKind = "banco"
	KindFreeText  FieldKind = "texto"
)

// Box is a fixed region in preprocessed-image pixel space. Templates pin
// a field to the place the issuer always prints it.
type Box struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"ancho" json:"ancho"`
	Height int `yaml:"alto" json:"alto"`
}

func (b Box) Right() int  { return b.X + b.Width }
func (b Box) Bottom() int { return b.Y + b.Height }

// Overlaps reports whether a token rectangle intersects the box
func (b Box) Overlaps(x, y, width, height int) bool {
	return x < b.Right() && x+width > b.X &&
		y < b.Bottom() && y+height > b.Y
}

// FieldSpec describes one extractable field
type FieldSpec struct {
	Name      string    `yaml:"nombre"`
	Kind      FieldKind `yaml:"tipo"`
	Anchors   []string  `yaml:"anclas"`
	Mandatory bool      `yaml:"obligatorio"`
	Multiword bool      `yaml:"multi_palabra"`
	// Generalized reports successful extraction even when no anchor
	// was found, using the field's value pattern alone
	Generalized bool `yaml:"generalizado"`
	// Caja pins the field to a fixed region; only templates declare it,
	// the universal defaults are positionless
	Caja *Box `yaml:"caja"`
}

// DefaultFields returns the universal field set with the anchor synonyms
// seen across Venezuelan banking receipts. Templates override anchors
// per issuer; this list is what generic ZOI extraction falls back to.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{
			Name:        "monto",
			Kind:        KindAmount,
			Anchors:     []string{"monto", "total", "importe", "bs", "cantidad"},
			Mandatory:   true,
			Generalized: true,
		},
		{
			Name:        "fecha",
			Kind:        KindDate,
			Anchors:     []string{"fecha", "dia", "emision"},
			Mandatory:   true,
			Generalized: true,
		},
		{
			Name:        "operacion",
			Kind:        KindReference,
			Anchors:     []string{"operacion", "referencia", "comprobante", "nro", "numero"},
			Mandatory:   true,
			Generalized: true,
		},
		{
			Name:        "identificacion",
			Kind:        KindIdentity,
			Anchors:     []string{"identificacion", "cedula", "rif", "ci", "documento"},
			Generalized: true,
		},
		{
			Name:    "origen_numero",
			Kind:    KindPhone,
			Anchors: []string{"origen", "desde", "emisor", "remitente"},
		},
		{
			Name:    "destino_numero",
			Kind:    KindPhone,
			Anchors: []string{"destino", "telefono", "beneficiario", "receptor"},
		},
		{
			Name:      "banco_completo",
			Kind:      KindBank,
			Anchors:   []string{"banco", "entidad", "receptor"},
			Multiword: true,
		},
		{
			Name:      "concepto",
			Kind:      KindFreeText,
			Anchors:   []string{"concepto", "descripcion", "motivo", "detalle"},
			Multiword: true,
		},
	}
}

// DefaultFieldByName looks up a universal field, second return false when unknown
func DefaultFieldByName(name string) (FieldSpec, bool) {
	for _, f := range DefaultFields() {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}
