package template_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
	"github.com/pagomovil/comprobante-ocr/internal/template"
)

const banescoTemplate = `
id: pago_movil_banesco
banco: Banesco
prioridad: 10
huella:
  - banesco
  - pago movil
  - operacion realizada
campos:
  - nombre: monto
    anclas: [monto, "bs"]
    caja: {x: 360, y: 210, ancho: 420, alto: 70}
  - nombre: operacion
    anclas: [operacion]
`

var _ = Describe("Catalog", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "templates-test-*")
		Expect(err).NotTo(HaveOccurred())
		configs.TEMPLATES_DIR = dir
		template.InvalidateCatalog()
	})

	AfterEach(func() {
		os.RemoveAll(dir)
		configs.TEMPLATES_DIR = "templates"
		template.InvalidateCatalog()
	})

	It("loads and validates YAML templates", func() {
		Expect(os.WriteFile(filepath.Join(dir, "banesco.yaml"), []byte(banescoTemplate), 0o644)).To(Succeed())

		templates, err := template.LoadCatalog(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(templates).To(HaveLen(1))
		Expect(templates[0].ID).To(Equal("pago_movil_banesco"))
		Expect(templates[0].CoversField("monto")).To(BeTrue())
		Expect(templates[0].CoversField("fecha")).To(BeFalse())
	})

	It("returns an empty catalog when the directory is missing", func() {
		templates, err := template.LoadCatalog(filepath.Join(dir, "nope"))
		Expect(err).NotTo(HaveOccurred())
		Expect(templates).To(BeEmpty())
	})

	It("rejects a template whose field box has no area", func() {
		broken := `
id: roto
huella: [algo]
campos:
  - nombre: monto
    caja: {x: 10, y: 10, ancho: 0, alto: 40}
`
		Expect(os.WriteFile(filepath.Join(dir, "roto.yaml"), []byte(broken), 0o644)).To(Succeed())

		_, err := template.LoadCatalog(dir)
		Expect(err).To(HaveOccurred())
	})

	It("skips malformed templates when others load", func() {
		Expect(os.WriteFile(filepath.Join(dir, "banesco.yaml"), []byte(banescoTemplate), 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: [not valid"), 0o644)).To(Succeed())

		templates, err := template.LoadCatalog(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(templates).To(HaveLen(1))
	})
})

var _ = Describe("Resolve", func() {
	var (
		dir string
		rc  *common.RunContext
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "resolve-test-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(os.WriteFile(filepath.Join(dir, "banesco.yaml"), []byte(banescoTemplate), 0o644)).To(Succeed())
		configs.TEMPLATES_DIR = dir
		template.InvalidateCatalog()
		rc = common.NewRunContext("test")
	})

	AfterEach(func() {
		os.RemoveAll(dir)
		configs.TEMPLATES_DIR = "templates"
		template.InvalidateCatalog()
	})

	targetFor := func(res template.Resolution, name string) template.FieldTarget {
		for _, t := range res.Targets {
			if t.Field.Name == name {
				return t
			}
		}
		Fail("no target for field " + name)
		return template.FieldTarget{}
	}

	It("assigns template targets for declared fields only", func() {
		result := &ocr.Result{FullText: "Banesco Pago Móvil operación realizada con éxito"}

		resolution, err := template.Resolve(rc, result)
		Expect(err).NotTo(HaveOccurred())

		Expect(resolution.Template).NotTo(BeNil())
		Expect(resolution.Method).To(Equal("plantilla_pago_movil_banesco"))

		Expect(targetFor(resolution, "monto").Kind).To(Equal(template.TargetTemplate))
		Expect(targetFor(resolution, "operacion").Kind).To(Equal(template.TargetTemplate))
		// Fields the template does not declare fall back to generic ZOI
		Expect(targetFor(resolution, "fecha").Kind).To(Equal(template.TargetZOI))
		Expect(targetFor(resolution, "banco_completo").Kind).To(Equal(template.TargetZOI))
	})

	It("carries the template's fixed box onto the target", func() {
		result := &ocr.Result{FullText: "Banesco Pago Móvil operación realizada"}

		resolution, err := template.Resolve(rc, result)
		Expect(err).NotTo(HaveOccurred())

		monto := targetFor(resolution, "monto")
		Expect(monto.Box).NotTo(BeNil())
		Expect(*monto.Box).To(Equal(template.Box{X: 360, Y: 210, Width: 420, Height: 70}))
		// Declared without a box, resolved without one
		Expect(targetFor(resolution, "operacion").Box).To(BeNil())
		Expect(targetFor(resolution, "fecha").Box).To(BeNil())
	})

	It("covers every universal field exactly once", func() {
		result := &ocr.Result{FullText: "Banesco Pago Móvil operación realizada"}

		resolution, err := template.Resolve(rc, result)
		Expect(err).NotTo(HaveOccurred())

		seen := map[string]int{}
		for _, target := range resolution.Targets {
			seen[target.Field.Name]++
		}
		for _, field := range template.DefaultFields() {
			Expect(seen[field.Name]).To(Equal(1), "field %s", field.Name)
		}
	})

	It("falls back to generic ZOI when no fingerprint matches", func() {
		result := &ocr.Result{FullText: "Comprobante de transferencia de otro banco cualquiera"}

		resolution, err := template.Resolve(rc, result)
		Expect(err).NotTo(HaveOccurred())

		Expect(resolution.Template).To(BeNil())
		Expect(resolution.Method).To(Equal("zoi_generica"))
		for _, target := range resolution.Targets {
			Expect(target.Kind).To(Equal(template.TargetZOI))
		}
	})

	It("keeps mandatory flags from the universal defaults", func() {
		result := &ocr.Result{FullText: "Banesco Pago Móvil operación realizada"}

		resolution, err := template.Resolve(rc, result)
		Expect(err).NotTo(HaveOccurred())

		Expect(targetFor(resolution, "monto").Field.Mandatory).To(BeTrue())
		Expect(targetFor(resolution, "concepto").Field.Mandatory).To(BeFalse())
	})
})
