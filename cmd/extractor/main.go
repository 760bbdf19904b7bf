// main.go - CLI entry point: extract fields from one receipt image

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
	"github.com/pagomovil/comprobante-ocr/internal/pipeline"
	"github.com/pagomovil/comprobante-ocr/internal/storage"
)

func main() {
	fs := ff.NewFlagSet("extractor")
	var (
		imagePath = fs.StringLong("imagen", "", "Ruta del comprobante a procesar")
		debug     = fs.BoolLong("debug", "Guardar artefactos de depuración")
		quiet     = fs.BoolLong("silencioso", "Suprimir logs de progreso, solo JSON en stdout")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("COMPROBANTE_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *imagePath == "" {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: --imagen es obligatorio")
		os.Exit(1)
	}

	configs.LoadConfig()
	if *debug {
		configs.SAVE_DEBUG_ARTIFACTS = true
	}
	if *quiet {
		log.SetOutput(os.Stderr)
	}

	imageBytes, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: no se pudo leer %s: %v\n", *imagePath, err)
		os.Exit(1)
	}

	engine, err := ocr.CreateEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	archive, err := storage.NewArchive()
	if err != nil {
		// Archiving is best-effort in CLI mode
		log.Printf("⚠️  archivo histórico deshabilitado: %v", err)
		archive = nil
	}
	defer archive.Close()

	pipe, err := pipeline.New(engine, archive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	imageID := filepath.Base(*imagePath)
	result, err := pipe.Run(context.Background(), imageID, imageBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(output))

	os.Exit(result.ExitCode())
}
