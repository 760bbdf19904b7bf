// main.go - CLI entry point: fold manual feedback into the model

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/learning"
)

func main() {
	fs := ff.NewFlagSet("retrain")
	var (
		csvPath   = fs.StringLong("feedback", "", "CSV de retroalimentación manual (por defecto el configurado)")
		modelPath = fs.StringLong("modelo", "", "Ruta del modelo probabilístico (por defecto el configurado)")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("COMPROBANTE_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	configs.LoadConfig()
	if *csvPath == "" {
		*csvPath = configs.FEEDBACK_CSV_PATH
	}
	if *modelPath == "" {
		*modelPath = configs.MODEL_PATH
	}

	rc := common.NewRunContext("retrain")
	rc.StartStep("retrain_model")

	report, err := learning.Retrain(rc, *csvPath, *modelPath)
	if err != nil {
		rc.EndStep("failed", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	rc.EndStep("success", nil)

	output, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(output))
}
