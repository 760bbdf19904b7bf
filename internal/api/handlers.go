// handlers.go - HTTP handlers for receipt extraction and retraining

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/common"
	"github.com/pagomovil/comprobante-ocr/internal/learning"
	"github.com/pagomovil/comprobante-ocr/internal/pipeline"
	"github.com/pagomovil/comprobante-ocr/internal/ratelimit"
	"github.com/pagomovil/comprobante-ocr/internal/storage"
	"github.com/pagomovil/comprobante-ocr/internal/template"
)

// Server holds the shared state behind the HTTP handlers
type Server struct {
	pipe    *pipeline.Pipeline
	archive *storage.Archive
	// Tesseract is CPU-bound; the semaphore keeps concurrent runs at
	// the configured bound while extra requests wait in line
	sem *semaphore.Weighted
}

// NewServer creates the handler state
func NewServer(pipe *pipeline.Pipeline, archive *storage.Archive) *Server {
	return &Server{
		pipe:    pipe,
		archive: archive,
		sem:     semaphore.NewWeighted(configs.MAX_CONCURRENT),
	}
}

// RegisterRoutes wires the API routes onto the router
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) { c.String(200, "ok") })
	router.GET("/health", s.HealthHandler)
	router.POST("/api/v1/extraer-comprobante", s.ExtractHandler)
	router.POST("/api/v1/reentrenar", s.RetrainHandler)
	router.GET("/api/v1/plantillas", s.TemplatesHandler)
	router.GET("/api/v1/historial", s.HistoryHandler)
}

// HealthHandler reports service liveness
func (s *Server) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "comprobante-ocr",
		"version": "1.0.0",
	})
}

// ExtractHandler accepts a receipt image upload and returns the
// extraction envelope. The HTTP status reflects transport problems only;
// extraction verdicts live inside the envelope.
func (s *Server) ExtractHandler(c *gin.Context) {
	if !ratelimit.AllowSubmission() {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   "demasiadas solicitudes, intente de nuevo en unos segundos",
		})
		return
	}

	fileHeader, err := c.FormFile("imagen")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "falta el archivo 'imagen' en el formulario",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no se pudo abrir el archivo subido",
		})
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "no se pudo leer el archivo subido",
		})
		return
	}

	ctx := c.Request.Context()
	if err := s.sem.Acquire(ctx, 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "solicitud cancelada en espera de capacidad",
		})
		return
	}
	defer s.sem.Release(1)

	imageID := uuid.New().String()
	result, err := s.pipe.Run(ctx, imageID, imageBytes)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidImage):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "la imagen no es válida o está corrupta",
			})
		case errors.Is(err, common.ErrRecognitionUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "motor de reconocimiento no disponible",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// RetrainHandler runs the feedback ingestion and model update
func (s *Server) RetrainHandler(c *gin.Context) {
	rc := common.NewRunContext("retrain")
	rc.StartStep("retrain_model")

	report, err := learning.Retrain(rc, configs.FEEDBACK_CSV_PATH, configs.MODEL_PATH)
	if err != nil {
		rc.EndStep("failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
			"report":  report,
		})
		return
	}
	rc.EndStep("success", nil)

	if err := s.pipe.ReloadModel(); err != nil {
		rc.LogWarning("modelo actualizado pero no recargado: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// TemplatesHandler lists the loaded template catalog
func (s *Server) TemplatesHandler(c *gin.Context) {
	templates, err := template.GetCatalog()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"plantillas": templates,
	})
}

// HistoryHandler lists recent archived runs, empty when archiving is off
func (s *Server) HistoryHandler(c *gin.Context) {
	records, err := s.archive.RecentRuns(c.Request.Context(), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	if records == nil {
		records = []storage.RunRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"corridas": records,
	})
}
