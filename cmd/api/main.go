// main.go - The entry point and router setup.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagomovil/comprobante-ocr/configs"
	"github.com/pagomovil/comprobante-ocr/internal/api"
	"github.com/pagomovil/comprobante-ocr/internal/ocr"
	"github.com/pagomovil/comprobante-ocr/internal/pipeline"
	"github.com/pagomovil/comprobante-ocr/internal/storage"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()

	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Create the UPLOAD_DIR folder if it doesn't exist
	if err := os.MkdirAll(configs.UPLOAD_DIR, 0755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	// Step 2: Initialize the recognition engine and optional archive
	engine, err := ocr.CreateEngine()
	if err != nil {
		log.Fatalf("Failed to create recognition engine: %v", err)
	}

	archive, err := storage.NewArchive()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer archive.Close()

	pipe, err := pipeline.New(engine, archive)
	if err != nil {
		log.Fatalf("Failed to assemble pipeline: %v", err)
	}

	// Step 3: Initialize the Gin router
	router := gin.Default()

	// CORS middleware, configure allowed origins for production
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", configs.ALLOWED_ORIGINS)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Step 4: Register the API routes
	server := api.NewServer(pipe, archive)
	server.RegisterRoutes(router)

	// Step 5: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   2 * time.Minute, // OCR on a large photo can take a while
		MaxHeaderBytes: 1 << 20,
	}

	// Step 6: Start serving and wait for shutdown signal
	go func() {
		log.Printf("🚀 comprobante-ocr API listening on :%s", configs.PORT)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Forced shutdown: %v", err)
	}
	log.Println("Server exited")
}
