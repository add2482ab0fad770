// Package main is the entry point for the PDF Analyzer host bridge.
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

	"github.com/Shimizu-Technology/pdf-analyzer/internal/config"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/handlers"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/router"
	pdfservice "github.com/Shimizu-Technology/pdf-analyzer/internal/services/pdf"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/summary"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/services/worker"
	"github.com/Shimizu-Technology/pdf-analyzer/internal/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 PDF Analyzer bridge %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: addr=%s, gin_mode=%s, locale=%s", cfg.Addr(), cfg.GinMode, cfg.Locale)
	log.Printf("🔧 Worker URL: %s", cfg.PDFWorkerURL)
	if cfg.MaxUploadBytes > 0 {
		log.Printf("📏 Upload limit: %d MB", cfg.MaxUploadBytes>>20)
	} else {
		log.Println("⚠️  Upload limit disabled (MAX_UPLOAD_MB=0)")
	}
	if cfg.StrictPageBounds {
		log.Println("🔒 Strict page bounds: out-of-range pages are errors")
	}

	gin.SetMode(cfg.GinMode)

	// Step 2: Create Services
	pipeline, err := pdfservice.NewPipeline(pdfservice.Options{
		WorkerURL:        cfg.PDFWorkerURL,
		StrictValidation: cfg.StrictValidation,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize PDF pipeline: %v", err)
	}
	log.Println("✅ PDF pipeline ready")

	catalog := summary.NewCatalog(cfg.Locale)
	if catalog.Locale() != cfg.Locale {
		log.Printf("⚠️  Locale %q not supported, using %q", cfg.Locale, catalog.Locale())
	}

	// Step 3: Start the Event Loop
	loop := worker.NewLoop(cfg.EventQueueSize, worker.RealClock{})
	loop.Start()
	defer loop.Stop()

	sess := session.New(loop, pipeline, catalog, session.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		ReplyDelay:     cfg.ReplyDelay,
		AnalysisDelay:  cfg.AnalysisDelay,
		StrictBounds:   cfg.StrictPageBounds,
	})

	// Step 4: Setup HTTP Router
	h := handlers.NewHandler(sess, loop, handlers.Options{
		Version:        Version,
		WorkerURL:      pipeline.WorkerURL(),
		Locale:         catalog.Locale(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		SessionSecret:  cfg.SessionSecret,
	})
	r, rateLimiter := router.Setup(h, cfg.SessionSecret, router.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
	})
	defer rateLimiter.Stop()

	// Step 5: Start the HTTP Server
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second, // uploads can be slow on a busy machine
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Bridge listening on http://%s", cfg.Addr())
		log.Printf("📖 Health check: http://%s/api/v1/health", cfg.Addr())

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 6: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	// Cancel pending replies and the analysis timer before the loop stops
	if err := sess.Close(ctx); err != nil {
		log.Printf("⚠️  Session close failed: %v", err)
	}
	log.Println("⏳ Session closed")

	log.Println("👋 Bridge stopped. Goodbye!")
}
