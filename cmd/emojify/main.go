package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/basel-ax/emojify/internal/config"
	"github.com/basel-ax/emojify/internal/handler"
	"github.com/basel-ax/emojify/internal/infrastructure/replicate"
	"github.com/basel-ax/emojify/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command line flags
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	envFile := flag.String("env", ".env", "Path to an optional .env file")
	addr := flag.String("addr", "", "Listen address (overrides SERVER_ADDR)")
	flag.Parse()

	// Configure logging
	if *verbose {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Verbose logging enabled")
	} else {
		log.SetFlags(log.Ldate | log.Ltime)
	}

	log.Println("Loading configuration...")
	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		// every prediction will fail until the token is set
		log.Printf("Warning: %v", err)
	}
	log.Println("Configuration loaded successfully")

	provider := replicate.NewClient(cfg.Replicate)
	predictionService := service.NewPredictionService(cfg, provider)

	gin.SetMode(cfg.Server.GinMode)
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler.NewRouter(cfg, predictionService),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}
