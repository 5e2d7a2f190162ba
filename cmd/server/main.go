// Package main provides the tagging service entry point: the HTTP API and
// the worker supervisor, sharing one filesystem-backed status store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/inl-tagging/tagqueue/pkg/api"
	"github.com/inl-tagging/tagqueue/pkg/callback"
	"github.com/inl-tagging/tagqueue/pkg/dirs"
	"github.com/inl-tagging/tagqueue/pkg/store"
	"github.com/inl-tagging/tagqueue/pkg/supervisor"
)

var (
	port            = flag.Int("port", 8080, "Server port")
	host            = flag.String("host", "0.0.0.0", "Server host")
	root            = flag.String("root", getEnv("TAGQUEUE_ROOT", "./data"), "Root directory for status/input/output/error")
	numWorkers      = flag.Int("num-workers", getEnvInt("NUM_WORKERS", 1), "Number of warm tagger worker children")
	callbackServer  = flag.String("callback-server", getEnv("CALLBACK_SERVER", ""), "Base URL for outbound result/error callbacks")
	outputExt       = flag.String("output-ext", getEnv("TAGGER_OUTPUT_EXT", ".tsv"), "Tagger-declared output file extension")
	processingSpeed = flag.Int("processing-speed", getEnvInt("TAGGER_PROCESSING_SPEED", 10000), "Tagger-declared processing speed, characters per second")
	workerBin       = flag.String("worker-bin", getEnv("TAGQUEUE_WORKER_BIN", "tagqueue-worker"), "Path to the worker child binary")
	taggerKind      = flag.String("tagger", getEnv("TAGQUEUE_TAGGER", "echo"), "Tagger implementation the worker children should load")
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	flag.Parse()

	log.Println("Initializing status store...")
	s, err := store.NewFileStore(*root)
	if err != nil {
		log.Fatalf("create store: %v", err)
	}
	defer s.Close()

	log.Println("Initializing managed directories...")
	d, err := dirs.New(*root, *outputExt)
	if err != nil {
		log.Fatalf("create directories: %v", err)
	}

	cb := callback.New(*callbackServer)
	if cb.Configured() {
		log.Printf("Callback server configured: %s", *callbackServer)
	}

	log.Printf("Starting %d warm worker(s) running tagger %q...", *numWorkers, *taggerKind)
	pool, err := supervisor.NewPool(*numWorkers, *workerBin, *taggerKind)
	if err != nil {
		log.Fatalf("start worker pool: %v", err)
	}
	defer pool.Close()

	sup := supervisor.New(s, d, pool, cb, *processingSpeed, *numWorkers)

	supCtx, cancelSup := context.WithCancel(context.Background())
	defer cancelSup()
	go func() {
		if err := sup.Run(supCtx); err != nil && err != context.Canceled {
			log.Printf("supervisor stopped: %v", err)
		}
	}()

	log.Println("Creating API server...")
	server := api.NewServer(s, d, *processingSpeed)
	defer server.Close()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancelSup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
