// Command registry runs the ambient HTTP CRUD surface (§6A) over
// services, backtests, workers, and sessions.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndrandal/backtestsim/config"
	"github.com/ndrandal/backtestsim/registry"
)

func main() {
	cfg := config.LoadRegistry()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("registry starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	store, err := registry.NewStore(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("registry: database connection failed: %v", err)
	}
	defer store.Close(context.Background())

	srv := registry.NewServer(store)
	mux := http.NewServeMux()
	srv.Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Printf("registry listening on http://%s", cfg.HTTPAddr)
	if err := httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("registry stopped")
}
