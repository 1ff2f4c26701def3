// Command worker runs a single backtest worker as an OS-level process: it
// dials into the pool's readiness, surveyor, and dispatch endpoints, and
// into the engine's broker endpoint, then serves the configured strategy
// until stopped. The bootstrap itself lives in worker.Run, shared with the
// pool's in-process (threaded) launch path.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ndrandal/backtestsim/config"
	"github.com/ndrandal/backtestsim/worker"
)

func main() {
	cfg := config.LoadWorker()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("worker starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := worker.Run(ctx, cfg); err != nil {
		log.Fatalf("worker: %v", err)
	}
	log.Println("worker stopped")
}
