// Command pool runs the worker pool process: spawns its configured
// workers, accepts their connections on its surveyor, readiness, and
// dispatch endpoints, and relays bars from the engine's feed to whichever
// worker is free.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ndrandal/backtestsim/config"
	"github.com/ndrandal/backtestsim/model"
	"github.com/ndrandal/backtestsim/pool"
	"github.com/ndrandal/backtestsim/wire"
	"github.com/ndrandal/backtestsim/worker"
)

func main() {
	cfg := config.LoadPool()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("pool starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	onBusy := pool.OnBusyDrop
	switch cfg.OnWorkerBusy {
	case "block":
		onBusy = pool.OnBusyBlock
	case "fail":
		onBusy = pool.OnBusyFail
	}

	p := pool.New(cfg.WorkerCount, onBusy)

	mux := http.NewServeMux()
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wire.Accept(w, r, wire.SocketDescriptor{})
		if err != nil {
			log.Printf("pool: ready accept failed: %v", err)
			return
		}
		p.AcceptReadyConn(conn)
	})
	mux.HandleFunc("/surveyor", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wire.Accept(w, r, wire.SocketDescriptor{})
		if err != nil {
			log.Printf("pool: surveyor accept failed: %v", err)
			return
		}
		p.RegisterSurveyorConn(conn)
		<-r.Context().Done()
	})
	mux.HandleFunc("/dispatch", func(w http.ResponseWriter, r *http.Request) {
		conn, err := wire.Accept(w, r, wire.SocketDescriptor{})
		if err != nil {
			log.Printf("pool: dispatch accept failed: %v", err)
			return
		}
		p.RegisterDispatchConn(conn)
		<-r.Context().Done()
	})

	srv := &http.Server{Addr: cfg.SurveyAddr, Handler: mux}
	ln, err := net.Listen("tcp", cfg.SurveyAddr)
	if err != nil {
		log.Fatalf("pool: listen %s: %v", cfg.SurveyAddr, err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Printf("pool listening on ws://%s, expecting %d workers", cfg.SurveyAddr, cfg.WorkerCount)

	launchWorkers(ctx, cfg)
	go relayFeed(ctx, cfg, p)

	<-ctx.Done()
	log.Println("pool stopped")
}

// launchWorkers starts cfg.WorkerCount workers, each dialing back into
// this pool's own surveyor/ready/dispatch endpoints and the engine's
// broker. Per §4.3, ThreadedExecution selects whether each runs as an
// in-process goroutine or an OS-level subprocess; the default is
// subprocess isolation.
func launchWorkers(ctx context.Context, cfg *config.PoolConfig) {
	base := "ws://" + hostOrLocalhost(cfg.SurveyAddr)
	wc := &config.WorkerConfig{
		MongoURI:          cfg.WorkerMongoURI,
		PoolDispatchAddr:  base + "/dispatch",
		PoolSurveyorAddr:  base + "/surveyor",
		PoolReadyAddr:     base + "/ready",
		EngineBrokerAddr:  strings.TrimSuffix(cfg.EngineAddr, "/") + "/broker",
		Strategy:          cfg.WorkerStrategy,
		ThreadedExecution: cfg.ThreadedExecution,
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		i := i
		launcher := worker.SelectLauncher(cfg.ThreadedExecution, cfg.WorkerBinaryPath, workerArgs(wc), nil, func(ctx context.Context) {
			if err := worker.Run(ctx, wc); err != nil {
				log.Printf("pool: worker %d: %v", i, err)
			}
		})
		if err := launcher.Launch(ctx); err != nil {
			log.Fatalf("pool: launch worker %d: %v", i, err)
		}
	}
	log.Printf("pool: launched %d workers (threaded=%v)", cfg.WorkerCount, cfg.ThreadedExecution)
}

// workerArgs renders wc as the flags cmd/worker's ProcessLauncher subprocess
// expects; ThreadLauncher ignores these and calls worker.Run directly.
func workerArgs(wc *config.WorkerConfig) []string {
	return []string{
		"-mongo-uri", wc.MongoURI,
		"-pool-dispatch-addr", wc.PoolDispatchAddr,
		"-pool-surveyor-addr", wc.PoolSurveyorAddr,
		"-pool-ready-addr", wc.PoolReadyAddr,
		"-engine-broker-addr", wc.EngineBrokerAddr,
		"-strategy", wc.Strategy,
		"-threaded=false",
	}
}

// hostOrLocalhost turns a listen address of the form "host:port" (host may
// be empty, e.g. ":7200") into a dialable "host:port", defaulting the host
// to localhost since a spawned worker always reaches back into its own
// pool process.
func hostOrLocalhost(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("%s:%s", host, port)
}

// relayFeed waits for every worker to check in, then subscribes to the
// engine's feed and dispatches each bar to a free worker.
func relayFeed(ctx context.Context, cfg *config.PoolConfig, p *pool.Pool) {
	if err := p.WaitReady(); err != nil {
		log.Fatalf("pool: %v", err)
	}
	log.Printf("pool: all %d workers ready", cfg.WorkerCount)

	feedURL := strings.TrimSuffix(cfg.EngineAddr, "/") + "/feed"
	conn, err := wire.Dial(feedURL, wire.SocketDescriptor{})
	if err != nil {
		log.Fatalf("pool: dial engine feed: %v", err)
	}
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		req, err := conn.Recv()
		if err != nil {
			log.Printf("pool: feed recv: %v", err)
			return
		}
		if req.Task != "ohlc" {
			continue
		}

		var bar model.Bar
		if err := json.Unmarshal(req.Data, &bar); err != nil {
			log.Printf("pool: decode bar: %v", err)
			continue
		}
		if _, err := p.Dispatch(bar); err != nil {
			log.Printf("pool: dispatch: %v", err)
		}
	}
}
