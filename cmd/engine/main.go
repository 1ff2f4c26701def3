// Command engine runs the simulation engine process: the control socket
// (REQ/REP), the broker socket (REQ/REP), and the feed socket (PUB),
// adapted from cmd/feedsim/main.go's signal-driven shutdown
// and mux-based server wiring.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ndrandal/backtestsim/archive"
	"github.com/ndrandal/backtestsim/config"
	"github.com/ndrandal/backtestsim/engine"
	"github.com/ndrandal/backtestsim/wire"
)

func main() {
	cfg := config.LoadEngine()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("engine starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	e := engine.NewEngine(
		socketDescriptor(wire.PatternRep, cfg.ControlAddr),
		socketDescriptor(wire.PatternPub, cfg.FeedAddr),
		socketDescriptor(wire.PatternRep, cfg.BrokerAddr),
	)

	if cfg.ArchiveBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("engine: load aws config: %v", err)
		}
		archiver := archive.New(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, cfg.ArchivePrefix)
		e.SetArchiver(archiver, uuid.NewString())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/control", routerHandler(e.ControlRouter))
	mux.HandleFunc("/broker", routerHandler(e.BrokerRouter))
	mux.HandleFunc("/feed", feedHandler(e.FeedPublisher()))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{Addr: cfg.ControlAddr, Handler: mux}

	// The broker and feed addresses reported by "info" serve the same
	// endpoints as the control address.
	for _, addr := range []string{cfg.BrokerAddr, cfg.FeedAddr} {
		extra := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			extra.Shutdown(context.Background())
		}()
		go func() {
			if err := extra.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("server error on %s: %v", addr, err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("engine listening on ws://%s", cfg.ControlAddr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
	log.Println("engine stopped")
}

// socketDescriptor parses a listen address of the form "host:port" (host
// may be empty, e.g. ":7100") into the SocketDescriptor the "info" task
// reports verbatim.
func socketDescriptor(pattern wire.Pattern, addr string) wire.SocketDescriptor {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return wire.SocketDescriptor{Pattern: pattern, Listen: true}
	}
	port, _ := strconv.Atoi(portStr)
	return wire.SocketDescriptor{Pattern: pattern, Host: host, Port: port, Listen: true}
}

// routerHandler upgrades every incoming connection and dispatches each
// inbound request, until the peer disconnects, through the router that
// router returns at that moment; while it returns nil (the broker before
// configure) each request gets a config-error response.
func routerHandler(router func() *wire.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wire.Accept(w, r, wire.SocketDescriptor{})
		if err != nil {
			log.Printf("engine: accept failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			req, err := conn.Recv()
			if err != nil {
				return
			}
			resp := wire.ErrorResponse(req.Task, fmt.Errorf("%w: engine not configured", wire.ErrConfigError))
			if rt := router(); rt != nil {
				resp = rt.Dispatch(req)
			}
			if err := conn.SendResponse(resp); err != nil {
				return
			}
		}
	}
}

// feedHandler upgrades every incoming connection to a PUB subscriber and
// pumps broadcasts into it until the peer disconnects.
func feedHandler(pub *wire.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wire.Accept(w, r, wire.SocketDescriptor{})
		if err != nil {
			log.Printf("engine: feed accept failed: %v", err)
			return
		}
		sub := pub.Register(256)
		defer func() {
			pub.Unregister(sub)
			conn.Close()
		}()

		for raw := range sub.SendCh() {
			if err := conn.SendRaw(raw); err != nil {
				return
			}
		}
	}
}
