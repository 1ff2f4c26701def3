// Package config loads process configuration from flags and environment
// variables, following the flag-with-env-default pattern used throughout
// the source project's internal/config package. An optional .env file is
// loaded ahead of flag parsing via joho/godotenv.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Silently ignored if no .env file is present — this is a
	// convenience for local development, not a requirement.
	_ = godotenv.Load()
}

// EngineConfig configures the cmd/engine process.
type EngineConfig struct {
	ControlAddr   string
	BrokerAddr    string
	FeedAddr      string
	Seed          int64
	ArchiveBucket string
	ArchivePrefix string
}

// LoadEngine parses flags/env for the engine role.
func LoadEngine() *EngineConfig {
	c := &EngineConfig{}
	flag.StringVar(&c.ControlAddr, "control-addr", envStr("ENGINE_CONTROL_ADDR", ":7100"), "control (REQ/REP) listen address")
	flag.StringVar(&c.BrokerAddr, "broker-addr", envStr("ENGINE_BROKER_ADDR", ":7101"), "broker (REQ/REP) listen address")
	flag.StringVar(&c.FeedAddr, "feed-addr", envStr("ENGINE_FEED_ADDR", ":7102"), "feed (PUB) listen address")
	flag.Int64Var(&c.Seed, "seed", envInt64("ENGINE_SEED", 0), "PRNG seed; not applied: each ingested bundle is seeded from the current time")
	flag.StringVar(&c.ArchiveBucket, "archive-bucket", envStr("ENGINE_ARCHIVE_BUCKET", ""), "S3 bucket for completed-run archival (empty disables archival)")
	flag.StringVar(&c.ArchivePrefix, "archive-prefix", envStr("ENGINE_ARCHIVE_PREFIX", "backtests"), "S3 key prefix for archived runs")
	flag.Parse()
	return c
}

// PoolConfig configures the cmd/pool process.
type PoolConfig struct {
	SurveyAddr      string
	ReadyAddr       string
	EngineAddr      string
	WorkerCount     int
	SetupTimeout    time.Duration
	DispatchTimeout time.Duration
	OnWorkerBusy    string

	// Worker launch settings: the pool spawns WorkerCount workers at
	// startup, each dialing back into the pool's own surveyor/dispatch/
	// ready endpoints and the engine's broker.
	WorkerMongoURI    string
	WorkerStrategy    string
	ThreadedExecution bool
	WorkerBinaryPath  string
}

// LoadPool parses flags/env for the pool role.
func LoadPool() *PoolConfig {
	c := &PoolConfig{}
	flag.StringVar(&c.SurveyAddr, "survey-addr", envStr("POOL_SURVEY_ADDR", ":7200"), "surveyor listen address")
	flag.StringVar(&c.ReadyAddr, "ready-addr", envStr("POOL_READY_ADDR", ":7201"), "not listened on: readiness is served at /ready on -survey-addr")
	flag.StringVar(&c.EngineAddr, "engine-addr", envStr("POOL_ENGINE_ADDR", "ws://localhost:7100"), "engine control address")
	flag.IntVar(&c.WorkerCount, "workers", envInt("POOL_WORKER_COUNT", 1), "number of workers expected")
	flag.DurationVar(&c.SetupTimeout, "setup-timeout", envDuration("POOL_SETUP_TIMEOUT", 10*time.Second), "readiness handshake timeout; not applied: the pool uses a fixed 10s")
	flag.DurationVar(&c.DispatchTimeout, "dispatch-timeout", envDuration("POOL_DISPATCH_TIMEOUT", 2*time.Second), "per-bar dispatch timeout; not applied: the pool uses a fixed 2s")
	flag.StringVar(&c.OnWorkerBusy, "on-worker-busy", envStr("POOL_ON_WORKER_BUSY", "drop"), "drop|block|fail")
	flag.StringVar(&c.WorkerMongoURI, "worker-mongo-uri", envStr("MONGO_URI", "mongodb://localhost:27017/backtestsim"), "MongoDB connection URI passed to spawned workers")
	flag.StringVar(&c.WorkerStrategy, "worker-strategy", envStr("WORKER_STRATEGY", ""), "registered strategy name passed to spawned workers")
	flag.BoolVar(&c.ThreadedExecution, "threaded", envBool("THREADED_EXECUTION", false), "spawn workers as in-process goroutines instead of OS-level processes (default: processes)")
	flag.StringVar(&c.WorkerBinaryPath, "worker-binary", envStr("POOL_WORKER_BINARY_PATH", "./worker"), "path to the worker binary, used when threaded=false")
	flag.Parse()
	return c
}

// WorkerConfig configures the cmd/worker process.
type WorkerConfig struct {
	MongoURI          string
	PoolDispatchAddr  string
	PoolSurveyorAddr  string
	PoolReadyAddr     string
	EngineBrokerAddr  string
	Strategy          string
	ThreadedExecution bool
}

// LoadWorker parses flags/env for the worker role.
func LoadWorker() *WorkerConfig {
	c := &WorkerConfig{}
	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", "mongodb://localhost:27017/backtestsim"), "MongoDB connection URI")
	flag.StringVar(&c.PoolDispatchAddr, "pool-dispatch-addr", envStr("WORKER_POOL_DISPATCH_ADDR", "ws://localhost:7200/dispatch"), "per-bar dispatch address")
	flag.StringVar(&c.PoolSurveyorAddr, "pool-surveyor-addr", envStr("WORKER_POOL_SURVEYOR_ADDR", "ws://localhost:7200/surveyor"), "surveyor respondent address")
	flag.StringVar(&c.PoolReadyAddr, "pool-ready-addr", envStr("WORKER_POOL_READY_ADDR", "ws://localhost:7200/ready"), "readiness handshake address")
	flag.StringVar(&c.EngineBrokerAddr, "engine-broker-addr", envStr("WORKER_ENGINE_BROKER_ADDR", "ws://localhost:7101/broker"), "engine broker address")
	flag.StringVar(&c.Strategy, "strategy", envStr("WORKER_STRATEGY", ""), "registered strategy name")
	flag.BoolVar(&c.ThreadedExecution, "threaded", envBool("THREADED_EXECUTION", false), "only reported in the startup log; this binary always runs as its own process")
	flag.Parse()
	return c
}

// RegistryConfig configures the cmd/registry process.
type RegistryConfig struct {
	HTTPAddr string
	MongoURI string
}

// LoadRegistry parses flags/env for the registry role.
func LoadRegistry() *RegistryConfig {
	c := &RegistryConfig{}
	flag.StringVar(&c.HTTPAddr, "http-addr", envStr("REGISTRY_HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", "mongodb://localhost:27017/backtestsim"), "MongoDB connection URI")
	flag.Parse()
	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
