package model

import "github.com/ndrandal/backtestsim/wire"

// IngestConfig names a historical-bar ingestion job. Immutable once
// submitted to the engine's "ingest" task.
type IngestConfig struct {
	Name         string    `json:"name"`
	CalendarName string    `json:"calendar_name"`
	FromDate     string    `json:"from_date"`
	ToDate       string    `json:"to_date"`
	Instruments  []string  `json:"instruments"`
	Database     *Database `json:"database,omitempty"`
}

// EngineConfig builds a simulation over an already-ingested bundle.
//
// Invariant: StartDate <= EndDate. Benchmark need not appear in
// Instruments, but it must resolve in the bundle; every listed instrument
// must resolve or "configure" fails with ConfigError.
type EngineConfig struct {
	Bundle      string   `json:"bundle"`
	Calendar    string   `json:"calendar"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Timezone    string   `json:"timezone"`
	Benchmark   string   `json:"benchmark"`
	Instruments []string `json:"instruments"`
}

// Database is the worker-side descriptor used to construct a read-only
// handle onto ingested bar/position data. It is an external collaborator:
// this module only carries the descriptor and a thin Mongo-backed adapter
// (see worker.MongoHandle).
type Database struct {
	User     string `json:"user"`
	Password string `json:"password"`
	Netloc   string `json:"netloc"`
	Port     int    `json:"port"`
	DBName   string `json:"dbname"`
}

// Configuration is what the pool hands a worker on "configure": the run
// identity, its date window, its database descriptor, free-form strategy
// parameters, and the socket the worker should use to reach the broker.
type Configuration struct {
	ExecutionID        string            `json:"execution_id"`
	ExecutionStartDate string            `json:"execution_start_date"`
	ExecutionEndDate   string            `json:"execution_end_date"`
	Database           *Database         `json:"database,omitempty"`
	Parameters         map[string]string `json:"parameters"`
	BrokerSocket       wire.SocketDescriptor `json:"broker_socket"`
}
