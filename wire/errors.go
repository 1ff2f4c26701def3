package wire

import "errors"

// Taxonomy of errors raised by the wire layer and the roles built on top of
// it. Every entry is a distinct sentinel so callers can use errors.Is;
// propagation policy keeps these out of the wire envelope as typed values —
// they are always flattened to a short string in Response.Error before
// crossing a socket.
var (
	// ErrSocketTimeout is raised by any receive past its deadline. Callers
	// recover locally: retry, or loop back to the next receive.
	ErrSocketTimeout = errors.New("socket: timeout")

	// ErrSocketClosed is raised by any operation on a shut socket. It is
	// fatal to the owning loop, which must unwind cleanly.
	ErrSocketClosed = errors.New("socket: closed")

	// ErrConfigError is raised by the engine's configure task when the
	// timezone, benchmark, or an instrument cannot be resolved.
	ErrConfigError = errors.New("engine: config error")

	// ErrBrokerError is raised by the engine's broker socket on an unknown
	// instrument or unknown order id.
	ErrBrokerError = errors.New("broker: error")

	// ErrBacktestNotRunning is raised by "continue" when the engine is not
	// RUNNING.
	ErrBacktestNotRunning = errors.New("engine: backtest not running")

	// ErrEndOfDay is raised when the per-bar barrier times out. It is
	// fatal to the simulation: the engine transitions to STOPPED.
	ErrEndOfDay = errors.New("engine: end of day barrier timeout")

	// ErrWorkerException is raised by the pool when a surveyed worker does
	// not reply within its deadline. Fatal to the pool; the caller must
	// issue stop.
	ErrWorkerException = errors.New("pool: worker exception")

	// ErrTaskNotFound is a per-request router error: the task has no
	// registered route.
	ErrTaskNotFound = errors.New("router: task not found")

	// ErrTaskAlreadyExists is a programming error: a task was registered
	// twice. Fatal at startup.
	ErrTaskAlreadyExists = errors.New("router: task already registered")
)
