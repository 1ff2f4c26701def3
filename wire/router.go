package wire

import (
	"fmt"
)

// Handler processes a Request's raw payload and returns a value to be
// marshalled into the Response's Data, or an error to be surfaced as
// Response.Error.
type Handler func(data []byte) (any, error)

// Router is the process-local {task -> handler} table every role in the
// protocol uses to dispatch inbound requests. Grounded directly in the
// source project's MessageRouter: task lookup miss is a per-request
// ErrTaskNotFound, duplicate registration is fatal at startup, and any
// handler error (or panic) is caught and flattened into Response.Error.
type Router struct {
	routes map[string]Handler
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[string]Handler)}
}

// AddRoute registers handler for task. Registering the same task twice is a
// programming error and panics, matching the source's TaskAlreadyExists
// being fatal at startup rather than recoverable.
func (r *Router) AddRoute(task string, handler Handler) {
	if _, exists := r.routes[task]; exists {
		panic(fmt.Errorf("%w: %q", ErrTaskAlreadyExists, task))
	}
	r.routes[task] = handler
}

// Dispatch looks up req.Task, invokes its handler, and always returns a
// Response whose Task matches req.Task — never an error. An unregistered
// task becomes a task-not-found error response; a handler error or panic
// becomes its string representation in Response.Error.
func (r *Router) Dispatch(req Request) (resp Response) {
	handler, ok := r.routes[req.Task]
	if !ok {
		return ErrorResponse(req.Task, fmt.Errorf("%w: %q", ErrTaskNotFound, req.Task))
	}

	defer func() {
		if rec := recover(); rec != nil {
			resp = ErrorResponse(req.Task, fmt.Errorf("handler panic: %v", rec))
		}
	}()

	result, err := handler(req.Data)
	if err != nil {
		return ErrorResponse(req.Task, err)
	}
	out, err := NewResponse(req.Task, result)
	if err != nil {
		return ErrorResponse(req.Task, err)
	}
	return out
}
