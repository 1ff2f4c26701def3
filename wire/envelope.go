// Package wire implements the three-socket protocol connecting the engine,
// worker pool, and workers: framed request/response envelopes over four
// socket patterns, and the task-routing table each process uses to
// dispatch inbound requests to handlers.
package wire

import "encoding/json"

// Request is the universal unit of transport sent by a caller. Task is the
// route key; Data is the task's payload, encoded as raw JSON so the router
// can decode it against the handler's own type.
type Request struct {
	Task string          `json:"task"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response answers a Request. Task always echoes the request's task. Error
// is set (and Data left empty) when the handler failed; otherwise Data
// carries the handler's return value.
type Response struct {
	Task  string          `json:"task"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewRequest marshals payload into a Request for the given task. payload
// may be nil, matching tasks that carry no data.
func NewRequest(task string, payload any) (Request, error) {
	if payload == nil {
		return Request{Task: task}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{Task: task, Data: raw}, nil
}

// NewResponse marshals payload into a successful Response for task.
func NewResponse(task string, payload any) (Response, error) {
	if payload == nil {
		return Response{Task: task}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Response{}, err
	}
	return Response{Task: task, Data: raw}, nil
}

// ErrorResponse builds a Response carrying err's message for task.
func ErrorResponse(task string, err error) Response {
	return Response{Task: task, Error: err.Error()}
}

// Decode unmarshals a Request's Data into v.
func (r Request) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Decode unmarshals a Response's Data into v.
func (r Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}
