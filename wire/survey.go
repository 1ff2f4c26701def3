package wire

import (
	"context"
	"fmt"
	"sync"
)

// Surveyor fans a single Request out to every registered respondent
// connection and collects a reply from each within a deadline — the
// worker-pool's configure/run_backtest/stop fan-out. Generalized from
// session.Manager's registry the other direction: instead of
// "broadcast, don't wait for replies" (PUB/SUB), this is "broadcast, wait
// for all N replies or fail".
type Surveyor struct {
	mu           sync.RWMutex
	respondents  map[uint64]*Conn
	next         uint64
}

// NewSurveyor returns an empty Surveyor.
func NewSurveyor() *Surveyor {
	return &Surveyor{respondents: make(map[uint64]*Conn)}
}

// Register adds a respondent connection and returns its id for later
// Unregister.
func (s *Surveyor) Register(conn *Conn) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.respondents[s.next] = conn
	return s.next
}

// Unregister removes a respondent.
func (s *Surveyor) Unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.respondents, id)
}

// Count returns the number of registered respondents.
func (s *Surveyor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.respondents)
}

// Survey sends req to every respondent and blocks until all have replied or
// ctx is done. Any failure surfaces as ErrWorkerException: a send or
// receive error names the respondent it came from, while ctx ending before
// every reply has arrived wraps ctx's error only; the caller (the pool) is
// left in an indeterminate state and must issue stop per the protocol.
func (s *Surveyor) Survey(ctx context.Context, req Request) ([]Response, error) {
	s.mu.RLock()
	conns := make(map[uint64]*Conn, len(s.respondents))
	for id, c := range s.respondents {
		conns[id] = c
	}
	s.mu.RUnlock()

	type result struct {
		id   uint64
		resp Response
		err  error
	}

	resultCh := make(chan result, len(conns))
	for id, conn := range conns {
		go func(id uint64, conn *Conn) {
			if err := conn.Send(req); err != nil {
				resultCh <- result{id: id, err: err}
				return
			}
			resp, err := conn.RecvResponse()
			resultCh <- result{id: id, resp: resp, err: err}
		}(id, conn)
	}

	responses := make([]Response, 0, len(conns))
	for i := 0; i < len(conns); i++ {
		select {
		case r := <-resultCh:
			if r.err != nil {
				return nil, fmt.Errorf("%w: respondent %d: %v", ErrWorkerException, r.id, r.err)
			}
			responses = append(responses, r.resp)
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrWorkerException, ctx.Err())
		}
	}
	return responses, nil
}
