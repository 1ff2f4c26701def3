package wire

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
)

// Publisher is a one-to-many PUB socket: subscribers register a connection
// and receive every Broadcast; delivery is lossy if a subscriber falls
// behind, which the protocol tolerates because the per-bar barrier forces
// synchronous drain before the next publish. Generalized from
// session.Manager's broadcast-to-subscribers fan-out.
type Publisher struct {
	mu   sync.RWMutex
	subs map[uint64]*Subscriber
	next uint64
}

// Subscriber is one registered PUB/SUB peer.
type Subscriber struct {
	id      uint64
	sendCh  chan []byte
	dropped atomic.Uint64
}

// NewPublisher returns an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{subs: make(map[uint64]*Subscriber)}
}

// Register adds a subscriber with the given outbound buffer size and
// returns it; the caller is responsible for draining SendCh into a Conn.
func (p *Publisher) Register(bufferSize int) *Subscriber {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	s := &Subscriber{id: p.next, sendCh: make(chan []byte, bufferSize)}
	p.subs[s.id] = s
	return s
}

// Unregister removes a subscriber.
func (p *Publisher) Unregister(s *Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, s.id)
	close(s.sendCh)
}

// Broadcast encodes req once and fans it out, non-blocking, to every
// registered subscriber. A subscriber whose buffer is full drops the
// message rather than stalling the publisher.
func (p *Publisher) Broadcast(req Request) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.subs {
		select {
		case s.sendCh <- raw:
		default:
			s.dropped.Add(1)
			log.Printf("wire: publisher dropped message for subscriber %d (task=%s)", s.id, req.Task)
		}
	}
	return nil
}

// SendCh exposes the subscriber's outbound channel for a write pump to
// drain into a *Conn.
func (s *Subscriber) SendCh() <-chan []byte { return s.sendCh }

// Dropped returns the count of messages dropped for this subscriber due to
// a full buffer.
func (s *Subscriber) Dropped() uint64 { return s.dropped.Load() }

// Count returns the number of currently registered subscribers.
func (p *Publisher) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}
