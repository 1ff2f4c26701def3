package wire

import (
	"encoding/json"
	"testing"
)

func TestPublisherBroadcastDelivers(t *testing.T) {
	p := NewPublisher()
	sub := p.Register(4)

	req, _ := NewRequest("day_completed", nil)
	if err := p.Broadcast(req); err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}

	select {
	case raw := <-sub.SendCh():
		var got Request
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("Unmarshal error: %v", err)
		}
		if got.Task != "day_completed" {
			t.Fatalf("task = %s, want day_completed", got.Task)
		}
	default:
		t.Fatal("expected a buffered message")
	}
}

func TestPublisherBroadcastDropsOnFullBuffer(t *testing.T) {
	p := NewPublisher()
	sub := p.Register(1)

	req, _ := NewRequest("bar", nil)
	if err := p.Broadcast(req); err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}
	if err := p.Broadcast(req); err != nil {
		t.Fatalf("Broadcast error: %v", err)
	}

	if sub.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", sub.Dropped())
	}
}

func TestPublisherUnregisterClosesChannel(t *testing.T) {
	p := NewPublisher()
	sub := p.Register(1)
	p.Unregister(sub)

	if p.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", p.Count())
	}
	if _, ok := <-sub.SendCh(); ok {
		t.Fatal("expected closed channel after Unregister")
	}
}
