package wire

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	req, err := NewRequest("configure", map[string]string{"bundle": "demo"})
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}

	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Request
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if decoded.Task != req.Task {
		t.Fatalf("task = %s, want %s", decoded.Task, req.Task)
	}

	var payload map[string]string
	if err := decoded.Decode(&payload); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if payload["bundle"] != "demo" {
		t.Fatalf("bundle = %s, want demo", payload["bundle"])
	}
}

func TestErrorResponseCarriesMessage(t *testing.T) {
	resp := ErrorResponse("order", ErrBrokerError)
	if resp.Task != "order" {
		t.Fatalf("task = %s, want order", resp.Task)
	}
	if resp.Error == "" {
		t.Fatal("expected non-empty error")
	}
}
