package wire

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func dialPair(t *testing.T) (server *Conn, client *Conn, closeFn func()) {
	t.Helper()
	desc := SocketDescriptor{SendTimeoutMs: 2000, RecvTimeoutMs: 2000}

	serverCh := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := Accept(w, r, desc)
		if err != nil {
			t.Errorf("Accept error: %v", err)
			return
		}
		serverCh <- c
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	cli, err := Dial(url, desc)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}

	select {
	case s := <-serverCh:
		return s, cli, func() { cli.Close(); s.Close(); srv.Close() }
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server accept")
		return nil, nil, nil
	}
}

func TestConnSendRecvRoundTrip(t *testing.T) {
	server, client, closeFn := dialPair(t)
	defer closeFn()

	req, _ := NewRequest("status", nil)
	if err := client.Send(req); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	got, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	if got.Task != "status" {
		t.Fatalf("task = %s, want status", got.Task)
	}

	resp, _ := NewResponse("status", map[string]bool{"running": true})
	if err := server.SendResponse(resp); err != nil {
		t.Fatalf("SendResponse error: %v", err)
	}

	gotResp, err := client.RecvResponse()
	if err != nil {
		t.Fatalf("RecvResponse error: %v", err)
	}
	var payload map[string]bool
	if err := gotResp.Decode(&payload); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !payload["running"] {
		t.Fatal("expected running = true")
	}
}

func TestConnRecvTimeout(t *testing.T) {
	server, client, closeFn := dialPair(t)
	defer closeFn()
	_ = client

	server.recvTimeout = 50 * time.Millisecond
	_, err := server.Recv()
	if err != ErrSocketTimeout {
		t.Fatalf("err = %v, want ErrSocketTimeout", err)
	}
}

func TestConnSendRawRoundTrip(t *testing.T) {
	server, client, closeFn := dialPair(t)
	defer closeFn()

	req, _ := NewRequest("ready", nil)
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if err := client.SendRaw(raw); err != nil {
		t.Fatalf("SendRaw error: %v", err)
	}

	got, err := server.Recv()
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	if got.Task != "ready" {
		t.Fatalf("task = %s, want ready", got.Task)
	}
}

func TestConnRecvAfterCloseIsSocketClosed(t *testing.T) {
	server, client, closeFn := dialPair(t)
	defer closeFn()
	_ = client

	server.Close()
	if _, err := server.Recv(); err != ErrSocketClosed {
		t.Fatalf("err = %v, want ErrSocketClosed", err)
	}
}
