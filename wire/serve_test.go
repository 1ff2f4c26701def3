package wire

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServeAnswersUntilPeerCloses(t *testing.T) {
	router := NewRouter()
	router.AddRoute("ping", func(data []byte) (any, error) {
		return map[string]string{"pong": "ok"}, nil
	})

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Accept(w, r, SocketDescriptor{})
		if err != nil {
			t.Errorf("Accept error: %v", err)
			return
		}
		go func() {
			Serve(conn, router)
			close(done)
		}()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(url, SocketDescriptor{})
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}

	req, _ := NewRequest("ping", nil)
	if err := client.Send(req); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	resp, err := client.RecvResponse()
	if err != nil {
		t.Fatalf("RecvResponse error: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}

	client.Close()
	<-done
}
