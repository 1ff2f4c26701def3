package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	services  map[string]Service
	backtests map[string]Backtest
	workers   map[string]Worker
	sessions  map[string]Session
	nextID    int
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		services:  make(map[string]Service),
		backtests: make(map[string]Backtest),
		workers:   make(map[string]Worker),
		sessions:  make(map[string]Session),
	}
}

func (s *stubBackend) genID() string {
	s.nextID++
	return "id-" + string(rune('0'+s.nextID))
}

func (s *stubBackend) CreateService(ctx context.Context, svc Service) (string, error) {
	id := s.genID()
	s.services[id] = svc
	return id, nil
}
func (s *stubBackend) GetService(ctx context.Context, id string) (Service, error) {
	svc, ok := s.services[id]
	if !ok {
		return Service{}, errNotFound
	}
	return svc, nil
}
func (s *stubBackend) ListServices(ctx context.Context) ([]Service, error) {
	var out []Service
	for _, v := range s.services {
		out = append(out, v)
	}
	return out, nil
}
func (s *stubBackend) DeleteService(ctx context.Context, id string) error {
	delete(s.services, id)
	return nil
}

func (s *stubBackend) CreateBacktest(ctx context.Context, bt Backtest) (string, error) {
	id := s.genID()
	s.backtests[id] = bt
	return id, nil
}
func (s *stubBackend) GetBacktest(ctx context.Context, id string) (Backtest, error) {
	bt, ok := s.backtests[id]
	if !ok {
		return Backtest{}, errNotFound
	}
	return bt, nil
}
func (s *stubBackend) ListBacktests(ctx context.Context) ([]Backtest, error) {
	var out []Backtest
	for _, v := range s.backtests {
		out = append(out, v)
	}
	return out, nil
}

func (s *stubBackend) RegisterWorker(ctx context.Context, w Worker) (string, error) {
	id := s.genID()
	s.workers[id] = w
	return id, nil
}
func (s *stubBackend) ListWorkers(ctx context.Context, poolID string) ([]Worker, error) {
	var out []Worker
	for _, v := range s.workers {
		if poolID == "" || v.PoolID == poolID {
			out = append(out, v)
		}
	}
	return out, nil
}
func (s *stubBackend) DeregisterWorker(ctx context.Context, id string) error {
	delete(s.workers, id)
	return nil
}

func (s *stubBackend) CreateSession(ctx context.Context, sess Session) (string, error) {
	id := s.genID()
	s.sessions[id] = sess
	return id, nil
}
func (s *stubBackend) GetSession(ctx context.Context, id string) (Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, errNotFound
	}
	return sess, nil
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "not found" }

func newTestServer() (*Server, *http.ServeMux) {
	backend := newStubBackend()
	srv := NewServer(backend)
	mux := http.NewServeMux()
	srv.Register(mux)
	return srv, mux
}

func TestRegistryCreateAndGetService(t *testing.T) {
	_, mux := newTestServer()

	createResp := httptest.NewRecorder()
	mux.ServeHTTP(createResp, httptest.NewRequest(http.MethodPost, "/api/services",
		strings.NewReader(`{"name":"momentum","strategy":"buy-and-hold"}`)))
	require.Equal(t, http.StatusCreated, createResp.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(createResp.Body.Bytes(), &created))
	require.NotEmpty(t, created["id"])

	getResp := httptest.NewRecorder()
	mux.ServeHTTP(getResp, httptest.NewRequest(http.MethodGet, "/api/services/"+created["id"], nil))
	require.Equal(t, http.StatusOK, getResp.Code)

	var svc Service
	require.NoError(t, json.Unmarshal(getResp.Body.Bytes(), &svc))
	require.Equal(t, "momentum", svc.Name)
}

func TestRegistryGetMissingServiceReturns404(t *testing.T) {
	_, mux := newTestServer()
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/services/missing", nil))
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRegistryListWorkersFiltersByPool(t *testing.T) {
	_, mux := newTestServer()

	for _, poolID := range []string{"pool-a", "pool-a", "pool-b"} {
		body := `{"pool_id":"` + poolID + `","address":"ws://localhost"}`
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/workers", strings.NewReader(body)))
	}

	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/workers?pool_id=pool-a", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var workers []Worker
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &workers))
	require.Len(t, workers, 2)
}
