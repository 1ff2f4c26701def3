package registry

import (
	"context"
	"encoding/json"
	"net/http"
)

// Backend is the persistence contract Server depends on — satisfied by
// *Store in production and stubbed directly in tests, the way
// api.Server depends on a persist.TradeReader interface rather than a
// concrete store.
type Backend interface {
	CreateService(ctx context.Context, svc Service) (string, error)
	GetService(ctx context.Context, id string) (Service, error)
	ListServices(ctx context.Context) ([]Service, error)
	DeleteService(ctx context.Context, id string) error

	CreateBacktest(ctx context.Context, bt Backtest) (string, error)
	GetBacktest(ctx context.Context, id string) (Backtest, error)
	ListBacktests(ctx context.Context) ([]Backtest, error)

	RegisterWorker(ctx context.Context, w Worker) (string, error)
	ListWorkers(ctx context.Context, poolID string) ([]Worker, error)
	DeregisterWorker(ctx context.Context, id string) error

	CreateSession(ctx context.Context, sess Session) (string, error)
	GetSession(ctx context.Context, id string) (Session, error)
}

// Server exposes the §6A CRUD surface over a Backend.
type Server struct {
	backend Backend
}

// NewServer wraps backend in an HTTP server.
func NewServer(backend Backend) *Server {
	return &Server{backend: backend}
}

// Register attaches registry routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/services", s.createService)
	mux.HandleFunc("GET /api/services", s.listServices)
	mux.HandleFunc("GET /api/services/{id}", s.getService)
	mux.HandleFunc("DELETE /api/services/{id}", s.deleteService)

	mux.HandleFunc("POST /api/backtests", s.createBacktest)
	mux.HandleFunc("GET /api/backtests", s.listBacktests)
	mux.HandleFunc("GET /api/backtests/{id}", s.getBacktest)

	mux.HandleFunc("POST /api/workers", s.registerWorker)
	mux.HandleFunc("GET /api/workers", s.listWorkers)
	mux.HandleFunc("DELETE /api/workers/{id}", s.deregisterWorker)

	mux.HandleFunc("POST /api/sessions", s.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) createService(w http.ResponseWriter, r *http.Request) {
	var svc Service
	if err := decodeBody(r, &svc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.backend.CreateService(r.Context(), svc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	svcs, err := s.backend.ListServices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, svcs)
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.backend.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) deleteService(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteService(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createBacktest(w http.ResponseWriter, r *http.Request) {
	var bt Backtest
	if err := decodeBody(r, &bt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.backend.CreateBacktest(r.Context(), bt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) listBacktests(w http.ResponseWriter, r *http.Request) {
	bts, err := s.backend.ListBacktests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bts)
}

func (s *Server) getBacktest(w http.ResponseWriter, r *http.Request) {
	bt, err := s.backend.GetBacktest(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "backtest not found")
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (s *Server) registerWorker(w http.ResponseWriter, r *http.Request) {
	var wk Worker
	if err := decodeBody(r, &wk); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.backend.RegisterWorker(r.Context(), wk)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := s.backend.ListWorkers(r.Context(), r.URL.Query().Get("pool_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, workers)
}

func (s *Server) deregisterWorker(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeregisterWorker(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var sess Session
	if err := decodeBody(r, &sess); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.backend.CreateSession(r.Context(), sess)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.backend.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
