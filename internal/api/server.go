package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/syncer/internal/core/domain"
	"github.com/vietddude/syncer/internal/indexing/engine"
)

// maxRangeSize bounds one range query; larger windows are clamped.
const maxRangeSize = 1000

// Sync-lag thresholds for the health report, in blocks behind head.
const (
	degradedLagBlocks = 100
	criticalLagBlocks = 1000
)

// Reader is the slice of the ordered store the API serves from.
type Reader interface {
	GetByIndex(ctx context.Context, kind domain.Kind, index uint64) ([]byte, error)
	GetRange(ctx context.Context, kind domain.Kind, start, end uint64) ([][]byte, error)
	GetLatest(ctx context.Context, kind domain.Kind) (uint64, error)
}

// StatusSource reports the ingestion loop's position for /health.
type StatusSource interface {
	Status() engine.Status
}

// Config holds the HTTP listener settings.
type Config struct {
	Port int `yaml:"port"`
}

// Server exposes the ingested history over HTTP: records by index, latest
// records per kind, a sync-lag health report and prometheus metrics.
// Responses are the stored JSON verbatim.
type Server struct {
	reader Reader
	status StatusSource
	server *http.Server
	log    *slog.Logger
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg Config, reader Reader, status StatusSource) *Server {
	mux := http.NewServeMux()
	s := &Server{
		reader: reader,
		status: status,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: mux,
		},
		log: slog.With("component", "api"),
	}

	indexed := []struct {
		route string
		kind  domain.Kind
	}{
		{"/enqueue", domain.KindEnqueue},
		{"/transaction", domain.KindTransaction},
		{"/batch/transaction", domain.KindTransactionBatch},
		{"/stateroot", domain.KindStateRoot},
		{"/batch/stateroot", domain.KindStateRootBatch},
		{"/unconfirmed/transaction", domain.KindUnconfirmedTransaction},
	}
	for _, r := range indexed {
		mux.HandleFunc("GET "+r.route+"/index/{index}", s.handleByIndex(r.kind))
		mux.HandleFunc("GET "+r.route+"/latest", s.handleLatest(r.kind))
	}
	mux.HandleFunc("GET /unconfirmed/stateroot/index/{index}", s.handleByIndex(domain.KindUnconfirmedStateRoot))
	mux.HandleFunc("GET /transaction/range", s.handleRange(domain.KindTransaction))

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.log.Info("api server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleByIndex(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "index must be a non-negative integer")
			return
		}

		record, err := s.reader.GetByIndex(r.Context(), kind, index)
		if err != nil {
			s.writeLookupError(w, err)
			return
		}
		writeRecord(w, record)
	}
}

// handleLatest serves the record at the kind's latest pointer.
func (s *Server) handleLatest(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := s.reader.GetLatest(r.Context(), kind)
		if err != nil {
			s.writeLookupError(w, err)
			return
		}
		record, err := s.reader.GetByIndex(r.Context(), kind, index)
		if err != nil {
			s.writeLookupError(w, err)
			return
		}
		writeRecord(w, record)
	}
}

func (s *Server) handleRange(kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := strconv.ParseUint(r.URL.Query().Get("start"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be a non-negative integer")
			return
		}
		end, err := strconv.ParseUint(r.URL.Query().Get("end"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be a non-negative integer")
			return
		}
		if end < start {
			writeError(w, http.StatusBadRequest, "end must not be below start")
			return
		}
		if end-start > maxRangeSize {
			end = start + maxRangeSize
		}

		records, err := s.reader.GetRange(r.Context(), kind, start, end)
		if err != nil {
			s.writeLookupError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("["))
		for i, record := range records {
			if i > 0 {
				w.Write([]byte(","))
			}
			w.Write(record)
		}
		w.Write([]byte("]"))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.status.Status()

	var lag uint64
	if status.ChainHeight > status.HighestSynced {
		lag = status.ChainHeight - status.HighestSynced
	}

	state := "ok"
	switch {
	case !status.Running || lag > criticalLagBlocks:
		state = "critical"
	case lag > degradedLagBlocks:
		state = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if state == "critical" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":        state,
		"running":       status.Running,
		"highestSynced": status.HighestSynced,
		"chainHeight":   status.ChainHeight,
		"lag":           lag,
	})
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.log.Error("lookup failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeRecord(w http.ResponseWriter, record []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(record)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
