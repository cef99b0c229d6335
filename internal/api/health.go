// Package api exposes the health/ready/metrics HTTP surface; everything
// under /v0/<network>/... is an external collaborator, per spec.md §1.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/defich/ocean/internal/indexer"
	"github.com/defich/ocean/internal/metrics"
)

// HealthServer provides HTTP health check endpoints.
type HealthServer struct {
	ix  *indexer.Indexer
	mux *http.ServeMux
}

// NewHealthServer creates a new health check HTTP server bound to ix.
func NewHealthServer(ix *indexer.Indexer) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{ix: ix, mux: mux}

	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start starts the health check HTTP server.
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// ServeHTTP lets HealthServer itself be used as an http.Handler.
func (hs *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	hs.mux.ServeHTTP(w, r)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler is a liveness check: 200 if the process is alive.
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	response := HealthResponse{Status: "healthy", Timestamp: time.Now()}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler checks whether the indexer's store is reachable and has a tip.
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	ready := true
	var message string

	tip, ok, err := hs.ix.Tip()
	switch {
	case err != nil:
		checks["storage"] = fmt.Sprintf("error: %v", err)
		ready = false
		message = "storage not accessible"
	case !ok:
		checks["storage"] = "ok"
		checks["indexer"] = "no blocks indexed yet"
	default:
		checks["storage"] = "ok"
		checks["indexer"] = fmt.Sprintf("height %d", tip.Height)
	}

	status := "ready"
	statusCode := http.StatusOK
	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{Status: status, Timestamp: time.Now(), Checks: checks, Message: message}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}
