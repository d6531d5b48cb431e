// Package rest exposes the facilitator engine over HTTP.
//
// Routes:
//
//	GET  /facilitator/supported
//	POST /facilitator/verify
//	POST /facilitator/settle
//	GET  /health
//	GET  /
package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/bitfsorg/x402-bch-go/facilitator"
	"github.com/bitfsorg/x402-bch-go/x402"
)

// ServiceName identifies this service in the health response.
const ServiceName = "x402-bch-facilitator"

// Server wires the facilitator engine into an HTTP router.
type Server struct {
	engine  *facilitator.Engine
	version string
	log     *slog.Logger
}

// NewServer creates a REST server around the engine. version is reported by
// GET /health.
func NewServer(engine *facilitator.Engine, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, version: version, log: log}
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/facilitator/supported", s.handleSupported).Methods(http.MethodGet)
	r.HandleFunc("/facilitator/verify", s.handleVerify).Methods(http.MethodPost)
	r.HandleFunc("/facilitator/settle", s.handleSettle).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	return r
}

// logRequests logs method, path, and duration of every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// facilitatorRequest is the body of verify and settle calls.
type facilitatorRequest struct {
	PaymentPayload      *x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements *x402.PaymentRequirements `json:"paymentRequirements"`
}

func (s *Server) handleSupported(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.SupportedKinds())
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeFacilitatorRequest(w, r)
	if !ok {
		return
	}
	result := s.engine.VerifyPayment(r.Context(), req.PaymentPayload, req.PaymentRequirements)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeFacilitatorRequest(w, r)
	if !ok {
		return
	}
	result := s.engine.SettlePayment(r.Context(), req.PaymentPayload, req.PaymentRequirements)
	writeJSON(w, http.StatusOK, result)
}

// decodeFacilitatorRequest parses the request body and enforces that both
// paymentPayload and paymentRequirements are present, answering 400 when
// they are not.
func (s *Server) decodeFacilitatorRequest(w http.ResponseWriter, r *http.Request) (*facilitatorRequest, bool) {
	var req facilitatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return nil, false
	}
	if req.PaymentPayload == nil || req.PaymentRequirements == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Missing paymentPayload or paymentRequirements",
		})
		return nil, false
	}
	return &req, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
		"version": s.version,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "x402 BCH Facilitator",
		"endpoints": map[string]string{
			"supported": "GET /facilitator/supported",
			"verify":    "POST /facilitator/verify",
			"settle":    "POST /facilitator/settle",
			"health":    "GET /health",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
