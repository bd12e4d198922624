// http.go is the REST command surface (versioned routes, middleware
// chain, prometheus mount, liveness/readiness/detailed health
// endpoints) for the dispatch engine: start/stop/reset, add-call,
// config updates, emergency stop, and a snapshot poll.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dispatchsim/elevator-engine/internal/call"
	"github.com/dispatchsim/elevator-engine/internal/constants"
	"github.com/dispatchsim/elevator-engine/internal/domain"
	"github.com/dispatchsim/elevator-engine/internal/engine"
	"github.com/dispatchsim/elevator-engine/internal/infra/config"
	"github.com/dispatchsim/elevator-engine/internal/infra/health"
)

// Server is the REST command surface for one Engine.
type Server struct {
	engine        *engine.Engine
	clock         domain.Clock
	httpServer    *http.Server
	cfg           *config.Config
	logger        *slog.Logger
	healthService *health.HealthService
}

// addCallRequest is the JSON body of POST /v1/calls.
type addCallRequest struct {
	Origin         int  `json:"origin"`
	Destination    int  `json:"destination"`
	HasDestination bool `json:"has_destination"`
	Passengers     int  `json:"passengers"`
	Emergency      bool `json:"emergency"`
}

// updateConfigRequest is the JSON body of PUT /v1/config.
type updateConfigRequest struct {
	NumCars     int     `json:"num_cars"`
	NumFloors   int     `json:"num_floors"`
	CarCapacity int     `json:"car_capacity"`
	SimSpeed    float64 `json:"sim_speed"`
	RequestRate float64 `json:"request_rate"`
}

// carMaintenanceRequest is the JSON body of POST /v1/engine/car/maintenance.
type carMaintenanceRequest struct {
	CarID int `json:"car_id"`
}

// Tracer is the subset of observability.TelemetryProvider the REST
// server needs; nil disables tracing middleware entirely.
type Tracer interface {
	TelemetryMiddleware() func(http.Handler) http.Handler
}

// NewServer wires the engine's command endpoints behind the standard
// middleware chain and mounts prometheus/health alongside them.
func NewServer(cfg *config.Config, port int, eng *engine.Engine, clock domain.Clock, tracer Tracer) *Server {
	logger := slog.With(slog.String("component", constants.ComponentHTTPSrv))
	s := &Server{
		engine:        eng,
		clock:         clock,
		cfg:           cfg,
		logger:        logger,
		healthService: health.NewHealthService(30 * time.Second),
	}
	s.setupHealthChecks()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1", s.apiInfoHandler)
	mux.HandleFunc("/v1/engine/start", s.startHandler)
	mux.HandleFunc("/v1/engine/stop", s.stopHandler)
	mux.HandleFunc("/v1/engine/reset", s.resetHandler)
	mux.HandleFunc("/v1/engine/emergency-stop", s.emergencyStopHandler)
	mux.HandleFunc("/v1/engine/clear-emergency", s.clearEmergencyHandler)
	mux.HandleFunc("/v1/engine/car/maintenance", s.carMaintenanceHandler)
	mux.HandleFunc("/v1/engine/car/clear-maintenance", s.clearCarMaintenanceHandler)
	mux.HandleFunc("/v1/config", s.configHandler)
	mux.HandleFunc("/v1/calls", s.callsHandler)
	mux.HandleFunc("/v1/snapshot", s.snapshotHandler)

	mux.HandleFunc("/v1/health/live", s.livenessHandler)
	mux.HandleFunc("/v1/health/ready", s.readinessHandler)
	mux.HandleFunc("/v1/health/detailed", s.detailedHealthHandler)

	mux.Handle("/metrics", promhttp.Handler())

	mwChain := []Middleware{
		RequestIDMiddleware,
		LoggingMiddleware(logger),
		RecoveryMiddleware(logger),
		CORSMiddleware,
		SecurityHeadersMiddleware,
		RateLimitMiddleware(logger, cfg.RateLimitRPM, cfg.RateLimitWindow),
	}
	if tracer != nil {
		mwChain = append(mwChain, Middleware(tracer.TelemetryMiddleware()))
	}
	chain := ChainMiddleware(mux, mwChain...)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      chain,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupHealthChecks() {
	s.healthService.Register(health.NewSystemResourceChecker(85.0, 1000))
	s.healthService.Register(health.NewLivenessChecker())

	engineChecker := health.NewComponentHealthChecker("engine", func(ctx context.Context) (bool, string, map[string]interface{}) {
		running := s.engine.IsRunning()
		snap := s.engine.Snapshot(s.clock.Now())
		details := map[string]interface{}{
			"running":      running,
			"cars":         len(snap.Cars),
			"active_calls": len(snap.ActiveCalls),
			"tick":         snap.Tick,
		}
		if !running {
			return true, "engine is stopped", details
		}
		return true, "engine is running", details
	})
	s.healthService.Register(engineChecker)
	s.healthService.Register(health.NewReadinessChecker(engineChecker))

	s.logger.Info("health checks initialized", slog.Int("registered_checkers", 4))
}

func (s *Server) apiInfoHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	rw.WriteJSON(http.StatusOK, map[string]interface{}{
		"name":    "dispatch-simulation-engine",
		"version": "v1",
		"endpoints": []string{
			"/v1/engine/start", "/v1/engine/stop", "/v1/engine/reset",
			"/v1/engine/emergency-stop", "/v1/engine/clear-emergency",
			"/v1/engine/car/maintenance", "/v1/engine/car/clear-maintenance",
			"/v1/config", "/v1/calls", "/v1/snapshot",
		},
	})
}

func (s *Server) startHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	if err := s.engine.Start(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) stopHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	if err := s.engine.Stop(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	if err := s.engine.Reset(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) emergencyStopHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	if err := s.engine.EmergencyStop(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) clearEmergencyHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	if err := s.engine.ClearEmergency(); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) carMaintenanceHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	var body carMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if err := s.engine.SetCarMaintenance(body.CarID); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) clearCarMaintenanceHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPost {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	var body carMaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if err := s.engine.ClearCarMaintenance(body.CarID); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) configHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodPut {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	var body updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	next := domain.SimConfig{
		NumCars:     body.NumCars,
		NumFloors:   body.NumFloors,
		CarCapacity: body.CarCapacity,
		SimSpeed:    body.SimSpeed,
		RequestRate: body.RequestRate,
	}
	if err := s.engine.UpdateConfig(next); err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) callsHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	switch r.Method {
	case http.MethodPost:
		s.addCallHandler(rw, r)
	case http.MethodGet:
		rw.WriteJSON(http.StatusOK, s.engine.ServedHistory())
	default:
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
	}
}

func (s *Server) addCallHandler(rw *ResponseWriter, r *http.Request) {
	var body addCallRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		rw.WriteError(http.StatusBadRequest, ErrorCodeValidation, "invalid request body", err.Error())
		return
	}
	if body.Passengers < 1 {
		body.Passengers = 1
	}
	c, err := s.engine.AddCall(call.Params{
		Origin:         body.Origin,
		Destination:    body.Destination,
		HasDestination: body.HasDestination,
		Passengers:     body.Passengers,
		Emergency:      body.Emergency,
		CreatedAt:      s.clock.Now(),
	})
	if err != nil {
		rw.WriteDomainError(err)
		return
	}
	rw.WriteJSON(http.StatusCreated, c)
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, s.logger, getRequestID(r))
	if r.Method != http.MethodGet {
		rw.WriteError(http.StatusMethodNotAllowed, ErrorCodeValidation, "method not allowed", "")
		return
	}
	rw.WriteJSON(http.StatusOK, s.engine.Snapshot(s.clock.Now()))
}

func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.healthService.Check(r.Context(), "liveness")
	if err != nil {
		http.Error(w, "liveness check failed", http.StatusServiceUnavailable)
		return
	}
	s.writeHealthResult(w, result)
}

func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.healthService.Check(r.Context(), "readiness")
	if err != nil {
		http.Error(w, "readiness check failed", http.StatusServiceUnavailable)
		return
	}
	s.writeHealthResult(w, result)
}

func (s *Server) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	status, results := s.healthService.GetOverallStatus(r.Context())
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	if status == health.StatusHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": status, "checks": results})
}

func (s *Server) writeHealthResult(w http.ResponseWriter, result health.CheckResult) {
	w.Header().Set("Content-Type", constants.ContentTypeJSON)
	if result.Status == health.StatusHealthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(result)
}

// Start serves the REST API until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
