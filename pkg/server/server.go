package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/speedrun-hq/starkmarket/pkg/calldata"
	"github.com/speedrun-hq/starkmarket/pkg/circuitbreaker"
	"github.com/speedrun-hq/starkmarket/pkg/config"
	"github.com/speedrun-hq/starkmarket/pkg/logger"
	"github.com/speedrun-hq/starkmarket/pkg/marketplace"
	"github.com/speedrun-hq/starkmarket/pkg/metrics"
)

// ErrCircuitOpen is returned while the submission circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open, submissions are paused")

// ReadinessFunc reports whether the execution service can accept submissions
type ReadinessFunc func(ctx context.Context) error

// Server exposes marketplace actions and health endpoints over HTTP
type Server struct {
	port          string
	network       config.NetworkConfig
	composer      *marketplace.Composer
	breaker       *circuitbreaker.CircuitBreaker
	ready         ReadinessFunc
	metricsAPIKey string
	logger        logger.Logger
}

// ActionRequest is the JSON body accepted by the action endpoints
type ActionRequest struct {
	TokenID string `json:"token_id"`
	Price   string `json:"price"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new server
func NewServer(cfg *config.Config, composer *marketplace.Composer, breaker *circuitbreaker.CircuitBreaker, ready ReadinessFunc, log logger.Logger) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Server{
		port:          cfg.ServerPort,
		network:       cfg.Network,
		composer:      composer,
		breaker:       breaker,
		ready:         ready,
		metricsAPIKey: cfg.MetricsAPIKey,
		logger:        log,
	}
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler builds the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		if s.ready != nil {
			if err := s.ready(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("Execution service not ready: %v", err)))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	mux.HandleFunc("GET /status", s.handleStatus)

	mux.HandleFunc("POST /circuit/reset", func(w http.ResponseWriter, r *http.Request) {
		s.breaker.Reset()
		metrics.CircuitOpen.Set(0)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Circuit breaker reset"))
	})

	mux.HandleFunc("POST /actions/{kind}", s.handleAction)

	// Expose Prometheus metrics with API key authentication
	mux.Handle("GET /metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	circuitStatus := "closed"
	if s.breaker.IsOpen() {
		circuitStatus = "open"
	}
	failures, _, _, threshold := s.breaker.GetState()

	contracts := s.composer.Contracts()
	status := map[string]interface{}{
		"network":  s.network.Name,
		"chain_id": s.network.ChainID,
		"rpc_url":  s.network.RPCURL,
		"contracts": map[string]string{
			"token":  contracts.Token,
			"nft":    contracts.NFT,
			"market": contracts.Market,
		},
		"circuit": map[string]interface{}{
			"state":     circuitStatus,
			"enabled":   s.breaker.IsEnabled(),
			"failures":  failures,
			"threshold": threshold,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status JSON: %v", err)
	}
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	kind, err := marketplace.ParseActionKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req ActionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	params, err := ParamsFor(kind, req.TokenID, req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if s.breaker.IsOpen() {
		metrics.CircuitOpen.Set(1)
		writeError(w, http.StatusServiceUnavailable, ErrCircuitOpen)
		return
	}
	metrics.CircuitOpen.Set(0)

	result, err := s.composer.Submit(r.Context(), kind, params)
	if err != nil {
		var encErr *calldata.EncodingError
		var subErr *marketplace.SubmissionError
		switch {
		case errors.As(err, &encErr):
			writeError(w, http.StatusBadRequest, err)
		case errors.As(err, &subErr):
			// a client hanging up says nothing about the execution service
			if errors.Is(err, context.Canceled) {
				s.logger.Debug("Submission of %s cancelled by client", kind)
				writeError(w, http.StatusBadGateway, err)
				return
			}
			if s.breaker.RecordFailure() {
				metrics.CircuitOpen.Set(1)
			}
			writeError(w, http.StatusBadGateway, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	s.breaker.RecordSuccess()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("Error encoding action response: %v", err)
	}
}

// ParamsFor parses the string inputs an action needs
func ParamsFor(kind marketplace.ActionKind, tokenID, price string) (marketplace.Params, error) {
	var params marketplace.Params
	var err error
	if kind.NeedsTokenID() {
		if params.TokenID, err = calldata.ParseUint256("token_id", tokenID); err != nil {
			return marketplace.Params{}, err
		}
	}
	if kind.NeedsPrice() {
		if params.Price, err = calldata.ParseUint256("price", price); err != nil {
			return marketplace.Params{}, err
		}
	}
	return params, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting marketplace server on port %s", s.port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down marketplace server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
