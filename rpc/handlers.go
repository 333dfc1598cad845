package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/tendermint/light-verifier/config"
	"github.com/tendermint/light-verifier/libs/log"
	"github.com/tendermint/light-verifier/light"
	"github.com/tendermint/light-verifier/types"
)

// VerifyRequest is the body of POST /verify. Options and Now fall back to the
// server's defaults and clock when omitted.
type VerifyRequest struct {
	Untrusted json.RawMessage `json:"untrusted"`
	Trusted   json.RawMessage `json:"trusted"`
	Options   *light.Options  `json:"options,omitempty"`
	Now       *time.Time      `json:"now,omitempty"`
}

// Environment contains the objects the handlers need.
type Environment struct {
	Verifier *light.Verifier
	Logger   log.Logger
	// Options used by requests that carry none.
	Options light.Options
	// Now returns the local time used by requests that carry none.
	Now func() time.Time
	// RequestTimeout bounds a single verification. Zero means no bound.
	RequestTimeout time.Duration
}

// NewEnvironment builds the handler environment from the node configuration.
func NewEnvironment(conf *config.Config, verifier *light.Verifier, logger log.Logger) (*Environment, error) {
	opts, err := conf.Verifier.Options()
	if err != nil {
		return nil, err
	}
	return &Environment{
		Verifier:       verifier,
		Logger:         logger,
		Options:        opts,
		Now:            time.Now,
		RequestTimeout: conf.RPC.RequestTimeout,
	}, nil
}

// Handler returns the routes, wrapped with CORS when configured.
//
//	POST /verify   runs one verification step and returns the Verdict
//	GET  /health   always 200 while serving
//	GET  /metrics  Prometheus metrics, when instrumentation is enabled
func (env *Environment) Handler(conf *config.Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/verify", env.verifyHandler)
	mux.HandleFunc("/health", env.healthHandler)
	if conf.Instrumentation.Prometheus {
		mux.Handle("/metrics", promhttp.Handler())
	}

	var rootHandler http.Handler = mux
	if conf.RPC.IsCorsEnabled() {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins: conf.RPC.CORSAllowedOrigins,
			AllowedMethods: conf.RPC.CORSAllowedMethods,
			AllowedHeaders: conf.RPC.CORSAllowedHeaders,
		})
		rootHandler = corsMiddleware.Handler(mux)
	}
	return rootHandler
}

// StartService listens on the configured address and serves until ctx is
// done. The returned channel yields the result of Serve.
func (env *Environment) StartService(ctx context.Context, conf *config.Config) (net.Listener, <-chan error, error) {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = conf.RPC.MaxBodyBytes
	cfg.MaxHeaderBytes = conf.RPC.MaxHeaderBytes
	cfg.MaxOpenConnections = conf.RPC.MaxOpenConnections
	cfg.RequestTimeout = conf.RPC.RequestTimeout
	// Leave room to write the verdict after a verification that ran up to
	// the request timeout.
	if cfg.RequestTimeout > 0 && cfg.WriteTimeout <= cfg.RequestTimeout {
		cfg.WriteTimeout = cfg.RequestTimeout + time.Second
	}

	listener, err := Listen(conf.RPC.ListenAddress, cfg.MaxOpenConnections)
	if err != nil {
		return nil, nil, err
	}

	logger := env.Logger.With("module", "rpc-server")
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, listener, env.Handler(conf), logger, cfg)
	}()
	return listener, done, nil
}

func (env *Environment) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (env *Environment) verifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: request: %v", types.ErrSchema, err))
		return
	}

	untrusted, err := decodeBlock(req.Untrusted)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("untrusted: %w", err))
		return
	}
	trusted, err := decodeBlock(req.Trusted)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("trusted: %w", err))
		return
	}

	opts := env.Options
	if req.Options != nil {
		opts = *req.Options
	}
	now := env.Now()
	if req.Now != nil {
		now = *req.Now
	}

	ctx := r.Context()
	if env.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, env.RequestTimeout)
		defer cancel()
	}

	verdict, err := env.Verifier.Verify(ctx, untrusted, trusted, opts, now)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("verification aborted: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}

// decodeBlock leaves an absent block nil, which Verify reports as a
// SchemaError verdict.
func decodeBlock(raw json.RawMessage) (*types.LightBlock, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return types.DecodeLightBlock(raw)
}
