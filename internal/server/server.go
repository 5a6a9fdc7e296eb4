package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/intent/docs/swagger" // registers the OpenAPI document
	"github.com/raysh454/intent/internal/app"
	"github.com/raysh454/intent/internal/ingest"
	"github.com/raysh454/intent/internal/logging"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/wire"
)

// Gateway is the ingestion surface the server exposes.
type Gateway interface {
	Ingest(ctx context.Context, env *wire.Envelope, batch *model.SignalBatch, clientIP string) (*model.Decision, error)
	SiteConfig(ctx context.Context, siteID, accessKey, origin string) (*model.SiteConfig, error)
}

// Server is the HTTP + WebSocket ingestion surface.
type Server struct {
	cfg      Config
	app      *app.Application
	gateway  Gateway
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer builds the runtime from cfg.AppConfig and serves its gateway.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	cfg = cfg.withDefaults()

	a, err := app.New(cfg.AppConfig, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("building application: %w", err)
	}
	s := NewWithGateway(cfg, a.Gateway)
	s.app = a
	return s, nil
}

// NewWithGateway serves an existing gateway. Close does not touch it.
func NewWithGateway(cfg Config, gw Gateway) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		cfg:     cfg,
		gateway: gw,
		router:  chi.NewRouter(),
		logger:  cfg.Logger.With(logging.Field{Key: "component", Value: "server"}),
		upgrader: websocket.Upgrader{
			// Collectors run on operator sites; the access key and the
			// allowed-domain check gate each frame instead.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s
}

// App returns the runtime built by NewServer, or nil.
func (s *Server) App() *app.Application {
	return s.app
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/v1/collect", s.optionsHandler("POST"))
	r.Options("/v1/sites/{site}/config", s.optionsHandler("GET"))

	r.Post("/v1/collect", s.handleCollect)
	r.Get("/v1/ws/collect", s.handleCollectWS)
	r.Get("/v1/sites/{site}/config", s.handleSiteConfig)

	r.Get("/healthz", s.handleHealth)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler. Bodies are not logged; they carry
// visitor text.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.router.ServeHTTP(w, r)
	s.logger.Debug("http_request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path},
		logging.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()})
}

// Close releases the runtime built by NewServer.
func (s *Server) Close() error {
	if s.app != nil {
		return s.app.Close()
	}
	return nil
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // websocket streams
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// statusFor maps gateway and decode errors to an HTTP status and a message
// safe to show a client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, wire.ErrMalformed), errors.Is(err, ingest.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ingest.ErrUnauthorized):
		return http.StatusUnauthorized, ingest.ErrUnauthorized.Error()
	case errors.Is(err, ingest.ErrSiteNotFound):
		return http.StatusNotFound, ingest.ErrSiteNotFound.Error()
	case errors.Is(err, ingest.ErrSiteInactive):
		return http.StatusForbidden, ingest.ErrSiteInactive.Error()
	case errors.Is(err, ingest.ErrDomainNotAllowed):
		return http.StatusForbidden, ingest.ErrDomainNotAllowed.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- HTTP handlers ---

// handleCollect godoc
// @Summary Ingest a signal batch
// @Description Merges one batch into its session, scores it and returns the decision, with an adaptive UI payload when one was produced.
// @Tags collect
// @Accept json
// @Produce json
// @Param request body CollectRequest true "Ingestion envelope"
// @Success 200 {object} DecisionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /v1/collect [post]
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}

	decision, status, msg := s.ingest(r.Context(), body, clientIP(r))
	if decision == nil {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// ingest decodes one envelope and runs it through the gateway. On failure
// decision is nil and status/msg describe the error.
func (s *Server) ingest(ctx context.Context, data []byte, ip string) (decision *model.Decision, status int, msg string) {
	env, batch, err := wire.Decode(data)
	if err != nil {
		s.logger.Debug("rejecting envelope", logging.Err(err))
		status, msg = statusFor(err)
		return nil, status, msg
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	decision, err = s.gateway.Ingest(ctx, env, batch, ip)
	if err != nil {
		status, msg = statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("ingesting batch", logging.Err(err),
				logging.Field{Key: "site_id", Value: env.SiteID},
				logging.Field{Key: "session_id", Value: env.SessionID})
		} else {
			s.logger.Info("batch rejected", logging.Err(err),
				logging.Field{Key: "site_id", Value: env.SiteID})
		}
		return nil, status, msg
	}
	return decision, http.StatusOK, ""
}

// handleCollectWS godoc
// @Summary Stream signal batches
// @Description Upgrades to a WebSocket. Each text frame is one ingestion envelope; each reply frame is a decision or {"error": "..."}.
// @Tags collect
// @Success 101 {string} string "Switching Protocols"
// @Router /v1/ws/collect [get]
func (s *Server) handleCollectWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(s.cfg.MaxBodyBytes)
	ip := clientIP(r)
	ctx := r.Context()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", logging.Err(err))
			}
			return
		}

		var reply any
		if mt != websocket.TextMessage {
			reply = ErrorResponse{Error: "expected a text frame"}
		} else if decision, _, msg := s.ingest(ctx, data, ip); decision != nil {
			reply = decision
		} else {
			reply = ErrorResponse{Error: msg}
		}

		if err := conn.WriteJSON(reply); err != nil {
			// Assume client disconnected
			return
		}
	}
}

// handleSiteConfig godoc
// @Summary Collector configuration handshake
// @Description Returns whether the site is active, its allowed domains and collector settings.
// @Tags sites
// @Produce json
// @Param site path string true "Site id"
// @Param key query string true "Site access key"
// @Param origin query string false "Page URL or origin the collector runs on"
// @Success 200 {object} SiteConfigResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /v1/sites/{site}/config [get]
func (s *Server) handleSiteConfig(w http.ResponseWriter, r *http.Request) {
	site := chi.URLParam(r, "site")
	key := r.URL.Query().Get("key")
	origin := r.URL.Query().Get("origin")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key query parameter")
		return
	}

	cfg, err := s.gateway.SiteConfig(r.Context(), site, key, origin)
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("loading site config", logging.Err(err), logging.Field{Key: "site_id", Value: site})
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleHealth godoc
// @Summary Liveness probe
// @Tags ops
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}
