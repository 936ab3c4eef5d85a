package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/monitor"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/storage"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/widget"
)

// tokenVerifier validates a raw ID token and returns who it was issued to.
type tokenVerifier func(ctx context.Context, rawIDToken string) (identity, error)

type identity struct {
	Email   string
	Subject string
}

// Server exposes the monitor over HTTP: refresh triggers, the formatted
// snapshot, configuration and stored history.
type Server struct {
	monitor *monitor.Monitor
	storage storage.Database
	face    *widget.Face
	loc     *time.Location

	listenAddr string
	httpServer *http.Server

	oidcAudience string
	verifier     tokenVerifier
	serverName   string
}

// New returns a Server with no listen address and no authentication.
func New(m *monitor.Monitor, s storage.Database) *Server {
	return &Server{
		monitor:    m,
		storage:    s,
		face:       widget.NewFace(),
		loc:        time.Local,
		serverName: "enlightenmonitor",
	}
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(m *monitor.Monitor, s storage.Database) *Server {
	srv := New(m, s)
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcAudience := lflag.String("oidc-audience", "", "audience to validate Google ID tokens against for POST requests, empty disables auth")
	timezone := lflag.String("timezone", "Local", "IANA time zone used for the last update time")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr

		loc, err := time.LoadLocation(*timezone)
		if err != nil {
			log.Ctx(context.Background()).Error("invalid timezone", slog.String("timezone", *timezone), slog.Any("error", err))
			os.Exit(1)
		}
		srv.loc = loc

		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.oidcAudience = *oidcAudience
			srv.verifier = oidcVerifier(provider.Verifier(&oidc.Config{ClientID: *oidcAudience}))
		}
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/refresh", s.handleRefresh)
	apiMux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	apiMux.HandleFunc("GET /api/config", s.handleGetConfig)
	apiMux.HandleFunc("POST /api/config", s.handleSetConfig)
	apiMux.HandleFunc("GET /api/history", s.handleHistory)
	apiMux.HandleFunc("GET /api/widget", s.handleWidget)
	apiMux.HandleFunc("POST /api/widget/next", s.handleWidgetNext)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.apiHeadersMiddleware(mux)))
}

// Run serves the API on listenAddr until ctx is done, then drains in-flight
// requests for up to 5 seconds. Requests inherit ctx's logger but are not
// canceled with it.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	baseCtx := context.WithoutCancel(ctx)
	s.httpServer = &http.Server{
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  15 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	shutdownErr := make(chan error, 1)
	stop := context.AfterFunc(ctx, func() {
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(baseCtx, 5*time.Second)
		defer cancel()
		shutdownErr <- s.httpServer.Shutdown(shutdownCtx)
	})
	defer stop()

	log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	// Serve returns as soon as Shutdown starts
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, struct {
		Error string `json:"error"`
	}{Error: msg}, code)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

// apiHeadersMiddleware stops clients and proxies from caching or sniffing
// live API responses. Handlers may still override Cache-Control.
func (s *Server) apiHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
