package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/monitor"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/refresh"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
)

type configResponse struct {
	types.RefreshConfig
	Intervals []string `json:"intervals"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, err := s.monitor.Config(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get config", slog.Any("error", err))
		writeJSONError(w, "failed to get config", http.StatusInternalServerError)
		return
	}
	writeJSON(w, configResponse{RefreshConfig: cfg, Intervals: refresh.Intervals}, http.StatusOK)
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// limit body size to 1MB
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	var cfg types.RefreshConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := s.monitor.Configure(ctx, cfg); err != nil {
		if errors.Is(err, monitor.ErrUnknownInterval) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to save config", slog.Any("error", err))
		writeJSONError(w, "failed to save config", http.StatusInternalServerError)
		return
	}

	// a new installation should show up right away, like the configuration
	// screen triggering an update when it closes
	if _, err := s.monitor.Refresh(ctx); err != nil {
		log.Ctx(ctx).InfoContext(ctx, "refresh after configure failed", slog.Any("error", err))
	}

	s.handleGetConfig(w, r)
}
