package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/enlighten"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/monitor"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/refresh"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/widget"
)

type snapshotResponse struct {
	types.Display
	Widget widget.View `json:"widget"`
}

type throttledResponse struct {
	Error    string          `json:"error"`
	Throttle throttleDetails `json:"throttle"`
	snapshotResponse
}

type throttleDetails struct {
	LastRefresh       time.Time `json:"lastRefresh"`
	MinimumIntervalMs int64     `json:"minimumIntervalMs"`
}

func (s *Server) snapshotResponse() snapshotResponse {
	d := s.monitor.Display(s.loc)
	return snapshotResponse{Display: d, Widget: s.face.View(d)}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshotResponse(), http.StatusOK)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, err := s.monitor.Refresh(ctx)
	var cfgErr *enlighten.ConfigurationError
	switch {
	case err == nil:
		writeJSON(w, s.snapshotResponse(), http.StatusOK)
	case errors.Is(err, monitor.ErrThrottled):
		state := types.ThrottleState{MinimumInterval: refresh.Floor}
		if last, err := s.storage.GetLastRefresh(ctx); err == nil {
			state.LastRefresh = last
		} else {
			log.Ctx(ctx).WarnContext(ctx, "failed to get last refresh", slog.Any("error", err))
		}
		if !state.LastRefresh.IsZero() {
			retry := time.Until(state.LastRefresh.Add(state.MinimumInterval))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		}
		writeJSON(w, throttledResponse{
			Error: err.Error(),
			Throttle: throttleDetails{
				LastRefresh:       state.LastRefresh,
				MinimumIntervalMs: state.MinimumInterval.Milliseconds(),
			},
			snapshotResponse: s.snapshotResponse(),
		}, http.StatusTooManyRequests)
	case errors.Is(err, monitor.ErrRefreshInProgress):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, monitor.ErrNotConfigured):
		writeJSONError(w, err.Error(), http.StatusPreconditionFailed)
	case errors.As(err, &cfgErr):
		log.Ctx(ctx).ErrorContext(ctx, "monitor is misconfigured", slog.Any("error", err))
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	case enlighten.IsAPIError(err), enlighten.IsParseError(err):
		writeJSONError(w, err.Error(), http.StatusBadGateway)
	default:
		log.Ctx(ctx).ErrorContext(ctx, "failed to refresh", slog.Any("error", err))
		writeJSONError(w, "failed to refresh", http.StatusInternalServerError)
	}
}
