package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/enlightenmonitor/enlightenmonitor/pkg/log"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/types"
	"github.com/enlightenmonitor/enlightenmonitor/pkg/widget"
)

const maxHistoryRange = 31 * 24 * time.Hour

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := parseTimeRange(r, time.Now())
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	snapshots, err := s.storage.GetSnapshotHistory(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get snapshot history", slog.Any("error", err))
		writeJSONError(w, "failed to get history", http.StatusInternalServerError)
		return
	}

	// If the range ends before today (midnight today), cache for 24 hours.
	// Otherwise, cache for 1 minute.
	y, mo, d := time.Now().In(s.loc).Date()
	today := time.Date(y, mo, d, 0, 0, 0, 0, s.loc)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}

	if r.URL.Query().Get("format") == "chart" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write([]byte(widget.History(snapshots, 60, 10) + "\n")); err != nil {
			panic(http.ErrAbortHandler)
		}
		return
	}
	if snapshots == nil {
		snapshots = []types.Snapshot{}
	}
	writeJSON(w, snapshots, http.StatusOK)
}

// parseTimeRange reads RFC3339 start and end query parameters, defaulting to
// the 24 hours before now when either is missing.
func parseTimeRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		return now.Add(-24 * time.Hour), now, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > maxHistoryRange {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 31 days")
	}

	return start, end, nil
}
