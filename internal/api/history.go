package api

import (
	"net/http"
	"strconv"

	"github.com/openfluids/tankwatch/internal/history"
)

// handleListHistory returns command log entries, most recent first.
//
// Query parameters:
//   - kind: filter by entry kind ("channel" or "mode")
//   - channel: filter by channel name
//   - limit: page size (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "command log is not configured")
		return
	}

	filter := history.Filter{
		Kind:    r.URL.Query().Get("kind"),
		Channel: r.URL.Query().Get("channel"),
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = limit
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = offset
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeInternalError(w, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
