package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openfluids/tankwatch/internal/session"
)

// stateResponse is the JSON representation of the dashboard state.
type stateResponse struct {
	Connection string                   `json:"connection"`
	Mode       session.Mode             `json:"mode"`
	Channels   map[session.Channel]bool `json:"channels"`
	TankLevel  float64                  `json:"tank_level"`
}

// setChannelRequest is the body for PUT /channels/{channel}.
type setChannelRequest struct {
	On bool `json:"on"`
}

// setModeRequest is the body for PUT /mode.
type setModeRequest struct {
	Mode string `json:"mode"`
}

// toStateResponse converts a session snapshot to its API representation.
func toStateResponse(snap session.Snapshot) stateResponse {
	return stateResponse{
		Connection: snap.ConnectionName(),
		Mode:       snap.Mode,
		Channels:   snap.Channels,
		TankLevel:  snap.TankLevel,
	}
}

// handleGetState returns the current dashboard state.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toStateResponse(s.session.Snapshot()))
}

// handleSetChannel commands a single channel on or off.
//
// Returns 404 for channels outside the fixed set, 409 when automatic mode
// holds write authority, and the post-command state on success.
func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "channel")
	channel, ok := session.ParseChannel(name)
	if !ok {
		writeNotFound(w, "unknown channel: "+name)
		return
	}

	var req setChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	if err := s.session.SetChannel(channel, req.On); err != nil {
		switch {
		case errors.Is(err, session.ErrAutomationActive):
			writeConflict(w, "channel commands require manual mode")
		case errors.Is(err, session.ErrSessionClosed):
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "control session is closed")
		default:
			writeInternalError(w, "channel command failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, toStateResponse(s.session.Snapshot()))
}

// handleSetMode switches between manual and automatic control.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	mode, ok := session.ParseMode(req.Mode)
	if !ok {
		writeBadRequest(w, "mode must be \"manual\" or \"automatic\"")
		return
	}

	if err := s.session.SetMode(mode == session.ModeAutomatic); err != nil {
		if errors.Is(err, session.ErrSessionClosed) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "control session is closed")
			return
		}
		writeInternalError(w, "mode change failed")
		return
	}

	writeJSON(w, http.StatusOK, toStateResponse(s.session.Snapshot()))
}
