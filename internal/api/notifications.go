package api

import (
	"net/http"
)

// handleNotificationsWS attaches the caller's browser to the reminder push
// channel. Browsers pass the key as ?api_key= on the upgrade request.
func (s *Server) handleNotificationsWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Hub == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "browser notifications are disabled")
		return
	}
	if !websocketUpgrade(r) {
		respondError(w, http.StatusBadRequest, "invalid_request", "websocket upgrade required")
		return
	}

	user := UserFromContext(r.Context())
	s.deps.Hub.ServeWS(w, r, user.ID)
}
