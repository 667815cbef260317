package webui

import (
	"encoding/json"
	"net/http"

	"projecthub/pkg/persistence"
)

// writeJSON sends a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// writeEntity sends a mutating-endpoint success body: the entity's fields
// flattened into the response plus the ok flag every mutation carries.
func (s *Server) writeEntity(w http.ResponseWriter, entity any) {
	data, err := json.Marshal(entity)
	if err != nil {
		s.logger.Error("Failed to encode entity: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	body := make(map[string]any)
	if err := json.Unmarshal(data, &body); err != nil {
		s.logger.Error("Failed to flatten entity: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	body["ok"] = true
	s.writeJSON(w, http.StatusOK, body)
}

// writeError sends a JSON error body. Internal error text never reaches the
// client; callers pass a fixed message and log the underlying error.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps a repository error to the wire: missing rows are 404,
// everything else is a generic 500.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if persistence.IsNotFound(err) {
		s.writeError(w, http.StatusNotFound, "Not found")
		return
	}
	s.logger.Error("Store operation failed: %v", err)
	s.writeError(w, http.StatusInternalServerError, "Internal server error")
}

// recordActivity logs a mutation to the activity feed. Failures are logged
// and swallowed; the feed is best-effort and never fails the request.
func (s *Server) recordActivity(activityType, message string, metadata map[string]string) {
	if err := s.store.RecordActivity(activityType, message, "", metadata); err != nil {
		s.logger.Warn("Failed to record activity %s: %v", activityType, err)
	}
}
