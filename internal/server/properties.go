package server

import "net/http"

func (s *Server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	property, err := s.properties.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (s *Server) handleListProperties(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	list, err := s.properties.ListByUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"properties": list})
}
