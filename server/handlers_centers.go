package server

import (
	"net/http"
	"strconv"
)

const defaultPageSize = 50

// CentersHandler lists clinic centers. Supports ?offset= and ?limit=.
func (s *Server) CentersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", defaultPageSize)

		list, err := s.repos.Centers.List(offset, limit)
		if err != nil {
			s.logger.Err(err).Msg("failed to list centers")
			writeJSONError(w, "server_error", "Failed to list centers", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
