package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/matthewbaird/adminkit/internal/backend"
	"github.com/matthewbaird/adminkit/internal/store"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parsePagination extracts a 1-based page and limit patch from query
// params; absent params leave the store's current values in place.
func parsePagination(r *http.Request) store.PaginationPatch {
	var p store.PaginationPatch
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			p.Page = &n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			if n > 100 {
				n = 100
			}
			p.Limit = &n
		}
	}
	return p
}

// storeErrorToHTTP maps store and backend errors to responses.
func storeErrorToHTTP(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrUnknownKey):
		writeError(w, http.StatusNotFound, "UNKNOWN_STORE", err.Error())
	case errors.Is(err, store.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "STORE_CLOSED", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusBadGateway, "FETCH_FAILED", err.Error())
	}
}
