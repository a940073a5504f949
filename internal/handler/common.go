package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// companyIDFromRequest parses the {cid} path parameter. Routes using it
// are mounted under /companies/{cid}; company membership is enforced by
// middleware before the handler runs.
func companyIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "cid"))
}

// targetFromRequest parses the {type}/{number} path pair. The type
// segment is accepted case-insensitively ("table" and "TABLE" are the
// same key).
func targetFromRequest(r *http.Request) (targetType, targetNumber string) {
	return strings.ToUpper(chi.URLParam(r, "type")), chi.URLParam(r, "number")
}

// parsePagination reads limit/offset query params with a default page of
// 20 and a cap of 100.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func formatItemError(idx int, msg string) string {
	return "items[" + strconv.Itoa(idx) + "]: " + msg
}
