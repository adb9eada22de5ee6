package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// apiError is the wire shape of every error response.
type apiError struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Details []fieldError `json:"details,omitempty"`
}

// fieldError describes a single invalid input field.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// pagination echoes the paging window of a list response.
// hasMore is true when the page came back full.
type pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// listPage is the envelope for every paginated list response.
type listPage struct {
	Data       any        `json:"data"`
	TotalCount *int       `json:"totalCount,omitempty"`
	Pagination pagination `json:"pagination"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, apiError{Error: kind, Message: message})
}

// writeInvalid reports validation failures with per-field details.
func writeInvalid(w http.ResponseWriter, details []fieldError) {
	writeJSON(w, http.StatusBadRequest, apiError{
		Error:   "invalid_input",
		Message: "the provided data is not valid",
		Details: details,
	})
}

func writeInternal(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "internal_error", "an unexpected error occurred")
}

// pageParams parses limit/offset query parameters with a per-endpoint default
// page size. Values are clamped to sane bounds.
func pageParams(r *http.Request, defLimit int) (limit, offset int) {
	limit = defLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// pathID parses a numeric URL parameter; ok is false for anything that is not
// a positive integer.
func pathID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}
