package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

// errorBody is the body of every non-2xx response
type errorBody struct {
	Error string `json:"error"`
}

// badRequest marks client errors that are safe to echo back
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func errBadRequest(msg string) error { return badRequest{msg: msg} }

// writeJSON writes v as application/json with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoMatchFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status. Internal errors are not
// echoed to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
		h.logger.Error("request failed", requestFields(r, err)...)
	} else {
		h.logger.Debug("request rejected", requestFields(r, err)...)
	}

	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a JSON body into T, rejecting unknown fields
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var in T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, errBadRequest("invalid JSON body: " + err.Error())
	}
	return in, nil
}
