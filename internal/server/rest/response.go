package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/taskflow/internal/server/apperr"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: true, Message: msg})
}

// writeError renders err as the failure envelope. Server-side failures are
// logged in full; in production their message is replaced.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	status := ae.Status()

	msg := ae.Message
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "kind", ae.Kind.String(), "error", err)
		if h.production {
			msg = "internal server error"
		}
	}
	writeJSON(w, status, envelope{Success: false, Message: msg, Details: ae.Details})
}

// decodeJSON reads a single JSON object into v. Unknown fields are an error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty", nil)
		}
		return apperr.Validation("invalid JSON body", err.Error())
	}
	return nil
}

// validator is implemented by every command in package validation.
type validator interface {
	Validate() error
}

// bind decodes and validates a request body.
func bind(w http.ResponseWriter, r *http.Request, cmd validator) error {
	if err := decodeJSON(w, r, cmd); err != nil {
		return err
	}
	return cmd.Validate()
}
