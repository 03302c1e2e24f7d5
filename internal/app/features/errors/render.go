// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/arpufrlfoundation-maker/arpufrl-foundation-sub004/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

// Body is the JSON shape of every error response.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Entry   string `json:"entry,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Write maps err to a status code and writes it. Server errors are logged
// and their detail withheld from the client.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, op string, err error) {
	status := apperr.HTTPStatus(err)
	body := Body{Error: apperr.KindOf(err).String(), Message: err.Error()}

	var ae *apperr.Error
	if stderrors.As(err, &ae) {
		body.Entry = ae.Entry
	}

	if status >= http.StatusInternalServerError {
		log.Error(op+" failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		body = Body{Error: "internal", Message: "Something went wrong. Please try again."}
	} else {
		log.Debug(op+" rejected",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	WriteJSON(w, status, body)
}

// Decode reads a JSON request body into v. Unknown fields and trailing data
// are rejected as validation errors.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return apperr.Validation("decode request", "request body is empty")
		}
		return apperr.Validation("decode request", "malformed JSON: %v", err)
	}
	if dec.More() {
		return apperr.Validation("decode request", "request body must contain a single JSON object")
	}
	return nil
}
