package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
)

// MaxBodyBytes bounds every JSON request body.
const MaxBodyBytes = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// ReadBody returns the raw request body, refusing bodies over MaxBodyBytes.
func ReadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.ErrValidation, Message: "Invalid request body", Err: err}
	}
	return body, nil
}

// DecodeJSON reads the request body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := ReadBody(w, r)
	if err != nil {
		return err
	}
	return DecodeBytes(body, v)
}

// DecodeBytes unmarshals an already read body into v.
func DecodeBytes(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &apperr.Error{Kind: apperr.ErrValidation, Message: "Invalid JSON body", Err: err}
	}
	return nil
}
