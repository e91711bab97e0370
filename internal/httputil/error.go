package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
)

type errorBody struct {
	Error string `json:"error"`
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	WriteJSON(w, http.StatusNotFound, errorBody{Error: msg})
}

func Unauthorized(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnauthorized, errorBody{Error: msg})
}

func Forbidden(w http.ResponseWriter, msg string, err error) {
	slog.Warn("forbidden", "message", msg, "error", err)
	WriteJSON(w, http.StatusForbidden, errorBody{Error: msg})
}

func TooManyRequests(w http.ResponseWriter) {
	WriteJSON(w, http.StatusTooManyRequests, errorBody{Error: http.StatusText(http.StatusTooManyRequests)})
}

// WriteError maps err onto a status code by its apperr kind and writes it as
// {"error": message}. Errors of no known kind are logged and hidden behind a
// generic 500. The written status is returned.
func WriteError(w http.ResponseWriter, err error) int {
	msg := apperr.Message(err)
	switch {
	case errors.Is(err, apperr.ErrValidation):
		BadRequest(w, msg, err)
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		Unauthorized(w, msg)
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		Forbidden(w, msg, err)
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		NotFound(w, msg, err)
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUpstream), errors.Is(err, apperr.ErrNetworkUnavailable):
		slog.Error("upstream failure", "error", err)
		WriteJSON(w, http.StatusBadGateway, errorBody{Error: msg})
		return http.StatusBadGateway
	default:
		InternalServerError(w, "request failed", err)
		return http.StatusInternalServerError
	}
}
