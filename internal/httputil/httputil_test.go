package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"validation", apperr.Validation("Name is required"), http.StatusBadRequest, `{"error":"Name is required"}`},
		{"unauthorized", apperr.Unauthorized("Unauthorized"), http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"forbidden", apperr.Forbidden("Invalid token"), http.StatusForbidden, `{"error":"Invalid token"}`},
		{"not found", apperr.NotFound("League not found"), http.StatusNotFound, `{"error":"League not found"}`},
		{"upstream", apperr.Upstream(errors.New("bad gateway")), http.StatusBadGateway, `{"error":"bad gateway"}`},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, `{"error":"Internal Server Error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			status := WriteError(rec, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Anna"}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, "Anna", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := DecodeJSON(httptest.NewRecorder(), req, &dst)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Invalid JSON body", apperr.Message(err))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", MaxBodyBytes+1)))
	_, err = ReadBody(httptest.NewRecorder(), req)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
