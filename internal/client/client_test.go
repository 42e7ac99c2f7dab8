package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basel-ax/emojify/internal/domain"
)

func TestCreatePrediction(t *testing.T) {
	payload := domain.NewImagePayload("image/png", []byte("in"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/predictions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, string(payload), req["image"])

		w.WriteHeader(http.StatusCreated)
		out := domain.NewImagePayload("image/png", []byte("out"))
		_, _ = io.WriteString(w, `{"id":"run-1","status":"succeeded","output":["`+string(out)+`"],"created_at":"2026-01-01T00:00:00Z"}`)
	}))
	defer server.Close()

	result, err := NewClient(server.URL+"/", nil).CreatePrediction(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.ID)
	assert.Equal(t, domain.StatusSucceeded, result.Status)
	out, ok := result.FirstOutput()
	require.True(t, ok)
	data, err := out.Decode()
	require.NoError(t, err)
	assert.Equal(t, "out", string(data))
}

func TestCreatePredictionErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "detail wins", status: 500, body: `{"error":"Internal Server Error","detail":"model offline"}`, want: "model offline"},
		{name: "error only", status: 400, body: `{"error":"No image provided"}`, want: "No image provided"},
		{name: "json without fields", status: 502, body: `{}`, want: "Failed to start prediction"},
		{name: "not json", status: 502, body: `<html>bad gateway</html>`, want: "Server error: 502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL, nil).CreatePrediction(context.Background(), "data:image/png;base64,aGk=")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}
