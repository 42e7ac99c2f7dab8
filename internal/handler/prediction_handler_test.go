package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basel-ax/emojify/internal/config"
	"github.com/basel-ax/emojify/internal/domain"
	"github.com/basel-ax/emojify/internal/service"
)

const testImage = "data:image/png;base64,iVBORw0KGgo="

type stubProvider struct {
	chunks []string
	err    error
	calls  int
}

func (s *stubProvider) Run(ctx context.Context, model string, input domain.GenerationInput) (<-chan domain.Chunk, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan domain.Chunk)
	go func() {
		defer close(ch)
		for _, c := range s.chunks {
			ch <- domain.Chunk{Data: []byte(c)}
		}
	}()
	return ch, nil
}

func newTestConfig(token string) *config.Config {
	return &config.Config{
		Replicate: config.ReplicateConfig{APIToken: token},
		Server:    config.ServerConfig{CORSAllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func post(t *testing.T, cfg *config.Config, provider *stubProvider, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := NewRouter(cfg, service.NewPredictionService(cfg, provider))

	req := httptest.NewRequest(http.MethodPost, "/api/predictions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestCreatePredictionSuccess(t *testing.T) {
	provider := &stubProvider{chunks: []string{"A", "B", "C"}}
	rec, body := post(t, newTestConfig("r8_test"), provider, `{"image":"`+testImage+`"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "succeeded", body["status"])
	assert.NotEmpty(t, body["id"])
	assert.NotEmpty(t, body["created_at"])

	output, ok := body["output"].([]interface{})
	require.True(t, ok)
	require.Len(t, output, 1)

	data, err := domain.ImagePayload(output[0].(string)).Decode()
	require.NoError(t, err)
	assert.Equal(t, "ABC", string(data))
}

func TestCreatePredictionValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "missing field", body: `{}`, want: domain.MsgNoImage},
		{name: "null", body: `{"image":null}`, want: domain.MsgNoImage},
		{name: "empty string", body: `{"image":""}`, want: domain.MsgNoImage},
		{name: "number", body: `{"image":42}`, want: domain.MsgInvalidImage},
		{name: "object", body: `{"image":{"data":"x"}}`, want: domain.MsgInvalidImage},
		{name: "url", body: `{"image":"https://example.com/a.png"}`, want: domain.MsgInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &stubProvider{chunks: []string{"A"}}
			rec, body := post(t, newTestConfig("r8_test"), provider, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]interface{}{"error": tt.want}, body)
			assert.Zero(t, provider.calls)
		})
	}
}

func TestCreatePredictionMalformedBody(t *testing.T) {
	provider := &stubProvider{chunks: []string{"A"}}
	rec, body := post(t, newTestConfig("r8_test"), provider, `{"image":`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.NotEmpty(t, body["detail"])
	assert.Zero(t, provider.calls)
}

func TestCreatePredictionMissingToken(t *testing.T) {
	provider := &stubProvider{chunks: []string{"A"}}
	rec, body := post(t, newTestConfig(""), provider, `{"image":"`+testImage+`"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "REPLICATE_API_TOKEN")
	assert.NotContains(t, body, "detail")
	assert.Zero(t, provider.calls)
}

func TestCreatePredictionProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream exploded")}
	rec, body := post(t, newTestConfig("r8_test"), provider, `{"image":"`+testImage+`"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.Equal(t, "upstream exploded", body["detail"])
	assert.Equal(t, 1, provider.calls)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := newTestConfig("r8_test")
	router := NewRouter(cfg, service.NewPredictionService(cfg, &stubProvider{}))

	req := httptest.NewRequest(http.MethodOptions, "/api/predictions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
