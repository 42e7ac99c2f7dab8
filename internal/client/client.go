// Package client calls the emoji prediction endpoint on behalf of a user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/basel-ax/emojify/internal/domain"
)

const predictionsPath = "/api/predictions"

// APIError is a non-2xx answer from the server, reduced to the message a user
// should see.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to an emojify server
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the server at baseURL. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// CreatePrediction submits one payload and waits for the generated emoji
func (c *Client) CreatePrediction(ctx context.Context, payload domain.ImagePayload) (*domain.PredictionResult, error) {
	body, err := json.Marshal(map[string]string{"image": string(payload)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+predictionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: ErrorMessage(resp, respBody)}
	}

	var result domain.PredictionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode prediction")
	}
	return &result, nil
}

// ErrorMessage picks the most specific message in an error response: detail,
// then error, then the status line.
func ErrorMessage(resp *http.Response, body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		if detail := parsed.Get("detail").String(); detail != "" {
			return detail
		}
		if msg := parsed.Get("error").String(); msg != "" {
			return msg
		}
		return "Failed to start prediction"
	}
	return fmt.Sprintf("Server error: %s", resp.Status)
}
