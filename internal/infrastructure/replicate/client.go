package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/basel-ax/emojify/internal/config"
	"github.com/basel-ax/emojify/internal/domain"
)

const chunkSize = 32 * 1024

// Client represents the Replicate API client
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiToken      string
	checkInterval time.Duration
	maxAttempts   int
}

var _ domain.InferenceProvider = (*Client)(nil)

// NewClient creates a new Replicate API client
func NewClient(cfg config.ReplicateConfig) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		baseURL:       cfg.BaseURL,
		apiToken:      cfg.APIToken,
		checkInterval: cfg.CheckInterval,
		maxAttempts:   cfg.MaxAttempts,
	}
}

type prediction struct {
	ID     string                  `json:"id"`
	Status domain.PredictionStatus `json:"status"`
	Output json.RawMessage         `json:"output"`
	Error  json.RawMessage         `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Run creates a prediction for model ("owner/name"), waits for it to finish and
// streams its output files in order.
func (c *Client) Run(ctx context.Context, model string, input domain.GenerationInput) (<-chan domain.Chunk, error) {
	pred, err := c.createPrediction(ctx, model, input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create prediction")
	}

	if !pred.Status.IsTerminal() {
		pred, err = c.waitForPrediction(ctx, pred)
		if err != nil {
			return nil, err
		}
	}

	if pred.Status != domain.StatusSucceeded {
		return nil, errors.Errorf("prediction %s %s: %s", pred.ID, pred.Status, errorMessage(pred.Error))
	}

	sources := outputSources(pred.Output)
	if len(sources) == 0 {
		return nil, errors.Errorf("prediction %s returned no output", pred.ID)
	}

	chunks := make(chan domain.Chunk)
	go c.streamOutputs(ctx, sources, chunks)
	return chunks, nil
}

func (c *Client) createPrediction(ctx context.Context, model string, input domain.GenerationInput) (*prediction, error) {
	owner, name, found := strings.Cut(model, "/")
	if !found || owner == "" || name == "" {
		return nil, errors.Errorf("invalid model identifier %q", model)
	}

	body, err := json.Marshal(map[string]interface{}{"input": input})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal input")
	}

	url := fmt.Sprintf("%s/v1/models/%s/%s/predictions", c.baseURL, owner, name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Prefer", "wait")

	return c.doPrediction(httpReq, http.StatusOK, http.StatusCreated)
}

// getPrediction fetches the current state of a prediction
func (c *Client) getPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	url := pred.URLs.Get
	if url == "" {
		url = fmt.Sprintf("%s/v1/predictions/%s", c.baseURL, pred.ID)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	return c.doPrediction(httpReq, http.StatusOK)
}

// waitForPrediction polls until the prediction reaches a terminal status
func (c *Client) waitForPrediction(ctx context.Context, pred *prediction) (*prediction, error) {
	for attempt := 0; c.maxAttempts == 0 || attempt < c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.checkInterval):
		}

		current, err := c.getPrediction(ctx, pred)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check prediction status")
		}

		switch current.Status {
		case domain.StatusSucceeded, domain.StatusFailed, domain.StatusCanceled:
			return current, nil
		case domain.StatusStarting, domain.StatusProcessing:
			pred = current
		default:
			return nil, errors.Errorf("unknown prediction status: %s", current.Status)
		}
	}

	return nil, errors.Errorf("max attempts reached waiting for prediction %s", pred.ID)
}

func (c *Client) doPrediction(httpReq *http.Request, okCodes ...int) (*prediction, error) {
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if !lo.Contains(okCodes, resp.StatusCode) {
		return nil, errors.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pred prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}
	pred.Status = domain.PredictionStatus(strings.ToLower(string(pred.Status)))
	return &pred, nil
}

// streamOutputs emits every output source as chunks, closing chunks at the end
func (c *Client) streamOutputs(ctx context.Context, sources []string, chunks chan<- domain.Chunk) {
	defer close(chunks)
	for _, source := range sources {
		var err error
		if domain.IsDataURI(source) {
			err = c.streamInline(ctx, source, chunks)
		} else {
			err = c.streamURL(ctx, source, chunks)
		}
		if err != nil {
			send(ctx, chunks, domain.Chunk{Err: err})
			return
		}
	}
}

func (c *Client) streamInline(ctx context.Context, source string, chunks chan<- domain.Chunk) error {
	data, err := domain.DecodeDataURI(source)
	if err != nil {
		return err
	}
	if !send(ctx, chunks, domain.Chunk{Data: data}) {
		return ctx.Err()
	}
	return nil
}

func (c *Client) streamURL(ctx context.Context, url string, chunks chan<- domain.Chunk) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create download request")
	}
	if c.sameOrigin(httpReq.URL) {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return errors.Wrapf(err, "failed to download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status code downloading %s: %d", url, resp.StatusCode)
	}

	buf := make([]byte, chunkSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			if !send(ctx, chunks, domain.Chunk{Data: data}) {
				return ctx.Err()
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return errors.Wrapf(readErr, "failed to read %s", url)
		}
	}
}

// sameOrigin reports whether target is served by the API base URL, so the
// token is only sent there.
func (c *Client) sameOrigin(target *neturl.URL) bool {
	base, err := neturl.Parse(c.baseURL)
	if err != nil || base.Host == "" {
		return false
	}
	return strings.EqualFold(target.Scheme, base.Scheme) && strings.EqualFold(target.Host, base.Host)
}

func send(ctx context.Context, chunks chan<- domain.Chunk, chunk domain.Chunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// outputSources flattens a string or array output into its non-empty entries
func outputSources(raw json.RawMessage) []string {
	output := gjson.ParseBytes(raw)
	var values []string
	if output.IsArray() {
		values = lo.Map(output.Array(), func(item gjson.Result, _ int) string {
			if item.Type != gjson.String {
				return ""
			}
			return strings.TrimSpace(item.Str)
		})
	} else if output.Type == gjson.String {
		values = []string{strings.TrimSpace(output.Str)}
	}
	return lo.Compact(values)
}

func errorMessage(raw json.RawMessage) string {
	result := gjson.ParseBytes(raw)
	switch {
	case result.Type == gjson.String && result.Str != "":
		return result.Str
	case result.IsObject():
		for _, key := range []string{"message", "detail", "code"} {
			if v := result.Get(key).String(); v != "" {
				return v
			}
		}
	}
	return "no error message"
}
