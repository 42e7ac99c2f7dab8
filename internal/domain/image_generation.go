package domain

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// GenerationInput is the input object sent to the inference provider
type GenerationInput struct {
	InputImage   ImagePayload `json:"input_image"`
	Prompt       string       `json:"prompt"`
	AspectRatio  string       `json:"aspect_ratio"`
	LoraStrength float64      `json:"lora_strength"`
	OutputFormat string       `json:"output_format"`
}

// GenerationRequest is the body of POST /api/predictions after validation
type GenerationRequest struct {
	Image string
}

// Chunk is one piece of the provider's output stream. A chunk with a non-nil
// Err is the last one sent.
type Chunk struct {
	Data []byte
	Err  error
}

// InferenceProvider runs a model on the external inference service
type InferenceProvider interface {
	// Run starts the model and returns its output as an ordered stream of
	// chunks. The channel is closed once the output is exhausted.
	Run(ctx context.Context, model string, input GenerationInput) (<-chan Chunk, error)
}

// ParseGenerationRequest extracts the image field from a JSON request body.
// Falsy values (absent, null, "", false, 0) count as no image. A body that is
// not JSON is not a ValidationError.
func ParseGenerationRequest(body []byte) (GenerationRequest, error) {
	if !gjson.ValidBytes(body) {
		return GenerationRequest{}, errors.New("request body is not valid JSON")
	}
	image := gjson.GetBytes(body, "image")
	switch image.Type {
	case gjson.Null, gjson.False:
		return GenerationRequest{}, NewValidationError(MsgNoImage)
	case gjson.Number:
		if image.Num == 0 {
			return GenerationRequest{}, NewValidationError(MsgNoImage)
		}
		return GenerationRequest{}, NewValidationError(MsgInvalidImage)
	case gjson.String:
		if image.Str == "" {
			return GenerationRequest{}, NewValidationError(MsgNoImage)
		}
		if !IsInlineImage(image.Str) {
			return GenerationRequest{}, NewValidationError(MsgInvalidImage)
		}
		return GenerationRequest{Image: image.Str}, nil
	default:
		return GenerationRequest{}, NewValidationError(MsgInvalidImage)
	}
}
