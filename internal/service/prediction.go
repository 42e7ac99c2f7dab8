package service

import (
	"bytes"
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/basel-ax/emojify/internal/config"
	"github.com/basel-ax/emojify/internal/domain"
)

// Fixed generation parameters; callers only supply the image.
const (
	EmojiModel        = "flux-kontext-apps/kontext-emoji-maker"
	EmojiPrompt       = "A TOK emoji"
	EmojiAspectRatio  = "match_input_image"
	EmojiLoraStrength = 1.0
	EmojiOutputFormat = "png"

	outputMediaType = "image/png"
)

// PredictionService relays emoji generation requests to the inference provider
type PredictionService struct {
	provider domain.InferenceProvider
	config   *config.Config
	now      func() time.Time
	newID    func() string
}

// NewPredictionService creates a new prediction service
func NewPredictionService(cfg *config.Config, provider domain.InferenceProvider) *PredictionService {
	return &PredictionService{
		provider: provider,
		config:   cfg,
		now:      time.Now,
		newID: func() string {
			return "run-" + uuid.NewString()
		},
	}
}

// CreatePrediction turns one inline image into an emoji. It makes exactly one
// provider call and never retries.
func (s *PredictionService) CreatePrediction(ctx context.Context, image string) (*domain.PredictionResult, error) {
	// The handler checks these first; they are repeated here for callers that
	// skip the HTTP layer.
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	if image == "" {
		return nil, domain.NewValidationError(domain.MsgNoImage)
	}
	if !domain.IsInlineImage(image) {
		return nil, domain.NewValidationError(domain.MsgInvalidImage)
	}

	result := &domain.PredictionResult{
		ID:        s.newID(),
		Status:    domain.StatusStarting,
		CreatedAt: s.now(),
	}

	input := domain.GenerationInput{
		InputImage:   domain.ImagePayload(image),
		Prompt:       EmojiPrompt,
		AspectRatio:  EmojiAspectRatio,
		LoraStrength: EmojiLoraStrength,
		OutputFormat: EmojiOutputFormat,
	}

	startedAt := s.now()
	result.StartedAt = &startedAt

	chunks, err := s.provider.Run(ctx, EmojiModel, input)
	if err != nil {
		log.Printf("Prediction %s failed: %v", result.ID, err)
		return nil, domain.NewRelayError(err)
	}

	data, err := assemble(ctx, chunks)
	if err != nil {
		log.Printf("Prediction %s failed while reading output: %v", result.ID, err)
		return nil, domain.NewRelayError(err)
	}
	if len(data) == 0 {
		log.Printf("Prediction %s returned an empty image", result.ID)
		return nil, domain.NewRelayError(errors.New("prediction produced an empty image"))
	}

	completedAt := s.now()
	result.CompletedAt = &completedAt
	result.Status = domain.StatusSucceeded
	result.Output = []domain.ImagePayload{domain.NewImagePayload(outputMediaType, data)}

	log.Printf("Prediction %s succeeded in %s (%d bytes)", result.ID, completedAt.Sub(startedAt), len(data))
	return result, nil
}

// assemble concatenates the chunks in arrival order
func assemble(ctx context.Context, chunks <-chan domain.Chunk) ([]byte, error) {
	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "output stream interrupted")
		case chunk, ok := <-chunks:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil, errors.Wrap(err, "output stream interrupted")
				}
				return buf.Bytes(), nil
			}
			if chunk.Err != nil {
				return nil, errors.Wrap(chunk.Err, "failed to read output stream")
			}
			buf.Write(chunk.Data)
		}
	}
}
