package handler

import (
	"context"
	"io"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/basel-ax/emojify/internal/config"
	"github.com/basel-ax/emojify/internal/domain"
)

// PredictionCreator is the relay operation the handler exposes
type PredictionCreator interface {
	CreatePrediction(ctx context.Context, image string) (*domain.PredictionResult, error)
}

// PredictionHandler serves POST /api/predictions
type PredictionHandler struct {
	service PredictionCreator
	config  *config.Config
}

// NewPredictionHandler creates a new prediction handler
func NewPredictionHandler(cfg *config.Config, service PredictionCreator) *PredictionHandler {
	return &PredictionHandler{service: service, config: cfg}
}

// NewRouter builds the gin engine with CORS and the prediction route
func NewRouter(cfg *config.Config, service PredictionCreator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSAllowedOrigins,
		AllowMethods:  []string{http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	h := NewPredictionHandler(cfg, service)
	api := r.Group("/api")
	{
		api.POST("/predictions", h.CreatePrediction)
	}
	return r
}

// CreatePrediction relays one image and answers 201 with the prediction
func (h *PredictionHandler) CreatePrediction(c *gin.Context) {
	// configuration is checked before the body is read
	if err := h.config.Validate(); err != nil {
		h.writeError(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.writeError(c, errors.Wrap(err, "failed to read request body"))
		return
	}

	req, err := domain.ParseGenerationRequest(body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.service.CreatePrediction(c.Request.Context(), req.Image)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *PredictionHandler) writeError(c *gin.Context, err error) {
	var validationErr *domain.ValidationError
	var configErr *domain.ConfigurationError
	var relayErr *domain.RelayError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.As(err, &configErr):
		log.Printf("Configuration error: %v", configErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": configErr.Message})
	case errors.As(err, &relayErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error", "detail": relayErr.Detail()})
	default:
		log.Printf("Prediction error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error", "detail": err.Error()})
	}
}
