package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/leaf-api/internal/dispatch"
	"github.com/Brownie44l1/leaf-api/internal/model"
	"github.com/Brownie44l1/leaf-api/internal/preprocess"
)

const (
	pingGreeting = "Hello, World!, I am alive"
	formField    = "file"
)

// Predictor is the part of the dispatcher the HTTP layer needs.
type Predictor interface {
	Predict(ctx context.Context, name string, data []byte) (model.InferenceResult, error)
	Find(ctx context.Context, data []byte) (dispatch.FinderResult, error)
}

type Handler struct {
	predictor Predictor
	registry  *model.Registry
	maxUpload int64
	logger    *zap.Logger
}

func NewHandler(p Predictor, reg *model.Registry, maxUpload int64, logger *zap.Logger) *Handler {
	return &Handler{
		predictor: p,
		registry:  reg,
		maxUpload: maxUpload,
		logger:    logger.Named("handlers"),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, pingGreeting)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "models": h.registry.Names()})
}

type modelInfo struct {
	Name    string             `json:"name"`
	Classes []model.ClassLabel `json:"classes"`
	Default bool               `json:"default,omitempty"`
}

func (h *Handler) Models(c *gin.Context) {
	names := h.registry.Names()
	out := make([]modelInfo, 0, len(names))
	for _, name := range names {
		mdl, err := h.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, modelInfo{
			Name:    name,
			Classes: mdl.Metadata().Classes,
			Default: name == h.registry.Default(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"models": out, "finder": h.registry.HasFinder()})
}

// Predict returns the handler serving one model. Every single-stage route
// goes through here; only the model name differs.
func (h *Handler) Predict(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, ok := h.readUpload(c)
		if !ok {
			return
		}

		result, err := h.predictor.Predict(c.Request.Context(), name, data)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) Finder(c *gin.Context) {
	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.predictor.Find(c.Request.Context(), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) readUpload(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	header, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided. Use 'file' as the form field name"})
		return nil, false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return nil, false
	}

	h.logger.Debug("received file",
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
		zap.String("request_id", c.GetString(requestIDKey)))
	return data, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Prediction failed"
	switch {
	case errors.Is(err, preprocess.ErrImageTooLarge):
		status, msg = http.StatusRequestEntityTooLarge, "image dimensions too large"
	case errors.Is(err, dispatch.ErrDecode):
		status, msg = http.StatusBadRequest, "Invalid image format. Supported: JPEG, PNG, GIF, BMP, TIFF, WebP"
	case errors.Is(err, dispatch.ErrUnsupportedPlantType):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, model.ErrUnknownModel):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, msg = 499, "request canceled"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("prediction error", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
	} else {
		h.logger.Info("prediction rejected", zap.Error(err), zap.String("request_id", c.GetString(requestIDKey)))
	}
	c.JSON(status, gin.H{"error": msg})
}
