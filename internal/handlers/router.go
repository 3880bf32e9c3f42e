package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownie44l1/leaf-api/internal/metrics"
	"github.com/Brownie44l1/leaf-api/internal/model"
)

// Endpoint describes one registered route for the startup banner.
type Endpoint struct {
	Method, Path, Description string
}

// NewRouter registers /predict for the default model, /predict/<name> for
// every disease model and /predict/finder when two-stage dispatch is
// configured. The plant type model only answers through the finder.
func NewRouter(h *Handler, reg *model.Registry, m *metrics.Metrics, origins []string, logger *zap.Logger) (*gin.Engine, []Endpoint) {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), CORS(origins), AccessLog(logger, m))

	var endpoints []Endpoint
	add := func(method, path, desc string, handler gin.HandlerFunc) {
		r.Handle(method, path, handler)
		endpoints = append(endpoints, Endpoint{method, path, desc})
	}

	add("GET", "/ping", "Liveness greeting", h.Ping)
	add("GET", "/health", "Health check", h.Health)
	add("GET", "/models", "Loaded models and labels", h.Models)
	add("GET", "/metrics", "Prometheus metrics", gin.WrapH(m.Handler()))

	var typeModel string
	if kind, err := reg.FinderModel(); err == nil {
		typeModel = kind.Name()
	}

	add("POST", "/predict", "Predict with "+reg.Default(), h.Predict(reg.Default()))
	for _, name := range reg.Names() {
		if name == typeModel {
			continue
		}
		add("POST", "/predict/"+name, "Predict with "+name, h.Predict(name))
	}
	if reg.HasFinder() {
		add("POST", "/predict/"+model.FinderName, "Find plant type, then disease", h.Finder)
	}

	return r, endpoints
}
