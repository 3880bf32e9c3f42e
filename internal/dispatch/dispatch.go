package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/Brownie44l1/leaf-api/internal/metrics"
	"github.com/Brownie44l1/leaf-api/internal/model"
	"github.com/Brownie44l1/leaf-api/internal/preprocess"
)

var (
	ErrDecode               = errors.New("invalid image")
	ErrInference            = errors.New("inference failed")
	ErrUnsupportedPlantType = errors.New("unsupported plant type")
)

// FinderResult is the disease verdict of the two-stage dispatch together
// with the plant type that selected the disease model.
type FinderResult struct {
	model.InferenceResult
	Plant model.ClassLabel `json:"plant"`
}

type Options struct {
	CacheTTL       time.Duration // 0 disables result caching
	MaxImagePixels int           // 0 disables the decode size check
}

type Dispatcher struct {
	registry  *model.Registry
	results   *cache.Cache
	maxPixels int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func New(reg *model.Registry, m *metrics.Metrics, logger *zap.Logger, opts Options) *Dispatcher {
	d := &Dispatcher{
		registry:  reg,
		maxPixels: opts.MaxImagePixels,
		metrics:   m,
		logger:    logger.Named("dispatch"),
	}
	if opts.CacheTTL > 0 {
		d.results = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return d
}

// upload decodes its bytes at most once however many models look at it.
type upload struct {
	hash   string
	decode func() (image.Image, error)
}

func newUpload(data []byte, maxPixels int) *upload {
	sum := sha256.Sum256(data)
	return &upload{
		hash: hex.EncodeToString(sum[:]),
		decode: sync.OnceValues(func() (image.Image, error) {
			img, err := preprocess.Decode(data, maxPixels)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrDecode, err)
			}
			return img, nil
		}),
	}
}

// Predict classifies data with the named model.
func (d *Dispatcher) Predict(ctx context.Context, name string, data []byte) (model.InferenceResult, error) {
	mdl, err := d.registry.Get(name)
	if err != nil {
		return model.InferenceResult{}, err
	}
	return d.run(ctx, mdl, newUpload(data, d.maxPixels))
}

// Find classifies the plant type first, then hands the same image to the
// disease model routed for that type. The confidence is the mean of both
// stages.
func (d *Dispatcher) Find(ctx context.Context, data []byte) (FinderResult, error) {
	typeModel, err := d.registry.FinderModel()
	if err != nil {
		return FinderResult{}, err
	}

	up := newUpload(data, d.maxPixels)
	plant, err := d.run(ctx, typeModel, up)
	if err != nil {
		return FinderResult{}, err
	}

	diseaseModel, ok := d.registry.Route(plant.Label)
	if !ok {
		d.logger.Warn("no disease model for plant type",
			zap.String("plant", plant.Label),
			zap.Float64("confidence", plant.Confidence))
		return FinderResult{}, fmt.Errorf("%w: %s", ErrUnsupportedPlantType, plant.Label)
	}

	disease, err := d.run(ctx, diseaseModel, up)
	if err != nil {
		return FinderResult{}, err
	}

	return FinderResult{
		InferenceResult: model.InferenceResult{
			Label:      disease.Label,
			Confidence: (plant.Confidence + disease.Confidence) / 2,
		},
		Plant: plant.Label,
	}, nil
}

func (d *Dispatcher) run(ctx context.Context, mdl model.Model, up *upload) (model.InferenceResult, error) {
	key := mdl.Name() + ":" + up.hash
	if d.results != nil {
		if v, ok := d.results.Get(key); ok {
			d.metrics.CacheHits.Inc()
			return v.(model.InferenceResult), nil
		}
	}

	img, err := up.decode()
	if err != nil {
		return model.InferenceResult{}, err
	}

	meta := mdl.Metadata()
	input, err := preprocess.Tensor(img, meta)
	if err != nil {
		return model.InferenceResult{}, fmt.Errorf("%w: %s: %v", ErrInference, mdl.Name(), err)
	}

	if err := ctx.Err(); err != nil {
		return model.InferenceResult{}, err
	}

	start := time.Now()
	pred, err := mdl.Run(input)
	elapsed := time.Since(start)
	d.metrics.InferenceDuration.WithLabelValues(mdl.Name()).Observe(elapsed.Seconds())
	if err != nil {
		return model.InferenceResult{}, fmt.Errorf("%w: %s: %v", ErrInference, mdl.Name(), err)
	}

	res, err := model.Classify(pred, meta.Classes)
	if err != nil {
		return model.InferenceResult{}, fmt.Errorf("%w: %s: %v", ErrInference, mdl.Name(), err)
	}

	d.metrics.Predictions.WithLabelValues(mdl.Name(), res.Label).Inc()
	d.logger.Debug("prediction",
		zap.String("model", mdl.Name()),
		zap.String("label", res.Label),
		zap.Float64("confidence", res.Confidence),
		zap.Duration("took", elapsed))

	if d.results != nil {
		d.results.SetDefault(key, res)
	}
	return res, nil
}
