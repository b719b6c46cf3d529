package predict

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/mind-engage/savings-forecast/internal/model"
)

// Transformer is the fitted preprocessing step.
type Transformer interface {
	FeatureNames() []string
	Transform(model.FeatureVector) ([]float64, error)
}

// Regressor is the fitted multi-output model.
type Regressor interface {
	Predict([]float64) ([]float64, error)
}

// Cache stores shaped results by key. Misses and errors are indistinguishable
// to the pipeline.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, r Result) error
}

// Pipeline runs align → transform → predict → shape. It holds only read-only
// fitted state and is safe for concurrent use.
type Pipeline struct {
	transformer Transformer
	regressor   Regressor
	policy      Policy
	cache       Cache
	cacheSalt   string
	logger      *zap.Logger
}

type Option func(*Pipeline)

// WithCache enables result caching. salt should change whenever the model
// artifacts change.
func WithCache(c Cache, salt string) Option {
	return func(p *Pipeline) { p.cache, p.cacheSalt = c, salt }
}

func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.logger = l } }

func NewPipeline(t Transformer, r Regressor, policy Policy, opts ...Option) *Pipeline {
	p := &Pipeline{transformer: t, regressor: r, policy: policy, logger: zap.NewNop()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewPipelineFromBundle wires a loaded artifact bundle.
func NewPipelineFromBundle(b *model.Bundle, policy Policy, opts ...Option) *Pipeline {
	return NewPipeline(b.Preprocessor, b.Regressor, policy, opts...)
}

func (p *Pipeline) FeatureNames() []string { return p.transformer.FeatureNames() }
func (p *Pipeline) PolicyName() string     { return p.policy.Name() }

// Predict runs the full pipeline for one set of request fields.
func (p *Pipeline) Predict(ctx context.Context, fields map[string]any) (Result, error) {
	var key string
	if p.cache != nil {
		k, err := cacheKey(p.cacheSalt, p.policy.Name(), fields)
		if err == nil {
			key = k
			if r, ok := p.cache.Get(ctx, key); ok {
				p.logger.Debug("prediction cache hit", zap.String("key", key))
				return r, nil
			}
		}
	}

	raw, err := p.Raw(fields)
	if err != nil {
		return Result{}, err
	}
	res, err := p.policy.Shape(raw, fields)
	if err != nil {
		return Result{}, err
	}

	if key != "" {
		if err := p.cache.Set(ctx, key, res); err != nil {
			p.logger.Warn("prediction cache write failed", zap.Error(err))
		}
	}
	return res, nil
}

// Raw returns the unshaped model output.
func (p *Pipeline) Raw(fields map[string]any) ([]float64, error) {
	fv, err := Align(fields, p.transformer.FeatureNames())
	if err != nil {
		return nil, fmt.Errorf("align features: %w", err)
	}
	x, err := p.transformer.Transform(fv)
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}
	raw, err := p.regressor.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("predict: output %d is not finite", i)
		}
	}
	return raw, nil
}
