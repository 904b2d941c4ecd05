package usage

import (
	"prepaid-usage-lab/internal/domain"
)

// Stage names reported to an Observer, in execution order.
const (
	StageDifference = "difference"
	StageSpread     = "spread"
	StageMerge      = "merge"
	StageSmooth     = "smooth"
	StagePerHour    = "per_hour"
	StageTrim       = "trim"
)

// Observer receives the input and output size of every stage that runs.
type Observer interface {
	ObserveStage(stage string, in, out int)
}

// Converter turns balance series into usage series.
// It holds only immutable process-wide settings and is safe for concurrent use.
type Converter struct {
	spread   domain.SpreadConfig
	observer Observer
}

// ConverterOption configures Converter.
type ConverterOption func(*Converter)

// WithObserver reports stage sizes to o.
func WithObserver(o Observer) ConverterOption {
	return func(c *Converter) {
		c.observer = o
	}
}

// NewConverter creates a converter using the given spreading thresholds.
func NewConverter(spread domain.SpreadConfig, opts ...ConverterOption) *Converter {
	c := &Converter{spread: spread}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SpreadConfig returns the spreading thresholds in use.
func (c *Converter) SpreadConfig() domain.SpreadConfig {
	return c.spread
}

// Convert runs the balance -> usage pipeline. Steps:
//  1. Validate config (required) and timestamp order
//  2. Clone input so caller-owned data is never touched
//  3. Difference (always)
//  4. Spread      if cfg.Spreading
//  5. Merge       if cfg.UseSmartMerge
//  6. Smooth      if cfg.Smoothing
//  7. PerHour     if cfg.PerHourUsage
//  8. TrimFirst   if cfg.RemoveFirstPoint
//
// The order is fixed regardless of which subset is enabled.
func (c *Converter) Convert(samples []domain.Sample, cfg *domain.ConvertConfig) ([]domain.Sample, error) {
	if cfg == nil {
		return nil, &ParamError{
			Param:   "usage_convert_config",
			Message: "must provide convert config to usage convert function",
			Err:     ErrConfigRequired,
		}
	}

	if len(samples) == 0 {
		return []domain.Sample{}, nil
	}

	if err := ValidateAscending(samples); err != nil {
		return nil, err
	}

	result := domain.CloneSamples(samples)

	result = c.run(StageDifference, result, Difference)

	if cfg.Spreading {
		result = c.run(StageSpread, result, func(s []domain.Sample) []domain.Sample {
			return Spread(s, c.spread)
		})
	}

	if cfg.UseSmartMerge {
		result = c.run(StageMerge, result, func(s []domain.Sample) []domain.Sample {
			return Merge(s, cfg.MergeRatio)
		})
	}

	if cfg.Smoothing {
		result = c.run(StageSmooth, result, Smooth)
	}

	if cfg.PerHourUsage {
		result = c.run(StagePerHour, result, PerHour)
	}

	if cfg.RemoveFirstPoint {
		result = c.run(StageTrim, result, TrimFirst)
	}

	return result, nil
}

func (c *Converter) run(stage string, in []domain.Sample, fn func([]domain.Sample) []domain.Sample) []domain.Sample {
	out := fn(in)
	if c.observer != nil {
		c.observer.ObserveStage(stage, len(in), len(out))
	}
	return out
}

// Convert runs the pipeline with the given spreading thresholds and no observer.
func Convert(samples []domain.Sample, cfg *domain.ConvertConfig, spread domain.SpreadConfig) ([]domain.Sample, error) {
	return NewConverter(spread).Convert(samples, cfg)
}
