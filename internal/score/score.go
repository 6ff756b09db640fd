// Package score computes confidence-adjusted ranking scores from rating aggregates.
package score

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfig is returned when a PriorConfig violates its bounds.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrInvalidInput is returned when a RatingAggregate cannot be scored.
	ErrInvalidInput = errors.New("invalid input")
)

// boundSlack absorbs rounding residue when a blended mean sits on a scale bound.
const boundSlack = 1e-9

// Scale is the closed interval of valid individual ratings.
type Scale struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// RatingAggregate is the per-game input: vote count and sum of ratings.
type RatingAggregate struct {
	ID        string
	Name      string
	VoteCount int
	ScoreSum  float64
}

// PriorConfig controls smoothing and the confidence level of the bound.
type PriorConfig struct {
	// Votes is the number of phantom votes blended into every game.
	Votes float64
	// Rating is the rating carried by each phantom vote.
	Rating float64
	// Z is the one-sided z-score of the confidence level.
	Z     float64
	Scale Scale
}

// ScoredGame is the estimator output for one game.
type ScoredGame struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	Normalized float64 `json:"normalized"`
	MeanRating float64 `json:"mean_rating"`
}

// Validate checks a PriorConfig without scoring anything.
func Validate(cfg PriorConfig) error {
	switch {
	case !finite(cfg.Z) || cfg.Z <= 0:
		return fmt.Errorf("%w: confidence z must be positive, got %v", ErrInvalidConfig, cfg.Z)
	case !finite(cfg.Z * cfg.Z):
		return fmt.Errorf("%w: confidence z %v too large", ErrInvalidConfig, cfg.Z)
	case !finite(cfg.Scale.Min) || !finite(cfg.Scale.Max):
		return fmt.Errorf("%w: scale bounds must be finite", ErrInvalidConfig)
	case cfg.Scale.Max <= cfg.Scale.Min:
		return fmt.Errorf("%w: scale max %v must exceed min %v", ErrInvalidConfig, cfg.Scale.Max, cfg.Scale.Min)
	case !finite(cfg.Votes) || cfg.Votes < 0:
		return fmt.Errorf("%w: prior votes must be non-negative, got %v", ErrInvalidConfig, cfg.Votes)
	case !finite(cfg.Rating) || cfg.Rating < cfg.Scale.Min || cfg.Rating > cfg.Scale.Max:
		return fmt.Errorf("%w: prior rating %v outside scale [%v, %v]", ErrInvalidConfig, cfg.Rating, cfg.Scale.Min, cfg.Scale.Max)
	}
	return nil
}

// Estimate blends the aggregate with the prior and returns the Wilson lower
// bound of the normalized mean, rescaled onto the rating scale.
func Estimate(agg RatingAggregate, cfg PriorConfig) (ScoredGame, error) {
	if err := Validate(cfg); err != nil {
		return ScoredGame{}, err
	}
	if agg.VoteCount < 0 {
		return ScoredGame{}, fmt.Errorf("%w: %s: negative vote count %d", ErrInvalidInput, label(agg), agg.VoteCount)
	}
	if !finite(agg.ScoreSum) || agg.ScoreSum < 0 {
		return ScoredGame{}, fmt.Errorf("%w: %s: score sum %v", ErrInvalidInput, label(agg), agg.ScoreSum)
	}

	n := float64(agg.VoteCount) + cfg.Votes
	if n <= 0 {
		return ScoredGame{}, fmt.Errorf("%w: %s: no votes and no prior", ErrInvalidInput, label(agg))
	}

	mean := (agg.ScoreSum + cfg.Votes*cfg.Rating) / n
	width := cfg.Scale.Max - cfg.Scale.Min
	p := (mean - cfg.Scale.Min) / width
	switch {
	case p < -boundSlack || p > 1+boundSlack || math.IsNaN(p):
		return ScoredGame{}, fmt.Errorf("%w: %s: mean %v outside scale [%v, %v]", ErrInvalidInput, label(agg), mean, cfg.Scale.Min, cfg.Scale.Max)
	case p < 0:
		p, mean = 0, cfg.Scale.Min
	case p > 1:
		p, mean = 1, cfg.Scale.Max
	}

	lb := Wilson(n, p, cfg.Z)
	if !finite(lb) {
		return ScoredGame{}, fmt.Errorf("%w: %s: bound not finite for %v effective votes", ErrInvalidInput, label(agg), n)
	}
	return ScoredGame{
		ID:         agg.ID,
		Name:       agg.Name,
		Score:      cfg.Scale.Min + width*lb,
		Normalized: lb,
		MeanRating: mean,
	}, nil
}

// Wilson returns the lower bound of the Wilson score interval for proportion
// p observed over n trials. Callers guarantee n > 0, z > 0 and p in [0, 1].
// The result is clamped to [0, 1]; NaN from overflowing terms passes through.
func Wilson(n, p, z float64) float64 {
	z2 := z * z
	denom := 1 + z2/n
	center := p + z2/(2*n)
	margin := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n))
	lb := (center - margin) / denom
	return math.Max(0, math.Min(1, lb))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func label(agg RatingAggregate) string {
	if agg.Name != "" {
		return fmt.Sprintf("%q", agg.Name)
	}
	return fmt.Sprintf("id %q", agg.ID)
}
