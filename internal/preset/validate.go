package preset

import (
	"fmt"
	"net/url"

	"github.com/dshills/gamerank/internal/score"
)

// ValidationError describes a single preset violation.
type ValidationError struct {
	Path    string
	Message string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a preset for values the pipeline cannot run with.
func Validate(p *Preset) []ValidationError {
	var errs []ValidationError

	if p.Scale.Max <= p.Scale.Min {
		errs = append(errs, ValidationError{"scale", fmt.Sprintf("max %v must exceed min %v", p.Scale.Max, p.Scale.Min)})
	}
	if p.Z <= 0 {
		errs = append(errs, ValidationError{"z", fmt.Sprintf("must be positive, got %v", p.Z)})
	}
	if p.Prior.Votes < 0 {
		errs = append(errs, ValidationError{"prior.votes", fmt.Sprintf("must be non-negative, got %v", p.Prior.Votes)})
	}
	if p.Scale.Max > p.Scale.Min && (p.Prior.Rating < p.Scale.Min || p.Prior.Rating > p.Scale.Max) {
		errs = append(errs, ValidationError{"prior.rating", fmt.Sprintf("%v outside scale [%v, %v]", p.Prior.Rating, p.Scale.Min, p.Scale.Max)})
	}
	if p.Top < 0 {
		errs = append(errs, ValidationError{"top", "must be non-negative"})
	}
	if p.Workers < 0 {
		errs = append(errs, ValidationError{"workers", "must be non-negative"})
	}

	if p.Details.Enabled {
		if p.Details.BaseURL == "" {
			errs = append(errs, ValidationError{"details.base_url", "required when details are enabled"})
		} else if u, err := url.Parse(p.Details.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{"details.base_url", fmt.Sprintf("invalid URL: %q", p.Details.BaseURL)})
		}
		if p.Details.Top < 0 {
			errs = append(errs, ValidationError{"details.top", "must be non-negative"})
		}
		if p.Details.Interval < 0 {
			errs = append(errs, ValidationError{"details.interval", "must be non-negative"})
		}
		if p.Details.Timeout < 0 {
			errs = append(errs, ValidationError{"details.timeout", "must be non-negative"})
		}
		if p.Details.Retries < 0 {
			errs = append(errs, ValidationError{"details.retries", "must be non-negative"})
		}
	}
	if p.Cache.MaxAge < 0 {
		errs = append(errs, ValidationError{"cache.max_age", "must be non-negative"})
	}

	// Catches what the field checks cannot see, such as NaN.
	if len(errs) == 0 {
		if err := score.Validate(p.PriorConfig()); err != nil {
			errs = append(errs, ValidationError{"prior", err.Error()})
		}
	}
	return errs
}
