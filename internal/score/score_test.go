package score

import (
	"context"
	"errors"
	"math"
	"testing"
)

func bggConfig() PriorConfig {
	return PriorConfig{Votes: 25, Rating: 6.5, Z: 2.576, Scale: Scale{Min: 1, Max: 10}}
}

func TestEstimateHypeProofing(t *testing.T) {
	cfg := bggConfig()
	a, err := Estimate(RatingAggregate{ID: "A", VoteCount: 1000, ScoreSum: 8500}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Estimate(RatingAggregate{ID: "B", VoteCount: 5, ScoreSum: 50}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a.Score <= b.Score {
		t.Errorf("score(A)=%v should exceed score(B)=%v", a.Score, b.Score)
	}
	if a.ID != "A" || b.ID != "B" {
		t.Errorf("ids not passed through: %q %q", a.ID, b.ID)
	}
}

func TestEstimateZeroVotesUsesPrior(t *testing.T) {
	cfg := bggConfig()
	c, err := Estimate(RatingAggregate{ID: "C"}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.MeanRating != 6.5 {
		t.Errorf("mean = %v, want exactly 6.5", c.MeanRating)
	}
	p := (6.5 - 1) / 9.0
	want := 1 + 9*Wilson(25, p, cfg.Z)
	if math.Abs(c.Score-want) > 1e-12 {
		t.Errorf("score = %v, want %v", c.Score, want)
	}
}

func TestEstimateManualExample(t *testing.T) {
	cfg := PriorConfig{Z: 2.576, Scale: Scale{Min: 1, Max: 10}}
	n, s := 100.0, 800.0
	z := cfg.Z
	p := (s/n - 1) / 9.0
	denom := 1 + z*z/n
	centre := p + z*z/(2*n)
	adj := z * math.Sqrt((p*(1-p)+z*z/(4*n))/n)
	want := 1 + 9*(centre-adj)/denom

	got, err := Estimate(RatingAggregate{VoteCount: 100, ScoreSum: 800}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got.Score-want) > 1e-12 {
		t.Errorf("score = %v, want %v", got.Score, want)
	}
	if got.MeanRating != 8 {
		t.Errorf("mean = %v, want 8", got.MeanRating)
	}
}

func TestEstimateWeightedMatchesShiftedInputs(t *testing.T) {
	cfg := bggConfig()
	weighted, err := Estimate(RatingAggregate{VoteCount: 420, ScoreSum: 420 * 7.3}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	raw := PriorConfig{Z: cfg.Z, Scale: cfg.Scale}
	shifted, err := Estimate(RatingAggregate{VoteCount: 445, ScoreSum: 420*7.3 + 25*6.5}, raw)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(weighted.Score-shifted.Score) > 1e-12 {
		t.Errorf("weighted %v != shifted %v", weighted.Score, shifted.Score)
	}
}

// With a prior, more votes only raise the score when the observed mean is at
// or above the prior rating. Without a prior it holds for every mean.
func TestEstimateMonotonicInVotes(t *testing.T) {
	configs := map[string]struct {
		cfg   PriorConfig
		means []float64
	}{
		"no prior":   {PriorConfig{Z: 2.576, Scale: Scale{Min: 1, Max: 10}}, []float64{1, 3, 6.5, 7.2, 8.5, 10}},
		"with prior": {bggConfig(), []float64{6.5, 7.2, 8.5, 10}},
	}
	for name, c := range configs {
		cfg := c.cfg
		for _, mean := range c.means {
			prev := math.Inf(-1)
			for _, n := range []int{1, 2, 5, 10, 50, 100, 1000, 10000, 100000} {
				got, err := Estimate(RatingAggregate{VoteCount: n, ScoreSum: mean * float64(n)}, cfg)
				if err != nil {
					t.Fatalf("%s mean=%v n=%d: %v", name, mean, n, err)
				}
				if got.Score < prev-1e-12 {
					t.Errorf("%s mean=%v: score dropped at n=%d: %v < %v", name, mean, n, got.Score, prev)
				}
				prev = got.Score
			}
		}
	}
}

func TestEstimateBelowPriorFallsWithVotes(t *testing.T) {
	cfg := bggConfig()
	score := func(n int) float64 {
		t.Helper()
		got, err := Estimate(RatingAggregate{VoteCount: n, ScoreSum: 3 * float64(n)}, cfg)
		if err != nil {
			t.Fatal(err)
		}
		return got.Score
	}
	few, many := score(1), score(100000)
	if many >= few {
		t.Errorf("mean 3 below prior 6.5: score(100000)=%v should trail score(1)=%v", many, few)
	}
	if math.Abs(many-3) > 0.05 {
		t.Errorf("score(100000) = %v, want close to the observed mean 3", many)
	}
}

func TestEstimateShrinksTowardPrior(t *testing.T) {
	cfg := bggConfig()
	prior, err := Estimate(RatingAggregate{}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	few, err := Estimate(RatingAggregate{VoteCount: 1, ScoreSum: 10}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(few.MeanRating-cfg.Rating) > 0.2 {
		t.Errorf("one vote moved mean too far from prior: %v", few.MeanRating)
	}
	if math.Abs(few.Score-prior.Score) > 0.2 {
		t.Errorf("one vote moved score too far from prior score: %v vs %v", few.Score, prior.Score)
	}
}

func TestEstimateScaleInvariantOrdering(t *testing.T) {
	games := []RatingAggregate{
		{ID: "a", VoteCount: 1000, ScoreSum: 8500},
		{ID: "b", VoteCount: 5, ScoreSum: 50},
		{ID: "c", VoteCount: 300, ScoreSum: 300 * 7.9},
		{ID: "d", VoteCount: 12000, ScoreSum: 12000 * 7.1},
	}
	cfg := bggConfig()
	// Map 1..10 onto 0..100.
	rescale := func(x float64) float64 { return (x - 1) * 100 / 9 }
	cfg100 := PriorConfig{Votes: cfg.Votes, Rating: rescale(cfg.Rating), Z: cfg.Z, Scale: Scale{Min: 0, Max: 100}}

	scores10 := make([]float64, len(games))
	scores100 := make([]float64, len(games))
	for i, g := range games {
		s10, err := Estimate(g, cfg)
		if err != nil {
			t.Fatal(err)
		}
		g100 := g
		g100.ScoreSum = (g.ScoreSum - float64(g.VoteCount)) * 100 / 9
		s100, err := Estimate(g100, cfg100)
		if err != nil {
			t.Fatal(err)
		}
		scores10[i], scores100[i] = s10.Score, s100.Score
	}
	for i := range games {
		for j := range games {
			if (scores10[i] > scores10[j]) != (scores100[i] > scores100[j]) {
				t.Errorf("ordering of %s vs %s changed after rescale", games[i].ID, games[j].ID)
			}
		}
	}
}

func TestEstimateDeterministic(t *testing.T) {
	cfg := bggConfig()
	agg := RatingAggregate{ID: "x", VoteCount: 777, ScoreSum: 777 * 7.77}
	first, err := Estimate(agg, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Estimate(agg, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if math.Float64bits(again.Score) != math.Float64bits(first.Score) ||
			math.Float64bits(again.MeanRating) != math.Float64bits(first.MeanRating) {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestEstimateBoundarySafety(t *testing.T) {
	cfg := PriorConfig{Z: 2.576, Scale: Scale{Min: 1, Max: 10}}
	_, err := Estimate(RatingAggregate{ID: "empty"}, cfg)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEstimateScoreWithinScale(t *testing.T) {
	cfg := bggConfig()
	for _, agg := range []RatingAggregate{
		{VoteCount: 1, ScoreSum: 1},
		{VoteCount: 50000, ScoreSum: 50000},
		{VoteCount: 50000, ScoreSum: 500000},
		{VoteCount: 3, ScoreSum: 30},
	} {
		got, err := Estimate(agg, cfg)
		if err != nil {
			t.Fatal(err)
		}
		if got.Score < 1 || got.Score > 10 || math.IsNaN(got.Score) {
			t.Errorf("%+v: score %v outside [1, 10]", agg, got.Score)
		}
		if got.Normalized < 0 || got.Normalized > 1 {
			t.Errorf("%+v: normalized %v outside [0, 1]", agg, got.Normalized)
		}
	}
}

func TestEstimateInvalidInput(t *testing.T) {
	cfg := bggConfig()
	tests := []struct {
		name string
		agg  RatingAggregate
	}{
		{"negative votes", RatingAggregate{VoteCount: -1}},
		{"negative sum", RatingAggregate{VoteCount: 3, ScoreSum: -4}},
		{"nan sum", RatingAggregate{VoteCount: 3, ScoreSum: math.NaN()}},
		{"inf sum", RatingAggregate{VoteCount: 3, ScoreSum: math.Inf(1)}},
		{"above scale", RatingAggregate{VoteCount: 100, ScoreSum: 5000}},
		{"below scale", RatingAggregate{VoteCount: 1000, ScoreSum: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Estimate(tt.agg, cfg)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestEstimateSubnormalPrior(t *testing.T) {
	// z²/n overflows when the only weight is a denormal prior.
	cfg := PriorConfig{Votes: 1e-320, Rating: 6.5, Z: 2.576, Scale: Scale{Min: 1, Max: 10}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("config should validate: %v", err)
	}
	got, err := Estimate(RatingAggregate{ID: "tiny"}, cfg)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %+v, %v", got, err)
	}
}

func TestEstimateNeverNaN(t *testing.T) {
	cfgs := []PriorConfig{
		bggConfig(),
		{Z: 2.576, Scale: Scale{Min: 1, Max: 10}},
		{Votes: 1e-300, Rating: 1, Z: 1e150, Scale: Scale{Min: 1, Max: 10}},
		{Votes: 1e-320, Rating: 10, Z: 0.5, Scale: Scale{Min: 1, Max: 10}},
	}
	aggs := []RatingAggregate{{}, {VoteCount: 1, ScoreSum: 10}, {VoteCount: 100, ScoreSum: 800}, {VoteCount: 1 << 30, ScoreSum: 7 * (1 << 30)}}
	for _, cfg := range cfgs {
		for _, agg := range aggs {
			got, err := Estimate(agg, cfg)
			if err != nil {
				continue
			}
			if !finite(got.Score) || !finite(got.Normalized) || !finite(got.MeanRating) {
				t.Errorf("cfg %+v agg %+v: non-finite output %+v", cfg, agg, got)
			}
		}
	}
}

func TestEstimateRoundingAtBound(t *testing.T) {
	cfg := PriorConfig{Z: 2.576, Scale: Scale{Min: 1, Max: 10}}
	got, err := Estimate(RatingAggregate{VoteCount: 3, ScoreSum: 30 + 1e-12}, cfg)
	if err != nil {
		t.Fatalf("rounding residue should be absorbed: %v", err)
	}
	if got.MeanRating != 10 {
		t.Errorf("mean = %v, want 10", got.MeanRating)
	}
}

func TestEstimateInvalidConfig(t *testing.T) {
	scale := Scale{Min: 1, Max: 10}
	tests := []struct {
		name string
		cfg  PriorConfig
	}{
		{"zero z", PriorConfig{Z: 0, Scale: scale, Rating: 5}},
		{"negative z", PriorConfig{Z: -1.96, Scale: scale, Rating: 5}},
		{"nan z", PriorConfig{Z: math.NaN(), Scale: scale, Rating: 5}},
		{"prior above scale", PriorConfig{Z: 2, Scale: scale, Votes: 10, Rating: 11}},
		{"prior below scale", PriorConfig{Z: 2, Scale: scale, Votes: 10, Rating: 0.5}},
		{"negative prior votes", PriorConfig{Z: 2, Scale: scale, Votes: -1, Rating: 5}},
		{"inverted scale", PriorConfig{Z: 2, Scale: Scale{Min: 10, Max: 1}, Rating: 5}},
		{"empty scale", PriorConfig{Z: 2, Scale: Scale{Min: 5, Max: 5}, Rating: 5}},
		{"infinite scale", PriorConfig{Z: 2, Scale: Scale{Min: 1, Max: math.Inf(1)}, Rating: 5}},
		{"z squared overflows", PriorConfig{Z: 1e200, Scale: scale, Rating: 5}},
	}
	inputs := []RatingAggregate{{}, {VoteCount: 10, ScoreSum: 70}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, agg := range inputs {
				_, err := Estimate(agg, tt.cfg)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("input %+v: expected ErrInvalidConfig, got %v", agg, err)
				}
			}
		})
	}
}

func TestWilsonExtremes(t *testing.T) {
	if got := Wilson(10, 0, 2.576); got < 0 || got > 1e-12 {
		t.Errorf("Wilson(p=0) = %v, want 0", got)
	}
	if got := Wilson(10, 1, 2.576); got <= 0 || got >= 1 {
		t.Errorf("Wilson(p=1) = %v, want in (0, 1)", got)
	}
	small := Wilson(10, 0.8, 2.576)
	large := Wilson(10000, 0.8, 2.576)
	if !(small < large && large < 0.8) {
		t.Errorf("expected Wilson(10) < Wilson(10000) < p, got %v, %v", small, large)
	}
}

func TestEstimateAll(t *testing.T) {
	aggs := []RatingAggregate{
		{ID: "1", VoteCount: 1000, ScoreSum: 8500},
		{ID: "2", VoteCount: -3},
		{ID: "3", VoteCount: 5, ScoreSum: 50},
		{ID: "4"},
	}
	results, err := EstimateAll(context.Background(), aggs, bggConfig(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(aggs) {
		t.Fatalf("got %d results, want %d", len(results), len(aggs))
	}
	for i, r := range results {
		if i == 1 {
			if !errors.Is(r.Err, ErrInvalidInput) {
				t.Errorf("result 1: expected ErrInvalidInput, got %v", r.Err)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("result %d: unexpected error %v", i, r.Err)
		}
		if r.Game.ID != aggs[i].ID {
			t.Errorf("result %d: id %q, want %q", i, r.Game.ID, aggs[i].ID)
		}
		single, _ := Estimate(aggs[i], bggConfig())
		if r.Game != single {
			t.Errorf("result %d: batch %+v != single %+v", i, r.Game, single)
		}
	}
}

func TestEstimateAllInvalidConfig(t *testing.T) {
	cfg := bggConfig()
	cfg.Z = 0
	_, err := EstimateAll(context.Background(), []RatingAggregate{{VoteCount: 1, ScoreSum: 5}}, cfg, 1)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestEstimateAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EstimateAll(ctx, []RatingAggregate{{VoteCount: 1, ScoreSum: 5}}, bggConfig(), 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
