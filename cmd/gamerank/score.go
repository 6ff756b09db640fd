package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dshills/gamerank/internal/pipeline"
	"github.com/dshills/gamerank/internal/preset"
	"github.com/dshills/gamerank/internal/rank"
	"github.com/dshills/gamerank/internal/render"
)

type scoreFlags struct {
	rankFlags
	format string
	recent bool
}

func newScoreCmd(g *globalFlags) *cobra.Command {
	f := &scoreFlags{}
	cmd := &cobra.Command{
		Use:   "score [snapshot.csv]",
		Short: "Print the ranking of a snapshot without building a page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			p, err := f.resolvePreset(cmd)
			if err != nil {
				return err
			}
			return runScore(cmd.Context(), cmd.OutOrStdout(), args, f, p, logger)
		},
	}
	f.rankFlags.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "tsv", "Output format: tsv, json or table")
	flags.BoolVar(&f.recent, "recent", false, "Print the recent table instead of all years")
	return cmd
}

type scoreRow struct {
	Position   int      `json:"rank"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Year       int      `json:"year,omitempty"`
	Votes      int      `json:"votes"`
	Average    float64  `json:"average"`
	Score      float64  `json:"score"`
	Normalized float64  `json:"normalized"`
	Mean       float64  `json:"mean_rating"`
	Wilson     *float64 `json:"wilson,omitempty"`
}

type scoreOutput struct {
	Snapshot string           `json:"snapshot"`
	Hash     string           `json:"hash"`
	Preset   string           `json:"preset"`
	Method   string           `json:"method"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Games    []scoreRow       `json:"games"`
	Config   scoreOutputPrior `json:"config"`
}

type scoreOutputPrior struct {
	Votes  float64 `json:"prior_votes"`
	Rating float64 `json:"prior_rating"`
	Z      float64 `json:"z"`
	Min    float64 `json:"scale_min"`
	Max    float64 `json:"scale_max"`
}

func runScore(ctx context.Context, w io.Writer, args []string, f *scoreFlags, p *preset.Preset, logger *slog.Logger) error {
	switch f.format {
	case "tsv", "json", "table":
	default:
		return exitError(exitConfig, "unknown format: %s", f.format)
	}

	res, err := loadAndRank(ctx, args, &f.rankFlags, p, logger)
	if err != nil {
		return err
	}
	entries := res.All
	if f.recent {
		entries = res.Recent
	}
	rows := scoreRows(rank.Assign(entries))

	switch f.format {
	case "json":
		err = writeScoreJSON(w, res, p, rows)
	case "table":
		err = writeScoreTable(w, rows)
	default:
		err = writeScoreTSV(w, rows)
	}
	if err != nil {
		return exitError(exitIO, "failed to write output: %v", err)
	}
	return nil
}

func scoreRows(ranked []rank.Ranked) []scoreRow {
	rows := make([]scoreRow, len(ranked))
	for i, r := range ranked {
		rows[i] = scoreRow{
			Position:   r.Position,
			ID:         r.Game.Key(),
			Name:       r.Game.Name,
			Year:       r.Game.Year,
			Votes:      r.Game.UsersRated,
			Average:    r.Game.Average,
			Score:      r.Scored.Score,
			Normalized: r.Scored.Normalized,
			Mean:       r.Scored.MeanRating,
			Wilson:     r.Wilson,
		}
	}
	return rows
}

func writeScoreJSON(w io.Writer, res *pipeline.Result, p *preset.Preset, rows []scoreRow) error {
	cfg := p.PriorConfig()
	out := scoreOutput{
		Snapshot: res.Snapshot.Label,
		Hash:     res.Snapshot.Hash,
		Preset:   p.Name,
		Method:   render.Method(cfg),
		Skipped:  res.Snapshot.Skipped,
		Failed:   res.Failed,
		Games:    rows,
		Config: scoreOutputPrior{
			Votes: cfg.Votes, Rating: cfg.Rating, Z: cfg.Z,
			Min: cfg.Scale.Min, Max: cfg.Scale.Max,
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeScoreTSV(w io.Writer, rows []scoreRow) error {
	if _, err := fmt.Fprintln(w, "rank\tid\tname\tvotes\tscore\tnormalized\tmean"); err != nil {
		return err
	}
	for _, r := range rows {
		_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.Position, r.ID, r.Name, r.Votes,
			strconv.FormatFloat(r.Score, 'f', 6, 64),
			strconv.FormatFloat(r.Normalized, 'f', 6, 64),
			strconv.FormatFloat(r.Mean, 'f', 6, 64))
		if err != nil {
			return err
		}
	}
	return nil
}

func writeScoreTable(w io.Writer, rows []scoreRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tVOTES\tAVERAGE\tSCORE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.3f\n",
			r.Position, r.Name, humanize.Comma(int64(r.Votes)), r.Average, r.Score)
	}
	return tw.Flush()
}
