package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/gamerank/internal/bgg"
	"github.com/dshills/gamerank/internal/cache"
	"github.com/dshills/gamerank/internal/pipeline"
	"github.com/dshills/gamerank/internal/preset"
	"github.com/dshills/gamerank/internal/rank"
	"github.com/dshills/gamerank/internal/render"
	"github.com/dshills/gamerank/internal/score"
	"github.com/dshills/gamerank/internal/snapshot"
)

// rankFlags are shared by every command that ranks a snapshot.
type rankFlags struct {
	presetName string
	configPath string
	dir        string
	minYear    int
	top        int
	workers    int
}

type buildFlags struct {
	rankFlags
	out        string
	title      string
	details    bool
	detailsTop int
	cachePath  string
}

func (f *rankFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.presetName, "preset", preset.DefaultName, "Built-in preset name")
	flags.StringVar(&f.configPath, "config", "", "YAML preset file overlaying a built-in preset")
	flags.StringVar(&f.dir, "dir", ".", "Directory searched for the latest snapshot when none is given")
	flags.IntVar(&f.minYear, "min-year", 0, "First year of the recent table (default from preset)")
	flags.IntVar(&f.top, "top", 0, "Rows per table, 0 for all (default from preset)")
	flags.IntVar(&f.workers, "workers", 0, "Scoring goroutines (default GOMAXPROCS)")
}

func (f *buildFlags) register(cmd *cobra.Command) {
	f.rankFlags.register(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&f.out, "out", "o", "index.html", "Output HTML path")
	flags.StringVar(&f.title, "title", "Best Board Game Rankings", "Page title")
	flags.BoolVar(&f.details, "details", true, "Fetch game details from BoardGameGeek (default from preset)")
	flags.IntVar(&f.detailsTop, "details-top", 0, "Fetch details for at most this many games (default from preset)")
	flags.StringVar(&f.cachePath, "cache", "", "Details cache path, empty string disables (default from preset)")
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build [snapshot.csv]",
		Short: "Score a snapshot and write the ranking page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			p, err := f.resolvePreset(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), args, f, p, logger)
		},
	}
	f.register(cmd)
	return cmd
}

// loadPreset loads the preset and applies environment and flag overrides.
// Only flags set on the command line override preset values.
func (f *rankFlags) loadPreset(cmd *cobra.Command) (*preset.Preset, error) {
	var (
		p   *preset.Preset
		err error
	)
	if f.configPath != "" {
		p, err = preset.LoadFile(f.configPath)
	} else {
		p, err = preset.LoadBuiltin(f.presetName)
	}
	if err != nil {
		return nil, exitError(exitConfig, "failed to load preset: %v", err)
	}
	p.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("min-year") {
		p.MinYear = f.minYear
	}
	if flags.Changed("top") {
		p.Top = f.top
	}
	if flags.Changed("workers") {
		p.Workers = f.workers
	}
	return p, nil
}

func (f *rankFlags) resolvePreset(cmd *cobra.Command) (*preset.Preset, error) {
	p, err := f.loadPreset(cmd)
	if err != nil {
		return nil, err
	}
	return p, validatePreset(p)
}

func (f *buildFlags) resolvePreset(cmd *cobra.Command) (*preset.Preset, error) {
	p, err := f.loadPreset(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("details") {
		p.Details.Enabled = f.details
	}
	if flags.Changed("details-top") {
		p.Details.Top = f.detailsTop
	}
	if flags.Changed("cache") {
		p.Cache.Path = f.cachePath
	}
	return p, validatePreset(p)
}

func validatePreset(p *preset.Preset) error {
	if errs := preset.Validate(p); len(errs) > 0 {
		return exitError(exitConfig, "invalid preset %s: %v", p.Name, errs)
	}
	return nil
}

// resolveSnapshot returns the snapshot named on the command line, or the
// latest one in dir.
func resolveSnapshot(args []string, dir string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	path, err := snapshot.Latest(dir)
	if err != nil {
		return "", exitError(exitIO, "no snapshot given: %v", err)
	}
	return path, nil
}

// loadAndRank covers the steps every ranking command shares.
func loadAndRank(ctx context.Context, args []string, f *rankFlags, p *preset.Preset, logger *slog.Logger) (*pipeline.Result, error) {
	// 1. Resolve snapshot
	path, err := resolveSnapshot(args, f.dir)
	if err != nil {
		return nil, err
	}

	// 2. Load
	logger.Debug("loading snapshot", "path", path)
	snap, err := snapshot.Load(path)
	if err != nil {
		return nil, exitError(exitIO, "failed to load snapshot: %v", err)
	}
	logger.Info("snapshot loaded",
		"path", path, "format", snap.Format, "games", len(snap.Games),
		"skipped", snap.Skipped, "hash", snap.Hash)

	// 3. Score, sort, filter
	res, err := pipeline.Rank(ctx, snap, p, logger)
	if err != nil {
		if errors.Is(err, score.ErrInvalidConfig) {
			return nil, exitError(exitConfig, "invalid scoring config: %v", err)
		}
		return nil, exitError(exitGeneric, "scoring failed: %v", err)
	}
	return res, nil
}

func runBuild(ctx context.Context, args []string, f *buildFlags, p *preset.Preset, logger *slog.Logger) error {
	res, err := loadAndRank(ctx, args, &f.rankFlags, p, logger)
	if err != nil {
		return err
	}

	// 4. Enrich with details
	var upstreamErr error
	if p.Details.Enabled {
		exported, err := enrich(ctx, res, p, logger)
		if err != nil {
			return err
		}
		requested := len(res.DetailIDs(p.Details.Top))
		if requested > 0 && len(exported) == 0 {
			upstreamErr = exitError(exitUpstream, "no details could be fetched for %d games", requested)
		}

		// 5. Details export
		detailsPath := render.DetailsPath(filepath.Dir(f.out), res.Snapshot.Path)
		n, err := render.WriteDetailsCSV(detailsPath, exported)
		if err != nil {
			return exitError(exitIO, "failed to write details: %v", err)
		}
		if n > 0 {
			logger.Info("details written", "path", detailsPath, "rows", n)
		}
	}

	// 6. Render
	page := render.Page{
		Title:    f.title,
		Snapshot: res.Snapshot.Label,
		Method:   render.Method(p.PriorConfig()),
		MinYear:  p.MinYear,
		Recent:   rank.Assign(res.Recent),
		All:      rank.Assign(res.All),
	}
	if err := writePage(f.out, page); err != nil {
		return exitError(exitIO, "failed to write page: %v", err)
	}
	logger.Info("page written", "path", f.out, "recent", len(page.Recent), "all", len(page.All))

	return upstreamErr
}

// enrich opens the details fetcher described by the preset and attaches
// details to the ranked tables.
func enrich(ctx context.Context, res *pipeline.Result, p *preset.Preset, logger *slog.Logger) ([]rank.Entry, error) {
	var fetcher bgg.Fetcher = bgg.NewClient(bgg.Options{
		BaseURL:  p.Details.BaseURL,
		Token:    p.Details.Token,
		Interval: p.Details.Interval,
		Timeout:  p.Details.Timeout,
		Retries:  p.Details.Retries,
		Logger:   logger,
	})

	if p.Cache.Path != "" {
		if err := os.MkdirAll(filepath.Dir(p.Cache.Path), 0o755); err != nil {
			return nil, exitError(exitIO, "failed to create cache directory: %v", err)
		}
		db, err := cache.Open(p.Cache.Path, p.Cache.MaxAge)
		if err != nil {
			return nil, exitError(exitIO, "failed to open details cache: %v", err)
		}
		defer db.Close()
		fetcher = &bgg.Cached{Fetcher: fetcher, Store: db, Logger: logger}
	}

	exported, err := res.Enrich(ctx, fetcher, p.Details.Top, logger)
	if err != nil {
		return nil, exitError(exitUpstream, "details fetch aborted: %v", err)
	}
	return exported, nil
}

// writePage renders to a temporary file and renames it over path, so a
// published page is never half written.
func writePage(path string, page render.Page) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gamerank-*.html")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := render.HTML(tmp, page); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
