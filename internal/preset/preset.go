// Package preset handles loading built-in and user ranking presets.
package preset

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/gamerank/internal/score"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// DefaultName is the preset used when none is requested.
const DefaultName = "bgg"

// Environment variables that override preset values.
const (
	EnvToken = "GAMERANK_BGG_TOKEN"
	EnvCache = "GAMERANK_CACHE"
)

// Preset bundles every tunable of a ranking run.
type Preset struct {
	Name string `yaml:"name"`
	// Base names the built-in preset a user file overlays.
	Base        string      `yaml:"base,omitempty"`
	Description string      `yaml:"description"`
	Scale       score.Scale `yaml:"scale"`
	Prior       Prior       `yaml:"prior"`
	Z           float64     `yaml:"z"`
	// Top limits each table; 0 keeps every game.
	Top     int     `yaml:"top"`
	MinYear int     `yaml:"min_year"`
	Workers int     `yaml:"workers"`
	Details Details `yaml:"details"`
	Cache   Cache   `yaml:"cache"`
}

// Prior is the phantom-vote smoothing.
type Prior struct {
	Votes  float64 `yaml:"votes"`
	Rating float64 `yaml:"rating"`
}

// Details configures metadata lookups.
type Details struct {
	Enabled bool `yaml:"enabled"`
	// Top limits how many ranked ids are looked up; 0 means every id shown.
	Top      int           `yaml:"top"`
	BaseURL  string        `yaml:"base_url"`
	Token    string        `yaml:"token,omitempty"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  int           `yaml:"retries"`
}

// Cache configures the details cache. An empty path disables it.
type Cache struct {
	Path   string        `yaml:"path"`
	MaxAge time.Duration `yaml:"max_age"`
}

// PriorConfig derives the estimator configuration.
func (p *Preset) PriorConfig() score.PriorConfig {
	return score.PriorConfig{
		Votes:  p.Prior.Votes,
		Rating: p.Prior.Rating,
		Z:      p.Z,
		Scale:  p.Scale,
	}
}

// LoadBuiltin loads a built-in preset by name.
func LoadBuiltin(name string) (*Preset, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("preset.LoadBuiltin: unknown preset %q: %w", name, err)
	}
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("preset.LoadBuiltin: parse %q: %w", name, err)
	}
	return &p, nil
}

// List returns the names of all built-in presets, sorted.
func List() ([]string, error) {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n := e.Name(); strings.HasSuffix(n, ".yaml") {
			names = append(names, strings.TrimSuffix(n, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadFile reads a user preset. Keys present in the file overlay the built-in
// named by its base key, or DefaultName when base is absent.
func LoadFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset.LoadFile: %w", err)
	}

	var head struct {
		Base string `yaml:"base"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("preset.LoadFile: parse %s: %w", path, err)
	}
	base := head.Base
	if base == "" {
		base = DefaultName
	}
	p, err := LoadBuiltin(base)
	if err != nil {
		return nil, fmt.Errorf("preset.LoadFile: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("preset.LoadFile: parse %s: %w", path, err)
	}
	p.Base = base
	return p, nil
}

// ApplyEnv overrides the API token and cache path from the environment.
func (p *Preset) ApplyEnv() {
	if v := os.Getenv(EnvToken); v != "" {
		p.Details.Token = v
	}
	if v, ok := os.LookupEnv(EnvCache); ok {
		p.Cache.Path = v
	}
}

// Marshal renders p as YAML with the API token masked.
func Marshal(p *Preset) ([]byte, error) {
	c := *p
	if c.Details.Token != "" {
		c.Details.Token = "[REDACTED]"
	}
	data, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("preset.Marshal: %w", err)
	}
	return data, nil
}
