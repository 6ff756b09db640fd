// Package snapshot handles reading, hashing, and locating rating snapshot exports.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/gamerank/internal/score"
)

// ErrNoSnapshot is returned by Latest when no export is present.
var ErrNoSnapshot = errors.New("no snapshot csv found")

// Format identifies the column layout of a snapshot file.
type Format string

const (
	// FormatBGG is the BoardGameGeek ranks export (ID, Name, Year, Rank, Average, Users rated, ...).
	FormatBGG Format = "bgg"
	// FormatLegacy is the three-column name,votes,sum_scores layout.
	FormatLegacy Format = "legacy"
)

// TimestampLayout is the filename stem layout of dated exports.
const TimestampLayout = "2006-01-02T15-04-05"

// Snapshot holds a loaded export with its games and metadata.
type Snapshot struct {
	Path    string
	Hash    string
	Format  Format
	Games   []Game
	Skipped int
	Taken   time.Time
	Label   string
}

// Game is one parsed row of a snapshot.
type Game struct {
	ID         int
	Name       string
	Year       int
	BGGRank    int
	Average    float64
	UsersRated int
	ScoreSum   float64
	Thumbnail  string
}

// Key returns the identifier passed through scoring: the BGG id when known, else the name.
func (g Game) Key() string {
	if g.ID > 0 {
		return strconv.Itoa(g.ID)
	}
	return g.Name
}

// Aggregate converts the row into estimator input.
func (g Game) Aggregate() score.RatingAggregate {
	return score.RatingAggregate{
		ID:        g.Key(),
		Name:      g.Name,
		VoteCount: g.UsersRated,
		ScoreSum:  g.ScoreSum,
	}
}

// Load reads a snapshot CSV and computes its SHA-256 hash.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot.Load: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("snapshot.Load: %s: %w", path, err)
	}
	h := sha256.Sum256(data)
	s.Path = path
	s.Hash = fmt.Sprintf("sha256:%x", h)
	s.Taken, s.Label = TimestampFromPath(path)
	return s, nil
}

// Parse reads CSV rows from r. Rows that fail to parse are counted in Skipped.
func Parse(r io.Reader) (*Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)

	var parse func(row []string) (Game, error)
	s := &Snapshot{}
	switch {
	case cols.has("id", "name", "rank", "average", "users rated"):
		s.Format = FormatBGG
		parse = cols.bggRow
	case cols.has("name", "votes", "sum_scores"):
		s.Format = FormatLegacy
		parse = cols.legacyRow
	default:
		return nil, fmt.Errorf("unrecognized header %q", header)
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				s.Skipped++
				continue
			}
			return nil, fmt.Errorf("read row: %w", err)
		}
		g, err := parse(row)
		if err != nil {
			s.Skipped++
			continue
		}
		s.Games = append(s.Games, g)
	}
	return s, nil
}

// Latest returns the newest dated export (20*.csv) in dir by filename order.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "20*.csv"))
	if err != nil {
		return "", fmt.Errorf("snapshot.Latest: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoSnapshot
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// TimestampFromPath parses the export time from a filename stem such as
// 2025-06-18T11-00-01.csv. When the stem does not match, the zero time and
// the stem itself are returned.
func TimestampFromPath(path string) (time.Time, string) {
	stem := Stem(path)
	t, err := time.Parse(TimestampLayout, stem)
	if err != nil {
		return time.Time{}, stem
	}
	return t, t.Format("2006-01-02 15:04:05") + " UTC"
}

// Stem returns the filename without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type columns map[string]int

func columnIndex(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := c[key]; !dup {
			c[key] = i
		}
	}
	return c
}

func (c columns) has(names ...string) bool {
	for _, n := range names {
		if _, ok := c[n]; !ok {
			return false
		}
	}
	return true
}

func (c columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columns) bggRow(row []string) (Game, error) {
	id, err := strconv.Atoi(c.get(row, "id"))
	if err != nil {
		return Game{}, err
	}
	n, err := strconv.Atoi(c.get(row, "users rated"))
	if err != nil {
		return Game{}, err
	}
	avg, err := strconv.ParseFloat(c.get(row, "average"), 64)
	if err != nil {
		return Game{}, err
	}
	rank, err := strconv.Atoi(c.get(row, "rank"))
	if err != nil {
		return Game{}, err
	}
	// Year is informational; a blank year keeps the row.
	year, _ := strconv.Atoi(c.get(row, "year"))
	return Game{
		ID:         id,
		Name:       c.get(row, "name"),
		Year:       year,
		BGGRank:    rank,
		Average:    avg,
		UsersRated: n,
		ScoreSum:   avg * float64(n),
		Thumbnail:  c.get(row, "thumbnail"),
	}, nil
}

func (c columns) legacyRow(row []string) (Game, error) {
	name := c.get(row, "name")
	if name == "" {
		return Game{}, fmt.Errorf("missing name")
	}
	n, err := strconv.Atoi(c.get(row, "votes"))
	if err != nil {
		return Game{}, err
	}
	sum, err := strconv.ParseFloat(c.get(row, "sum_scores"), 64)
	if err != nil {
		return Game{}, err
	}
	var avg float64
	if n > 0 {
		avg = sum / float64(n)
	}
	return Game{
		Name:       name,
		Average:    avg,
		UsersRated: n,
		ScoreSum:   sum,
	}, nil
}
