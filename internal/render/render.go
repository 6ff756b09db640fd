// Package render produces the static ranking page and details export.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/dshills/gamerank/internal/rank"
	"github.com/dshills/gamerank/internal/score"
)

//go:embed templates/page.html.tmpl
var templateFS embed.FS

// GameURLPrefix is joined with a BGG id to link a game page.
const GameURLPrefix = "https://boardgamegeek.com/boardgame/"

// Page is everything shown on the ranking page.
type Page struct {
	Title string
	// Snapshot is the human-readable snapshot label.
	Snapshot string
	Method   string
	MinYear  int
	Recent   []rank.Ranked
	All      []rank.Ranked
}

type tableView struct {
	ID     string
	Hidden bool
	Rows   []rank.Ranked
}

var pageTmpl = template.Must(template.New("page.html.tmpl").Funcs(template.FuncMap{
	"table": func(id string, hidden bool, rows []rank.Ranked) tableView {
		return tableView{ID: id, Hidden: hidden, Rows: rows}
	},
	"gameURL": func(id int) string { return GameURLPrefix + strconv.Itoa(id) },
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"fixed":   func(prec int, v float64) string { return strconv.FormatFloat(v, 'f', prec, 64) },
	"wilson": func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', 3, 64)
	},
	"badges": rank.Badges,
	"weight": func(e rank.Entry) float64 {
		if e.Details == nil {
			return 0
		}
		return e.Details.Weight
	},
}).ParseFS(templateFS, "templates/page.html.tmpl"))

// HTML writes the ranking page.
func HTML(w io.Writer, page Page) error {
	if err := pageTmpl.Execute(w, page); err != nil {
		return fmt.Errorf("render.HTML: %w", err)
	}
	return nil
}

// Method describes the estimator for the page heading, e.g.
// "Weighted Wilson 99.5% lower bound".
func Method(cfg score.PriorConfig) string {
	confidence := 0.5 * (1 + math.Erf(cfg.Z/math.Sqrt2)) * 100
	name := "Wilson"
	if cfg.Votes > 0 {
		name = "Weighted Wilson"
	}
	return fmt.Sprintf("%s %s%% lower bound", name, strconv.FormatFloat(confidence, 'f', 1, 64))
}
