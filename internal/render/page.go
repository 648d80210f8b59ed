package render

import (
	"embed"
	"html/template"
	"io"
	"slices"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"pct":      percentOf,
	"count":    FormatCount,
	"selected": slices.Contains[[]string, string],
	"isAll":    func(v string) bool { return v == "" || v == domain.All },
	"date":     func(t time.Time) string { return t.Format("02/01/2006") },
	"all":      func() string { return domain.All },
}).ParseFS(templateFS, "templates/dashboard.html"))

// Page is everything the HTML dashboard shows. When Error is set only the
// filters and the error are rendered.
type Page struct {
	Dashboard   Dashboard
	Options     Options
	Selection   domain.Selection
	Source      string
	WindowStart time.Time
	WindowEnd   time.Time
	ExportURL   template.URL
	Error       string
}

// WritePage renders the HTML dashboard.
func WritePage(w io.Writer, p Page) error {
	return pageTemplate.Execute(w, p)
}

func percentOf(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
