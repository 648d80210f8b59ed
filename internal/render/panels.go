// Package render turns a filtered view into dashboard panels. Every renderer
// is a pure function of its input and carries an explicit empty state.
package render

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// Panel holds the state shared by every dashboard panel.
type Panel struct {
	Title   string `json:"title"`
	Empty   bool   `json:"empty"`
	Warning string `json:"warning,omitempty"`
}

func newPanel(title string, v domain.View, warning string) Panel {
	p := Panel{Title: title}
	if v.Empty() {
		p.Empty = true
		p.Warning = warning
	}
	return p
}

// Point is one accident location on the map.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MapPanel plots accident locations.
type MapPanel struct {
	Panel
	Points []Point `json:"points"`
}

// Map renders the accident concentration map.
func Map(v domain.View) MapPanel {
	p := MapPanel{
		Panel:  newPanel("Mapa de Concentração de Acidentes", v, "Nenhum dado encontrado para os filtros selecionados no mapa."),
		Points: make([]Point, 0, v.Len()),
	}
	for i := range v.Records {
		p.Points = append(p.Points, Point{Lat: v.Records[i].Latitude, Lon: v.Records[i].Longitude})
	}
	return p
}

// HourlyPanel is the accidents-per-hour bar chart.
type HourlyPanel struct {
	Panel
	Hours []domain.HourCount `json:"hours"`
	Max   int                `json:"max"`
}

// HourlyChart renders counts for every hour of the day, zeros included.
func HourlyChart(v domain.View) HourlyPanel {
	p := HourlyPanel{
		Panel: newPanel("Acidentes por Hora do Dia", v, "Sem dados para exibir o gráfico de acidentes por hora."),
		Hours: domain.HourlyCounts(v),
	}
	for _, h := range p.Hours {
		p.Max = max(p.Max, h.Count)
	}
	return p
}

// TopCausesPanel is the most-frequent-causes bar chart.
type TopCausesPanel struct {
	Panel
	Causes []domain.CauseCount `json:"causes"`
	Max    int                 `json:"max"`
}

// TopCausesChart renders the ten most frequent causes.
func TopCausesChart(v domain.View) TopCausesPanel {
	p := TopCausesPanel{
		Panel:  newPanel("Top 10 Causas de Acidentes", v, "Sem dados para exibir o gráfico de top 10 causas."),
		Causes: domain.TopCauses(v, domain.TopCausesLimit),
	}
	if len(p.Causes) > 0 {
		p.Max = p.Causes[0].Count
	}
	return p
}

// TableColumns are the detail table headers in display order.
var TableColumns = []string{"data_hora", "mes", "uf", "municipio", "causa_acidente", "tipo_acidente", "mortos"}

// TableRow is one row of the detail table.
type TableRow struct {
	Timestamp    string `json:"timestamp"`
	MonthName    string `json:"month_name"`
	State        string `json:"state"`
	Municipality string `json:"municipality"`
	Cause        string `json:"cause"`
	AccidentType string `json:"accident_type"`
	Fatalities   int    `json:"fatalities"`
}

// TablePanel is the capped detail table.
type TablePanel struct {
	Panel
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
	Total   int        `json:"total"`
}

// DetailTable renders the first domain.PreviewRows records of the view.
func DetailTable(v domain.View) TablePanel {
	preview := domain.Preview(v, domain.PreviewRows)
	p := TablePanel{
		Panel:   newPanel("Dados Detalhados", v, "Nenhum registro corresponde aos filtros aplicados."),
		Columns: TableColumns,
		Rows:    make([]TableRow, 0, len(preview)),
		Total:   v.Len(),
	}
	for _, r := range preview {
		p.Rows = append(p.Rows, TableRow{
			Timestamp:    r.Timestamp.Format(time.DateTime),
			MonthName:    r.MonthName,
			State:        r.State,
			Municipality: r.Municipality,
			Cause:        r.Cause,
			AccidentType: r.AccidentType,
			Fatalities:   r.Fatalities,
		})
	}
	return p
}

// Metrics is the formatted summary shown above the charts.
type Metrics struct {
	TotalAccidents  string         `json:"total_accidents"`
	TotalFatalities string         `json:"total_fatalities"`
	FatalityRate    string         `json:"fatality_rate"`
	Values          domain.Metrics `json:"values"`
}

// MetricsPanel formats totals with Brazilian thousands separators ("12.345")
// and the rate with two decimals ("2.50%").
func MetricsPanel(m domain.Metrics) Metrics {
	return Metrics{
		TotalAccidents:  FormatCount(m.TotalAccidents),
		TotalFatalities: FormatCount(m.TotalFatalities),
		FatalityRate:    fmt.Sprintf("%.2f%%", m.FatalityRate),
		Values:          m,
	}
}

// FormatCount formats n using pt-BR digit grouping.
func FormatCount(n int) string {
	return message.NewPrinter(language.BrazilianPortuguese).Sprintf("%d", n)
}

// Dashboard is every panel computed from one view.
type Dashboard struct {
	Metrics   Metrics        `json:"metrics"`
	Map       MapPanel       `json:"map"`
	Hourly    HourlyPanel    `json:"hourly"`
	TopCauses TopCausesPanel `json:"top_causes"`
	Table     TablePanel     `json:"table"`
}

// Build renders every panel for v.
func Build(v domain.View) Dashboard {
	return Dashboard{
		Metrics:   MetricsPanel(domain.ComputeMetrics(v)),
		Map:       Map(v),
		Hourly:    HourlyChart(v),
		TopCauses: TopCausesChart(v),
		Table:     DetailTable(v),
	}
}

// Options are the choices offered by each filter control.
type Options struct {
	States         []string             `json:"states"`
	Municipalities []string             `json:"municipalities"`
	Months         []domain.MonthOption `json:"months"`
	Causes         []string             `json:"causes"`
}

// BuildOptions derives filter choices from ds. Municipalities cascade from
// the selected states.
func BuildOptions(ds *domain.Dataset, sel domain.Selection) Options {
	return Options{
		States:         domain.StateOptions(ds),
		Municipalities: domain.AvailableMunicipalities(ds, sel.States),
		Months:         domain.MonthOptions(ds),
		Causes:         domain.CauseOptions(ds),
	}
}
