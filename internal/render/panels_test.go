package render

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

func testView() domain.View {
	mk := func(hour int, state, city, cause string, fatalities int) domain.AccidentRecord {
		ts := time.Date(2025, time.March, 14, hour, 30, 0, 0, time.UTC)
		return domain.AccidentRecord{
			Timestamp: ts, Latitude: -23.5, Longitude: -46.6,
			Hour: hour, MonthNumber: 3, MonthName: domain.MonthName(3),
			State: state, Municipality: city, Cause: cause,
			AccidentType: "Colisão traseira", Fatalities: fatalities,
		}
	}
	return domain.View{Records: []domain.AccidentRecord{
		mk(7, "SP", "GUARULHOS", "Velocidade Incompatível", 0),
		mk(7, "SP", "SÃO PAULO", "Velocidade Incompatível", 1),
		mk(18, "RJ", "NITERÓI", "Chuva", 0),
		mk(23, "RJ", "NITERÓI", "Ingestão de álcool", 2),
	}}
}

func TestEmptyViewPanelsCarryWarnings(t *testing.T) {
	d := Build(domain.View{})

	assert.True(t, d.Map.Empty)
	assert.Equal(t, "Nenhum dado encontrado para os filtros selecionados no mapa.", d.Map.Warning)
	assert.Empty(t, d.Map.Points)

	assert.True(t, d.Hourly.Empty)
	assert.Equal(t, "Sem dados para exibir o gráfico de acidentes por hora.", d.Hourly.Warning)

	assert.True(t, d.TopCauses.Empty)
	assert.Equal(t, "Sem dados para exibir o gráfico de top 10 causas.", d.TopCauses.Warning)
	assert.Empty(t, d.TopCauses.Causes)

	assert.True(t, d.Table.Empty)
	assert.Empty(t, d.Table.Rows)

	assert.Equal(t, "0", d.Metrics.TotalAccidents)
	assert.Equal(t, "0.00%", d.Metrics.FatalityRate)
}

func TestMap(t *testing.T) {
	p := Map(testView())
	assert.False(t, p.Empty)
	assert.Empty(t, p.Warning)
	require.Len(t, p.Points, 4)
	assert.Equal(t, Point{Lat: -23.5, Lon: -46.6}, p.Points[0])
}

func TestHourlyChart(t *testing.T) {
	p := HourlyChart(testView())
	require.Len(t, p.Hours, 24)
	assert.Equal(t, 2, p.Hours[7].Count)
	assert.Equal(t, 0, p.Hours[12].Count)
	assert.Equal(t, 2, p.Max)
}

func TestTopCausesChart(t *testing.T) {
	p := TopCausesChart(testView())
	require.Len(t, p.Causes, 3)
	assert.Equal(t, domain.CauseCount{Cause: "Velocidade Incompatível", Count: 2}, p.Causes[0])
	// Ties ordered by name.
	assert.Equal(t, "Chuva", p.Causes[1].Cause)
	assert.Equal(t, 2, p.Max)
}

func TestDetailTable(t *testing.T) {
	p := DetailTable(testView())
	assert.Equal(t, TableColumns, p.Columns)
	assert.Equal(t, 4, p.Total)
	require.Len(t, p.Rows, 4)
	assert.Equal(t, TableRow{
		Timestamp:    "2025-03-14 07:30:00",
		MonthName:    "Março",
		State:        "SP",
		Municipality: "GUARULHOS",
		Cause:        "Velocidade Incompatível",
		AccidentType: "Colisão traseira",
		Fatalities:   0,
	}, p.Rows[0])
}

func TestDetailTable_CapsRows(t *testing.T) {
	recs := make([]domain.AccidentRecord, 250)
	p := DetailTable(domain.View{Records: recs})
	assert.Len(t, p.Rows, domain.PreviewRows)
	assert.Equal(t, 250, p.Total)
}

func TestMetricsPanel(t *testing.T) {
	tests := []struct {
		in         domain.Metrics
		accidents  string
		fatalities string
		rate       string
	}{
		{domain.Metrics{TotalAccidents: 12345, TotalFatalities: 987, FatalityRate: 7.996}, "12.345", "987", "8.00%"},
		{domain.Metrics{TotalAccidents: 1234567, TotalFatalities: 1000, FatalityRate: 0.081}, "1.234.567", "1.000", "0.08%"},
		{domain.Metrics{TotalAccidents: 40, TotalFatalities: 1, FatalityRate: 2.5}, "40", "1", "2.50%"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in.TotalAccidents), func(t *testing.T) {
			got := MetricsPanel(tt.in)
			assert.Equal(t, tt.accidents, got.TotalAccidents)
			assert.Equal(t, tt.fatalities, got.TotalFatalities)
			assert.Equal(t, tt.rate, got.FatalityRate)
			assert.Equal(t, tt.in, got.Values)
		})
	}
}

func TestBuildOptions_CascadesMunicipalities(t *testing.T) {
	ds := &domain.Dataset{Records: testView().Records}

	opts := BuildOptions(ds, domain.Selection{States: []string{"RJ"}})
	assert.Equal(t, []string{"RJ", "SP"}, opts.States)
	assert.Equal(t, []string{"NITERÓI"}, opts.Municipalities)
	assert.Equal(t, []domain.MonthOption{{Number: 3, Name: "Março"}}, opts.Months)

	opts = BuildOptions(ds, domain.NewSelection())
	assert.Len(t, opts.Municipalities, 3)
}

func TestWritePage(t *testing.T) {
	v := testView()
	ds := &domain.Dataset{Records: v.Records}
	sel := domain.Selection{States: []string{"SP"}, Municipality: domain.All, Cause: domain.All}

	var buf bytes.Buffer
	err := WritePage(&buf, Page{
		Dashboard:   Build(v),
		Options:     BuildOptions(ds, sel),
		Selection:   sel,
		Source:      "acidentes.csv",
		WindowStart: time.Date(2024, 9, 14, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		ExportURL:   "/api/export.xlsx?state=SP",
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "Total de Acidentes")
	assert.Contains(t, html, `<option value="SP" selected>SP</option>`)
	assert.Contains(t, html, "14/09/2024 a 14/03/2025")
	assert.Contains(t, html, `href="/api/export.xlsx?state=SP"`)
	assert.Contains(t, html, "Velocidade Incompatível")
	assert.Contains(t, html, `id="map"`)
	assert.NotContains(t, html, "Sem dados")
}

func TestWritePage_ErrorHidesPanels(t *testing.T) {
	var buf bytes.Buffer
	err := WritePage(&buf, Page{Error: "accident source not found", Source: "x.csv"})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `class="error"`)
	assert.Contains(t, html, "accident source not found")
	assert.NotContains(t, html, "Métricas Gerais")
	assert.NotContains(t, html, `id="map"`)
}

func TestWritePage_EmptyViewShowsWarnings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, Page{Dashboard: Build(domain.View{})}))

	html := buf.String()
	assert.Contains(t, html, "Sem dados para exibir o gráfico de acidentes por hora.")
	assert.NotContains(t, html, `id="map"`)
}
