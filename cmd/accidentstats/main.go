// Command accidentstats loads an accident file through the same pipeline as
// the dashboard and prints the headline metrics, a per-state breakdown, the
// most frequent causes, and the hourly distribution. The JSON output is used
// as a fixture when asserting dashboard behavior.
//
// Usage:
//
//	go run ./cmd/accidentstats -source acidentes2025_todas_causas_tipos.csv
//	go run ./cmd/accidentstats -source https://example.org/acidentes.csv.gz -format json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/adapter/source"
	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
	"github.com/couchcryptid/accident-dashboard/internal/pipeline"
	"github.com/couchcryptid/accident-dashboard/internal/render"
)

// stateStats is one row of the per-state breakdown.
type stateStats struct {
	State      string `json:"state"`
	Accidents  int    `json:"accidents"`
	Fatalities int    `json:"fatalities"`
}

type report struct {
	Source      string              `json:"source"`
	Checksum    string              `json:"checksum"`
	WindowStart time.Time           `json:"window_start"`
	WindowEnd   time.Time           `json:"window_end"`
	Drops       domain.DropStats    `json:"drops"`
	Metrics     domain.Metrics      `json:"metrics"`
	States      []stateStats        `json:"states"`
	TopCauses   []domain.CauseCount `json:"top_causes"`
	Hourly      []domain.HourCount  `json:"hourly"`
}

var errUsage = errors.New("usage")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("accidentstats", flag.ContinueOnError)
	src := fs.String("source", config.DefaultSource, "path or http(s) URL of the accident CSV")
	top := fs.Int("top", domain.TopCausesLimit, "number of causes to list")
	format := fs.String("format", "text", "output format: text or json")
	timeout := fs.Duration("timeout", 30*time.Second, "download timeout for remote sources")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *format != "text" && *format != "json" {
		fs.Usage()
		return fmt.Errorf("%w: unknown format %q", errUsage, *format)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loader := pipeline.NewLoader(logger, observability.NewUnregisteredMetrics())

	ds, err := loader.Load(ctx, source.New(*src, *timeout, logger))
	if err != nil {
		return fmt.Errorf("load %s: %w", *src, err)
	}

	rep := buildReport(&ds, *top)
	if *format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return writeText(out, rep)
}

func buildReport(ds *domain.Dataset, top int) report {
	all := domain.Apply(ds, domain.NewSelection())
	return report{
		Source:      ds.Source,
		Checksum:    ds.Checksum,
		WindowStart: ds.WindowStart,
		WindowEnd:   ds.WindowEnd,
		Drops:       ds.Drops,
		Metrics:     domain.ComputeMetrics(all),
		States:      byState(ds),
		TopCauses:   domain.TopCauses(all, top),
		Hourly:      domain.HourlyCounts(all),
	}
}

// byState orders states by accident count, then by name.
func byState(ds *domain.Dataset) []stateStats {
	idx := make(map[string]int)
	var out []stateStats
	for i := range ds.Records {
		r := &ds.Records[i]
		j, ok := idx[r.State]
		if !ok {
			j = len(out)
			idx[r.State] = j
			out = append(out, stateStats{State: r.State})
		}
		out[j].Accidents++
		out[j].Fatalities += r.Fatalities
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Accidents != out[b].Accidents {
			return out[a].Accidents > out[b].Accidents
		}
		return out[a].State < out[b].State
	})
	return out
}

func writeText(out io.Writer, rep report) error {
	m := render.MetricsPanel(rep.Metrics)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Fonte:\t%s\n", rep.Source)
	fmt.Fprintf(tw, "Janela:\t%s a %s\n", rep.WindowStart.Format("02/01/2006 15:04"), rep.WindowEnd.Format("02/01/2006 15:04"))
	fmt.Fprintf(tw, "Linhas lidas:\t%s\n", render.FormatCount(rep.Drops.RowsRead))
	fmt.Fprintf(tw, "Descartadas (data/hora, janela, coordenadas):\t%d, %d, %d\n",
		rep.Drops.InvalidTimestamp, rep.Drops.OutsideWindow, rep.Drops.InvalidCoordinates)
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Total de Acidentes:\t%s\n", m.TotalAccidents)
	fmt.Fprintf(tw, "Total de Mortos:\t%s\n", m.TotalFatalities)
	fmt.Fprintf(tw, "Taxa de Letalidade:\t%s\n", m.FatalityRate)

	fmt.Fprintln(tw, "\nUF\tAcidentes\tMortos")
	for _, s := range rep.States {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.State, render.FormatCount(s.Accidents), render.FormatCount(s.Fatalities))
	}

	fmt.Fprintln(tw, "\nCausa\tAcidentes")
	for _, c := range rep.TopCauses {
		fmt.Fprintf(tw, "%s\t%s\n", c.Cause, render.FormatCount(c.Count))
	}

	fmt.Fprintln(tw, "\nHora\tAcidentes")
	for _, h := range rep.Hourly {
		fmt.Fprintf(tw, "%02dh\t%s\n", h.Hour, render.FormatCount(h.Count))
	}

	return tw.Flush()
}
