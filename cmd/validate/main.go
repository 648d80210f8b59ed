// Command validate loads an accident file and runs integrity checks against
// the cleaned dataset: the six-month window, coordinate validity, derived
// month and hour columns, fatality counts, drop accounting, and parse
// determinism. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate -source acidentes2025_todas_causas_tipos.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/couchcryptid/accident-dashboard/internal/adapter/source"
	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/pipeline"
)

// maxReported caps the errors recorded per phase.
const maxReported = 20

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	total  int
}

func (p *phase) errorf(format string, args ...any) {
	p.total++
	if len(p.errors) < maxReported {
		p.errors = append(p.errors, fmt.Sprintf(format, args...))
	}
}

func (p *phase) passed() bool { return p.total == 0 }

func main() {
	src := flag.String("source", config.DefaultSource, "path or http(s) URL of the accident CSV")
	timeout := flag.Duration("timeout", 30*time.Second, "download timeout for remote sources")
	flag.Parse()

	os.Exit(run(context.Background(), *src, *timeout, os.Stdout))
}

func run(ctx context.Context, location string, timeout time.Duration, out io.Writer) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fmt.Fprintln(out, "=== Accident Data Integrity Validation ===")
	fmt.Fprintln(out)

	data, err := readAll(ctx, source.New(location, timeout, logger))
	if err != nil {
		fmt.Fprintf(out, "FATAL: read source: %v\n", err)
		return 1
	}
	ds, err := pipeline.Parse(data)
	if err != nil {
		fmt.Fprintf(out, "FATAL: parse source: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateWindow(&ds),
		validateCoordinates(&ds),
		validateDerivedColumns(&ds),
		validateFatalities(&ds),
		validateDropAccounting(&ds),
		validateDeterminism(data, &ds),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", p.total)
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d read, %d kept, window %s to %s\n",
		ds.Drops.RowsRead, ds.Len(), ds.WindowStart.Format(time.DateTime), ds.WindowEnd.Format(time.DateTime))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		if p.total > len(p.errors) {
			fmt.Fprintf(out, "  ... %d more\n", p.total-len(p.errors))
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func readAll(ctx context.Context, src pipeline.Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ── Validation phases ──

func validateWindow(ds *domain.Dataset) *phase {
	p := &phase{name: "Six-month window"}

	if want := domain.SubtractMonths(ds.WindowEnd, domain.WindowMonths); !ds.WindowStart.Equal(want) {
		p.errorf("window start %s, want %s", ds.WindowStart, want)
	}

	// The end is taken before the coordinate drop, so no kept record has to
	// sit exactly on it.
	for i := range ds.Records {
		ts := ds.Records[i].Timestamp
		if ts.Before(ds.WindowStart) || ts.After(ds.WindowEnd) {
			p.errorf("record %d: timestamp %s outside [%s, %s]", i, ts, ds.WindowStart, ds.WindowEnd)
		}
	}
	return p
}

func validateCoordinates(ds *domain.Dataset) *phase {
	p := &phase{name: "Coordinates"}
	for i := range ds.Records {
		r := &ds.Records[i]
		if !finite(r.Latitude) || r.Latitude < -90 || r.Latitude > 90 {
			p.errorf("record %d: latitude %v out of range", i, r.Latitude)
		}
		if !finite(r.Longitude) || r.Longitude < -180 || r.Longitude > 180 {
			p.errorf("record %d: longitude %v out of range", i, r.Longitude)
		}
	}
	return p
}

func validateDerivedColumns(ds *domain.Dataset) *phase {
	p := &phase{name: "Derived hour and month columns"}
	for i := range ds.Records {
		r := &ds.Records[i]
		if r.Hour != r.Timestamp.Hour() {
			p.errorf("record %d: hour %d, timestamp says %d", i, r.Hour, r.Timestamp.Hour())
		}
		if r.MonthNumber != int(r.Timestamp.Month()) {
			p.errorf("record %d: month number %d, timestamp says %d", i, r.MonthNumber, r.Timestamp.Month())
		}
		if want := domain.MonthName(r.MonthNumber); r.MonthName != want {
			p.errorf("record %d: month name %q, want %q", i, r.MonthName, want)
		}
	}
	return p
}

func validateFatalities(ds *domain.Dataset) *phase {
	p := &phase{name: "Fatalities and metrics"}
	sum := 0
	for i := range ds.Records {
		if f := ds.Records[i].Fatalities; f < 0 {
			p.errorf("record %d: negative fatalities %d", i, f)
		} else {
			sum += f
		}
	}

	m := domain.ComputeMetrics(domain.Apply(ds, domain.NewSelection()))
	if m.TotalAccidents != ds.Len() {
		p.errorf("total accidents %d, dataset has %d rows", m.TotalAccidents, ds.Len())
	}
	if m.TotalFatalities != sum {
		p.errorf("total fatalities %d, records sum to %d", m.TotalFatalities, sum)
	}
	if m.TotalAccidents > 0 {
		want := float64(sum) / float64(m.TotalAccidents) * 100
		if math.Abs(m.FatalityRate-want) > 1e-9 {
			p.errorf("fatality rate %.4f, want %.4f", m.FatalityRate, want)
		}
	}
	return p
}

func validateDropAccounting(ds *domain.Dataset) *phase {
	p := &phase{name: "Drop accounting"}
	d := ds.Drops
	if kept := d.RowsRead - d.InvalidTimestamp - d.OutsideWindow - d.InvalidCoordinates; kept != ds.Len() {
		p.errorf("rows read %d minus drops (%d, %d, %d) = %d, dataset has %d",
			d.RowsRead, d.InvalidTimestamp, d.OutsideWindow, d.InvalidCoordinates, kept, ds.Len())
	}
	return p
}

func validateDeterminism(data []byte, ds *domain.Dataset) *phase {
	p := &phase{name: "Deterministic reload"}
	again, err := pipeline.Parse(data)
	if err != nil {
		p.errorf("second parse failed: %v", err)
		return p
	}
	if diff := cmp.Diff(*ds, again); diff != "" {
		p.errorf("second parse differs (-first +second):\n%s", diff)
	}
	return p
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
