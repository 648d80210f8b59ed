package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// WindowMonths is the size of the retained time window, counted back from the
// newest timestamp in the source.
const WindowMonths = 6

// timestampLayouts are tried in order against "<date> <time>". PRF exports use
// ISO dates; older extracts use day-first Brazilian dates.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// Clean validates raw rows and derives the dashboard fields. Rows with an
// unparseable timestamp or coordinates are dropped and counted; the load only
// fails when nothing survives.
func Clean(raws []RawRecord) (Dataset, error) {
	stats := DropStats{RowsRead: len(raws)}

	type stamped struct {
		raw *RawRecord
		ts  time.Time
	}
	valid := make([]stamped, 0, len(raws))
	for i := range raws {
		ts, ok := ParseTimestamp(raws[i].Date, raws[i].Time)
		if !ok {
			stats.InvalidTimestamp++
			continue
		}
		valid = append(valid, stamped{raw: &raws[i], ts: ts})
	}
	if len(valid) == 0 {
		return Dataset{Drops: stats}, fmt.Errorf("%w: no row has a valid timestamp", ErrEmptyDataset)
	}

	end := valid[0].ts
	for _, s := range valid[1:] {
		if s.ts.After(end) {
			end = s.ts
		}
	}
	start := SubtractMonths(end, WindowMonths)

	records := make([]AccidentRecord, 0, len(valid))
	for _, s := range valid {
		if s.ts.Before(start) {
			stats.OutsideWindow++
			continue
		}
		lat, okLat := ParseCoordinate(s.raw.Latitude)
		lon, okLon := ParseCoordinate(s.raw.Longitude)
		if !okLat || !okLon {
			stats.InvalidCoordinates++
			continue
		}
		records = append(records, newRecord(s.raw, s.ts, lat, lon))
	}
	if len(records) == 0 {
		return Dataset{WindowStart: start, WindowEnd: end, Drops: stats},
			fmt.Errorf("%w: no row in the window has valid coordinates", ErrEmptyDataset)
	}

	return Dataset{
		Records:     records,
		WindowStart: start,
		WindowEnd:   end,
		Drops:       stats,
	}, nil
}

func newRecord(raw *RawRecord, ts time.Time, lat, lon float64) AccidentRecord {
	month := int(ts.Month())
	return AccidentRecord{
		Timestamp:    ts,
		Latitude:     lat,
		Longitude:    lon,
		Hour:         ts.Hour(),
		MonthNumber:  month,
		MonthName:    MonthName(month),
		State:        raw.State,
		Municipality: raw.Municipality,
		Cause:        raw.Cause,
		AccidentType: raw.AccidentType,
		Fatalities:   ParseFatalities(raw.Fatalities),
	}
}

// ParseTimestamp joins a date and a time with a single space and parses the
// result in UTC.
func ParseTimestamp(date, clock string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, false
	}
	joined := date + " " + clock
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, joined); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// ParseCoordinate parses a decimal-comma coordinate such as "-23,55".
// Empty, malformed, and non-finite values are rejected.
func ParseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseFatalities returns the fatality count, or 0 when the value is missing,
// non-numeric, or negative. Decimal values ("1.0") are truncated.
func ParseFatalities(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(f)
}

// SubtractMonths moves t back by n calendar months, keeping the clock time.
// When the day does not exist in the target month it is clamped to the
// month's last day (Aug 31 minus 6 months is Feb 28/29).
func SubtractMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()-time.Month(n), 1, 0, 0, 0, 0, t.Location())
	day := min(t.Day(), daysIn(first.Year(), first.Month(), t.Location()))
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
