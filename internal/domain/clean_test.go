package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLatSP = "-23,55"
	testLonSP = "-46,63"
)

func rawAt(date, clock string) RawRecord {
	return RawRecord{
		Date:         date,
		Time:         clock,
		Latitude:     testLatSP,
		Longitude:    testLonSP,
		State:        "SP",
		Municipality: "SAO PAULO",
		Cause:        "Velocidade Incompatível",
		AccidentType: "Colisão traseira",
		Fatalities:   "0",
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		clock    string
		expected time.Time
		ok       bool
	}{
		{"iso with seconds", "2024-12-15", "18:30:00", time.Date(2024, 12, 15, 18, 30, 0, 0, time.UTC), true},
		{"iso without seconds", "2024-12-15", "18:30", time.Date(2024, 12, 15, 18, 30, 0, 0, time.UTC), true},
		{"day first", "15/12/2024", "07:05:00", time.Date(2024, 12, 15, 7, 5, 0, 0, time.UTC), true},
		{"surrounding spaces", " 2024-12-15 ", " 18:30:00", time.Date(2024, 12, 15, 18, 30, 0, 0, time.UTC), true},
		{"empty date", "", "18:30:00", time.Time{}, false},
		{"empty time", "2024-12-15", "", time.Time{}, false},
		{"impossible date", "2024-02-30", "10:00:00", time.Time{}, false},
		{"garbage", "yesterday", "noon", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, ok := ParseTimestamp(tt.date, tt.clock)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, ts)
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		in       string
		expected float64
		ok       bool
	}{
		{"-23,55", -23.55, true},
		{"-46.6333", -46.6333, true},
		{" -5,1 ", -5.1, true},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1.234,5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := ParseCoordinate(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.expected, v, 1e-9)
		})
	}
}

func TestParseFatalities(t *testing.T) {
	tests := []struct {
		in       string
		expected int
	}{
		{"0", 0},
		{"3", 3},
		{" 2 ", 2},
		{"1.0", 1},
		{"", 0},
		{"NA", 0},
		{"-1", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFatalities(tt.in))
		})
	}
}

func TestSubtractMonths(t *testing.T) {
	tests := []struct {
		name     string
		in       time.Time
		expected time.Time
	}{
		{
			"same day exists",
			time.Date(2024, 12, 15, 18, 30, 0, 0, time.UTC),
			time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC),
		},
		{
			"clamped to leap february",
			time.Date(2024, 8, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			"clamped to thirty day month",
			time.Date(2024, 12, 31, 8, 0, 0, 0, time.UTC),
			time.Date(2024, 6, 30, 8, 0, 0, 0, time.UTC),
		},
		{
			"crosses year boundary",
			time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SubtractMonths(tt.in, WindowMonths))
		})
	}
}

func TestMonthName(t *testing.T) {
	assert.Equal(t, "Janeiro", MonthName(1))
	assert.Equal(t, "Março", MonthName(3))
	assert.Equal(t, "Dezembro", MonthName(12))
	assert.Empty(t, MonthName(0))
	assert.Empty(t, MonthName(13))
}

func TestMonthNumber(t *testing.T) {
	for n := 1; n <= 12; n++ {
		got, ok := MonthNumber(MonthName(n))
		assert.True(t, ok)
		assert.Equal(t, n, got)
	}
	_, ok := MonthNumber("Marco")
	assert.False(t, ok)
}

func TestClean_WindowKeepsLastSixMonths(t *testing.T) {
	// One row on the 15th of every month of 2024, plus a later row on Dec 20.
	raws := make([]RawRecord, 0, 13)
	for m := 1; m <= 12; m++ {
		date := time.Date(2024, time.Month(m), 15, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		raws = append(raws, rawAt(date, "10:00:00"))
	}
	raws = append(raws, rawAt("2024-12-20", "21:15:00"))

	ds, err := Clean(raws)
	require.NoError(t, err)

	wantEnd := time.Date(2024, 12, 20, 21, 15, 0, 0, time.UTC)
	assert.Equal(t, wantEnd, ds.WindowEnd)
	assert.Equal(t, time.Date(2024, 6, 20, 21, 15, 0, 0, time.UTC), ds.WindowStart)

	months := map[int]bool{}
	for _, r := range ds.Records {
		months[r.MonthNumber] = true
		assert.False(t, r.Timestamp.Before(ds.WindowStart), "timestamp %s before window start", r.Timestamp)
		assert.False(t, r.Timestamp.After(ds.WindowEnd), "timestamp %s after window end", r.Timestamp)
	}
	assert.Equal(t, map[int]bool{7: true, 8: true, 9: true, 10: true, 11: true, 12: true}, months)
	assert.Equal(t, 7, ds.Len())
	assert.Equal(t, 6, ds.Drops.OutsideWindow)
	assert.Equal(t, 13, ds.Drops.RowsRead)
}

func TestClean_WindowStartIsInclusive(t *testing.T) {
	raws := []RawRecord{
		rawAt("2024-06-15", "10:00:00"),
		rawAt("2024-06-15", "09:59:59"),
		rawAt("2024-12-15", "10:00:00"),
	}

	ds, err := Clean(raws)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC), ds.Records[0].Timestamp)
}

func TestClean_WindowEndIncludesRowsWithBadCoordinates(t *testing.T) {
	// The newest timestamp anchors the window even though its row is dropped
	// later for coordinates.
	latest := rawAt("2025-01-31", "12:00:00")
	latest.Latitude = "abc"
	raws := []RawRecord{
		rawAt("2024-07-30", "12:00:00"),
		rawAt("2024-08-01", "12:00:00"),
		latest,
	}

	ds, err := Clean(raws)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC), ds.WindowEnd)
	assert.Equal(t, time.Date(2024, 7, 31, 12, 0, 0, 0, time.UTC), ds.WindowStart)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, 8, ds.Records[0].MonthNumber)
	assert.Equal(t, 1, ds.Drops.InvalidCoordinates)
	assert.Equal(t, 1, ds.Drops.OutsideWindow)
}

func TestClean_DropConjunction(t *testing.T) {
	badTime := rawAt("2024-12-01", "25:61:00")
	badLat := rawAt("2024-12-02", "10:00:00")
	badLat.Latitude = "abc"
	badLon := rawAt("2024-12-03", "10:00:00")
	badLon.Longitude = ""
	good := rawAt("2024-12-04", "10:00:00")
	good.Municipality = "CAMPINAS"

	ds, err := Clean([]RawRecord{badTime, badLat, badLon, good})
	require.NoError(t, err)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "CAMPINAS", ds.Records[0].Municipality)
	assert.Equal(t, DropStats{RowsRead: 4, InvalidTimestamp: 1, InvalidCoordinates: 2}, ds.Drops)
}

func TestClean_CoordinateNormalization(t *testing.T) {
	ds, err := Clean([]RawRecord{rawAt("2024-12-04", "10:00:00")})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.InDelta(t, -23.55, ds.Records[0].Latitude, 1e-9)
	assert.InDelta(t, -46.63, ds.Records[0].Longitude, 1e-9)
}

func TestClean_FatalityCoercionKeepsRow(t *testing.T) {
	unknown := rawAt("2024-12-04", "10:00:00")
	unknown.Fatalities = "NA"
	two := rawAt("2024-12-05", "10:00:00")
	two.Fatalities = "2"

	ds, err := Clean([]RawRecord{unknown, two})
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, 0, ds.Records[0].Fatalities)
	assert.Equal(t, 2, ds.Records[1].Fatalities)
}

func TestClean_DerivedFields(t *testing.T) {
	ds, err := Clean([]RawRecord{rawAt("2025-03-14", "18:45:00")})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	r := ds.Records[0]
	assert.Equal(t, 18, r.Hour)
	assert.Equal(t, 3, r.MonthNumber)
	assert.Equal(t, "Março", r.MonthName)
	assert.Equal(t, "SP", r.State)
	assert.Equal(t, "SAO PAULO", r.Municipality)
	assert.Equal(t, "Velocidade Incompatível", r.Cause)
	assert.Equal(t, "Colisão traseira", r.AccidentType)
}

func TestClean_NoValidTimestamp(t *testing.T) {
	_, err := Clean([]RawRecord{rawAt("not-a-date", "10:00:00"), rawAt("", "")})
	require.ErrorIs(t, err, ErrEmptyDataset)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestClean_NoRowsAtAll(t *testing.T) {
	_, err := Clean(nil)
	require.ErrorIs(t, err, ErrEmptyDataset)
}

func TestClean_NoValidCoordinates(t *testing.T) {
	r := rawAt("2024-12-04", "10:00:00")
	r.Latitude = "abc"
	_, err := Clean([]RawRecord{r})
	require.ErrorIs(t, err, ErrEmptyDataset)
	assert.Contains(t, err.Error(), "coordinates")
}

func TestClean_Deterministic(t *testing.T) {
	raws := []RawRecord{
		rawAt("2024-12-04", "10:00:00"),
		rawAt("2024-11-04", "08:00:00"),
		rawAt("2024-10-04", "23:00:00"),
	}

	first, err := Clean(raws)
	require.NoError(t, err)
	second, err := Clean(raws)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAccidentRecord_ID(t *testing.T) {
	ds, err := Clean([]RawRecord{rawAt("2024-12-04", "10:00:00"), rawAt("2024-12-04", "10:00:00"), rawAt("2024-12-04", "10:01:00")})
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	assert.True(t, strings.HasPrefix(ds.Records[0].ID(), "acc-"))
	assert.Equal(t, ds.Records[0].ID(), ds.Records[1].ID())
	assert.NotEqual(t, ds.Records[0].ID(), ds.Records[2].ID())
}
