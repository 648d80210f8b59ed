package domain

import "sort"

// PreviewRows caps the detail table.
const PreviewRows = 100

// TopCausesLimit is the number of bars in the causes chart.
const TopCausesLimit = 10

// Metrics summarizes a view.
type Metrics struct {
	TotalAccidents  int     `json:"total_accidents"`
	TotalFatalities int     `json:"total_fatalities"`
	FatalityRate    float64 `json:"fatality_rate"` // percent
}

// ComputeMetrics totals accidents and fatalities. The rate is 0 for an empty
// view.
func ComputeMetrics(v View) Metrics {
	m := Metrics{TotalAccidents: len(v.Records)}
	for i := range v.Records {
		m.TotalFatalities += v.Records[i].Fatalities
	}
	if m.TotalAccidents > 0 {
		m.FatalityRate = float64(m.TotalFatalities) / float64(m.TotalAccidents) * 100
	}
	return m
}

// HourCount is the number of accidents in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// HourlyCounts returns 24 buckets ordered 0-23, including empty hours.
func HourlyCounts(v View) []HourCount {
	var counts [24]int
	for i := range v.Records {
		h := v.Records[i].Hour
		if h >= 0 && h < 24 {
			counts[h]++
		}
	}
	out := make([]HourCount, 24)
	for h := range out {
		out[h] = HourCount{Hour: h, Count: counts[h]}
	}
	return out
}

// CauseCount is the number of accidents attributed to one cause.
type CauseCount struct {
	Cause string `json:"cause"`
	Count int    `json:"count"`
}

// TopCauses returns up to n causes by descending count. Equal counts are
// ordered by cause name.
func TopCauses(v View, n int) []CauseCount {
	byCause := make(map[string]int)
	for i := range v.Records {
		byCause[v.Records[i].Cause]++
	}
	out := make([]CauseCount, 0, len(byCause))
	for c, count := range byCause {
		out = append(out, CauseCount{Cause: c, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Cause < out[j].Cause
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Preview returns a copy of the first n records of the view.
func Preview(v View, n int) []AccidentRecord {
	n = max(0, min(n, len(v.Records)))
	out := make([]AccidentRecord, n)
	copy(out, v.Records[:n])
	return out
}
