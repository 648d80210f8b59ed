package domain

import (
	"slices"
	"sort"
)

// All is the sentinel for single-choice filters meaning "no constraint".
const All = "ALL"

// Selection is the set of values chosen for each filter dimension. Empty
// multi-select sets and the All sentinel both mean "no constraint".
type Selection struct {
	States       []string `json:"states"`
	Municipality string   `json:"municipality"`
	Months       []string `json:"months"`
	Cause        string   `json:"cause"`
}

// NewSelection returns a selection that constrains nothing.
func NewSelection() Selection {
	return Selection{Municipality: All, Cause: All}
}

// View is a filtered, independently owned copy of dataset records.
type View struct {
	Records []AccidentRecord
}

// Len returns the number of records in the view.
func (v View) Len() int { return len(v.Records) }

// Empty reports whether the view has no records.
func (v View) Empty() bool { return len(v.Records) == 0 }

// Matches reports whether r satisfies every active dimension of s.
func (s Selection) Matches(r *AccidentRecord) bool {
	if len(s.States) > 0 && !slices.Contains(s.States, r.State) {
		return false
	}
	if !isAll(s.Municipality) && r.Municipality != s.Municipality {
		return false
	}
	if len(s.Months) > 0 && !slices.Contains(s.Months, r.MonthName) {
		return false
	}
	if !isAll(s.Cause) && r.Cause != s.Cause {
		return false
	}
	return true
}

func isAll(v string) bool {
	return v == "" || v == All
}

// Apply returns the records of ds matching sel. The view never shares its
// backing array with the dataset.
func Apply(ds *Dataset, sel Selection) View {
	if ds == nil {
		return View{Records: []AccidentRecord{}}
	}
	out := make([]AccidentRecord, 0, len(ds.Records))
	for i := range ds.Records {
		if sel.Matches(&ds.Records[i]) {
			out = append(out, ds.Records[i])
		}
	}
	return View{Records: out}
}

// StateOptions returns the distinct states in ds, sorted.
func StateOptions(ds *Dataset) []string {
	return distinct(ds, func(r *AccidentRecord) (string, bool) { return r.State, true })
}

// AvailableMunicipalities returns the distinct municipalities among rows that
// pass the state filter alone. An empty state selection offers every
// municipality in the dataset.
func AvailableMunicipalities(ds *Dataset, states []string) []string {
	return distinct(ds, func(r *AccidentRecord) (string, bool) {
		if len(states) > 0 && !slices.Contains(states, r.State) {
			return "", false
		}
		return r.Municipality, true
	})
}

// ReconcileSelection resets a municipality that the state selection no
// longer offers back to All, so the applied filter always matches the
// options shown.
func ReconcileSelection(ds *Dataset, sel Selection) Selection {
	if isAll(sel.Municipality) {
		return sel
	}
	if !slices.Contains(AvailableMunicipalities(ds, sel.States), sel.Municipality) {
		sel.Municipality = All
	}
	return sel
}

// CauseOptions returns the distinct causes in ds, sorted.
func CauseOptions(ds *Dataset) []string {
	return distinct(ds, func(r *AccidentRecord) (string, bool) { return r.Cause, true })
}

// MonthOption pairs a month number with its display name.
type MonthOption struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// MonthOptions returns the months present in ds in calendar order.
func MonthOptions(ds *Dataset) []MonthOption {
	if ds == nil {
		return nil
	}
	var seen [13]bool
	for i := range ds.Records {
		if n := ds.Records[i].MonthNumber; n >= 1 && n <= 12 {
			seen[n] = true
		}
	}
	opts := make([]MonthOption, 0, 12)
	for n := 1; n <= 12; n++ {
		if seen[n] {
			opts = append(opts, MonthOption{Number: n, Name: MonthName(n)})
		}
	}
	return opts
}

func distinct(ds *Dataset, pick func(*AccidentRecord) (string, bool)) []string {
	if ds == nil {
		return nil
	}
	set := make(map[string]struct{})
	for i := range ds.Records {
		if v, ok := pick(&ds.Records[i]); ok {
			set[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
