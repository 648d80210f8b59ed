package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RawRecord holds the untyped column values of one source CSV row.
// Only the columns the dashboard consumes are kept.
type RawRecord struct {
	Date         string // data_inversa, e.g. "2025-03-14"
	Time         string // horario, e.g. "18:45:00"
	Latitude     string // decimal comma, e.g. "-23,5505"
	Longitude    string
	State        string // uf
	Municipality string // municipio
	Cause        string // causa_acidente
	AccidentType string // tipo_acidente
	Fatalities   string // mortos
}

// AccidentRecord is one cleaned row of the dataset.
type AccidentRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Hour         int       `json:"hour"`
	MonthNumber  int       `json:"month_number"`
	MonthName    string    `json:"month_name"`
	State        string    `json:"state"`
	Municipality string    `json:"municipality"`
	Cause        string    `json:"cause"`
	AccidentType string    `json:"accident_type"`
	Fatalities   int       `json:"fatalities"`
}

// ID returns a deterministic identifier built from the record's key fields.
// Identical source rows share an ID.
func (r AccidentRecord) ID() string {
	input := fmt.Sprintf("%s|%s|%s|%.6f|%.6f|%s|%s",
		r.Timestamp.Format(time.RFC3339), r.State, r.Municipality, r.Latitude, r.Longitude, r.Cause, r.AccidentType)
	hash := sha256.Sum256([]byte(input))
	return "acc-" + hex.EncodeToString(hash[:8])
}

// DropStats counts rows discarded at each cleaning step.
type DropStats struct {
	RowsRead           int `json:"rows_read"`
	InvalidTimestamp   int `json:"invalid_timestamp"`
	OutsideWindow      int `json:"outside_window"`
	InvalidCoordinates int `json:"invalid_coordinates"`
}

// Dataset is the cleaned, windowed result of one load. It is shared by every
// reader of the load cache and must be treated as read-only.
type Dataset struct {
	Records     []AccidentRecord
	WindowStart time.Time
	WindowEnd   time.Time
	Source      string
	Checksum    string // hex sha256 of the source bytes
	Drops       DropStats
}

// Len returns the number of retained records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
