package pipeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// Source column names in the PRF open-data export.
const (
	colDate         = "data_inversa"
	colTime         = "horario"
	colLatitude     = "latitude"
	colLongitude    = "longitude"
	colState        = "uf"
	colMunicipality = "municipio"
	colCause        = "causa_acidente"
	colAccidentType = "tipo_acidente"
	colFatalities   = "mortos"
)

var requiredColumns = []string{
	colDate, colTime, colLatitude, colLongitude,
	colState, colMunicipality, colCause, colAccidentType, colFatalities,
}

// ReadRaw decodes a semicolon-delimited ISO-8859-1 CSV with a header row into
// raw records. Any structural problem fails the whole read with domain.ErrParse.
func ReadRaw(r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.Comma = ';'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header row", domain.ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", domain.ErrParse, err)
	}

	index, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []domain.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
		}
		out = append(out, domain.RawRecord{
			Date:         row[index[colDate]],
			Time:         row[index[colTime]],
			Latitude:     row[index[colLatitude]],
			Longitude:    row[index[colLongitude]],
			State:        row[index[colState]],
			Municipality: row[index[colMunicipality]],
			Cause:        row[index[colCause]],
			AccidentType: row[index[colAccidentType]],
			Fatalities:   row[index[colFatalities]],
		})
	}
	return out, nil
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			// A UTF-8 BOM survives Latin-1 decoding as three runes.
			name = strings.TrimPrefix(name, "\u00ef\u00bb\u00bf")
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.Trim(name, `"`)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s", domain.ErrParse, strings.Join(missing, ", "))
	}
	return index, nil
}
