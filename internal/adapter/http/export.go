package http

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	dashrender "github.com/couchcryptid/accident-dashboard/internal/render"
)

const (
	workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	recordsSheet = "Acidentes"
	summarySheet = "Resumo"
)

// writeWorkbook exports every row of v, not just the table preview, plus a
// summary sheet with the headline metrics.
func writeWorkbook(w io.Writer, v domain.View, ds *domain.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRecords(f, v); err != nil {
		return err
	}
	if err := writeSummary(f, v, ds); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRecords(f *excelize.File, v domain.View) error {
	sw, err := f.NewStreamWriter(recordsSheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]any, 0, len(dashrender.TableColumns)+2)
	for _, c := range dashrender.TableColumns {
		header = append(header, c)
	}
	header = append(header, "latitude", "longitude")
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range v.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell for row %d: %w", i, err)
		}
		row := []any{
			r.Timestamp.Format(time.DateTime),
			r.MonthName,
			r.State,
			r.Municipality,
			r.Cause,
			r.AccidentType,
			r.Fatalities,
			r.Latitude,
			r.Longitude,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush records: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, v domain.View, ds *domain.Dataset) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	m := dashrender.MetricsPanel(domain.ComputeMetrics(v))
	rows := [][2]any{
		{"total_acidentes", m.Values.TotalAccidents},
		{"total_mortos", m.Values.TotalFatalities},
		{"taxa_letalidade", m.FatalityRate},
		{"janela_inicio", ds.WindowStart.Format(time.DateTime)},
		{"janela_fim", ds.WindowEnd.Format(time.DateTime)},
		{"fonte", ds.Source},
		{"checksum", ds.Checksum},
	}
	for i, row := range rows {
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return fmt.Errorf("summary cell: %w", err)
			}
			if err := f.SetCellValue(summarySheet, cell, val); err != nil {
				return fmt.Errorf("summary %s: %w", cell, err)
			}
		}
	}
	return nil
}
