// Package export writes flattened experiment records to tabular files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"promptlab/domain/design"

	"github.com/xuri/excelize/v2"
)

// DataWriter writes records to Excel or CSV files, chosen by extension.
type DataWriter struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataWriter creates a writer for the given path; .csv writes CSV,
// everything else writes xlsx.
func NewDataWriter(filePath string) *DataWriter {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataWriter{filePath: filePath, fileType: fileType}
}

// WriteRecords writes one row per record using the design's stable column
// order, header row first. Missing cells are left empty.
func (w *DataWriter) WriteRecords(columns []string, records []design.Record) error {
	switch w.fileType {
	case "csv":
		return w.writeCSV(columns, records)
	case "xlsx":
		return w.writeExcel(columns, records)
	default:
		return fmt.Errorf("unsupported file type: %s", w.fileType)
	}
}

func (w *DataWriter) writeCSV(columns []string, records []design.Record) error {
	f, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := make([]string, len(columns))
	for i, rec := range records {
		for j, col := range columns {
			if v, ok := rec[col]; ok {
				row[j] = fmt.Sprint(v)
			} else {
				row[j] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (w *DataWriter) writeExcel(columns []string, records []design.Record) error {
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	for j, col := range columns {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return fmt.Errorf("failed to name header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	for i, rec := range records {
		for j, col := range columns {
			v, ok := rec[col]
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to name cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", i, err)
			}
		}
	}
	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
