// Package sheet reads and writes the xlsx workbooks the logbook keeps its
// data in and hands out as downloads.
package sheet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Table is one worksheet: a header row followed by data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

func build(tables []Table) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, t := range tables {
		if i == 0 {
			f.SetSheetName(f.GetSheetName(0), t.Name)
		} else if _, err := f.NewSheet(t.Name); err != nil {
			f.Close()
			return nil, err
		}

		header := make([]interface{}, len(t.Header))
		for j, h := range t.Header {
			header[j] = h
		}
		if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetRowStyle(t.Name, 1, 1, bold); err != nil {
			f.Close()
			return nil, err
		}

		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			row := row
			if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write encodes the tables as one workbook to w.
func Write(w io.Writer, tables ...Table) error {
	f, err := build(tables)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	return f.Write(w)
}

// WriteFile replaces the workbook at path. The new content is written to a
// temporary file in the same directory first and renamed over the old one.
func WriteFile(path string, tables ...Table) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".divelog-*.xlsx")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, tables...); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFirst returns the raw cell values of the first worksheet, header row
// included. Dates come back as Excel serial numbers when stored as such.
func ReadFirst(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}
