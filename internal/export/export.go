// Package export renders log selections and settlements as xlsx downloads.
package export

import (
	"io"

	"Divelog/internal/logbook"
	"Divelog/internal/sheet"
	"Divelog/internal/store"
	"Divelog/models"
)

const (
	SelectionFilename  = "Duiklogboek_selectie.xlsx"
	FullLogFilename    = "Duiklogboek.xlsx"
	SettlementFilename = "Afrekening.xlsx"
)

var settlementHeader = []string{"Duiker", "AantalDuiken", "Bedrag"}

// WriteEntries writes the entries in the column layout of the log file.
func WriteEntries(w io.Writer, entries []models.LogEntry) error {
	return sheet.Write(w, sheet.Table{
		Name:   "Sheet1",
		Header: store.LogHeader,
		Rows:   store.LogRows(entries),
	})
}

// WriteSettlement writes the per-diver totals on "Afrekening" and the
// counted dives on "Detail".
func WriteSettlement(w io.Writer, s logbook.Settlement) error {
	rows := make([][]interface{}, len(s.Lines))
	for i, l := range s.Lines {
		rows[i] = []interface{}{l.Diver, l.Dives, l.Amount.InexactFloat64()}
	}

	detail := append([]models.LogEntry(nil), s.Entries...)
	logbook.Sort(detail)

	return sheet.Write(w,
		sheet.Table{Name: "Afrekening", Header: settlementHeader, Rows: rows},
		sheet.Table{Name: "Detail", Header: store.LogHeader, Rows: store.LogRows(detail)},
	)
}
