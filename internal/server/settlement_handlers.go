package server

import (
	"html/template"
	"io"
	"net/http"

	"Divelog/internal/export"
	"Divelog/internal/logbook"
	"Divelog/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// settlementRequest reads from, to and fee from the query, with the log's
// date span and the configured fee as defaults.
func (s *Server) settlementRequest(c *gin.Context, entries []models.LogEntry) (logbook.Settlement, decimal.Decimal, string) {
	fee := s.fee
	if v := c.Query("fee"); v != "" {
		parsed, err := logbook.ParseFee(v)
		if err != nil {
			return logbook.Settlement{}, fee, "Ongeldige vergoeding per duik."
		}
		if parsed.IsNegative() {
			return logbook.Settlement{}, fee, "De vergoeding per duik kan niet negatief zijn."
		}
		fee = parsed
	}

	f, err := s.parseFilter(c, entries)
	if err != nil {
		return logbook.Settlement{}, fee, err.Error()
	}
	return logbook.Settle(entries, f.From, f.To, fee), fee, ""
}

func (s *Server) settlementPage(c *gin.Context) {
	entries, err := s.store.LogEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve dive logs")
		return
	}
	if len(entries) == 0 {
		c.HTML(http.StatusOK, "settlement.html", s.page(c, "Afrekening", "settlement", gin.H{"NoLog": true}))
		return
	}

	settlement, fee, errMsg := s.settlementRequest(c, entries)
	status := http.StatusOK
	if errMsg != "" {
		status = http.StatusBadRequest
		first, last := logbook.DateSpan(entries, s.today())
		settlement = logbook.Settlement{From: first, To: last}
	}

	c.HTML(status, "settlement.html", s.page(c, "Afrekening", "settlement", gin.H{
		"Settlement": settlement,
		"Fee":        fee.StringFixed(2),
		"Error":      errMsg,
		"Export":     template.URL("/settlement/export?" + c.Request.URL.RawQuery),
	}))
}

func (s *Server) exportSettlement(c *gin.Context) {
	entries, err := s.store.LogEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve dive logs")
		return
	}

	settlement, _, errMsg := s.settlementRequest(c, entries)
	if errMsg == "" && settlement.Empty() {
		errMsg = "Geen duiken in de gekozen periode."
	}
	if errMsg != "" {
		flash(c, "warning", errMsg)
		c.Redirect(http.StatusSeeOther, "/settlement?"+c.Request.URL.RawQuery)
		return
	}

	s.sendWorkbook(c, export.SettlementFilename, func(w io.Writer) error {
		return export.WriteSettlement(w, settlement)
	})
}
