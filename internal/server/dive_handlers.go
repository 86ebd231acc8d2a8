package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"

	"Divelog/internal/export"
	"Divelog/internal/logbook"
	"Divelog/internal/sheet"
	"Divelog/internal/store"
	"Divelog/models"

	"github.com/gin-gonic/gin"
)

const allChoice = "(Alle)"

type referenceLists struct {
	Divers []string
	Sites  []string
}

func (s *Server) referenceLists(ctx context.Context) (referenceLists, error) {
	divers, err := s.store.Divers(ctx)
	if err != nil {
		return referenceLists{}, err
	}
	sites, err := s.store.Sites(ctx)
	if err != nil {
		return referenceLists{}, err
	}

	lists := referenceLists{}
	for _, d := range divers {
		lists.Divers = append(lists.Divers, d.Name)
	}
	for _, site := range sites {
		lists.Sites = append(lists.Sites, site.Name)
	}
	return lists, nil
}

func (s *Server) registerPage(c *gin.Context) {
	s.renderRegister(c, http.StatusOK, diveForm{Date: s.today().Format(formDateLayout)}, "")
}

func (s *Server) renderRegister(c *gin.Context, status int, form diveForm, errMsg string) {
	lists, err := s.referenceLists(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve reference lists")
		return
	}
	c.HTML(status, "register.html", s.page(c, "Duiken registreren", "register", gin.H{
		"Form":   form,
		"Divers": lists.Divers,
		"Sites":  lists.Sites,
		"Error":  errMsg,
	}))
}

// newLogEntry checks a submitted dive against the reference lists.
func (s *Server) newLogEntry(ctx context.Context, form diveForm, enteredBy string) (models.LogEntry, string, error) {
	date, err := parseFormDate(form.Date)
	if err != nil {
		return models.LogEntry{}, "Ongeldige datum.", nil
	}

	lists, err := s.referenceLists(ctx)
	if err != nil {
		return models.LogEntry{}, "", err
	}
	diver := store.NormalizeName(form.Diver)
	site := store.NormalizeName(form.Site)
	if !containsName(lists.Divers, diver) {
		return models.LogEntry{}, fmt.Sprintf("Onbekende duiker '%s'.", diver), nil
	}
	if !containsName(lists.Sites, site) {
		return models.LogEntry{}, fmt.Sprintf("Onbekende duikplaats '%s'.", site), nil
	}

	return models.LogEntry{
		Date:      date,
		Site:      site,
		Diver:     diver,
		Remarks:   form.Remarks,
		EnteredBy: enteredBy,
		Timestamp: s.now().UTC(),
	}, "", nil
}

func (s *Server) registerDive(c *gin.Context) {
	var form diveForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderRegister(c, http.StatusBadRequest, form, "Vul datum, duiker en duikplaats in.")
		return
	}

	ctx := c.Request.Context()
	entry, msg, err := s.newLogEntry(ctx, form, currentUser(c).Username)
	if err != nil {
		s.fail(c, err, "Failed to retrieve reference lists")
		return
	}
	if msg != "" {
		s.renderRegister(c, http.StatusBadRequest, form, msg)
		return
	}

	if err := s.store.AppendLogEntry(ctx, entry); err != nil {
		s.fail(c, err, "Failed to log the new dive")
		return
	}

	flash(c, "success", "Duik geregistreerd.")
	c.Redirect(http.StatusSeeOther, "/dives/new")
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// parseFilter reads from, to, diver and site from the query. Missing dates
// default to the span of the log; "(Alle)" means no restriction.
func (s *Server) parseFilter(c *gin.Context, entries []models.LogEntry) (logbook.Filter, error) {
	first, last := logbook.DateSpan(entries, s.today())
	f := logbook.Filter{From: first, To: last}

	if v := c.Query("from"); v != "" {
		t, err := parseFormDate(v)
		if err != nil {
			return f, fmt.Errorf("ongeldige datum 'vanaf': %s", v)
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseFormDate(v)
		if err != nil {
			return f, fmt.Errorf("ongeldige datum 'tot en met': %s", v)
		}
		f.To = t
	}
	if v := c.Query("diver"); v != allChoice {
		f.Diver = v
	}
	if v := c.Query("site"); v != allChoice {
		f.Site = v
	}
	return f, nil
}

func filterQuery(f logbook.Filter) string {
	q := url.Values{}
	q.Set("from", store.FormatDate(f.From))
	q.Set("to", store.FormatDate(f.To))
	if f.Diver != "" {
		q.Set("diver", f.Diver)
	}
	if f.Site != "" {
		q.Set("site", f.Site)
	}
	return q.Encode()
}

func (s *Server) overviewPage(c *gin.Context) {
	entries, err := s.store.LogEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve dive logs")
		return
	}
	if len(entries) == 0 {
		c.HTML(http.StatusOK, "overview.html", s.page(c, "Overzicht", "overview", gin.H{"Empty": true}))
		return
	}

	f, err := s.parseFilter(c, entries)
	status := http.StatusOK
	errMsg := ""
	if err != nil {
		status, errMsg = http.StatusBadRequest, err.Error()
	}

	c.HTML(status, "overview.html", s.page(c, "Overzicht", "overview", gin.H{
		"Filter":  f,
		"Entries": logbook.Apply(entries, f),
		"Divers":  logbook.DistinctDivers(entries),
		"Sites":   logbook.DistinctSites(entries),
		"Export":  template.URL("/overview/export?" + filterQuery(f)),
		"Error":   errMsg,
	}))
}

func (s *Server) exportSelection(c *gin.Context) {
	entries, err := s.store.LogEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve dive logs")
		return
	}
	f, err := s.parseFilter(c, entries)
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	selection := logbook.Apply(entries, f)
	s.sendWorkbook(c, export.SelectionFilename, func(w io.Writer) error {
		return export.WriteEntries(w, selection)
	})
}

func (s *Server) exportAll(c *gin.Context) {
	entries, err := s.store.LogEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve dive logs")
		return
	}
	s.sendWorkbook(c, export.FullLogFilename, func(w io.Writer) error {
		return export.WriteEntries(w, entries)
	})
}

func (s *Server) sendWorkbook(c *gin.Context, filename string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		s.fail(c, err, "Failed to build workbook")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, sheet.ContentType, buf.Bytes())
}
