package server

import (
	"errors"
	"net/http"

	"Divelog/internal/logbook"
	"Divelog/internal/store"

	"github.com/gin-gonic/gin"
)

func (s *Server) apiDivers(c *gin.Context) {
	divers, err := s.store.Divers(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve divers")
		return
	}
	c.JSON(http.StatusOK, divers)
}

func (s *Server) apiSites(c *gin.Context) {
	sites, err := s.store.Sites(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve dive sites")
		return
	}
	c.JSON(http.StatusOK, sites)
}

func (s *Server) apiAddDiver(c *gin.Context) {
	var form nameForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	diver, err := s.store.AddDiver(c.Request.Context(), form.Name)
	if s.apiNameError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, diver)
}

func (s *Server) apiAddSite(c *gin.Context) {
	var form nameForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	site, err := s.store.AddSite(c.Request.Context(), form.Name)
	if s.apiNameError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, site)
}

// apiNameError writes the response for a failed list insert and reports
// whether it did.
func (s *Server) apiNameError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, store.ErrEmptyName):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is empty"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Name already exists"})
	default:
		s.fail(c, err, "Failed to save list")
	}
	return true
}

func (s *Server) apiDives(c *gin.Context) {
	entries, err := s.store.LogEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to retrieve dive logs")
		return
	}
	f, err := s.parseFilter(c, entries)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logbook.Apply(entries, f))
}

func (s *Server) apiAddDive(c *gin.Context) {
	var form diveForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	entry, msg, err := s.newLogEntry(ctx, form, currentUser(c).Username)
	if err != nil {
		s.fail(c, err, "Failed to retrieve reference lists")
		return
	}
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := s.store.AppendLogEntry(ctx, entry); err != nil {
		s.fail(c, err, "Failed to log the new dive")
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) apiSettlement(c *gin.Context) {
	entries, err := s.store.LogEntries(c.Request.Context())
	if err != nil {
		s.fail(c, err, "Failed to generate settlement")
		return
	}
	settlement, _, errMsg := s.settlementRequest(c, entries)
	if errMsg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMsg})
		return
	}
	c.JSON(http.StatusOK, settlement)
}
