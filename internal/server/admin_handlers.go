package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"Divelog/internal/auth"
	"Divelog/internal/store"
	"Divelog/models"

	"github.com/gin-gonic/gin"
)

var adminTabs = map[string]bool{"divers": true, "sites": true, "users": true}

func (s *Server) adminPage(c *gin.Context) {
	ctx := c.Request.Context()
	lists, err := s.referenceLists(ctx)
	if err != nil {
		s.fail(c, err, "Failed to retrieve reference lists")
		return
	}

	tab := c.DefaultQuery("tab", "divers")
	if !adminTabs[tab] {
		tab = "divers"
	}

	data := gin.H{
		"Tab":    tab,
		"Divers": lists.Divers,
		"Sites":  lists.Sites,
		"Roles":  []string{models.RoleUser, models.RoleAdmin},
	}
	if currentUser(c).IsAdmin() {
		users, err := s.store.Users(ctx)
		if err != nil {
			s.fail(c, err, "Failed to retrieve users")
			return
		}
		data["Users"] = users
	}

	c.HTML(http.StatusOK, "admin.html", s.page(c, "Beheer", "admin", data))
}

func (s *Server) redirectAdmin(c *gin.Context, tab string) {
	c.Redirect(http.StatusSeeOther, "/admin?tab="+tab)
}

// addName handles the add forms of both reference lists.
func (s *Server) addName(c *gin.Context, tab, label string, add func(ctx context.Context, name string) (string, error)) {
	var form nameForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "error.html", s.page(c, "Ongeldige invoer", "admin", gin.H{
			"Message": "Het formulier kon niet worden gelezen.",
		}))
		return
	}

	name, err := add(c.Request.Context(), form.Name)
	switch {
	case err == nil:
		flash(c, "success", fmt.Sprintf("%s '%s' toegevoegd.", label, name))
	case errors.Is(err, store.ErrEmptyName):
		flash(c, "error", "Vul een naam in.")
	case errors.Is(err, store.ErrDuplicate):
		flash(c, "error", fmt.Sprintf("%s '%s' bestaat al.", label, store.NormalizeName(form.Name)))
	default:
		s.fail(c, err, "Failed to save list")
		return
	}
	s.redirectAdmin(c, tab)
}

func (s *Server) addDiver(c *gin.Context) {
	s.addName(c, "divers", "Duiker", func(ctx context.Context, name string) (string, error) {
		d, err := s.store.AddDiver(ctx, name)
		return d.Name, err
	})
}

func (s *Server) addSite(c *gin.Context) {
	s.addName(c, "sites", "Duikplaats", func(ctx context.Context, name string) (string, error) {
		site, err := s.store.AddSite(ctx, name)
		return site.Name, err
	})
}

func (s *Server) createUser(c *gin.Context) {
	var form userForm
	if err := c.ShouldBind(&form); err != nil {
		if failedField(err) == "Role" && form.Role != "" {
			flash(c, "error", "Ongeldige rol.")
		} else {
			flash(c, "error", "Vul alle velden in.")
		}
		s.redirectAdmin(c, "users")
		return
	}
	if form.Password != form.Password2 {
		flash(c, "error", "Wachtwoorden komen niet overeen.")
		s.redirectAdmin(c, "users")
		return
	}

	salt, hash, err := auth.Credentials(form.Password)
	if err != nil {
		s.fail(c, err, "Failed to hash password")
		return
	}

	username := strings.TrimSpace(form.Username)
	err = s.store.CreateUser(c.Request.Context(), models.User{
		Username:     username,
		Name:         strings.TrimSpace(form.Name),
		Role:         form.Role,
		Salt:         salt,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	switch {
	case err == nil:
		flash(c, "success", fmt.Sprintf("Gebruiker '%s' aangemaakt.", username))
	case errors.Is(err, store.ErrDuplicate):
		flash(c, "error", "Gebruikersnaam bestaat al.")
	default:
		s.fail(c, err, "Failed to create user")
		return
	}
	s.redirectAdmin(c, "users")
}

func (s *Server) changePassword(c *gin.Context) {
	var form passwordForm
	if err := c.ShouldBind(&form); err != nil {
		flash(c, "error", "Kies een gebruiker.")
		s.redirectAdmin(c, "users")
		return
	}
	if form.Password == "" || form.Password != form.Password2 {
		flash(c, "error", "Wachtwoorden komen niet overeen of leeg.")
		s.redirectAdmin(c, "users")
		return
	}

	salt, hash, err := auth.Credentials(form.Password)
	if err != nil {
		s.fail(c, err, "Failed to hash password")
		return
	}

	err = s.store.UpdatePassword(c.Request.Context(), form.Username, salt, hash)
	switch {
	case err == nil:
		flash(c, "success", fmt.Sprintf("Wachtwoord voor '%s' gewijzigd.", form.Username))
	case errors.Is(err, store.ErrNotFound):
		flash(c, "error", fmt.Sprintf("Gebruiker '%s' bestaat niet.", form.Username))
	default:
		s.fail(c, err, "Failed to change password")
		return
	}
	s.redirectAdmin(c, "users")
}
