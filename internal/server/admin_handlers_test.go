package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"Divelog/internal/auth"
	"Divelog/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminListsForEveryUser(t *testing.T) {
	env := newTestEnv(t)
	c := env.login("lid", "lid-pw")

	rec := c.follow(c.post("/admin/divers", url.Values{"name": {"  Anna "}}))
	assert.Contains(t, rec.Body.String(), "Duiker &#39;Anna&#39; toegevoegd.")
	assert.Contains(t, rec.Body.String(), "<li>Anna</li>")

	rec = c.follow(c.post("/admin/divers", url.Values{"name": {"Anna"}}))
	assert.Contains(t, rec.Body.String(), "bestaat al.")

	rec = c.follow(c.post("/admin/divers", url.Values{"name": {"   "}}))
	assert.Contains(t, rec.Body.String(), "Vul een naam in.")

	rec = c.follow(c.post("/admin/sites", url.Values{"name": {"Zoetersbout"}}))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<li>Zoetersbout</li>")

	divers, err := env.store.Divers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Diver{{Name: "Anna"}}, divers)
}

func TestAdminAddNameRejectsUnreadableBody(t *testing.T) {
	env := newTestEnv(t)
	c := env.login("lid", "lid-pw")

	for _, path := range []string{"/admin/divers", "/admin/sites"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"name":`))
		req.Header.Set("Content-Type", "application/json")
		rec := c.do(req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Het formulier kon niet worden gelezen.", path)
		assert.NotContains(t, rec.Body.String(), "Vul een naam in.", path)
	}

	divers, err := env.store.Divers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, divers)
}

func TestAdminUsersTabHiddenForNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	c := env.login("lid", "lid-pw")

	rec := c.get("/admin?tab=users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alleen beheerders kunnen gebruikers beheren.")
	assert.NotContains(t, rec.Body.String(), "Nieuwe gebruiker")

	rec = c.post("/admin/users", url.Values{
		"username": {"stiekem"}, "name": {"Stiekem"}, "role": {"admin"},
		"password": {"x"}, "password2": {"x"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.post("/admin/users/password", url.Values{
		"username": {"beheer"}, "password": {"x"}, "password2": {"x"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err := env.store.UserByUsername(context.Background(), "stiekem")
	assert.Error(t, err)
}

func TestAdminCreatesUser(t *testing.T) {
	env := newTestEnv(t)
	c := env.login("beheer", "admin-pw")

	rec := c.get("/admin?tab=users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<td>lid</td><td>Lid Duiker</td><td>user</td>")

	rec = c.follow(c.post("/admin/users", url.Values{
		"username": {"nieuw"}, "name": {"Nieuw Lid"}, "role": {"user"},
		"password": {"welkom"}, "password2": {"welkom"},
	}))
	assert.Contains(t, rec.Body.String(), "Gebruiker &#39;nieuw&#39; aangemaakt.")

	env.login("nieuw", "welkom")
}

func TestAdminCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	c := env.login("beheer", "admin-pw")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "missing name",
			form: url.Values{"username": {"x"}, "role": {"user"}, "password": {"a"}, "password2": {"a"}},
			want: "Vul alle velden in.",
		},
		{
			name: "bad role",
			form: url.Values{"username": {"x"}, "name": {"X"}, "role": {"root"}, "password": {"a"}, "password2": {"a"}},
			want: "Ongeldige rol.",
		},
		{
			name: "mismatch",
			form: url.Values{"username": {"x"}, "name": {"X"}, "role": {"user"}, "password": {"a"}, "password2": {"b"}},
			want: "Wachtwoorden komen niet overeen.",
		},
		{
			name: "taken username",
			form: url.Values{"username": {"lid"}, "name": {"X"}, "role": {"user"}, "password": {"a"}, "password2": {"a"}},
			want: "Gebruikersnaam bestaat al.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.follow(c.post("/admin/users", tt.form))
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	users, err := env.store.Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAdminChangesPassword(t *testing.T) {
	env := newTestEnv(t)
	c := env.login("beheer", "admin-pw")
	ctx := context.Background()

	before, err := env.store.UserByUsername(ctx, "lid")
	require.NoError(t, err)

	rec := c.follow(c.post("/admin/users/password", url.Values{
		"username": {"lid"}, "password": {"nieuw-pw"}, "password2": {"anders"},
	}))
	assert.Contains(t, rec.Body.String(), "Wachtwoorden komen niet overeen of leeg.")

	rec = c.follow(c.post("/admin/users/password", url.Values{
		"username": {"lid"}, "password": {""}, "password2": {""},
	}))
	assert.Contains(t, rec.Body.String(), "Wachtwoorden komen niet overeen of leeg.")

	rec = c.follow(c.post("/admin/users/password", url.Values{
		"username": {"niemand"}, "password": {"a"}, "password2": {"a"},
	}))
	assert.Contains(t, rec.Body.String(), "bestaat niet.")

	rec = c.follow(c.post("/admin/users/password", url.Values{
		"username": {"lid"}, "password": {"nieuw-pw"}, "password2": {"nieuw-pw"},
	}))
	assert.Contains(t, rec.Body.String(), "Wachtwoord voor &#39;lid&#39; gewijzigd.")

	after, err := env.store.UserByUsername(ctx, "lid")
	require.NoError(t, err)
	assert.NotEqual(t, before.Salt, after.Salt)
	assert.True(t, auth.VerifyPassword("nieuw-pw", after.Salt, after.PasswordHash))
	assert.False(t, auth.VerifyPassword("lid-pw", after.Salt, after.PasswordHash))
}
