package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"Divelog/models"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	ErrEmptyName = errors.New("name is empty")
)

// Store is the persistence of the logbook: two reference lists, the log
// itself and the user accounts. Records are never deleted.
type Store interface {
	Divers(ctx context.Context) ([]models.Diver, error)
	AddDiver(ctx context.Context, name string) (models.Diver, error)

	Sites(ctx context.Context) ([]models.DiveSite, error)
	AddSite(ctx context.Context, name string) (models.DiveSite, error)

	LogEntries(ctx context.Context) ([]models.LogEntry, error)
	AppendLogEntry(ctx context.Context, entry models.LogEntry) error

	Users(ctx context.Context) ([]models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) error
	UpdatePassword(ctx context.Context, username, salt, hash string) error

	Close() error
}

// NormalizeName trims surrounding whitespace and brings the name into NFC
// form so visually equal names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// uniqueSorted normalizes names, drops empty ones and duplicates, and sorts.
func uniqueSorted(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = NormalizeName(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func toDivers(names []string) []models.Diver {
	divers := make([]models.Diver, len(names))
	for i, n := range names {
		divers[i] = models.Diver{Name: n}
	}
	return divers
}

func toSites(names []string) []models.DiveSite {
	sites := make([]models.DiveSite, len(names))
	for i, n := range names {
		sites[i] = models.DiveSite{Name: n}
	}
	return sites
}

func validateUser(user models.User) error {
	if strings.TrimSpace(user.Username) == "" {
		return errors.New("username is empty")
	}
	if user.Role != models.RoleUser && user.Role != models.RoleAdmin {
		return errors.New("role must be user or admin")
	}
	if user.Salt == "" || user.PasswordHash == "" {
		return errors.New("password is not set")
	}
	return nil
}
