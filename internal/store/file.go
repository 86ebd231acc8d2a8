package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"Divelog/internal/sheet"
	"Divelog/models"

	"github.com/xuri/excelize/v2"
)

// Column headers of the data files. The reference lists are read from their
// first column whatever its header says.
const (
	DiversHeader = "DUIKERS ANWW"
	SitesHeader  = "duikplaatsen ANWW"
)

var (
	LogHeader   = []string{"Datum", "Duikplaats", "Duiker", "Opmerkingen", "IngevoerdDoor", "Tijdstempel"}
	UsersHeader = []string{"username", "name", "role", "salt", "password_hash", "created_at"}
)

const dateLayout = "2006-01-02"

// Paths locates the four data files of a FileStore.
type Paths struct {
	Divers string
	Sites  string
	Log    string
	Users  string
}

// FileStore keeps the logbook in three xlsx workbooks and a CSV of users.
// Every mutation rereads and rewrites the whole file. The mutex only
// serializes writers inside this process.
type FileStore struct {
	mu     sync.Mutex
	paths  Paths
	logger *slog.Logger
}

// NewFileStore creates any missing data file with just its header row.
func NewFileStore(paths Paths, logger *slog.Logger) (*FileStore, error) {
	s := &FileStore{paths: paths, logger: logger}

	for _, path := range []string{paths.Divers, paths.Sites, paths.Log, paths.Users} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	if err := s.createIfMissing(paths.Divers, func() error { return s.writeNames(paths.Divers, DiversHeader, nil) }); err != nil {
		return nil, err
	}
	if err := s.createIfMissing(paths.Sites, func() error { return s.writeNames(paths.Sites, SitesHeader, nil) }); err != nil {
		return nil, err
	}
	if err := s.createIfMissing(paths.Log, func() error { return s.writeLog(nil) }); err != nil {
		return nil, err
	}
	if err := s.createIfMissing(paths.Users, func() error { return s.writeUsers(nil) }); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) createIfMissing(path string, create func() error) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := create(); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	s.logger.Info("created data file", slog.String("path", path))
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// reference lists

func (s *FileStore) readNames(path string) ([]string, error) {
	rows, err := sheet.ReadFirst(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var names []string
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		names = append(names, row[0])
	}
	return uniqueSorted(names), nil
}

func (s *FileStore) writeNames(path, header string, names []string) error {
	rows := make([][]interface{}, len(names))
	for i, n := range names {
		rows[i] = []interface{}{n}
	}
	return sheet.WriteFile(path, sheet.Table{Name: "Sheet1", Header: []string{header}, Rows: rows})
}

func (s *FileStore) addName(ctx context.Context, path, header, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = NormalizeName(name)
	if name == "" {
		return "", ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.readNames(path)
	if err != nil {
		return "", err
	}
	if contains(names, name) {
		return "", ErrDuplicate
	}

	if err := s.writeNames(path, header, uniqueSorted(append(names, name))); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return name, nil
}

func (s *FileStore) Divers(ctx context.Context) ([]models.Diver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := s.readNames(s.paths.Divers)
	if err != nil {
		return nil, err
	}
	return toDivers(names), nil
}

func (s *FileStore) AddDiver(ctx context.Context, name string) (models.Diver, error) {
	name, err := s.addName(ctx, s.paths.Divers, DiversHeader, name)
	if err != nil {
		return models.Diver{}, err
	}
	s.logger.Info("diver added", slog.String("name", name))
	return models.Diver{Name: name}, nil
}

func (s *FileStore) Sites(ctx context.Context) ([]models.DiveSite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := s.readNames(s.paths.Sites)
	if err != nil {
		return nil, err
	}
	return toSites(names), nil
}

func (s *FileStore) AddSite(ctx context.Context, name string) (models.DiveSite, error) {
	name, err := s.addName(ctx, s.paths.Sites, SitesHeader, name)
	if err != nil {
		return models.DiveSite{}, err
	}
	s.logger.Info("dive site added", slog.String("name", name))
	return models.DiveSite{Name: name}, nil
}

// log

func (s *FileStore) readLog() ([]models.LogEntry, error) {
	rows, err := sheet.ReadFirst(s.paths.Log)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.paths.Log, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := columnIndex(rows[0])
	entries := make([]models.LogEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		entries = append(entries, models.LogEntry{
			Date:      ParseDate(get("Datum")),
			Site:      get("Duikplaats"),
			Diver:     get("Duiker"),
			Remarks:   get("Opmerkingen"),
			EnteredBy: get("IngevoerdDoor"),
			Timestamp: ParseTimestamp(get("Tijdstempel")),
		})
	}
	return entries, nil
}

func (s *FileStore) writeLog(entries []models.LogEntry) error {
	return sheet.WriteFile(s.paths.Log, sheet.Table{Name: "Sheet1", Header: LogHeader, Rows: LogRows(entries)})
}

// LogRows renders entries in the column order of LogHeader.
func LogRows(entries []models.LogEntry) [][]interface{} {
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = []interface{}{
			FormatDate(e.Date),
			e.Site,
			e.Diver,
			e.Remarks,
			e.EnteredBy,
			formatTimestamp(e.Timestamp),
		}
	}
	return rows
}

func (s *FileStore) LogEntries(ctx context.Context) ([]models.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readLog()
}

func (s *FileStore) AppendLogEntry(ctx context.Context, entry models.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLog()
	if err != nil {
		return err
	}
	if err := s.writeLog(append(entries, entry)); err != nil {
		return fmt.Errorf("write %s: %w", s.paths.Log, err)
	}

	s.logger.Info("dive registered",
		slog.String("diver", entry.Diver),
		slog.String("site", entry.Site),
		slog.String("date", FormatDate(entry.Date)),
		slog.String("entered_by", entry.EnteredBy))
	return nil
}

// users

func (s *FileStore) readUsers() ([]models.User, error) {
	f, err := os.Open(s.paths.Users)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.paths.Users, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.paths.Users, err)
	}
	col := columnIndex(header)

	var users []models.User
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.paths.Users, err)
		}
		if isBlank(record) {
			continue
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}
		users = append(users, models.User{
			Username:     get("username"),
			Name:         get("name"),
			Role:         get("role"),
			Salt:         get("salt"),
			PasswordHash: get("password_hash"),
			CreatedAt:    ParseTimestamp(get("created_at")),
		})
	}
	return users, nil
}

func (s *FileStore) writeUsers(users []models.User) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.paths.Users), ".divelog-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(UsersHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, u := range users {
		record := []string{u.Username, u.Name, u.Role, u.Salt, u.PasswordHash, formatTimestamp(u.CreatedAt)}
		if err := w.Write(record); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.paths.Users)
}

func (s *FileStore) Users(ctx context.Context) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readUsers()
}

func (s *FileStore) UserByUsername(ctx context.Context, username string) (models.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (s *FileStore) CreateUser(ctx context.Context, user models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateUser(user); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}

	if err := s.writeUsers(append(users, user)); err != nil {
		return fmt.Errorf("write %s: %w", s.paths.Users, err)
	}
	s.logger.Info("user created", slog.String("username", user.Username), slog.String("role", user.Role))
	return nil
}

func (s *FileStore) UpdatePassword(ctx context.Context, username, salt, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.readUsers()
	if err != nil {
		return err
	}

	found := false
	for i := range users {
		if users[i].Username == username {
			users[i].Salt = salt
			users[i].PasswordHash = hash
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}

	if err := s.writeUsers(users); err != nil {
		return fmt.Errorf("write %s: %w", s.paths.Users, err)
	}
	s.logger.Info("password changed", slog.String("username", username))
	return nil
}

// cell helpers

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	return col
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// FormatDate renders a date as YYYY-MM-DD, or "" for the zero date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

var dateLayouts = []string{
	dateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
	time.RFC3339Nano,
}

// ParseDate reads a date cell written by this program, by a spreadsheet
// application (Excel serial number) or as an ISO date-time. Unreadable values
// give the zero time.
func ParseDate(v string) time.Time {
	t := parseCell(v, dateLayouts)
	if t.IsZero() {
		return t
	}
	return models.DateOnly(t)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	dateLayout,
}

// ParseTimestamp reads a timestamp cell. Values without zone are UTC.
func ParseTimestamp(v string) time.Time {
	return parseCell(v, timestampLayouts)
}

func parseCell(v string, layouts []string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
