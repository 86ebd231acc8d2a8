package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"Divelog/models"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// SQLStore keeps the logbook in a MySQL or SQLite database. Dates and
// timestamps are stored as text so both drivers read them back the same way.
type SQLStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// schema returns the CREATE statements for driver. Name and username keys
// compare byte-wise on both drivers, so "jan" and "Jan" are different names.
func schema(driver string) []string {
	autoID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	key := "VARCHAR(255)"
	if driver == "mysql" {
		autoID = "INT AUTO_INCREMENT PRIMARY KEY"
		key = "VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS divers (name ` + key + ` NOT NULL PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS sites (name ` + key + ` NOT NULL PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS divelogs (
			id ` + autoID + `,
			dive_date VARCHAR(10) NOT NULL,
			site VARCHAR(255) NOT NULL,
			diver VARCHAR(255) NOT NULL,
			remarks TEXT NULL,
			entered_by VARCHAR(255) NOT NULL,
			recorded_at VARCHAR(40) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username ` + key + ` NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL,
			salt VARCHAR(64) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at VARCHAR(40) NOT NULL
		)`,
	}
}

// OpenSQL connects with driver "mysql" or "sqlite" and creates missing tables.
func OpenSQL(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	if driver != "mysql" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// One connection keeps an in-memory sqlite database alive and writes serialized.
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	for _, stmt := range schema(driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLStore{db: db, logger: logger}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) names(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return uniqueSorted(names), nil
}

func (s *SQLStore) addName(ctx context.Context, table, name string) (string, error) {
	name = NormalizeName(name)
	if name == "" {
		return "", ErrEmptyName
	}

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE name = ?", name).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("count %s: %w", table, err)
	}
	if count > 0 {
		return "", ErrDuplicate
	}

	ins, err := s.db.PrepareContext(ctx, "INSERT INTO "+table+" (name) VALUES (?)")
	if err != nil {
		return "", err
	}
	defer ins.Close()

	if _, err := ins.ExecContext(ctx, name); err != nil {
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}
	return name, nil
}

func (s *SQLStore) Divers(ctx context.Context) ([]models.Diver, error) {
	names, err := s.names(ctx, "divers")
	if err != nil {
		return nil, err
	}
	return toDivers(names), nil
}

func (s *SQLStore) AddDiver(ctx context.Context, name string) (models.Diver, error) {
	name, err := s.addName(ctx, "divers", name)
	if err != nil {
		return models.Diver{}, err
	}
	s.logger.Info("diver added", slog.String("name", name))
	return models.Diver{Name: name}, nil
}

func (s *SQLStore) Sites(ctx context.Context) ([]models.DiveSite, error) {
	names, err := s.names(ctx, "sites")
	if err != nil {
		return nil, err
	}
	return toSites(names), nil
}

func (s *SQLStore) AddSite(ctx context.Context, name string) (models.DiveSite, error) {
	name, err := s.addName(ctx, "sites", name)
	if err != nil {
		return models.DiveSite{}, err
	}
	s.logger.Info("dive site added", slog.String("name", name))
	return models.DiveSite{Name: name}, nil
}

func (s *SQLStore) LogEntries(ctx context.Context) ([]models.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT dive_date, site, diver, remarks, entered_by, recorded_at FROM divelogs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query divelogs: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var (
			e                models.LogEntry
			date, recordedAt string
			remarks          sql.NullString
		)
		if err := rows.Scan(&date, &e.Site, &e.Diver, &remarks, &e.EnteredBy, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan divelogs: %w", err)
		}
		e.Date = ParseDate(date)
		e.Remarks = remarks.String
		e.Timestamp = ParseTimestamp(recordedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) AppendLogEntry(ctx context.Context, entry models.LogEntry) error {
	var remarks sql.NullString
	if entry.Remarks != "" {
		remarks = sql.NullString{String: entry.Remarks, Valid: true}
	}

	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO divelogs (dive_date, site, diver, remarks, entered_by, recorded_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, FormatDate(entry.Date), entry.Site, entry.Diver, remarks,
		entry.EnteredBy, formatTimestamp(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("insert into divelogs: %w", err)
	}

	s.logger.Info("dive registered",
		slog.String("diver", entry.Diver),
		slog.String("site", entry.Site),
		slog.String("date", FormatDate(entry.Date)),
		slog.String("entered_by", entry.EnteredBy))
	return nil
}

const userColumns = "username, name, role, salt, password_hash, created_at"

func scanUser(scan func(dest ...interface{}) error) (models.User, error) {
	var (
		u         models.User
		createdAt string
	)
	if err := scan(&u.Username, &u.Name, &u.Role, &u.Salt, &u.PasswordHash, &createdAt); err != nil {
		return models.User{}, err
	}
	u.CreatedAt = ParseTimestamp(createdAt)
	return u, nil
}

func (s *SQLStore) Users(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, username")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan users: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) UserByUsername(ctx context.Context, username string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user models.User) error {
	if err := validateUser(user); err != nil {
		return err
	}

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", user.Username).Scan(&count)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return ErrDuplicate
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		user.Username, user.Name, user.Role, user.Salt, user.PasswordHash, formatTimestamp(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	s.logger.Info("user created", slog.String("username", user.Username), slog.String("role", user.Role))
	return nil
}

func (s *SQLStore) UpdatePassword(ctx context.Context, username, salt, hash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET salt = ?, password_hash = ? WHERE username = ?",
		salt, hash, username)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Info("password changed", slog.String("username", username))
	return nil
}
