package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/mcclellann/rabbitfunding/pkg/logger"
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database and applies pending migrations.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// One writer keeps SQLite from returning "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not apply migrations: %w", err)
	}
	logger.L.Info("Database connection established and migrations applied.", "dsn", dataSourceName)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migration files: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.L.Debug("No new database migrations to apply.")
			return nil
		}
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

const userColumns = `id, name, email, password_hash, role, status, created_at, approved_at, rejected_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var idStr string
	var approved, rejected sql.NullTime
	if err := row.Scan(&idStr, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.Status, &user.CreatedAt, &approved, &rejected); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", idStr, err)
	}
	user.ID = id
	user.ApprovedAt = timePtr(approved)
	user.RejectedAt = timePtr(rejected)
	return &user, nil
}

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(user *models.User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Name, user.Email, user.PasswordHash, user.Role, user.Status, user.CreatedAt.UTC(), nullTime(user.ApprovedAt), nullTime(user.RejectedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email. Emails are stored lowercased.
func (s *SQLiteStore) GetUserByEmail(email string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ListUsers returns every user, newest first.
func (s *SQLiteStore) ListUsers() ([]*models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return users, nil
}

// UpdateUserStatus sets a user's status and stamps the matching decision time.
func (s *SQLiteStore) UpdateUserStatus(id uuid.UUID, status models.UserStatus, at time.Time) error {
	var query string
	switch status {
	case models.UserStatusApproved:
		query = `UPDATE users SET status = ?, approved_at = ? WHERE id = ?`
	case models.UserStatusRejected:
		query = `UPDATE users SET status = ?, rejected_at = ? WHERE id = ?`
	default:
		return fmt.Errorf("unsupported status transition to %q", status)
	}

	result, err := s.db.Exec(query, status, at.UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user.
func (s *SQLiteStore) DeleteUser(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func decimalPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	d := nd.Decimal
	return &d
}

// SaveEdit stores an edit. An edit older than the one already stored for
// the same history key is ignored.
func (s *SQLiteStore) SaveEdit(edit *models.TransactionEdit) error {
	_, err := s.db.Exec(
		`INSERT INTO transaction_edits (history_key, client, amount, principal_applied, fee_applied, description, error, notes, edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(history_key) DO UPDATE SET
			client = excluded.client,
			amount = excluded.amount,
			principal_applied = excluded.principal_applied,
			fee_applied = excluded.fee_applied,
			description = excluded.description,
			error = excluded.error,
			notes = excluded.notes,
			edited_at = excluded.edited_at
		WHERE excluded.edited_at >= transaction_edits.edited_at`,
		edit.HistoryKey,
		nullString(edit.Client),
		nullDecimal(edit.Amount),
		nullDecimal(edit.PrincipalApplied),
		nullDecimal(edit.FeeApplied),
		nullString(edit.Description),
		nullString(edit.Error),
		nullString(edit.Notes),
		edit.EditedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save edit for %s: %w", edit.HistoryKey, err)
	}
	return nil
}

// GetEdits returns every stored edit keyed by history key.
func (s *SQLiteStore) GetEdits() (map[string]models.TransactionEdit, error) {
	rows, err := s.db.Query(`SELECT history_key, client, amount, principal_applied, fee_applied, description, error, notes, edited_at FROM transaction_edits`)
	if err != nil {
		return nil, fmt.Errorf("failed to get edits: %w", err)
	}
	defer rows.Close()

	edits := make(map[string]models.TransactionEdit)
	for rows.Next() {
		var edit models.TransactionEdit
		var client, description, errText, notes sql.NullString
		var amount, principal, fee decimal.NullDecimal
		if err := rows.Scan(&edit.HistoryKey, &client, &amount, &principal, &fee, &description, &errText, &notes, &edit.EditedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edit row: %w", err)
		}
		edit.Client = stringPtr(client)
		edit.Amount = decimalPtr(amount)
		edit.PrincipalApplied = decimalPtr(principal)
		edit.FeeApplied = decimalPtr(fee)
		edit.Description = stringPtr(description)
		edit.Error = stringPtr(errText)
		edit.Notes = stringPtr(notes)
		edits[edit.HistoryKey] = edit
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for edits: %w", err)
	}
	return edits, nil
}

// CreateReport inserts a saved report.
func (s *SQLiteStore) CreateReport(report *models.SavedReport) error {
	_, err := s.db.Exec(
		`INSERT INTO saved_reports (id, name, date_range, search_query, status_filter, transaction_count, total_amount, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID.String(), report.Name, report.DateRange, report.SearchQuery, report.StatusFilter, report.TransactionCount, report.TotalAmount, report.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// ListReports returns saved reports, newest first.
func (s *SQLiteStore) ListReports() ([]*models.SavedReport, error) {
	rows, err := s.db.Query(`SELECT id, name, date_range, search_query, status_filter, transaction_count, total_amount, generated_at FROM saved_reports ORDER BY generated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.SavedReport{}
	for rows.Next() {
		var report models.SavedReport
		var idStr string
		if err := rows.Scan(&idStr, &report.Name, &report.DateRange, &report.SearchQuery, &report.StatusFilter, &report.TransactionCount, &report.TotalAmount, &report.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		report.ID = uuid.MustParse(idStr)
		reports = append(reports, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for reports: %w", err)
	}
	return reports, nil
}

// DeleteReport removes a saved report.
func (s *SQLiteStore) DeleteReport(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM saved_reports WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
