package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/fleetsignup/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: SessionRepository implements domain.SessionRepository.
var _ domain.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements domain.SessionRepository using SQLite.
type SessionRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*SessionRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*SessionRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &SessionRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *SessionRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *SessionRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// Fixed width so timestamps compare correctly as strings.
const timeFormat = "2006-01-02T15:04:05Z"

const selectColumns = `SELECT id, state, form_values, field_errors, terms_accepted,
	result_kind, result_message, created_at, updated_at FROM signup_sessions`

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	values, errs, err := encodeForm(s)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO signup_sessions
		 (id, state, form_values, field_errors, terms_accepted, result_kind, result_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, string(s.State), values, errs, s.Form.TermsAccepted,
		string(s.Result.Kind), s.Result.Message,
		s.CreatedAt.UTC().Format(timeFormat),
		s.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s, err
}

func (r *SessionRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Session, error) {
	query := selectColumns
	var args []any

	if filter.State != nil {
		query += ` WHERE state = ?`
		args = append(args, string(*filter.State))
	}

	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT.
		query += ` LIMIT -1`
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

func (r *SessionRepository) Update(ctx context.Context, s domain.Session) error {
	values, errs, err := encodeForm(s)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE signup_sessions SET state = ?, form_values = ?, field_errors = ?, terms_accepted = ?,
		 result_kind = ?, result_message = ?, updated_at = ?
		 WHERE id = ?`,
		string(s.State), values, errs, s.Form.TermsAccepted,
		string(s.Result.Kind), s.Result.Message,
		time.Now().UTC().Format(timeFormat), s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}

	return expectOneRow(result)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM signup_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	return expectOneRow(result)
}

func (r *SessionRepository) DeleteStale(ctx context.Context, before time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM signup_sessions WHERE updated_at < ?`,
		before.UTC().Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting stale sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(n), nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func encodeForm(s domain.Session) (values, errs string, err error) {
	v, err := json.Marshal(s.Form.Values)
	if err != nil {
		return "", "", fmt.Errorf("encoding form values: %w", err)
	}
	e, err := json.Marshal(s.Errors)
	if err != nil {
		return "", "", fmt.Errorf("encoding field errors: %w", err)
	}
	return string(v), string(e), nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var s domain.Session
	var state, values, errs, kind, createdAt, updatedAt string

	err := row.Scan(&s.ID, &state, &values, &errs, &s.Form.TermsAccepted,
		&kind, &s.Result.Message, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, err
		}
		return domain.Session{}, fmt.Errorf("scanning session: %w", err)
	}

	s.State = domain.State(state)
	s.Result.Kind = domain.ResultKind(kind)

	if err := json.Unmarshal([]byte(values), &s.Form.Values); err != nil {
		return domain.Session{}, fmt.Errorf("decoding form values: %w", err)
	}
	if err := json.Unmarshal([]byte(errs), &s.Errors); err != nil {
		return domain.Session{}, fmt.Errorf("decoding field errors: %w", err)
	}
	if s.Form.Values == nil {
		s.Form.Values = make(map[domain.Field]string)
	}
	if s.Errors == nil {
		s.Errors = make(domain.FieldErrors)
	}

	s.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	s.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return s, nil
}
