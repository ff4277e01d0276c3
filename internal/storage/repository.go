package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"medidor/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create inserts a new measure. A second report for the same customer, type
// and calendar month hits the unique index and is reported as
// core.ErrDuplicateMeasure, so the invariant holds even when two submissions
// race past the pre-check.
func (r *SQLiteRepository) Create(ctx context.Context, m core.Measure) error {
	year, month := m.MonthKey()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO measures (id, customer_code, measure_type, measure_datetime,
			measure_year, measure_month, measure_value, confirmed, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CustomerCode, string(m.Type), m.Datetime.UTC().Format(time.RFC3339Nano),
		year, month, m.Value, boolToInt(m.Confirmed), m.ImageURL,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.ErrDuplicateMeasure
		}
		return fmt.Errorf("insert measure: %w", err)
	}

	slog.InfoContext(ctx, "Measure saved",
		"id", m.ID,
		"customer_code", m.CustomerCode,
		"measure_type", m.Type,
		"measure_value", m.Value)

	return nil
}

// Get retrieves a single measure by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Measure, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, customer_code, measure_type, measure_datetime, measure_value, confirmed, image_url
		FROM measures WHERE id = ?`, id)

	m, err := scanMeasure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Measure{}, core.ErrNotFound
	}
	if err != nil {
		return core.Measure{}, fmt.Errorf("get measure by id: %w", err)
	}
	return m, nil
}

// ExistsForMonth reports whether the customer already has a measure of the
// given type in the given calendar month.
func (r *SQLiteRepository) ExistsForMonth(ctx context.Context, customerCode string, t core.MeasureType, year, month int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM measures
		WHERE customer_code = ? AND measure_type = ? AND measure_year = ? AND measure_month = ?`,
		customerCode, string(t), year, month,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count measures for month: %w", err)
	}
	return n > 0, nil
}

// ListByCustomer returns the customer's measures, oldest first, optionally
// restricted to one measure type.
func (r *SQLiteRepository) ListByCustomer(ctx context.Context, customerCode string, t *core.MeasureType) ([]core.Measure, error) {
	query := `
		SELECT id, customer_code, measure_type, measure_datetime, measure_value, confirmed, image_url
		FROM measures WHERE customer_code = ?`
	args := []any{customerCode}
	if t != nil {
		query += ` AND measure_type = ?`
		args = append(args, string(*t))
	}
	query += ` ORDER BY measure_datetime ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list measures: %w", err)
	}
	defer rows.Close()

	var measures []core.Measure
	for rows.Next() {
		m, err := scanMeasure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan measure: %w", err)
		}
		measures = append(measures, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measures: %w", err)
	}
	return measures, nil
}

// Confirm performs the one-shot false->true transition, overwriting the
// value with the confirmed one. A row that is missing or already confirmed
// is left untouched.
func (r *SQLiteRepository) Confirm(ctx context.Context, id string, value int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE measures SET measure_value = ?, confirmed = 1
		WHERE id = ? AND confirmed = 0`, value, id)
	if err != nil {
		return fmt.Errorf("confirm measure: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm measure rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish absent from already confirmed.
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return core.ErrAlreadyConfirmed
	}

	slog.InfoContext(ctx, "Measure confirmed", "id", id, "measure_value", value)
	return nil
}

// PendingExport lists confirmed measures that have not been exported yet.
func (r *SQLiteRepository) PendingExport(ctx context.Context, limit int) ([]core.Measure, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, customer_code, measure_type, measure_datetime, measure_value, confirmed, image_url
		FROM measures WHERE confirmed = 1 AND exported = 0
		ORDER BY measure_datetime ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export: %w", err)
	}
	defer rows.Close()

	var measures []core.Measure
	for rows.Next() {
		m, err := scanMeasure(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending measure: %w", err)
		}
		measures = append(measures, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending measures: %w", err)
	}
	return measures, nil
}

// MarkExported flags a measure as handed off to billing.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE measures SET exported = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark measure exported: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Measure marked exported", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeasure(row rowScanner) (core.Measure, error) {
	var (
		m         core.Measure
		mType     string
		datetime  string
		confirmed int
	)
	if err := row.Scan(&m.ID, &m.CustomerCode, &mType, &datetime, &m.Value, &confirmed, &m.ImageURL); err != nil {
		return core.Measure{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, datetime)
	if err != nil {
		return core.Measure{}, fmt.Errorf("parse measure datetime %q: %w", datetime, err)
	}
	m.Type = core.MeasureType(mType)
	m.Datetime = ts
	m.Confirmed = confirmed != 0
	return m, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
