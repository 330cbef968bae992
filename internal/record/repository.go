package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for daily record persistence.
type Repository interface {
	// GetByFeederAndDate retrieves the record for one feeder and day.
	// Returns ErrRecordNotFound when no record exists.
	GetByFeederAndDate(ctx context.Context, feederID string, day time.Time) (*DailyRecord, error)

	// ListFromDate retrieves every record for the feeder whose day is
	// the given day or later, oldest first.
	ListFromDate(ctx context.Context, feederID string, day time.Time) ([]DailyRecord, error)

	// Create inserts a new record. Returns ErrRecordExists when a
	// record for the feeder and day already exists.
	Create(ctx context.Context, rec *DailyRecord) error

	// Update rewrites the meals and total of an existing record.
	Update(ctx context.Context, rec *DailyRecord) error
}

// SQLiteRepository implements Repository using SQLite. The calorie
// total is recomputed from the meals inside Create and Update so no
// caller can persist a stale total.
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLiteRepository creates a new SQLite-backed repository. loc is
// the reference timezone used to interpret stored day keys.
func NewSQLiteRepository(db *sql.DB, loc *time.Location) *SQLiteRepository {
	return &SQLiteRepository{db: db, loc: loc}
}

const recordColumns = "id, feeder_id, date, meals, total_calories, created_at, updated_at"

// GetByFeederAndDate retrieves the record for one feeder and day.
func (r *SQLiteRepository) GetByFeederAndDate(ctx context.Context, feederID string, day time.Time) (*DailyRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM daily_records WHERE feeder_id = ? AND date = ?`,
		feederID, FormatDayKey(day))

	rec, err := r.scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying daily record: %w", err)
	}
	return rec, nil
}

// ListFromDate retrieves records from the given day forward.
func (r *SQLiteRepository) ListFromDate(ctx context.Context, feederID string, day time.Time) ([]DailyRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM daily_records WHERE feeder_id = ? AND date >= ? ORDER BY date`,
		feederID, FormatDayKey(day))
	if err != nil {
		return nil, fmt.Errorf("querying daily records: %w", err)
	}
	defer rows.Close()

	var out []DailyRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning daily record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Create inserts a new record.
func (r *SQLiteRepository) Create(ctx context.Context, rec *DailyRecord) error {
	rec.RecomputeTotal()

	mealsJSON, err := json.Marshal(rec.Meals)
	if err != nil {
		return fmt.Errorf("marshalling meals: %w", err)
	}

	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO daily_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.FeederID,
		FormatDayKey(rec.Date),
		string(mealsJSON),
		rec.TotalCalories,
		rec.CreatedAt.Format(time.RFC3339),
		rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrRecordExists
		}
		return fmt.Errorf("inserting daily record: %w", err)
	}
	return nil
}

// Update rewrites the meals and total of an existing record.
func (r *SQLiteRepository) Update(ctx context.Context, rec *DailyRecord) error {
	rec.RecomputeTotal()

	mealsJSON, err := json.Marshal(rec.Meals)
	if err != nil {
		return fmt.Errorf("marshalling meals: %w", err)
	}

	rec.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE daily_records SET meals = ?, total_calories = ?, updated_at = ? WHERE id = ?`,
		string(mealsJSON),
		rec.TotalCalories,
		rec.UpdatedAt.Format(time.RFC3339),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating daily record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *SQLiteRepository) scanRecord(scanner interface{ Scan(...any) error }) (*DailyRecord, error) {
	var rec DailyRecord
	var date, mealsJSON string
	var createdAt, updatedAt string

	err := scanner.Scan(
		&rec.ID,
		&rec.FeederID,
		&date,
		&mealsJSON,
		&rec.TotalCalories,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.Date, err = ParseDayKey(date, r.loc); err != nil {
		return nil, fmt.Errorf("parsing date: %w", err)
	}
	if err := json.Unmarshal([]byte(mealsJSON), &rec.Meals); err != nil {
		return nil, fmt.Errorf("unmarshalling meals: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &rec, nil
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "unique constraint")
}
