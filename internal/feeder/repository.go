package feeder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for feeder persistence operations.
// The abstraction keeps the service testable without a database.
type Repository interface {
	// GetByID retrieves a feeder by its internal row ID.
	// Returns ErrFeederNotFound if no feeder matches.
	GetByID(ctx context.Context, id string) (*Feeder, error)

	// GetByDeviceID retrieves a feeder by its hardware device ID.
	// Returns ErrFeederNotFound if no feeder matches.
	GetByDeviceID(ctx context.Context, deviceID string) (*Feeder, error)

	// ListByUser retrieves every feeder linked to the user.
	ListByUser(ctx context.Context, userID string) ([]Feeder, error)

	// Create inserts a new feeder with its user links.
	// Returns ErrFeederExists when the device ID or name is taken.
	Create(ctx context.Context, f *Feeder) error

	// UpdateConfiguration replaces the feeding configuration.
	UpdateConfiguration(ctx context.Context, id string, cfg Configuration) error

	// SetDepositLevel stores the latest reported hopper level.
	SetDepositLevel(ctx context.Context, id string, level float64) error

	// SetCatPresence stores the latest reported pet presence.
	SetCatPresence(ctx context.Context, id string, present bool) error

	// LinkUser associates a user with a feeder. Linking twice is a
	// no-op.
	LinkUser(ctx context.Context, feederID, userID string) error

	// UnlinkUser removes a user's association with a feeder.
	// Returns ErrUserNotLinked if no link exists.
	UnlinkUser(ctx context.Context, feederID, userID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const feederColumns = `id, device_id, name, password_hash, configuration,
	deposit_level, cat_present, created_at, updated_at`

// GetByID retrieves a feeder by its internal row ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Feeder, error) {
	query := `SELECT ` + feederColumns + ` FROM feeders WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByDeviceID retrieves a feeder by its hardware device ID.
func (r *SQLiteRepository) GetByDeviceID(ctx context.Context, deviceID string) (*Feeder, error) {
	query := `SELECT ` + feederColumns + ` FROM feeders WHERE device_id = ?`
	return r.getOne(ctx, query, deviceID)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*Feeder, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	f, err := scanFeeder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFeederNotFound
		}
		return nil, fmt.Errorf("querying feeder: %w", err)
	}

	f.UserIDs, err = r.userIDs(ctx, f.ID)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// feederColumnsQualified prefixes every column with the feeders table
// for queries that join user_feeders, where created_at is ambiguous.
const feederColumnsQualified = `feeders.id, feeders.device_id, feeders.name,
	feeders.password_hash, feeders.configuration, feeders.deposit_level,
	feeders.cat_present, feeders.created_at, feeders.updated_at`

// ListByUser retrieves every feeder linked to the user.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]Feeder, error) {
	query := `
		SELECT ` + feederColumnsQualified + `
		FROM feeders
		JOIN user_feeders ON user_feeders.feeder_id = feeders.id
		WHERE user_feeders.user_id = ?
		ORDER BY feeders.name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying feeders by user: %w", err)
	}
	defer rows.Close()

	var out []Feeder
	for rows.Next() {
		f, err := scanFeeder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning feeder: %w", err)
		}
		f.UserIDs, err = r.userIDs(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// Create inserts a new feeder with its user links.
func (r *SQLiteRepository) Create(ctx context.Context, f *Feeder) error {
	cfgJSON, err := json.Marshal(f.Configuration)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}

	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	query := `
		INSERT INTO feeders (` + feederColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		f.ID,
		f.DeviceID,
		f.Name,
		f.PasswordHash,
		string(cfgJSON),
		f.DepositLevel,
		boolToInt(f.CatPresent),
		f.CreatedAt.Format(time.RFC3339),
		f.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrFeederExists
		}
		return fmt.Errorf("inserting feeder: %w", err)
	}

	for _, userID := range f.UserIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_feeders (user_id, feeder_id, created_at) VALUES (?, ?, ?)`,
			userID, f.ID, now.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("linking user %s: %w", userID, err)
		}
	}

	return tx.Commit()
}

// UpdateConfiguration replaces the feeding configuration.
func (r *SQLiteRepository) UpdateConfiguration(ctx context.Context, id string, cfg Configuration) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}

	return r.updateColumn(ctx, id, "configuration", string(cfgJSON))
}

// SetDepositLevel stores the latest reported hopper level.
func (r *SQLiteRepository) SetDepositLevel(ctx context.Context, id string, level float64) error {
	return r.updateColumn(ctx, id, "deposit_level", level)
}

// SetCatPresence stores the latest reported pet presence.
func (r *SQLiteRepository) SetCatPresence(ctx context.Context, id string, present bool) error {
	return r.updateColumn(ctx, id, "cat_present", boolToInt(present))
}

func (r *SQLiteRepository) updateColumn(ctx context.Context, id, column string, value any) error {
	// column is always a compile-time constant from this file.
	query := fmt.Sprintf("UPDATE feeders SET %s = ?, updated_at = ? WHERE id = ?", column)

	result, err := r.db.ExecContext(ctx, query, value, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating feeder %s: %w", column, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return ErrFeederNotFound
	}
	return nil
}

// LinkUser associates a user with a feeder.
func (r *SQLiteRepository) LinkUser(ctx context.Context, feederID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_feeders (user_id, feeder_id, created_at) VALUES (?, ?, ?)`,
		userID, feederID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("linking user: %w", err)
	}
	return nil
}

// UnlinkUser removes a user's association with a feeder.
func (r *SQLiteRepository) UnlinkUser(ctx context.Context, feederID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_feeders WHERE user_id = ? AND feeder_id = ?`,
		userID, feederID)
	if err != nil {
		return fmt.Errorf("unlinking user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking unlink result: %w", err)
	}
	if rows == 0 {
		return ErrUserNotLinked
	}
	return nil
}

func (r *SQLiteRepository) userIDs(ctx context.Context, feederID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM user_feeders WHERE feeder_id = ? ORDER BY user_id`, feederID)
	if err != nil {
		return nil, fmt.Errorf("querying feeder users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user link: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// rowScanner abstracts over sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeeder(scanner rowScanner) (*Feeder, error) {
	var f Feeder
	var cfgJSON string
	var catPresent int
	var createdAt, updatedAt string

	err := scanner.Scan(
		&f.ID,
		&f.DeviceID,
		&f.Name,
		&f.PasswordHash,
		&cfgJSON,
		&f.DepositLevel,
		&catPresent,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cfgJSON), &f.Configuration); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}
	f.CatPresent = catPresent != 0

	if f.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if f.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &f, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
