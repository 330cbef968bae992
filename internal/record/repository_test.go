package record

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the records schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "record-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE daily_records (
			id              TEXT PRIMARY KEY,
			feeder_id       TEXT NOT NULL,
			date            TEXT NOT NULL,
			meals           TEXT NOT NULL DEFAULT '[]',
			total_calories  REAL NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE UNIQUE INDEX idx_daily_records_feeder_date ON daily_records(feeder_id, date);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return db
}

func testRecord(day time.Time) *DailyRecord {
	return &DailyRecord{
		ID:       "rec-" + FormatDayKey(day),
		FeederID: "fdr-1",
		Date:     day,
		Meals: []Meal{
			{
				ScheduleID:      "sch-morning",
				ScheduledAt:     day.Add(8 * time.Hour),
				CaloriesPlanned: 100,
				Status:          MealScheduled,
			},
			{
				ScheduleID:      "sch-evening",
				ScheduledAt:     day.Add(20 * time.Hour),
				CaloriesPlanned: 120,
				Status:          MealScheduled,
			},
		},
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t), time.UTC)
	ctx := context.Background()
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testRecord(day)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByFeederAndDate(ctx, "fdr-1", day)
	if err != nil {
		t.Fatalf("GetByFeederAndDate() error = %v", err)
	}

	if got.FeederID != "fdr-1" {
		t.Errorf("FeederID = %q, want fdr-1", got.FeederID)
	}
	if !got.Date.Equal(day) {
		t.Errorf("Date = %v, want %v", got.Date, day)
	}
	if len(got.Meals) != 2 {
		t.Fatalf("meals = %d, want 2", len(got.Meals))
	}
	if got.Meals[0].ScheduleID != "sch-morning" {
		t.Errorf("Meals[0].ScheduleID = %q, want sch-morning", got.Meals[0].ScheduleID)
	}
	if got.TotalCalories != 0 {
		t.Errorf("TotalCalories = %v, want 0 before any consumption", got.TotalCalories)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be populated")
	}
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t), time.UTC)
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	_, err := repo.GetByFeederAndDate(context.Background(), "fdr-1", day)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("GetByFeederAndDate() error = %v, want ErrRecordNotFound", err)
	}
}

func TestSQLiteRepository_CreateDuplicateDay(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t), time.UTC)
	ctx := context.Background()
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, testRecord(day)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := testRecord(day)
	dup.ID = "rec-other"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrRecordExists) {
		t.Errorf("Create() duplicate error = %v, want ErrRecordExists", err)
	}
}

func TestSQLiteRepository_UpdateRecomputesTotal(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t), time.UTC)
	ctx := context.Background()
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	rec := testRecord(day)
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dispensed := day.Add(8 * time.Hour)
	if err := rec.Meals[0].MarkDispensed(dispensed); err != nil {
		t.Fatalf("MarkDispensed() error = %v", err)
	}
	if err := rec.Meals[0].MarkFinished(dispensed.Add(3*time.Minute), floatPtr(85)); err != nil {
		t.Fatalf("MarkFinished() error = %v", err)
	}

	// Caller-supplied total is ignored; the repository recomputes it
	rec.TotalCalories = 9999
	if err := repo.Update(ctx, rec); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByFeederAndDate(ctx, "fdr-1", day)
	if err != nil {
		t.Fatalf("GetByFeederAndDate() error = %v", err)
	}
	if got.TotalCalories != 85 {
		t.Errorf("TotalCalories = %v, want 85", got.TotalCalories)
	}

	morning := got.MealByScheduleID("sch-morning")
	if morning.Status != MealFinished {
		t.Errorf("Status = %q, want finished", morning.Status)
	}
	if morning.ConsumptionDurationMs == nil || *morning.ConsumptionDurationMs != (3 * time.Minute).Milliseconds() {
		t.Errorf("ConsumptionDurationMs = %v", morning.ConsumptionDurationMs)
	}
}

func TestSQLiteRepository_UpdateMissing(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t), time.UTC)
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

	err := repo.Update(context.Background(), testRecord(day))
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Update() error = %v, want ErrRecordNotFound", err)
	}
}

func TestSQLiteRepository_ListFromDate(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t), time.UTC)
	ctx := context.Background()

	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := repo.Create(ctx, testRecord(base.AddDate(0, 0, i))); err != nil {
			t.Fatalf("Create() day %d error = %v", i, err)
		}
	}

	got, err := repo.ListFromDate(ctx, "fdr-1", base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("ListFromDate() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.Before(got[i-1].Date) {
			t.Error("records should be ordered oldest first")
		}
	}

	// Unknown feeder yields an empty list, not an error
	got, err = repo.ListFromDate(ctx, "fdr-ghost", base)
	if err != nil {
		t.Fatalf("ListFromDate() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("records for unknown feeder = %d, want 0", len(got))
	}
}
