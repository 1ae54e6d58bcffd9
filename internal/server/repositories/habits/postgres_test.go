package habits

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+habits`).
		WithArgs("h-1", "u-1", "Read").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	got, err := repo.Create(context.Background(), &models.Habit{ID: "h-1", UserID: "u-1", Title: "Read"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.Records == nil || len(got.Records) != 0 {
		t.Fatalf("expected empty records slice, got %+v", got.Records)
	}
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*title.*FROM\s+habits\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}).
			AddRow("h-1", "u-1", "Read", now, now).
			AddRow("h-2", "u-1", "Run", now, now))

	mock.ExpectQuery(`(?s)SELECT\s+hr\.habit_id.*FROM\s+habit_records`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"habit_id", "record_date", "done"}).
			AddRow("h-1", "2026-09-01", true).
			AddRow("h-2", "2026-08-31", false))

	habits, err := repo.ListByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(habits) != 2 {
		t.Fatalf("expected 2 habits, got %d", len(habits))
	}
	if len(habits[0].Records) != 1 || habits[0].Records[0].Date != "2026-09-01" || !habits[0].Records[0].Done {
		t.Fatalf("unexpected records for first habit: %+v", habits[0].Records)
	}
}

func TestListByUser_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*title.*FROM\s+habits`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}))

	habits, err := repo.ListByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if habits == nil || len(habits) != 0 {
		t.Fatalf("expected empty slice, got %+v", habits)
	}
}

func TestRename_NotOwned(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+habits\s+SET\s+title`).
		WithArgs("h-1", "u-2", "Stretch").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Rename(context.Background(), "u-2", "h-1", "Stretch")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+habits\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs("h-1", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "u-1", "h-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}

func TestToggleRecord(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+habit_records.*ON\s+CONFLICT\s+\(habit_id,\s*record_date\)\s+DO\s+UPDATE\s+SET\s+done\s*=\s*NOT\s+habit_records\.done`).
		WithArgs("h-1", "u-1", "2026-09-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*title.*WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs("h-1", "u-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}).
			AddRow("h-1", "u-1", "Read", now, now))

	mock.ExpectQuery(`(?s)SELECT\s+hr\.habit_id.*FROM\s+habit_records`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"habit_id", "record_date", "done"}).
			AddRow("h-1", "2026-09-01", true))

	habit, err := repo.ToggleRecord(context.Background(), "u-1", "h-1", "2026-09-01")
	if err != nil {
		t.Fatalf("ToggleRecord error: %v", err)
	}
	if len(habit.Records) != 1 || !habit.Records[0].Done {
		t.Fatalf("unexpected records: %+v", habit.Records)
	}
}

func TestToggleRecord_UnknownHabit(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+habit_records`).
		WithArgs("h-404", "u-1", "2026-09-01").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.ToggleRecord(context.Background(), "u-1", "h-404", "2026-09-01")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}
