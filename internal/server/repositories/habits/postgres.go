// Package habits provides the PostgreSQL-backed habit store.
package habits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/dbx"
	"github.com/chillhabit/chillhabit/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	query := `
		INSERT INTO habits (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, habit.ID, habit.UserID, habit.Title).
		Scan(&habit.CreatedAt, &habit.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	habit.Records = []models.HabitRecord{}
	return habit, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Habit, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM habits
		WHERE user_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	habits := []*models.Habit{}
	byID := map[string]*models.Habit{}
	for rows.Next() {
		habit := &models.Habit{Records: []models.HabitRecord{}}
		if err := rows.Scan(&habit.ID, &habit.UserID, &habit.Title, &habit.CreatedAt, &habit.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		habits = append(habits, habit)
		byID[habit.ID] = habit
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.attachRecords(ctx, userID, byID); err != nil {
		return nil, err
	}
	return habits, nil
}

func (r *PostgresRepository) attachRecords(ctx context.Context, userID string, byID map[string]*models.Habit) error {
	if len(byID) == 0 {
		return nil
	}
	query := `
		SELECT hr.habit_id, to_char(hr.record_date, 'YYYY-MM-DD'), hr.done
		FROM habit_records hr
		JOIN habits h ON h.id = hr.habit_id
		WHERE h.user_id = $1
		ORDER BY hr.record_date
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var habitID string
		var record models.HabitRecord
		if err := rows.Scan(&habitID, &record.Date, &record.Done); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if habit, ok := byID[habitID]; ok {
			habit.Records = append(habit.Records, record)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM habits
		WHERE id = $1 AND user_id = $2
	`
	habit := &models.Habit{Records: []models.HabitRecord{}}
	err := r.db.QueryRowContext(ctx, query, habitID, userID).
		Scan(&habit.ID, &habit.UserID, &habit.Title, &habit.CreatedAt, &habit.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := r.attachRecords(ctx, userID, map[string]*models.Habit{habit.ID: habit}); err != nil {
		return nil, err
	}
	return habit, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, userID, habitID, title string) (*models.Habit, error) {
	query := `
		UPDATE habits
		SET title = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, habitID, userID, title)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return nil, common.ErrorNotFound
	}
	return r.get(ctx, userID, habitID)
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, habitID string) error {
	query := `DELETE FROM habits WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, habitID, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// ToggleRecord flips the done flag for one calendar day in a single
// statement. The INSERT only fires when the habit belongs to the caller,
// and the conflict arm inverts the stored value, so two concurrent toggles
// serialize on the row instead of both reading the same prior state.
func (r *PostgresRepository) ToggleRecord(ctx context.Context, userID, habitID, date string) (*models.Habit, error) {
	query := `
		INSERT INTO habit_records (habit_id, record_date, done)
		SELECT h.id, $3::date, true
		FROM habits h
		WHERE h.id = $1 AND h.user_id = $2
		ON CONFLICT (habit_id, record_date)
		DO UPDATE SET done = NOT habit_records.done
	`
	res, err := r.db.ExecContext(ctx, query, habitID, userID, date)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return nil, common.ErrorNotFound
	}
	return r.get(ctx, userID, habitID)
}
