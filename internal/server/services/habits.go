package services

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/chillhabit/chillhabit/internal/common"
	"github.com/chillhabit/chillhabit/internal/logging"
	"github.com/chillhabit/chillhabit/internal/server/models"
	"github.com/chillhabit/chillhabit/internal/server/repositories/repomanager"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// HabitService manages a user's habits and their daily completion records.
type HabitService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewHabitService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *HabitService {
	return &HabitService{db: db, repomanager: m, logger: logger}
}

func (s *HabitService) Create(ctx context.Context, userID, title string) (*models.Habit, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
	}

	repo := s.repomanager.Habits(s.db)
	habit, err := repo.Create(ctx, &models.Habit{ID: uuid.NewString(), UserID: userID, Title: title})
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "habit created", "user_id", userID, "habit_id", habit.ID)
	return habit, nil
}

func (s *HabitService) List(ctx context.Context, userID string) ([]*models.Habit, error) {
	habits, err := s.repomanager.Habits(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return habits, nil
}

func (s *HabitService) Rename(ctx context.Context, userID, habitID, title string) (*models.Habit, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	habit, err := s.repomanager.Habits(s.db).Rename(ctx, userID, habitID, title)
	if err != nil {
		return nil, err
	}
	return habit, nil
}

func (s *HabitService) Delete(ctx context.Context, userID, habitID string) error {
	return s.repomanager.Habits(s.db).Delete(ctx, userID, habitID)
}

// ToggleRecord flips a day's completion. The flip is one statement in the
// repository, so concurrent toggles for the same day serialize instead of
// both applying the same transition.
func (s *HabitService) ToggleRecord(ctx context.Context, userID, habitID, date string) (*models.Habit, error) {
	if !datePattern.MatchString(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", common.ErrorValidation)
	}
	habit, err := s.repomanager.Habits(s.db).ToggleRecord(ctx, userID, habitID, date)
	if err != nil {
		return nil, err
	}
	return habit, nil
}
