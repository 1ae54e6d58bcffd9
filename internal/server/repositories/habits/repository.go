package habits

import (
	"context"

	"github.com/chillhabit/chillhabit/internal/server/models"
)

// Repository is the habit store. Every operation is scoped to the owning
// user so a caller can never read or mutate another account's habits.
type Repository interface {
	Create(ctx context.Context, habit *models.Habit) (*models.Habit, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Habit, error)
	Rename(ctx context.Context, userID, habitID, title string) (*models.Habit, error)
	Delete(ctx context.Context, userID, habitID string) error
	ToggleRecord(ctx context.Context, userID, habitID, date string) (*models.Habit, error)
}
