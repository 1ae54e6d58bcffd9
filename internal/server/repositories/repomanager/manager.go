package repomanager

import (
	"context"
	"database/sql"

	"github.com/chillhabit/chillhabit/internal/dbx"
	"github.com/chillhabit/chillhabit/internal/server/repositories/habits"
	"github.com/chillhabit/chillhabit/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Habits(db dbx.DBTX) habits.Repository
}
