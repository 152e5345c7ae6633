package app

import (
	"fmt"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/database"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/deadletter"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/persistence"
)

// RepositoryFactory creates repositories based on the database driver.
type RepositoryFactory struct {
	conn   database.Connection
	driver database.Driver
}

// NewRepositoryFactory creates a new repository factory.
func NewRepositoryFactory(conn database.Connection) *RepositoryFactory {
	return &RepositoryFactory{
		conn:   conn,
		driver: conn.Driver(),
	}
}

// Driver returns the driver the factory builds for.
func (f *RepositoryFactory) Driver() database.Driver {
	return f.driver
}

// TaskRepository creates a task repository for the configured driver.
func (f *RepositoryFactory) TaskRepository() (task.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return persistence.NewPostgresTaskRepository(f.conn), nil
	case database.DriverSQLite:
		return persistence.NewSQLiteTaskRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}

// DeadLetterRepository creates a dead-letter repository for the configured driver.
func (f *RepositoryFactory) DeadLetterRepository() (deadletter.Repository, error) {
	switch f.driver {
	case database.DriverPostgres:
		return persistence.NewPostgresDeadLetterRepository(f.conn), nil
	case database.DriverSQLite:
		return persistence.NewSQLiteDeadLetterRepository(f.conn), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", f.driver)
	}
}
