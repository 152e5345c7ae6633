package commands

import (
	"log/slog"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
)

// Deps are the collaborators shared by the write handlers.
type Deps struct {
	Repo      task.Repository
	Cache     TaskCache
	Publisher EventPublisher
	// Tx is optional; without it each handler runs its reads and writes directly.
	Tx     TxRunner
	Logger *slog.Logger
	// Clock is optional and defaults to time.Now.
	Clock Clock
}

func (d Deps) sideEffects() sideEffects {
	e := newSideEffects(d.Cache, d.Publisher, d.Logger)
	if d.Clock != nil {
		e.now = d.Clock
	}
	return e
}

func (d Deps) tx() TxRunner {
	if d.Tx == nil {
		return noTx{}
	}
	return d.Tx
}

func (d Deps) clock() Clock {
	if d.Clock == nil {
		return time.Now
	}
	return d.Clock
}
