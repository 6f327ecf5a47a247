package utility

import (
	"sync"

	"github.com/google/uuid"
)

type ExecutionID = uuid.UUID

var (
	processID     ExecutionID
	processIDOnce sync.Once
)

// ProcessID identifies the current process, shared by every run it starts.
func ProcessID() ExecutionID {
	processIDOnce.Do(func() {
		processID = uuid.Must(uuid.NewV7())
	})
	return processID
}

// NewExecutionID returns a fresh time-ordered id for a single backtest run.
func NewExecutionID() ExecutionID {
	return uuid.Must(uuid.NewV7())
}
