// Package ports defines interfaces for external dependencies.
// Clean Architecture: usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"
	"time"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/entities"
)

// ChainService asks the inference backend for a chain of passages.
type ChainService interface {
	// Ask sends one query and returns the decoded answer.
	// Failures are classified as *entities.NetworkError, *entities.ServerError
	// or *entities.UnexpectedError.
	Ask(ctx context.Context, query entities.Query) (*entities.QueryResult, error)
}

// Outcome is how a submitted query ended.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeNetworkError
	OutcomeServerError
	OutcomeUnexpectedError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeServerError:
		return "server_error"
	case OutcomeUnexpectedError:
		return "unexpected_error"
	default:
		return "unknown"
	}
}

// QueryEvent describes a completed outbound call.
type QueryEvent struct {
	Generation uint64
	Query      entities.Query
	Outcome    Outcome
	Message    string // User-visible error text, empty on success
	Duration   time.Duration
	Stale      bool // A newer submit superseded this call; nothing was published
}

// OutcomeObserver is told about submits and completions.
// Implementations must not block.
type OutcomeObserver interface {
	Submitted(generation uint64, query entities.Query)
	Completed(event QueryEvent)
}

// FileWatcher monitors a path for changes.
type FileWatcher interface {
	// Watch starts monitoring and emits events.
	Watch(ctx context.Context, path string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
