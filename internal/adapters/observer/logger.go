// Package observer provides the logging adapter for query lifecycle events.
// Clean Architecture: Adapter implementing ports.OutcomeObserver.
package observer

import (
	"go.uber.org/zap"

	"github.com/aitoolsintegration-prog/chainref/internal/domain/entities"
	"github.com/aitoolsintegration-prog/chainref/internal/domain/ports"
)

// LogObserver writes submits and completions to a zap logger.
type LogObserver struct {
	logger *zap.Logger
}

// NewLogObserver creates a LogObserver. A nil logger discards everything.
func NewLogObserver(logger *zap.Logger) *LogObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogObserver{logger: logger.Named("query")}
}

// Submitted logs a new generation.
func (o *LogObserver) Submitted(generation uint64, query entities.Query) {
	o.logger.Debug("query submitted",
		zap.Uint64("generation", generation),
		zap.String("theme", query.Theme),
	)
}

// Completed logs how a call ended.
func (o *LogObserver) Completed(event ports.QueryEvent) {
	fields := []zap.Field{
		zap.Uint64("generation", event.Generation),
		zap.String("theme", event.Query.Theme),
		zap.Stringer("outcome", event.Outcome),
		zap.Duration("took", event.Duration),
	}

	switch {
	case event.Stale:
		o.logger.Debug("discarded superseded response", fields...)
	case event.Outcome == ports.OutcomeSucceeded:
		o.logger.Info("query succeeded", fields...)
	default:
		o.logger.Warn("query failed", append(fields, zap.String("error", event.Message))...)
	}
}
