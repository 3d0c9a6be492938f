package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Actors portssvc.ActorProvider
	Clock  portssvc.Clock
	IDs    portssvc.IDGenerator
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+2)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// CurrentActor returns the actor the call runs for.
func (s *BaseService) CurrentActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := s.Actors.CurrentActor(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: no authenticated actor", apperrors.ErrForbidden)
	}
	return actor, nil
}

// logFailure logs unexpected errors. Expected domain failures are logged by the pipeline.
func (s *BaseService) logFailure(ctx context.Context, err error, msg string, keyvals ...any) {
	if !apperrors.IsExpected(err) {
		s.LogError(ctx, err, msg, keyvals...)
	}
}
