package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/procureflow/internal/middleware"
)

// LoggingBehavior writes one structured line per handled call.
type LoggingBehavior struct{}

func NewLoggingBehavior() *LoggingBehavior { return &LoggingBehavior{} }

func (b *LoggingBehavior) Name() string                 { return "logging" }
func (b *LoggingBehavior) Priority() int                { return PriorityLogging }
func (b *LoggingBehavior) AppliesTo(d *Descriptor) bool { return true }

func (b *LoggingBehavior) Handle(ctx context.Context, call *Call, next Next) Result {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.String("command_type", call.Command.Type),
		slog.String("correlation_id", call.Actor.CorrelationID),
		slog.String("request_id", call.Actor.RequestID),
		slog.String("user_id", call.Actor.UserID),
	)
	logger.Debug("Handling command")

	start := time.Now()
	res := next(ctx)
	latency := time.Since(start)

	switch {
	case res.Success:
		logger.Info("Command handled", slog.Duration("latency", latency))
	case res.Kind == ErrorKindInfrastructure:
		logger.Error("Command failed",
			slog.Duration("latency", latency),
			slog.String("error", res.Err().Error()))
	default:
		logger.Warn("Command rejected",
			slog.Duration("latency", latency),
			slog.String("kind", string(res.Kind)),
			slog.String("reason", res.Error))
	}
	return res
}
