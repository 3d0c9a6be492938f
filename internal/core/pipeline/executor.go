package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	portssvc "github.com/SscSPs/procureflow/internal/core/ports/services"
	"github.com/SscSPs/procureflow/internal/middleware"
)

// Behavior priorities. Lower runs first (outermost).
const (
	PriorityMetrics       = 50
	PriorityValidation    = 100
	PriorityAuthorization = 200
	PriorityIdempotency   = 300
	PriorityCaching       = 350
	PriorityTransaction   = 400
	PriorityAuditLog      = 550
	PriorityLogging       = 600
)

// Call is what behaviors see of the operation being executed.
type Call struct {
	Descriptor *Descriptor
	Command    Command
	Actor      domain.Actor
}

// Next continues the chain.
type Next func(ctx context.Context) Result

// Behavior wraps operations with a cross-cutting concern. Returning without calling next
// short-circuits the rest of the chain, the handler included.
type Behavior interface {
	Name() string
	Priority() int
	AppliesTo(d *Descriptor) bool
	Handle(ctx context.Context, call *Call, next Next) Result
}

// Executor runs registered operations through their behavior chains.
type Executor struct {
	registry *Registry
	actors   portssvc.ActorProvider
	chains   map[string][]Behavior
}

// NewExecutor composes one chain per registered operation, ordered by priority. Operations
// registered after this call are not executable.
func NewExecutor(registry *Registry, actors portssvc.ActorProvider, behaviors ...Behavior) *Executor {
	sorted := make([]Behavior, len(behaviors))
	copy(sorted, behaviors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	chains := make(map[string][]Behavior)
	for _, commandType := range registry.Types() {
		d, _ := registry.Lookup(commandType)
		var chain []Behavior
		for _, b := range sorted {
			if b.AppliesTo(d) {
				chain = append(chain, b)
			}
		}
		chains[commandType] = chain
	}
	return &Executor{registry: registry, actors: actors, chains: chains}
}

// Chain returns the behavior names applied to commandType, outermost first.
func (e *Executor) Chain(commandType string) []string {
	chain := e.chains[commandType]
	names := make([]string, len(chain))
	for i, b := range chain {
		names[i] = b.Name()
	}
	return names
}

// Execute runs cmd for the actor found in ctx. The error return is non-nil only for
// infrastructure failures, which are also reflected in the Result with a generic message.
func (e *Executor) Execute(ctx context.Context, cmd Command) (res Result, err error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	chain, ok := e.chains[cmd.Type]
	if !ok {
		return Failure(ErrorKindValidation, fmt.Sprintf("unknown command type %q", cmd.Type)), nil
	}
	d, _ := e.registry.Lookup(cmd.Type)

	actor, ok := e.actors.CurrentActor(ctx)
	if !ok {
		return FromError(fmt.Errorf("%w: no authenticated actor", apperrors.ErrForbidden)), nil
	}

	defer func() {
		if r := recover(); r != nil {
			res = FromError(apperrors.NewAppError(500, "command pipeline panicked", fmt.Errorf("%v", r)))
			logger.Error("Recovered panic in command pipeline",
				slog.String("command_type", cmd.Type),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = res.Err()
		}
	}()

	call := &Call{Descriptor: d, Command: cmd, Actor: actor}
	res = e.invoke(ctx, call, chain, 0)
	if res.Kind == ErrorKindInfrastructure {
		logger.Error("Command failed with infrastructure error",
			slog.String("command_type", cmd.Type),
			slog.String("correlation_id", actor.CorrelationID),
			slog.String("request_id", actor.RequestID),
			slog.String("error", res.Err().Error()))
		return res, res.Err()
	}
	return res, nil
}

func (e *Executor) invoke(ctx context.Context, call *Call, chain []Behavior, i int) Result {
	if i == len(chain) {
		return runHandler(ctx, call)
	}
	return chain[i].Handle(ctx, call, func(ctx context.Context) Result {
		return e.invoke(ctx, call, chain, i+1)
	})
}

func runHandler(ctx context.Context, call *Call) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = FromError(apperrors.NewAppError(500, "handler for "+call.Command.Type+" panicked", fmt.Errorf("%v", r)))
		}
	}()
	value, err := call.Descriptor.handle(ctx, call.Command.Payload)
	if err != nil {
		return FromError(err)
	}
	return Success(value)
}
