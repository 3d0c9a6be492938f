package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
	"github.com/SscSPs/procureflow/internal/middleware"
	"github.com/SscSPs/procureflow/internal/repositories/memory"
	"github.com/SscSPs/procureflow/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var (
	testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	alice   = domain.Actor{UserID: "u-alice", UserName: "Alice", TenantID: "t-1", CorrelationID: "corr-1", RequestID: "req-1"}
)

type createDraft struct {
	Title  string `json:"title" validate:"required"`
	Fail   error  `json:"-"`
	Panic  bool   `json:"-"`
	Nested bool   `json:"-"`
}

type draftCreated struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type getDraft struct {
	ID string `json:"id" validate:"required"`
}

type harness struct {
	store    *memory.Store
	registry *Registry
	exec     *Executor
	cache    *CachingBehavior
	ids      *utils.SequenceGenerator
	handled  int
	queried  int
	denyAll  bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newInstrumentedHarness(t, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
}

func newInstrumentedHarness(t *testing.T, tp trace.TracerProvider, mp metric.MeterProvider) *harness {
	t.Helper()
	h := &harness{
		store:    memory.NewStore(),
		registry: NewRegistry(),
		ids:      utils.NewSequenceGenerator("id"),
	}

	MustRegister(h.registry, Handler[createDraft, draftCreated]{
		Type: "draft.create",
		Kind: KindCommand,
		Authorize: func(ctx context.Context, actor domain.Actor, p createDraft) (domain.BoundaryDecision, error) {
			if h.denyAll {
				return domain.Deny("not today"), nil
			}
			return domain.Allow(), nil
		},
		Handle: h.createDraft,
	})
	MustRegister(h.registry, Handler[createDraft, draftCreated]{
		Type:           "draft.import",
		Kind:           KindCommand,
		SkipValidation: true,
		Handle:         h.createDraft,
	})
	MustRegister(h.registry, Handler[getDraft, draftCreated]{
		Type: "draft.get",
		Kind: KindQuery,
		Authorize: func(ctx context.Context, actor domain.Actor, p getDraft) (domain.BoundaryDecision, error) {
			return domain.Allow(), nil
		},
		CacheKey: func(p getDraft) string { return p.ID },
		Handle: func(ctx context.Context, p getDraft) (draftCreated, error) {
			h.queried++
			pr, err := h.store.FindPurchaseRequestByID(ctx, p.ID)
			if err != nil {
				return draftCreated{}, err
			}
			return draftCreated{ID: pr.ID(), Title: pr.State().Title}, nil
		},
	})

	metrics, err := NewMetricsBehavior(tp, mp)
	require.NoError(t, err)
	h.cache = NewCachingBehavior(16, time.Minute)
	clock := utils.NewFixedClock(testNow)
	h.exec = NewExecutor(h.registry, middleware.ContextActorProvider{},
		NewLoggingBehavior(),
		NewAuditLogBehavior(h.store, h.ids, clock),
		NewTransactionBehavior(h.store, h.store, h.store, h.ids, clock, WithCommitHook(h.cache.Purge)),
		h.cache,
		NewIdempotencyBehavior(h.store),
		NewAuthorizationBehavior(),
		NewValidationBehavior(),
		metrics,
	)
	return h
}

func (h *harness) createDraft(ctx context.Context, p createDraft) (draftCreated, error) {
	h.handled++
	if p.Panic {
		panic("handler exploded")
	}
	pr, err := domain.NewPurchaseRequest(h.ids.NewID(), alice, p.Title, "", []domain.LineItem{
		{Description: "Chair", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
	}, testNow)
	if err != nil {
		return draftCreated{}, err
	}
	if err := h.store.SavePurchaseRequest(ctx, pr); err != nil {
		return draftCreated{}, err
	}
	if err := ScopeFrom(ctx).TrackSaved(pr); err != nil {
		return draftCreated{}, err
	}
	if p.Nested {
		res, err := h.exec.Execute(ctx, Command{Type: "draft.import", Payload: createDraft{Title: p.Title + " (copy)"}})
		if err != nil {
			return draftCreated{}, err
		}
		if !res.Success {
			return draftCreated{}, res.Err()
		}
	}
	if p.Fail != nil {
		return draftCreated{}, p.Fail
	}
	return draftCreated{ID: pr.ID(), Title: p.Title}, nil
}

func (h *harness) execute(t *testing.T, cmd Command) (Result, error) {
	t.Helper()
	return h.exec.Execute(middleware.WithActor(context.Background(), alice), cmd)
}

func TestExecutor_ChainOrder(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t,
		[]string{"metrics", "validation", "authorization", "idempotency", "transaction", "audit_log", "logging"},
		h.exec.Chain("draft.create"))
	assert.Equal(t,
		[]string{"metrics", "idempotency", "transaction", "audit_log", "logging"},
		h.exec.Chain("draft.import"), "no validation when skipped, no authorization without a boundary")
	assert.Equal(t,
		[]string{"metrics", "validation", "authorization", "caching", "transaction", "logging"},
		h.exec.Chain("draft.get"))
}

func TestExecutor_UnknownTypeAndMissingActor(t *testing.T) {
	h := newHarness(t)

	res, err := h.execute(t, Command{Type: "draft.nope", Payload: createDraft{Title: "x"}})
	require.NoError(t, err)
	assert.Equal(t, ErrorKindValidation, res.Kind)

	res, err = h.exec.Execute(context.Background(), Command{Type: "draft.create", Payload: createDraft{Title: "x"}})
	require.NoError(t, err)
	assert.Equal(t, ErrorKindForbidden, res.Kind)
	assert.Zero(t, h.handled)
}

func TestExecutor_ValidationShortCircuits(t *testing.T) {
	h := newHarness(t)

	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{}})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ErrorKindValidation, res.Kind)
	assert.Contains(t, res.Error, "title")
	assert.Zero(t, h.handled)
}

func TestExecutor_AuthorizationDenied(t *testing.T) {
	h := newHarness(t)
	h.denyAll = true

	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Chairs"}})
	require.NoError(t, err)
	assert.Equal(t, ErrorKindForbidden, res.Kind)
	assert.Contains(t, res.Error, "not today")
	assert.Zero(t, h.handled)
}

func TestExecutor_CommandWritesOutboxAndAudit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.execute(t, Command{Type: "draft.create", Payload: &createDraft{Title: "Chairs"}})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	created := res.Value.(draftCreated)

	msgs, err := h.store.ListOutboxMessages(ctx, domain.EventPurchaseRequestCreated)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsProcessed())

	entries, err := h.store.ListAuditLogEntries(ctx, domain.EntityPurchaseRequest, created.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "draft.create", entries[0].Action)
	assert.Equal(t, alice.UserID, entries[0].UserID)
	assert.Equal(t, "corr-1", entries[0].CorrelationID)
	assert.Nil(t, entries[0].OldValues)
	assert.NotEmpty(t, entries[0].NewValues)
}

func TestExecutor_FailureRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{
		Title: "Chairs",
		Fail:  fmt.Errorf("%w: budget frozen", apperrors.ErrBusinessRule),
	}})
	require.NoError(t, err)
	assert.Equal(t, ErrorKindBusinessRule, res.Kind)

	_, err = h.store.FindPurchaseRequestByID(ctx, "id-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	msgs, err := h.store.FindUnprocessedOutboxMessages(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestExecutor_InfrastructureErrorIsReturned(t *testing.T) {
	h := newHarness(t)
	dbDown := errors.New("connection refused")

	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Chairs", Fail: dbDown}})
	require.Error(t, err)
	assert.ErrorIs(t, err, dbDown)
	assert.Equal(t, ErrorKindInfrastructure, res.Kind)
	assert.Equal(t, "an internal error occurred", res.Error)
}

func TestExecutor_PanicBecomesInfrastructureFailure(t *testing.T) {
	h := newHarness(t)

	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Chairs", Panic: true}})
	require.Error(t, err)
	assert.Equal(t, ErrorKindInfrastructure, res.Kind)
	assert.False(t, res.Success)
}

func TestExecutor_IdempotentReplay(t *testing.T) {
	h := newHarness(t)
	cmd := Command{Type: "draft.create", Payload: createDraft{Title: "Chairs"}, IdempotencyKey: "key-1"}

	first, err := h.execute(t, cmd)
	require.NoError(t, err)
	require.True(t, first.Success)
	second, err := h.execute(t, cmd)
	require.NoError(t, err)
	require.True(t, second.Success)

	assert.Equal(t, 1, h.handled)
	assert.Equal(t, first.Value, second.Value)

	// Keys are scoped by command type.
	third, err := h.execute(t, Command{Type: "draft.import", Payload: createDraft{Title: "Chairs"}, IdempotencyKey: "key-1"})
	require.NoError(t, err)
	require.True(t, third.Success)
	assert.Equal(t, 2, h.handled)
}

func TestExecutor_IdempotencyKeyIsScopedToCaller(t *testing.T) {
	h := newHarness(t)
	first, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Monitors"}, IdempotencyKey: "abc-123"})
	require.NoError(t, err)
	require.True(t, first.Success)

	for _, other := range []domain.Actor{
		{UserID: "u-other", UserName: "Olga", TenantID: "t-2"},
		{UserID: "u-bob", UserName: "Bob", TenantID: alice.TenantID},
	} {
		ctx := middleware.WithActor(context.Background(), other)
		res, err := h.exec.Execute(ctx, Command{Type: "draft.create", Payload: createDraft{Title: "Other thing"}, IdempotencyKey: "abc-123"})
		require.NoError(t, err)
		require.True(t, res.Success, res.Error)
		assert.NotEqual(t, first.Value.(draftCreated).ID, res.Value.(draftCreated).ID, other.UserID)
		assert.Equal(t, "Other thing", res.Value.(draftCreated).Title)
	}
	assert.Equal(t, 3, h.handled)

	again, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Monitors"}, IdempotencyKey: "abc-123"})
	require.NoError(t, err)
	assert.Equal(t, first.Value, again.Value)
	assert.Equal(t, 3, h.handled)
}

func TestExecutor_FailedCommandIsNotRecorded(t *testing.T) {
	h := newHarness(t)
	failing := Command{Type: "draft.create", Payload: createDraft{
		Title: "Chairs",
		Fail:  fmt.Errorf("%w: nope", apperrors.ErrBusinessRule),
	}, IdempotencyKey: "key-1"}

	res, err := h.execute(t, failing)
	require.NoError(t, err)
	require.False(t, res.Success)

	res, err = h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Chairs"}, IdempotencyKey: "key-1"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, h.handled)
}

func TestExecutor_QueryCachingIsPurgedByCommands(t *testing.T) {
	h := newHarness(t)
	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Chairs"}})
	require.NoError(t, err)
	id := res.Value.(draftCreated).ID

	for i := 0; i < 2; i++ {
		res, err = h.execute(t, Command{Type: "draft.get", Payload: getDraft{ID: id}})
		require.NoError(t, err)
		require.True(t, res.Success)
	}
	assert.Equal(t, 1, h.queried)
	assert.Equal(t, 1, h.cache.Len())

	_, err = h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Desks"}})
	require.NoError(t, err)
	assert.Zero(t, h.cache.Len())

	_, err = h.execute(t, Command{Type: "draft.get", Payload: getDraft{ID: id}})
	require.NoError(t, err)
	assert.Equal(t, 2, h.queried)
}

func TestCaching_ResultReadAcrossPurgeIsNotCached(t *testing.T) {
	h := newHarness(t)
	d, ok := h.registry.Lookup("draft.get")
	require.True(t, ok)
	call := &Call{Descriptor: d, Command: Command{Type: "draft.get", Payload: getDraft{ID: "pr-1"}}, Actor: alice}

	res := h.cache.Handle(context.Background(), call, func(ctx context.Context) Result {
		// A command commits while the query is reading.
		h.cache.Purge()
		return Success(draftCreated{ID: "pr-1", Title: "stale"})
	})
	require.True(t, res.Success)
	assert.Zero(t, h.cache.Len())

	res = h.cache.Handle(context.Background(), call, func(ctx context.Context) Result {
		return Success(draftCreated{ID: "pr-1", Title: "fresh"})
	})
	require.True(t, res.Success)
	assert.Equal(t, 1, h.cache.Len())
}

func TestExecutor_NestedCommandJoinsTransaction(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{Title: "Chairs", Nested: true}})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)

	msgs, err := h.store.ListOutboxMessages(ctx, domain.EventPurchaseRequestCreated)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	for _, id := range []string{"id-1", "id-2"} {
		entries, err := h.store.ListAuditLogEntries(ctx, domain.EntityPurchaseRequest, id)
		require.NoError(t, err)
		assert.Len(t, entries, 1, id)
	}
}

func TestExecutor_NestedFailureRollsBackOuter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.execute(t, Command{Type: "draft.create", Payload: createDraft{
		Title:  "Chairs",
		Nested: true,
		Fail:   fmt.Errorf("%w: late failure", apperrors.ErrBusinessRule),
	}})
	require.NoError(t, err)
	require.False(t, res.Success)

	pending, err := h.store.FindUnprocessedOutboxMessages(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
	_, err = h.store.FindPurchaseRequestByID(ctx, "id-2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
