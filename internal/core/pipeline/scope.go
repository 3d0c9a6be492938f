package pipeline

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
)

type scopeKey struct{}

// Scope tracks the aggregates a unit of work loaded and saved. Handlers report loads and
// saves; the Transaction behavior turns the collected events into outbox rows and the
// AuditLog behavior turns the snapshots into audit entries.
type Scope struct {
	mu      sync.Mutex
	loaded  map[string]json.RawMessage
	changes []AggregateChange
	events  []domain.Event
}

// AggregateChange is the before/after snapshot of one saved aggregate.
type AggregateChange struct {
	EntityType string
	EntityID   string
	OldValues  json.RawMessage // nil for aggregates created in this unit of work
	NewValues  json.RawMessage
}

// WithScope starts a unit of work scope.
func WithScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{loaded: make(map[string]json.RawMessage)}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// ScopeFrom returns the scope of the current unit of work, or nil outside of one.
func ScopeFrom(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

func aggregateKey(agg domain.Aggregate) string {
	return agg.AggregateType() + "/" + agg.AggregateID()
}

// TrackLoaded remembers the snapshot of agg as first seen by the unit of work. It is a
// no-op on a nil scope.
func (s *Scope) TrackLoaded(agg domain.Aggregate) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(agg.Snapshot())
	if err != nil {
		return apperrors.NewAppError(500, "failed to snapshot "+aggregateKey(agg), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := aggregateKey(agg)
	if _, seen := s.loaded[key]; !seen {
		s.loaded[key] = data
	}
	return nil
}

// TrackSaved drains the uncommitted events of agg and records its new snapshot. Outside of
// a scope the events stay on the aggregate.
func (s *Scope) TrackSaved(agg domain.Aggregate) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(agg.Snapshot())
	if err != nil {
		return apperrors.NewAppError(500, "failed to snapshot "+aggregateKey(agg), err)
	}
	events := agg.PullEvents()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	key := aggregateKey(agg)
	for i := range s.changes {
		if s.changes[i].EntityType+"/"+s.changes[i].EntityID == key {
			s.changes[i].NewValues = data
			return nil
		}
	}
	s.changes = append(s.changes, AggregateChange{
		EntityType: agg.AggregateType(),
		EntityID:   agg.AggregateID(),
		OldValues:  s.loaded[key],
		NewValues:  data,
	})
	return nil
}

// Events returns the events drained so far, in raise order.
func (s *Scope) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Changes returns one entry per saved aggregate, in first-save order.
func (s *Scope) Changes() []AggregateChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AggregateChange, len(s.changes))
	copy(out, s.changes)
	return out
}

func (s *Scope) adoptEvents(events []domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

type claimKey struct{}

// idempotencyClaim is registered by the Idempotency behavior and fulfilled by the
// Transaction behavior inside the same transaction as the mutation.
type idempotencyClaim struct {
	commandType string
	key         string
}

func withIdempotencyClaim(ctx context.Context, c *idempotencyClaim) context.Context {
	return context.WithValue(ctx, claimKey{}, c)
}

func idempotencyClaimFrom(ctx context.Context) *idempotencyClaim {
	c, _ := ctx.Value(claimKey{}).(*idempotencyClaim)
	return c
}
