package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
)

// Descriptor is the type-erased registration of one operation.
type Descriptor struct {
	Type           string
	Kind           RequestKind
	SkipValidation bool

	authorize func(ctx context.Context, actor domain.Actor, payload any) (domain.BoundaryDecision, error)
	cacheKey  func(payload any) (string, error)
	handle    func(ctx context.Context, payload any) (any, error)
	decode    func(data []byte) (any, error)
}

// Authorizes reports whether the operation has a boundary function.
func (d *Descriptor) Authorizes() bool { return d.authorize != nil }

// Cacheable reports whether query results may be cached.
func (d *Descriptor) Cacheable() bool { return d.Kind == KindQuery && d.cacheKey != nil }

// Handler is the typed registration of an operation taking P and producing R.
type Handler[P any, R any] struct {
	Type           string
	Kind           RequestKind
	SkipValidation bool
	// Authorize is the boundary decision for the actor. Optional.
	Authorize func(ctx context.Context, actor domain.Actor, payload P) (domain.BoundaryDecision, error)
	// CacheKey identifies a query result inside a tenant. Queries only, optional.
	CacheKey func(payload P) string
	Handle   func(ctx context.Context, payload P) (R, error)
}

// Registry holds every registered operation by type name.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// Register adds a typed handler. Command results are normalized through their JSON form
// so that a replay decoded from the idempotency store equals the original result.
func Register[P any, R any](reg *Registry, h Handler[P, R]) error {
	if h.Type == "" || h.Handle == nil {
		return fmt.Errorf("register %q: type and handle are required", h.Type)
	}

	d := &Descriptor{
		Type:           h.Type,
		Kind:           h.Kind,
		SkipValidation: h.SkipValidation,
		handle: func(ctx context.Context, payload any) (any, error) {
			p, err := payloadAs[P](h.Type, payload)
			if err != nil {
				return nil, err
			}
			r, err := h.Handle(ctx, p)
			if err != nil {
				return nil, err
			}
			if h.Kind != KindCommand {
				return r, nil
			}
			normalized, err := normalize(r)
			if err != nil {
				return nil, err
			}
			return normalized, nil
		},
		decode: func(data []byte) (any, error) {
			var r R
			if err := json.Unmarshal(data, &r); err != nil {
				return nil, apperrors.NewAppError(500, "failed to decode stored result of "+h.Type, err)
			}
			return r, nil
		},
	}
	if h.Authorize != nil {
		d.authorize = func(ctx context.Context, actor domain.Actor, payload any) (domain.BoundaryDecision, error) {
			p, err := payloadAs[P](h.Type, payload)
			if err != nil {
				return domain.BoundaryDecision{}, err
			}
			return h.Authorize(ctx, actor, p)
		}
	}
	if h.CacheKey != nil {
		d.cacheKey = func(payload any) (string, error) {
			p, err := payloadAs[P](h.Type, payload)
			if err != nil {
				return "", err
			}
			return h.CacheKey(p), nil
		}
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.descriptors[h.Type]; exists {
		return fmt.Errorf("register %q: %w", h.Type, apperrors.ErrDuplicate)
	}
	reg.descriptors[h.Type] = d
	return nil
}

// MustRegister is Register for wiring code that cannot continue on error.
func MustRegister[P any, R any](reg *Registry, h Handler[P, R]) {
	if err := Register(reg, h); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered for commandType.
func (r *Registry) Lookup(commandType string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[commandType]
	return d, ok
}

// Types lists the registered operation names in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func payloadAs[P any](commandType string, payload any) (P, error) {
	switch p := payload.(type) {
	case P:
		return p, nil
	case *P:
		if p != nil {
			return *p, nil
		}
	}
	var zero P
	return zero, fmt.Errorf("%w: payload of %s must be %T", apperrors.ErrValidation, commandType, zero)
}

func normalize[R any](r R) (R, error) {
	var out R
	data, err := json.Marshal(r)
	if err != nil {
		return out, apperrors.NewAppError(500, "failed to encode command result", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, apperrors.NewAppError(500, "failed to normalize command result", err)
	}
	return out, nil
}
