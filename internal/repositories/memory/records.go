package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/procureflow/internal/apperrors"
	"github.com/SscSPs/procureflow/internal/core/domain"
)

func copyOutboxMessage(m domain.OutboxMessage) domain.OutboxMessage {
	c := m
	c.Content = append([]byte(nil), m.Content...)
	if m.ProcessedAtUTC != nil {
		at := *m.ProcessedAtUTC
		c.ProcessedAtUTC = &at
	}
	if m.Error != nil {
		e := *m.Error
		c.Error = &e
	}
	return c
}

func (s *Store) AppendOutboxMessages(ctx context.Context, msgs []domain.OutboxMessage) error {
	copies := make([]domain.OutboxMessage, len(msgs))
	for i, m := range msgs {
		copies[i] = copyOutboxMessage(m)
	}
	if tx := txFrom(ctx); tx != nil {
		tx.outbox = append(tx.outbox, copies...)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = append(s.outbox, copies...)
	return nil
}

func (s *Store) FindUnprocessedOutboxMessages(ctx context.Context, limit, maxRetries int) ([]domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.OutboxMessage
	for _, m := range s.outbox {
		if m.IsProcessed() || (maxRetries > 0 && m.RetryCount >= maxRetries) {
			continue
		}
		out = append(out, copyOutboxMessage(m))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAtUTC.Before(out[j].OccurredAtUTC) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListOutboxMessages(ctx context.Context, eventType string) ([]domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.OutboxMessage
	for _, m := range s.outbox {
		if m.Type == eventType {
			out = append(out, copyOutboxMessage(m))
		}
	}
	return out, nil
}

func (s *Store) MarkOutboxMessageProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].ID != id {
			continue
		}
		if s.outbox[i].IsProcessed() {
			return false, nil
		}
		at = at.UTC()
		s.outbox[i].ProcessedAtUTC = &at
		return true, nil
	}
	return false, fmt.Errorf("%w: outbox message %s", apperrors.ErrNotFound, id)
}

func (s *Store) MarkOutboxMessageFailed(ctx context.Context, id string, deliveryErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].ID != id {
			continue
		}
		// A late failure report never touches a delivered row.
		if s.outbox[i].IsProcessed() {
			return nil
		}
		s.outbox[i].Error = &deliveryErr
		s.outbox[i].RetryCount++
		return nil
	}
	return fmt.Errorf("%w: outbox message %s", apperrors.ErrNotFound, id)
}

func (s *Store) FindIdempotencyRecord(ctx context.Context, commandType, key string) (*domain.IdempotencyRecord, error) {
	k := idempotencyKey{commandType, key}
	if tx := txFrom(ctx); tx != nil {
		for _, rec := range tx.idempotency {
			if rec.CommandType == commandType && rec.Key == key {
				return &rec, nil
			}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[k]
	if !ok {
		return nil, fmt.Errorf("%w: idempotency record %s/%s", apperrors.ErrNotFound, commandType, key)
	}
	return &rec, nil
}

func (s *Store) SaveIdempotencyRecord(ctx context.Context, rec domain.IdempotencyRecord) error {
	rec.SerializedResult = append([]byte(nil), rec.SerializedResult...)
	if tx := txFrom(ctx); tx != nil {
		for _, staged := range tx.idempotency {
			if staged.CommandType == rec.CommandType && staged.Key == rec.Key {
				return fmt.Errorf("%w: idempotency record %s/%s", apperrors.ErrDuplicate, rec.CommandType, rec.Key)
			}
		}
		tx.idempotency = append(tx.idempotency, rec)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyKey{rec.CommandType, rec.Key}
	if _, exists := s.idempotency[k]; exists {
		return fmt.Errorf("%w: idempotency record %s/%s", apperrors.ErrDuplicate, rec.CommandType, rec.Key)
	}
	s.idempotency[k] = rec
	return nil
}

func (s *Store) AppendAuditLogEntries(ctx context.Context, entries []domain.AuditLogEntry) error {
	copies := append([]domain.AuditLogEntry(nil), entries...)
	if tx := txFrom(ctx); tx != nil {
		tx.audit = append(tx.audit, copies...)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, copies...)
	return nil
}

func (s *Store) ListAuditLogEntries(ctx context.Context, entityType, entityID string) ([]domain.AuditLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.AuditLogEntry
	for _, e := range s.audit {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func roleKey(tenantID, userID, role string) string {
	return tenantID + "/" + userID + "/" + role
}

func (s *Store) FindRolesByUser(ctx context.Context, tenantID, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var roles []string
	for _, ur := range s.roles {
		if ur.TenantID == tenantID && ur.UserID == userID {
			roles = append(roles, ur.Role)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

func (s *Store) FindUsersByRole(ctx context.Context, tenantID, role string) ([]domain.UserRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []domain.UserRole
	for _, ur := range s.roles {
		if ur.TenantID == tenantID && ur.Role == role {
			users = append(users, ur)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

func (s *Store) GrantRole(ctx context.Context, ur domain.UserRole) error {
	if ur.TenantID == "" || ur.UserID == "" || ur.Role == "" {
		return fmt.Errorf("%w: tenant, user and role are required", apperrors.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[roleKey(ur.TenantID, ur.UserID, ur.Role)] = ur
	return nil
}

func (s *Store) RevokeRole(ctx context.Context, tenantID, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, roleKey(tenantID, userID, role))
	return nil
}
