package domain

import "time"

// AuditFields holds standard audit information for domain entities.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	CreatedBy     string    `json:"createdBy"` // UserID Reference
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
	LastUpdatedBy string    `json:"lastUpdatedBy"` // UserID Reference
}

func newAuditFields(userID string, now time.Time) AuditFields {
	now = now.UTC()
	return AuditFields{CreatedAt: now, CreatedBy: userID, LastUpdatedAt: now, LastUpdatedBy: userID}
}

func (a *AuditFields) touch(userID string, now time.Time) {
	a.LastUpdatedAt = now.UTC()
	a.LastUpdatedBy = userID
}

// Actor is the authenticated caller a command runs on behalf of.
type Actor struct {
	UserID        string   `json:"userId"`
	UserName      string   `json:"userName"`
	TenantID      string   `json:"tenantId"`
	Roles         []string `json:"roles"`
	CorrelationID string   `json:"correlationId"`
	RequestID     string   `json:"requestId"`
}

// HasRole reports whether the actor's token carries role.
func (a Actor) HasRole(role string) bool {
	return containsRole(a.Roles, role)
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Well-known roles.
const (
	RoleAdmin     = "Admin"
	RoleManager   = "Manager"
	RoleDirector  = "Director"
	RoleExecutive = "Executive"
)

// UserRole records that a user holds a role inside a tenant.
type UserRole struct {
	TenantID string `json:"tenantId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Role     string `json:"role"`
}
