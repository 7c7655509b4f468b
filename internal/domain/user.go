package domain

import "time"

// Role distinguishes tenant submitters from internal reviewers.
type Role string

const (
	RoleClient Role = "client"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may review tickets.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Actor is whoever initiates an operation.
type Actor struct {
	ID       string
	TenantID *string
	Role     Role
}

// HasTenant reports whether the actor is associated with a tenant.
func (a Actor) HasTenant() bool {
	return a.TenantID != nil && *a.TenantID != ""
}

// User is a persisted actor.
type User struct {
	ID        string
	TenantID  *string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Actor returns the identity used when u initiates an operation.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, TenantID: u.TenantID, Role: u.Role}
}

// Tenant is the company a ticket and its submitter belong to.
type Tenant struct {
	ID        string
	Name      string
	TaxID     string
	CreatedAt time.Time
}
