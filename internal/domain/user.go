package domain

import "time"

// Role enumerates caller roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAgent Role = "AGENT"
	RoleAdmin Role = "ADMIN"
)

// User is the domain model for everyone who touches a ticket: requesters
// (USER) and support staff (AGENT, ADMIN).
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the user can work tickets.
func (u *User) IsStaff() bool {
	return u.Role == RoleAgent || u.Role == RoleAdmin
}

// CanBeAssigned reports whether the user is a valid ticket assignee.
func (u *User) CanBeAssigned() bool {
	return u.IsActive && u.IsStaff()
}
