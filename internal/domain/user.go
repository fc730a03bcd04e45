package domain

import "time"

// StaffRole enumerates roster roles.
type StaffRole string

const (
	StaffRoleAdmin      StaffRole = "admin"
	StaffRoleSupervisor StaffRole = "supervisor"
	StaffRoleStaff      StaffRole = "staff"
)

// User is a member of the static staff roster.
type User struct {
	ID          string
	Name        string
	StaffNumber string
	Role        StaffRole
	PINHash     string
	CreatedAt   time.Time
}
