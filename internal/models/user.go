package models

import "time"

// User is a directory identity. Managers are modeled as a self-reference.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"` // EMPLOYEE, FINANCE, ADMIN
	ManagerID *string   `json:"manager_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Role constants
const (
	RoleEmployee = "EMPLOYEE"
	RoleFinance  = "FINANCE"
	RoleAdmin    = "ADMIN"
)
