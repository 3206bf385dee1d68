package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RolePlanner    Role = "planner"
	RolePreparator Role = "preparator"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)

type User struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Role          Role
	IsActive      bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Recipient is an administrator eligible for monitor alerts.
type Recipient struct {
	UserID string
	Name   string
	Email  string
}
