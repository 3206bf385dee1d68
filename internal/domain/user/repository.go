package user

import "context"

// Directory is the read contract on the user directory.
type Directory interface {
	// ListActiveAdmins returns active administrators with a verified email.
	ListActiveAdmins(ctx context.Context) ([]Recipient, error)

	GetByID(ctx context.Context, id string) (User, error)
}
