package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
)

type AgencyRepository struct {
	s *Store
}

func (r *AgencyRepository) GetByID(_ context.Context, id string) (agency.Agency, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.agencies[id]
	if !ok {
		return agency.Agency{}, agency.ErrAgencyNotFound
	}
	return a, nil
}

func (r *AgencyRepository) GetSettings(_ context.Context, agencyID string) (*agency.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.settings[agencyID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (r *AgencyRepository) ListSettings(context.Context) ([]agency.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]agency.Settings, 0, len(r.s.settings))
	for _, st := range r.s.settings {
		out = append(out, st)
	}
	return out, nil
}

type Directory struct {
	s *Store
}

func (d *Directory) ListActiveAdmins(context.Context) ([]user.Recipient, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	var out []user.Recipient
	for _, u := range d.s.users {
		if u.Role == user.RoleAdmin && u.IsActive && u.EmailVerified && u.Email != "" {
			out = append(out, user.Recipient{UserID: u.ID, Name: u.FullName(), Email: u.Email})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (d *Directory) GetByID(_ context.Context, id string) (user.User, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	u, ok := d.s.users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

// SeedAdmin registers an active administrator with a verified email, the
// only way memory storage gets an alert recipient.
func (s *Store) SeedAdmin(email, name string) user.User {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	u := user.User{
		ID:            s.newID(),
		FirstName:     first,
		LastName:      last,
		Email:         email,
		Role:          user.RoleAdmin,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     s.now(),
		UpdatedAt:     s.now(),
	}
	s.PutUser(u)
	return u
}
