// Package memory implements the repository contracts in process memory. It
// backs APP_STORAGE=memory and the service tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
)

// Store holds every table behind one lock so multi-record operations stay
// atomic.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	schedules    map[string]schedule.Schedule
	timesheets   map[string]timesheet.Timesheet
	preparations map[string]preparation.Preparation
	agencies     map[string]agency.Agency
	settings     map[string]agency.Settings
	users        map[string]user.User
	deliveries   []alert.Delivery
}

func NewStore() *Store {
	return &Store{
		now:          time.Now,
		schedules:    make(map[string]schedule.Schedule),
		timesheets:   make(map[string]timesheet.Timesheet),
		preparations: make(map[string]preparation.Preparation),
		agencies:     make(map[string]agency.Agency),
		settings:     make(map[string]agency.Settings),
		users:        make(map[string]user.User),
	}
}

func (s *Store) Schedules() *ScheduleRepository       { return &ScheduleRepository{s} }
func (s *Store) Timesheets() *TimesheetRepository     { return &TimesheetRepository{s} }
func (s *Store) Preparations() *PreparationRepository { return &PreparationRepository{s} }
func (s *Store) Agencies() *AgencyRepository          { return &AgencyRepository{s} }
func (s *Store) Directory() *Directory                { return &Directory{s} }

// Deliveries returns the alert audit log in insertion order.
func (s *Store) Deliveries() []alert.Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alert.Delivery(nil), s.deliveries...)
}

func (s *Store) PutAgency(a agency.Agency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agencies[a.ID] = a
}

func (s *Store) PutSettings(st agency.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.AgencyID] = st
}

func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (s *Store) recordDelivery(d alert.Delivery) {
	if d.ID == "" {
		d.ID = s.newID()
	}
	if d.SentAt.IsZero() {
		d.SentAt = s.now()
	}
	s.deliveries = append(s.deliveries, d)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type DeliveryRepository struct {
	s *Store
}

func (s *Store) DeliveryLog() *DeliveryRepository { return &DeliveryRepository{s} }

func (r *DeliveryRepository) ListByRecord(_ context.Context, recordType alert.RecordType, recordID string) ([]alert.Delivery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []alert.Delivery
	for _, d := range r.s.deliveries {
		if d.RecordType == recordType && d.RecordID == recordID {
			out = append(out, d)
		}
	}
	return out, nil
}
