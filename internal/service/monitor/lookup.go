package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/notification"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
)

const clockFormat = "15:04"

// lookup caches directory reads for one job run. Only hits and definite
// misses are cached, a transient failure is retried by the next candidate.
type lookup struct {
	s *Service

	mu        sync.Mutex
	users     map[string]user.User
	agencies  map[string]agency.Agency
	schedules map[string]*schedule.Schedule
}

func (s *Service) newLookup() *lookup {
	return &lookup{
		s:         s,
		users:     make(map[string]user.User),
		agencies:  make(map[string]agency.Agency),
		schedules: make(map[string]*schedule.Schedule),
	}
}

// payload fills the identity fields. Unknown workers or agencies fall back to
// their ids, a degraded alert beats none.
func (l *lookup) payload(ctx context.Context, workerID, agencyID string, date time.Time) notification.Payload {
	u := l.user(ctx, workerID)
	a := l.agency(ctx, agencyID)

	name := u.FullName()
	if name == "" {
		name = workerID
	}
	agencyName := a.Name
	if agencyName == "" {
		agencyName = agencyID
	}
	return notification.Payload{
		EmployeeName:  name,
		EmployeeEmail: u.Email,
		AgencyName:    agencyName,
		AgencyCode:    a.Code,
		Date:          date.Format(time.DateOnly),
	}
}

func (l *lookup) user(ctx context.Context, id string) user.User {
	l.mu.Lock()
	defer l.mu.Unlock()

	if u, ok := l.users[id]; ok {
		return u
	}
	u, err := l.s.deps.Directory.GetByID(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Monitor: worker lookup failed", "worker_id", id, "error", err)
		u = user.User{ID: id}
		if !errors.Is(err, user.ErrUserNotFound) {
			return u
		}
	}
	l.users[id] = u
	return u
}

func (l *lookup) agency(ctx context.Context, id string) agency.Agency {
	l.mu.Lock()
	defer l.mu.Unlock()

	if a, ok := l.agencies[id]; ok {
		return a
	}
	a, err := l.s.deps.Agencies.GetByID(ctx, id)
	if err != nil {
		slog.WarnContext(ctx, "Monitor: agency lookup failed", "agency_id", id, "error", err)
		a = agency.Agency{ID: id}
		if !errors.Is(err, agency.ErrAgencyNotFound) {
			return a
		}
	}
	l.agencies[id] = a
	return a
}

// schedule returns the referenced schedule, or nil when id is nil or the
// schedule is gone.
func (l *lookup) schedule(ctx context.Context, id *string) *schedule.Schedule {
	if id == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if sc, ok := l.schedules[*id]; ok {
		return sc
	}
	var out *schedule.Schedule
	sc, err := l.s.deps.Schedules.GetByID(ctx, *id)
	if err != nil {
		slog.WarnContext(ctx, "Monitor: schedule lookup failed", "schedule_id", *id, "error", err)
		if !errors.Is(err, schedule.ErrScheduleNotFound) {
			return nil
		}
	} else {
		out = &sc
	}
	l.schedules[*id] = out
	return out
}

func (l *lookup) clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(l.s.loc).Format(clockFormat)
}
