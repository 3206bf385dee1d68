package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vprep/preparator-backend-go/internal/domain/alert"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
)

type PreparationRepository struct {
	s *Store
}

func (r *PreparationRepository) Create(_ context.Context, p preparation.Preparation) (preparation.Preparation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.preparations {
		if other.WorkerID == p.WorkerID && other.Status == preparation.StatusInProgress {
			return preparation.Preparation{}, preparation.ErrPreparationInProgress
		}
	}
	if p.ID == "" {
		p.ID = r.s.newID()
	}
	now := r.s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.preparations[p.ID] = clonePreparation(p)
	return p, nil
}

func (r *PreparationRepository) GetByID(_ context.Context, id string) (preparation.Preparation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.preparations[id]
	if !ok {
		return preparation.Preparation{}, preparation.ErrPreparationNotFound
	}
	return clonePreparation(p), nil
}

func (r *PreparationRepository) GetInProgressByWorker(_ context.Context, workerID string) (*preparation.Preparation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.preparations {
		if p.WorkerID == workerID && p.Status == preparation.StatusInProgress {
			out := clonePreparation(p)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *PreparationRepository) Mutate(_ context.Context, id string, fn func(*preparation.Preparation) error) (preparation.Preparation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.preparations[id]
	if !ok {
		return preparation.Preparation{}, preparation.ErrPreparationNotFound
	}
	work := clonePreparation(current)
	if err := fn(&work); err != nil {
		return preparation.Preparation{}, err
	}
	work.AlertsSent = current.AlertsSent
	work.UpdatedAt = r.s.now()
	r.s.preparations[id] = clonePreparation(work)
	return work, nil
}

func (r *PreparationRepository) ListOverdue(_ context.Context, startedBefore time.Time) ([]preparation.Preparation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []preparation.Preparation
	for _, p := range r.s.preparations {
		if p.Status == preparation.StatusInProgress && !p.AlertsSent.Overtime && !p.StartTime.After(startedBefore) {
			out = append(out, clonePreparation(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *PreparationRepository) MarkAlertSent(_ context.Context, id string, delivery alert.Delivery) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.preparations[id]
	if !ok {
		return preparation.ErrPreparationNotFound
	}
	if p.AlertsSent.Has(delivery.AlertType) {
		return alert.ErrAlreadySent
	}
	if err := p.AlertsSent.Set(delivery.AlertType); err != nil {
		return err
	}
	p.UpdatedAt = r.s.now()
	r.s.preparations[id] = p
	delivery.RecordType = alert.RecordPreparation
	delivery.RecordID = id
	r.s.recordDelivery(delivery)
	return nil
}

func clonePreparation(p preparation.Preparation) preparation.Preparation {
	steps := make([]preparation.Step, len(p.Steps))
	for i, st := range p.Steps {
		st.CompletedAt = clonePtr(st.CompletedAt)
		st.PhotoRef = clonePtr(st.PhotoRef)
		st.Notes = clonePtr(st.Notes)
		steps[i] = st
	}
	p.Steps = steps
	p.EndTime = clonePtr(p.EndTime)
	p.TotalTimeMinutes = clonePtr(p.TotalTimeMinutes)
	p.IsOnTime = clonePtr(p.IsOnTime)
	p.Notes = clonePtr(p.Notes)
	return p
}
