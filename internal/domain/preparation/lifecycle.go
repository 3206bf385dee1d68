package preparation

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/vprep/preparator-backend-go/internal/pkg/timecalc"
)

const (
	eventComplete = "complete"
	eventCancel   = "cancel"
)

type preparationContext struct {
	PreparationID string
}

func newStateMachine(initial Status, id string) (*statekit.Interpreter[preparationContext], error) {
	builder := statekit.NewMachine[preparationContext]("preparation-machine").
		WithInitial(statekit.StateID(initial)).
		WithContext(preparationContext{PreparationID: id})

	builder.State(statekit.StateID(StatusInProgress)).
		On(eventComplete).Target(statekit.StateID(StatusCompleted)).
		On(eventCancel).Target(statekit.StateID(StatusCancelled)).
		Done()

	// Terminal states
	builder.State(statekit.StateID(StatusCompleted)).Done()
	builder.State(statekit.StateID(StatusCancelled)).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build preparation state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return interpreter, nil
}

func (p *Preparation) transition(event string) error {
	sm, err := newStateMachine(p.Status, p.ID)
	if err != nil {
		return err
	}
	sm.Send(statekit.Event{Type: statekit.EventType(event)})
	next := Status(sm.State().Value)
	if next == p.Status {
		return ErrPreparationNotInProgress
	}
	p.Status = next
	return nil
}

// CompleteStep marks one step done. Steps never revert.
func (p *Preparation) CompleteStep(t StepType, photoRef, notes *string, now time.Time) error {
	if p.Status != StatusInProgress {
		return ErrPreparationNotInProgress
	}
	if !t.Valid() {
		return ErrInvalidStepType
	}
	step, ok := p.step(t)
	if !ok {
		return ErrInvalidStepType
	}
	if step.Completed {
		return ErrStepAlreadyCompleted
	}
	step.Completed = true
	step.CompletedAt = &now
	step.PhotoRef = photoRef
	step.Notes = notes
	return nil
}

// Complete closes the preparation and classifies it against thresholdMinutes.
func (p *Preparation) Complete(notes *string, now time.Time, thresholdMinutes int) error {
	if err := p.transition(eventComplete); err != nil {
		return err
	}
	p.EndTime = &now
	total := timecalc.Minutes(now.Sub(p.StartTime))
	onTime := timecalc.IsOnTime(total, thresholdMinutes)
	p.TotalTimeMinutes = &total
	p.IsOnTime = &onTime
	if notes != nil {
		p.Notes = notes
	}
	return nil
}

func (p *Preparation) Cancel(reason *string, now time.Time) error {
	if err := p.transition(eventCancel); err != nil {
		return err
	}
	p.EndTime = &now
	if reason != nil {
		p.Notes = reason
	}
	return nil
}
