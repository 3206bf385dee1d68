package response

import (
	"errors"
	"net/http"

	"github.com/vprep/preparator-backend-go/internal/domain/agency"
	"github.com/vprep/preparator-backend-go/internal/domain/preparation"
	"github.com/vprep/preparator-backend-go/internal/domain/schedule"
	"github.com/vprep/preparator-backend-go/internal/domain/timesheet"
	"github.com/vprep/preparator-backend-go/internal/domain/user"
	"github.com/vprep/preparator-backend-go/internal/pkg/cron"
	"github.com/vprep/preparator-backend-go/internal/pkg/jwt"
	"github.com/vprep/preparator-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, jwt.ErrInvalidToken):
		Unauthorized(w, "Invalid or missing token")
	case errors.Is(err, user.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, agency.ErrAgencyNotFound):
		NotFound(w, "Agency not found")

	// Timesheet errors
	case errors.Is(err, timesheet.ErrTimesheetNotFound):
		NotFound(w, "No timesheet for today")
	case errors.Is(err, timesheet.ErrAlreadyClockedIn):
		Conflict(w, "Already clocked in today")
	case errors.Is(err, timesheet.ErrNotClockedIn):
		Conflict(w, "Not clocked in yet")
	case errors.Is(err, timesheet.ErrAlreadyClockedOut):
		Conflict(w, "Already clocked out")
	case errors.Is(err, timesheet.ErrBreakAlreadyStarted):
		Conflict(w, "Break already started")
	case errors.Is(err, timesheet.ErrBreakNotStarted):
		Conflict(w, "Break not started")
	case errors.Is(err, timesheet.ErrInvalidBreakWindow):
		BadRequest(w, "Break end must be after break start", nil)
	case errors.Is(err, timesheet.ErrInvalidClockOut):
		BadRequest(w, "Clock out must be after clock in", nil)

	// Schedule errors
	case errors.Is(err, schedule.ErrScheduleNotFound):
		NotFound(w, "Schedule not found")
	case errors.Is(err, schedule.ErrDuplicateActive):
		Conflict(w, "An active schedule already exists for this worker, agency and date")
	case errors.Is(err, schedule.ErrInvalidClock):
		BadRequest(w, "Invalid schedule clock, use HH:mm", nil)

	// Preparation errors
	case errors.Is(err, preparation.ErrPreparationNotFound):
		NotFound(w, "Preparation not found")
	case errors.Is(err, preparation.ErrPreparationInProgress):
		Conflict(w, "A preparation is already in progress")
	case errors.Is(err, preparation.ErrPreparationNotInProgress):
		Conflict(w, "Preparation is not in progress")
	case errors.Is(err, preparation.ErrStepAlreadyCompleted):
		Conflict(w, "Step already completed")
	case errors.Is(err, preparation.ErrInvalidStepType):
		BadRequest(w, "Invalid step type", nil)

	// Monitor errors
	case errors.Is(err, cron.ErrJobNotFound):
		NotFound(w, "Job not found")
	case errors.Is(err, cron.ErrJobRunning):
		Conflict(w, "Job already running")
	case errors.Is(err, cron.ErrJobNotRunning):
		Conflict(w, "Job not running")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
