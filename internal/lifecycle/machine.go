// Package lifecycle encodes job statuses, the actions each role may take on them
// and the guards on those actions. It performs no I/O.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"tasker/internal/domain"
	"tasker/internal/models"
)

// GuardViolation is returned when an action is attempted that the job snapshot does not allow.
type GuardViolation struct {
	JobID   string
	Action  models.Action
	Status  models.JobStatus
	Message string
}

func (e *GuardViolation) Error() string {
	return e.Message
}

func (e *GuardViolation) Is(target error) bool {
	return target == domain.ErrGuardViolation
}

type transition struct {
	role models.Role
	from []models.JobStatus
	to   models.JobStatus
}

// transitions описывает все переходы; rate статус не меняет.
var transitions = map[models.Action]transition{
	models.ActionReceive:  {role: models.RoleWorker, from: []models.JobStatus{models.StatusPending}, to: models.StatusAccepted},
	models.ActionStart:    {role: models.RoleWorker, from: []models.JobStatus{models.StatusAccepted}, to: models.StatusInProgress},
	models.ActionComplete: {role: models.RoleWorker, from: []models.JobStatus{models.StatusInProgress}, to: models.StatusCompleted},
	models.ActionCancel:   {role: models.RoleClient, from: []models.JobStatus{models.StatusPending, models.StatusAccepted}, to: models.StatusCanceled},
	models.ActionRate:     {role: models.RoleClient, from: []models.JobStatus{models.StatusCompleted}, to: models.StatusCompleted},
}

type Machine struct {
	cancelWindow time.Duration
}

// NewMachine returns a machine refusing cancellation closer than cancelWindow to the
// scheduled time. A non-positive window falls back to the default of 12 hours.
func NewMachine(cancelWindow time.Duration) *Machine {
	if cancelWindow <= 0 {
		cancelWindow = models.DefaultCancelWindow
	}
	return &Machine{cancelWindow: cancelWindow}
}

func (m *Machine) CancelWindow() time.Duration {
	return m.cancelWindow
}

// CanCancel reports whether the job may still be canceled at now.
func (m *Machine) CanCancel(job models.Job, now time.Time) bool {
	if job.Status != models.StatusPending && job.Status != models.StatusAccepted {
		return false
	}
	return job.ScheduledTime.Sub(now) >= m.cancelWindow
}

// AllowedActions returns the actions role may take on job, in models.Actions order.
func (m *Machine) AllowedActions(job models.Job, role models.Role, now time.Time) []models.Action {
	actions := make([]models.Action, 0, 2)
	for _, a := range models.Actions {
		if m.Check(job, role, a, now) == nil {
			actions = append(actions, a)
		}
	}
	return actions
}

// Check validates an action against the snapshot without changing it.
func (m *Machine) Check(job models.Job, role models.Role, action models.Action, now time.Time) error {
	t, ok := transitions[action]
	if !ok {
		return m.violation(job, action, fmt.Sprintf("unknown action %q", action))
	}
	if t.role != role {
		return m.violation(job, action, fmt.Sprintf("a %s cannot %s a job", role, action))
	}
	if !statusIn(job.Status, t.from) {
		return m.violation(job, action, fmt.Sprintf("cannot %s a job that is %s", action, job.Status))
	}

	switch action {
	case models.ActionCancel:
		if !m.CanCancel(job, now) {
			return m.violation(job, action, fmt.Sprintf("cannot cancel within %s of the scheduled time", humanize(m.cancelWindow)))
		}
	case models.ActionRate:
		if job.Rated {
			return fmt.Errorf("job %s: %w", job.ID, domain.ErrAlreadyRated)
		}
	}
	return nil
}

// Transition checks the action and returns the snapshot as it should look once the
// backend confirms it. The input job is not modified.
func (m *Machine) Transition(job models.Job, role models.Role, action models.Action, now time.Time) (models.Job, error) {
	if err := m.Check(job, role, action, now); err != nil {
		return job, err
	}
	next := job
	next.Status = transitions[action].to
	if action == models.ActionRate {
		next.Rated = true
	}
	return next, nil
}

func (m *Machine) violation(job models.Job, action models.Action, msg string) error {
	return &GuardViolation{JobID: job.ID, Action: action, Status: job.Status, Message: msg}
}

// IsGuardViolation extracts the violation from err, if any.
func IsGuardViolation(err error) (*GuardViolation, bool) {
	var gv *GuardViolation
	if errors.As(err, &gv) {
		return gv, true
	}
	return nil, false
}

func statusIn(s models.JobStatus, set []models.JobStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func humanize(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
