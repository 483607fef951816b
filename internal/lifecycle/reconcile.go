package lifecycle

import (
	"errors"
	"net/http"

	"tasker/internal/models"
)

// Outcome is what the backend answered to an attempted action.
type Outcome struct {
	Action models.Action
	// Remote is the job as returned by the backend, nil if the response carried none.
	Remote *models.Job
	Err    error
}

// Reconciliation is the snapshot to display after an attempt.
type Reconciliation struct {
	Job     models.Job
	Applied bool
	// NeedsRefresh is set when the backend rejected the action because the job moved on
	// (e.g. another worker accepted it first); the caller should refetch.
	NeedsRefresh bool
}

// statusCoder is implemented by backend errors carrying an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// Reconcile applies a backend outcome to the local snapshot. It never fails: a rejected
// action leaves the snapshot as it was.
func (m *Machine) Reconcile(local models.Job, out Outcome) Reconciliation {
	if out.Err != nil {
		return Reconciliation{Job: local, NeedsRefresh: isConflict(out.Action, out.Err)}
	}

	if out.Remote != nil && out.Remote.Status.IsValid() {
		next := *out.Remote
		if next.ID == "" {
			next.ID = local.ID
		}
		next.Rated = local.Rated || out.Action == models.ActionRate
		return Reconciliation{Job: next, Applied: true}
	}

	next := local
	if t, ok := transitions[out.Action]; ok {
		next.Status = t.to
	}
	if out.Action == models.ActionRate {
		next.Rated = true
	}
	return Reconciliation{Job: next, Applied: true}
}

func isConflict(action models.Action, err error) bool {
	var sc statusCoder
	if !errors.As(err, &sc) {
		return false
	}
	switch sc.HTTPStatus() {
	case http.StatusConflict:
		return true
	case http.StatusBadRequest:
		return action == models.ActionReceive
	}
	return false
}
