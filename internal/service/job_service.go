package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tasker/internal/domain"
	"tasker/internal/events"
	"tasker/internal/lifecycle"
	"tasker/internal/metrics"
	"tasker/internal/models"

	"github.com/rs/zerolog"
)

const (
	TabActive    = "active"
	TabHistory   = "history"
	TabAvailable = "available"
	TabMine      = "mine"
)

var actionEvents = map[models.Action]string{
	models.ActionReceive:  events.EventJobReceived,
	models.ActionStart:    events.EventJobStarted,
	models.ActionComplete: events.EventJobCompleted,
	models.ActionCancel:   events.EventJobCanceled,
	models.ActionRate:     events.EventJobRated,
}

// ActionResult is the job snapshot to render after an action attempt.
type ActionResult struct {
	Job          models.JobView `json:"job"`
	NeedsRefresh bool           `json:"needs_refresh"`
}

// JobService lists jobs for both roles and runs lifecycle actions against the backend.
type JobService struct {
	backend  domain.Backend
	machine  *lifecycle.Machine
	store    domain.LocalStore
	catalog  *CatalogService
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewJobService(
	backend domain.Backend,
	machine *lifecycle.Machine,
	store domain.LocalStore,
	catalog *CatalogService,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *JobService {
	return &JobService{
		backend:  backend,
		machine:  machine,
		store:    store,
		catalog:  catalog,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// ClientJobs returns the client's jobs for the tab, soonest first.
func (s *JobService) ClientJobs(ctx context.Context, tab string) ([]models.JobView, error) {
	if tab == "" {
		tab = TabActive
	}
	if tab != TabActive && tab != TabHistory {
		return nil, domain.InvalidSelection("unknown tab %q", tab)
	}

	jobs, err := s.backend.ListJobs(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.IsActive() == (tab == TabActive) {
			filtered = append(filtered, j)
		}
	}
	sortJobs(filtered, tab == TabActive)

	return s.annotate(ctx, models.RoleClient, filtered)
}

// WorkerJobs returns open jobs to pick up (available) or the worker's own jobs (mine).
func (s *JobService) WorkerJobs(ctx context.Context, tab string) ([]models.JobView, error) {
	var status models.JobStatus
	switch tab {
	case TabAvailable, "":
		status = models.StatusPending
	case TabMine:
	default:
		return nil, domain.InvalidSelection("unknown tab %q", tab)
	}

	jobs, err := s.backend.ListWorkerJobs(ctx, status)
	if err != nil {
		return nil, err
	}
	sortJobs(jobs, true)

	return s.annotate(ctx, models.RoleWorker, jobs)
}

func (s *JobService) WorkerHistory(ctx context.Context) ([]models.JobView, error) {
	jobs, err := s.backend.JobHistory(ctx)
	if err != nil {
		return nil, err
	}
	sortJobs(jobs, false)
	return s.annotate(ctx, models.RoleWorker, jobs)
}

func (s *JobService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	return s.backend.Dashboard(ctx)
}

// CompletedInMonth returns the worker's completed jobs scheduled within month (local time).
func (s *JobService) CompletedInMonth(ctx context.Context, month time.Time) ([]models.JobView, error) {
	jobs, err := s.backend.JobHistory(ctx)
	if err != nil {
		return nil, err
	}

	loc := month.Location()
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 1, 0)

	var out []models.Job
	for _, j := range jobs {
		at := j.ScheduledTime.In(loc)
		if j.Status == models.StatusCompleted && !at.Before(from) && at.Before(to) {
			out = append(out, j)
		}
	}
	sortJobs(out, true)
	return s.annotate(ctx, models.RoleWorker, out)
}

// Perform validates action locally, sends it to the backend and reconciles the answer.
// Guard failures never reach the backend.
func (s *JobService) Perform(ctx context.Context, role models.Role, jobID string, action models.Action, rating *models.Rating) (*ActionResult, error) {
	job, err := s.findJob(ctx, role, jobID, action)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.machine.Transition(*job, role, action, now); err != nil {
		metrics.IncJobAction(string(action), "rejected")
		return nil, err
	}
	if action == models.ActionRate && rating == nil {
		return nil, domain.InvalidSelection("rating is required")
	}

	remote, callErr := s.send(ctx, job.ID, action, rating)
	rec := s.machine.Reconcile(*job, lifecycle.Outcome{Action: action, Remote: remote, Err: callErr})

	view := s.view(role, rec.Job, now)
	if callErr != nil {
		metrics.IncJobAction(string(action), "failed")
		s.logger.Error().Err(callErr).
			Str("job_id", job.ID).
			Str("action", string(action)).
			Bool("needs_refresh", rec.NeedsRefresh).
			Msg("job action failed")
		return &ActionResult{Job: view, NeedsRefresh: rec.NeedsRefresh}, callErr
	}

	if action == models.ActionRate {
		if err := s.store.MarkRated(ctx, job.ID, now); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist rated flag")
		}
	}

	metrics.IncJobAction(string(action), "ok")
	publishJobEvent(s.eventBus, s.logger, actionEvents[action], rec.Job, job.Status, role, "")

	return &ActionResult{Job: view}, nil
}

func (s *JobService) send(ctx context.Context, id string, action models.Action, rating *models.Rating) (*models.Job, error) {
	switch action {
	case models.ActionReceive:
		return s.backend.ReceiveJob(ctx, id)
	case models.ActionStart:
		return s.backend.UpdateJobStatus(ctx, id, models.StatusInProgress)
	case models.ActionComplete:
		return s.backend.UpdateJobStatus(ctx, id, models.StatusCompleted)
	case models.ActionCancel:
		return s.backend.CancelJob(ctx, id)
	case models.ActionRate:
		return nil, s.backend.RateJob(ctx, id, *rating)
	}
	return nil, fmt.Errorf("unsupported action %q", action)
}

// findJob looks the job up in the lists the role can see; there is no single-job endpoint.
func (s *JobService) findJob(ctx context.Context, role models.Role, id string, action models.Action) (*models.Job, error) {
	var lists []func() ([]models.Job, error)
	switch role {
	case models.RoleClient:
		lists = append(lists, func() ([]models.Job, error) { return s.backend.ListJobs(ctx) })
	case models.RoleWorker:
		mine := func() ([]models.Job, error) { return s.backend.ListWorkerJobs(ctx, "") }
		open := func() ([]models.Job, error) { return s.backend.ListWorkerJobs(ctx, models.StatusPending) }
		if action == models.ActionReceive {
			lists = append(lists, open, mine)
		} else {
			lists = append(lists, mine, open)
		}
	default:
		return nil, fmt.Errorf("unknown role %q", role)
	}

	for _, list := range lists {
		jobs, err := list()
		if err != nil {
			return nil, err
		}
		for i := range jobs {
			if jobs[i].ID != id {
				continue
			}
			job := jobs[i]
			rated, err := s.store.IsRated(ctx, id)
			if err != nil {
				s.logger.Warn().Err(err).Str("job_id", id).Msg("failed to read rated flag")
			}
			job.Rated = job.Rated || rated
			return &job, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
}

func (s *JobService) annotate(ctx context.Context, role models.Role, jobs []models.Job) ([]models.JobView, error) {
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	rated, err := s.store.RatedJobs(ctx, ids)
	if err != nil {
		// без флагов оценки список всё равно показываем
		s.logger.Warn().Err(err).Msg("failed to load rated flags")
		rated = nil
	}

	now := s.now()
	views := make([]models.JobView, 0, len(jobs))
	for _, j := range jobs {
		j.Rated = j.Rated || rated[j.ID]
		views = append(views, s.view(role, j, now))
	}
	return views, nil
}

func (s *JobService) view(role models.Role, job models.Job, now time.Time) models.JobView {
	return models.JobView{
		Job:            job,
		ServiceName:    s.catalog.Name(job.ServiceID),
		StatusLabel:    job.Status.Label(),
		AllowedActions: s.machine.AllowedActions(job, role, now),
	}
}

func sortJobs(jobs []models.Job, ascending bool) {
	sort.SliceStable(jobs, func(i, k int) bool {
		if ascending {
			return jobs[i].ScheduledTime.Before(jobs[k].ScheduledTime)
		}
		return jobs[i].ScheduledTime.After(jobs[k].ScheduledTime)
	})
}
