package models

import (
	"fmt"
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusAccepted   JobStatus = "accepted"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusCanceled   JobStatus = "canceled"
)

var statusLabels = map[JobStatus]string{
	StatusPending:    "Waiting for a worker to accept",
	StatusAccepted:   "A worker has accepted the job",
	StatusInProgress: "Work in progress",
	StatusCompleted:  "Job completed",
	StatusCanceled:   "Job canceled",
}

func (s JobStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsTerminal reports whether no transition leaves the status.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCanceled
}

func (s JobStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return "Unknown status"
}

func (s JobStatus) String() string {
	return string(s)
}

func ParseJobStatus(s string) (JobStatus, error) {
	status := JobStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid job status: %q", s)
	}
	return status, nil
}

type Role string

const (
	RoleClient Role = "client"
	RoleWorker Role = "worker"
)

func (r Role) IsValid() bool {
	return r == RoleClient || r == RoleWorker
}

type Action string

const (
	ActionReceive  Action = "receive"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionRate     Action = "rate"
)

// Actions lists every action in display order.
var Actions = []Action{ActionReceive, ActionStart, ActionComplete, ActionCancel, ActionRate}

func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("invalid job action: %q", s)
}

type Worker struct {
	ID       string `json:"id"`
	FullName string `json:"full_name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Job is a snapshot of a backend job. Rated is the client-side "already rated" flag.
type Job struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"client_id,omitempty"`
	WorkerID      string    `json:"worker_id,omitempty"`
	Worker        *Worker   `json:"worker,omitempty"`
	ServiceID     string    `json:"service_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	DurationHours int       `json:"duration_hours"`
	Price         float64   `json:"price"`
	Address       string    `json:"address"`
	Notes         string    `json:"notes,omitempty"`
	Status        JobStatus `json:"status"`
	Rated         bool      `json:"rated"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// IsActive reports whether the job belongs on the "upcoming" tab rather than history.
func (j Job) IsActive() bool {
	return !j.Status.IsTerminal()
}

// HasWorker reports whether worker details should be shown.
func (j Job) HasWorker() bool {
	switch j.Status {
	case StatusAccepted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// JobView is a job annotated for rendering.
type JobView struct {
	Job
	ServiceName    string   `json:"service_name"`
	StatusLabel    string   `json:"status_label"`
	AllowedActions []Action `json:"allowed_actions"`
}

type Rating struct {
	WorkerRating   int    `json:"workerRating" validate:"required,min=1,max=5"`
	ServiceRating  int    `json:"serviceRating" validate:"required,min=1,max=5"`
	WorkerComment  string `json:"workerComment" validate:"max=1000"`
	ServiceComment string `json:"serviceComment" validate:"max=1000"`
}

// Dashboard is the worker's monthly summary as reported by the backend.
type Dashboard struct {
	TotalJobs     int     `json:"total_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	CanceledJobs  int     `json:"canceled_jobs"`
	TotalHours    float64 `json:"total_hours"`
	TotalIncome   float64 `json:"total_income"`
	AverageRating float64 `json:"average_rating"`
}

// NewJob is the job creation payload sent to the backend.
type NewJob struct {
	Address       string    `json:"address"`
	DurationHours int       `json:"duration_hours"`
	ServiceID     string    `json:"service_id"`
	Price         float64   `json:"price"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Notes         string    `json:"notes,omitempty"`
}
