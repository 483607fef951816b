package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"tasker/internal/models"
)

type serviceResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Service serviceDTO `json:"service"`
}

type serviceDTO struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	BasePrice    *float64 `json:"base_price"`
	PricePerHour *float64 `json:"price_per_hour"`
	TopLoad      *float64 `json:"top_load"`
	FrontLoad    *float64 `json:"front_load"`
}

func (d serviceDTO) hasPricing() bool {
	return d.BasePrice != nil || d.PricePerHour != nil || d.TopLoad != nil || d.FrontLoad != nil
}

func (d serviceDTO) toModel(id string) *models.Service {
	if d.ID != "" {
		id = d.ID
	}
	return &models.Service{
		ID:             id,
		Name:           d.Name,
		BasePrice:      d.BasePrice,
		PricePerHour:   d.PricePerHour,
		TopLoadPrice:   d.TopLoad,
		FrontLoadPrice: d.FrontLoad,
	}
}

type workerDTO struct {
	ID       string `json:"_id"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
}

// workerRef is either a bare worker id or a populated worker document.
type workerRef struct {
	ID     string
	Worker *workerDTO
}

func (w *workerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &w.ID)
	}
	var doc workerDTO
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	w.ID = doc.ID
	w.Worker = &doc
	return nil
}

type jobDTO struct {
	ID            string     `json:"_id"`
	ClientID      string     `json:"client_id"`
	WorkerID      string     `json:"worker_id"`
	Worker        *workerRef `json:"worker"`
	ServiceID     string     `json:"service_id"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	DurationHours int        `json:"duration_hours"`
	Price         float64    `json:"price"`
	Address       string     `json:"address"`
	Notes         string     `json:"notes"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (d jobDTO) toModel() models.Job {
	job := models.Job{
		ID:            d.ID,
		ClientID:      d.ClientID,
		WorkerID:      d.WorkerID,
		ServiceID:     d.ServiceID,
		ScheduledTime: d.ScheduledTime,
		DurationHours: d.DurationHours,
		Price:         d.Price,
		Address:       d.Address,
		Notes:         d.Notes,
		Status:        models.JobStatus(d.Status),
		CreatedAt:     d.CreatedAt,
	}
	if d.Worker != nil {
		if job.WorkerID == "" {
			job.WorkerID = d.Worker.ID
		}
		if w := d.Worker.Worker; w != nil {
			job.Worker = &models.Worker{ID: w.ID, FullName: w.FullName, Avatar: w.Avatar}
		}
	}
	return job
}

// jobEnvelope accepts both a bare job document and {"job": {...}}.
type jobEnvelope struct {
	jobDTO
	Job *jobDTO `json:"job"`
}

func (e jobEnvelope) toModel() *models.Job {
	d := e.jobDTO
	if e.Job != nil {
		d = *e.Job
	}
	if d.ID == "" && d.Status == "" {
		return nil
	}
	job := d.toModel()
	return &job
}

type jobsResponse struct {
	Jobs []jobDTO `json:"jobs"`
}

type resultsResponse struct {
	Results []jobDTO `json:"results"`
}

func toJobs(in []jobDTO) []models.Job {
	out := make([]models.Job, 0, len(in))
	for _, d := range in {
		out = append(out, d.toModel())
	}
	return out
}

type statusRequest struct {
	Status models.JobStatus `json:"status"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type dashboardDTO struct {
	TotalJobs     int     `json:"total_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	CanceledJobs  int     `json:"canceled_jobs"`
	TotalHours    float64 `json:"total_hours"`
	TotalIncome   float64 `json:"total_income"`
	AverageRating float64 `json:"average_rating"`
}

// dashboardEnvelope accepts both a bare dashboard and {"dashboard": {...}}.
type dashboardEnvelope struct {
	dashboardDTO
	Dashboard *dashboardDTO `json:"dashboard"`
}

func (e dashboardEnvelope) toModel() *models.Dashboard {
	d := e.dashboardDTO
	if e.Dashboard != nil {
		d = *e.Dashboard
	}
	return &models.Dashboard{
		TotalJobs:     d.TotalJobs,
		CompletedJobs: d.CompletedJobs,
		CanceledJobs:  d.CanceledJobs,
		TotalHours:    d.TotalHours,
		TotalIncome:   d.TotalIncome,
		AverageRating: d.AverageRating,
	}
}
