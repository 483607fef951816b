package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"tasker/internal/domain"
	"tasker/internal/models"
)

// GetService fetches service pricing. Category is not part of the backend document and
// is left empty for the caller to fill from the catalog.
func (c *Client) GetService(ctx context.Context, id string) (*models.Service, error) {
	cacheKey := "service:" + id
	var resp serviceResponse
	if !c.readCache(ctx, cacheKey, &resp) {
		if err := c.doGet(ctx, "get_service", "/services/"+url.PathEscape(id), &resp); err != nil {
			return nil, err
		}
		// отказ бэкенда не кэшируем
		if !resp.Success {
			return nil, &Error{Op: "get_service", Status: http.StatusOK, Message: resp.Message, Err: fmt.Errorf("service %s: success=false", id)}
		}
		if !resp.Service.hasPricing() {
			return nil, &Error{Op: "get_service", Status: http.StatusOK, Err: fmt.Errorf("service %s carries no pricing", id)}
		}
		c.writeCache(ctx, cacheKey, resp)
	}
	return resp.Service.toModel(id), nil
}

func (c *Client) CreateJob(ctx context.Context, job models.NewJob) (*models.Job, error) {
	var resp jobEnvelope
	if err := c.doJSON(ctx, "create_job", http.MethodPost, "/jobs/create", job, &resp); err != nil {
		return nil, err
	}
	created := resp.toModel()
	if created == nil {
		return nil, &Error{Op: "create_job", Status: http.StatusOK, Err: fmt.Errorf("response carries no job")}
	}
	return created, nil
}

// ListJobs returns the caller's jobs as a client.
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	var resp jobsResponse
	if err := c.doGet(ctx, "list_jobs", "/jobs", &resp); err != nil {
		return nil, err
	}
	return toJobs(resp.Jobs), nil
}

// ListWorkerJobs returns jobs visible to a worker; an empty status lists the worker's own jobs.
func (c *Client) ListWorkerJobs(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	path := "/worker_jobs"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var resp resultsResponse
	if err := c.doGet(ctx, "list_worker_jobs", path, &resp); err != nil {
		return nil, err
	}
	return toJobs(resp.Results), nil
}

func (c *Client) JobHistory(ctx context.Context) ([]models.Job, error) {
	var resp resultsResponse
	if err := c.doGet(ctx, "job_history", "/jobs/history", &resp); err != nil {
		return nil, err
	}
	return toJobs(resp.Results), nil
}

func (c *Client) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var resp dashboardEnvelope
	if err := c.doGet(ctx, "dashboard", "/jobs/dashboard", &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

// ReceiveJob accepts a pending job for the calling worker. Losing the race to another
// worker comes back as a 409 or 400 from the backend.
func (c *Client) ReceiveJob(ctx context.Context, id string) (*models.Job, error) {
	var resp jobEnvelope
	if err := c.doJSON(ctx, "receive_job", http.MethodPost, "/jobs/"+url.PathEscape(id)+"/receive", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

func (c *Client) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) (*models.Job, error) {
	var resp jobEnvelope
	if err := c.doJSON(ctx, "update_job_status", http.MethodPut, "/jobs/"+url.PathEscape(id), statusRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

func (c *Client) CancelJob(ctx context.Context, id string) (*models.Job, error) {
	var resp jobEnvelope
	if err := c.doJSON(ctx, "cancel_job", http.MethodDelete, "/jobs/"+url.PathEscape(id)+"/cancel", nil, &resp); err != nil {
		return nil, err
	}
	return resp.toModel(), nil
}

func (c *Client) RateJob(ctx context.Context, id string, rating models.Rating) error {
	var resp messageResponse
	if err := c.doJSON(ctx, "rate_job", http.MethodPost, "/jobs/"+url.PathEscape(id)+"/rate", rating, &resp); err != nil {
		return err
	}
	return nil
}

var _ domain.Backend = (*Client)(nil)
