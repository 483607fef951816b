package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasker/internal/backend"
	"tasker/internal/config"
	"tasker/internal/domain"
	"tasker/internal/lifecycle"
	"tasker/internal/models"
	"tasker/internal/repository"
	"tasker/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBooking struct{ mock.Mock }

func (m *mockBooking) Quote(ctx context.Context, in models.SelectionInput) (models.PriceQuote, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(models.PriceQuote), args.Error(1)
}
func (m *mockBooking) QuoteDraft(ctx context.Context, key string) (models.PriceQuote, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(models.PriceQuote), args.Error(1)
}
func (m *mockBooking) Submit(ctx context.Context, key string, in models.SelectionInput) (*service.Submission, error) {
	args := m.Called(ctx, key, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Submission), args.Error(1)
}

type mockJobs struct{ mock.Mock }

func (m *mockJobs) ClientJobs(ctx context.Context, tab string) ([]models.JobView, error) {
	args := m.Called(ctx, tab)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JobView), args.Error(1)
}
func (m *mockJobs) WorkerJobs(ctx context.Context, tab string) ([]models.JobView, error) {
	args := m.Called(ctx, tab)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JobView), args.Error(1)
}
func (m *mockJobs) WorkerHistory(ctx context.Context) ([]models.JobView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.JobView), args.Error(1)
}
func (m *mockJobs) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dashboard), args.Error(1)
}
func (m *mockJobs) Perform(ctx context.Context, role models.Role, id string, action models.Action, rating *models.Rating) (*service.ActionResult, error) {
	args := m.Called(ctx, role, id, action, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ActionResult), args.Error(1)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) ParseMonth(raw string) (time.Time, error) {
	args := m.Called(raw)
	return args.Get(0).(time.Time), args.Error(1)
}
func (m *mockReports) WorkerReport(ctx context.Context, month time.Time) (string, error) {
	args := m.Called(ctx, month)
	return args.String(0), args.Error(1)
}

type staticCatalog []models.CatalogEntry

func (c staticCatalog) Entries() []models.CatalogEntry { return c }

type fixture struct {
	booking *mockBooking
	jobs    *mockJobs
	reports *mockReports
	server  *Server
	http    *httptest.Server
}

func newFixture(t *testing.T, cfg config.APIConfig, health ...HealthCheck) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	f := &fixture{booking: new(mockBooking), jobs: new(mockJobs), reports: new(mockReports)}
	f.server = NewServer(cfg, Deps{
		Booking: f.booking,
		Jobs:    f.jobs,
		Drafts:  service.NewDraftService(repository.NewMemoryDraftRepository(time.Hour), &logger),
		Reports: f.reports,
		Catalog: staticCatalog{{ID: "svc-clean", Name: "Home cleaning", Category: models.CategoryCleaning}},
		Health:  health,
	}, &logger)
	f.http = httptest.NewServer(f.server.Handler())
	t.Cleanup(f.http.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token, body string, headers ...string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type errorResponse struct {
	Error errorBody      `json:"error"`
	Job   models.JobView `json:"job"`
}

func decodeError(t *testing.T, resp *http.Response) errorResponse {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func withToken(token string) any {
	return mock.MatchedBy(func(ctx context.Context) bool {
		got, ok := backend.TokenFrom(ctx)
		return ok && got == token
	})
}

const selectionBody = `{"service_id":"svc-clean","scheduled_date":"2026-10-20","scheduled_time":"09:00","duration_hours":2}`

func TestHealth(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	resp := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(headerRequestID))

	down := newFixture(t, config.APIConfig{}, HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("down") }})
	resp = down.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	resp := f.do(t, http.MethodGet, "/health", "", "", headerRequestID, "req-42")
	assert.Equal(t, "req-42", resp.Header.Get(headerRequestID))
}

func TestMissingBearerToken(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	resp := f.do(t, http.MethodPost, "/api/v1/quotes", "", selectionBody)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, codeUnauthorized, decodeError(t, resp).Error.Code)
	f.booking.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
}

func TestQuote(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	f.booking.On("Quote", withToken("tok-1"), mock.MatchedBy(func(in models.SelectionInput) bool {
		return in.ServiceID == "svc-clean" && in.DurationHours == 2
	})).Return(models.PriceQuote{ServiceID: "svc-clean", BasePrice: 200_000, FinalPrice: 200_000}, nil)

	resp := f.do(t, http.MethodPost, "/api/v1/quotes", "tok-1", selectionBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var q models.PriceQuote
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&q))
	assert.Equal(t, 200_000.0, q.FinalPrice)
	f.booking.AssertExpectations(t)
}

func TestQuoteValidation(t *testing.T) {
	f := newFixture(t, config.APIConfig{})

	resp := f.do(t, http.MethodPost, "/api/v1/quotes", "tok", `{"scheduled_date":"20/10/2026"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, codeValidation, body.Error.Code)
	assert.Contains(t, body.Error.Details, "service_id")
	assert.Contains(t, body.Error.Details, "scheduled_date")

	resp = f.do(t, http.MethodPost, "/api/v1/quotes", "tok", `{"service_id":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQuoteErrorsMapTo422(t *testing.T) {
	for _, err := range []error{
		domain.InvalidSelection("premium is only available for cleaning"),
		domain.MissingPricingData("service svc-clean has no price_per_hour"),
		domain.ErrUnknownService,
	} {
		f := newFixture(t, config.APIConfig{})
		f.booking.On("Quote", mock.Anything, mock.Anything).Return(models.PriceQuote{}, err)

		resp := f.do(t, http.MethodPost, "/api/v1/quotes", "tok", selectionBody)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode, err.Error())
	}
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	f.booking.On("Submit", withToken("tok"), "s:phone-1", mock.Anything).
		Return(&service.Submission{Job: models.Job{ID: "job-1", Status: models.StatusPending}}, nil)

	resp := f.do(t, http.MethodPost, "/api/v1/jobs", "tok", selectionBody, headerSession, "phone-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	f.booking.AssertExpectations(t)
}

func TestSubmitRateLimited(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	f.booking.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrRateLimited)

	resp := f.do(t, http.MethodPost, "/api/v1/jobs", "tok", selectionBody)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestDraftRoundTrip(t *testing.T) {
	f := newFixture(t, config.APIConfig{})

	resp := f.do(t, http.MethodGet, "/api/v1/drafts", "tok", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/v1/drafts", "tok", `{"step":"select_time","selection":{"service_id":"svc-clean"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/drafts", "tok", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var draft models.Draft
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&draft))
	assert.Equal(t, models.StepTime, draft.Step)
	assert.Equal(t, "svc-clean", draft.Selection.ServiceID)

	// другой токен видит свой черновик
	resp = f.do(t, http.MethodGet, "/api/v1/drafts", "other", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/v1/drafts", "tok", `{"step":"checkout"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/api/v1/drafts", "tok", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/v1/drafts", "tok", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQuoteDraft(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	f.booking.On("QuoteDraft", mock.Anything, "s:abc").Return(models.PriceQuote{FinalPrice: 1}, nil)

	resp := f.do(t, http.MethodPost, "/api/v1/drafts/quote", "tok", "", headerSession, "abc")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientJobs(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	f.jobs.On("ClientJobs", mock.Anything, "history").Return([]models.JobView{{
		Job:            models.Job{ID: "j1", Status: models.StatusCompleted},
		AllowedActions: []models.Action{models.ActionRate},
	}}, nil)

	resp := f.do(t, http.MethodGet, "/api/v1/jobs?tab=history", "tok", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Jobs []models.JobView `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, []models.Action{models.ActionRate}, body.Jobs[0].AllowedActions)
}

func TestCancelGuardViolation(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	gv := &lifecycle.GuardViolation{
		JobID:   "j1",
		Action:  models.ActionCancel,
		Status:  models.StatusAccepted,
		Message: "cannot cancel within 12 hours of the scheduled time",
	}
	f.jobs.On("Perform", mock.Anything, models.RoleClient, "j1", models.ActionCancel, (*models.Rating)(nil)).Return(nil, gv)

	resp := f.do(t, http.MethodPost, "/api/v1/jobs/j1/cancel", "tok", "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, codeGuard, body.Error.Code)
	assert.Equal(t, gv.Message, body.Error.Message)
}

func TestRate(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	f.jobs.On("Perform", mock.Anything, models.RoleClient, "j1", models.ActionRate, mock.MatchedBy(func(r *models.Rating) bool {
		return r != nil && r.WorkerRating == 5 && r.ServiceRating == 4
	})).Return(&service.ActionResult{Job: models.JobView{Job: models.Job{ID: "j1", Rated: true}}}, nil).Once()
	f.jobs.On("Perform", mock.Anything, models.RoleClient, "j1", models.ActionRate, mock.Anything).
		Return(nil, domain.ErrAlreadyRated)

	body := `{"workerRating":5,"serviceRating":4,"workerComment":"tidy"}`
	resp := f.do(t, http.MethodPost, "/api/v1/jobs/j1/rate", "tok", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/jobs/j1/rate", "tok", body)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, codeAlreadyRated, decodeError(t, resp).Error.Code)

	resp = f.do(t, http.MethodPost, "/api/v1/jobs/j1/rate", "tok", `{"workerRating":6,"serviceRating":0}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestWorkerReceiveConflict(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	beErr := &backend.Error{Op: "receive job", Status: http.StatusBadRequest, Message: "Job already taken"}
	f.jobs.On("Perform", mock.Anything, models.RoleWorker, "j9", models.ActionReceive, (*models.Rating)(nil)).
		Return(&service.ActionResult{
			Job:          models.JobView{Job: models.Job{ID: "j9", Status: models.StatusPending}},
			NeedsRefresh: true,
		}, beErr)

	resp := f.do(t, http.MethodPost, "/api/v1/worker/jobs/j9/receive", "tok", "")
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, codeBackend, body.Error.Code)
	assert.Equal(t, "Job already taken", body.Error.Message)
	assert.True(t, body.Error.NeedsRefresh)
	assert.Equal(t, models.StatusPending, body.Job.Status)
}

func TestBackendAuthErrorsPassThrough(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	f.jobs.On("WorkerJobs", mock.Anything, "mine").
		Return(nil, &backend.Error{Op: "list worker jobs", Status: http.StatusUnauthorized, Message: "Token expired"})
	f.jobs.On("WorkerHistory", mock.Anything).
		Return(nil, &backend.Error{Op: "job history", Status: http.StatusForbidden})
	f.jobs.On("Dashboard", mock.Anything).
		Return(nil, &backend.Error{Op: "dashboard", Err: errors.New("connection refused")})

	resp := f.do(t, http.MethodGet, "/api/v1/worker/jobs?tab=mine", "tok", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token expired", decodeError(t, resp).Error.Message)

	resp = f.do(t, http.MethodGet, "/api/v1/worker/history", "tok", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/v1/worker/dashboard", "tok", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestUnknownWorkerAction(t *testing.T) {
	f := newFixture(t, config.APIConfig{})

	for _, action := range []string{"cancel", "rate", "explode"} {
		resp := f.do(t, http.MethodPost, "/api/v1/worker/jobs/j1/"+action, "tok", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, action)
	}
	f.jobs.AssertNotCalled(t, "Perform", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPerTokenRateLimit(t *testing.T) {
	f := newFixture(t, config.APIConfig{RateLimit: config.RateLimitConfig{RPS: 0.001, Burst: 1}})
	f.jobs.On("ClientJobs", mock.Anything, "").Return([]models.JobView{}, nil)

	resp := f.do(t, http.MethodGet, "/api/v1/jobs", "tok-a", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/v1/jobs", "tok-a", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/v1/jobs", "tok-b", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReport(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	month := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "worker_report_2026-10_abcd1234.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx"), 0o600))

	f.reports.On("ParseMonth", "2026-10").Return(month, nil)
	f.reports.On("ParseMonth", "bad").Return(time.Time{}, errors.New("invalid month"))
	f.reports.On("WorkerReport", withToken("tok"), month).Return(path, nil)

	resp := f.do(t, http.MethodGet, "/api/v1/worker/report?month=2026-10", "tok", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "worker_report_2026-10_abcd1234.xlsx")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(raw))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "report file is removed after download")

	resp = f.do(t, http.MethodGet, "/api/v1/worker/report?month=bad", "tok", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServices(t *testing.T) {
	f := newFixture(t, config.APIConfig{})
	resp := f.do(t, http.MethodGet, "/api/v1/services", "tok", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Services []models.CatalogEntry `json:"services"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Services, 1)
	assert.Equal(t, models.CategoryCleaning, body.Services[0].Category)
}
