package service

import (
	"context"
	"io"
	"testing"
	"time"

	"tasker/internal/database"
	"tasker/internal/models"
	"tasker/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var ict = time.FixedZone("ICT", 7*3600)

// среда, 14 октября 2026, 10:00 по Сайгону
var testNow = time.Date(2026, 10, 14, 10, 0, 0, 0, ict)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetService(ctx context.Context, id string) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}
func (m *mockBackend) CreateJob(ctx context.Context, job models.NewJob) (*models.Job, error) {
	args := m.Called(ctx, job)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}
func (m *mockBackend) ListJobs(ctx context.Context) ([]models.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Job), args.Error(1)
}
func (m *mockBackend) ListWorkerJobs(ctx context.Context, status models.JobStatus) ([]models.Job, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Job), args.Error(1)
}
func (m *mockBackend) JobHistory(ctx context.Context) ([]models.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Job), args.Error(1)
}
func (m *mockBackend) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dashboard), args.Error(1)
}
func (m *mockBackend) ReceiveJob(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}
func (m *mockBackend) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus) (*models.Job, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}
func (m *mockBackend) CancelJob(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Job), args.Error(1)
}
func (m *mockBackend) RateJob(ctx context.Context, id string, rating models.Rating) error {
	return m.Called(ctx, id, rating).Error(0)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func testCatalog(b *mockBackend) *CatalogService {
	return NewCatalogService(b, []models.CatalogEntry{
		{ID: "svc-clean", Name: "Home cleaning", Category: models.CategoryCleaning},
		{ID: "svc-ac", Name: "AC cleaning", Category: models.CategoryAirConditioner, Tier: "under_2hp"},
		{ID: "svc-ac-2hp", Name: "AC cleaning 2HP+", Category: models.CategoryAirConditioner, Tier: "from_2hp"},
		{ID: "svc-wm", Name: "Washing machine cleaning", Category: models.CategoryWashingMachine},
	}, testLogger())
}

func testEngine(t *testing.T) *pricing.Engine {
	t.Helper()
	cfg := pricing.DefaultConfig()
	cfg.Location = ict
	engine, err := pricing.NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func cleaningService() *models.Service {
	return &models.Service{
		ID:           "svc-clean",
		BasePrice:    models.Price(100_000),
		PricePerHour: models.Price(50_000),
	}
}
