package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"tasker/internal/database"
	"tasker/internal/domain"
	"tasker/internal/events"
	"tasker/internal/models"
	"tasker/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	backend *mockBackend
	drafts  *DraftService
	service *BookingService
	db      *database.DB
	mu      sync.Mutex
	events  []events.JobEventPayload
}

func newBookingFixture(t *testing.T, limits SubmitLimits) *bookingFixture {
	t.Helper()
	f := &bookingFixture{backend: new(mockBackend)}
	f.drafts = NewDraftService(repository.NewMemoryDraftRepository(time.Hour), testLogger())

	bus := events.NewEventBus()
	bus.Subscribe(events.EventJobCreated, func(e *events.Event) error {
		var p events.JobEventPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return err
		}
		f.mu.Lock()
		f.events = append(f.events, p)
		f.mu.Unlock()
		return nil
	})

	db := testDB(t)
	f.db = db
	f.service = NewBookingService(testCatalog(f.backend), testEngine(t), f.backend, f.drafts, db, bus, limits, testLogger())
	f.service.now = func() time.Time { return testNow }
	return f
}

func weekdaySelection() models.SelectionInput {
	return models.SelectionInput{
		ServiceID:     "svc-clean",
		ScheduledDate: "2026-10-20",
		ScheduledTime: "09:00",
		DurationHours: 2,
		Address:       "12 Nguyen Hue, District 1",
	}
}

func TestBookingService_Quote(t *testing.T) {
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)

	q, err := f.service.Quote(context.Background(), weekdaySelection())
	require.NoError(t, err)
	assert.Equal(t, 200_000.0, q.BasePrice)
	assert.Equal(t, 200_000.0, q.FinalPrice)
	assert.Equal(t, 6, q.DaysUntilService)
	assert.Empty(t, q.AppliedSurcharges)
}

func TestBookingService_QuoteSameDayWeekend(t *testing.T) {
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)
	f.service.now = func() time.Time { return time.Date(2026, 10, 17, 7, 0, 0, 0, ict) }

	in := weekdaySelection()
	in.ScheduledDate = "2026-10-17" // суббота
	q, err := f.service.Quote(context.Background(), in)
	require.NoError(t, err)
	// 200000 × 1.2 × 1.5
	assert.Equal(t, 360_000.0, q.FinalPrice)
	assert.True(t, q.HasSurcharge(models.ReasonWeekend))
	assert.True(t, q.HasSurcharge(models.ReasonSameDay))
}

func TestBookingService_QuoteACTiers(t *testing.T) {
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-ac").
		Return(&models.Service{BasePrice: models.Price(0), PricePerHour: models.Price(216_000)}, nil)
	f.backend.On("GetService", mock.Anything, "svc-ac-2hp").
		Return(&models.Service{BasePrice: models.Price(0), PricePerHour: models.Price(300_000)}, nil)

	tests := []struct {
		serviceID string
		want      float64
	}{
		{"svc-ac", 432_000},
		{"svc-ac-2hp", 600_000},
	}
	for _, tt := range tests {
		t.Run(tt.serviceID, func(t *testing.T) {
			in := models.SelectionInput{
				ServiceID:     tt.serviceID,
				ScheduledDate: "2026-10-20",
				Quantity:      2,
				Address:       "12 Nguyen Hue",
			}
			q, err := f.service.Quote(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, models.CategoryAirConditioner, q.Category)
			assert.Equal(t, tt.want, q.FinalPrice)
		})
	}
}

func TestBookingService_QuoteInvalidDate(t *testing.T) {
	f := newBookingFixture(t, SubmitLimits{})

	in := weekdaySelection()
	in.ScheduledDate = "20-10-2026"
	_, err := f.service.Quote(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)
	f.backend.AssertNotCalled(t, "GetService", mock.Anything, mock.Anything)
}

func TestBookingService_QuoteDraft(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)

	_, err := f.service.QuoteDraft(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrInvalidSelection)

	_, err = f.drafts.SaveDraft(ctx, "sess-1", models.StepTime, weekdaySelection())
	require.NoError(t, err)

	q, err := f.service.QuoteDraft(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 200_000.0, q.FinalPrice)
}

func TestBookingService_Submit(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)
	f.backend.On("CreateJob", mock.Anything, mock.MatchedBy(func(j models.NewJob) bool {
		return j.ServiceID == "svc-clean" &&
			j.Price == 200_000 &&
			j.DurationHours == 2 &&
			j.Address == "12 Nguyen Hue, District 1" &&
			j.ScheduledTime.Equal(time.Date(2026, 10, 20, 9, 0, 0, 0, ict))
	})).Return(&models.Job{ID: "job-1", ServiceID: "svc-clean", Status: models.StatusPending, Price: 200_000}, nil)

	_, err := f.drafts.SaveDraft(ctx, "sess-1", models.StepConfirm, weekdaySelection())
	require.NoError(t, err)

	sub, err := f.service.Submit(ctx, "sess-1", weekdaySelection())
	require.NoError(t, err)
	assert.Equal(t, "job-1", sub.Job.ID)
	assert.Equal(t, 200_000.0, sub.Quote.FinalPrice)
	assert.NotEmpty(t, sub.IdempotencyKey)
	f.backend.AssertExpectations(t)

	draft, err := f.drafts.GetDraft(ctx, "sess-1")
	require.NoError(t, err)
	assert.Nil(t, draft)

	require.Len(t, f.events, 1)
	assert.Equal(t, "job-1", f.events[0].JobID)
	assert.Equal(t, sub.IdempotencyKey, f.events[0].QuoteKey)
	assert.Equal(t, "client", f.events[0].Actor)
}

func TestBookingService_SubmitRecordsQuote(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)
	f.backend.On("CreateJob", mock.Anything, mock.Anything).
		Return(&models.Job{ID: "job-7", Status: models.StatusPending}, nil)

	_, err := f.service.Submit(ctx, "sess-1", weekdaySelection())
	require.NoError(t, err)

	records, err := f.db.QuotesForJob(ctx, "job-7")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 200_000.0, records[0].FinalPrice)
	assert.Equal(t, models.CategoryCleaning, records[0].Category)
}

func TestBookingService_SubmitWeeklyRepeatNote(t *testing.T) {
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)
	f.backend.On("CreateJob", mock.Anything, mock.MatchedBy(func(j models.NewJob) bool {
		return j.Notes == "Ring twice\nRepeat weekly"
	})).Return(&models.Job{ID: "job-2", Status: models.StatusPending}, nil)

	in := weekdaySelection()
	in.Notes = "Ring twice"
	in.WeeklyRepeat = true
	_, err := f.service.Submit(context.Background(), "sess-1", in)
	require.NoError(t, err)
	f.backend.AssertExpectations(t)
}

func TestBookingService_SubmitRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.SelectionInput)
		want   error
	}{
		{"missing address", func(in *models.SelectionInput) { in.Address = "  " }, domain.ErrInvalidSelection},
		{"past date", func(in *models.SelectionInput) { in.ScheduledDate = "2026-10-13" }, domain.ErrPastSchedule},
		{"earlier today", func(in *models.SelectionInput) {
			in.ScheduledDate = "2026-10-14"
			in.ScheduledTime = "09:30"
		}, domain.ErrPastSchedule},
		{"too far ahead", func(in *models.SelectionInput) { in.ScheduledDate = "2027-01-30" }, domain.ErrDateTooFar},
		{"missing hours", func(in *models.SelectionInput) { in.DurationHours = 0 }, domain.ErrInvalidSelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture(t, SubmitLimits{MaxBookingDays: 60})
			f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)

			in := weekdaySelection()
			tt.mutate(&in)
			_, err := f.service.Submit(context.Background(), "sess-1", in)
			assert.ErrorIs(t, err, tt.want)
			f.backend.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything)
		})
	}
}

func TestBookingService_SubmitRateLimited(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, SubmitLimits{RateLimit: 1, RateWindow: time.Minute})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)
	f.backend.On("CreateJob", mock.Anything, mock.Anything).
		Return(&models.Job{ID: "job-1", Status: models.StatusPending}, nil).Once()

	_, err := f.service.Submit(ctx, "sess-1", weekdaySelection())
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, "sess-1", weekdaySelection())
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	f.backend.AssertNumberOfCalls(t, "CreateJob", 1)
}

func TestBookingService_RejectedSubmitsDoNotCountTowardsLimit(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, SubmitLimits{RateLimit: 1, RateWindow: time.Minute})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)
	f.backend.On("CreateJob", mock.Anything, mock.Anything).
		Return(&models.Job{ID: "job-1", Status: models.StatusPending}, nil).Once()

	bad := weekdaySelection()
	bad.ScheduledDate = "2026-10-13"
	for i := 0; i < 3; i++ {
		_, err := f.service.Submit(ctx, "sess-1", bad)
		require.ErrorIs(t, err, domain.ErrPastSchedule)
	}

	_, err := f.service.Submit(ctx, "sess-1", weekdaySelection())
	require.NoError(t, err)
	f.backend.AssertNumberOfCalls(t, "CreateJob", 1)
}

func TestBookingService_SubmitBackendFailure(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, SubmitLimits{})
	f.backend.On("GetService", mock.Anything, "svc-clean").Return(cleaningService(), nil)
	f.backend.On("CreateJob", mock.Anything, mock.Anything).Return(nil, domain.ErrBackend)

	_, err := f.drafts.SaveDraft(ctx, "sess-1", models.StepConfirm, weekdaySelection())
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, "sess-1", weekdaySelection())
	assert.ErrorIs(t, err, domain.ErrBackend)

	draft, err := f.drafts.GetDraft(ctx, "sess-1")
	require.NoError(t, err)
	assert.NotNil(t, draft, "draft survives a failed submission")
	assert.Empty(t, f.events)
}
