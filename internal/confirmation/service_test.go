package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/clinicops/internal/clock"
	"github.com/wolfman30/clinicops/internal/observability/metrics"
)

var serviceNow = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func TestServiceSchedulePersistsAndPublishes(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	reg := prometheus.NewRegistry()
	svc := NewService(repo, pub, clock.Fixed(serviceNow), metrics.NewSchedulingMetrics(reg), nil)

	entries, err := svc.Schedule(context.Background(), Input{
		ClinicID: "c1", AppointmentID: "a1", StartsAt: serviceNow.Add(72 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Len(t, repo.inserted, 3)
	assert.Len(t, pub.published, 3)

	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range families {
		if mf.GetName() != "clinicops_confirmation_scheduled_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(3), total)
}

func TestServiceScheduleTooCloseStoresNothing(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewService(repo, pub, clock.Fixed(serviceNow), nil, nil)

	entries, err := svc.Schedule(context.Background(), Input{
		ClinicID: "c1", AppointmentID: "a1", StartsAt: serviceNow.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, repo.inserted)
	assert.Empty(t, pub.published)
}

func TestServiceScheduleInsertError(t *testing.T) {
	svc := NewService(&fakeRepo{insertErr: errBoom}, nil, clock.Fixed(serviceNow), nil, nil)
	_, err := svc.Schedule(context.Background(), Input{ClinicID: "c1", AppointmentID: "a1", StartsAt: serviceNow.Add(72 * time.Hour)})
	assert.ErrorIs(t, err, errBoom)
}

func TestServiceSchedulePublishErrorIsNotFatal(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &fakePublisher{err: errBoom}, clock.Fixed(serviceNow), nil, nil)
	entries, err := svc.Schedule(context.Background(), Input{ClinicID: "c1", AppointmentID: "a1", StartsAt: serviceNow.Add(30 * time.Hour)})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, repo.inserted, 2)
}

func TestServiceReschedule(t *testing.T) {
	repo := &fakeRepo{cancelled: 3}
	svc := NewService(repo, nil, clock.Fixed(serviceNow), nil, nil)
	entries, err := svc.Reschedule(context.Background(), Input{ClinicID: "c1", AppointmentID: "a1", StartsAt: serviceNow.Add(3 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Stage2h, entries[0].Stage)
	assert.Len(t, repo.rearmed, 1)
	assert.Empty(t, repo.inserted)
}

func TestServiceScheduleRepeatReportsOnlyNewEntries(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewService(repo, pub, clock.Fixed(serviceNow), nil, nil)
	in := Input{ClinicID: "c1", AppointmentID: "a1", StartsAt: serviceNow.Add(72 * time.Hour)}

	_, err := svc.Schedule(context.Background(), in)
	require.NoError(t, err)
	again, err := svc.Schedule(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, again)
	assert.Len(t, repo.inserted, 3)
	assert.Len(t, pub.published, 3)
}

func TestServiceRescheduleRearmsQueuedStages(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewService(repo, pub, clock.Fixed(serviceNow), nil, nil)

	_, err := svc.Schedule(context.Background(), Input{ClinicID: "c1", AppointmentID: "a1", StartsAt: serviceNow.Add(72 * time.Hour)})
	require.NoError(t, err)

	later := serviceNow.Add(96 * time.Hour)
	entries, err := svc.Reschedule(context.Background(), Input{ClinicID: "c1", AppointmentID: "a1", StartsAt: later})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].ScheduledAt.Equal(later.Add(-48*time.Hour)))
	assert.Len(t, pub.published, 6)
}

func TestServiceList(t *testing.T) {
	repo := &fakeRepo{history: []Delivery{
		{Entry: Entry{AppointmentID: "a1", Stage: Stage48h, Status: StatusSent}},
		{Entry: Entry{AppointmentID: "a2", Stage: Stage48h}},
	}}
	svc := NewService(repo, nil, clock.Fixed(serviceNow), nil, nil)

	got, err := svc.List(context.Background(), "c1", "a1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusSent, got[0].Status)

	none, err := svc.List(context.Background(), "c1", "a3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
