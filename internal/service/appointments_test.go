package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"booking-api/internal/model"
	"booking-api/internal/store/memory"
)

func validInput(start string) AppointmentInput {
	return AppointmentInput{
		StartTime: str(start),
		EndTime:   str("2026-04-01T11:00:00Z"),
		Service:   str("Haircut"),
	}
}

func TestCreateAppointmentForcesClientAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, a.ClientID)
	assert.Equal(t, "alice", a.ClientName)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, "Haircut", a.Service)

	stored, err := f.st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, stored.ClientID)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestCreateAppointmentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    AppointmentInput
		field string
	}{
		{"missing start", AppointmentInput{EndTime: str("2026-04-01T11:00:00Z"), Service: str("x")}, "start_time"},
		{"missing end", AppointmentInput{StartTime: str("2026-04-01T10:00:00Z"), Service: str("x")}, "end_time"},
		{"malformed start", AppointmentInput{StartTime: str("tomorrow"), EndTime: str("2026-04-01T11:00:00Z"), Service: str("x")}, "start_time"},
		{"end before start", AppointmentInput{StartTime: str("2026-04-01T12:00:00Z"), EndTime: str("2026-04-01T11:00:00Z"), Service: str("x")}, "end_time"},
		{"empty service", AppointmentInput{StartTime: str("2026-04-01T10:00:00Z"), EndTime: str("2026-04-01T11:00:00Z"), Service: str(" ")}, "service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.appts.Create(ctx, f.alice, tt.in)
			requireCode(t, err, codes.InvalidArgument)
			assert.Contains(t, FieldViolations(err), tt.field)
		})
	}

	list, err := f.appts.List(ctx, f.bob)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAppointmentListScoping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late, err := f.appts.Create(ctx, f.alice, AppointmentInput{
		StartTime: str("2026-04-02T10:00:00Z"), EndTime: str("2026-04-02T11:00:00Z"), Service: str("Color"),
	})
	require.NoError(t, err)
	early, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)
	carols, err := f.appts.Create(ctx, f.carol, validInput("2026-04-01T09:00:00Z"))
	require.NoError(t, err)

	mine, err := f.appts.List(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, early.ID, mine[0].ID)
	assert.Equal(t, late.ID, mine[1].ID)

	all, err := f.appts.List(ctx, f.bob)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, carols.ID, all[0].ID)
}

func TestAppointmentObjectAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)

	_, err = f.appts.Get(ctx, f.carol, a.ID)
	requireCode(t, err, codes.PermissionDenied)
	_, err = f.appts.Update(ctx, f.carol, a.ID, AppointmentInput{Service: str("Steal")}, true)
	requireCode(t, err, codes.PermissionDenied)
	requireCode(t, f.appts.Delete(ctx, f.carol, a.ID), codes.PermissionDenied)

	_, err = f.appts.Get(ctx, f.alice, "missing")
	requireCode(t, err, codes.NotFound)

	got, err := f.appts.Get(ctx, f.bob, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.appts.Get(ctx, nil, a.ID)
	requireCode(t, err, codes.Unauthenticated)
}

func TestAppointmentUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)

	t.Run("partial keeps other fields", func(t *testing.T) {
		got, err := f.appts.Update(ctx, f.alice, a.ID, AppointmentInput{Service: str("Trim")}, true)
		require.NoError(t, err)
		assert.Equal(t, "Trim", got.Service)
		assert.True(t, got.StartTime.Equal(a.StartTime))
		assert.Equal(t, model.StatusPending, got.Status)
	})

	t.Run("full requires every field", func(t *testing.T) {
		_, err := f.appts.Update(ctx, f.alice, a.ID, AppointmentInput{Service: str("Trim")}, false)
		requireCode(t, err, codes.InvalidArgument)
		v := FieldViolations(err)
		assert.Contains(t, v, "start_time")
		assert.Contains(t, v, "end_time")
	})

	t.Run("partial end before stored start", func(t *testing.T) {
		_, err := f.appts.Update(ctx, f.alice, a.ID, AppointmentInput{EndTime: str("2026-04-01T09:00:00Z")}, true)
		requireCode(t, err, codes.InvalidArgument)
		stored, err := f.st.GetAppointment(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, stored.EndTime.Equal(a.EndTime))
	})
}

func TestAppointmentDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)
	require.NoError(t, f.appts.Delete(ctx, f.alice, a.ID))
	_, err = f.appts.Get(ctx, f.alice, a.ID)
	requireCode(t, err, codes.NotFound)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)

	_, err = f.appts.SetStatus(ctx, f.alice, a.ID, "confirmed")
	requireCode(t, err, codes.PermissionDenied)

	_, err = f.appts.SetStatus(ctx, f.bob, a.ID, "done")
	requireCode(t, err, codes.InvalidArgument)

	got, err := f.appts.SetStatus(ctx, f.bob, a.ID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	_, err = f.appts.SetStatus(ctx, f.bob, a.ID, "pending")
	requireCode(t, err, codes.FailedPrecondition)

	got, err = f.appts.SetStatus(ctx, f.bob, a.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = f.appts.SetStatus(ctx, f.bob, "missing", "cancelled")
	requireCode(t, err, codes.NotFound)
}

// racingStore runs between once, right after the next GetAppointment
// returns, to interleave another writer with a read-modify-write.
type racingStore struct {
	*memory.Store
	between func()
}

func (s *racingStore) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := s.Store.GetAppointment(ctx, id)
	if fn := s.between; fn != nil {
		s.between = nil
		fn()
	}
	return a, err
}

func TestClientUpdateKeepsStaffStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)

	rs := &racingStore{Store: f.st}
	client := NewAppointments(rs)
	client.now = f.clock.now
	rs.between = func() {
		_, err := f.appts.SetStatus(ctx, f.bob, a.ID, "confirmed")
		require.NoError(t, err)
	}

	got, err := client.Update(ctx, f.alice, a.ID, AppointmentInput{Service: str("Trim")}, true)
	require.NoError(t, err)
	assert.Equal(t, "Trim", got.Service)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	stored, err := f.st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, stored.Status)
	assert.Equal(t, "Trim", stored.Service)
}

func TestSetStatusConcurrentChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.appts.Create(ctx, f.alice, validInput("2026-04-01T10:00:00Z"))
	require.NoError(t, err)

	rs := &racingStore{Store: f.st}
	staff := NewAppointments(rs)
	staff.now = f.clock.now
	rs.between = func() {
		_, err := f.appts.SetStatus(ctx, f.bob, a.ID, "cancelled")
		require.NoError(t, err)
	}

	// loaded as pending, but cancelled before the write lands
	_, err = staff.SetStatus(ctx, f.bob, a.ID, "confirmed")
	requireCode(t, err, codes.FailedPrecondition)

	stored, err := f.st.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
}
