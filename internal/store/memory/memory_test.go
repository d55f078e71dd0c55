package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-api/internal/model"
	"booking-api/internal/store"
)

func seed(t *testing.T, s *Store) (*model.User, *model.Thread) {
	t.Helper()
	ctx := context.Background()
	u := &model.User{ID: "u1", Username: "alice", Email: "alice@example.com"}
	require.NoError(t, s.CreateUser(ctx, u))
	th := &model.Thread{ID: "t1", ClientID: u.ID, Subject: "Question", CreatedAt: time.Unix(0, 0), UpdatedAt: time.Unix(0, 0)}
	require.NoError(t, s.CreateThread(ctx, th))
	return u, th
}

func TestCreateUserConflicts(t *testing.T) {
	s := New()
	seed(t, s)
	ctx := context.Background()

	err := s.CreateUser(ctx, &model.User{ID: "u2", Username: "alice", Email: "x@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)
	err = s.CreateUser(ctx, &model.User{ID: "u3", Username: "al", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)

	u, err := s.UserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
}

func TestAppendMessageConcurrent(t *testing.T) {
	s := New()
	u, th := seed(t, s)
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := &model.Message{
				ID:        fmt.Sprintf("m%d", i),
				ThreadID:  th.ID,
				SenderID:  u.ID,
				Content:   "hi",
				Timestamp: time.Unix(int64(i+1), 0),
			}
			assert.NoError(t, s.AppendMessage(ctx, m))
			assert.Equal(t, "alice", m.SenderName)
		}(i)
	}
	wg.Wait()

	msgs, err := s.ListMessages(ctx, th.ID)
	require.NoError(t, err)
	require.Len(t, msgs, n)

	got, err := s.GetThread(ctx, th.ID)
	require.NoError(t, err)
	// updated_at is the newest timestamp, whatever order the appends landed in
	assert.True(t, got.UpdatedAt.Equal(time.Unix(n, 0)))
}

func TestAppendMessageMissingThread(t *testing.T) {
	s := New()
	u, th := seed(t, s)
	ctx := context.Background()

	err := s.AppendMessage(ctx, &model.Message{ID: "m1", ThreadID: "nope", SenderID: u.ID, Content: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.AppendMessage(ctx, &model.Message{ID: "m1", ThreadID: th.ID, SenderID: u.ID, Content: "x", Timestamp: time.Unix(5, 0)}))
	err = s.AppendMessage(ctx, &model.Message{ID: "m1", ThreadID: th.ID, SenderID: u.ID, Content: "y", Timestamp: time.Unix(9, 0)})
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(time.Unix(5, 0)))
}

func TestDeleteThreadRemovesMessages(t *testing.T) {
	s := New()
	u, th := seed(t, s)
	ctx := context.Background()
	require.NoError(t, s.AppendMessage(ctx, &model.Message{ID: "m1", ThreadID: th.ID, SenderID: u.ID, Content: "x"}))

	require.NoError(t, s.DeleteThread(ctx, th.ID))
	assert.ErrorIs(t, s.DeleteThread(ctx, th.ID), store.ErrNotFound)
	msgs, err := s.ListMessages(ctx, th.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestListAppointmentsScoped(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "a", Username: "alice", Email: "a@example.com"}))
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "c", Username: "carol", Email: "c@example.com"}))

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateAppointment(ctx, &model.Appointment{ID: "1", ClientID: "a", StartTime: base}))
	require.NoError(t, s.CreateAppointment(ctx, &model.Appointment{ID: "2", ClientID: "c", StartTime: base.Add(-time.Hour)}))

	mine, err := s.ListAppointments(ctx, "a")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "alice", mine[0].ClientName)

	all, err := s.ListAppointments(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[0].ID)
}

func TestThreadFreshnessNeverRewinds(t *testing.T) {
	s := New()
	u, th := seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.AppendMessage(ctx, &model.Message{ID: "m1", ThreadID: th.ID, SenderID: u.ID, Content: "x", Timestamp: time.Unix(100, 0)}))
	require.NoError(t, s.AppendMessage(ctx, &model.Message{ID: "m2", ThreadID: th.ID, SenderID: u.ID, Content: "y", Timestamp: time.Unix(50, 0)}))

	stale := &model.Thread{ID: th.ID, Subject: "renamed", UpdatedAt: time.Unix(70, 0)}
	require.NoError(t, s.UpdateThread(ctx, stale))
	assert.True(t, stale.UpdatedAt.Equal(time.Unix(100, 0)))

	got, err := s.GetThread(ctx, th.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Subject)
	assert.True(t, got.UpdatedAt.Equal(time.Unix(100, 0)))
}

func TestClientUpdateDoesNotWriteStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "a", Username: "alice", Email: "a@example.com"}))
	require.NoError(t, s.CreateAppointment(ctx, &model.Appointment{ID: "1", ClientID: "a", Status: model.StatusPending}))

	stale, err := s.GetAppointment(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, s.SetAppointmentStatus(ctx, "1", model.StatusPending, model.StatusConfirmed, time.Unix(1, 0)))
	assert.ErrorIs(t, s.SetAppointmentStatus(ctx, "1", model.StatusPending, model.StatusCancelled, time.Unix(2, 0)), store.ErrConflict)

	stale.Service = "Trim"
	require.NoError(t, s.UpdateAppointment(ctx, stale))
	assert.Equal(t, model.StatusConfirmed, stale.Status)

	got, err := s.GetAppointment(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, "Trim", got.Service)
}

func TestClientNameFallsBackToEmail(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "a", Email: "a@example.com"}))
	a := &model.Appointment{ID: "1", ClientID: "a"}
	require.NoError(t, s.CreateAppointment(ctx, a))
	assert.Equal(t, "a@example.com", a.ClientName)
}
