package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/model"
	"booking-api/internal/store/memory"
)

// tickClock advances one second on every call so ordering by timestamp is
// deterministic.
type tickClock struct{ t time.Time }

func (c *tickClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	st    *memory.Store
	clock *tickClock
	appts *Appointments
	msgs  *Messaging

	alice, carol, bob *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	clock := &tickClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}

	f := &fixture{st: st, clock: clock}
	f.alice = seedUser(t, st, "alice", false)
	f.carol = seedUser(t, st, "carol", false)
	f.bob = seedUser(t, st, "bob", true)

	f.appts = NewAppointments(st)
	f.appts.now = clock.now
	f.msgs = NewMessaging(st)
	f.msgs.now = clock.now
	return f
}

func seedUser(t *testing.T, st *memory.Store, name string, staff bool) *model.User {
	t.Helper()
	u := &model.User{
		ID:       newID(),
		Username: name,
		Email:    name + "@example.com",
		IsClient: !staff,
		IsStaff:  staff,
	}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func str(s string) *string { return &s }

func requireCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, status.Code(err), "error: %v", err)
}
