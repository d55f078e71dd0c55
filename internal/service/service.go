// Package service holds the business rules of the booking API: who may see
// and change appointments and threads, and how messages are posted.
//
// Every operation returns a gRPC status error so transports can map the
// failure kind without inspecting messages.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/model"
)

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	ListAppointments(ctx context.Context, clientID string) ([]model.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	SetAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus, at time.Time) error
	DeleteAppointment(ctx context.Context, id string) error
}

type ThreadStore interface {
	CreateThread(ctx context.Context, t *model.Thread) error
	ListThreads(ctx context.Context, clientID string) ([]model.Thread, error)
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	ListMessages(ctx context.Context, threadID string) ([]model.Message, error)
	UpdateThread(ctx context.Context, t *model.Thread) error
	DeleteThread(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, m *model.Message) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	UserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
}

type TokenStore interface {
	CreateRefreshToken(ctx context.Context, rt *model.RefreshToken) error
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldID string, next *model.RefreshToken) error
	RevokeAllRefreshTokens(ctx context.Context, userID string) error
	PurgeExpiredRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is everything the services persist through. Both the postgres and
// the in-memory stores satisfy it.
type Store interface {
	AppointmentStore
	ThreadStore
	UserStore
	TokenStore
	Ping(ctx context.Context) error
}

func newID() string { return uuid.New().String() }

var errNoPrincipal = status.Error(codes.Unauthenticated, "Authentication credentials were not provided.")

func requirePrincipal(p *model.User) error {
	if p == nil || p.ID == "" {
		return errNoPrincipal
	}
	return nil
}
