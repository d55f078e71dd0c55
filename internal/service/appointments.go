package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/metrics"
	"booking-api/internal/model"
	"booking-api/internal/policy"
	"booking-api/internal/store"
)

const maxServiceLen = 100

// AppointmentInput is the client-writable part of an appointment. Nil means
// the field was absent from the request. Client and status are never part of
// it.
type AppointmentInput struct {
	StartTime *string
	EndTime   *string
	Service   *string
}

type Appointments struct {
	store AppointmentStore
	now   func() time.Time
}

func NewAppointments(st AppointmentStore) *Appointments {
	return &Appointments{store: st, now: time.Now}
}

func (s *Appointments) List(ctx context.Context, p *model.User) ([]model.Appointment, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	out, err := s.store.ListAppointments(ctx, policy.ClientFilter(p))
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *Appointments) Create(ctx context.Context, p *model.User, in AppointmentInput) (*model.Appointment, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	a := &model.Appointment{}
	if err := in.apply(a, false); err != nil {
		return nil, err
	}
	now := s.now()
	a.ID = newID()
	a.ClientID = p.ID
	a.Status = model.StatusPending
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.store.CreateAppointment(ctx, a); err != nil {
		return nil, storeErr(err)
	}
	if a.ClientName == "" {
		a.ClientName = p.DisplayName()
	}
	metrics.AppointmentsCreated.Inc()
	return a, nil
}

func (s *Appointments) Get(ctx context.Context, p *model.User, id string) (*model.Appointment, error) {
	return s.load(ctx, p, id)
}

// Update changes times and service. With partial set, absent fields keep
// their current value; otherwise all of them are required. Status is left
// to SetStatus and comes back as currently stored.
func (s *Appointments) Update(ctx context.Context, p *model.User, id string, in AppointmentInput, partial bool) (*model.Appointment, error) {
	a, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(a, partial); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.now()
	if err := s.store.UpdateAppointment(ctx, a); err != nil {
		return nil, storeErr(err)
	}
	return a, nil
}

func (s *Appointments) Delete(ctx context.Context, p *model.User, id string) error {
	if _, err := s.load(ctx, p, id); err != nil {
		return err
	}
	if err := s.store.DeleteAppointment(ctx, id); err != nil {
		return storeErr(err)
	}
	return nil
}

// SetStatus is the staff-only path for moving an appointment through
// pending -> confirmed -> cancelled.
func (s *Appointments) SetStatus(ctx context.Context, p *model.User, id, value string) (*model.Appointment, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !p.IsStaff {
		return nil, errDenied
	}
	next := model.AppointmentStatus(value)
	if value == "" {
		return nil, invalid("status", msgRequired)
	}
	if !next.Valid() {
		return nil, invalid("status", fmt.Sprintf("%q is not a valid choice.", value))
	}

	a, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !a.Status.CanTransition(next) {
		return nil, status.Errorf(codes.FailedPrecondition,
			"cannot change status from %s to %s", a.Status, next)
	}
	if a.Status == next {
		return a, nil
	}
	now := s.now()
	if err := s.store.SetAppointmentStatus(ctx, a.ID, a.Status, next, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, status.Error(codes.FailedPrecondition,
				"appointment status changed concurrently, retry")
		}
		return nil, storeErr(err)
	}
	a.Status = next
	a.UpdatedAt = now
	return a, nil
}

func (s *Appointments) load(ctx context.Context, p *model.User, id string) (*model.Appointment, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	a, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if !policy.CanAccess(p, a) {
		return nil, errDenied
	}
	return a, nil
}

// apply validates in and writes it onto a. Nothing is written unless every
// field is valid.
func (in AppointmentInput) apply(a *model.Appointment, partial bool) error {
	var fe fieldErrors
	start, end, svc := a.StartTime, a.EndTime, a.Service

	if in.StartTime != nil || !partial {
		t, msg := parseTime(in.StartTime)
		if msg != "" {
			fe.add("start_time", msg)
		}
		start = t
	}
	if in.EndTime != nil || !partial {
		t, msg := parseTime(in.EndTime)
		if msg != "" {
			fe.add("end_time", msg)
		}
		end = t
	}
	if in.Service != nil || !partial {
		switch {
		case in.Service == nil || strings.TrimSpace(*in.Service) == "":
			fe.add("service", msgRequired)
		case utf8.RuneCountInString(*in.Service) > maxServiceLen:
			fe.add("service", fmt.Sprintf("Ensure this field has no more than %d characters.", maxServiceLen))
		default:
			svc = *in.Service
		}
	}
	if _, bad := fe.msgs["start_time"]; !bad {
		if _, bad := fe.msgs["end_time"]; !bad && !end.After(start) {
			fe.add("end_time", "End time must be after start time.")
		}
	}
	if err := fe.err(); err != nil {
		return err
	}

	a.StartTime, a.EndTime, a.Service = start.UTC(), end.UTC(), svc
	return nil
}

func parseTime(raw *string) (time.Time, string) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return time.Time{}, msgRequired
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*raw))
	if err != nil {
		return time.Time{}, "Datetime has wrong format. Use RFC 3339."
	}
	return t, ""
}
