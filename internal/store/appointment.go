package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"booking-api/internal/model"
)

const apptSelect = `SELECT a.id, a.client_id, u.username, a.start_time, a.end_time,
	       a.service, a.status, a.created_at, a.updated_at
	FROM appointments a JOIN users u ON u.id = a.client_id`

func scanAppointment(row pgx.Row, a *model.Appointment) error {
	var st string
	if err := row.Scan(&a.ID, &a.ClientID, &a.ClientName, &a.StartTime, &a.EndTime,
		&a.Service, &st, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return err
	}
	a.Status = model.AppointmentStatus(st)
	return nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO appointments (id, client_id, start_time, end_time, service, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.ClientID, a.StartTime, a.EndTime, a.Service, string(a.Status), a.CreatedAt, a.UpdatedAt,
	)
	return wrap(err)
}

// ListAppointments returns appointments by start time. An empty clientID
// lists every client's appointments.
func (s *Store) ListAppointments(ctx context.Context, clientID string) ([]model.Appointment, error) {
	q := apptSelect
	var args []any
	if clientID != "" {
		q += ` WHERE a.client_id = $1`
		args = append(args, clientID)
	}
	q += ` ORDER BY a.start_time, a.id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		var a model.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a := &model.Appointment{}
	if err := scanAppointment(s.pool.QueryRow(ctx, apptSelect+` WHERE a.id = $1`, id), a); err != nil {
		return nil, wrap(err)
	}
	return a, nil
}

// UpdateAppointment persists times and service and reads back the current
// status into a. Status is never written here; see SetAppointmentStatus.
func (s *Store) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	var st string
	err := s.pool.QueryRow(ctx,
		`UPDATE appointments
		 SET start_time=$1, end_time=$2, service=$3, updated_at=$4
		 WHERE id=$5
		 RETURNING status`,
		a.StartTime, a.EndTime, a.Service, a.UpdatedAt, a.ID,
	).Scan(&st)
	if err != nil {
		return wrap(err)
	}
	a.Status = model.AppointmentStatus(st)
	return nil
}

// SetAppointmentStatus moves id from one status to another. It returns
// ErrConflict when the stored status is no longer from.
func (s *Store) SetAppointmentStatus(ctx context.Context, id string, from, to model.AppointmentStatus, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE appointments SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		string(to), at, id, string(from),
	)
	if err != nil {
		return wrap(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetAppointment(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
