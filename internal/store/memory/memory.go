// Package memory is an in-process record store with the same contract as the
// postgres store. Every method holds one lock for its whole duration, so
// multi-row writes are atomic with respect to readers.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"booking-api/internal/model"
	"booking-api/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]*model.User
	appointments map[string]*model.Appointment
	threads      map[string]*model.Thread
	messages     map[string][]model.Message
	tokens       map[string]*model.RefreshToken
}

func New() *Store {
	return &Store{
		users:        make(map[string]*model.User),
		appointments: make(map[string]*model.Appointment),
		threads:      make(map[string]*model.Thread),
		messages:     make(map[string][]model.Message),
		tokens:       make(map[string]*model.RefreshToken),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) username(id string) string {
	if u, ok := s.users[id]; ok {
		return u.DisplayName()
	}
	return ""
}

// ----- users -----

func (s *Store) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return store.ErrConflict
	}
	for _, o := range s.users {
		if o.Username == u.Username || strings.EqualFold(o.Email, u.Email) {
			return store.ErrConflict
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) UserByUsername(_ context.Context, username string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Username == username })
}

func (s *Store) findUser(match func(*model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateProfile(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.FirstName = u.FirstName
	cur.LastName = u.LastName
	cur.PhoneNumber = u.PhoneNumber
	cur.UpdatedAt = u.UpdatedAt
	return nil
}

// ----- appointments -----

func (s *Store) CreateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[a.ID]; ok {
		return store.ErrConflict
	}
	cp := *a
	cp.ClientName = ""
	s.appointments[a.ID] = &cp
	a.ClientName = s.username(a.ClientID)
	return nil
}

func (s *Store) ListAppointments(_ context.Context, clientID string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Appointment{}
	for _, a := range s.appointments {
		if clientID != "" && a.ClientID != clientID {
			continue
		}
		cp := *a
		cp.ClientName = s.username(a.ClientID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetAppointment(_ context.Context, id string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	cp.ClientName = s.username(a.ClientID)
	return &cp, nil
}

func (s *Store) UpdateAppointment(_ context.Context, a *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.appointments[a.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.StartTime = a.StartTime
	cur.EndTime = a.EndTime
	cur.Service = a.Service
	cur.UpdatedAt = a.UpdatedAt
	a.Status = cur.Status
	return nil
}

func (s *Store) SetAppointmentStatus(_ context.Context, id string, from, to model.AppointmentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.appointments[id]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != from {
		return store.ErrConflict
	}
	cur.Status = to
	cur.UpdatedAt = at
	return nil
}

func (s *Store) DeleteAppointment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

// ----- threads and messages -----

func (s *Store) CreateThread(_ context.Context, t *model.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[t.ID]; ok {
		return store.ErrConflict
	}
	cp := *t
	cp.ClientName = ""
	cp.Messages = nil
	s.threads[t.ID] = &cp
	t.ClientName = s.username(t.ClientID)
	return nil
}

func (s *Store) ListThreads(_ context.Context, clientID string) ([]model.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Thread{}
	for _, t := range s.threads {
		if clientID != "" && t.ClientID != clientID {
			continue
		}
		cp := *t
		cp.ClientName = s.username(t.ClientID)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetThread(_ context.Context, id string) (*model.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	cp.ClientName = s.username(t.ClientID)
	return &cp, nil
}

func (s *Store) ListMessages(_ context.Context, threadID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, 0, len(s.messages[threadID]))
	for _, m := range s.messages[threadID] {
		m.SenderName = s.username(m.SenderID)
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) UpdateThread(_ context.Context, t *model.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.threads[t.ID]
	if !ok {
		return store.ErrNotFound
	}
	cur.Subject = t.Subject
	if t.UpdatedAt.After(cur.UpdatedAt) {
		cur.UpdatedAt = t.UpdatedAt
	}
	t.UpdatedAt = cur.UpdatedAt
	return nil
}

func (s *Store) DeleteThread(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.messages, id)
	delete(s.threads, id)
	return nil
}

func (s *Store) AppendMessage(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[m.ThreadID]
	if !ok {
		return store.ErrNotFound
	}
	for _, existing := range s.messages[m.ThreadID] {
		if existing.ID == m.ID {
			return store.ErrConflict
		}
	}
	m.SenderName = s.username(m.SenderID)
	s.messages[m.ThreadID] = append(s.messages[m.ThreadID], *m)
	// freshness only moves forward
	if m.Timestamp.After(t.UpdatedAt) {
		t.UpdatedAt = m.Timestamp
	}
	return nil
}

// ----- refresh tokens -----

func (s *Store) CreateRefreshToken(_ context.Context, rt *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertToken(rt)
}

func (s *Store) insertToken(rt *model.RefreshToken) error {
	for _, o := range s.tokens {
		if o.TokenHash == rt.TokenHash {
			return store.ErrConflict
		}
	}
	cp := *rt
	s.tokens[rt.ID] = &cp
	return nil
}

func (s *Store) RefreshTokenByHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rt := range s.tokens {
		if rt.TokenHash == tokenHash {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) RotateRefreshToken(_ context.Context, oldID string, next *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tokens[oldID]
	if !ok || old.Revoked {
		return store.ErrConflict
	}
	if err := s.insertToken(next); err != nil {
		return err
	}
	old.Revoked = true
	id := next.ID
	old.ReplacedBy = &id
	return nil
}

func (s *Store) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.tokens {
		if rt.UserID == userID {
			rt.Revoked = true
		}
	}
	return nil
}

func (s *Store) PurgeExpiredRefreshTokens(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rt := range s.tokens {
		if rt.ExpiresAt.Before(cutoff) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}
