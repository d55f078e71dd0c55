package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/metrics"
	"booking-api/internal/model"
	"booking-api/internal/policy"
)

const maxSubjectLen = 255

var errSendDenied = status.Error(codes.PermissionDenied,
	"You do not have permission to send a message to this thread.")

type Messaging struct {
	store ThreadStore
	now   func() time.Time
}

func NewMessaging(st ThreadStore) *Messaging {
	return &Messaging{store: st, now: time.Now}
}

// ListThreads returns the threads p may see, most recently active first.
func (s *Messaging) ListThreads(ctx context.Context, p *model.User) ([]model.Thread, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	out, err := s.store.ListThreads(ctx, policy.ClientFilter(p))
	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *Messaging) CreateThread(ctx context.Context, p *model.User, subject *string) (*model.Thread, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	subj, err := validSubject(subject)
	if err != nil {
		return nil, err
	}
	now := s.now()
	t := &model.Thread{
		ID:        newID(),
		ClientID:  p.ID,
		Subject:   subj,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []model.Message{},
	}
	if err := s.store.CreateThread(ctx, t); err != nil {
		return nil, storeErr(err)
	}
	if t.ClientName == "" {
		t.ClientName = p.DisplayName()
	}
	return t, nil
}

// GetThread returns the thread with its messages in the order they were sent.
func (s *Messaging) GetThread(ctx context.Context, p *model.User, id string) (*model.Thread, error) {
	t, err := s.load(ctx, p, id, errDenied)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, t.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	t.Messages = msgs
	return t, nil
}

// UpdateThread changes the subject. A partial update without a subject
// still counts as a write and refreshes updated_at.
func (s *Messaging) UpdateThread(ctx context.Context, p *model.User, id string, subject *string, partial bool) (*model.Thread, error) {
	t, err := s.load(ctx, p, id, errDenied)
	if err != nil {
		return nil, err
	}
	if subject != nil || !partial {
		subj, err := validSubject(subject)
		if err != nil {
			return nil, err
		}
		t.Subject = subj
	}
	t.UpdatedAt = s.now()
	if err := s.store.UpdateThread(ctx, t); err != nil {
		return nil, storeErr(err)
	}
	msgs, err := s.store.ListMessages(ctx, t.ID)
	if err != nil {
		return nil, storeErr(err)
	}
	t.Messages = msgs
	return t, nil
}

func (s *Messaging) DeleteThread(ctx context.Context, p *model.User, id string) error {
	if _, err := s.load(ctx, p, id, errDenied); err != nil {
		return err
	}
	if err := s.store.DeleteThread(ctx, id); err != nil {
		return storeErr(err)
	}
	return nil
}

// SendMessage appends a message from p to the thread. The thread must
// exist and be accessible before content is looked at. The message insert
// and the thread's updated_at bump are one store write.
func (s *Messaging) SendMessage(ctx context.Context, p *model.User, threadID, content string) (*model.Message, error) {
	t, err := s.load(ctx, p, threadID, errSendDenied)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, invalid("content", msgRequired)
	}

	m := &model.Message{
		ID:        newID(),
		ThreadID:  t.ID,
		SenderID:  p.ID,
		Content:   content,
		Timestamp: s.now(),
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return nil, storeErr(err)
	}
	if m.SenderName == "" {
		m.SenderName = p.DisplayName()
	}
	metrics.MessagesSent.Inc()
	return m, nil
}

func (s *Messaging) load(ctx context.Context, p *model.User, id string, denied error) (*model.Thread, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	t, err := s.store.GetThread(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	if !policy.CanAccess(p, t) {
		return nil, denied
	}
	return t, nil
}

func validSubject(subject *string) (string, error) {
	if subject == nil || strings.TrimSpace(*subject) == "" {
		return "", invalid("subject", msgRequired)
	}
	if utf8.RuneCountInString(*subject) > maxSubjectLen {
		return "", invalid("subject", fmt.Sprintf("Ensure this field has no more than %d characters.", maxSubjectLen))
	}
	return *subject, nil
}
