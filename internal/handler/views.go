package handler

import (
	"time"

	"booking-api/internal/model"
	"booking-api/internal/service"
)

type appointmentView struct {
	ID                string    `json:"id"`
	Client            string    `json:"client"`
	ClientDisplayName string    `json:"client_display_name"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Service           string    `json:"service"`
	Status            string    `json:"status"`
}

func toAppointment(a *model.Appointment) appointmentView {
	return appointmentView{
		ID:                a.ID,
		Client:            a.ClientID,
		ClientDisplayName: a.ClientName,
		StartTime:         a.StartTime,
		EndTime:           a.EndTime,
		Service:           a.Service,
		Status:            string(a.Status),
	}
}

type messageView struct {
	ID                string    `json:"id"`
	Sender            string    `json:"sender"`
	SenderDisplayName string    `json:"sender_display_name"`
	Content           string    `json:"content"`
	Timestamp         time.Time `json:"timestamp"`
}

func toMessage(m *model.Message) messageView {
	return messageView{
		ID:                m.ID,
		Sender:            m.SenderID,
		SenderDisplayName: m.SenderName,
		Content:           m.Content,
		Timestamp:         m.Timestamp,
	}
}

// threadView carries messages only on detail responses; list entries leave
// the pointer nil so the key is omitted.
type threadView struct {
	ID                string         `json:"id"`
	Client            string         `json:"client"`
	ClientDisplayName string         `json:"client_display_name"`
	Subject           string         `json:"subject"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Messages          *[]messageView `json:"messages,omitempty"`
}

func toThread(t *model.Thread, withMessages bool) threadView {
	v := threadView{
		ID:                t.ID,
		Client:            t.ClientID,
		ClientDisplayName: t.ClientName,
		Subject:           t.Subject,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
	if withMessages {
		msgs := make([]messageView, len(t.Messages))
		for i := range t.Messages {
			msgs[i] = toMessage(&t.Messages[i])
		}
		v.Messages = &msgs
	}
	return v
}

type userView struct {
	PK          string  `json:"pk"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	IsClient    bool    `json:"is_client"`
	IsStaff     bool    `json:"is_staff"`
}

func toUser(u *model.User) userView {
	return userView{
		PK:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		IsClient:    u.IsClient,
		IsStaff:     u.IsStaff,
	}
}

type tokensView struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *userView `json:"user,omitempty"`
}

func toTokens(p *service.TokenPair, u *model.User) tokensView {
	v := tokensView{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(p.ExpiresIn.Seconds()),
	}
	if u != nil {
		uv := toUser(u)
		v.User = &uv
	}
	return v
}
