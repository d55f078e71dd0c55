package model

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  *string
	IsClient     bool
	IsStaff      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is what other users see next to records owned or sent by u.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether staff may move an appointment from s to next.
// Setting the current value again is allowed and changes nothing.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	}
	return false
}

type Appointment struct {
	ID         string
	ClientID   string
	ClientName string
	StartTime  time.Time
	EndTime    time.Time
	Service    string
	Status     AppointmentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Thread struct {
	ID         string
	ClientID   string
	ClientName string
	Subject    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Messages   []Message
}

type Message struct {
	ID         string
	ThreadID   string
	SenderID   string
	SenderName string
	Content    string
	Timestamp  time.Time
}

type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy *string
	CreatedAt  time.Time
}
