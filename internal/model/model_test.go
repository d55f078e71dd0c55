package model

import "testing"

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AppointmentStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.ok {
				t.Errorf("CanTransition = %v, want %v", got, tt.ok)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusPending, StatusConfirmed, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if AppointmentStatus("done").Valid() {
		t.Error("unknown status accepted")
	}
}

func TestDisplayName(t *testing.T) {
	u := &User{Username: "alice", Email: "alice@example.com"}
	if u.DisplayName() != "alice" {
		t.Errorf("got %q", u.DisplayName())
	}
	u.Username = ""
	if u.DisplayName() != "alice@example.com" {
		t.Errorf("got %q", u.DisplayName())
	}
}
