// Package policy decides which records a principal may see and change.
//
// Staff may act on anything. Everyone else may act only on appointments and
// threads they own. The same rule drives list scoping (ClientFilter) and
// object checks (CanAccess).
package policy

import "booking-api/internal/model"

// CanAccess reports whether p may read or write obj.
func CanAccess(p *model.User, obj any) bool {
	if p == nil {
		return false
	}
	if p.IsStaff {
		return true
	}
	switch o := obj.(type) {
	case *model.Appointment:
		return o != nil && o.ClientID == p.ID
	case *model.Thread:
		return o != nil && o.ClientID == p.ID
	}
	return false
}

// ClientFilter returns the client id a list query must be restricted to.
// Staff get "" which means unfiltered.
func ClientFilter(p *model.User) string {
	if p.IsStaff {
		return ""
	}
	return p.ID
}
