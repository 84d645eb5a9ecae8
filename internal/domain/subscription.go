package domain

import "strings"

// Subscription is a flight package owned by the backend. The session only reads it.
type Subscription struct {
	ID                  string `json:"id"`
	PackageName         string `json:"packageName"`
	TripAllowance       int    `json:"tripAllowance"`
	DateChangeAllowance int    `json:"dateChangeAllowance"`

	// MemberLimit caps attached passengers; nil means unlimited
	MemberLimit *int `json:"memberLimit,omitempty"`

	// AllowedRouteCount caps linked routes; nil means unlimited
	AllowedRouteCount *int `json:"allowedRouteCount,omitempty"`

	Expired bool `json:"expired"`

	// Members are the passengers already attached on the backend
	Members []Attachment `json:"members,omitempty"`
}

// Allowance returns the capacity for the given attachment kind (nil = unlimited).
func (s *Subscription) Allowance(kind AttachmentKind) *int {
	switch kind {
	case AttachmentPassenger:
		return s.MemberLimit
	case AttachmentRoute:
		return s.AllowedRouteCount
	default:
		return nil
	}
}

// Airport is one end of a permitted route.
type Airport struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Key identifies the airport by code, falling back to the raw name when the code is absent.
func (a Airport) Key() string {
	if code := strings.TrimSpace(a.Code); code != "" {
		return strings.ToUpper(code)
	}
	return strings.TrimSpace(a.Name)
}

// Matches reports whether the airport is identified by the given code or name.
func (a Airport) Matches(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if strings.TrimSpace(a.Code) != "" {
		return strings.EqualFold(a.Code, key)
	}
	return a.Name == key
}

// RoutePair is an origin/destination tuple a subscription may fly.
type RoutePair struct {
	ID          string  `json:"id"`
	Origin      Airport `json:"origin"`
	Destination Airport `json:"destination"`
}

// AsAttachment converts a linked route into a committed route attachment.
func (r RoutePair) AsAttachment() Attachment {
	return Attachment{
		ID:    r.ID,
		Label: r.Origin.Key() + "-" + r.Destination.Key(),
		Kind:  AttachmentRoute,
	}
}
