package domain

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus is the lifecycle state of a stored invite.
// Accepted invites are deleted rather than stored with a third status.
type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteRejected InviteStatus = "REJECTED"
)

// Invite is a request for a non-participant to join a trip.
// TripName and HostName are denormalized for display.
type Invite struct {
	ID         uuid.UUID    `json:"id"`
	TripID     uuid.UUID    `json:"tripId"`
	TripName   string       `json:"tripName"`
	HostEmail  string       `json:"hostEmail"`
	HostName   string       `json:"hostName"`
	GuestEmail string       `json:"guestEmail"`
	Permission Permission   `json:"permission"`
	Status     InviteStatus `json:"status"`
	Version    int64        `json:"version"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// ActionableFor reports whether the invite belongs in email's projection:
// pending invites addressed to them, or rejected invites they sent.
func (i Invite) ActionableFor(email string) bool {
	email = NormalizeEmail(email)
	switch i.Status {
	case InvitePending:
		return NormalizeEmail(i.GuestEmail) == email
	case InviteRejected:
		return NormalizeEmail(i.HostEmail) == email
	}
	return false
}
