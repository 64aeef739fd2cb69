package domain

// Projection is the derived per-user view of the record set: the trips the
// user participates in and the invites they can act on.
type Projection struct {
	User    User     `json:"user"`
	Trips   []Trip   `json:"trips"`
	Invites []Invite `json:"invites"`
}

// ProjectTrips returns every trip whose participant set contains email,
// with absent preference blocks defaulted. Always returns a non-nil slice.
func ProjectTrips(email string, trips []Trip) []Trip {
	out := []Trip{}
	for _, t := range trips {
		if t.HasParticipant(email) {
			out = append(out, t.WithDefaults())
		}
	}
	return out
}

// ProjectInvites returns the invites email can act on: pending invites
// addressed to them and rejected invites they sent. Always non-nil.
func ProjectInvites(email string, invites []Invite) []Invite {
	out := []Invite{}
	for _, i := range invites {
		if i.ActionableFor(email) {
			out = append(out, i)
		}
	}
	return out
}
