package domain

// UserRef is a lightweight identity snapshot stamped onto tickets at creation
// time. It is copied, never a live reference, so it stays stable when the
// creator later edits their profile.
type UserRef struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// Profile holds the editable fields of a user profile, distinct from the
// identity provider's claims.
type Profile struct {
	Name     string `json:"name"`
	Bio      string `json:"bio,omitempty"`
	Company  string `json:"company,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// Stats is the per-user denormalized counter document: ticket count per
// status, scoped to tickets created by that user.
type Stats map[TicketStatus]int64

// Total sums every counter.
func (s Stats) Total() int64 {
	var total int64
	for _, count := range s {
		total += count
	}
	return total
}
