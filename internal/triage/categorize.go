package triage

import "triagedesk/internal/model"

// Buckets is the three-way lifecycle partition of the inbox.
type Buckets struct {
	Review  []model.Email
	Pending []model.Email
	Sent    []model.Email
}

// Categorize partitions emails into the three lifecycle buckets, preserving
// input order within each bucket. Every input lands in exactly one bucket;
// a status the client does not recognize is treated as needing review rather
// than dropped.
func Categorize(emails []model.Email) Buckets {
	var b Buckets
	for _, e := range emails {
		switch e.Status {
		case model.StatusApprovedPendingSend:
			b.Pending = append(b.Pending, e)
		case model.StatusSent:
			b.Sent = append(b.Sent, e)
		default:
			b.Review = append(b.Review, e)
		}
	}
	return b
}

// For returns the bucket slice for the given status.
func (b Buckets) For(status model.Status) []model.Email {
	switch status {
	case model.StatusApprovedPendingSend:
		return b.Pending
	case model.StatusSent:
		return b.Sent
	default:
		return b.Review
	}
}
