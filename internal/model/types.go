package model

// Status is the lifecycle state of an email as reported by the advising
// backend. The only forward transitions are needs_review -> approved_pending_send
// -> sent and the direct needs_review -> sent edge; nothing moves backward.
type Status string

const (
	StatusNeedsReview         Status = "needs_review"
	StatusApprovedPendingSend Status = "approved_pending_send"
	StatusSent                Status = "sent"
)

// Email is a single classified student email as returned by the backend.
// The record is owned by the backend; the dashboard caches it read-only and
// mutates it only through explicit PATCH/POST/DELETE commands.
type Email struct {
	ID             int     `json:"id"`
	StudentName    string  `json:"student_name,omitempty"`
	StudentID      string  `json:"student_id,omitempty"`
	Subject        string  `json:"subject"`
	Body           string  `json:"body"`
	Confidence     float64 `json:"confidence"`
	Status         Status  `json:"status"`
	SuggestedReply string  `json:"suggested_reply"`
	ReceivedAt     string  `json:"received_at"`
	ApprovedAt     string  `json:"approved_at,omitempty"`
	AssignedTo     string  `json:"assigned_to,omitempty"`
}

// Metrics holds the aggregate counts from GET /metrics.
type Metrics struct {
	EmailsTotal   int     `json:"emails_total"`
	EmailsToday   int     `json:"emails_today"`
	AutoCount     int     `json:"auto_count"`
	ReviewCount   int     `json:"review_count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// MailboxStatus reports whether the backend's external mail connection is
// active. Polling and bulk sends are gated on Connected.
type MailboxStatus struct {
	Connected    bool   `json:"connected"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
}

// FetchResult is the outcome of triggering an inbound sync on the backend.
type FetchResult struct {
	Ingested     int    `json:"ingested"`
	AutoSent     int    `json:"auto_sent"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
}
