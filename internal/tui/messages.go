package tui

import (
	"time"

	"triagedesk/internal/model"
	"triagedesk/internal/triage"
)

// Async message types for Bubble Tea commands.

// refreshDoneMsg carries one reconciliation round. gen orders racing
// fetches; err means the whole round failed and prior state is kept.
type refreshDoneMsg struct {
	gen         uint64
	emails      []model.Email
	metrics     model.Metrics
	assignments map[int]string
	ingested    int
	err         error
}

type mailboxMsg struct {
	status model.MailboxStatus
	err    error
}

// actionDoneMsg completes a single optimistic command. invert and confirm
// run on the Update loop: invert on failure, confirm on success.
type actionDoneMsg struct {
	action  string
	err     error
	invert  func()
	confirm func()
}

type bulkDoneMsg struct {
	res triage.BulkResult
}

type pollTickMsg time.Time

type statusMsg string
