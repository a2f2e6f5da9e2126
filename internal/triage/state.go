package triage

import (
	"context"

	"triagedesk/internal/model"
)

// State is the single mutable store behind the dashboard: the last fetched
// email list plus the local-only annotations layered on it (buckets,
// selection, draft overlays, assignment cache). All mutation happens on the
// UI event loop; State itself does no locking.
type State struct {
	emails      []model.Email
	buckets     Buckets
	selection   *Selection
	drafts      *Drafts
	assignments map[int]string
	metrics     model.Metrics
	mailbox     model.MailboxStatus

	issued  uint64
	applied uint64
}

func NewState(drafts *Drafts) *State {
	if drafts == nil {
		drafts = NewDrafts(nil, nil)
	}
	return &State{
		selection:   NewSelection(),
		drafts:      drafts,
		assignments: make(map[int]string),
	}
}

func (s *State) Emails() []model.Email  { return s.emails }
func (s *State) Buckets() Buckets       { return s.buckets }
func (s *State) Selection() *Selection  { return s.selection }
func (s *State) Drafts() *Drafts        { return s.drafts }
func (s *State) Metrics() model.Metrics { return s.metrics }

func (s *State) SetMetrics(m model.Metrics) { s.metrics = m }

func (s *State) Mailbox() model.MailboxStatus       { return s.mailbox }
func (s *State) SetMailbox(st model.MailboxStatus)  { s.mailbox = st }

// BeginFetch issues a generation number for a fetch about to start. Two
// in-flight fetches may complete in either order; ApplyFetch discards any
// completion older than the last one applied.
func (s *State) BeginFetch() uint64 {
	s.issued++
	return s.issued
}

// ApplyFetch replaces the email list with a fresh authoritative snapshot
// (last-fetch-wins, no field merging) and then recomputes everything derived:
// buckets, selection pruning and draft-overlay pruning all run after the
// replacement, never before. Returns false if the snapshot is stale.
func (s *State) ApplyFetch(ctx context.Context, gen uint64, emails []model.Email) bool {
	if gen <= s.applied {
		return false
	}
	s.applied = gen

	s.emails = make([]model.Email, len(emails))
	copy(s.emails, emails)
	s.recategorize()

	live := make(map[int]struct{}, len(s.emails))
	for _, e := range s.emails {
		live[e.ID] = struct{}{}
	}
	s.selection.Prune(live)
	s.drafts.PruneAgainst(ctx, s.emails)
	for id := range s.assignments {
		if _, ok := live[id]; !ok {
			delete(s.assignments, id)
		}
	}
	return true
}

func (s *State) recategorize() {
	s.buckets = Categorize(s.emails)
}

// Get returns the cached record for id.
func (s *State) Get(id int) (model.Email, bool) {
	for _, e := range s.emails {
		if e.ID == id {
			return e, true
		}
	}
	return model.Email{}, false
}

// SetStatus reclassifies an email locally and returns the previous status so
// an optimistic command can invert on failure. Draft overlays are NOT touched
// here: a send that later fails must not have destroyed the advisor's edit,
// so terminal cleanup runs only on confirmed outcomes.
func (s *State) SetStatus(id int, status model.Status) (model.Status, bool) {
	for i := range s.emails {
		if s.emails[i].ID == id {
			prev := s.emails[i].Status
			s.emails[i].Status = status
			s.recategorize()
			return prev, true
		}
	}
	return "", false
}

// SetReply updates the server-side suggested reply locally, returning the
// previous text for rollback.
func (s *State) SetReply(id int, text string) (string, bool) {
	for i := range s.emails {
		if s.emails[i].ID == id {
			prev := s.emails[i].SuggestedReply
			s.emails[i].SuggestedReply = text
			return prev, true
		}
	}
	return "", false
}

// Remove drops an email from the local list (optimistic delete). The index
// is returned so Restore can put it back where it was on failure. Removal
// also drops the id from the selection, matching the backend-removal rule.
func (s *State) Remove(id int) (model.Email, int, bool) {
	for i, e := range s.emails {
		if e.ID == id {
			s.emails = append(s.emails[:i], s.emails[i+1:]...)
			s.selection.Remove(id)
			s.recategorize()
			return e, i, true
		}
	}
	return model.Email{}, 0, false
}

// Restore reinserts an optimistically removed email at its prior index.
func (s *State) Restore(e model.Email, idx int) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(s.emails) {
		idx = len(s.emails)
	}
	s.emails = append(s.emails[:idx], append([]model.Email{e}, s.emails[idx:]...)...)
	s.recategorize()
}

// ConfirmDelete finishes a successful delete: the draft overlay for a record
// that no longer exists must not remain inspectable.
func (s *State) ConfirmDelete(ctx context.Context, id int) {
	s.drafts.ClearOnTerminal(ctx, id)
	delete(s.assignments, id)
}

// ConfirmSent finishes a successful send: entering the sent state purges the
// overlay.
func (s *State) ConfirmSent(ctx context.Context, id int) {
	s.drafts.ClearOnTerminal(ctx, id)
}

// Assignment returns the advisor for id, falling back to the cached map when
// the record itself carries none.
func (s *State) Assignment(id int) string {
	if e, ok := s.Get(id); ok && e.AssignedTo != "" {
		return e.AssignedTo
	}
	return s.assignments[id]
}

// SetAssignment updates the local assignment cache, returning the previous
// value for rollback.
func (s *State) SetAssignment(id int, person string) string {
	prev := s.assignments[id]
	if person == "" {
		delete(s.assignments, id)
	} else {
		s.assignments[id] = person
	}
	for i := range s.emails {
		if s.emails[i].ID == id {
			s.emails[i].AssignedTo = person
		}
	}
	return prev
}

// SetAssignments replaces the assignment cache from an authoritative fetch.
func (s *State) SetAssignments(m map[int]string) {
	if m == nil {
		m = make(map[int]string)
	}
	s.assignments = m
}
