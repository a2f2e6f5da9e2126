package triage

import (
	"context"

	"go.uber.org/zap"

	"triagedesk/internal/model"
)

// DraftStore is the durable persistence behind the overlay. Implementations
// back this with SQLite; tests can pass nil for a memory-only overlay.
type DraftStore interface {
	SaveDraft(ctx context.Context, id int, text string) error
	DeleteDraft(ctx context.Context, id int) error
	LoadDrafts(ctx context.Context) (map[int]string, error)
}

// Drafts is the local override layer on top of server-provided suggested
// replies. Overlays survive restarts via the store but are never sent to the
// backend except as the payload of an explicit send command.
type Drafts struct {
	overlay map[int]string
	store   DraftStore
	log     *zap.Logger
}

func NewDrafts(store DraftStore, log *zap.Logger) *Drafts {
	if log == nil {
		log = zap.NewNop()
	}
	return &Drafts{overlay: make(map[int]string), store: store, log: log}
}

// Load hydrates the overlay from the durable store.
func (d *Drafts) Load(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	m, err := d.store.LoadDrafts(ctx)
	if err != nil {
		return err
	}
	for id, text := range m {
		d.overlay[id] = text
	}
	return nil
}

// Save upserts an override for id. Idempotent.
func (d *Drafts) Save(ctx context.Context, id int, text string) error {
	d.overlay[id] = text
	if d.store == nil {
		return nil
	}
	return d.store.SaveDraft(ctx, id, text)
}

// Reset removes the override, reverting display to the suggested reply.
func (d *Drafts) Reset(ctx context.Context, id int) error {
	delete(d.overlay, id)
	if d.store == nil {
		return nil
	}
	return d.store.DeleteDraft(ctx, id)
}

// ClearOnTerminal removes the overlay for an email that reached a terminal
// state (sent or deleted). A stale overlay for a sent or nonexistent email
// must never be inspectable; persistence failures here are logged and do not
// block the transition.
func (d *Drafts) ClearOnTerminal(ctx context.Context, id int) {
	if _, ok := d.overlay[id]; !ok {
		return
	}
	delete(d.overlay, id)
	if d.store != nil {
		if err := d.store.DeleteDraft(ctx, id); err != nil {
			d.log.Warn("delete persisted draft", zap.Int("email_id", id), zap.Error(err))
		}
	}
}

// PruneAgainst enforces the overlay invariants against a fresh authoritative
// list: overlays for ids no longer present, or for emails now sent, are
// purged.
func (d *Drafts) PruneAgainst(ctx context.Context, emails []model.Email) {
	keep := make(map[int]struct{}, len(emails))
	for _, e := range emails {
		if e.Status != model.StatusSent {
			keep[e.ID] = struct{}{}
		}
	}
	for id := range d.overlay {
		if _, ok := keep[id]; !ok {
			d.ClearOnTerminal(ctx, id)
		}
	}
}

// Has reports whether an override exists for id.
func (d *Drafts) Has(id int) bool {
	_, ok := d.overlay[id]
	return ok
}

// Get returns the raw override text, if any.
func (d *Drafts) Get(id int) (string, bool) {
	text, ok := d.overlay[id]
	return text, ok
}

// ReplyFor returns the text to display or send for an email: the overlay if
// one exists, otherwise the classifier's suggested reply.
func (d *Drafts) ReplyFor(e model.Email) string {
	if text, ok := d.overlay[e.ID]; ok {
		return text
	}
	return e.SuggestedReply
}
