package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"triagedesk/internal/api"
	"triagedesk/internal/config"
	"triagedesk/internal/model"
	"triagedesk/internal/triage"
)

type viewState int

const (
	viewLoading viewState = iota
	viewDashboard
	viewDetail
	viewConfirmDelete
	viewAssign
)

// LocalStore is the durable local state the dashboard keeps outside the
// backend: the assignment fallback cache and the confidence threshold.
type LocalStore interface {
	SaveAssignments(ctx context.Context, m map[int]string) error
	LoadAssignments(ctx context.Context) (map[int]string, error)
	SetThreshold(ctx context.Context, v float64) error
}

type AppModel struct {
	// Core state
	client *api.Client
	state  *triage.State
	local  LocalStore
	cfg    *config.Config
	log    *zap.Logger
	Err    error
	status string

	// View state machine
	view   viewState
	bucket model.Status
	window triage.Window

	searchInput textinput.Model
	searching   bool

	emailList list.Model
	visible   []model.Email

	// Detail view
	detail         *model.Email
	detailViewport viewport.Model
	draftArea      textarea.Model
	editing        bool

	assignInput textinput.Model

	// Ids awaiting the delete confirmation gate.
	confirmIDs []int

	threshold float64

	// Layout
	width, height int
}

func NewAppModel(client *api.Client, state *triage.State, local LocalStore, cfg *config.Config, threshold float64, log *zap.Logger) AppModel {
	if log == nil {
		log = zap.NewNop()
	}

	si := textinput.New()
	si.Placeholder = "search name, id or subject"
	si.Prompt = "/"

	ai := textinput.New()
	ai.Placeholder = "advisor name"

	el := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	el.SetFilteringEnabled(false) // search is handled by the triage filter
	el.SetShowTitle(false)
	el.SetShowStatusBar(false)
	el.KeyMap.Quit.SetKeys("ctrl+c")

	ta := textarea.New()
	ta.Placeholder = "Reply text"

	return AppModel{
		client:      client,
		state:       state,
		local:       local,
		cfg:         cfg,
		log:         log,
		status:      "Loading...",
		view:        viewLoading,
		bucket:      model.StatusNeedsReview,
		window:      triage.WindowAll,
		searchInput: si,
		assignInput: ai,
		emailList:   el,
		draftArea:   ta,
		detailViewport: viewport.New(0, 0),
		threshold:   threshold,
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.mailboxCmd(), m.syncCmd(false), m.pollTick())
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.emailList.SetSize(msg.Width, msg.Height-7) // room for header, filter line, footer
		m.detailViewport.Width = msg.Width
		m.detailViewport.Height = msg.Height - 8
		m.draftArea.SetWidth(msg.Width - 2)
		m.draftArea.SetHeight(8)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pollTickMsg:
		cmds := []tea.Cmd{m.mailboxCmd(), m.pollTick()}
		if m.state.Mailbox().Connected {
			cmds = append(cmds, m.syncCmd(true))
		}
		return m, tea.Batch(cmds...)

	case mailboxMsg:
		if msg.err != nil {
			m.log.Warn("mailbox status poll failed", zap.Error(msg.err))
			return m, nil
		}
		m.state.SetMailbox(msg.status)
		return m, nil

	case refreshDoneMsg:
		return m.handleRefresh(msg)

	case actionDoneMsg:
		if msg.err != nil {
			if msg.invert != nil {
				msg.invert()
			}
			m.log.Warn("action failed", zap.String("action", msg.action), zap.Error(msg.err))
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			if msg.confirm != nil {
				msg.confirm()
			}
			m.status = fmt.Sprintf("%s complete", msg.action)
		}
		m.refreshDetail()
		m.rebuildList()
		return m, clearStatusAfter(3 * time.Second)

	case bulkDoneMsg:
		return m.handleBulkDone(msg.res)

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewDashboard:
		if m.searching {
			m.searchInput, cmd = m.searchInput.Update(msg)
		} else {
			m.emailList, cmd = m.emailList.Update(msg)
		}
	case viewDetail:
		if m.editing {
			m.draftArea, cmd = m.draftArea.Update(msg)
		} else {
			m.detailViewport, cmd = m.detailViewport.Update(msg)
		}
	case viewAssign:
		m.assignInput, cmd = m.assignInput.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleRefresh(msg refreshDoneMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	if msg.err != nil {
		// Prior state is retained unchanged: a failed poll never clears
		// the view.
		m.log.Warn("sync failed", zap.Error(msg.err))
		m.status = fmt.Sprintf("Sync failed: %v", msg.err)
		if m.view == viewLoading {
			m.view = viewDashboard
		}
		return m, clearStatusAfter(5 * time.Second)
	}

	if !m.state.ApplyFetch(ctx, msg.gen, msg.emails) {
		// A newer fetch already landed; drop this one.
		return m, nil
	}
	m.state.SetMetrics(msg.metrics)
	if msg.assignments != nil {
		m.state.SetAssignments(msg.assignments)
		if m.local != nil {
			if err := m.local.SaveAssignments(ctx, msg.assignments); err != nil {
				m.log.Warn("cache assignments", zap.Error(err))
			}
		}
	}

	if m.view == viewLoading {
		m.view = viewDashboard
	}
	m.refreshDetail()
	m.rebuildList()

	if msg.ingested > 0 {
		m.status = fmt.Sprintf("%d new email(s) ingested", msg.ingested)
		return m, clearStatusAfter(3 * time.Second)
	}
	return m, nil
}

func (m *AppModel) handleBulkDone(res triage.BulkResult) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	for _, id := range res.Succeeded {
		switch res.Action {
		case "Delete":
			m.state.Remove(id)
			m.state.ConfirmDelete(ctx, id)
		case "Send":
			m.state.SetStatus(id, model.StatusSent)
			m.state.ConfirmSent(ctx, id)
		}
		m.state.Selection().Remove(id)
		if m.detail != nil && m.detail.ID == id && res.Action == "Delete" {
			m.detail = nil
			m.view = viewDashboard
		}
	}
	m.refreshDetail()
	m.rebuildList()

	if res.Ok() {
		m.status = fmt.Sprintf("%s complete (%d)", res.Action, len(res.Succeeded))
	} else {
		m.log.Warn("bulk action partially failed",
			zap.String("action", res.Action),
			zap.Int("succeeded", len(res.Succeeded)),
			zap.Int("failed", len(res.Failed)))
		m.status = fmt.Sprintf("%s: %d ok, %d failed", res.Action, len(res.Succeeded), len(res.Failed))
	}
	return m, clearStatusAfter(5 * time.Second)
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewDashboard:
		return m.handleDashboardKey(msg)
	case viewDetail:
		return m.handleDetailKey(msg)
	case viewConfirmDelete:
		switch key {
		case "y":
			ids := m.confirmIDs
			m.confirmIDs = nil
			m.view = viewDashboard
			m.status = "Deleting..."
			return m, m.bulkDeleteCmd(ids)
		case "n", "esc":
			m.confirmIDs = nil
			m.view = viewDashboard
			return m, nil
		}
		return m, nil
	case viewAssign:
		switch key {
		case "enter":
			person := m.assignInput.Value()
			m.assignInput.Reset()
			m.view = viewDetail
			if m.detail == nil || person == "" {
				return m, nil
			}
			return m, m.assignCmd(m.detail.ID, person)
		case "esc":
			m.assignInput.Reset()
			m.view = viewDetail
			return m, nil
		}
		var cmd tea.Cmd
		m.assignInput, cmd = m.assignInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *AppModel) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.searching {
		switch key {
		case "enter":
			m.searching = false
			m.searchInput.Blur()
			return m, nil
		case "esc":
			m.searching = false
			m.searchInput.Reset()
			m.searchInput.Blur()
			m.rebuildList()
			return m, nil
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		m.rebuildList()
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "1":
		m.switchBucket(model.StatusNeedsReview)
		return m, nil
	case "2":
		m.switchBucket(model.StatusApprovedPendingSend)
		return m, nil
	case "3":
		m.switchBucket(model.StatusSent)
		return m, nil
	case "tab":
		m.switchBucket(nextBucket(m.bucket))
		return m, nil
	case "/":
		m.searching = true
		m.searchInput.Focus()
		return m, textinput.Blink
	case "f":
		m.window = nextWindow(m.window)
		m.rebuildList()
		return m, nil
	case " ":
		if e, ok := m.currentEmail(); ok {
			m.state.Selection().Toggle(e.ID)
			m.rebuildList()
		}
		return m, nil
	case "a":
		ids := make([]int, len(m.visible))
		for i, e := range m.visible {
			ids[i] = e.ID
		}
		m.state.Selection().SelectAll(ids)
		m.rebuildList()
		return m, nil
	case "A":
		m.state.Selection().Clear()
		m.rebuildList()
		return m, nil
	case "enter":
		if e, ok := m.currentEmail(); ok {
			m.openDetail(e)
		}
		return m, nil
	case "v":
		if e, ok := m.currentEmail(); ok {
			return m, m.approveCmd(e.ID)
		}
		return m, nil
	case "y":
		return m, m.sendSelectedOrCurrent()
	case "d":
		return m.requestDelete(m.deleteTargets())
	case "s":
		m.status = "Syncing..."
		return m, m.syncCmd(true)
	case "+", "=":
		return m, m.adjustThreshold(0.05)
	case "-":
		return m, m.adjustThreshold(-0.05)
	}

	var cmd tea.Cmd
	m.emailList, cmd = m.emailList.Update(msg)
	return m, cmd
}

func (m *AppModel) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.editing {
		switch key {
		case "ctrl+s":
			m.editing = false
			m.draftArea.Blur()
			if m.detail != nil {
				if err := m.state.Drafts().Save(context.Background(), m.detail.ID, m.draftArea.Value()); err != nil {
					m.log.Warn("persist draft", zap.Int("email_id", m.detail.ID), zap.Error(err))
					m.status = "Draft saved in memory only (store error)"
				} else {
					m.status = "Draft saved"
				}
			}
			m.refreshDetail()
			m.rebuildList()
			return m, clearStatusAfter(2 * time.Second)
		case "esc":
			m.editing = false
			m.draftArea.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.draftArea, cmd = m.draftArea.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "esc":
		m.view = viewDashboard
		m.detail = nil
		return m, nil
	case "e":
		if m.detail != nil {
			m.editing = true
			m.draftArea.SetValue(m.state.Drafts().ReplyFor(*m.detail))
			m.draftArea.Focus()
			return m, textarea.Blink
		}
		return m, nil
	case "r":
		if m.detail != nil {
			if err := m.state.Drafts().Reset(context.Background(), m.detail.ID); err != nil {
				m.log.Warn("reset draft", zap.Int("email_id", m.detail.ID), zap.Error(err))
			}
			m.status = "Draft reset to suggested reply"
			m.refreshDetail()
			m.rebuildList()
			return m, clearStatusAfter(2 * time.Second)
		}
		return m, nil
	case "p":
		if m.detail != nil {
			return m, m.publishReplyCmd(m.detail.ID)
		}
		return m, nil
	case "v":
		if m.detail != nil {
			return m, m.approveCmd(m.detail.ID)
		}
		return m, nil
	case "y":
		if m.detail != nil {
			return m, m.sendCmd(m.detail.ID)
		}
		return m, nil
	case "g":
		m.view = viewAssign
		m.assignInput.Focus()
		return m, textinput.Blink
	case "G":
		if m.detail != nil {
			return m, m.unassignCmd(m.detail.ID)
		}
		return m, nil
	case "d":
		if m.detail != nil {
			return m.requestDelete([]int{m.detail.ID})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

// switchBucket changes the active tab. Selection is intentionally kept: it
// only clears on bulk completion or explicitly.
func (m *AppModel) switchBucket(b model.Status) {
	m.bucket = b
	m.rebuildList()
}

func nextBucket(b model.Status) model.Status {
	switch b {
	case model.StatusNeedsReview:
		return model.StatusApprovedPendingSend
	case model.StatusApprovedPendingSend:
		return model.StatusSent
	default:
		return model.StatusNeedsReview
	}
}

func nextWindow(w triage.Window) triage.Window {
	for i, cur := range triage.Windows {
		if cur == w {
			return triage.Windows[(i+1)%len(triage.Windows)]
		}
	}
	return triage.WindowAll
}

func (m *AppModel) currentEmail() (model.Email, bool) {
	it := m.emailList.SelectedItem()
	if it == nil {
		return model.Email{}, false
	}
	ei, ok := it.(emailItem)
	if !ok {
		return model.Email{}, false
	}
	return ei.email, true
}

func (m *AppModel) openDetail(e model.Email) {
	m.detail = &e
	m.detailViewport.SetContent(m.detailContent(e))
	m.detailViewport.GotoTop()
	m.view = viewDetail
}

// refreshDetail re-reads the detail record from state after any mutation or
// fetch so the panel never shows a stale copy. The panel closes when the
// record disappeared.
func (m *AppModel) refreshDetail() {
	if m.detail == nil {
		return
	}
	e, ok := m.state.Get(m.detail.ID)
	if !ok {
		m.detail = nil
		if m.view == viewDetail || m.view == viewAssign {
			m.view = viewDashboard
		}
		return
	}
	m.detail = &e
	if m.view == viewDetail && !m.editing {
		m.detailViewport.SetContent(m.detailContent(e))
	}
}

// rebuildList recomputes the visible view: active bucket, then the composed
// time window + search filter.
func (m *AppModel) rebuildList() {
	bucket := m.state.Buckets().For(m.bucket)
	now := time.Now()
	m.visible = triage.Filter(bucket, m.window, m.searchInput.Value(), now)

	items := make([]list.Item, len(m.visible))
	for i, e := range m.visible {
		items[i] = emailItem{
			email:     e,
			selected:  m.state.Selection().Selected(e.ID),
			hasDraft:  m.state.Drafts().Has(e.ID),
			assigned:  m.state.Assignment(e.ID),
			wait:      waitFor(e, now),
			confident: e.Confidence >= m.threshold,
		}
	}
	idx := m.emailList.Index()
	m.emailList.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.emailList.Select(idx)
	}
}

// deleteTargets resolves what "d" means right now: the selection if one
// exists, otherwise the item under the cursor.
func (m *AppModel) deleteTargets() []int {
	if m.state.Selection().Len() > 0 {
		return m.state.Selection().IDs()
	}
	if e, ok := m.currentEmail(); ok {
		return []int{e.ID}
	}
	return nil
}

// requestDelete runs the destructive-action gate: policy check, then an
// explicit confirmation view before any request is dispatched.
func (m *AppModel) requestDelete(ids []int) (tea.Model, tea.Cmd) {
	if len(ids) == 0 {
		return m, nil
	}
	if !m.cfg.AllowDeleteSent {
		for _, id := range ids {
			if e, ok := m.state.Get(id); ok && e.Status == model.StatusSent {
				m.status = "Deleting sent emails is disabled by policy"
				return m, clearStatusAfter(3 * time.Second)
			}
		}
	}
	m.confirmIDs = ids
	m.view = viewConfirmDelete
	return m, nil
}

func (m *AppModel) sendSelectedOrCurrent() tea.Cmd {
	if m.state.Selection().Len() > 0 {
		return m.bulkSendCmd(m.state.Selection().IDs())
	}
	if e, ok := m.currentEmail(); ok {
		return m.sendCmd(e.ID)
	}
	return nil
}

func (m *AppModel) adjustThreshold(delta float64) tea.Cmd {
	v := m.threshold + delta
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	m.threshold = v
	if m.local != nil {
		if err := m.local.SetThreshold(context.Background(), v); err != nil {
			m.log.Warn("persist threshold", zap.Error(err))
		}
	}
	m.rebuildList()
	m.status = fmt.Sprintf("Confidence threshold: %.2f", v)
	return clearStatusAfter(2 * time.Second)
}

// Commands

func (m *AppModel) pollTick() tea.Cmd {
	return tea.Tick(m.cfg.PollInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

func (m *AppModel) mailboxCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		st, err := client.MailboxStatus(context.Background())
		return mailboxMsg{status: st, err: err}
	}
}

// syncCmd runs one reconciliation round: optionally trigger the backend's
// inbound mail fetch, then pull the authoritative list, metrics and
// assignments. Any failure keeps the prior state.
func (m *AppModel) syncCmd(triggerInbound bool) tea.Cmd {
	gen := m.state.BeginFetch()
	connected := m.state.Mailbox().Connected
	client := m.client
	log := m.log
	return func() tea.Msg {
		ctx := context.Background()

		ingested := 0
		if triggerInbound && connected {
			fr, err := client.TriggerFetch(ctx)
			if err != nil {
				return refreshDoneMsg{gen: gen, err: err}
			}
			ingested = fr.Ingested
		}

		emails, err := client.ListEmails(ctx)
		if err != nil {
			return refreshDoneMsg{gen: gen, err: err}
		}
		metrics, err := client.Metrics(ctx)
		if err != nil {
			return refreshDoneMsg{gen: gen, err: err}
		}
		assignments, err := client.Assignments(ctx)
		if err != nil {
			// Non-fatal: the cached assignment map keeps serving.
			log.Warn("fetch assignments", zap.Error(err))
			assignments = nil
		}

		return refreshDoneMsg{
			gen:         gen,
			emails:      emails,
			metrics:     metrics,
			assignments: assignments,
			ingested:    ingested,
		}
	}
}

func (m *AppModel) approveCmd(id int) tea.Cmd {
	prev, ok := m.state.SetStatus(id, model.StatusApprovedPendingSend)
	if !ok {
		return nil
	}
	m.refreshDetail()
	m.rebuildList()

	client := m.client
	state := m.state
	return func() tea.Msg {
		st := model.StatusApprovedPendingSend
		_, err := client.UpdateEmail(context.Background(), id, api.EmailUpdate{Status: &st})
		return actionDoneMsg{
			action: "Approve",
			err:    err,
			invert: func() { state.SetStatus(id, prev) },
		}
	}
}

func (m *AppModel) sendCmd(id int) tea.Cmd {
	if !m.state.Mailbox().Connected {
		m.status = "Mail connection inactive — cannot send"
		return clearStatusAfter(3 * time.Second)
	}
	prev, ok := m.state.SetStatus(id, model.StatusSent)
	if !ok {
		return nil
	}
	m.refreshDetail()
	m.rebuildList()

	// Capture the outgoing text on the event loop; the overlay supersedes
	// the suggested reply.
	override, _ := m.state.Drafts().Get(id)

	client := m.client
	state := m.state
	return func() tea.Msg {
		err := client.SendEmail(context.Background(), id, override)
		return actionDoneMsg{
			action:  "Send",
			err:     err,
			invert:  func() { state.SetStatus(id, prev) },
			confirm: func() { state.ConfirmSent(context.Background(), id) },
		}
	}
}

// publishReplyCmd pushes the local draft to the backend as the new
// suggested reply. On success the overlay is reset: the server copy now
// matches the edit.
func (m *AppModel) publishReplyCmd(id int) tea.Cmd {
	text, ok := m.state.Drafts().Get(id)
	if !ok {
		m.status = "No local draft to publish"
		return clearStatusAfter(2 * time.Second)
	}
	prev, ok := m.state.SetReply(id, text)
	if !ok {
		return nil
	}
	m.refreshDetail()

	client := m.client
	state := m.state
	return func() tea.Msg {
		_, err := client.UpdateEmail(context.Background(), id, api.EmailUpdate{SuggestedReply: &text})
		return actionDoneMsg{
			action: "Publish reply",
			err:    err,
			invert: func() { state.SetReply(id, prev) },
			confirm: func() {
				// The overlay now equals the server copy; drop it.
				_ = state.Drafts().Reset(context.Background(), id)
			},
		}
	}
}

func (m *AppModel) assignCmd(id int, person string) tea.Cmd {
	prev := m.state.SetAssignment(id, person)
	m.refreshDetail()
	m.rebuildList()

	client := m.client
	state := m.state
	return func() tea.Msg {
		err := client.Assign(context.Background(), id, person)
		return actionDoneMsg{
			action: "Assign",
			err:    err,
			invert: func() { state.SetAssignment(id, prev) },
		}
	}
}

func (m *AppModel) unassignCmd(id int) tea.Cmd {
	prev := m.state.SetAssignment(id, "")
	if prev == "" {
		return nil
	}
	m.refreshDetail()
	m.rebuildList()

	client := m.client
	state := m.state
	return func() tea.Msg {
		err := client.Unassign(context.Background(), id)
		return actionDoneMsg{
			action: "Unassign",
			err:    err,
			invert: func() { state.SetAssignment(id, prev) },
		}
	}
}

// bulkSendCmd validates up front (no request leaves the client while the
// mail connection is down), then fans out one send per id.
func (m *AppModel) bulkSendCmd(ids []int) tea.Cmd {
	if !m.state.Mailbox().Connected {
		m.status = "Mail connection inactive — cannot send"
		return clearStatusAfter(3 * time.Second)
	}
	// Capture overlay payloads on the event loop before going async.
	overrides := make(map[int]string, len(ids))
	for _, id := range ids {
		if text, ok := m.state.Drafts().Get(id); ok {
			overrides[id] = text
		}
	}
	m.status = "Sending..."

	client := m.client
	return func() tea.Msg {
		res := triage.FanOut(context.Background(), "Send", ids, func(ctx context.Context, id int) error {
			return client.SendEmail(ctx, id, overrides[id])
		})
		return bulkDoneMsg{res: res}
	}
}

func (m *AppModel) bulkDeleteCmd(ids []int) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		res := triage.FanOut(context.Background(), "Delete", ids, client.DeleteEmail)
		return bulkDoneMsg{res: res}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}
