package notes

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"smartnotes/internal/assistant"
)

var (
	ErrTaskTitleRequired = errors.New("task title is required")
	ErrControllerClosed  = errors.New("controller closed")
)

const (
	maxNotifications = 20
	maxChatEntries   = 200
)

// ReplyScheduler defers assistant replies; see assistant.Scheduler.
type ReplyScheduler interface {
	Schedule(key, prompt string, deliver assistant.DeliverFunc) error
	Cancel(key string) int
}

// Controller owns one notes UI: the collection, the selection, the editor
// fields, the chat panel, the layout and the task form. Every mutation goes
// through its methods. It is safe for concurrent use.
type Controller struct {
	key     string
	log     *slog.Logger
	replies ReplyScheduler
	now     func() time.Time

	textPolicy *bluemonday.Policy

	mu            sync.Mutex
	repo          *Repo
	selectedID    int
	editor        Editor
	chat          []ChatEntry
	chatSeq       int
	chatInput     string
	layout        Layout
	task          TaskForm
	notifications []string
	closed        bool

	hub *changeHub
}

type Option func(*Controller)

func WithLogger(log *slog.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock overrides the clock used for chat timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithNotes replaces the sample notes a controller starts with.
func WithNotes(seed []Note) Option {
	return func(c *Controller) {
		c.repo = NewRepo(seed)
	}
}

// NewController creates a controller keyed by session id. Replies are
// scheduled under that key so they can be cancelled together.
func NewController(key string, replies ReplyScheduler, opts ...Option) *Controller {
	c := &Controller{
		key:        key,
		log:        slog.Default(),
		replies:    replies,
		now:        time.Now,
		textPolicy: bluemonday.StrictPolicy(),
		repo:       NewRepo(SeedNotes()),
		layout:     defaultLayout(),
		task:       emptyTaskForm(),
		hub:        newChangeHub(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("session", key)

	if list := c.repo.List(); len(list) > 0 {
		c.selectedID = list[0].ID
		_ = c.loadNote(c.selectedID)
	}
	return c
}

// Key returns the session key the controller was created with.
func (c *Controller) Key() string {
	return c.key
}

// RenderList produces one row per note in collection order.
func (c *Controller) RenderList() []ListItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderList()
}

func (c *Controller) renderList() []ListItem {
	list := c.repo.List()
	items := make([]ListItem, len(list))
	for i, n := range list {
		items[i] = ListItem{
			ID:      n.ID,
			Title:   n.Title,
			Date:    n.Date,
			Preview: c.preview(n.Content),
			Active:  n.ID == c.selectedID,
		}
	}
	return items
}

func (c *Controller) preview(content string) string {
	text := html.UnescapeString(c.textPolicy.Sanitize(content))
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) > previewLen {
		return string(r[:previewLen]) + "..."
	}
	return text
}

// LoadNote copies a note into the editor fields. An unknown id leaves the
// fields untouched.
func (c *Controller) LoadNote(id int) error {
	c.mu.Lock()
	err := c.loadNote(id)
	c.mu.Unlock()
	if err == nil {
		c.hub.broadcast()
	}
	return err
}

func (c *Controller) loadNote(id int) error {
	n, err := c.repo.FindByID(id)
	if err != nil {
		return fmt.Errorf("load note %d: %w", id, err)
	}
	c.editor = Editor{Title: n.Title, Content: n.Content}
	return nil
}

// SelectNote marks id as selected and loads it into the editor.
func (c *Controller) SelectNote(id int) error {
	c.mu.Lock()
	err := c.selectNote(id)
	c.mu.Unlock()
	if err == nil {
		c.hub.broadcast()
	}
	return err
}

func (c *Controller) selectNote(id int) error {
	if _, err := c.repo.FindByID(id); err != nil {
		return fmt.Errorf("select note %d: %w", id, err)
	}
	c.selectedID = id
	return c.loadNote(id)
}

// SetEditor records what the user typed into the title and content fields.
func (c *Controller) SetEditor(ed Editor) {
	c.mu.Lock()
	c.editor = ed
	c.mu.Unlock()
}

// SaveCurrentNote writes the editor fields back into the selected note. The
// content is stored as given; hosts that render it as HTML sanitize it there.
func (c *Controller) SaveCurrentNote() error {
	c.mu.Lock()
	err := c.saveCurrentNote()
	c.mu.Unlock()
	if err == nil {
		c.hub.broadcast()
	}
	return err
}

// SaveEditor sets the editor fields and saves them as one step.
func (c *Controller) SaveEditor(ed Editor) error {
	c.mu.Lock()
	c.editor = ed
	err := c.saveCurrentNote()
	c.mu.Unlock()
	if err == nil {
		c.hub.broadcast()
	}
	return err
}

func (c *Controller) saveCurrentNote() error {
	if err := c.repo.Update(c.selectedID, c.editor.Title, c.editor.Content); err != nil {
		return fmt.Errorf("save current note: %w", err)
	}
	c.notify("Note saved successfully!")
	return nil
}

// CreateNewNote prepends a placeholder note and selects it.
func (c *Controller) CreateNewNote() Note {
	c.mu.Lock()
	n := Note{
		Title:    PlaceholderTitle,
		Content:  PlaceholderContent,
		Date:     PlaceholderDate,
		Category: PlaceholderCategory,
	}
	c.repo.Insert(&n)
	_ = c.selectNote(n.ID)
	c.mu.Unlock()

	c.log.Debug("note created", "id", n.ID)
	c.hub.broadcast()
	return n
}

// SendAssistantMessage posts a user message and schedules the assistant's
// reply. Blank messages are ignored.
func (c *Controller) SendAssistantMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	c.appendChatEntry(text, SenderUser)
	c.chatInput = ""
	c.mu.Unlock()
	c.hub.broadcast()

	if err := c.replies.Schedule(c.key, text, c.deliverReply); err != nil {
		c.log.Warn("failed to schedule assistant reply", "error", err)
		return fmt.Errorf("schedule reply: %w", err)
	}

	// Close may have run between the unlock above and Schedule, leaving a
	// queue nobody cancels.
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.replies.Cancel(c.key)
	}
	return nil
}

func (c *Controller) deliverReply(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.appendChatEntry(text, SenderAssistant)
	c.mu.Unlock()
	c.hub.broadcast()
}

// AppendChatEntry renders one chat bubble stamped with the current time.
func (c *Controller) AppendChatEntry(text string, sender Sender) ChatEntry {
	c.mu.Lock()
	e := c.appendChatEntry(text, sender)
	c.mu.Unlock()
	c.hub.broadcast()
	return e
}

func (c *Controller) appendChatEntry(text string, sender Sender) ChatEntry {
	c.chatSeq++
	e := ChatEntry{
		Seq:    c.chatSeq,
		Text:   text,
		Sender: sender,
		At:     c.now(),
	}
	c.chat = append(c.chat, e)
	if len(c.chat) > maxChatEntries {
		c.chat = c.chat[len(c.chat)-maxChatEntries:]
	}
	return e
}

// SetChatInput records the chat input field's value.
func (c *Controller) SetChatInput(text string) {
	c.mu.Lock()
	c.chatInput = text
	c.mu.Unlock()
}

// Navigate switches the layout for the given view. The tasks view opens the
// task modal and leaves the regions as they are.
func (c *Controller) Navigate(v View) {
	c.mu.Lock()
	switch v {
	case ViewNotes:
		c.layout.ListVisible = true
		c.layout.EditorWide = false
	case ViewAssistant:
		c.layout.ListVisible = false
		c.layout.EditorWide = true
	case ViewTasks:
		c.layout.TaskModalOpen = true
	}
	c.mu.Unlock()
	c.hub.broadcast()
}

// SetTaskForm records the task modal's field values.
func (c *Controller) SetTaskForm(f TaskForm) {
	c.mu.Lock()
	c.task = f
	c.mu.Unlock()
}

// SubmitTask confirms the task, closes the modal and resets the form. With an
// empty title nothing changes besides the form values and
// ErrTaskTitleRequired is returned. A title of only spaces is accepted.
func (c *Controller) SubmitTask(f TaskForm) error {
	c.mu.Lock()
	c.task = f
	if f.Title == "" {
		c.mu.Unlock()
		return ErrTaskTitleRequired
	}
	c.log.Info("task submitted",
		"title", f.Title,
		"due", f.DueDate,
		"priority", f.Priority,
		"description", f.Description,
	)
	c.notify(fmt.Sprintf("Task %q created!", f.Title))
	c.layout.TaskModalOpen = false
	c.task = emptyTaskForm()
	c.mu.Unlock()
	c.hub.broadcast()
	return nil
}

// CloseTaskModal dismisses the modal without resetting the form.
func (c *Controller) CloseTaskModal() {
	c.mu.Lock()
	c.layout.TaskModalOpen = false
	c.mu.Unlock()
	c.hub.broadcast()
}

func (c *Controller) notify(msg string) {
	c.log.Info("toast", "message", msg)
	c.notifications = append(c.notifications, msg)
	if len(c.notifications) > maxNotifications {
		c.notifications = c.notifications[len(c.notifications)-maxNotifications:]
	}
}

// TakeNotifications drains the pending confirmation messages.
func (c *Controller) TakeNotifications() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notifications
	c.notifications = nil
	return out
}

// Subscribe returns a channel that receives a signal after every state
// change, and a func to stop receiving.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	return c.hub.subscribe()
}

// Close cancels pending replies. Later replies are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.replies.Cancel(c.key)
}

// --- Read accessors ---

func (c *Controller) SelectedID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

func (c *Controller) Editor() Editor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor
}

func (c *Controller) Notes() []Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repo.List()
}

func (c *Controller) Note(id int) (Note, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repo.FindByID(id)
}

// ChatEntries returns the entries with a sequence number above after. Only
// the newest maxChatEntries are kept.
func (c *Controller) ChatEntries(after int) []ChatEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ChatEntry
	for _, e := range c.chat {
		if e.Seq > after {
			out = append(out, e)
		}
	}
	return out
}

func (c *Controller) ChatInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatInput
}

func (c *Controller) Layout() Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layout
}

func (c *Controller) TaskForm() TaskForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task
}

// changeHub fans out change signals to subscribers without blocking.
type changeHub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newChangeHub() *changeHub {
	return &changeHub{subs: map[chan struct{}]struct{}{}}
}

func (h *changeHub) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

func (h *changeHub) broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}
