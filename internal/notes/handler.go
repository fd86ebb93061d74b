package notes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"

	"smartnotes/views/components"
	"smartnotes/views/models"
	"smartnotes/views/pages"
)

// SessionCookie carries the browser's session id.
const SessionCookie = "smartnotes_session"

const defaultPollTimeout = 25 * time.Second

type Handler struct {
	sessions    *Sessions
	log         *slog.Logger
	policy      *bluemonday.Policy
	pollTimeout time.Duration
}

type HandlerOption func(*Handler)

// WithPollTimeout bounds how long GET /chat/entries waits for new entries.
func WithPollTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.pollTimeout = d
		}
	}
}

func NewHandler(sessions *Sessions, log *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		sessions:    sessions,
		log:         log,
		policy:      bluemonday.UGCPolicy(),
		pollTimeout: defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the web UI and REST routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// REST API endpoints
	mux.HandleFunc("GET /api/notes", h.ListNotes)
	mux.HandleFunc("POST /api/notes", h.CreateNote)
	mux.HandleFunc("GET /api/notes/{id}", h.GetNote)

	// HTMX Web UI
	mux.HandleFunc("GET /", h.HomePage)
	mux.HandleFunc("GET /fragments/notes", h.NotesFragment)
	mux.HandleFunc("POST /notes", h.NewNote)
	mux.HandleFunc("POST /notes/save", h.SaveNote)
	mux.HandleFunc("POST /notes/{id}/select", h.SelectNote)
	mux.HandleFunc("POST /nav/{target}", h.Navigate)
	mux.HandleFunc("POST /chat", h.SendMessage)
	mux.HandleFunc("GET /chat/entries", h.ChatEntries)
	mux.HandleFunc("POST /tasks", h.SubmitTask)
	mux.HandleFunc("POST /tasks/close", h.CloseTaskModal)
}

// controller resolves the caller's session, issuing a cookie when needed.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) *Controller {
	if c, err := r.Cookie(SessionCookie); err == nil && ValidID(c.Value) {
		return h.sessions.Get(c.Value)
	}
	id := h.sessions.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return h.sessions.Get(id)
}

// --- REST API Handlers ---

// ListNotes handles GET /api/notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	h.jsonResponse(w, ctrl.Notes(), http.StatusOK)
}

// GetNote handles GET /api/notes/{id}
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.jsonError(w, "invalid note ID", http.StatusBadRequest)
		return
	}

	note, err := h.controller(w, r).Note(id)
	if errors.Is(err, ErrNoteNotFound) {
		h.jsonError(w, "note not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to get note", "error", err)
		h.jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.jsonResponse(w, note, http.StatusOK)
}

// CreateNote handles POST /api/notes
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	note := h.controller(w, r).CreateNewNote()
	h.jsonResponse(w, note, http.StatusCreated)
}

// --- Helper methods ---

func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *Handler) parseInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		h.log.Error("failed to render", "path", r.URL.Path, "error", err)
	}
}

// --- View model converters ---

func (h *Handler) listToViews(items []ListItem) []models.NoteItemView {
	views := make([]models.NoteItemView, len(items))
	for i, it := range items {
		views[i] = models.NoteItemView{
			ID:      it.ID,
			Title:   it.Title,
			Date:    it.Date,
			Preview: it.Preview,
			Active:  it.Active,
		}
	}
	return views
}

func (h *Handler) workspaceView(ctrl *Controller) models.WorkspaceView {
	layout := ctrl.Layout()
	ed := ctrl.Editor()
	return models.WorkspaceView{
		Layout: models.LayoutView{
			ListVisible: layout.ListVisible,
			EditorWide:  layout.EditorWide,
		},
		Notes: h.listToViews(ctrl.RenderList()),
		Editor: models.EditorView{
			NoteID:      ctrl.SelectedID(),
			Title:       ed.Title,
			ContentHTML: h.policy.Sanitize(ed.Content),
		},
	}
}

func (h *Handler) chatToViews(entries []ChatEntry) []models.ChatEntryView {
	views := make([]models.ChatEntryView, len(entries))
	for i, e := range entries {
		views[i] = models.ChatEntryView{
			Seq:    e.Seq,
			Sender: string(e.Sender),
			HTML:   RenderMarkdown(e.Text),
			Time:   e.TimeLabel(),
		}
	}
	return views
}

func (h *Handler) modalView(ctrl *Controller, errMsg string) models.TaskModalView {
	f := ctrl.TaskForm()
	return models.TaskModalView{
		Open:        ctrl.Layout().TaskModalOpen,
		Title:       f.Title,
		DueDate:     f.DueDate,
		Priority:    f.Priority,
		Description: f.Description,
		Error:       errMsg,
	}
}

func lastSeq(entries []ChatEntry, after int) int {
	if len(entries) == 0 {
		return after
	}
	return entries[len(entries)-1].Seq
}

// --- HTMX Web Handlers ---

// HomePage handles GET /
func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	ctrl := h.controller(w, r)
	entries := ctrl.ChatEntries(0)

	h.render(w, r, pages.HomePage(models.PageView{
		Workspace: h.workspaceView(ctrl),
		Chat:      h.chatToViews(entries),
		LastSeq:   lastSeq(entries, 0),
		Modal:     h.modalView(ctrl, ""),
		Toasts:    ctrl.TakeNotifications(),
	}))
}

// NotesFragment handles GET /fragments/notes (HTMX partial)
func (h *Handler) NotesFragment(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	h.render(w, r, components.NoteList(h.listToViews(ctrl.RenderList())))
}

// workspaceWithToasts renders the workspace plus any pending notifications
// as an out-of-band swap.
func (h *Handler) workspaceWithToasts(w http.ResponseWriter, r *http.Request, ctrl *Controller) {
	parts := []templ.Component{components.Workspace(h.workspaceView(ctrl))}
	if toasts := ctrl.TakeNotifications(); len(toasts) > 0 {
		parts = append(parts, components.Toasts(toasts, true))
	}
	h.render(w, r, templ.Join(parts...))
}

// NewNote handles POST /notes
func (h *Handler) NewNote(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	ctrl.CreateNewNote()
	h.workspaceWithToasts(w, r, ctrl)
}

// SelectNote handles POST /notes/{id}/select
func (h *Handler) SelectNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid note ID", http.StatusBadRequest)
		return
	}

	ctrl := h.controller(w, r)
	if err := ctrl.SelectNote(id); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			http.Error(w, "note not found", http.StatusNotFound)
			return
		}
		h.log.Error("failed to select note", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.workspaceWithToasts(w, r, ctrl)
}

// SaveNote handles POST /notes/save
func (h *Handler) SaveNote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// content is the contenteditable's innerHTML.
	ctrl := h.controller(w, r)
	err := ctrl.SaveEditor(Editor{
		Title:   r.FormValue("title"),
		Content: h.policy.Sanitize(r.FormValue("content")),
	})
	if errors.Is(err, ErrNoteNotFound) {
		http.Error(w, "note not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("failed to save note", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.workspaceWithToasts(w, r, ctrl)
}

// Navigate handles POST /nav/{target}
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	v, ok := ParseView(r.PathValue("target"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctrl := h.controller(w, r)
	ctrl.Navigate(v)
	if v == ViewTasks {
		h.render(w, r, components.TaskModal(h.modalView(ctrl, "")))
		return
	}
	h.workspaceWithToasts(w, r, ctrl)
}

// SendMessage handles POST /chat. Entries reach the page through the poller.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctrl := h.controller(w, r)
	if err := ctrl.SendAssistantMessage(r.FormValue("message")); err != nil {
		h.log.Warn("failed to send message", "error", err)
		http.Error(w, "assistant unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChatEntries handles GET /chat/entries (HTMX long-poll)
func (h *Handler) ChatEntries(w http.ResponseWriter, r *http.Request) {
	after := h.parseInt(r.URL.Query().Get("after"), 0)
	ctrl := h.controller(w, r)

	changes, cancel := ctrl.Subscribe()
	defer cancel()

	entries := ctrl.ChatEntries(after)
	if len(entries) == 0 {
		timeout := time.NewTimer(h.pollTimeout)
		defer timeout.Stop()
	wait:
		for len(entries) == 0 {
			select {
			case <-r.Context().Done():
				return
			case <-timeout.C:
				break wait
			case <-changes:
				entries = ctrl.ChatEntries(after)
			}
		}
	}

	h.render(w, r, components.ChatEntries(h.chatToViews(entries), lastSeq(entries, after)))
}

// SubmitTask handles POST /tasks
func (h *Handler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	ctrl := h.controller(w, r)
	form := TaskForm{
		Title:       r.FormValue("title"),
		DueDate:     r.FormValue("due_date"),
		Priority:    r.FormValue("priority"),
		Description: r.FormValue("description"),
	}

	errMsg := ""
	if err := ctrl.SubmitTask(form); err != nil {
		if !errors.Is(err, ErrTaskTitleRequired) {
			h.log.Error("failed to submit task", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		errMsg = "Title is required"
	}

	parts := []templ.Component{components.TaskModal(h.modalView(ctrl, errMsg))}
	if toasts := ctrl.TakeNotifications(); len(toasts) > 0 {
		parts = append(parts, components.Toasts(toasts, true))
	}
	h.render(w, r, templ.Join(parts...))
}

// CloseTaskModal handles POST /tasks/close
func (h *Handler) CloseTaskModal(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller(w, r)
	ctrl.CloseTaskModal()
	h.render(w, r, components.TaskModal(h.modalView(ctrl, "")))
}
