package notes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

type webClient struct {
	t      *testing.T
	mux    *http.ServeMux
	cookie *http.Cookie
}

func newWebClient(t *testing.T) (*webClient, *Sessions, *fakeReplies) {
	t.Helper()
	replies := &fakeReplies{}
	sessions := NewSessions(replies, time.Minute, quietLogger())
	h := NewHandler(sessions, quietLogger(), WithPollTimeout(50*time.Millisecond))
	mux := http.NewServeMux()
	h.Register(mux)
	return &webClient{t: t, mux: mux}, sessions, replies
}

func (c *webClient) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.mux.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return rec
}

func (c *webClient) controller(sessions *Sessions) *Controller {
	c.t.Helper()
	if c.cookie == nil {
		c.t.Fatalf("no session cookie issued")
	}
	ctrl, ok := sessions.Lookup(c.cookie.Value)
	if !ok {
		c.t.Fatalf("session %s not registered", c.cookie.Value)
	}
	return ctrl
}

func TestHomePageIssuesSessionAndRendersSeeds(t *testing.T) {
	c, sessions, _ := newWebClient(t)

	rec := c.do(http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	if c.cookie == nil || !ValidID(c.cookie.Value) || !c.cookie.HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie, got %+v", c.cookie)
	}
	body := rec.Body.String()
	for _, want := range []string{"Welcome Note", "Project Ideas", "Meeting Notes", `id="notesList"`, `id="aiChat"`, `id="taskModal"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}

	c.do(http.MethodGet, "/", nil)
	if sessions.Len() != 1 {
		t.Fatalf("cookie should reuse the session, got %d sessions", sessions.Len())
	}
}

func TestHomePageUnknownPath(t *testing.T) {
	c, _, _ := newWebClient(t)
	if rec := c.do(http.MethodGet, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d", rec.Code)
	}
}

func TestNewSelectAndSaveNote(t *testing.T) {
	c, sessions, _ := newWebClient(t)
	c.do(http.MethodGet, "/", nil)

	rec := c.do(http.MethodPost, "/notes", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), PlaceholderTitle) {
		t.Fatalf("POST /notes = %d %s", rec.Code, rec.Body.String())
	}
	ctrl := c.controller(sessions)
	if ctrl.SelectedID() != 4 {
		t.Fatalf("expected new note selected, got %d", ctrl.SelectedID())
	}

	rec = c.do(http.MethodPost, "/notes/2/select", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("select = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `value="Project Ideas"`) {
		t.Fatalf("editor not loaded with note 2: %s", rec.Body.String())
	}

	rec = c.do(http.MethodPost, "/notes/save", url.Values{"title": {"X"}, "content": {"<b>bold</b><script>x</script>"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Note saved successfully!") || !strings.Contains(body, `hx-swap-oob="true"`) {
		t.Fatalf("expected an out-of-band toast, got %s", body)
	}
	n, _ := ctrl.Note(2)
	if n.Title != "X" || n.Content != "<b>bold</b>" {
		t.Fatalf("note 2 not saved: %+v", n)
	}
	if other, _ := ctrl.Note(1); other.Title != "Welcome Note" {
		t.Fatalf("note 1 changed: %+v", other)
	}
}

func TestSelectNoteErrors(t *testing.T) {
	c, _, _ := newWebClient(t)
	if rec := c.do(http.MethodPost, "/notes/abc/select", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", rec.Code)
	}
	if rec := c.do(http.MethodPost, "/notes/99/select", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id = %d", rec.Code)
	}
}

func TestNavigateRoutes(t *testing.T) {
	c, sessions, _ := newWebClient(t)
	c.do(http.MethodGet, "/", nil)

	rec := c.do(http.MethodPost, "/nav/assistant", nil)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), `id="notesList"`) {
		t.Fatalf("assistant view should hide the list: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "col-lg-12") {
		t.Fatalf("assistant view should widen the editor")
	}

	rec = c.do(http.MethodPost, "/nav/tasks", nil)
	if !strings.Contains(rec.Body.String(), `id="taskForm"`) {
		t.Fatalf("tasks should open the modal: %s", rec.Body.String())
	}
	if !c.controller(sessions).Layout().TaskModalOpen {
		t.Fatalf("modal state not recorded")
	}

	rec = c.do(http.MethodPost, "/nav/notes", nil)
	if !strings.Contains(rec.Body.String(), `id="notesList"`) {
		t.Fatalf("notes view should show the list")
	}

	if rec := c.do(http.MethodPost, "/nav/settings", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown target = %d", rec.Code)
	}
}

func TestSubmitTaskRoutes(t *testing.T) {
	c, sessions, _ := newWebClient(t)
	c.do(http.MethodPost, "/nav/tasks", nil)
	ctrl := c.controller(sessions)

	rec := c.do(http.MethodPost, "/tasks", url.Values{"title": {""}, "description": {"keep me"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("empty title = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Title is required") || !strings.Contains(rec.Body.String(), "keep me") {
		t.Fatalf("expected feedback and kept values: %s", rec.Body.String())
	}
	if !ctrl.Layout().TaskModalOpen {
		t.Fatalf("modal must stay open")
	}

	rec = c.do(http.MethodPost, "/tasks", url.Values{"title": {"Write docs"}, "priority": {"high"}, "due_date": {"2026-10-20"}})
	body := rec.Body.String()
	if strings.Contains(body, `id="taskForm"`) {
		t.Fatalf("modal should be closed: %s", body)
	}
	if !strings.Contains(body, "Task &#34;Write docs&#34; created!") && !strings.Contains(body, "Task &quot;Write docs&quot; created!") {
		t.Fatalf("expected confirmation toast: %s", body)
	}
	if ctrl.Layout().TaskModalOpen {
		t.Fatalf("modal state should be closed")
	}

	c.do(http.MethodPost, "/nav/tasks", nil)
	c.do(http.MethodPost, "/tasks/close", nil)
	if ctrl.Layout().TaskModalOpen {
		t.Fatalf("close should dismiss the modal")
	}
}

func TestChatSendAndPoll(t *testing.T) {
	c, sessions, replies := newWebClient(t)
	c.do(http.MethodGet, "/", nil)

	if rec := c.do(http.MethodPost, "/chat", url.Values{"message": {"   "}}); rec.Code != http.StatusNoContent {
		t.Fatalf("blank message = %d", rec.Code)
	}
	if len(c.controller(sessions).ChatEntries(0)) != 0 {
		t.Fatalf("blank message added entries")
	}

	if rec := c.do(http.MethodPost, "/chat", url.Values{"message": {"hello"}}); rec.Code != http.StatusNoContent {
		t.Fatalf("send = %d", rec.Code)
	}

	rec := c.do(http.MethodGet, "/chat/entries?after=0", nil)
	body := rec.Body.String()
	if !strings.Contains(body, "user-message") || !strings.Contains(body, "<p>hello</p>") {
		t.Fatalf("expected the user bubble: %s", body)
	}
	if !strings.Contains(body, "/chat/entries?after=1") {
		t.Fatalf("expected next poller after seq 1: %s", body)
	}

	// Nothing new yet: the poll times out and re-arms at the same seq.
	rec = c.do(http.MethodGet, "/chat/entries?after=1", nil)
	if strings.Contains(rec.Body.String(), "message") || !strings.Contains(rec.Body.String(), "after=1") {
		t.Fatalf("expected an empty re-armed poller: %s", rec.Body.String())
	}

	replies.mu.Lock()
	if len(replies.scheduled) != 1 {
		replies.mu.Unlock()
		t.Fatalf("expected one scheduled reply, got %d", len(replies.scheduled))
	}
	deliver := replies.scheduled[0].deliver
	replies.mu.Unlock()
	go func() {
		time.Sleep(10 * time.Millisecond)
		deliver("Would you like me to summarize this note for you?")
	}()
	rec = c.do(http.MethodGet, "/chat/entries?after=1", nil)
	body = rec.Body.String()
	if !strings.Contains(body, "assistant-message") || !strings.Contains(body, "after=2") {
		t.Fatalf("expected the assistant bubble: %s", body)
	}
}

func TestRESTNotes(t *testing.T) {
	c, _, _ := newWebClient(t)

	rec := c.do(http.MethodGet, "/api/notes", nil)
	var list []Note
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 3 || list[0].ID != 1 {
		t.Fatalf("unexpected notes: %+v", list)
	}

	rec = c.do(http.MethodPost, "/api/notes", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d", rec.Code)
	}
	var created Note
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 4 || created.Title != PlaceholderTitle {
		t.Fatalf("unexpected created note: %+v", created)
	}

	if rec := c.do(http.MethodGet, "/api/notes/4", nil); rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/notes/99", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing = %d", rec.Code)
	}
	if rec := c.do(http.MethodGet, "/api/notes/x", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", rec.Code)
	}
}

func TestNotesFragment(t *testing.T) {
	c, _, _ := newWebClient(t)
	rec := c.do(http.MethodGet, "/fragments/notes", nil)
	body := rec.Body.String()
	if !strings.Contains(body, `list-group-item list-group-item-action active`) {
		t.Fatalf("expected active item: %s", body)
	}
	if strings.Count(body, "list-group-item-action") != 3 {
		t.Fatalf("expected 3 items: %s", body)
	}
}
