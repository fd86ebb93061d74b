package components

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"smartnotes/views/models"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestNoteListEscapesAndMarksActive(t *testing.T) {
	out := render(t, NoteList([]models.NoteItemView{
		{ID: 1, Title: "<b>x</b>", Date: "Today", Preview: "p", Active: true},
		{ID: 2, Title: "two", Date: "Yesterday", Preview: "q"},
	}))
	if strings.Contains(out, "<b>x</b>") || !strings.Contains(out, "&lt;b&gt;x&lt;/b&gt;") {
		t.Fatalf("title not escaped: %s", out)
	}
	if strings.Count(out, " active\"") != 1 {
		t.Fatalf("expected exactly one active item: %s", out)
	}
	if !strings.Contains(out, `hx-post="/notes/2/select"`) {
		t.Fatalf("missing select wiring: %s", out)
	}
}

func TestWorkspaceLayout(t *testing.T) {
	normal := render(t, Workspace(models.WorkspaceView{Layout: models.LayoutView{ListVisible: true}}))
	if !strings.Contains(normal, `id="notesList"`) || !strings.Contains(normal, "col-lg-8") {
		t.Fatalf("normal layout wrong: %s", normal)
	}
	wide := render(t, Workspace(models.WorkspaceView{Layout: models.LayoutView{EditorWide: true}}))
	if strings.Contains(wide, `id="notesList"`) || !strings.Contains(wide, "col-lg-12") {
		t.Fatalf("wide layout wrong: %s", wide)
	}
}

func TestEditorEscapesTitleKeepsContent(t *testing.T) {
	out := render(t, Editor(models.EditorView{Title: `Say "hi"`, ContentHTML: "<p>Don&#39;t &amp; a &lt; b</p>"}))
	if !strings.Contains(out, `value="Say &#34;hi&#34;"`) {
		t.Fatalf("title attribute not escaped: %s", out)
	}
	if !strings.Contains(out, `contenteditable="true"><p>Don&#39;t &amp; a &lt; b</p></div>`) {
		t.Fatalf("content should be written as given: %s", out)
	}
}

func TestChatBubbleSenders(t *testing.T) {
	user := render(t, ChatBubble(models.ChatEntryView{Seq: 1, Sender: "user", HTML: "<p>hi</p>", Time: "02:05 PM"}))
	if !strings.HasPrefix(user, `<div class="user-message mb-2 animate-fade-in" data-seq="1">`) || !strings.Contains(user, "bg-primary text-white p-2") {
		t.Fatalf("unexpected user bubble: %s", user)
	}
	if strings.Contains(user, "assistant-icon") {
		t.Fatalf("user bubble should not carry the assistant icon: %s", user)
	}
	bot := render(t, ChatBubble(models.ChatEntryView{Seq: 2, Sender: "assistant", HTML: "<p>ok</p>", Time: "02:05 PM"}))
	if !strings.Contains(bot, "assistant-icon") || !strings.Contains(bot, "bg-light p-2") {
		t.Fatalf("unexpected assistant bubble: %s", bot)
	}
}

func TestChatEntriesEndWithPoller(t *testing.T) {
	out := render(t, ChatEntries([]models.ChatEntryView{
		{Seq: 3, Sender: "assistant", HTML: "<p>hi</p>", Time: "02:05 PM"},
	}, 3))
	if !strings.Contains(out, "assistant-message") || !strings.Contains(out, "02:05 PM") {
		t.Fatalf("bubble missing: %s", out)
	}
	if !strings.HasSuffix(out, `<div id="chatPoller" hx-get="/chat/entries?after=3" hx-trigger="load" hx-swap="outerHTML"></div>`) {
		t.Fatalf("poller should come last: %s", out)
	}
}

func TestTaskModal(t *testing.T) {
	if out := render(t, TaskModal(models.TaskModalView{})); out != `<div id="taskModal"></div>` {
		t.Fatalf("closed modal should be an empty slot: %s", out)
	}
	out := render(t, TaskModal(models.TaskModalView{Open: true, Priority: "high", Error: "Title is required"}))
	if !strings.Contains(out, `<option value="high" selected>`) || !strings.Contains(out, "Title is required") {
		t.Fatalf("open modal wrong: %s", out)
	}
}

func TestToastsOutOfBand(t *testing.T) {
	out := render(t, Toasts([]string{`Task "a" created!`}, true))
	if !strings.Contains(out, `hx-swap-oob="true"`) || !strings.Contains(out, "Task &#34;a&#34; created!") {
		t.Fatalf("unexpected toasts: %s", out)
	}
}
