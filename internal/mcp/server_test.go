package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"smartnotes/internal/assistant"
	"smartnotes/internal/notes"
)

// instantReplies delivers a fixed reply as soon as it is scheduled.
type instantReplies struct{ reply string }

func (r instantReplies) Schedule(key, prompt string, deliver assistant.DeliverFunc) error {
	deliver(r.reply)
	return nil
}

func (instantReplies) Cancel(string) int { return 0 }

func newSessions() *notes.Sessions {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return notes.NewSessions(instantReplies{reply: assistant.CannedReplies[1]}, time.Minute, log)
}

func call(t *testing.T, h server.ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", text(t, res))
	}
	var v T
	if err := json.Unmarshal([]byte(text(t, res)), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestListAndGetNote(t *testing.T) {
	s := newSessions()

	items := decode[[]ListItemResult](t, call(t, handleListNotes(s), nil))
	if len(items) != 3 || !items[0].Active || items[0].Title != "Welcome Note" {
		t.Fatalf("unexpected list: %+v", items)
	}

	note := decode[NoteResult](t, call(t, handleGetNote(s), map[string]any{"id": float64(3)}))
	if note.Title != "Meeting Notes" || note.Category != "Work" {
		t.Fatalf("unexpected note: %+v", note)
	}

	if res := call(t, handleGetNote(s), map[string]any{"id": float64(42)}); !res.IsError {
		t.Fatalf("expected error for unknown id")
	}
	if res := call(t, handleGetNote(s), nil); !res.IsError {
		t.Fatalf("expected error for missing id")
	}
}

func TestCreateSelectSave(t *testing.T) {
	s := newSessions()

	st := decode[StateResult](t, call(t, handleCreateNote(s), nil))
	if st.SelectedID != 4 || st.Title != notes.PlaceholderTitle {
		t.Fatalf("unexpected state after create: %+v", st)
	}

	st = decode[StateResult](t, call(t, handleSelectNote(s), map[string]any{"id": float64(2)}))
	if st.SelectedID != 2 || st.Title != "Project Ideas" {
		t.Fatalf("unexpected state after select: %+v", st)
	}

	st = decode[StateResult](t, call(t, handleSaveNote(s), map[string]any{"title": "Renamed"}))
	if st.Title != "Renamed" || len(st.Notifications) != 1 || st.Notifications[0] != "Note saved successfully!" {
		t.Fatalf("unexpected state after save: %+v", st)
	}
	note := decode[NoteResult](t, call(t, handleGetNote(s), map[string]any{"id": float64(2)}))
	if note.Title != "Renamed" || note.Content == "" {
		t.Fatalf("save should keep content and replace title: %+v", note)
	}
}

func TestSendMessageAndGetChat(t *testing.T) {
	s := newSessions()

	if res := call(t, handleSendMessage(s), map[string]any{"text": "hi"}); res.IsError {
		t.Fatalf("send failed: %s", text(t, res))
	}
	entries := decode[[]ChatEntryResult](t, call(t, handleGetChat(s), nil))
	if len(entries) != 2 {
		t.Fatalf("expected user and assistant entries, got %+v", entries)
	}
	if entries[0].Sender != "user" || entries[0].Text != "hi" {
		t.Fatalf("unexpected user entry: %+v", entries[0])
	}
	if entries[1].Sender != "assistant" || !assistant.IsCanned(entries[1].Text) {
		t.Fatalf("unexpected assistant entry: %+v", entries[1])
	}

	later := decode[[]ChatEntryResult](t, call(t, handleGetChat(s), map[string]any{"after": float64(1)}))
	if len(later) != 1 || later[0].Seq != 2 {
		t.Fatalf("expected only seq 2, got %+v", later)
	}
}

func TestNavigateTool(t *testing.T) {
	s := newSessions()

	st := decode[StateResult](t, call(t, handleNavigate(s), map[string]any{"view": "assistant"}))
	if st.ListVisible || !st.EditorWide {
		t.Fatalf("assistant view should hide the list: %+v", st)
	}
	st = decode[StateResult](t, call(t, handleNavigate(s), map[string]any{"view": "tasks"}))
	if !st.TaskModalOpen {
		t.Fatalf("tasks should open the modal: %+v", st)
	}
	if res := call(t, handleNavigate(s), map[string]any{"view": "settings"}); !res.IsError {
		t.Fatalf("expected error for unknown view")
	}
}

func TestSubmitTaskTool(t *testing.T) {
	s := newSessions()

	if res := call(t, handleSubmitTask(s), map[string]any{"title": ""}); !res.IsError {
		t.Fatalf("expected error for empty title")
	}
	if res := call(t, handleSubmitTask(s), map[string]any{"title": "x", "due_date": "tomorrow"}); !res.IsError {
		t.Fatalf("expected error for bad due date")
	}

	call(t, handleNavigate(s), map[string]any{"view": "tasks"})
	st := decode[StateResult](t, call(t, handleSubmitTask(s), map[string]any{"title": "Ship", "due_date": "2026-10-20"}))
	if st.TaskModalOpen || len(st.Notifications) != 1 || st.Notifications[0] != `Task "Ship" created!` {
		t.Fatalf("unexpected state after submit: %+v", st)
	}
}
