package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartnotes/internal/notes"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates an MCP server whose tools drive the notes UI. Every MCP
// client session gets its own controller.
func NewServer(sessions *notes.Sessions) *server.MCPServer {
	s := server.NewMCPServer(
		"Smart Notes",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Tool: list_notes - The note list as rendered
	s.AddTool(
		mcp.NewTool("list_notes",
			mcp.WithDescription("List notes in display order (newest first). The selected note is marked active."),
		),
		handleListNotes(sessions),
	)

	// Tool: get_note - Full note by ID
	s.AddTool(
		mcp.NewTool("get_note",
			mcp.WithDescription("Get a note's title, content, date and category by its ID."),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Note ID"),
			),
		),
		handleGetNote(sessions),
	)

	// Tool: select_note - Select and load into the editor
	s.AddTool(
		mcp.NewTool("select_note",
			mcp.WithDescription("Select a note and load it into the editor."),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Note ID"),
			),
		),
		handleSelectNote(sessions),
	)

	// Tool: save_note - Write the editor back into the selected note
	s.AddTool(
		mcp.NewTool("save_note",
			mcp.WithDescription("Save the selected note. Title and content replace the editor fields when given."),
			mcp.WithString("title",
				mcp.Description("Optional: new title"),
			),
			mcp.WithString("content",
				mcp.Description("Optional: new content (HTML)"),
			),
		),
		handleSaveNote(sessions),
	)

	// Tool: create_note - New placeholder note
	s.AddTool(
		mcp.NewTool("create_note",
			mcp.WithDescription("Create a new placeholder note at the top of the list and select it."),
		),
		handleCreateNote(sessions),
	)

	// Tool: send_message - Chat with the assistant
	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send a chat message to the assistant. The reply arrives after a short delay; read it with get_chat."),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Message text"),
			),
		),
		handleSendMessage(sessions),
	)

	// Tool: get_chat - Chat entries
	s.AddTool(
		mcp.NewTool("get_chat",
			mcp.WithDescription("Get chat entries, optionally only those after a sequence number."),
			mcp.WithNumber("after",
				mcp.Description("Only return entries with a higher sequence number (default: 0)"),
			),
		),
		handleGetChat(sessions),
	)

	// Tool: navigate - Switch view
	s.AddTool(
		mcp.NewTool("navigate",
			mcp.WithDescription("Switch between the notes, tasks and assistant views."),
			mcp.WithString("view",
				mcp.Required(),
				mcp.Enum(string(notes.ViewNotes), string(notes.ViewTasks), string(notes.ViewAssistant)),
				mcp.Description("Target view"),
			),
		),
		handleNavigate(sessions),
	)

	// Tool: submit_task - Task modal submit
	s.AddTool(
		mcp.NewTool("submit_task",
			mcp.WithDescription("Submit the task form. Tasks are confirmed but not stored."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Task title"),
			),
			mcp.WithString("due_date",
				mcp.Description("Optional: due date (YYYY-MM-DD)"),
			),
			mcp.WithString("priority",
				mcp.Enum(notes.PriorityLow, notes.PriorityMedium, notes.PriorityHigh),
				mcp.Description("Optional: priority (default: medium)"),
			),
			mcp.WithString("description",
				mcp.Description("Optional: description"),
			),
		),
		handleSubmitTask(sessions),
	)

	return s
}

// NoteResult represents a note in tool responses
type NoteResult struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

// ListItemResult represents a row of the note list
type ListItemResult struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Preview string `json:"preview"`
	Active  bool   `json:"active"`
}

// ChatEntryResult represents a chat bubble
type ChatEntryResult struct {
	Seq    int       `json:"seq"`
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
	Time   string    `json:"time"`
}

// StateResult is returned by tools that change the UI
type StateResult struct {
	SelectedID    int      `json:"selectedId"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	ListVisible   bool     `json:"listVisible"`
	EditorWide    bool     `json:"editorWide"`
	TaskModalOpen bool     `json:"taskModalOpen"`
	Notifications []string `json:"notifications,omitempty"`
}

func controllerFor(ctx context.Context, sessions *notes.Sessions) *notes.Controller {
	key := "mcp"
	if cs := server.ClientSessionFromContext(ctx); cs != nil && cs.SessionID() != "" {
		key = "mcp-" + cs.SessionID()
	}
	return sessions.Get(key)
}

func jsonResult(v any) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data))
}

func stateOf(ctrl *notes.Controller) StateResult {
	ed := ctrl.Editor()
	layout := ctrl.Layout()
	return StateResult{
		SelectedID:    ctrl.SelectedID(),
		Title:         ed.Title,
		Content:       ed.Content,
		ListVisible:   layout.ListVisible,
		EditorWide:    layout.EditorWide,
		TaskModalOpen: layout.TaskModalOpen,
		Notifications: ctrl.TakeNotifications(),
	}
}

func handleListNotes(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		items := controllerFor(ctx, sessions).RenderList()

		results := make([]ListItemResult, len(items))
		for i, it := range items {
			results[i] = ListItemResult{
				ID:      it.ID,
				Title:   it.Title,
				Date:    it.Date,
				Preview: it.Preview,
				Active:  it.Active,
			}
		}
		return jsonResult(results), nil
	}
}

func handleGetNote(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		note, err := controllerFor(ctx, sessions).Note(id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get note: %v", err)), nil
		}

		return jsonResult(NoteResult{
			ID:       note.ID,
			Title:    note.Title,
			Content:  note.Content,
			Date:     note.Date,
			Category: note.Category,
		}), nil
	}
}

func handleSelectNote(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}

		ctrl := controllerFor(ctx, sessions)
		if err := ctrl.Dispatch(ctx, notes.Event{Kind: notes.EventSelectNote, NoteID: id}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to select note: %v", err)), nil
		}
		return jsonResult(stateOf(ctrl)), nil
	}
}

func handleSaveNote(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctrl := controllerFor(ctx, sessions)

		ed := ctrl.Editor()
		ed.Title = req.GetString("title", ed.Title)
		ed.Content = req.GetString("content", ed.Content)

		if err := ctrl.Dispatch(ctx, notes.Event{Kind: notes.EventSaveNote, Editor: &ed}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save note: %v", err)), nil
		}
		return jsonResult(stateOf(ctrl)), nil
	}
}

func handleCreateNote(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctrl := controllerFor(ctx, sessions)
		if err := ctrl.Dispatch(ctx, notes.Event{Kind: notes.EventNewNote}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create note: %v", err)), nil
		}
		return jsonResult(stateOf(ctrl)), nil
	}
}

func handleSendMessage(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError("text is required"), nil
		}

		ctrl := controllerFor(ctx, sessions)
		if err := ctrl.Dispatch(ctx, notes.Event{Kind: notes.EventSendMessage, Text: text}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to send message: %v", err)), nil
		}
		return mcp.NewToolResultText("message sent"), nil
	}
}

func handleGetChat(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		entries := controllerFor(ctx, sessions).ChatEntries(req.GetInt("after", 0))

		results := make([]ChatEntryResult, len(entries))
		for i, e := range entries {
			results[i] = ChatEntryResult{
				Seq:    e.Seq,
				Sender: string(e.Sender),
				Text:   e.Text,
				At:     e.At,
				Time:   e.TimeLabel(),
			}
		}
		return jsonResult(results), nil
	}
}

func handleNavigate(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		view, err := req.RequireString("view")
		if err != nil {
			return mcp.NewToolResultError("view is required"), nil
		}

		ctrl := controllerFor(ctx, sessions)
		if err := ctrl.Dispatch(ctx, notes.Event{Kind: notes.EventNavigate, View: notes.View(view)}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to navigate: %v", err)), nil
		}
		return jsonResult(stateOf(ctrl)), nil
	}
}

func handleSubmitTask(sessions *notes.Sessions) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		form := notes.TaskForm{
			Title:       req.GetString("title", ""),
			DueDate:     req.GetString("due_date", ""),
			Priority:    req.GetString("priority", notes.PriorityMedium),
			Description: req.GetString("description", ""),
		}

		if form.DueDate != "" {
			if _, err := parseDate(form.DueDate); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid 'due_date' format: %v", err)), nil
			}
		}

		ctrl := controllerFor(ctx, sessions)
		err := ctrl.Dispatch(ctx, notes.Event{Kind: notes.EventSubmitTask, Task: form})
		if errors.Is(err, notes.ErrTaskTitleRequired) {
			return mcp.NewToolResultError("title is required"), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to submit task: %v", err)), nil
		}
		return jsonResult(stateOf(ctrl)), nil
	}
}

// Helper functions

func parseDate(s string) (time.Time, error) {
	// Try RFC3339 first
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}

	// Try YYYY-MM-DD
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339 format")
}
