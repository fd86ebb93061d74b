package notes

import (
	"strings"
	"time"
)

// Note is a user-authored record shown in the list and the editor.
type Note struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"` // HTML
	Date     string `json:"date"`     // display label, not a timestamp
	Category string `json:"category"`
}

// SeedNotes returns the sample notes a fresh controller starts with.
func SeedNotes() []Note {
	return []Note{
		{ID: 1, Title: "Welcome Note", Content: "Welcome to your new Smart Notes application!", Date: "Today", Category: "General"},
		{ID: 2, Title: "Project Ideas", Content: "Brainstorming for new project ideas...", Date: "Yesterday", Category: "Ideas"},
		{ID: 3, Title: "Meeting Notes", Content: "Discussed project timeline and deliverables...", Date: "2 days ago", Category: "Work"},
	}
}

// Placeholder values for a freshly created note.
const (
	PlaceholderTitle    = "Untitled Note"
	PlaceholderContent  = "Start writing your note here..."
	PlaceholderDate     = "Just now"
	PlaceholderCategory = "General"
)

// ListItem is one rendered row of the note list.
type ListItem struct {
	ID      int
	Title   string
	Date    string
	Preview string
	Active  bool
}

const previewLen = 50

// Sender identifies who authored a chat entry.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// ChatEntry is a rendered chat bubble. Entries live only in the chat panel.
type ChatEntry struct {
	Seq    int
	Text   string
	Sender Sender
	At     time.Time
}

// TimeLayout formats the timestamp label under each chat bubble.
const TimeLayout = "03:04 PM"

func (e ChatEntry) TimeLabel() string {
	return e.At.Format(TimeLayout)
}

// Editor mirrors the editable title field and rich content editor.
type Editor struct {
	Title   string
	Content string
}

// View is a navigation target.
type View string

const (
	ViewNotes     View = "notes"
	ViewTasks     View = "tasks"
	ViewAssistant View = "assistant"
)

// ParseView maps a navigation target name to a View.
func ParseView(s string) (View, bool) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewNotes:
		return ViewNotes, true
	case ViewTasks:
		return ViewTasks, true
	case ViewAssistant, "ai":
		return ViewAssistant, true
	}
	return "", false
}

// Layout tracks which regions are visible.
type Layout struct {
	ListVisible   bool
	EditorWide    bool
	TaskModalOpen bool
}

// AssistantView reports whether the assistant view is active.
func (l Layout) AssistantView() bool {
	return !l.ListVisible && l.EditorWide
}

func defaultLayout() Layout {
	return Layout{ListVisible: true}
}

// Task priorities offered by the task form.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// TaskForm holds the task modal fields. Tasks are never stored.
type TaskForm struct {
	Title       string `json:"title"`
	DueDate     string `json:"dueDate"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

func emptyTaskForm() TaskForm {
	return TaskForm{Priority: PriorityMedium}
}
