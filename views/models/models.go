package models

// NoteItemView represents one row of the note list
type NoteItemView struct {
	ID      int
	Title   string
	Date    string
	Preview string
	Active  bool
}

// EditorView represents the title field and the rich content editor
type EditorView struct {
	NoteID      int
	Title       string
	ContentHTML string // sanitised
}

// ChatEntryView represents a rendered chat bubble
type ChatEntryView struct {
	Seq    int
	Sender string
	HTML   string
	Time   string
}

// LayoutView represents which regions are visible
type LayoutView struct {
	ListVisible bool
	EditorWide  bool
}

// WorkspaceView represents the note list and editor columns
type WorkspaceView struct {
	Layout LayoutView
	Notes  []NoteItemView
	Editor EditorView
}

// TaskModalView represents the task-creation dialog
type TaskModalView struct {
	Open        bool
	Title       string
	DueDate     string
	Priority    string
	Description string
	Error       string
}

// PageView represents the whole page
type PageView struct {
	Workspace WorkspaceView
	Chat      []ChatEntryView
	LastSeq   int
	Modal     TaskModalView
	Toasts    []string
}
