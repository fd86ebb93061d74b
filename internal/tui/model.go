package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"smartnotes/internal/notes"
)

type focusArea int

const (
	focusList focusArea = iota
	focusTitle
	focusContent
	focusChat
)

type taskField int

const (
	taskTitleField taskField = iota
	taskDueField
	taskPriorityField
	taskDescriptionField
	taskFieldCount
)

var priorities = []string{notes.PriorityLow, notes.PriorityMedium, notes.PriorityHigh}

// Panel sizes, excluding border and padding.
const (
	listWidth      = 32
	chatWidth      = 44
	panelChrome    = 4
	minEditorWidth = 24
	minPanelHeight = 8
)

// changedMsg is sent when the controller reports a state change, such as a
// deferred assistant reply.
type changedMsg struct{}

// Model represents the TUI state. The controller owns the notes UI state;
// the widgets hold what is being typed.
type Model struct {
	ctrl    *notes.Controller
	changes <-chan struct{}

	// Workspace widgets
	title   textinput.Model
	content textarea.Model
	chatIn  textinput.Model
	chat    viewport.Model

	// Task modal widgets
	taskTitle textinput.Model
	taskDue   textinput.Model
	taskDesc  textinput.Model
	priority  int
	taskFocus taskField
	taskErr   string

	focus    focusArea
	toast    string
	renderer *glamour.TermRenderer
	rendered map[int]string // assistant entries by seq

	width  int
	height int
}

// New creates a model over ctrl. changes is the controller subscription the
// model listens on; nil disables listening.
func New(ctrl *notes.Controller, changes <-chan struct{}) Model {
	title := textinput.New()
	title.Prompt = ""
	title.Placeholder = notes.PlaceholderTitle
	title.CharLimit = 200

	content := textarea.New()
	content.ShowLineNumbers = false
	content.CharLimit = 20000
	content.Placeholder = "Start writing..."

	chatIn := textinput.New()
	chatIn.Prompt = "> "
	chatIn.Placeholder = "Ask the assistant..."

	taskTitle := textinput.New()
	taskTitle.Prompt = ""
	taskTitle.Placeholder = "Task title"

	taskDue := textinput.New()
	taskDue.Prompt = ""
	taskDue.Placeholder = "YYYY-MM-DD"
	taskDue.CharLimit = 10

	taskDesc := textinput.New()
	taskDesc.Prompt = ""
	taskDesc.Placeholder = "Description"

	// Assistant entries fall back to plain text without a renderer.
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(chatWidth-2),
	)

	m := Model{
		ctrl:      ctrl,
		changes:   changes,
		title:     title,
		content:   content,
		chatIn:    chatIn,
		chat:      viewport.New(chatWidth, minPanelHeight),
		taskTitle: taskTitle,
		taskDue:   taskDue,
		taskDesc:  taskDesc,
		focus:     focusList,
		renderer:  renderer,
		rendered:  map[int]string{},
		width:     120,
		height:    32,
	}
	m.loadEditor()
	m.resize()
	m.refreshChat()
	if ctrl.Layout().TaskModalOpen {
		m.openTaskModal()
	}
	return m
}

// Init starts listening for controller changes
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.changes))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.refreshChat()
		return m, nil

	case changedMsg:
		m.refreshChat()
		m.takeToasts()
		return m, waitForChange(m.changes)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.ctrl.Layout().TaskModalOpen {
			return m.updateTaskModal(msg)
		}
		return m.updateWorkspace(msg)
	}

	return m.forward(msg)
}

// forward passes non-key messages such as cursor blinks to the focused widget.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.ctrl.Layout().TaskModalOpen {
		switch m.taskFocus {
		case taskTitleField:
			m.taskTitle, cmd = m.taskTitle.Update(msg)
		case taskDueField:
			m.taskDue, cmd = m.taskDue.Update(msg)
		case taskDescriptionField:
			m.taskDesc, cmd = m.taskDesc.Update(msg)
		}
		return m, cmd
	}
	switch m.focus {
	case focusTitle:
		m.title, cmd = m.title.Update(msg)
	case focusContent:
		m.content, cmd = m.content.Update(msg)
	case focusChat:
		m.chatIn, cmd = m.chatIn.Update(msg)
	}
	return m, cmd
}

func (m Model) updateWorkspace(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+n":
		_ = m.dispatch(notes.Event{Kind: notes.EventNewNote})
		m.loadEditor()
		return m, m.setFocus(focusTitle)
	case "ctrl+s":
		m.save()
		return m, nil
	case "f1":
		return m, m.navigate(notes.ViewNotes)
	case "f2":
		return m, m.navigate(notes.ViewTasks)
	case "f3":
		return m, m.navigate(notes.ViewAssistant)
	case "tab":
		return m, m.cycleFocus(1)
	case "shift+tab":
		return m, m.cycleFocus(-1)
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusList:
		switch msg.String() {
		case "up", "k":
			m.moveSelection(-1)
		case "down", "j":
			m.moveSelection(1)
		case "enter":
			cmd = m.setFocus(focusContent)
		}
	case focusTitle:
		m.title, cmd = m.title.Update(msg)
		m.syncEditor()
	case focusContent:
		m.content, cmd = m.content.Update(msg)
		m.syncEditor()
	case focusChat:
		if msg.String() == "enter" {
			m.sendChat()
			return m, nil
		}
		m.chatIn, cmd = m.chatIn.Update(msg)
		_ = m.dispatch(notes.Event{Kind: notes.EventChatInput, Text: m.chatIn.Value()})
	}
	return m, cmd
}

func (m Model) updateTaskModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		_ = m.dispatch(notes.Event{Kind: notes.EventCloseTaskModal})
		m.blurTask()
		return m, m.setFocus(m.focus)
	case "tab", "down":
		m.taskFocus = (m.taskFocus + 1) % taskFieldCount
		return m, m.focusTaskField()
	case "shift+tab", "up":
		m.taskFocus = (m.taskFocus + taskFieldCount - 1) % taskFieldCount
		return m, m.focusTaskField()
	case "enter":
		return m.submitTask()
	}

	var cmd tea.Cmd
	switch m.taskFocus {
	case taskTitleField:
		m.taskTitle, cmd = m.taskTitle.Update(msg)
	case taskDueField:
		m.taskDue, cmd = m.taskDue.Update(msg)
	case taskPriorityField:
		switch msg.String() {
		case "left", "h":
			m.priority = (m.priority + len(priorities) - 1) % len(priorities)
		case "right", "l", " ":
			m.priority = (m.priority + 1) % len(priorities)
		}
	case taskDescriptionField:
		m.taskDesc, cmd = m.taskDesc.Update(msg)
	}
	_ = m.dispatch(notes.Event{Kind: notes.EventTaskInput, Task: m.taskForm()})
	return m, cmd
}

func (m Model) submitTask() (tea.Model, tea.Cmd) {
	err := m.dispatch(notes.Event{Kind: notes.EventSubmitTask, Task: m.taskForm()})
	if errors.Is(err, notes.ErrTaskTitleRequired) {
		m.taskErr = "Title is required"
		return m, nil
	}
	m.taskErr = ""
	m.blurTask()
	return m, m.setFocus(m.focus)
}

// dispatch sends ev to the controller and surfaces failures in the status
// line. A missing task title is reported inside the modal instead.
func (m *Model) dispatch(ev notes.Event) error {
	err := m.ctrl.Dispatch(context.Background(), ev)
	if err != nil && !errors.Is(err, notes.ErrTaskTitleRequired) {
		m.toast = err.Error()
	}
	m.takeToasts()
	return err
}

func (m *Model) takeToasts() {
	if msgs := m.ctrl.TakeNotifications(); len(msgs) > 0 {
		m.toast = msgs[len(msgs)-1]
	}
}

func (m *Model) save() {
	ed := notes.Editor{Title: m.title.Value(), Content: m.content.Value()}
	if err := m.dispatch(notes.Event{Kind: notes.EventSaveNote, Editor: &ed}); err != nil {
		return
	}
	m.loadEditor()
}

func (m *Model) syncEditor() {
	ed := notes.Editor{Title: m.title.Value(), Content: m.content.Value()}
	_ = m.dispatch(notes.Event{Kind: notes.EventEditNote, Editor: &ed})
}

func (m *Model) loadEditor() {
	ed := m.ctrl.Editor()
	m.title.SetValue(ed.Title)
	m.content.SetValue(ed.Content)
}

func (m *Model) moveSelection(delta int) {
	items := m.ctrl.RenderList()
	if len(items) == 0 {
		return
	}
	idx := 0
	for i, it := range items {
		if it.Active {
			idx = i
			break
		}
	}
	next := idx + delta
	if next < 0 || next >= len(items) {
		return
	}
	if m.dispatch(notes.Event{Kind: notes.EventSelectNote, NoteID: items[next].ID}) == nil {
		m.loadEditor()
	}
}

func (m *Model) sendChat() {
	text := m.chatIn.Value()
	if strings.TrimSpace(text) == "" {
		return
	}
	if m.dispatch(notes.Event{Kind: notes.EventSendMessage, Text: text}) == nil {
		m.chatIn.Reset()
	}
	m.refreshChat()
}

func (m *Model) navigate(v notes.View) tea.Cmd {
	_ = m.dispatch(notes.Event{Kind: notes.EventNavigate, View: v})
	m.resize()
	if v == notes.ViewTasks {
		return m.openTaskModal()
	}
	if m.focus == focusList && !m.ctrl.Layout().ListVisible {
		return m.setFocus(focusTitle)
	}
	return nil
}

func (m *Model) openTaskModal() tea.Cmd {
	f := m.ctrl.TaskForm()
	m.taskTitle.SetValue(f.Title)
	m.taskDue.SetValue(f.DueDate)
	m.taskDesc.SetValue(f.Description)
	m.priority = 1
	for i, p := range priorities {
		if p == f.Priority {
			m.priority = i
		}
	}
	m.taskErr = ""
	m.taskFocus = taskTitleField
	m.title.Blur()
	m.content.Blur()
	m.chatIn.Blur()
	return m.focusTaskField()
}

func (m *Model) focusTaskField() tea.Cmd {
	m.blurTask()
	switch m.taskFocus {
	case taskTitleField:
		return m.taskTitle.Focus()
	case taskDueField:
		return m.taskDue.Focus()
	case taskDescriptionField:
		return m.taskDesc.Focus()
	}
	return nil
}

func (m *Model) blurTask() {
	m.taskTitle.Blur()
	m.taskDue.Blur()
	m.taskDesc.Blur()
}

func (m Model) taskForm() notes.TaskForm {
	return notes.TaskForm{
		Title:       m.taskTitle.Value(),
		DueDate:     m.taskDue.Value(),
		Priority:    priorities[m.priority],
		Description: m.taskDesc.Value(),
	}
}

func (m *Model) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	m.title.Blur()
	m.content.Blur()
	m.chatIn.Blur()
	switch f {
	case focusTitle:
		return m.title.Focus()
	case focusContent:
		return m.content.Focus()
	case focusChat:
		return m.chatIn.Focus()
	}
	return nil
}

func (m *Model) cycleFocus(delta int) tea.Cmd {
	order := []focusArea{focusTitle, focusContent, focusChat}
	if m.ctrl.Layout().ListVisible {
		order = append([]focusArea{focusList}, order...)
	}
	idx := 0
	for i, f := range order {
		if f == m.focus {
			idx = i
		}
	}
	idx = (idx + delta + len(order)) % len(order)
	return m.setFocus(order[idx])
}

func (m Model) editorWidth() int {
	w := m.width - chatWidth - 2*panelChrome
	if m.ctrl.Layout().ListVisible {
		w -= listWidth + panelChrome
	}
	if w < minEditorWidth {
		w = minEditorWidth
	}
	return w
}

func (m Model) panelHeight() int {
	// Borders plus the toast and help lines.
	h := m.height - 4
	if h < minPanelHeight {
		h = minPanelHeight
	}
	return h
}

func (m *Model) resize() {
	ew := m.editorWidth()
	h := m.panelHeight()

	m.title.Width = ew - 1
	m.content.SetWidth(ew)
	m.content.SetHeight(h - 3)

	m.chat.Width = chatWidth
	m.chat.Height = h - 3
	m.chatIn.Width = chatWidth - len(m.chatIn.Prompt) - 1

	m.taskTitle.Width = 40
	m.taskDue.Width = 12
	m.taskDesc.Width = 40
}

func (m *Model) refreshChat() {
	var b strings.Builder
	wrap := lipgloss.NewStyle().Width(chatWidth)
	for _, e := range m.ctrl.ChatEntries(0) {
		label := userLabelStyle.Render("You")
		body := wrap.Render(e.Text)
		if e.Sender == notes.SenderAssistant {
			label = assistantLabelStyle.Render("Assistant")
			body = m.renderMarkdown(e)
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", label, timeStyle.Render(e.TimeLabel()), body)
	}
	m.chat.SetContent(strings.TrimRight(b.String(), "\n"))
	m.chat.GotoBottom()
}

func (m *Model) renderMarkdown(e notes.ChatEntry) string {
	if out, ok := m.rendered[e.Seq]; ok {
		return out
	}
	if m.renderer == nil {
		return e.Text
	}
	out, err := m.renderer.Render(e.Text)
	if err != nil {
		return e.Text
	}
	out = strings.Trim(out, "\n")
	m.rendered[e.Seq] = out
	return out
}

// View renders the TUI
func (m Model) View() string {
	layout := m.ctrl.Layout()

	var cols []string
	if layout.ListVisible {
		cols = append(cols, m.panel(m.focus == focusList, listWidth, m.viewList()))
	}
	cols = append(cols,
		m.panel(m.focus == focusTitle || m.focus == focusContent, m.editorWidth(), m.viewEditor()),
		m.panel(m.focus == focusChat, chatWidth, m.viewChat()),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, cols...)

	if layout.TaskModalOpen {
		body = lipgloss.Place(lipgloss.Width(body), lipgloss.Height(body),
			lipgloss.Center, lipgloss.Center, m.viewTaskModal())
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.viewStatus())
}

func (m Model) panel(focused bool, width int, content string) string {
	style := panelStyle
	if focused {
		style = focusedPanelStyle
	}
	return style.Width(width + 2).Height(m.panelHeight()).Render(content)
}

func (m Model) viewList() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Notes"))
	b.WriteString("\n")
	for _, it := range m.ctrl.RenderList() {
		marker := "  "
		style := listItemStyle
		if it.Active {
			marker = "> "
			style = listActiveStyle
		}
		b.WriteString(style.Render(truncate(marker+it.Title, listWidth)))
		b.WriteString("\n")
		b.WriteString(listPreviewStyle.Render(truncate("  "+it.Date+" · "+it.Preview, listWidth)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewEditor() string {
	return panelTitleStyle.Render("Note") + "\n" + m.title.View() + "\n\n" + m.content.View()
}

func (m Model) viewChat() string {
	return panelTitleStyle.Render("Assistant") + "\n" + m.chat.View() + "\n" + m.chatIn.View()
}

func (m Model) viewTaskModal() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("New Task"))
	b.WriteString("\n\n")
	if m.taskErr != "" {
		b.WriteString(errorStyle.Render(m.taskErr))
		b.WriteString("\n\n")
	}

	field := func(f taskField, label, value string) {
		style := listItemStyle
		if m.taskFocus == f {
			style = listActiveStyle
		}
		b.WriteString(style.Render(label))
		b.WriteString("\n")
		b.WriteString(value)
		b.WriteString("\n\n")
	}
	field(taskTitleField, "Title", m.taskTitle.View())
	field(taskDueField, "Due date", m.taskDue.View())

	opts := make([]string, len(priorities))
	for i, p := range priorities {
		if i == m.priority {
			opts[i] = listActiveStyle.Render("[" + p + "]")
		} else {
			opts[i] = listPreviewStyle.Render(" " + p + " ")
		}
	}
	field(taskPriorityField, "Priority", strings.Join(opts, " "))
	field(taskDescriptionField, "Description", m.taskDesc.View())

	b.WriteString(statusBarStyle.Render("tab next · enter create · esc close"))
	return modalStyle.Render(b.String())
}

func (m Model) viewStatus() string {
	help := statusBarStyle.Render("ctrl+n new · ctrl+s save · tab focus · f1 notes · f2 task · f3 assistant · ctrl+c quit")
	if m.toast == "" {
		return "\n" + help
	}
	return toastStyle.Render(m.toast) + "\n" + help
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// Run starts the terminal host on ctrl and blocks until the user quits or
// ctx is done.
func Run(ctx context.Context, ctrl *notes.Controller) error {
	changes, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	p := tea.NewProgram(
		New(ctrl, changes),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
