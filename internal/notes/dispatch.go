package notes

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownEvent = errors.New("unknown event")

// EventKind names a user interaction a host can dispatch.
type EventKind string

const (
	EventSelectNote     EventKind = "select_note"
	EventNewNote        EventKind = "new_note"
	EventEditNote       EventKind = "edit_note"
	EventSaveNote       EventKind = "save_note"
	EventNavigate       EventKind = "navigate"
	EventChatInput      EventKind = "chat_input"
	EventSendMessage    EventKind = "send_message"
	EventTaskInput      EventKind = "task_input"
	EventSubmitTask     EventKind = "submit_task"
	EventCloseTaskModal EventKind = "close_task_modal"
)

// Event carries the payload of one interaction. Only the fields relevant to
// Kind are read.
type Event struct {
	Kind   EventKind
	NoteID int
	Editor *Editor // save_note saves these values when set
	Text   string
	View   View
	Task   TaskForm
}

type eventHandler func(c *Controller, ev Event) error

var eventHandlers = map[EventKind]eventHandler{
	EventSelectNote: func(c *Controller, ev Event) error {
		return c.SelectNote(ev.NoteID)
	},
	EventNewNote: func(c *Controller, _ Event) error {
		c.CreateNewNote()
		return nil
	},
	EventEditNote: func(c *Controller, ev Event) error {
		if ev.Editor != nil {
			c.SetEditor(*ev.Editor)
		}
		return nil
	},
	EventSaveNote: func(c *Controller, ev Event) error {
		if ev.Editor != nil {
			return c.SaveEditor(*ev.Editor)
		}
		return c.SaveCurrentNote()
	},
	EventNavigate: func(c *Controller, ev Event) error {
		v, ok := ParseView(string(ev.View))
		if !ok {
			return fmt.Errorf("navigate to %q: %w", ev.View, ErrUnknownEvent)
		}
		c.Navigate(v)
		return nil
	},
	EventChatInput: func(c *Controller, ev Event) error {
		c.SetChatInput(ev.Text)
		return nil
	},
	EventSendMessage: func(c *Controller, ev Event) error {
		return c.SendAssistantMessage(ev.Text)
	},
	EventTaskInput: func(c *Controller, ev Event) error {
		c.SetTaskForm(ev.Task)
		return nil
	},
	EventSubmitTask: func(c *Controller, ev Event) error {
		return c.SubmitTask(ev.Task)
	},
	EventCloseTaskModal: func(c *Controller, _ Event) error {
		c.CloseTaskModal()
		return nil
	},
}

// Dispatch routes an event to its handler.
func (c *Controller) Dispatch(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, ok := eventHandlers[ev.Kind]
	if !ok {
		return fmt.Errorf("dispatch %q: %w", ev.Kind, ErrUnknownEvent)
	}
	return h(c, ev)
}
