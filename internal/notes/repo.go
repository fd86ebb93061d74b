package notes

import (
	"errors"
	"fmt"
)

var (
	ErrNoteNotFound = errors.New("note not found")
)

// Repo is the in-memory note collection, most recent first. It is not safe for
// concurrent use on its own; the controller serialises access.
type Repo struct {
	notes []Note
	maxID int
}

func NewRepo(seed []Note) *Repo {
	r := &Repo{notes: make([]Note, 0, len(seed))}
	for _, n := range seed {
		r.notes = append(r.notes, n)
		if n.ID > r.maxID {
			r.maxID = n.ID
		}
	}
	return r
}

// Insert assigns the next identifier to n and puts it at the front.
func (r *Repo) Insert(n *Note) {
	r.maxID++
	n.ID = r.maxID
	r.notes = append([]Note{*n}, r.notes...)
}

// FindByID retrieves a copy of the note with the given id.
func (r *Repo) FindByID(id int) (Note, error) {
	i := r.index(id)
	if i < 0 {
		return Note{}, ErrNoteNotFound
	}
	return r.notes[i], nil
}

// Update overwrites the title and content of a note in place.
func (r *Repo) Update(id int, title, content string) error {
	i := r.index(id)
	if i < 0 {
		return fmt.Errorf("update note %d: %w", id, ErrNoteNotFound)
	}
	r.notes[i].Title = title
	r.notes[i].Content = content
	return nil
}

// List returns the notes in display order.
func (r *Repo) List() []Note {
	out := make([]Note, len(r.notes))
	copy(out, r.notes)
	return out
}

// Count returns the number of notes.
func (r *Repo) Count() int {
	return len(r.notes)
}

func (r *Repo) index(id int) int {
	for i := range r.notes {
		if r.notes[i].ID == id {
			return i
		}
	}
	return -1
}
