/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"strings"

	"github.com/google/uuid"
)

// MinParticipants is the smallest roster that can be voted on.
const MinParticipants = 3

// Field names an editable participant attribute.
type Field string

const (
	FieldName  Field = "name"
	FieldMovie Field = "movie"
)

// Participant is one registered person and their movie suggestion.
// Votes only counts the current round.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Movie string `json:"movie"`
	Votes int    `json:"votes"`
}

func (p Participant) value(f Field) string {
	if f == FieldName {
		return p.Name
	}
	return p.Movie
}

// Roster is the ordered list of participants, in registration order.
type Roster struct {
	participants []Participant
	newID        func() string
}

func NewRoster() *Roster {
	return &Roster{
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
}

func (r *Roster) Len() int {
	return len(r.participants)
}

// Participants returns a copy of the roster.
func (r *Roster) Participants() []Participant {
	out := make([]Participant, len(r.participants))
	copy(out, r.participants)
	return out
}

func (r *Roster) Get(id string) (Participant, bool) {
	i := r.index(id)
	if i < 0 {
		return Participant{}, false
	}
	return r.participants[i], true
}

func (r *Roster) index(id string) int {
	for i, p := range r.participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// taken reports whether any participant other than skipID already uses value for f.
func (r *Roster) taken(f Field, value, skipID string) bool {
	for _, p := range r.participants {
		if p.ID == skipID {
			continue
		}
		if strings.EqualFold(p.value(f), value) {
			return true
		}
	}
	return false
}

// Add registers a new participant with both values trimmed.
func (r *Roster) Add(name, movie string) (Participant, error) {
	name = strings.TrimSpace(name)
	movie = strings.TrimSpace(movie)

	if name == "" || movie == "" {
		return Participant{}, ErrEmptyField
	}
	if r.taken(FieldName, name, "") {
		return Participant{}, ErrDuplicateName
	}
	if r.taken(FieldMovie, movie, "") {
		return Participant{}, ErrDuplicateMovie
	}

	p := Participant{
		ID:    r.newID(),
		Name:  name,
		Movie: movie,
	}
	r.participants = append(r.participants, p)

	return p, nil
}

// Edit replaces one field of an existing participant.
func (r *Roster) Edit(id string, f Field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmptyField
	}
	if f != FieldName && f != FieldMovie {
		return ErrUnknownField
	}

	i := r.index(id)
	if i < 0 {
		return ErrUnknownParticipant
	}
	if r.taken(f, value, id) {
		return ErrDuplicateEntry
	}

	switch f {
	case FieldName:
		r.participants[i].Name = value
	case FieldMovie:
		r.participants[i].Movie = value
	}

	return nil
}

// Remove drops a participant, reporting whether one was found.
func (r *Roster) Remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.participants = append(r.participants[:i], r.participants[i+1:]...)
	return true
}

func (r *Roster) clear() {
	r.participants = nil
}
