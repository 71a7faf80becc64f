/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

// EditSession is the in-place edit of a single roster cell. A zero EditSession
// means nothing is being edited.
type EditSession struct {
	ParticipantID string `json:"participant_id"`
	Field         Field  `json:"field"`
	Draft         string `json:"draft"`
}

func (es EditSession) Active() bool {
	return es.ParticipantID != ""
}

// Session is one movie night: a roster, the engine voting on it, and any
// edit in progress. Every roster change restarts voting from scratch.
// It is not safe for concurrent use.
type Session struct {
	opts    Options
	roster  *Roster
	engine  *Engine
	editing EditSession
}

func NewSession(opts Options) *Session {
	return &Session{
		opts:   opts,
		roster: NewRoster(),
		engine: NewEngine(opts),
	}
}

func (s *Session) Roster() *Roster {
	return s.roster
}

func (s *Session) Engine() *Engine {
	return s.engine
}

func (s *Session) Editing() EditSession {
	return s.editing
}

func (s *Session) rosterChanged() {
	s.engine.Reset(s.roster.Participants())
}

func (s *Session) AddParticipant(name, movie string) (Participant, error) {
	p, err := s.roster.Add(name, movie)
	if err != nil {
		return Participant{}, err
	}

	s.rosterChanged()

	return p, nil
}

func (s *Session) EditParticipant(id string, f Field, value string) error {
	if err := s.roster.Edit(id, f, value); err != nil {
		return err
	}

	s.rosterChanged()

	return nil
}

// RemoveParticipant is a no-op for unknown IDs; only an actual removal
// restarts voting.
func (s *Session) RemoveParticipant(id string) bool {
	if !s.roster.Remove(id) {
		return false
	}

	if s.editing.ParticipantID == id {
		s.editing = EditSession{}
	}

	s.rosterChanged()

	return true
}

// BeginEdit opens an edit on one cell, seeding the draft with its current value.
// Any edit already in progress is discarded.
func (s *Session) BeginEdit(id string, f Field) error {
	if f != FieldName && f != FieldMovie {
		return ErrUnknownField
	}

	p, ok := s.roster.Get(id)
	if !ok {
		return ErrUnknownParticipant
	}

	s.editing = EditSession{
		ParticipantID: id,
		Field:         f,
		Draft:         p.value(f),
	}

	return nil
}

func (s *Session) UpdateDraft(value string) error {
	if !s.editing.Active() {
		return ErrNotEditing
	}

	s.editing.Draft = value

	return nil
}

// CommitEdit applies the draft. On failure the edit stays open so the draft
// can be corrected.
func (s *Session) CommitEdit() error {
	if !s.editing.Active() {
		return ErrNotEditing
	}

	if err := s.EditParticipant(s.editing.ParticipantID, s.editing.Field, s.editing.Draft); err != nil {
		return err
	}

	s.editing = EditSession{}

	return nil
}

func (s *Session) CancelEdit() {
	s.editing = EditSession{}
}

func (s *Session) CastVote(voterID, votedForID string) error {
	return s.engine.CastVote(voterID, votedForID)
}

func (s *Session) AdvanceTieBreak() error {
	return s.engine.AdvanceTieBreak()
}

// Reset throws away everything, leaving an empty roster.
func (s *Session) Reset() {
	s.roster.clear()
	s.editing = EditSession{}
	s.rosterChanged()
}
