/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

// VoterState is one entry in the displayed voting order.
type VoterState struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Voted   bool   `json:"voted"`
	Current bool   `json:"current"`
}

// Snapshot is everything a client needs to draw a session.
type Snapshot struct {
	State        State         `json:"state"`
	Round        int           `json:"round"`
	Participants []Participant `json:"participants"`
	Needed       int           `json:"needed"`
	Order        []VoterState  `json:"order"`
	CurrentVoter string        `json:"current_voter,omitempty"`
	Candidates   []Participant `json:"candidates"`
	TotalVotes   int           `json:"total_votes"`
	MaxVotes     int           `json:"max_votes"`
	Outcome      Outcome       `json:"outcome"`
	Editing      *EditSession  `json:"editing,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	e := s.engine

	snap := Snapshot{
		State:        e.State(),
		Round:        e.Round(),
		Participants: s.roster.Participants(),
		Candidates:   e.Candidates(),
		TotalVotes:   e.TotalVotes(),
		Outcome:      e.outcome,
	}

	// Roster rows show this round's tally; non-candidates stay at zero.
	for i, p := range snap.Participants {
		if c := e.candidateIndex(p.ID); c >= 0 {
			snap.Participants[i].Votes = e.candidates[c].Votes
		}
	}

	if n := s.roster.Len(); n < MinParticipants {
		snap.Needed = MinParticipants - n
	}

	order := e.Order()
	snap.MaxVotes = len(order)
	snap.Order = make([]VoterState, len(order))
	for i, p := range order {
		snap.Order[i] = VoterState{
			ID:   p.ID,
			Name: p.Name,
		}
		if e.State() == StateAwaitingRoster {
			continue
		}
		snap.Order[i].Voted = i < e.VoterIndex()
		snap.Order[i].Current = e.State() == StateVoting && i == e.VoterIndex()
	}

	if voter, ok := e.CurrentVoter(); ok {
		snap.CurrentVoter = voter.ID
	}

	if s.editing.Active() {
		editing := s.editing
		snap.Editing = &editing
	}

	return snap
}
