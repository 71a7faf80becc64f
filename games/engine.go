/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import "fmt"

// State is where the engine sits in the voting lifecycle.
type State string

const (
	StateAwaitingRoster State = "awaiting_roster"
	StateVoting         State = "voting"
	StateComplete       State = "complete"
	StateTieBreak       State = "tie_break"
)

// VoterScope decides who votes in a tie-breaker round.
type VoterScope string

const (
	// VotersTied limits the voting order to the tied participants.
	VotersTied VoterScope = "tied"
	// VotersAll keeps everyone from the previous round in the voting order.
	VotersAll VoterScope = "all"
)

func ParseVoterScope(s string) (VoterScope, error) {
	switch VoterScope(s) {
	case VotersTied, VotersAll:
		return VoterScope(s), nil
	}
	return "", fmt.Errorf("invalid tie-break voter scope %q (must be %q or %q)", s, VotersTied, VotersAll)
}

type Options struct {
	// Seed for the voting order shuffle; 0 picks a random seed.
	Seed uint64
	// ReshuffleTieBreak reshuffles the order at the start of each tie-breaker.
	ReshuffleTieBreak bool
	// TieBreakVoters defaults to VotersTied.
	TieBreakVoters VoterScope
}

// Outcome is a resolved round: either a single winner, or two or more tied
// candidates.
type Outcome struct {
	Winner *Participant  `json:"winner,omitempty"`
	Tied   []Participant `json:"tied,omitempty"`
}

// Engine runs voting rounds over a fixed set of candidates.
// It is not safe for concurrent use.
type Engine struct {
	opts     Options
	shuffler *Shuffler

	state      State
	round      int
	voterIndex int
	order      []Participant // voters, in voting order
	candidates []Participant // movies up for a vote, with this round's tally
	outcome    Outcome
}

func NewEngine(opts Options) *Engine {
	if opts.TieBreakVoters == "" {
		opts.TieBreakVoters = VotersTied
	}

	return &Engine{
		opts:     opts,
		shuffler: NewShuffler(opts.Seed),
		state:    StateAwaitingRoster,
		round:    1,
	}
}

// Reset starts over from round 1 with a freshly shuffled order over participants.
// Fewer than MinParticipants leaves the engine awaiting a roster.
func (e *Engine) Reset(participants []Participant) {
	e.order = zeroed(participants)
	e.shuffler.Shuffle(len(e.order), func(i, j int) {
		e.order[i], e.order[j] = e.order[j], e.order[i]
	})

	e.startRound(1, zeroed(participants))

	if len(participants) < MinParticipants {
		e.state = StateAwaitingRoster
	}
}

// AdvanceTieBreak starts the next round among the tied candidates.
func (e *Engine) AdvanceTieBreak() error {
	if e.state != StateTieBreak {
		return ErrNoTie
	}

	tied := e.outcome.Tied

	if e.opts.TieBreakVoters == VotersTied {
		keep := make(map[string]bool, len(tied))
		for _, p := range tied {
			keep[p.ID] = true
		}

		order := e.order[:0]
		for _, p := range e.order {
			if keep[p.ID] {
				order = append(order, p)
			}
		}
		e.order = order
	}

	if e.opts.ReshuffleTieBreak {
		e.shuffler.Shuffle(len(e.order), func(i, j int) {
			e.order[i], e.order[j] = e.order[j], e.order[i]
		})
	}

	e.startRound(e.round+1, zeroed(tied))

	return nil
}

func (e *Engine) startRound(round int, candidates []Participant) {
	e.round = round
	e.voterIndex = 0
	e.candidates = candidates
	e.outcome = Outcome{}
	e.state = StateVoting
}

// CastVote records voterID's vote for votedForID's movie. Rejected votes leave
// the round untouched; the same voter has to choose again.
func (e *Engine) CastVote(voterID, votedForID string) error {
	if e.state != StateVoting || e.voterIndex >= len(e.order) {
		return ErrNotVoting
	}
	if e.order[e.voterIndex].ID != voterID {
		return ErrOutOfTurn
	}
	if voterID == votedForID {
		return ErrSelfVote
	}

	i := e.candidateIndex(votedForID)
	if i < 0 {
		return ErrNotCandidate
	}

	e.candidates[i].Votes++
	e.voterIndex++

	if e.voterIndex == len(e.order) {
		e.resolve()
	}

	return nil
}

// Resolve returns the outcome of a finished round.
func (e *Engine) Resolve() (Outcome, error) {
	switch e.state {
	case StateComplete, StateTieBreak:
		return e.outcome, nil
	case StateVoting:
		return Outcome{}, ErrRoundInProgress
	default:
		return Outcome{}, ErrNotVoting
	}
}

func (e *Engine) resolve() {
	top := 0
	for _, c := range e.candidates {
		if c.Votes > top {
			top = c.Votes
		}
	}

	var leaders []Participant
	for _, c := range e.candidates {
		if c.Votes == top {
			leaders = append(leaders, c)
		}
	}

	if len(leaders) == 1 {
		winner := leaders[0]
		e.outcome = Outcome{Winner: &winner}
		e.state = StateComplete
		return
	}

	e.outcome = Outcome{Tied: leaders}
	e.state = StateTieBreak
}

func (e *Engine) candidateIndex(id string) int {
	for i, c := range e.candidates {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) State() State {
	return e.state
}

func (e *Engine) Round() int {
	return e.round
}

func (e *Engine) VoterIndex() int {
	return e.voterIndex
}

// CurrentVoter returns whoever is up next, if the round is still collecting votes.
func (e *Engine) CurrentVoter() (Participant, bool) {
	if e.state != StateVoting || e.voterIndex >= len(e.order) {
		return Participant{}, false
	}
	return e.order[e.voterIndex], true
}

func (e *Engine) Order() []Participant {
	out := make([]Participant, len(e.order))
	copy(out, e.order)
	return out
}

func (e *Engine) Candidates() []Participant {
	out := make([]Participant, len(e.candidates))
	copy(out, e.candidates)
	return out
}

func (e *Engine) TotalVotes() int {
	total := 0
	for _, c := range e.candidates {
		total += c.Votes
	}
	return total
}

func zeroed(participants []Participant) []Participant {
	out := make([]Participant, len(participants))
	for i, p := range participants {
		p.Votes = 0
		out[i] = p
	}
	return out
}
