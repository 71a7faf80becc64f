/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import "errors"

// Rejected roster changes.
var (
	ErrEmptyField         = errors.New("field cannot be empty")
	ErrDuplicateName      = errors.New("name is already taken")
	ErrDuplicateMovie     = errors.New("movie has already been suggested")
	ErrDuplicateEntry     = errors.New("value is already taken")
	ErrUnknownField       = errors.New("unknown field")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// Rejected voting actions.
var (
	ErrSelfVote        = errors.New("cannot vote for your own movie")
	ErrNotVoting       = errors.New("no round is accepting votes")
	ErrOutOfTurn       = errors.New("not this participant's turn to vote")
	ErrNotCandidate    = errors.New("movie is not up for a vote this round")
	ErrRoundInProgress = errors.New("round still has votes outstanding")
	ErrNoTie           = errors.New("no tie to break")
)

// ErrNotEditing is returned when an edit action arrives with no edit in progress.
var ErrNotEditing = errors.New("no edit in progress")
