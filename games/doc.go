// Package games holds the state machines behind each game, free of any transport.
//
// Movie night:
// - Each participant registers a name and a movie suggestion
// - Names and movies must be unique, ignoring case
// - Once at least three participants are registered, voting opens
// - Participants vote one at a time, in a shuffled order, for anyone's movie but their own
// - The movie with the most votes wins
// - On a tie, a tie-breaker round is held among the tied movies only, as often as needed
// - Any change to the roster reshuffles the order and throws away the current round
package games
