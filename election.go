package votally

import (
	"fmt"
	"strings"
)

// NoWinner is displayed when an election closes without any ballots.
const NoWinner = "no winner"

//===========================================================================
// Election Results
//===========================================================================

// Result is the outcome of an election. Once computed by the poll it is cached
// and never modified, so it is safe to share between voter sessions.
type Result struct {
	Method string     `json:"method"`           // the voting method that produced the result
	Form   BallotForm `json:"ballot_form"`      // the form of the ballots that were counted
	Winner string     `json:"winner,omitempty"` // the winning choice, empty if no ballots were cast
	Votes  uint64     `json:"votes"`            // the number of votes for the winner
	Total  uint64     `json:"total"`            // the number of ballots counted
	Counts []Count    `json:"counts"`           // the final counts in choice order
}

// HasWinner returns true if at least one ballot was counted.
func (r *Result) HasWinner() bool {
	return r.Winner != ""
}

// Majority computes how many votes are needed for an absolute majority of the
// ballots cast.
func (r *Result) Majority() uint64 {
	return (r.Total / 2) + 1
}

// Passed returns true if the winner received an absolute majority of ballots.
func (r *Result) Passed() bool {
	return r.HasWinner() && r.Votes >= r.Majority()
}

// Tied returns the choices that share the winner's count, including the winner
// itself. The first of them won by declaration order.
func (r *Result) Tied() []string {
	if !r.HasWinner() {
		return nil
	}

	tied := make([]string, 0, 1)
	for _, count := range r.Counts {
		if count.Votes == r.Votes {
			tied = append(tied, count.Choice)
		}
	}
	return tied
}

// String returns the winner or NoWinner.
func (r *Result) String() string {
	if !r.HasWinner() {
		return NoWinner
	}
	return r.Winner
}

// Summary returns a multi-line human readable description of the result.
func (r *Result) Summary() string {
	lines := make([]string, 0, len(r.Counts)+2)
	lines = append(lines, fmt.Sprintf("%s election with %d ballots: %s", r.Method, r.Total, r))

	for _, count := range r.Counts {
		lines = append(lines, fmt.Sprintf("  %-20s %d", count.Choice, count.Votes))
	}

	if tied := r.Tied(); len(tied) > 1 {
		lines = append(lines, fmt.Sprintf("tie between %s broken by choice order", strings.Join(tied, ", ")))
	}
	return strings.Join(lines, "\n")
}
