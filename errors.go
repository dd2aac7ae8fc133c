package votally

import (
	"errors"
	"fmt"
)

// Standard errors for primary operations.
var (
	ErrActorClosed         = errors.New("actor is closed and not accepting events")
	ErrEventTypeError      = errors.New("captured event with wrong value type")
	ErrEventSourceError    = errors.New("captured event with wrong source type")
	ErrNotListening        = errors.New("poll is not listening for voters")
	ErrNoChoices           = errors.New("cannot tally an election without choices")
	ErrTooFewChoices       = errors.New("an election needs at least two choices")
	ErrDuplicateChoice     = errors.New("choices must be unique")
	ErrInvalidChoice       = errors.New("choice names must be non-empty and cannot contain commas, newlines or a leading '!'")
	ErrLateBallot          = errors.New("balloting is closed, ballot not counted")
	ErrTimeout             = errors.New("timed out waiting for voter")
	ErrAlreadyStarted      = errors.New("balloting has already started")
	ErrBallotingNotStarted = errors.New("balloting has not started")
	ErrAlreadyClosed       = errors.New("balloting is already closed")
	ErrBallotingOpen       = errors.New("result is unavailable until balloting is closed")
	ErrPollCancelled       = errors.New("poll was cancelled")
	ErrMalformedInfo       = errors.New("could not parse poll information from server")
)

//===========================================================================
// Structured Errors
//===========================================================================

// UnknownVotingSystemError is returned when a voting method name is not in the
// registry. It is fatal to poll construction.
type UnknownVotingSystemError struct {
	Name string
}

func (e *UnknownVotingSystemError) Error() string {
	return fmt.Sprintf("unknown voting system %q", e.Name)
}

// Reasons a ballot can be rejected.
const (
	MalformedInput Reason = iota
	UnknownCandidate
	DuplicateSelection
)

var reasonStrings = [...]string{
	"malformed input", "unknown candidate", "duplicate selection",
}

// Reason enumerates why a ballot was found invalid.
type Reason uint8

// String returns a human readable representation of the reason.
func (r Reason) String() string {
	if int(r) < len(reasonStrings) {
		return reasonStrings[r]
	}
	return "unknown reason"
}

// InvalidBallotError describes a ballot that could not be tallied. Choice holds
// the offending candidate or input, if any.
type InvalidBallotError struct {
	Reason Reason
	Choice string
}

func (e *InvalidBallotError) Error() string {
	if e.Choice == "" {
		return fmt.Sprintf("invalid ballot: %s", e.Reason)
	}
	return fmt.Sprintf("invalid ballot: %s %q", e.Reason, e.Choice)
}

// Is allows errors.Is to match invalid ballot errors by reason alone.
func (e *InvalidBallotError) Is(target error) bool {
	t, ok := target.(*InvalidBallotError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason && (t.Choice == "" || t.Choice == e.Choice)
}

func invalidBallot(reason Reason, choice string) error {
	return &InvalidBallotError{Reason: reason, Choice: choice}
}

// ConnectionError wraps an I/O failure on a voter socket.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %s", e.Op, e.Err)
}

// Unwrap the underlying I/O error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ServerError is a rejection message sent by the poll server to a voter.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("poll server: %s", e.Message)
}

// Errors that the server reports to voters by message and that clients can
// match with errors.Is.
var serverErrors = []error{ErrLateBallot, ErrTimeout, ErrPollCancelled}

// Unwrap returns the sentinel error the server reported, if recognized.
func (e *ServerError) Unwrap() error {
	for _, err := range serverErrors {
		if e.Message == err.Error() {
			return err
		}
	}
	return nil
}
