package votally

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Poll phases; transitions only ever move forward.
const (
	Registering Phase = iota // voters connect and receive the choices
	Balloting                // voters submit their ballots
	Closed                   // ballots are drained and the result is published
	Cancelled                // the poll was abandoned before balloting started
)

// Names of the phases for serialization
var phaseStrings = [...]string{
	"registering", "balloting", "closed", "cancelled",
}

//===========================================================================
// Phase Enumeration
//===========================================================================

// Phase is an enumeration of the stages of an election's lifecycle.
type Phase uint8

// String returns a human readable representation of the phase.
func (p Phase) String() string {
	if int(p) < len(phaseStrings) {
		return phaseStrings[p]
	}
	return "unknown"
}

// Terminal returns true if no transition can leave the phase.
func (p Phase) Terminal() bool {
	return p == Closed || p == Cancelled
}

//===========================================================================
// Phase Transitions
//===========================================================================

// setPhase moves the poll into the specified phase, calling the internal
// transition function that checks the current phase and broadcasts the change.
// Only the coordinator calls setPhase, with the poll lock held.
func (p *Poll) setPhase(phase Phase) (err error) {
	switch phase {
	case Balloting:
		err = p.setBallotingPhase()
	case Closed:
		err = p.setClosedPhase()
	case Cancelled:
		err = p.setCancelledPhase()
	default:
		err = fmt.Errorf("cannot transition to the %s phase", phase)
	}

	if err == nil {
		log.Info().Str("poll", p.config.Name).Str("from", p.phase.String()).Str("to", phase.String()).Msg("poll phase changed")
		p.phase = phase
	}

	return err
}

// Opens balloting for every waiting voter session and arms the automatic close
// if the poll has an uptime.
func (p *Poll) setBallotingPhase() error {
	switch p.phase {
	case Balloting:
		return ErrAlreadyStarted
	case Closed:
		return ErrAlreadyClosed
	case Cancelled:
		return ErrPollCancelled
	}

	p.opened.fire()

	if p.deadline != nil {
		p.deadline.Start()
		log.Debug().Dur("uptime", p.deadline.GetDelay()).Msg("balloting will close automatically")
	}
	return nil
}

// Stops the collector from accepting new ballots; ballots already queued are
// still applied before the result is computed.
func (p *Poll) setClosedPhase() error {
	switch p.phase {
	case Registering:
		return ErrBallotingNotStarted
	case Closed:
		return ErrAlreadyClosed
	case Cancelled:
		return ErrPollCancelled
	}

	if p.deadline != nil {
		p.deadline.Stop()
	}

	if err := p.collector.Close(); err != nil {
		return err
	}

	p.closed.fire()
	return nil
}

// Cancelling is only possible before balloting has started, it is the explicit
// terminal state for a poll that never opened.
func (p *Poll) setCancelledPhase() error {
	switch p.phase {
	case Balloting:
		return ErrAlreadyStarted
	case Closed:
		return ErrAlreadyClosed
	case Cancelled:
		return ErrPollCancelled
	}

	if err := p.collector.Close(); err != nil {
		return err
	}

	p.cancelled.fire()
	return nil
}
