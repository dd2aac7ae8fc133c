package votally

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Handle the events in serial order.
func (c *Collector) handle(e Event) error {
	log.Trace().Str("event", e.Type().String()).Msg("collector event received")

	switch e.Type() {
	case BallotEvent:
		return c.onBallot(e)
	case SnapshotEvent:
		return c.onSnapshot(e)
	default:
		return fmt.Errorf("no handler identified for event %s", e.Type())
	}
}

func (c *Collector) onBallot(e Event) error {
	var (
		ok  bool
		sub *submission
		con chan error
	)

	if sub, ok = e.Value().(*submission); !ok {
		return ErrEventTypeError
	}
	if con, ok = e.Source().(chan error); !ok {
		return ErrEventSourceError
	}

	// The tally validates the ballot completely before counting it.
	if err := c.tally.Apply(sub.ballot); err != nil {
		var invalid *InvalidBallotError
		if errors.As(err, &invalid) {
			c.metrics.Reject(invalid.Reason)
		}

		log.Warn().Err(err).Str("session", sub.session).Msg("ballot rejected")
		con <- err
		return nil
	}

	record := c.box.Append(sub.session, sub.ballot)
	c.metrics.Accept(time.Since(sub.received))

	log.Debug().
		Uint64("index", record.Index).
		Str("session", sub.session).
		Str("ballot", sub.ballot.String()).
		Msg("ballot counted")

	con <- nil
	return nil
}

func (c *Collector) onSnapshot(e Event) error {
	con, ok := e.Source().(chan *Snapshot)
	if !ok {
		return ErrEventSourceError
	}

	con <- c.snapshot()
	return nil
}
