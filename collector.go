package votally

import (
	"context"
	"errors"
	"time"
)

// NewCollector creates the ballot collector that owns the tally. The collector
// does not start consuming ballots until Run is called.
func NewCollector(tally Tally, metrics *Metrics) *Collector {
	c := &Collector{
		tally:   tally,
		box:     NewBallotBox(),
		metrics: metrics,
		drained: make(chan struct{}),
	}

	if c.metrics == nil {
		c.metrics = NewMetrics()
	}

	c.actor = NewActor(c.handle)
	return c
}

// Collector is the single serialization point between voter sessions and the
// tally. Sessions submit ballots concurrently; the collector applies them one
// at a time in arrival order from its own go routine so that the tally is
// never touched by more than one go routine and needs no locks.
type Collector struct {
	actor   Actor         // queue of submitted ballots and snapshot requests
	tally   Tally         // only written by the actor listener
	box     *BallotBox    // ordered record of applied ballots
	metrics *Metrics      // accepted and rejected ballot counts
	drained chan struct{} // closed once all queued events are handled
	err     error         // error that stopped the listener, if any
}

// Snapshot is a point in time copy of the collector's tally state.
type Snapshot struct {
	Counts  []Count   `json:"counts"`
	Total   uint64    `json:"total"`
	Updated time.Time `json:"updated"`
}

// a ballot waiting on the collector's queue.
type submission struct {
	session  string
	ballot   Ballot
	received time.Time
}

// Run the collector, applying ballots until it is closed and every ballot
// queued before closing has been applied. Must be called exactly once.
func (c *Collector) Run() error {
	defer close(c.drained)
	c.err = c.actor.Listen()
	return c.err
}

// Close the collector so that no new ballots are accepted. Ballots already
// queued are still applied before Drained is signaled. Closing twice is a
// no-op.
func (c *Collector) Close() error {
	if err := c.actor.Close(); err != nil && !errors.Is(err, ErrActorClosed) {
		return err
	}
	return nil
}

// Drained returns a channel that is closed once the collector has stopped and
// applied every queued ballot.
func (c *Collector) Drained() <-chan struct{} {
	return c.drained
}

// Submit a ballot on behalf of a voter session, blocking until the collector
// has applied or rejected it. Returns ErrLateBallot without queueing if the
// collector has already been closed. A ballot that is queued is always
// applied, even if the poll closes while it waits.
func (c *Collector) Submit(session string, ballot Ballot, received time.Time) error {
	reply := make(chan error, 1)
	e := &event{
		etype:  BallotEvent,
		source: reply,
		value:  &submission{session: session, ballot: ballot, received: received},
	}

	if err := c.actor.Dispatch(e); err != nil {
		if errors.Is(err, ErrActorClosed) {
			return ErrLateBallot
		}
		return err
	}

	return <-reply
}

// Snapshot returns the current counts. While the collector is running the
// request is serialized with the ballots through the actor; once drained the
// tally is read directly since it can no longer change.
func (c *Collector) Snapshot(ctx context.Context) (*Snapshot, error) {
	select {
	case <-c.drained:
		return c.snapshot(), nil
	default:
	}

	reply := make(chan *Snapshot, 1)
	if err := c.actor.Dispatch(&event{etype: SnapshotEvent, source: reply}); err != nil {
		if !errors.Is(err, ErrActorClosed) {
			return nil, err
		}

		select {
		case <-c.drained:
			return c.snapshot(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result computes the election result once the collector is drained.
func (c *Collector) Result(ctx context.Context) (*Result, error) {
	select {
	case <-c.drained:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if c.err != nil {
		return nil, c.err
	}
	return c.tally.Result()
}

// Ballots returns the applied ballots in arrival order once drained.
func (c *Collector) Ballots(ctx context.Context) ([]*Record, error) {
	select {
	case <-c.drained:
		return c.box.Records(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Collector) snapshot() *Snapshot {
	return &Snapshot{
		Counts:  c.tally.Counts(),
		Total:   c.tally.Total(),
		Updated: c.box.Updated(),
	}
}
