package votally

import (
	"fmt"
	"time"
)

// NewBallotBox creates an empty ballot box.
func NewBallotBox() *BallotBox {
	return &BallotBox{
		entries: make([]*Record, 0, 64),
		created: time.Now(),
		updated: time.Now(),
	}
}

// BallotBox records every ballot applied to the tally in the order the
// collector applied it. The box is entirely in-memory; ballots are not
// persisted across restarts.
//
// Note that the ballot box is not thread-safe, and is not intended to be
// accessed from multiple go routines. Instead the box is maintained by the
// collector that updates it sequentially as ballots arrive.
type BallotBox struct {
	entries []*Record // In-memory array of applied ballots
	created time.Time // Timestamp the box was created
	updated time.Time // Timestamp of the last applied ballot
}

// Record is a single applied ballot. Indices start at 1.
type Record struct {
	Index   uint64    `json:"index"`
	Session string    `json:"session"`
	Ballot  Ballot    `json:"-"`
	Applied time.Time `json:"applied"`
}

// String returns a short description of the record for logging.
func (r *Record) String() string {
	return fmt.Sprintf("ballot %d from %s: %s", r.Index, r.Session, r.Ballot)
}

//===========================================================================
// Index Management
//===========================================================================

// Len returns the number of ballots in the box.
func (b *BallotBox) Len() int {
	return len(b.entries)
}

// Get the record at the specified index.
func (b *BallotBox) Get(index uint64) (*Record, error) {
	if index == 0 || index > uint64(len(b.entries)) {
		return nil, fmt.Errorf("ballot box has no record at index %d", index)
	}
	return b.entries[index-1], nil
}

// Last returns the most recently applied record or nil if the box is empty.
func (b *BallotBox) Last() *Record {
	if len(b.entries) == 0 {
		return nil
	}
	return b.entries[len(b.entries)-1]
}

// Updated returns the time the last ballot was applied.
func (b *BallotBox) Updated() time.Time {
	return b.updated
}

//===========================================================================
// Record Management
//===========================================================================

// Append a ballot that has been applied to the tally.
func (b *BallotBox) Append(session string, ballot Ballot) *Record {
	record := &Record{
		Index:   uint64(len(b.entries)) + 1,
		Session: session,
		Ballot:  ballot,
		Applied: time.Now(),
	}

	b.entries = append(b.entries, record)
	b.updated = record.Applied
	return record
}

// Records returns a copy of the applied ballots in arrival order.
func (b *BallotBox) Records() []*Record {
	records := make([]*Record, len(b.entries))
	copy(records, b.entries)
	return records
}
