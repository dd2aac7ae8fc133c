package votally

// Names of the voting methods.
const (
	PluralityMethod = "plurality"
	ApprovalMethod  = "approval"
)

// Tally holds the running counts of an election and computes its winner. The
// set of tallies is closed: Plurality and Approval are the only variants and
// new methods are added by adding a variant and a registry entry.
//
// NOTE: a Tally is not thread-safe; the ballot collector is its only writer.
type Tally interface {
	Method() string           // the name of the voting method
	Form() BallotForm         // the ballot form voters must use
	Choices() ChoiceSet       // the candidates in declared order
	Apply(Ballot) error       // validate and count a single ballot
	Result() (*Result, error) // compute the winner from the current counts
	Counts() []Count          // snapshot of the per-choice counts
	Total() uint64            // number of ballots counted
	tally()
}

// Count is the number of votes a single choice has received.
type Count struct {
	Choice string `json:"choice"`
	Votes  uint64 `json:"votes"`
}

//===========================================================================
// Shared counting state
//===========================================================================

// counter implements the bookkeeping shared by every tally: a count per
// choice, indexed by the choice's position in the declared order so that
// iteration (and therefore tie-breaking) is deterministic.
type counter struct {
	choices ChoiceSet
	counts  []uint64
	total   uint64
}

func newCounter(choices ChoiceSet) counter {
	return counter{
		choices: choices,
		counts:  make([]uint64, len(choices)),
	}
}

// Validation is completed before any count is touched so that a rejected
// ballot never leaves a partial increment behind.
func (c *counter) apply(form BallotForm, ballot Ballot) error {
	if err := ValidateBallot(form, c.choices, ballot); err != nil {
		return err
	}

	for _, choice := range ballot.Selections() {
		c.counts[c.choices.Index(choice)]++
	}
	c.total++
	return nil
}

func (c *counter) result(method string, form BallotForm) (*Result, error) {
	if len(c.choices) == 0 {
		return nil, ErrNoChoices
	}

	result := &Result{
		Method: method,
		Form:   form,
		Total:  c.total,
		Counts: c.snapshot(),
	}

	// No ballots means no winner rather than a win by declaration order.
	if c.total == 0 {
		return result, nil
	}

	best := 0
	for i, n := range c.counts {
		if n > c.counts[best] {
			best = i
		}
	}

	result.Winner = c.choices[best]
	result.Votes = c.counts[best]
	return result, nil
}

func (c *counter) snapshot() []Count {
	counts := make([]Count, len(c.choices))
	for i, choice := range c.choices {
		counts[i] = Count{Choice: choice, Votes: c.counts[i]}
	}
	return counts
}

//===========================================================================
// Plurality
//===========================================================================

// NewPlurality creates a first-past-the-post tally over the choices.
func NewPlurality(choices ChoiceSet) *Plurality {
	return &Plurality{counter: newCounter(choices)}
}

// Plurality gives one vote per ballot to a single choice; the choice with the
// most votes wins.
type Plurality struct {
	counter
}

// Method implements Tally.
func (t *Plurality) Method() string { return PluralityMethod }

// Form implements Tally.
func (t *Plurality) Form() BallotForm { return Uninominal }

// Choices implements Tally.
func (t *Plurality) Choices() ChoiceSet { return t.choices }

// Apply a uninominal ballot.
func (t *Plurality) Apply(ballot Ballot) error {
	return t.apply(Uninominal, ballot)
}

// Result returns the choice with the most votes.
func (t *Plurality) Result() (*Result, error) {
	return t.result(PluralityMethod, Uninominal)
}

// Counts implements Tally.
func (t *Plurality) Counts() []Count { return t.snapshot() }

// Total implements Tally.
func (t *Plurality) Total() uint64 { return t.total }

func (*Plurality) tally() {}

//===========================================================================
// Approval
//===========================================================================

// NewApproval creates an approval voting tally over the choices.
func NewApproval(choices ChoiceSet) *Approval {
	return &Approval{counter: newCounter(choices)}
}

// Approval gives one vote to every choice a ballot approves of, so a ballot
// approving k choices adds one to each of the k counters. The most approved
// choice wins.
type Approval struct {
	counter
}

// Method implements Tally.
func (t *Approval) Method() string { return ApprovalMethod }

// Form implements Tally.
func (t *Approval) Form() BallotForm { return Approved }

// Choices implements Tally.
func (t *Approval) Choices() ChoiceSet { return t.choices }

// Apply an approved ballot.
func (t *Approval) Apply(ballot Ballot) error {
	return t.apply(Approved, ballot)
}

// Result returns the most approved choice.
func (t *Approval) Result() (*Result, error) {
	return t.result(ApprovalMethod, Approved)
}

// Counts implements Tally.
func (t *Approval) Counts() []Count { return t.snapshot() }

// Total implements Tally.
func (t *Approval) Total() uint64 { return t.total }

func (*Approval) tally() {}
