package votally

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Ballot forms supported by the voting methods.
const (
	Uninominal BallotForm = iota
	Approved
)

var ballotFormStrings = [...]string{"Uninominal", "Approved"}

//===========================================================================
// Ballot Form
//===========================================================================

// BallotForm describes the shape of a single ballot: one choice, or a set of
// approved choices.
type BallotForm uint8

// String returns the protocol name of the ballot form.
func (f BallotForm) String() string {
	if int(f) < len(ballotFormStrings) {
		return ballotFormStrings[f]
	}
	return "Unknown"
}

// ParseBallotForm from its protocol name.
func ParseBallotForm(s string) (BallotForm, error) {
	for i, name := range ballotFormStrings {
		if strings.EqualFold(s, name) {
			return BallotForm(i), nil
		}
	}
	return 0, fmt.Errorf("unknown ballot form %q", s)
}

// MarshalJSON encodes the ballot form by name.
func (f BallotForm) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes the ballot form from its name.
func (f *BallotForm) UnmarshalJSON(data []byte) (err error) {
	var s string
	if err = json.Unmarshal(data, &s); err != nil {
		return err
	}

	*f, err = ParseBallotForm(s)
	return err
}

//===========================================================================
// Ballots
//===========================================================================

// Ballot is a single voter's submission. The set of ballot types is closed:
// only UninominalBallot and ApprovedBallot implement it.
type Ballot interface {
	Form() BallotForm     // the ballot form this ballot takes
	Selections() []string // every choice named on the ballot, in ballot order
	String() string       // the wire representation of the ballot
	ballot()
}

// UninominalBallot names exactly one choice.
type UninominalBallot string

// Form implements Ballot.
func (b UninominalBallot) Form() BallotForm { return Uninominal }

// Selections implements Ballot.
func (b UninominalBallot) Selections() []string { return []string{string(b)} }

// String implements Ballot.
func (b UninominalBallot) String() string { return string(b) }

func (UninominalBallot) ballot() {}

// ApprovedBallot names every choice the voter approves of.
type ApprovedBallot []string

// Form implements Ballot.
func (b ApprovedBallot) Form() BallotForm { return Approved }

// Selections implements Ballot.
func (b ApprovedBallot) Selections() []string { return []string(b) }

// String implements Ballot.
func (b ApprovedBallot) String() string { return strings.Join(b, ",") }

func (ApprovedBallot) ballot() {}

// ParseBallot parses a ballot line read from the wire according to the form
// of the election. Only the shape is checked here, candidates are validated
// against the choices by Validate and by the tally itself.
func ParseBallot(form BallotForm, line string) (Ballot, error) {
	line = strings.TrimSpace(line)
	if line == "" || !utf8.ValidString(line) {
		return nil, invalidBallot(MalformedInput, "")
	}

	switch form {
	case Uninominal:
		if strings.Contains(line, ",") {
			return nil, invalidBallot(MalformedInput, line)
		}
		return UninominalBallot(line), nil
	case Approved:
		fields := strings.Split(line, ",")
		ballot := make(ApprovedBallot, 0, len(fields))
		for _, field := range fields {
			field = strings.TrimSpace(field)
			if field == "" {
				return nil, invalidBallot(MalformedInput, line)
			}
			ballot = append(ballot, field)
		}
		return ballot, nil
	default:
		return nil, fmt.Errorf("cannot parse ballot of form %s", form)
	}
}

// ValidateBallot checks a ballot against the ballot form and choices of an
// election without modifying any state.
func ValidateBallot(form BallotForm, choices ChoiceSet, ballot Ballot) error {
	if ballot == nil || ballot.Form() != form {
		return invalidBallot(MalformedInput, "")
	}

	selections := ballot.Selections()
	if len(selections) == 0 {
		return invalidBallot(MalformedInput, "")
	}

	seen := make(map[string]struct{}, len(selections))
	for _, choice := range selections {
		if !choices.Contains(choice) {
			return invalidBallot(UnknownCandidate, choice)
		}

		if _, ok := seen[choice]; ok {
			return invalidBallot(DuplicateSelection, choice)
		}
		seen[choice] = struct{}{}
	}
	return nil
}
