package votally

import "sort"

// votingMethod binds a method name to the ballot form voters must use and the
// constructor of its tally.
type votingMethod struct {
	form   BallotForm
	create func(ChoiceSet) Tally
}

// The registry is intentionally closed: user supplied tally logic is never
// accepted since it could violate the monotonic count invariant.
var registry = map[string]votingMethod{
	PluralityMethod: {
		form:   Uninominal,
		create: func(choices ChoiceSet) Tally { return NewPlurality(choices) },
	},
	ApprovalMethod: {
		form:   Approved,
		create: func(choices ChoiceSet) Tally { return NewApproval(choices) },
	},
}

// Resolve looks up the named voting method, validates the choices and returns
// a fresh tally along with the ballot form that every voter session and client
// must use. Both errors are fatal to poll construction.
func Resolve(name string, choices []string) (Tally, BallotForm, error) {
	method, ok := registry[name]
	if !ok {
		return nil, 0, &UnknownVotingSystemError{Name: name}
	}

	set, err := NewChoiceSet(choices...)
	if err != nil {
		return nil, 0, err
	}

	return method.create(set), method.form, nil
}

// Lookup returns the ballot form of the named voting method.
func Lookup(name string) (BallotForm, error) {
	method, ok := registry[name]
	if !ok {
		return 0, &UnknownVotingSystemError{Name: name}
	}
	return method.form, nil
}

// Methods returns the sorted names of all registered voting methods.
func Methods() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
