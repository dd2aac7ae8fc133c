package votally

import (
	"strings"
	"unicode/utf8"
)

// ChoiceSet is the ordered list of candidates in an election. The declared
// order is significant: it is the order choices are displayed in and the order
// that breaks ties. A ChoiceSet is read-only once the poll is created.
type ChoiceSet []string

// NewChoiceSet trims and validates the candidate names, returning an error if
// there are fewer than two choices, if any name is repeated or if a name
// cannot be carried by the wire protocol.
func NewChoiceSet(names ...string) (ChoiceSet, error) {
	choices := make(ChoiceSet, 0, len(names))
	for _, name := range names {
		choices = append(choices, strings.TrimSpace(name))
	}

	if err := choices.Validate(); err != nil {
		return nil, err
	}
	return choices, nil
}

// Validate the invariants of the choice set.
func (c ChoiceSet) Validate() error {
	if len(c) < 2 {
		return ErrTooFewChoices
	}

	seen := make(map[string]struct{}, len(c))
	for _, name := range c {
		if !validChoice(name) {
			return ErrInvalidChoice
		}

		if _, ok := seen[name]; ok {
			return ErrDuplicateChoice
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Index returns the position of the choice in the set or -1 if absent.
func (c ChoiceSet) Index(name string) int {
	for i, choice := range c {
		if choice == name {
			return i
		}
	}
	return -1
}

// Contains returns true if the name is one of the choices.
func (c ChoiceSet) Contains(name string) bool {
	return c.Index(name) >= 0
}

// String joins the choices for display.
func (c ChoiceSet) String() string {
	return strings.Join(c, ", ")
}

func validChoice(name string) bool {
	if name == "" || !utf8.ValidString(name) || name != strings.TrimSpace(name) {
		return false
	}
	if strings.HasPrefix(name, errorPrefix) {
		return false
	}
	return !strings.ContainsAny(name, ",\r\n")
}
