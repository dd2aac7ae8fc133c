package votally

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ProtocolVersion identifies the wire encoding of the info record. Every line
// of the protocol is newline terminated UTF-8 text:
//
//	server -> voter: info record (single line JSON)
//	server -> voter: blank line when balloting opens
//	voter -> server: one ballot line (a choice, or comma separated choices)
//	server -> voter: the winner, or a blank line if there is no winner
//
// At any point the server may send a line starting with '!' describing why the
// voter's session was rejected, after which the connection is closed.
const ProtocolVersion = "votally/1"

const errorPrefix = "!"

//===========================================================================
// Poll Information
//===========================================================================

// Info is the record sent to every voter on connect describing the election.
type Info struct {
	Version string     `json:"version"`
	Method  string     `json:"method"`
	Form    BallotForm `json:"ballot_form"`
	Choices ChoiceSet  `json:"choices"`
}

// NewInfo describes the election that the tally counts.
func NewInfo(t Tally) *Info {
	return &Info{
		Version: ProtocolVersion,
		Method:  t.Method(),
		Form:    t.Form(),
		Choices: t.Choices(),
	}
}

// ParseInfo decodes and validates an info record line. Empty or malformed
// records are a hard error for the client, never silently defaulted.
func ParseInfo(line string) (*Info, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty info record", ErrMalformedInfo)
	}

	info := new(Info)
	if err := json.Unmarshal([]byte(line), info); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedInfo, err)
	}

	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedInfo, err)
	}
	return info, nil
}

// Validate the info record against the protocol and the method registry.
func (i *Info) Validate() error {
	if i.Version != ProtocolVersion {
		return fmt.Errorf("unsupported protocol version %q", i.Version)
	}

	form, err := Lookup(i.Method)
	if err != nil {
		return err
	}

	if form != i.Form {
		return fmt.Errorf("%s elections use %s ballots not %s", i.Method, form, i.Form)
	}

	return i.Choices.Validate()
}

// Check a ballot against the election without sending it.
func (i *Info) Check(ballot Ballot) error {
	return ValidateBallot(i.Form, i.Choices, ballot)
}

// Encode the info record as a single protocol line.
func (i *Info) Encode() ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// String describes the election to a human voter.
func (i *Info) String() string {
	return fmt.Sprintf(
		"Vote %s\nDifferent choices are %s\nType of ballots: %s",
		i.Method, i.Choices, i.Form,
	)
}

//===========================================================================
// Line helpers
//===========================================================================

// readLine reads a single newline terminated line, without the terminator.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line + "\n"); err != nil {
		return err
	}
	return w.Flush()
}

// parseReply converts a server line into a value or a ServerError.
func parseReply(line string) (string, error) {
	if strings.HasPrefix(line, errorPrefix) {
		return "", &ServerError{Message: strings.TrimSpace(strings.TrimPrefix(line, errorPrefix))}
	}
	return line, nil
}
