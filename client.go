package votally

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Dial connects a voter to the poll server at addr and reads the poll info.
// The context bounds the whole session: when it is cancelled any blocked read
// or write on the connection fails.
func Dial(ctx context.Context, addr string) (*Client, error) {
	dialer := &net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}

	stop := make(chan struct{})
	client := &Client{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		stop:   stop,
	}

	// Unblock the connection when the context is done.
	go func() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()

	if _, err = client.Info(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Client drives the voter side of the poll protocol: receive the info record,
// wait for balloting to open, send one ballot and read the result. Methods
// must be called in that order from a single go routine.
type Client struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	info   *Info
	opened bool
	voted  bool
	stop   chan struct{}
}

// Info returns the election description sent by the server on connect.
func (c *Client) Info() (*Info, error) {
	if c.info != nil {
		return c.info, nil
	}

	line, err := readLine(c.reader)
	if err != nil {
		return nil, &ConnectionError{Op: "receive info", Err: err}
	}

	if line, err = parseReply(line); err != nil {
		return nil, err
	}

	if c.info, err = ParseInfo(line); err != nil {
		return nil, err
	}
	return c.info, nil
}

// WaitOpen blocks until the server signals that balloting has opened, or
// reports why the voter will not be able to vote (e.g. the poll was cancelled).
func (c *Client) WaitOpen() error {
	if c.opened {
		return nil
	}

	line, err := readLine(c.reader)
	if err != nil {
		return &ConnectionError{Op: "wait for balloting", Err: err}
	}

	if line, err = parseReply(line); err != nil {
		return err
	}

	if line != "" {
		return fmt.Errorf("unexpected message while waiting for balloting: %q", line)
	}

	c.opened = true
	return nil
}

// Vote sends the ballot after checking it against the election locally. Only
// one ballot may be sent per connection.
func (c *Client) Vote(ballot Ballot) (err error) {
	if c.voted {
		return errors.New("a ballot has already been cast on this connection")
	}

	if err = c.info.Check(ballot); err != nil {
		return err
	}

	if err = c.WaitOpen(); err != nil {
		return err
	}

	if err = writeLine(c.writer, ballot.String()); err != nil {
		return &ConnectionError{Op: "send ballot", Err: err}
	}

	c.voted = true
	return nil
}

// Result blocks until the server publishes the winner. An empty winner means
// that no ballots were counted. If the server rejected the ballot the error
// is returned instead.
func (c *Client) Result() (string, error) {
	if !c.voted {
		return "", errors.New("cannot read result before voting")
	}

	line, err := readLine(c.reader)
	if err != nil {
		return "", &ConnectionError{Op: "receive result", Err: err}
	}
	return parseReply(line)
}

// Close the connection to the server.
func (c *Client) Close() error {
	select {
	case <-c.stop:
		return nil
	default:
		close(c.stop)
	}
	return c.conn.Close()
}

// Cast connects to the poll server, votes for the choices once balloting opens
// and returns the winner of the election.
func Cast(ctx context.Context, addr string, choices ...string) (winner string, err error) {
	var c *Client
	if c, err = Dial(ctx, addr); err != nil {
		return "", err
	}
	defer c.Close()

	var ballot Ballot
	if ballot, err = NewBallot(c.info.Form, choices...); err != nil {
		return "", err
	}

	if err = c.Vote(ballot); err != nil {
		return "", err
	}

	return c.Result()
}

// NewBallot creates a ballot of the specified form from the selected choices.
func NewBallot(form BallotForm, choices ...string) (Ballot, error) {
	switch form {
	case Uninominal:
		if len(choices) != 1 {
			return nil, invalidBallot(MalformedInput, strings.Join(choices, ","))
		}
		return UninominalBallot(strings.TrimSpace(choices[0])), nil
	case Approved:
		if len(choices) == 0 {
			return nil, invalidBallot(MalformedInput, "")
		}
		ballot := make(ApprovedBallot, 0, len(choices))
		for _, choice := range choices {
			ballot = append(ballot, strings.TrimSpace(choice))
		}
		return ballot, nil
	default:
		return nil, fmt.Errorf("unknown ballot form %s", form)
	}
}

// Prompt asks a human voter for a ballot, describing the election first and
// asking again until a valid ballot is entered or the input is exhausted.
func Prompt(r io.Reader, w io.Writer, info *Info) (Ballot, error) {
	fmt.Fprintln(w, info)
	reader := bufio.NewReader(r)

	for {
		fmt.Fprintln(w, "Enter your choice:")
		line, err := readLine(reader)
		if err != nil {
			return nil, err
		}

		ballot, err := ParseBallot(info.Form, line)
		if err == nil {
			if err = info.Check(ballot); err == nil {
				return ballot, nil
			}
		}
		fmt.Fprintf(w, "%s, try again\n", err)
	}
}
