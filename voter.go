package votally

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// session is the server side of a single voter connection. Each session runs
// in its own go routine and only communicates with the rest of the poll by
// waiting on broadcast signals and submitting to the collector.
type session struct {
	id     string
	poll   *Poll
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
	logger zerolog.Logger
}

// serveVoter runs the voter protocol over the connection then closes it.
func (p *Poll) serveVoter(conn net.Conn) {
	defer p.voters.Done()
	defer conn.Close()

	s := &session{
		id:     uuid.NewString(),
		poll:   p,
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
	s.logger = log.With().Str("session", s.id).Str("voter", conn.RemoteAddr().String()).Logger()

	p.metrics.Connect()
	s.logger.Debug().Msg("voter connected")

	if err := s.run(); err != nil {
		s.fail(err)
		return
	}
	s.logger.Debug().Msg("voter session complete")
}

func (s *session) run() (err error) {
	// Registering: describe the election to the voter
	var info []byte
	if info, err = s.poll.info.Encode(); err != nil {
		return err
	}

	if _, err = s.writer.Write(info); err != nil {
		return &ConnectionError{Op: "send info", Err: err}
	}
	if err = s.writer.Flush(); err != nil {
		return &ConnectionError{Op: "send info", Err: err}
	}

	// Wait for balloting to open
	select {
	case <-s.poll.opened.Done():
	case <-s.poll.cancelled.Done():
		return ErrPollCancelled
	}

	if s.poll.closed.fired() {
		return ErrLateBallot
	}

	if err = writeLine(s.writer, ""); err != nil {
		return &ConnectionError{Op: "open balloting", Err: err}
	}

	// Balloting: read exactly one ballot
	var line string
	received := time.Now()
	if line, err = s.readBallot(); err != nil {
		return err
	}

	var ballot Ballot
	if ballot, err = ParseBallot(s.poll.info.Form, line); err != nil {
		// Ballots rejected by the tally are counted by the collector.
		var invalid *InvalidBallotError
		if errors.As(err, &invalid) {
			s.poll.metrics.Reject(invalid.Reason)
		}
		return err
	}

	if err = s.poll.collector.Submit(s.id, ballot, received); err != nil {
		return err
	}

	// Closed: wait for the published result
	<-s.poll.resulted.Done()
	if s.poll.resultErr != nil {
		return s.poll.resultErr
	}

	winner := ""
	if s.poll.result.HasWinner() {
		winner = s.poll.result.Winner
	}

	if err = writeLine(s.writer, winner); err != nil {
		return &ConnectionError{Op: "send result", Err: err}
	}
	return nil
}

// readBallot reads the ballot line, giving up when the voter timeout elapses
// or as soon as balloting closes.
func (s *session) readBallot() (string, error) {
	if s.poll.timeout > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.poll.timeout))
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-s.poll.closed.Done():
			s.conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	line, err := readLine(s.reader)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			if s.poll.closed.fired() {
				return "", ErrLateBallot
			}
			return "", ErrTimeout
		}
		return "", &ConnectionError{Op: "read ballot", Err: err}
	}

	// Clear the deadline so the result can be sent after a long count.
	s.conn.SetReadDeadline(time.Time{})
	return line, nil
}

// fail logs the error that ended the session, counts it and, if the
// connection is still usable, reports it to the voter before closing.
func (s *session) fail(err error) {
	var (
		invalid *InvalidBallotError
		conn    *ConnectionError
	)

	switch {
	case errors.As(err, &conn):
		s.poll.metrics.Drop()
		s.logger.Warn().Err(err).Msg("voter connection lost")
		return
	case errors.As(err, &invalid):
		s.logger.Info().Err(err).Msg("invalid ballot")
	case errors.Is(err, ErrLateBallot):
		s.poll.metrics.Late()
		s.logger.Info().Err(err).Msg("ballot arrived after balloting closed")
	case errors.Is(err, ErrPollCancelled):
		s.logger.Info().Err(err).Msg("voter session ended")
	case errors.Is(err, ErrTimeout):
		s.poll.metrics.Drop()
		s.logger.Info().Err(err).Msg("voter timed out")
	default:
		s.logger.Error().Err(err).Msg("voter session failed")
	}

	if werr := writeLine(s.writer, fmt.Sprintf("%s %s", errorPrefix, err)); werr != nil {
		s.logger.Debug().Err(werr).Msg("could not report error to voter")
	}
}
