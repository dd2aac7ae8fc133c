package votally

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// New creates a poll from the configuration defaults, a configuration file
// and the environment, updated with the specified options. The voting method
// and the choices are resolved immediately: an unknown method or too few
// choices are fatal and no poll is returned.
func New(options *Config) (poll *Poll, err error) {
	// Create a new configuration from defaults, configuration file, and the
	// environment; verify it returning any errors.
	config := new(Config)
	if err = config.Load(); err != nil {
		return nil, err
	}

	// Update the configuration with the passed in options
	if err = config.Update(options); err != nil {
		return nil, err
	}

	if config.Name, err = config.GetName(); err != nil {
		return nil, err
	}

	var tally Tally
	if tally, _, err = Resolve(config.Method, config.Choices); err != nil {
		return nil, err
	}

	return NewPoll(config, tally)
}

// NewPoll creates a poll that counts ballots with the specified tally. The
// configuration is used as is, without loading defaults.
func NewPoll(config *Config, tally Tally) (*Poll, error) {
	if err := tally.Choices().Validate(); err != nil {
		return nil, err
	}

	timeout, err := config.GetTimeout()
	if err != nil {
		return nil, err
	}

	uptime, err := config.GetUptime()
	if err != nil {
		return nil, err
	}

	poll := &Poll{
		config:    config,
		info:      NewInfo(tally),
		metrics:   NewMetrics(),
		timeout:   timeout,
		opened:    newSignal(),
		closed:    newSignal(),
		cancelled: newSignal(),
		resulted:  newSignal(),
		stopping:  newSignal(),
		served:    newSignal(),
	}

	poll.collector = NewCollector(tally, poll.metrics)

	if uptime > 0 {
		poll.deadline = NewDeadline(uptime, poll.onUptime)
	}

	return poll, nil
}

// Poll coordinates a single election. It owns the phase of the election and
// is the only component that changes it; voter sessions and the collector
// observe phase changes through broadcast signals rather than shared state.
type Poll struct {
	sync.Mutex // guards phase transitions and the listener

	config    *Config    // configuration values
	info      *Info      // the election description sent to every voter
	collector *Collector // the only writer of the tally
	metrics   *Metrics   // voter and ballot statistics
	timeout   time.Duration
	deadline  *Deadline // closes balloting after the uptime, if any
	phase     Phase     // the current phase of the election
	sock      net.Listener
	control   net.Addr
	voters    sync.WaitGroup

	// Broadcast signals, each fired at most once.
	opened    *signal // balloting has begun
	closed    *signal // balloting has ended
	cancelled *signal // the poll was cancelled before balloting
	resulted  *signal // result and resultErr are published
	stopping  *signal // shutdown has been requested
	served    *signal // every go routine started by Serve has returned

	compute   sync.Once
	result    *Result
	resultErr error
}

//===========================================================================
// Control Operations
//===========================================================================

// BeginBalloting opens balloting for every voter, connected or not. It may
// only succeed once: later calls fail with ErrAlreadyStarted (or the error
// of the terminal phase) and never change the phase.
func (p *Poll) BeginBalloting() error {
	p.Lock()
	defer p.Unlock()
	return p.setPhase(Balloting)
}

// EndBalloting closes balloting. Ballots submitted after this point are late
// and are never counted; ballots already submitted are drained into the tally
// before the result is computed. Balloting must have begun.
func (p *Poll) EndBalloting() error {
	p.Lock()
	defer p.Unlock()
	return p.setPhase(Closed)
}

// Cancel abandons the poll before balloting begins; waiting voters are told
// the poll was cancelled.
func (p *Poll) Cancel() error {
	p.Lock()
	defer p.Unlock()
	return p.setPhase(Cancelled)
}

// ComputeResult blocks until balloting is closed and every queued ballot has
// been applied, then computes, caches and publishes the result to all voter
// sessions. Repeated calls return the cached result without recomputation.
func (p *Poll) ComputeResult(ctx context.Context) (*Result, error) {
	switch p.Phase() {
	case Registering, Balloting:
		return nil, ErrBallotingOpen
	case Cancelled:
		return nil, ErrPollCancelled
	}

	select {
	case <-p.collector.Drained():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.compute.Do(func() {
		p.result, p.resultErr = p.collector.Result(context.Background())
		p.resulted.fire()

		if p.resultErr != nil {
			log.Error().Err(p.resultErr).Msg("could not compute election result")
			return
		}

		log.Info().
			Str("winner", p.result.String()).
			Uint64("votes", p.result.Votes).
			Uint64("total", p.result.Total).
			Msg("election result published")
	})

	return p.result, p.resultErr
}

// Phase returns the current phase of the poll.
func (p *Poll) Phase() Phase {
	p.Lock()
	defer p.Unlock()
	return p.phase
}

// Info returns the election description sent to voters.
func (p *Poll) Info() *Info {
	return p.info
}

// Metrics returns the statistics collected by the poll.
func (p *Poll) Metrics() *Metrics {
	return p.metrics
}

// Opened returns a channel that is closed when balloting begins.
func (p *Poll) Opened() <-chan struct{} {
	return p.opened.Done()
}

// Resulted returns a channel that is closed once the result is published.
func (p *Poll) Resulted() <-chan struct{} {
	return p.resulted.Done()
}

// Cancelled returns a channel that is closed if the poll is cancelled.
func (p *Poll) Cancelled() <-chan struct{} {
	return p.cancelled.Done()
}

// Ballots returns every counted ballot in the order it was applied. Only
// available once balloting is closed and drained.
func (p *Poll) Ballots(ctx context.Context) ([]*Record, error) {
	if !p.closed.fired() {
		return nil, ErrBallotingOpen
	}
	return p.collector.Ballots(ctx)
}

// Status describes the poll at a point in time.
type Status struct {
	Name     string    `json:"name"`
	Phase    Phase     `json:"-"`
	Info     *Info     `json:"info"`
	Voters   uint64    `json:"voters"`
	Rejected uint64    `json:"rejected"`
	Late     uint64    `json:"late"`
	Closes   time.Time `json:"closes"` // automatic close of balloting, zero if none
	Snapshot *Snapshot `json:"snapshot"`
	Result   *Result   `json:"result,omitempty"`
}

// Status returns the phase, counts and voter statistics of the poll. Counts
// are only available once the poll is serving voters.
func (p *Poll) Status(ctx context.Context) (status *Status, err error) {
	status = &Status{
		Name:     p.config.Name,
		Phase:    p.Phase(),
		Info:     p.info,
		Voters:   p.metrics.Voters(),
		Rejected: p.metrics.Rejected(),
		Late:     p.metrics.LateBallots(),
	}

	if p.deadline != nil {
		status.Closes = p.deadline.Expires()
	}

	if !p.listening() {
		return status, nil
	}

	if status.Snapshot, err = p.collector.Snapshot(ctx); err != nil {
		return nil, err
	}

	if p.resulted.fired() {
		status.Result = p.result
	}
	return status, nil
}

//===========================================================================
// Serving Voters
//===========================================================================

// Listen for voters on the configured address and serve them until the
// context is cancelled or the poll is shut down.
func (p *Poll) Listen(ctx context.Context) error {
	addr := p.config.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", DefaultPort)
	}

	sock, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}

	return p.Serve(ctx, sock)
}

// Serve voters that connect on the listener. Serve runs the ballot collector,
// the accept loop, the control service if configured and the result publisher,
// and only returns once all of them and every voter session have finished.
// A poll can only be served once.
func (p *Poll) Serve(ctx context.Context, sock net.Listener) (err error) {
	p.Lock()
	if p.sock != nil {
		p.Unlock()
		sock.Close()
		return errors.New("poll is already serving voters")
	}
	p.sock = sock
	p.Unlock()

	defer p.served.fire()
	log.Info().Str("poll", p.config.Name).Str("addr", sock.Addr().String()).Msg("listening for voters")

	group, gctx := errgroup.WithContext(ctx)

	// The collector is the only reader of the ballot queue
	group.Go(p.collector.Run)

	// Accept voters until the listener is closed
	group.Go(func() error {
		return p.accept(sock)
	})

	// Publish the result as soon as balloting closes and the queue is drained
	group.Go(func() error {
		select {
		case <-p.closed.Done():
			_, err := p.ComputeResult(context.Background())
			return err
		case <-p.cancelled.Done():
			return nil
		}
	})

	// Terminate the poll when the context is cancelled or shutdown is requested
	group.Go(func() error {
		select {
		case <-gctx.Done():
		case <-p.stopping.Done():
		}
		return p.terminate(sock)
	})

	if p.config.Control != "" {
		group.Go(func() error {
			return p.serveControl(gctx)
		})
	}

	err = group.Wait()
	p.voters.Wait()

	if p.config.Metrics != "" {
		if derr := p.metrics.Dump(p.config.Metrics, map[string]interface{}{"poll": p.config.Name, "method": p.info.Method}); derr != nil {
			log.Warn().Err(derr).Str("path", p.config.Metrics).Msg("could not dump metrics")
		}
	}

	log.Info().Str("poll", p.config.Name).Msg(p.metrics.String())
	return err
}

// Shutdown stops accepting voters, closes balloting (or cancels the poll if it
// never opened), publishes the result and waits for every voter session and
// the collector to finish.
func (p *Poll) Shutdown(ctx context.Context) error {
	if !p.listening() {
		return ErrNotListening
	}

	p.stopping.fire()
	select {
	case <-p.served.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the address the poll is listening on, nil if not listening.
func (p *Poll) Addr() net.Addr {
	p.Lock()
	defer p.Unlock()

	if p.sock == nil {
		return nil
	}
	return p.sock.Addr()
}

func (p *Poll) listening() bool {
	p.Lock()
	defer p.Unlock()
	return p.sock != nil
}

// accept spawns a voter session per connection until the listener closes.
func (p *Poll) accept(sock net.Listener) error {
	for {
		conn, err := sock.Accept()
		if err != nil {
			if p.stopping.fired() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("could not accept voter: %w", err)
		}

		p.voters.Add(1)
		go p.serveVoter(conn)
	}
}

// terminate moves the poll into a terminal phase so that every waiting voter
// session can finish, then stops accepting connections.
func (p *Poll) terminate(sock net.Listener) error {
	p.stopping.fire()

	if err := sock.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warn().Err(err).Msg("could not close voter listener")
	}

	switch p.Phase() {
	case Registering:
		if err := p.Cancel(); err != nil && !errors.Is(err, ErrAlreadyStarted) {
			return err
		}
	case Balloting:
		if err := p.EndBalloting(); err != nil && !errors.Is(err, ErrAlreadyClosed) {
			return err
		}
	}

	// The phase may have raced forward from registering to balloting.
	if p.Phase() == Balloting {
		if err := p.EndBalloting(); err != nil && !errors.Is(err, ErrAlreadyClosed) {
			return err
		}
	}
	return nil
}

// onUptime is called by the deadline when the balloting window elapses.
func (p *Poll) onUptime() {
	if err := p.EndBalloting(); err != nil {
		log.Debug().Err(err).Msg("balloting already closed when uptime elapsed")
		return
	}
	log.Info().Msg("balloting closed automatically after uptime")
}
