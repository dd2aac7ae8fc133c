package votally

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/bbengfort/votally/pb"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// How long the control service waits for in-flight requests when stopping.
const controlStopTimeout = 5 * time.Second

// serveControl runs the operator control service on the configured address
// until the poll is shut down or the context is cancelled.
func (p *Poll) serveControl(ctx context.Context) (err error) {
	var sock net.Listener
	if sock, err = net.Listen("tcp", p.config.Control); err != nil {
		return fmt.Errorf("could not listen for control on %s: %w", p.config.Control, err)
	}

	p.Lock()
	p.control = sock.Addr()
	p.Unlock()

	srv := grpc.NewServer()
	pb.RegisterControlServer(srv, &controlServer{poll: p})

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(sock)
	}()

	log.Info().Str("addr", sock.Addr().String()).Msg("control service listening")

	select {
	case err = <-errc:
		return err
	case <-ctx.Done():
	case <-p.stopping.Done():
	}

	// Stop gracefully so that a pending result request can complete.
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(controlStopTimeout):
		srv.Stop()
	}

	log.Info().Msg("control service stopped")
	return nil
}

// ControlAddr returns the address of the control service, nil if it is not
// running.
func (p *Poll) ControlAddr() net.Addr {
	p.Lock()
	defer p.Unlock()
	return p.control
}

// controlServer exposes the poll's control operations over gRPC.
type controlServer struct {
	poll *Poll
}

// Begin balloting on the poll.
func (s *controlServer) Begin(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if err := s.poll.BeginBalloting(); err != nil {
		return nil, statusError(err)
	}
	return wrapperspb.String(s.poll.Phase().String()), nil
}

// End balloting on the poll.
func (s *controlServer) End(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if err := s.poll.EndBalloting(); err != nil {
		return nil, statusError(err)
	}
	return wrapperspb.String(s.poll.Phase().String()), nil
}

// Cancel the poll before balloting begins.
func (s *controlServer) Cancel(ctx context.Context, in *emptypb.Empty) (*wrapperspb.StringValue, error) {
	if err := s.poll.Cancel(); err != nil {
		return nil, statusError(err)
	}
	return wrapperspb.String(s.poll.Phase().String()), nil
}

// Result blocks until the result is published or the request is cancelled.
func (s *controlServer) Result(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
	result, err := s.poll.ComputeResult(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	return resultReport(result).Proto()
}

// Status reports the phase and counts of the poll.
func (s *controlServer) Status(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
	state, err := s.poll.Status(ctx)
	if err != nil {
		return nil, statusError(err)
	}
	return statusReport(state).Proto()
}

// statusError maps poll errors onto grpc status codes.
func statusError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, ErrAlreadyStarted), errors.Is(err, ErrAlreadyClosed),
		errors.Is(err, ErrBallotingNotStarted), errors.Is(err, ErrBallotingOpen),
		errors.Is(err, ErrPollCancelled):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func resultReport(r *Result) *pb.Result {
	return &pb.Result{
		Method: r.Method,
		Form:   r.Form.String(),
		Winner: r.Winner,
		Votes:  r.Votes,
		Total:  r.Total,
		Counts: countReport(r.Counts),
	}
}

func statusReport(s *Status) *pb.Status {
	report := &pb.Status{
		Name:     s.Name,
		Phase:    s.Phase.String(),
		Method:   s.Info.Method,
		Form:     s.Info.Form.String(),
		Choices:  []string(s.Info.Choices),
		Voters:   s.Voters,
		Rejected: s.Rejected,
		Late:     s.Late,
		Closes:   s.Closes,
	}

	if s.Snapshot != nil {
		report.Total = s.Snapshot.Total
		report.Counts = countReport(s.Snapshot.Counts)
		report.Updated = s.Snapshot.Updated
	}

	if s.Result != nil {
		report.Result = resultReport(s.Result)
	}
	return report
}

func countReport(counts []Count) []pb.Count {
	out := make([]pb.Count, 0, len(counts))
	for _, count := range counts {
		out = append(out, pb.Count{Choice: count.Choice, Votes: count.Votes})
	}
	return out
}
