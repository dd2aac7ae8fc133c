package votally

import (
	"context"
	"fmt"
	"time"

	"github.com/bbengfort/votally/pb"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// DefaultControlTimeout is used when a remote is created without a timeout.
const DefaultControlTimeout = 10 * time.Second

// NewRemote creates an operator client for the control service of the poll
// at addr. The connection is made lazily when the first request is sent.
func NewRemote(addr string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultControlTimeout
	}
	return &Remote{addr: addr, timeout: timeout}
}

// Remote maintains a connection to the control service of a poll server.
type Remote struct {
	addr    string           // the control address of the poll server
	timeout time.Duration    // timeout before dropping a request
	conn    *grpc.ClientConn // grpc dial connection to the remote
	client  pb.ControlClient // rpc client for the control service
	online  bool             // if the client is connected or not
}

//===========================================================================
// RPC Wrappers
//===========================================================================

// Begin balloting on the remote poll, returning the new phase.
func (c *Remote) Begin() (string, error) {
	return c.phase(func(ctx context.Context) (*wrapperspb.StringValue, error) {
		return c.client.Begin(ctx, &emptypb.Empty{})
	})
}

// End balloting on the remote poll, returning the new phase.
func (c *Remote) End() (string, error) {
	return c.phase(func(ctx context.Context) (*wrapperspb.StringValue, error) {
		return c.client.End(ctx, &emptypb.Empty{})
	})
}

// Cancel the remote poll before balloting begins, returning the new phase.
func (c *Remote) Cancel() (string, error) {
	return c.phase(func(ctx context.Context) (*wrapperspb.StringValue, error) {
		return c.client.Cancel(ctx, &emptypb.Empty{})
	})
}

// Result fetches the published result of the remote poll, waiting at most the
// remote timeout for the poll to finish counting.
func (c *Remote) Result() (*pb.Result, error) {
	rep, err := c.send(func(ctx context.Context) (interface{}, error) {
		return c.client.Result(ctx, &emptypb.Empty{})
	})
	if err != nil {
		return nil, err
	}
	return pb.ResultFromProto(rep.(*structpb.Struct))
}

// Status fetches the current phase and counts of the remote poll.
func (c *Remote) Status() (*pb.Status, error) {
	rep, err := c.send(func(ctx context.Context) (interface{}, error) {
		return c.client.Status(ctx, &emptypb.Empty{})
	})
	if err != nil {
		return nil, err
	}
	return pb.StatusFromProto(rep.(*structpb.Struct))
}

func (c *Remote) phase(rpc func(ctx context.Context) (*wrapperspb.StringValue, error)) (string, error) {
	rep, err := c.send(func(ctx context.Context) (interface{}, error) {
		return rpc(ctx)
	})
	if err != nil {
		return "", err
	}
	return rep.(*wrapperspb.StringValue).GetValue(), nil
}

//===========================================================================
// Connection Handlers
//===========================================================================

// Connect to the remote. Connect is usually not explicitly called, but is
// instead connected when a message is sent.
func (c *Remote) Connect() (err error) {
	if c.conn, err = grpc.Dial(c.addr, grpc.WithTransportCredentials(insecure.NewCredentials())); err != nil {
		return fmt.Errorf("could not connect to '%s': %s", c.addr, err.Error())
	}

	// NOTE: do not set online to true until after a response from remote.
	c.client = pb.NewControlClient(c.conn)
	return nil
}

// Close the connection to the remote and cleanup the client
func (c *Remote) Close() (err error) {

	// Ensure a valid state after close
	defer func() {
		c.conn = nil
		c.client = nil
		c.online = false
	}()

	// Don't cause any panics if already closed
	if c.conn == nil {
		return nil
	}

	if err = c.conn.Close(); err != nil {
		return fmt.Errorf("could not close connection to %s: %s", c.addr, err)
	}

	return nil
}

// Reset the connection to the remote
func (c *Remote) Reset() (err error) {
	if err = c.Close(); err != nil {
		return err
	}

	return c.Connect()
}

//===========================================================================
// Message sending management
//===========================================================================

// Send accepts a closure and performs before, RPC call, and after handlers
// for error checking and context management. Used to wrap the GRPC client.
func (c *Remote) send(rpc func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel, err := c.beforeSend()
	if err != nil {
		return nil, err
	}
	defer cancel()

	rep, err := rpc(ctx)
	if c.afterSend(err) != nil {
		return nil, err
	}

	return rep, nil
}

// Create the context and handle connections
func (c *Remote) beforeSend() (context.Context, context.CancelFunc, error) {
	// If we're not online, attempt to connect
	if !c.online {
		if err := c.Reset(); err != nil {
			log.Warn().Err(err).Msg("could not connect to poll control service")
			return nil, nil, err
		}
	}

	// Create the context of the GRPC request
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	return ctx, cancel, nil
}

// Handle errors and connections from non responses. Errors returned by the
// poll itself (e.g. balloting already started) mean the remote is online.
func (c *Remote) afterSend(err error) error {
	if err != nil && !isPollError(err) {
		log.Debug().Err(err).Str("addr", c.addr).Msg("control request failed")
		if c.online {
			// We were online and now we're offline
			log.Info().Str("addr", c.addr).Msg("grpc connection to poll is offline")
		}
		c.online = false
	} else {
		if !c.online {
			// We were offline and now we're online
			log.Info().Str("addr", c.addr).Msg("grpc connection to poll is online")
		}
		c.online = true
	}

	return err
}

// isPollError returns true if the error was returned by the control service
// rather than the transport.
func isPollError(err error) bool {
	switch status.Code(err) {
	case codes.FailedPrecondition, codes.Internal:
		return true
	default:
		return false
	}
}
