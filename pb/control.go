/*
Package pb defines the poll control service. The service only exchanges
well-known protobuf types so that the descriptor can be maintained by hand
without a protoc generation step: phase changes reply with the new phase as a
string value and reports are returned as structs that convert to and from the
Result and Status types in this package.
*/
package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the control service.
const ServiceName = "votally.v1.Control"

// ControlServer is the server API for the Control service.
type ControlServer interface {
	Begin(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	End(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Cancel(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	Result(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Status(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterControlServer registers the control service implementation.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&Control_ServiceDesc, srv)
}

// Control_ServiceDesc is the grpc.ServiceDesc for the Control service.
var Control_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Begin",
			Handler: controlHandler("Begin", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.Begin(ctx, in)
			}),
		},
		{
			MethodName: "End",
			Handler: controlHandler("End", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.End(ctx, in)
			}),
		},
		{
			MethodName: "Cancel",
			Handler: controlHandler("Cancel", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.Cancel(ctx, in)
			}),
		},
		{
			MethodName: "Result",
			Handler: controlHandler("Result", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.Result(ctx, in)
			}),
		},
		{
			MethodName: "Status",
			Handler: controlHandler("Status", func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (interface{}, error) {
				return srv.Status(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "votally/v1/control",
}

type controlCall func(srv ControlServer, ctx context.Context, in *emptypb.Empty) (interface{}, error)

// Every control method takes an empty request, so the unary handlers only
// differ by the server method they call.
func controlHandler(method string, call controlCall) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

//===========================================================================
// Control Client
//===========================================================================

// ControlClient is the client API for the Control service.
type ControlClient interface {
	Begin(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	End(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Cancel(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Result(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type controlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient creates a control client on the connection.
func NewControlClient(cc grpc.ClientConnInterface) ControlClient {
	return &controlClient{cc}
}

func (c *controlClient) Begin(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Begin", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) End(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/End", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) Cancel(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Cancel", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) Result(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Result", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) Status(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Status", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
