package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the loan scoring service
const ServiceName = "loanscore.v1.LoanScoringService"

const (
	methodSubmit       = "/" + ServiceName + "/Submit"
	methodListHistory  = "/" + ServiceName + "/ListHistory"
	methodGetDashboard = "/" + ServiceName + "/GetDashboard"
	methodDeleteRecord = "/" + ServiceName + "/DeleteRecord"
)

// LoanScoringServiceServer is the server API for the loan scoring service.
// Messages are protobuf well-known types so no generated code is needed.
type LoanScoringServiceServer interface {
	// Submit scores one application. The request holds the raw application fields.
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListHistory returns every recorded decision, most recent first
	ListHistory(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// GetDashboard returns the decision summary
	GetDashboard(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// DeleteRecord removes one recorded decision. The request holds its "id".
	DeleteRecord(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// LoanScoringService_ServiceDesc describes the loan scoring service for grpc.Server
var LoanScoringService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LoanScoringServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Submit",
			Handler: unaryHandler(methodSubmit, func(srv LoanScoringServiceServer, ctx context.Context, req *structpb.Struct) (any, error) {
				return srv.Submit(ctx, req)
			}),
		},
		{
			MethodName: "ListHistory",
			Handler: unaryHandler(methodListHistory, func(srv LoanScoringServiceServer, ctx context.Context, req *emptypb.Empty) (any, error) {
				return srv.ListHistory(ctx, req)
			}),
		},
		{
			MethodName: "GetDashboard",
			Handler: unaryHandler(methodGetDashboard, func(srv LoanScoringServiceServer, ctx context.Context, req *emptypb.Empty) (any, error) {
				return srv.GetDashboard(ctx, req)
			}),
		},
		{
			MethodName: "DeleteRecord",
			Handler: unaryHandler(methodDeleteRecord, func(srv LoanScoringServiceServer, ctx context.Context, req *structpb.Struct) (any, error) {
				return srv.DeleteRecord(ctx, req)
			}),
		},
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterLoanScoringServiceServer registers srv on s
func RegisterLoanScoringServiceServer(s grpc.ServiceRegistrar, srv LoanScoringServiceServer) {
	s.RegisterService(&LoanScoringService_ServiceDesc, srv)
}

// unaryHandler decodes a request of type Req and runs call through the interceptor chain
func unaryHandler[Req any](fullMethod string, call func(LoanScoringServiceServer, context.Context, *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LoanScoringServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LoanScoringServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// LoanScoringClient is a client for the loan scoring service
type LoanScoringClient struct {
	cc grpc.ClientConnInterface
}

// NewLoanScoringClient creates a client on an established connection
func NewLoanScoringClient(cc grpc.ClientConnInterface) *LoanScoringClient {
	return &LoanScoringClient{cc: cc}
}

// Submit scores one application
func (c *LoanScoringClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodSubmit, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListHistory returns every recorded decision
func (c *LoanScoringClient) ListHistory(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListHistory, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDashboard returns the decision summary
func (c *LoanScoringClient) GetDashboard(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetDashboard, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRecord removes one recorded decision
func (c *LoanScoringClient) DeleteRecord(ctx context.Context, id int64, opts ...grpc.CallOption) error {
	in, err := structpb.NewStruct(map[string]any{"id": id})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, methodDeleteRecord, in, new(emptypb.Empty), opts...)
}
