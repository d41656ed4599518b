package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "skydelay.v1.CascadeEngine"

// Method names served by CascadeEngine.
const (
	MethodSimulate             = "Simulate"
	MethodListAirportEconomics = "ListAirportEconomics"
	MethodListRouteEconomics   = "ListRouteEconomics"
	MethodListVulnerability    = "ListVulnerability"
	MethodGetCascade           = "GetCascade"
	MethodPipelineHealth       = "PipelineHealth"
)

// CascadeEngineServer is the server API for the CascadeEngine service. Requests and
// responses are google.protobuf.Struct documents; see the mappers in handlers.go.
type CascadeEngineServer interface {
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAirportEconomics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRouteEconomics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListVulnerability(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCascade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PipelineHealth(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CascadeEngineServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func unaryHandler(method string, call unaryCall) methodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(CascadeEngineServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// CascadeEngineServiceDesc describes the CascadeEngine service for grpc.Server registration.
var CascadeEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CascadeEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodSimulate, Handler: unaryHandler(MethodSimulate, CascadeEngineServer.Simulate)},
		{MethodName: MethodListAirportEconomics, Handler: unaryHandler(MethodListAirportEconomics, CascadeEngineServer.ListAirportEconomics)},
		{MethodName: MethodListRouteEconomics, Handler: unaryHandler(MethodListRouteEconomics, CascadeEngineServer.ListRouteEconomics)},
		{MethodName: MethodListVulnerability, Handler: unaryHandler(MethodListVulnerability, CascadeEngineServer.ListVulnerability)},
		{MethodName: MethodGetCascade, Handler: unaryHandler(MethodGetCascade, CascadeEngineServer.GetCascade)},
		{MethodName: MethodPipelineHealth, Handler: unaryHandler(MethodPipelineHealth, CascadeEngineServer.PipelineHealth)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skydelay/v1/cascade_engine.proto",
}

// RegisterCascadeEngineServer attaches srv to the registrar.
func RegisterCascadeEngineServer(s grpc.ServiceRegistrar, srv CascadeEngineServer) {
	s.RegisterService(&CascadeEngineServiceDesc, srv)
}

// Client calls CascadeEngine over an established connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Call invokes method with req.
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
