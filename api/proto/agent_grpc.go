package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const AgentServiceName = "tabular.v1.AgentService"

const (
	AgentService_CreateAgent_FullMethodName    = "/tabular.v1.AgentService/CreateAgent"
	AgentService_DeleteAgent_FullMethodName    = "/tabular.v1.AgentService/DeleteAgent"
	AgentService_Plan_FullMethodName           = "/tabular.v1.AgentService/Plan"
	AgentService_StartEpisode_FullMethodName   = "/tabular.v1.AgentService/StartEpisode"
	AgentService_Step_FullMethodName           = "/tabular.v1.AgentService/Step"
	AgentService_EndEpisode_FullMethodName     = "/tabular.v1.AgentService/EndEpisode"
	AgentService_EndRun_FullMethodName         = "/tabular.v1.AgentService/EndRun"
	AgentService_GetMetrics_FullMethodName     = "/tabular.v1.AgentService/GetMetrics"
	AgentService_GetQTable_FullMethodName      = "/tabular.v1.AgentService/GetQTable"
	AgentService_GetServerStats_FullMethodName = "/tabular.v1.AgentService/GetServerStats"
)

// AgentServiceClient is the client API for AgentService
type AgentServiceClient interface {
	CreateAgent(ctx context.Context, in *CreateAgentRequest, opts ...grpc.CallOption) (*CreateAgentResponse, error)
	DeleteAgent(ctx context.Context, in *DeleteAgentRequest, opts ...grpc.CallOption) (*DeleteAgentResponse, error)
	Plan(ctx context.Context, in *PlanRequest, opts ...grpc.CallOption) (*PlanResponse, error)
	StartEpisode(ctx context.Context, in *StartEpisodeRequest, opts ...grpc.CallOption) (*StartEpisodeResponse, error)
	Step(ctx context.Context, in *StepRequest, opts ...grpc.CallOption) (*StepResponse, error)
	EndEpisode(ctx context.Context, in *EndEpisodeRequest, opts ...grpc.CallOption) (*EndEpisodeResponse, error)
	EndRun(ctx context.Context, in *EndRunRequest, opts ...grpc.CallOption) (*EndRunResponse, error)
	GetMetrics(ctx context.Context, in *GetMetricsRequest, opts ...grpc.CallOption) (*GetMetricsResponse, error)
	GetQTable(ctx context.Context, in *GetQTableRequest, opts ...grpc.CallOption) (*GetQTableResponse, error)
	GetServerStats(ctx context.Context, in *GetServerStatsRequest, opts ...grpc.CallOption) (*GetServerStatsResponse, error)
}

type agentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAgentServiceClient wraps cc; every call is sent with the JSON codec
func NewAgentServiceClient(cc grpc.ClientConnInterface) AgentServiceClient {
	return &agentServiceClient{cc}
}

func (c *agentServiceClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *agentServiceClient) CreateAgent(ctx context.Context, in *CreateAgentRequest, opts ...grpc.CallOption) (*CreateAgentResponse, error) {
	out := new(CreateAgentResponse)
	if err := c.invoke(ctx, AgentService_CreateAgent_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) DeleteAgent(ctx context.Context, in *DeleteAgentRequest, opts ...grpc.CallOption) (*DeleteAgentResponse, error) {
	out := new(DeleteAgentResponse)
	if err := c.invoke(ctx, AgentService_DeleteAgent_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) Plan(ctx context.Context, in *PlanRequest, opts ...grpc.CallOption) (*PlanResponse, error) {
	out := new(PlanResponse)
	if err := c.invoke(ctx, AgentService_Plan_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) StartEpisode(ctx context.Context, in *StartEpisodeRequest, opts ...grpc.CallOption) (*StartEpisodeResponse, error) {
	out := new(StartEpisodeResponse)
	if err := c.invoke(ctx, AgentService_StartEpisode_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) Step(ctx context.Context, in *StepRequest, opts ...grpc.CallOption) (*StepResponse, error) {
	out := new(StepResponse)
	if err := c.invoke(ctx, AgentService_Step_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) EndEpisode(ctx context.Context, in *EndEpisodeRequest, opts ...grpc.CallOption) (*EndEpisodeResponse, error) {
	out := new(EndEpisodeResponse)
	if err := c.invoke(ctx, AgentService_EndEpisode_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) EndRun(ctx context.Context, in *EndRunRequest, opts ...grpc.CallOption) (*EndRunResponse, error) {
	out := new(EndRunResponse)
	if err := c.invoke(ctx, AgentService_EndRun_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) GetMetrics(ctx context.Context, in *GetMetricsRequest, opts ...grpc.CallOption) (*GetMetricsResponse, error) {
	out := new(GetMetricsResponse)
	if err := c.invoke(ctx, AgentService_GetMetrics_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) GetQTable(ctx context.Context, in *GetQTableRequest, opts ...grpc.CallOption) (*GetQTableResponse, error) {
	out := new(GetQTableResponse)
	if err := c.invoke(ctx, AgentService_GetQTable_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *agentServiceClient) GetServerStats(ctx context.Context, in *GetServerStatsRequest, opts ...grpc.CallOption) (*GetServerStatsResponse, error) {
	out := new(GetServerStatsResponse)
	if err := c.invoke(ctx, AgentService_GetServerStats_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// AgentServiceServer is the server API for AgentService
type AgentServiceServer interface {
	CreateAgent(context.Context, *CreateAgentRequest) (*CreateAgentResponse, error)
	DeleteAgent(context.Context, *DeleteAgentRequest) (*DeleteAgentResponse, error)
	Plan(context.Context, *PlanRequest) (*PlanResponse, error)
	StartEpisode(context.Context, *StartEpisodeRequest) (*StartEpisodeResponse, error)
	Step(context.Context, *StepRequest) (*StepResponse, error)
	EndEpisode(context.Context, *EndEpisodeRequest) (*EndEpisodeResponse, error)
	EndRun(context.Context, *EndRunRequest) (*EndRunResponse, error)
	GetMetrics(context.Context, *GetMetricsRequest) (*GetMetricsResponse, error)
	GetQTable(context.Context, *GetQTableRequest) (*GetQTableResponse, error)
	GetServerStats(context.Context, *GetServerStatsRequest) (*GetServerStatsResponse, error)
}

// UnimplementedAgentServiceServer can be embedded to have forward compatible implementations
type UnimplementedAgentServiceServer struct{}

func (UnimplementedAgentServiceServer) CreateAgent(context.Context, *CreateAgentRequest) (*CreateAgentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateAgent not implemented")
}
func (UnimplementedAgentServiceServer) DeleteAgent(context.Context, *DeleteAgentRequest) (*DeleteAgentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteAgent not implemented")
}
func (UnimplementedAgentServiceServer) Plan(context.Context, *PlanRequest) (*PlanResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Plan not implemented")
}
func (UnimplementedAgentServiceServer) StartEpisode(context.Context, *StartEpisodeRequest) (*StartEpisodeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StartEpisode not implemented")
}
func (UnimplementedAgentServiceServer) Step(context.Context, *StepRequest) (*StepResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Step not implemented")
}
func (UnimplementedAgentServiceServer) EndEpisode(context.Context, *EndEpisodeRequest) (*EndEpisodeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EndEpisode not implemented")
}
func (UnimplementedAgentServiceServer) EndRun(context.Context, *EndRunRequest) (*EndRunResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EndRun not implemented")
}
func (UnimplementedAgentServiceServer) GetMetrics(context.Context, *GetMetricsRequest) (*GetMetricsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetMetrics not implemented")
}
func (UnimplementedAgentServiceServer) GetQTable(context.Context, *GetQTableRequest) (*GetQTableResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetQTable not implemented")
}
func (UnimplementedAgentServiceServer) GetServerStats(context.Context, *GetServerStatsRequest) (*GetServerStatsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetServerStats not implemented")
}

// RegisterAgentServiceServer registers srv on s
func RegisterAgentServiceServer(s grpc.ServiceRegistrar, srv AgentServiceServer) {
	s.RegisterService(&AgentService_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to a grpc method handler
func unaryHandler[Req, Resp any](fullMethod string, call func(AgentServiceServer, context.Context, *Req) (*Resp, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AgentServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AgentServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AgentService_ServiceDesc is the grpc.ServiceDesc for AgentService
var AgentService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AgentServiceName,
	HandlerType: (*AgentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateAgent",
			Handler:    unaryHandler(AgentService_CreateAgent_FullMethodName, AgentServiceServer.CreateAgent),
		},
		{
			MethodName: "DeleteAgent",
			Handler:    unaryHandler(AgentService_DeleteAgent_FullMethodName, AgentServiceServer.DeleteAgent),
		},
		{
			MethodName: "Plan",
			Handler:    unaryHandler(AgentService_Plan_FullMethodName, AgentServiceServer.Plan),
		},
		{
			MethodName: "StartEpisode",
			Handler:    unaryHandler(AgentService_StartEpisode_FullMethodName, AgentServiceServer.StartEpisode),
		},
		{
			MethodName: "Step",
			Handler:    unaryHandler(AgentService_Step_FullMethodName, AgentServiceServer.Step),
		},
		{
			MethodName: "EndEpisode",
			Handler:    unaryHandler(AgentService_EndEpisode_FullMethodName, AgentServiceServer.EndEpisode),
		},
		{
			MethodName: "EndRun",
			Handler:    unaryHandler(AgentService_EndRun_FullMethodName, AgentServiceServer.EndRun),
		},
		{
			MethodName: "GetMetrics",
			Handler:    unaryHandler(AgentService_GetMetrics_FullMethodName, AgentServiceServer.GetMetrics),
		},
		{
			MethodName: "GetQTable",
			Handler:    unaryHandler(AgentService_GetQTable_FullMethodName, AgentServiceServer.GetQTable),
		},
		{
			MethodName: "GetServerStats",
			Handler:    unaryHandler(AgentService_GetServerStats_FullMethodName, AgentServiceServer.GetServerStats),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tabular/v1/agent.proto",
}
