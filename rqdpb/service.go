package rqdpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RqdServer is the Control Plane service interface, shaped the way
// protoc-gen-go-grpc would generate it from a RqdInterface.proto
// service definition.
type RqdServer interface {
	LaunchFrame(context.Context, *RunFrame) (*LaunchFrameResponse, error)
	ReportStatus(context.Context, *ReportStatusRequest) (*HostReport, error)
	GetRunningFrameStatus(context.Context, *FrameIdRequest) (*RunningFrameStatus, error)
	KillRunningFrame(context.Context, *FrameIdRequest) (*KillRunningFrameResponse, error)
	ShutdownRqdNow(context.Context, *Empty) (*Empty, error)
	ShutdownRqdIdle(context.Context, *Empty) (*Empty, error)
	RestartRqdNow(context.Context, *Empty) (*Empty, error)
	RestartRqdIdle(context.Context, *Empty) (*Empty, error)
	RebootNow(context.Context, *Empty) (*Empty, error)
	RebootIdle(context.Context, *Empty) (*Empty, error)
	NimbyOn(context.Context, *Empty) (*Empty, error)
	NimbyOff(context.Context, *Empty) (*Empty, error)
	Lock(context.Context, *CoreCountRequest) (*Empty, error)
	Unlock(context.Context, *CoreCountRequest) (*Empty, error)
	LockAll(context.Context, *Empty) (*Empty, error)
	UnlockAll(context.Context, *Empty) (*Empty, error)
}

// UnimplementedRqdServer embeds into a real implementation to satisfy
// RqdServer for RPCs it does not override, matching the forward-
// compatibility pattern protoc-gen-go-grpc generates.
type UnimplementedRqdServer struct{}

func (UnimplementedRqdServer) LaunchFrame(context.Context, *RunFrame) (*LaunchFrameResponse, error) {
	return nil, errUnimplemented("LaunchFrame")
}
func (UnimplementedRqdServer) ReportStatus(context.Context, *ReportStatusRequest) (*HostReport, error) {
	return nil, errUnimplemented("ReportStatus")
}
func (UnimplementedRqdServer) GetRunningFrameStatus(context.Context, *FrameIdRequest) (*RunningFrameStatus, error) {
	return nil, errUnimplemented("GetRunningFrameStatus")
}
func (UnimplementedRqdServer) KillRunningFrame(context.Context, *FrameIdRequest) (*KillRunningFrameResponse, error) {
	return nil, errUnimplemented("KillRunningFrame")
}
func (UnimplementedRqdServer) ShutdownRqdNow(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("ShutdownRqdNow")
}
func (UnimplementedRqdServer) ShutdownRqdIdle(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("ShutdownRqdIdle")
}
func (UnimplementedRqdServer) RestartRqdNow(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("RestartRqdNow")
}
func (UnimplementedRqdServer) RestartRqdIdle(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("RestartRqdIdle")
}
func (UnimplementedRqdServer) RebootNow(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("RebootNow")
}
func (UnimplementedRqdServer) RebootIdle(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("RebootIdle")
}
func (UnimplementedRqdServer) NimbyOn(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("NimbyOn")
}
func (UnimplementedRqdServer) NimbyOff(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("NimbyOff")
}
func (UnimplementedRqdServer) Lock(context.Context, *CoreCountRequest) (*Empty, error) {
	return nil, errUnimplemented("Lock")
}
func (UnimplementedRqdServer) Unlock(context.Context, *CoreCountRequest) (*Empty, error) {
	return nil, errUnimplemented("Unlock")
}
func (UnimplementedRqdServer) LockAll(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("LockAll")
}
func (UnimplementedRqdServer) UnlockAll(context.Context, *Empty) (*Empty, error) {
	return nil, errUnimplemented("UnlockAll")
}

func errUnimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "rqdpb: method %s not implemented", method)
}

// RegisterRqdServer wires srv into grpcServer using hand-rolled handler
// wrappers, the role protoc-gen-go-grpc's generated _ServiceDesc would
// play.
func RegisterRqdServer(s *grpc.Server, srv RqdServer) {
	s.RegisterService(&rqdServiceDesc, srv)
}

var rqdServiceDesc = grpc.ServiceDesc{
	ServiceName: "frameagent.rqd.v1.Rqd",
	HandlerType: (*RqdServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "LaunchFrame", Handler: launchFrameHandler},
		{MethodName: "ReportStatus", Handler: reportStatusHandler},
		{MethodName: "GetRunningFrameStatus", Handler: getRunningFrameStatusHandler},
		{MethodName: "KillRunningFrame", Handler: killRunningFrameHandler},
		{MethodName: "ShutdownRqdNow", Handler: shutdownRqdNowHandler},
		{MethodName: "ShutdownRqdIdle", Handler: shutdownRqdIdleHandler},
		{MethodName: "RestartRqdNow", Handler: restartRqdNowHandler},
		{MethodName: "RestartRqdIdle", Handler: restartRqdIdleHandler},
		{MethodName: "RebootNow", Handler: rebootNowHandler},
		{MethodName: "RebootIdle", Handler: rebootIdleHandler},
		{MethodName: "NimbyOn", Handler: nimbyOnHandler},
		{MethodName: "NimbyOff", Handler: nimbyOffHandler},
		{MethodName: "Lock", Handler: lockHandler},
		{MethodName: "Unlock", Handler: unlockHandler},
		{MethodName: "LockAll", Handler: lockAllHandler},
		{MethodName: "UnlockAll", Handler: unlockAllHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rqdpb/rqd.proto",
}

func launchFrameHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RunFrame)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RqdServer).LaunchFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frameagent.rqd.v1.Rqd/LaunchFrame"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RqdServer).LaunchFrame(ctx, req.(*RunFrame))
	}
	return interceptor(ctx, in, info, handler)
}

func reportStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReportStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RqdServer).ReportStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frameagent.rqd.v1.Rqd/ReportStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RqdServer).ReportStatus(ctx, req.(*ReportStatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRunningFrameStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FrameIdRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RqdServer).GetRunningFrameStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frameagent.rqd.v1.Rqd/GetRunningFrameStatus"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RqdServer).GetRunningFrameStatus(ctx, req.(*FrameIdRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func killRunningFrameHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(FrameIdRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RqdServer).KillRunningFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frameagent.rqd.v1.Rqd/KillRunningFrame"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RqdServer).KillRunningFrame(ctx, req.(*FrameIdRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func simpleEmptyHandler(fullMethod string, call func(RqdServer, context.Context, *Empty) (*Empty, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RqdServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RqdServer), ctx, req.(*Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var shutdownRqdNowHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/ShutdownRqdNow", RqdServer.ShutdownRqdNow)
var shutdownRqdIdleHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/ShutdownRqdIdle", RqdServer.ShutdownRqdIdle)
var restartRqdNowHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/RestartRqdNow", RqdServer.RestartRqdNow)
var restartRqdIdleHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/RestartRqdIdle", RqdServer.RestartRqdIdle)
var rebootNowHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/RebootNow", RqdServer.RebootNow)
var rebootIdleHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/RebootIdle", RqdServer.RebootIdle)
var nimbyOnHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/NimbyOn", RqdServer.NimbyOn)
var nimbyOffHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/NimbyOff", RqdServer.NimbyOff)
var lockAllHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/LockAll", RqdServer.LockAll)
var unlockAllHandler = simpleEmptyHandler("/frameagent.rqd.v1.Rqd/UnlockAll", RqdServer.UnlockAll)

func lockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CoreCountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RqdServer).Lock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frameagent.rqd.v1.Rqd/Lock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RqdServer).Lock(ctx, req.(*CoreCountRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func unlockHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CoreCountRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RqdServer).Unlock(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/frameagent.rqd.v1.Rqd/Unlock"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RqdServer).Unlock(ctx, req.(*CoreCountRequest))
	}
	return interceptor(ctx, in, info, handler)
}
