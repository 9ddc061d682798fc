package rqdpb

import (
	"context"

	"google.golang.org/grpc"
)

// RqdClient is the dispatcher-side stub for the Control Plane service,
// hand-rolled the way protoc-gen-go-grpc would generate it from the same
// RqdInterface.proto service definition RqdServer implements.
type RqdClient interface {
	LaunchFrame(ctx context.Context, in *RunFrame, opts ...grpc.CallOption) (*LaunchFrameResponse, error)
	ReportStatus(ctx context.Context, in *ReportStatusRequest, opts ...grpc.CallOption) (*HostReport, error)
	GetRunningFrameStatus(ctx context.Context, in *FrameIdRequest, opts ...grpc.CallOption) (*RunningFrameStatus, error)
	KillRunningFrame(ctx context.Context, in *FrameIdRequest, opts ...grpc.CallOption) (*KillRunningFrameResponse, error)
	ShutdownRqdNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	ShutdownRqdIdle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	RestartRqdNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	RestartRqdIdle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	RebootNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	RebootIdle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	NimbyOn(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	NimbyOff(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	Lock(ctx context.Context, in *CoreCountRequest, opts ...grpc.CallOption) (*Empty, error)
	Unlock(ctx context.Context, in *CoreCountRequest, opts ...grpc.CallOption) (*Empty, error)
	LockAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	UnlockAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
}

type rqdClient struct {
	cc *grpc.ClientConn
}

// NewRqdClient builds an RqdClient over an already-dialed connection.
func NewRqdClient(cc *grpc.ClientConn) RqdClient {
	return &rqdClient{cc: cc}
}

func (c *rqdClient) LaunchFrame(ctx context.Context, in *RunFrame, opts ...grpc.CallOption) (*LaunchFrameResponse, error) {
	out := new(LaunchFrameResponse)
	if err := c.cc.Invoke(ctx, "/frameagent.rqd.v1.Rqd/LaunchFrame", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *rqdClient) ReportStatus(ctx context.Context, in *ReportStatusRequest, opts ...grpc.CallOption) (*HostReport, error) {
	out := new(HostReport)
	if err := c.cc.Invoke(ctx, "/frameagent.rqd.v1.Rqd/ReportStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *rqdClient) GetRunningFrameStatus(ctx context.Context, in *FrameIdRequest, opts ...grpc.CallOption) (*RunningFrameStatus, error) {
	out := new(RunningFrameStatus)
	if err := c.cc.Invoke(ctx, "/frameagent.rqd.v1.Rqd/GetRunningFrameStatus", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *rqdClient) KillRunningFrame(ctx context.Context, in *FrameIdRequest, opts ...grpc.CallOption) (*KillRunningFrameResponse, error) {
	out := new(KillRunningFrameResponse)
	if err := c.cc.Invoke(ctx, "/frameagent.rqd.v1.Rqd/KillRunningFrame", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *rqdClient) simpleEmptyCall(ctx context.Context, method string, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *rqdClient) ShutdownRqdNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/ShutdownRqdNow", in, opts...)
}

func (c *rqdClient) ShutdownRqdIdle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/ShutdownRqdIdle", in, opts...)
}

func (c *rqdClient) RestartRqdNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/RestartRqdNow", in, opts...)
}

func (c *rqdClient) RestartRqdIdle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/RestartRqdIdle", in, opts...)
}

func (c *rqdClient) RebootNow(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/RebootNow", in, opts...)
}

func (c *rqdClient) RebootIdle(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/RebootIdle", in, opts...)
}

func (c *rqdClient) NimbyOn(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/NimbyOn", in, opts...)
}

func (c *rqdClient) NimbyOff(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/NimbyOff", in, opts...)
}

func (c *rqdClient) LockAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/LockAll", in, opts...)
}

func (c *rqdClient) UnlockAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	return c.simpleEmptyCall(ctx, "/frameagent.rqd.v1.Rqd/UnlockAll", in, opts...)
}

func (c *rqdClient) Lock(ctx context.Context, in *CoreCountRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/frameagent.rqd.v1.Rqd/Lock", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *rqdClient) Unlock(ctx context.Context, in *CoreCountRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, "/frameagent.rqd.v1.Rqd/Unlock", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
