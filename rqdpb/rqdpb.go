// Package rqdpb defines the wire messages for the Control Plane RPC
// surface. Messages are hand-authored in the legacy
// github.com/golang/protobuf struct-tag style (Reset/String/ProtoMessage
// plus `protobuf:"..."` tags) rather than generated by protoc: the
// modern protobuf-go runtime's legacy-message support accepts this
// shape directly without a .proto/protoc build step.
package rqdpb

import (
	"fmt"

	proto "github.com/golang/protobuf/proto"
)

// RunFrame mirrors frame.RunFrame on the wire.
type RunFrame struct {
	FrameId      string            `protobuf:"bytes,1,opt,name=frame_id,json=frameId,proto3" json:"frame_id,omitempty"`
	ResourceId   string            `protobuf:"bytes,2,opt,name=resource_id,json=resourceId,proto3" json:"resource_id,omitempty"`
	JobId        string            `protobuf:"bytes,3,opt,name=job_id,json=jobId,proto3" json:"job_id,omitempty"`
	LayerId      string            `protobuf:"bytes,4,opt,name=layer_id,json=layerId,proto3" json:"layer_id,omitempty"`
	UserName     string            `protobuf:"bytes,5,opt,name=user_name,json=userName,proto3" json:"user_name,omitempty"`
	Uid          int32             `protobuf:"varint,6,opt,name=uid,proto3" json:"uid,omitempty"`
	Gid          int32             `protobuf:"varint,7,opt,name=gid,proto3" json:"gid,omitempty"`
	Command      []string          `protobuf:"bytes,8,rep,name=command,proto3" json:"command,omitempty"`
	LogDir       string            `protobuf:"bytes,9,opt,name=log_dir,json=logDir,proto3" json:"log_dir,omitempty"`
	LogFile      string            `protobuf:"bytes,10,opt,name=log_file,json=logFile,proto3" json:"log_file,omitempty"`
	NumCores     int32             `protobuf:"varint,11,opt,name=num_cores,json=numCores,proto3" json:"num_cores,omitempty"`
	Environment  map[string]string `protobuf:"bytes,12,rep,name=environment,proto3" json:"environment,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
	Attributes   map[string]string `protobuf:"bytes,13,rep,name=attributes,proto3" json:"attributes,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
	IgnoreNimby  bool              `protobuf:"varint,14,opt,name=ignore_nimby,json=ignoreNimby,proto3" json:"ignore_nimby,omitempty"`
	Show         string            `protobuf:"bytes,15,opt,name=show,proto3" json:"show,omitempty"`
	Shot         string            `protobuf:"bytes,16,opt,name=shot,proto3" json:"shot,omitempty"`
	JobName      string            `protobuf:"bytes,17,opt,name=job_name,json=jobName,proto3" json:"job_name,omitempty"`
	FrameName    string            `protobuf:"bytes,18,opt,name=frame_name,json=frameName,proto3" json:"frame_name,omitempty"`
	JobTempDir   string            `protobuf:"bytes,19,opt,name=job_temp_dir,json=jobTempDir,proto3" json:"job_temp_dir,omitempty"`
	FrameTempDir string            `protobuf:"bytes,20,opt,name=frame_temp_dir,json=frameTempDir,proto3" json:"frame_temp_dir,omitempty"`
}

func (m *RunFrame) Reset()         { *m = RunFrame{} }
func (m *RunFrame) String() string { return fmt.Sprintf("%+v", *m) }
func (*RunFrame) ProtoMessage()    {}

// LaunchFrameResponse is an empty ack.
type LaunchFrameResponse struct{}

func (m *LaunchFrameResponse) Reset()         { *m = LaunchFrameResponse{} }
func (m *LaunchFrameResponse) String() string { return "LaunchFrameResponse{}" }
func (*LaunchFrameResponse) ProtoMessage()    {}

// FrameIdRequest names a frame_id, used by GetRunningFrameStatus and
// KillRunningFrame.
type FrameIdRequest struct {
	FrameId string `protobuf:"bytes,1,opt,name=frame_id,json=frameId,proto3" json:"frame_id,omitempty"`
}

func (m *FrameIdRequest) Reset()         { *m = FrameIdRequest{} }
func (m *FrameIdRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*FrameIdRequest) ProtoMessage()    {}

// RunningFrameStatus is the wire form of frame.RunningFrame's observable
// state.
type RunningFrameStatus struct {
	FrameId        string `protobuf:"bytes,1,opt,name=frame_id,json=frameId,proto3" json:"frame_id,omitempty"`
	Pid            int32  `protobuf:"varint,2,opt,name=pid,proto3" json:"pid,omitempty"`
	State          string `protobuf:"bytes,3,opt,name=state,proto3" json:"state,omitempty"`
	ExitCode       int32  `protobuf:"varint,4,opt,name=exit_code,json=exitCode,proto3" json:"exit_code,omitempty"`
	StartTimeEpoch int64  `protobuf:"varint,5,opt,name=start_time_epoch,json=startTimeEpoch,proto3" json:"start_time_epoch,omitempty"`
	UserTimeMillis int64  `protobuf:"varint,6,opt,name=user_time_millis,json=userTimeMillis,proto3" json:"user_time_millis,omitempty"`
	SysTimeMillis  int64  `protobuf:"varint,7,opt,name=sys_time_millis,json=sysTimeMillis,proto3" json:"sys_time_millis,omitempty"`
}

func (m *RunningFrameStatus) Reset()         { *m = RunningFrameStatus{} }
func (m *RunningFrameStatus) String() string { return fmt.Sprintf("%+v", *m) }
func (*RunningFrameStatus) ProtoMessage()    {}

// KillRunningFrameResponse is an empty ack: the signal has been
// delivered, not that the child has exited.
type KillRunningFrameResponse struct{}

func (m *KillRunningFrameResponse) Reset()         { *m = KillRunningFrameResponse{} }
func (m *KillRunningFrameResponse) String() string { return "KillRunningFrameResponse{}" }
func (*KillRunningFrameResponse) ProtoMessage()    {}

// ReportStatusRequest is empty: a full HostReport is always returned.
type ReportStatusRequest struct{}

func (m *ReportStatusRequest) Reset()         { *m = ReportStatusRequest{} }
func (m *ReportStatusRequest) String() string { return "ReportStatusRequest{}" }
func (*ReportStatusRequest) ProtoMessage()    {}

// ProcSampleWire is the wire form of sampler.ProcSample.
type ProcSampleWire struct {
	FrameId            string `protobuf:"bytes,1,opt,name=frame_id,json=frameId,proto3" json:"frame_id,omitempty"`
	Rss                int64  `protobuf:"varint,2,opt,name=rss,proto3" json:"rss,omitempty"`
	MaxRss             int64  `protobuf:"varint,3,opt,name=max_rss,json=maxRss,proto3" json:"max_rss,omitempty"`
	Vsize              uint64 `protobuf:"varint,4,opt,name=vsize,proto3" json:"vsize,omitempty"`
	MaxVsize           uint64 `protobuf:"varint,5,opt,name=max_vsize,json=maxVsize,proto3" json:"max_vsize,omitempty"`
	CpuTimeMillis      int64  `protobuf:"varint,6,opt,name=cpu_time_millis,json=cpuTimeMillis,proto3" json:"cpu_time_millis,omitempty"`
	RunningTimeMillis  int64  `protobuf:"varint,7,opt,name=running_time_millis,json=runningTimeMillis,proto3" json:"running_time_millis,omitempty"`
	Pcpu               float64 `protobuf:"fixed64,8,opt,name=pcpu,proto3" json:"pcpu,omitempty"`
	VoluntaryCtxtSw    uint64 `protobuf:"varint,9,opt,name=voluntary_ctxt_sw,json=voluntaryCtxtSw,proto3" json:"voluntary_ctxt_sw,omitempty"`
	NonvoluntaryCtxtSw uint64 `protobuf:"varint,10,opt,name=nonvoluntary_ctxt_sw,json=nonvoluntaryCtxtSw,proto3" json:"nonvoluntary_ctxt_sw,omitempty"`
	ReadBytes          uint64 `protobuf:"varint,11,opt,name=read_bytes,json=readBytes,proto3" json:"read_bytes,omitempty"`
	WriteBytes         uint64 `protobuf:"varint,12,opt,name=write_bytes,json=writeBytes,proto3" json:"write_bytes,omitempty"`
}

func (m *ProcSampleWire) Reset()         { *m = ProcSampleWire{} }
func (m *ProcSampleWire) String() string { return fmt.Sprintf("%+v", *m) }
func (*ProcSampleWire) ProtoMessage()    {}

// HostReport is host facts + current per-frame ProcSamples + lock
// state, assembled fresh on every ReportStatus call.
type HostReport struct {
	Hostname        string            `protobuf:"bytes,1,opt,name=hostname,proto3" json:"hostname,omitempty"`
	BootTimeEpoch   int64             `protobuf:"varint,2,opt,name=boot_time_epoch,json=bootTimeEpoch,proto3" json:"boot_time_epoch,omitempty"`
	TotalCores      int32             `protobuf:"varint,3,opt,name=total_cores,json=totalCores,proto3" json:"total_cores,omitempty"`
	LockedCores     int32             `protobuf:"varint,4,opt,name=locked_cores,json=lockedCores,proto3" json:"locked_cores,omitempty"`
	NimbyOn         bool              `protobuf:"varint,5,opt,name=nimby_on,json=nimbyOn,proto3" json:"nimby_on,omitempty"`
	PendingAction   string            `protobuf:"bytes,6,opt,name=pending_action,json=pendingAction,proto3" json:"pending_action,omitempty"`
	LoadAverage     float64           `protobuf:"fixed64,7,opt,name=load_average,json=loadAverage,proto3" json:"load_average,omitempty"`
	FreeMemoryBytes int64             `protobuf:"varint,8,opt,name=free_memory_bytes,json=freeMemoryBytes,proto3" json:"free_memory_bytes,omitempty"`
	Frames          []*ProcSampleWire `protobuf:"bytes,9,rep,name=frames,proto3" json:"frames,omitempty"`
	Arch            string            `protobuf:"bytes,10,opt,name=arch,proto3" json:"arch,omitempty"`
}

func (m *HostReport) Reset()         { *m = HostReport{} }
func (m *HostReport) String() string { return fmt.Sprintf("%+v", *m) }
func (*HostReport) ProtoMessage()    {}

// Empty is used for every RPC that takes or returns no meaningful
// payload (NimbyOn/Off, LockAll/UnlockAll, the *Now/*Idle host actions).
type Empty struct{}

func (m *Empty) Reset()         { *m = Empty{} }
func (m *Empty) String() string { return "Empty{}" }
func (*Empty) ProtoMessage()    {}

// CoreCountRequest carries the n argument to Lock/Unlock.
type CoreCountRequest struct {
	Cores int32 `protobuf:"varint,1,opt,name=cores,proto3" json:"cores,omitempty"`
}

func (m *CoreCountRequest) Reset()         { *m = CoreCountRequest{} }
func (m *CoreCountRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*CoreCountRequest) ProtoMessage()    {}

var _ proto.Message = (*RunFrame)(nil)
