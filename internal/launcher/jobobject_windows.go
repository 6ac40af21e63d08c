//go:build windows

package launcher

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	jobObjectExtendedLimitInformation           = 9
	jobObjectAssociateCompletionPortInformation = 7
	jobObjectLimitBreakawayOK                   = 0x00000800
	jobObjectLimitSilentBreakawayOK             = 0x00001000
	jobObjectMsgActiveProcessZero               = 4
)

// jobObjectAssociateCompletionPort mirrors
// JOBOBJECT_ASSOCIATE_COMPLETION_PORT, the struct SetInformationJobObject
// expects for jobObjectAssociateCompletionPortInformation.
type jobObjectAssociateCompletionPort struct {
	CompletionKey  uintptr
	CompletionPort windows.Handle
}

// jobObjectBasicLimitInformation mirrors JOBOBJECT_BASIC_LIMIT_INFORMATION;
// only LimitFlags is ever set here.
type jobObjectBasicLimitInformation struct {
	PerProcessUserTimeLimit int64
	PerJobUserTimeLimit     int64
	LimitFlags              uint32
	MinimumWorkingSetSize   uintptr
	MaximumWorkingSetSize   uintptr
	ActiveProcessLimit      uint32
	Affinity                uintptr
	PriorityClass           uint32
	SchedulingClass         uint32
}

// ioCounters mirrors IO_COUNTERS, an unused trailer of the extended
// limit information struct that Windows still expects to find there.
type ioCounters struct {
	ReadOperationCount  uint64
	WriteOperationCount uint64
	OtherOperationCount uint64
	ReadTransferCount   uint64
	WriteTransferCount  uint64
	OtherTransferCount  uint64
}

type jobObjectExtendedLimitInfo struct {
	BasicLimitInformation jobObjectBasicLimitInformation
	IoInfo                ioCounters
	ProcessMemoryLimit    uintptr
	JobMemoryLimit        uintptr
	PeakProcessMemoryUsed uintptr
	PeakJobMemoryUsed     uintptr
}

// jobObject lets the launcher assign the injected child to a group it can
// wait to drain before tearing down the debug tracing pipe. Silent
// breakaway is allowed, so processes the child spawns are not placed in
// the job and are not waited for. The job handle itself never becomes signaled on its
// own; completion is observed through an associated I/O completion port
// instead, via waitDrain.
type jobObject struct {
	handle     windows.Handle
	completion windows.Handle
}

func createJobObject() (*jobObject, error) {
	h, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create job object: %w", err)
	}
	info := jobObjectExtendedLimitInfo{
		BasicLimitInformation: jobObjectBasicLimitInformation{
			LimitFlags: jobObjectLimitBreakawayOK | jobObjectLimitSilentBreakawayOK,
		},
	}
	if _, err := windows.SetInformationJobObject(
		h,
		jobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("set job object limits: %w", err)
	}

	cp, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 1)
	if err != nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("create completion port: %w", err)
	}
	assoc := jobObjectAssociateCompletionPort{CompletionKey: uintptr(h), CompletionPort: cp}
	if _, err := windows.SetInformationJobObject(
		h,
		jobObjectAssociateCompletionPortInformation,
		uintptr(unsafe.Pointer(&assoc)),
		uint32(unsafe.Sizeof(assoc)),
	); err != nil {
		windows.CloseHandle(cp)
		windows.CloseHandle(h)
		return nil, fmt.Errorf("associate completion port: %w", err)
	}
	return &jobObject{handle: h, completion: cp}, nil
}

func (j *jobObject) assign(process windows.Handle) error {
	return windows.AssignProcessToJobObject(j.handle, process)
}

// waitDrain blocks until the job reports JOB_OBJECT_MSG_ACTIVE_PROCESS_ZERO
// on its completion port — the documented way to know every process in
// the job (the injected child plus anything it spawned without
// breaking away) has exited, since the job handle is never itself
// waitable.
func (j *jobObject) waitDrain() {
	if j == nil || j.completion == 0 {
		return
	}
	for {
		var qty uint32
		var key uintptr
		var overlapped *windows.Overlapped
		if err := windows.GetQueuedCompletionStatus(j.completion, &qty, &key, &overlapped, windows.INFINITE); err != nil {
			return
		}
		if qty == jobObjectMsgActiveProcessZero {
			return
		}
	}
}

func (j *jobObject) Close() error {
	if j == nil || j.handle == 0 {
		return nil
	}
	if j.completion != 0 {
		windows.CloseHandle(j.completion)
	}
	return windows.CloseHandle(j.handle)
}
