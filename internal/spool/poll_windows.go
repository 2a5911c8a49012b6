//go:build windows
// +build windows

package spool

import (
	"strconv"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procEnumJobsW = winspoolDrv.NewProc("EnumJobsW")

const (
	jobStatusPaused           = 0x00000001
	jobStatusError            = 0x00000002
	jobStatusDeleting         = 0x00000004
	jobStatusOffline          = 0x00000020
	jobStatusPaperOut         = 0x00000040
	jobStatusPrinted          = 0x00000080
	jobStatusBlockedDevQ      = 0x00000200
	jobStatusUserIntervention = 0x00000400
	jobStatusPrinting         = 0x00000010
	jobStatusComplete         = 0x00001000
	jobStatusDeleted          = 0x00000100
)

// jobInfo1 mirrors JOB_INFO_1W field for field (StatusMask is its
// Status flags DWORD), so unsafe.Sizeof gives the stride of the array
// EnumJobsW fills; only JobID and StatusMask are read.
type jobInfo1 struct {
	JobID        uint32
	PrinterName  *uint16
	MachineName  *uint16
	UserName     *uint16
	Document     *uint16
	DataType     *uint16
	Status       *uint16
	StatusMask   uint32
	Priority     uint32
	Position     uint32
	TotalPages   uint32
	PagesPrinted uint32
	Submitted    [8]uint16 // SYSTEMTIME
}

// pollJobStatus enumerates the named printer's job queue looking for
// osJobID and maps its status flags into monitor.go's vocabulary. A
// job no longer in the queue is reported "MISSING".
func pollJobStatus(printerSystemName, osJobID string) (string, error) {
	wantID, err := strconv.ParseUint(osJobID, 10, 32)
	if err != nil {
		return "", err
	}

	namePtr, err := windows.UTF16PtrFromString(printerSystemName)
	if err != nil {
		return "", err
	}
	var handle windows.Handle
	ret, _, _ := procOpenPrinterW.Call(uintptr(unsafe.Pointer(namePtr)), uintptr(unsafe.Pointer(&handle)), 0)
	if ret == 0 {
		return "MISSING", nil
	}
	defer procClosePrinterW.Call(uintptr(handle))

	var needed, returned uint32
	procEnumJobsW.Call(uintptr(handle), 0, 200, 1, 0, 0, uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)))
	if needed == 0 {
		return "MISSING", nil
	}

	buf := make([]byte, needed)
	ret, _, _ = procEnumJobsW.Call(
		uintptr(handle), 0, 200, 1,
		uintptr(unsafe.Pointer(&buf[0])), uintptr(needed),
		uintptr(unsafe.Pointer(&needed)), uintptr(unsafe.Pointer(&returned)),
	)
	if ret == 0 {
		return "MISSING", nil
	}

	structSize := unsafe.Sizeof(jobInfo1{})
	for i := uint32(0); i < returned; i++ {
		info := (*jobInfo1)(unsafe.Pointer(&buf[uintptr(i)*structSize]))
		if uint64(info.JobID) != wantID {
			continue
		}
		return jobStatusFlagsToObserved(info.StatusMask), nil
	}
	return "MISSING", nil
}

func jobStatusFlagsToObserved(status uint32) string {
	switch {
	case status&jobStatusDeleted != 0, status&jobStatusDeleting != 0:
		return "CANCELLED"
	case status&jobStatusError != 0:
		return "ERROR"
	case status&jobStatusOffline != 0:
		return "OFFLINE"
	case status&jobStatusPaperOut != 0:
		return "PAPEROUT"
	case status&jobStatusBlockedDevQ != 0:
		return "BLOCKED"
	case status&jobStatusPrinted != 0, status&jobStatusComplete != 0:
		return "PRINTED"
	case status&jobStatusPrinting != 0:
		return "PRINTING"
	default:
		return "PRINTING"
	}
}
