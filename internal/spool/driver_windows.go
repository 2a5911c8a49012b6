//go:build windows
// +build windows

package spool

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	shell32             = windows.NewLazySystemDLL("shell32.dll")
	procShellExecuteW   = shell32.NewProc("ShellExecuteW")
	winspoolDrv         = windows.NewLazySystemDLL("winspool.drv")
	procOpenPrinterW    = winspoolDrv.NewProc("OpenPrinterW")
	procClosePrinterW   = winspoolDrv.NewProc("ClosePrinter")
	procStartDocPrinter = winspoolDrv.NewProc("StartDocPrinterW")
	procStartPage       = winspoolDrv.NewProc("StartPagePrinter")
	procWritePrinter    = winspoolDrv.NewProc("WritePrinter")
	procEndPage         = winspoolDrv.NewProc("EndPagePrinter")
	procEndDocPrinter   = winspoolDrv.NewProc("EndDocPrinter")
)

// docInfo1 mirrors DOC_INFO_1W: document name, output file (nil for
// direct-to-printer), and datatype ("RAW" for pass-through streams).
type docInfo1 struct {
	DocName    *uint16
	OutputFile *uint16
	Datatype   *uint16
}

// submitFile prints a PDF or HTML scratch file silently via the
// shell's "printto" verb, which hands the file to its registered
// default handler (Edge/Acrobat for PDF, the default browser for
// HTML) and asks it to print to the named device without opening a
// visible window. No spooler job id is recovered this way.
func submitFile(printerSystemName, path string, opts SubmitOptions) (*Handle, error) {
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "encode path", Err: err}
	}
	verbPtr, _ := windows.UTF16PtrFromString("printto")
	printerPtr, _ := windows.UTF16PtrFromString(fmt.Sprintf("%q", printerSystemName))

	const swHide = 0
	ret, _, _ := procShellExecuteW.Call(
		0,
		uintptr(unsafe.Pointer(verbPtr)),
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(printerPtr)),
		0,
		swHide,
	)
	// ShellExecute returns a value > 32 on success.
	if ret <= 32 {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: fmt.Sprintf("ShellExecute printto failed (code %d)", ret)}
	}

	return &Handle{PrinterSystemName: printerSystemName}, nil
}

// submitStream writes a raw device stream (ESC/POS, ZPL) directly to
// the printer's spooler queue using the RAW datatype, bypassing any
// driver translation, via OpenPrinter/StartDocPrinter/WritePrinter.
func submitStream(printerSystemName string, data []byte, opts SubmitOptions) (*Handle, error) {
	namePtr, err := windows.UTF16PtrFromString(printerSystemName)
	if err != nil {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "encode printer name", Err: err}
	}

	var handle windows.Handle
	ret, _, _ := procOpenPrinterW.Call(uintptr(unsafe.Pointer(namePtr)), uintptr(unsafe.Pointer(&handle)), 0)
	if ret == 0 {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "OpenPrinter failed"}
	}
	defer procClosePrinterW.Call(uintptr(handle))

	docName, _ := windows.UTF16PtrFromString("RepairMindPrint raw job")
	datatype, _ := windows.UTF16PtrFromString("RAW")
	info := docInfo1{DocName: docName, Datatype: datatype}

	jobID, _, _ := procStartDocPrinter.Call(uintptr(handle), 1, uintptr(unsafe.Pointer(&info)))
	if jobID == 0 {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "StartDocPrinter failed"}
	}
	defer procEndDocPrinter.Call(uintptr(handle))

	if ret, _, _ := procStartPage.Call(uintptr(handle)); ret == 0 {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "StartPagePrinter failed"}
	}
	defer procEndPage.Call(uintptr(handle))

	var written uint32
	ret, _, _ = procWritePrinter.Call(
		uintptr(handle),
		uintptr(unsafe.Pointer(&data[0])),
		uintptr(len(data)),
		uintptr(unsafe.Pointer(&written)),
	)
	if ret == 0 || int(written) != len(data) {
		return nil, &SubmitError{PrinterSystemName: printerSystemName, Reason: "WritePrinter failed or incomplete"}
	}

	return &Handle{PrinterSystemName: printerSystemName, OSJobID: fmt.Sprintf("%d", jobID), HasOSJobID: true}, nil
}
