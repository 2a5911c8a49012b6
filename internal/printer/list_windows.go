//go:build windows
// +build windows

package printer

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	winspool         = windows.NewLazySystemDLL("winspool.drv")
	procEnumPrinters = winspool.NewProc("EnumPrintersW")
	procGetDefault   = winspool.NewProc("GetDefaultPrinterW")
)

const (
	printerEnumLocal       = 0x00000002
	printerEnumConnections = 0x00000004
	printerAttributeShared = 0x00000008
)

// printerInfo2 mirrors the Win32 PRINTER_INFO_2 struct layout we read
// fields from; unused trailing fields are kept for correct offsets.
type printerInfo2 struct {
	ServerName         *uint16
	PrinterName        *uint16
	ShareName          *uint16
	PortName           *uint16
	DriverName         *uint16
	Comment            *uint16
	Location           *uint16
	DevMode            uintptr
	SepFile            *uint16
	PrintProcessor     *uint16
	Datatype           *uint16
	Parameters         *uint16
	SecurityDescriptor uintptr
	Attributes         uint32
	Priority           uint32
	DefaultPriority    uint32
	StartTime          uint32
	UntilTime          uint32
	Status             uint32
	Jobs               uint32
	AveragePPM         uint32
}

// listPrinters enumerates local and connected printers via the
// Windows spooler API (EnumPrintersW, PRINTER_INFO_2).
func listPrinters() ([]rawPrinter, error) {
	var needed, returned uint32
	flags := uint32(printerEnumLocal | printerEnumConnections)

	procEnumPrinters.Call(
		uintptr(flags), 0, 2, 0, 0,
		uintptr(unsafe.Pointer(&needed)),
		uintptr(unsafe.Pointer(&returned)),
	)
	if needed == 0 {
		return nil, nil
	}

	buf := make([]byte, needed)
	ret, _, _ := procEnumPrinters.Call(
		uintptr(flags), 0, 2,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(needed),
		uintptr(unsafe.Pointer(&needed)),
		uintptr(unsafe.Pointer(&returned)),
	)
	if ret == 0 {
		return nil, windows.GetLastError()
	}

	defaultName := defaultPrinterName()

	raws := make([]rawPrinter, 0, returned)
	structSize := unsafe.Sizeof(printerInfo2{})
	for i := uint32(0); i < returned; i++ {
		info := (*printerInfo2)(unsafe.Pointer(&buf[uintptr(i)*structSize]))

		name := utf16PtrToString(info.PrinterName)
		if name == "" {
			continue
		}
		portName := utf16PtrToString(info.PortName)
		driverName := utf16PtrToString(info.DriverName)

		raws = append(raws, rawPrinter{
			name:      name,
			driver:    driverName,
			portName:  portName,
			isDefault: name == defaultName,
			status:    "ready",
			location:  utf16PtrToString(info.Location),
			comment:   utf16PtrToString(info.Comment),
		})
	}
	return raws, nil
}

func defaultPrinterName() string {
	var size uint32 = 260
	buf := make([]uint16, size)
	ret, _, _ := procGetDefault.Call(
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		return ""
	}
	return windows.UTF16ToString(buf)
}

func utf16PtrToString(p *uint16) string {
	if p == nil {
		return ""
	}
	var chars []uint16
	for ptr := p; *ptr != 0; ptr = (*uint16)(unsafe.Pointer(uintptr(unsafe.Pointer(ptr)) + 2)) {
		chars = append(chars, *ptr)
	}
	return windows.UTF16ToString(chars)
}
