// Package printer enumerates printers known to the operating system
// and classifies each one into the type/transport/capability model
// the rest of the agent reasons about. The platform-specific listing
// lives in list_unix.go / list_windows.go / list_other.go; everything else
// here is pure and shared across platforms.
package printer

import "fmt"

// Type is the semantic printer family, used to pick a rendering and
// layout strategy.
type Type string

const (
	TypeThermal  Type = "thermal"
	TypeLabel    Type = "label"
	TypeLaser    Type = "laser"
	TypeInkjet   Type = "inkjet"
	TypeDotMatrix Type = "dotmatrix"
	TypeGeneric  Type = "generic"
)

// Transport is how the printer is physically reached.
type Transport string

const (
	TransportUSB       Transport = "usb"
	TransportNetwork   Transport = "network"
	TransportBluetooth Transport = "bluetooth"
	TransportSerial    Transport = "serial"
	TransportParallel  Transport = "parallel"
	TransportUnknown   Transport = "unknown"
)

// Capabilities are derived purely from Type; see classifyCapabilities.
type Capabilities struct {
	Color      bool
	Duplex     bool
	PaperSizes []string
	MaxWidthMm int
	HasCutter  bool
	HasCashDrawer bool
}

// Metadata carries descriptive, non-identity fields surfaced to the
// backend and the UI shell.
type Metadata struct {
	IsDefault bool
	Status    string
	PortName  string
	Location  string
	Comment   string
}

// Descriptor is the immutable snapshot of one OS-level printer.
// SystemName is the stable identity key used everywhere else in the
// agent (job routing, registration cache, renderer dialect choice).
type Descriptor struct {
	SystemName   string
	DisplayName  string
	Type         Type
	Transport    Transport
	Capabilities Capabilities
	Metadata     Metadata
}

// EnumerationError wraps a platform enumeration failure with the
// underlying cause.
type EnumerationError struct {
	Reason string
	Err    error
}

func (e *EnumerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("printer enumeration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("printer enumeration: %s", e.Reason)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

// rawPrinter is what a platform lister produces before classification.
// name/driver/portName/deviceURI/comment feed the classifier;
// isDefault/status/portName/location/comment are copied straight into
// the descriptor's Metadata.
type rawPrinter struct {
	name        string
	driver      string
	portName    string
	deviceURI   string
	isDefault   bool
	status      string
	location    string
	comment     string
}

// Enumerate snapshots the local printers known to the OS and returns
// a stable, classified descriptor list. It is otherwise pure: no
// caching, no I/O beyond the platform listing call.
func Enumerate() ([]Descriptor, error) {
	raws, err := listPrinters()
	if err != nil {
		return nil, &EnumerationError{Reason: "platform printer listing failed", Err: err}
	}

	descriptors := make([]Descriptor, 0, len(raws))
	for _, r := range raws {
		descriptors = append(descriptors, classify(r))
	}
	return descriptors, nil
}

func classify(r rawPrinter) Descriptor {
	t := classifyType(r.name, r.driver)
	transport := classifyTransport(r)

	return Descriptor{
		SystemName:   r.name,
		DisplayName:  r.name,
		Type:         t,
		Transport:    transport,
		Capabilities: classifyCapabilities(t),
		Metadata: Metadata{
			IsDefault: r.isDefault,
			Status:    r.status,
			PortName:  r.portName,
			Location:  r.location,
			Comment:   r.comment,
		},
	}
}
