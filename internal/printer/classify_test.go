package printer

import "testing"

func TestClassifyTypeOrderedRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, driver string
		want         Type
	}{
		{"EPSON TM-T88V Receipt", "Epson ESC/POS", TypeThermal},
		{"Zebra ZD420", "ZPL Driver", TypeLabel},
		{"HP LaserJet Pro M404", "HP LaserJet", TypeLaser},
		{"Epson LX-350", "Epson Dot Matrix", TypeDotMatrix},
		{"Canon PIXMA TS3350", "Canon Inkjet", TypeInkjet},
		{"Generic / Text Only", "", TypeGeneric},
	}
	for _, c := range cases {
		if got := classifyType(c.name, c.driver); got != c.want {
			t.Errorf("classifyType(%q, %q) = %q, want %q", c.name, c.driver, got, c.want)
		}
	}
}

func TestClassifyTypeFirstMatchWins(t *testing.T) {
	t.Parallel()

	// Name mentions both "label" and "laser" keywords; thermal/label
	// rules are evaluated before laser, so label wins.
	got := classifyType("Label Laser Combo", "")
	if got != TypeLabel {
		t.Errorf("expected first matching rule (label) to win, got %q", got)
	}
}

func TestClassifyTransportPortNameSubstring(t *testing.T) {
	t.Parallel()

	cases := []struct {
		port string
		want Transport
	}{
		{"USB001", TransportUSB},
		{"BLUETOOTH:COM5", TransportBluetooth},
		{"COM3", TransportSerial},
		{"LPT1", TransportParallel},
		{"TCP_10.0.0.5", TransportNetwork},
	}
	for _, c := range cases {
		r := rawPrinter{portName: c.port}
		if got := classifyTransport(r); got != c.want {
			t.Errorf("classifyTransport(port=%q) = %q, want %q", c.port, got, c.want)
		}
	}
}

func TestClassifyTransportDeviceURIScheme(t *testing.T) {
	t.Parallel()

	r := rawPrinter{deviceURI: "ipp://printer.local:631/ipp/print"}
	if got := classifyTransport(r); got != TransportNetwork {
		t.Errorf("expected ipp:// uri to classify as network, got %q", got)
	}

	r2 := rawPrinter{deviceURI: "usb://Epson/TM-T88V?serial=12345"}
	if got := classifyTransport(r2); got != TransportUSB {
		t.Errorf("expected usb:// uri to classify as usb, got %q", got)
	}
}

func TestClassifyTransportMacTailSuffix(t *testing.T) {
	t.Parallel()

	r := rawPrinter{name: "Office-Printer-3C:22:FB"}
	if got := classifyTransport(r); got != TransportNetwork {
		t.Errorf("expected MAC-tail suffix to classify as network, got %q", got)
	}
}

func TestClassifyTransportWirelessKeyword(t *testing.T) {
	t.Parallel()

	r := rawPrinter{name: "Canon WiFi Printer", comment: "AirPrint enabled"}
	if got := classifyTransport(r); got != TransportNetwork {
		t.Errorf("expected wifi/airprint keyword to classify as network, got %q", got)
	}
}

func TestClassifyTransportUnknownFallback(t *testing.T) {
	t.Parallel()

	r := rawPrinter{name: "Mystery Printer"}
	if got := classifyTransport(r); got != TransportUnknown {
		t.Errorf("expected unknown transport fallback, got %q", got)
	}
}

func TestClassifyCapabilitiesThermalForcesOffColorAndDuplex(t *testing.T) {
	t.Parallel()

	caps := classifyCapabilities(TypeThermal)
	if caps.Color || caps.Duplex {
		t.Errorf("thermal capabilities must force off color and duplex, got %+v", caps)
	}
	if len(caps.PaperSizes) != 2 || caps.PaperSizes[0] != "80mm" || caps.PaperSizes[1] != "58mm" {
		t.Errorf("thermal paper sizes = %v, want [80mm 58mm]", caps.PaperSizes)
	}
}

func TestClassifyCapabilitiesLabelPaperSizes(t *testing.T) {
	t.Parallel()

	caps := classifyCapabilities(TypeLabel)
	if caps.Color || caps.Duplex {
		t.Errorf("label capabilities must force off color and duplex, got %+v", caps)
	}
	if len(caps.PaperSizes) != 2 || caps.PaperSizes[0] != "Label" || caps.PaperSizes[1] != "Continuous" {
		t.Errorf("label paper sizes = %v, want [Label Continuous]", caps.PaperSizes)
	}
}

func TestClassifyCapabilitiesGenericDefaultsToA4Letter(t *testing.T) {
	t.Parallel()

	for _, typ := range []Type{TypeLaser, TypeInkjet, TypeDotMatrix, TypeGeneric} {
		caps := classifyCapabilities(typ)
		if len(caps.PaperSizes) != 2 || caps.PaperSizes[0] != "A4" || caps.PaperSizes[1] != "Letter" {
			t.Errorf("%s paper sizes = %v, want [A4 Letter]", typ, caps.PaperSizes)
		}
	}
}

func TestClassifyFullDescriptor(t *testing.T) {
	t.Parallel()

	r := rawPrinter{
		name:      "EPSON-TM-T88V",
		driver:    "Epson ESC/POS",
		portName:  "USB001",
		isDefault: true,
		status:    "ready",
	}
	d := classify(r)

	if d.SystemName != "EPSON-TM-T88V" {
		t.Errorf("SystemName = %q", d.SystemName)
	}
	if d.Type != TypeThermal {
		t.Errorf("Type = %q, want thermal", d.Type)
	}
	if d.Transport != TransportUSB {
		t.Errorf("Transport = %q, want usb", d.Transport)
	}
	if !d.Metadata.IsDefault {
		t.Error("expected IsDefault to propagate from rawPrinter")
	}
	if d.Capabilities.Color {
		t.Error("expected thermal descriptor to have color disabled")
	}
}
