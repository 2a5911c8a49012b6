package printer

import (
	"regexp"
	"strings"
)

// typeRule is one ordered keyword rule; the first rule whose keyword
// appears in the haystack wins.
type typeRule struct {
	keyword string
	result  Type
}

// typeRules is evaluated in order: thermal, label, laser, dotmatrix,
// inkjet, generic. Keywords are matched case-insensitively against
// name ∪ driver.
var typeRules = []typeRule{
	{"thermal", TypeThermal},
	{"receipt", TypeThermal},
	{"pos-", TypeThermal},
	{"epson tm", TypeThermal},
	{"epson-tm", TypeThermal},
	{"star tsp", TypeThermal},
	{"star bsc", TypeThermal},

	{"label", TypeLabel},
	{"zebra", TypeLabel},
	{"zpl", TypeLabel},
	{"dymo", TypeLabel},
	{"brother ql", TypeLabel},

	{"laser", TypeLaser},
	{"laserjet", TypeLaser},
	{"colorlaser", TypeLaser},

	{"dot matrix", TypeDotMatrix},
	{"dotmatrix", TypeDotMatrix},
	{"impact", TypeDotMatrix},
	{"epson lx", TypeDotMatrix},
	{"epson fx", TypeDotMatrix},

	{"inkjet", TypeInkjet},
	{"deskjet", TypeInkjet},
	{"officejet", TypeInkjet},
	{"pixma", TypeInkjet},
}

// classifyType applies the ordered keyword rules to name and driver;
// first match wins, default generic.
func classifyType(name, driver string) Type {
	haystack := strings.ToLower(name + " " + driver)
	for _, rule := range typeRules {
		if strings.Contains(haystack, rule.keyword) {
			return rule.result
		}
	}
	return TypeGeneric
}

var macTailRegex = regexp.MustCompile(`(?i)([0-9a-f]{2}[:\-]){2}[0-9a-f]{2}$`)

// classifyTransport applies the interface-detection order from the
// enumerator contract: port-name substring, then CUPS device-uri
// scheme, then a MAC-tail suffix on the name, then wifi/wireless/
// airprint keywords, else unknown.
func classifyTransport(r rawPrinter) Transport {
	port := strings.ToLower(r.portName)

	switch {
	case strings.Contains(port, "usb"):
		return TransportUSB
	case strings.Contains(port, "bluetooth"), strings.Contains(port, "bt"):
		return TransportBluetooth
	case strings.Contains(port, "com"), strings.Contains(port, "serial"):
		return TransportSerial
	case strings.Contains(port, "lpt"), strings.Contains(port, "parallel"):
		return TransportParallel
	case strings.Contains(port, "tcp"), strings.Contains(port, "ip_"), strings.Contains(port, "net"):
		return TransportNetwork
	}

	if t := classifyTransportFromURI(r.deviceURI); t != TransportUnknown {
		return t
	}

	if macTailRegex.MatchString(strings.TrimSpace(r.name)) {
		return TransportNetwork
	}

	haystack := strings.ToLower(r.name + " " + r.driver + " " + r.comment)
	if strings.Contains(haystack, "wifi") || strings.Contains(haystack, "wireless") ||
		strings.Contains(haystack, "airprint") {
		return TransportNetwork
	}

	return TransportUnknown
}

// classifyTransportFromURI reads a CUPS-style device-uri scheme,
// e.g. "usb://HP/LaserJet", "ipp://printer.local/ipp/print".
func classifyTransportFromURI(uri string) Transport {
	uri = strings.ToLower(uri)
	switch {
	case strings.HasPrefix(uri, "usb:"):
		return TransportUSB
	case strings.HasPrefix(uri, "bluetooth:"):
		return TransportBluetooth
	case strings.HasPrefix(uri, "serial:"), strings.HasPrefix(uri, "/dev/"):
		return TransportSerial
	case strings.HasPrefix(uri, "parallel:"):
		return TransportParallel
	case strings.HasPrefix(uri, "ipp:"), strings.HasPrefix(uri, "ipps:"),
		strings.HasPrefix(uri, "http:"), strings.HasPrefix(uri, "https:"),
		strings.HasPrefix(uri, "socket:"), strings.HasPrefix(uri, "lpd:"),
		strings.HasPrefix(uri, "smb:"), strings.HasPrefix(uri, "dnssd:"):
		return TransportNetwork
	default:
		return TransportUnknown
	}
}

// classifyCapabilities derives capabilities purely from Type, per the
// enumerator contract: color and duplex are forced off for
// thermal/label/dotmatrix; paper sizes are fixed sets per family.
func classifyCapabilities(t Type) Capabilities {
	switch t {
	case TypeThermal:
		return Capabilities{
			Color:      false,
			Duplex:     false,
			PaperSizes: []string{"80mm", "58mm"},
			MaxWidthMm: 80,
			HasCutter:  true,
			HasCashDrawer: true,
		}
	case TypeLabel:
		return Capabilities{
			Color:      false,
			Duplex:     false,
			PaperSizes: []string{"Label", "Continuous"},
			MaxWidthMm: 104,
		}
	case TypeDotMatrix:
		return Capabilities{
			Color:      false,
			Duplex:     false,
			PaperSizes: []string{"A4", "Letter"},
		}
	case TypeLaser:
		return Capabilities{
			Color:      true,
			Duplex:     true,
			PaperSizes: []string{"A4", "Letter"},
		}
	case TypeInkjet:
		return Capabilities{
			Color:      true,
			Duplex:     false,
			PaperSizes: []string{"A4", "Letter"},
		}
	default:
		return Capabilities{
			Color:      true,
			Duplex:     false,
			PaperSizes: []string{"A4", "Letter"},
		}
	}
}
