// Package find locates USB serial ports belonging to test instruments by
// walking /sys/class/tty, for use with ASRL resources when no explicit
// device path is given.
package find

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// KnownVendors maps USB vendor IDs to the instrument makers this module
// ships drivers for.
var KnownVendors = map[string]string{
	"1ab1": "Rigol",
	"03eb": "AnaPico",
	"0aad": "Rohde & Schwarz",
	"2a8d": "Keysight",
	"0957": "Agilent",
}

// PortInfo describes one USB serial port.
type PortInfo struct {
	Device       string // device node, e.g. /dev/ttyUSB0
	SysPath      string // resolved /sys path
	VendorID     string
	ProductID    string
	Manufacturer string
	Product      string
	Serial       string
}

func (p PortInfo) String() string {
	return fmt.Sprintf("%s vid/pid %s/%s mfg %q product %q serial %q",
		p.Device, p.VendorID, p.ProductID, p.Manufacturer, p.Product, p.Serial)
}

// FilterFn narrows candidate ports; ports it accepts are kept.
type FilterFn func(*PortInfo) bool

// InstrumentFilter accepts ports whose USB vendor ID belongs to a known
// instrument maker.
func InstrumentFilter(p *PortInfo) bool {
	_, ok := KnownVendors[strings.ToLower(p.VendorID)]
	return ok
}

// VendorIDFilter accepts ports with the given USB vendor ID.
func VendorIDFilter(id string) FilterFn {
	id = strings.ToLower(id)
	return func(p *PortInfo) bool { return strings.ToLower(p.VendorID) == id }
}

// SerialNumberFilter accepts the port with the given USB serial number.
func SerialNumberFilter(serial string) FilterFn {
	return func(p *PortInfo) bool { return p.Serial == serial }
}

// Find returns the device node of the single USB serial port matching the
// filter. With a nil filter, all USB serial ports are candidates. It is an
// error when no port matches or when the match is ambiguous.
func Find(filter FilterFn) (string, error) {
	ports, err := Ports()
	if err != nil {
		return "", err
	}
	if filter != nil {
		matched := ports[:0]
		for i := range ports {
			if filter(&ports[i]) {
				matched = append(matched, ports[i])
			}
		}
		ports = matched
	}
	switch len(ports) {
	case 0:
		return "", errors.New("no matching usb serial port found")
	case 1:
		return ports[0].Device, nil
	}
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Device
	}
	return "", fmt.Errorf("ambiguous match: %s", strings.Join(names, ", "))
}

// Ports enumerates USB-backed serial ports by following the /sys/class/tty
// symlinks into the USB device tree.
func Ports() ([]PortInfo, error) {
	const classTTY = "/sys/class/tty/"
	entries, err := os.ReadDir(classTTY)
	if err != nil {
		return nil, err
	}

	var ports []PortInfo
	for _, e := range entries {
		if e.Type()&fs.ModeSymlink == 0 {
			continue
		}
		abs, err := filepath.EvalSymlinks(filepath.Join(classTTY, e.Name()))
		if err != nil || !strings.Contains(abs, "usb") {
			continue
		}
		// The interface directory sits behind the tty's device link;
		// the USB descriptors live one level above it.
		dev, err := filepath.EvalSymlinks(filepath.Join(abs, "device"))
		if err != nil {
			continue
		}
		p := PortInfo{
			Device:  "/dev/" + e.Name(),
			SysPath: abs,
		}
		readDescriptors(filepath.Dir(dev), &p)
		ports = append(ports, p)
	}
	return ports, nil
}

// readDescriptors fills in the USB descriptor strings found under dir.
// Missing files are left empty; devices are not required to expose all of
// them.
func readDescriptors(dir string, p *PortInfo) {
	read := func(name string) string {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
	p.VendorID = read("idVendor")
	p.ProductID = read("idProduct")
	p.Manufacturer = read("manufacturer")
	p.Product = read("product")
	p.Serial = read("serial")
}
