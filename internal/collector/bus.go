package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-tangra/go-tangra-hwcheck/internal/pcidb"
)

// USBProbe enumerates USB devices from sysfs. Descriptor strings are only
// reported when the device node can be opened.
type USBProbe struct {
	SysRoot string
	DevRoot string
}

func (p *USBProbe) devicesDir() string {
	return filepath.Join(p.SysRoot, "bus", "usb", "devices")
}

func (p *USBProbe) Supported() bool { return dirExists(p.devicesDir()) }

func (p *USBProbe) Probe(_ context.Context) []USBDevice {
	entries, err := os.ReadDir(p.devicesDir())
	if err != nil {
		return []USBDevice{}
	}

	devices := make([]USBDevice, 0, len(entries))
	for _, e := range entries {
		dir := filepath.Join(p.devicesDir(), e.Name())
		// Interfaces (1-1:1.0) have no idVendor.
		vendor, ok := readSysfsHex(filepath.Join(dir, "idVendor"))
		if !ok {
			continue
		}
		product, _ := readSysfsHex(filepath.Join(dir, "idProduct"))
		bus := readSysfsInt(filepath.Join(dir, "busnum"))
		addr := readSysfsInt(filepath.Join(dir, "devnum"))

		d := USBDevice{
			Bus:       uint8(bus),
			Address:   uint8(addr),
			VendorID:  vendor,
			ProductID: product,
		}
		d.Manufacturer, d.Product = p.descriptorStrings(dir, bus, addr)
		devices = append(devices, d)
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Bus != devices[j].Bus {
			return devices[i].Bus < devices[j].Bus
		}
		return devices[i].Address < devices[j].Address
	})
	return devices
}

// descriptorStrings returns nil, nil unless /dev/bus/usb/BBB/DDD opens.
func (p *USBProbe) descriptorStrings(dir string, bus, addr int) (manufacturer, product *string) {
	node := filepath.Join(p.DevRoot, "bus", "usb", fmt.Sprintf("%03d", bus), fmt.Sprintf("%03d", addr))
	f, err := os.Open(node)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	return readSysfsOptional(filepath.Join(dir, "manufacturer")),
		readSysfsOptional(filepath.Join(dir, "product"))
}

// PCIProbe enumerates PCI functions and names them through the ID database.
type PCIProbe struct {
	SysRoot string
	DB      *pcidb.DB
}

func (p *PCIProbe) devicesDir() string {
	return filepath.Join(p.SysRoot, "bus", "pci", "devices")
}

func (p *PCIProbe) Supported() bool { return dirExists(p.devicesDir()) }

func (p *PCIProbe) Probe(_ context.Context) []PCIDevice {
	entries, err := os.ReadDir(p.devicesDir())
	if err != nil {
		return []PCIDevice{}
	}

	devices := make([]PCIDevice, 0, len(entries))
	for _, e := range entries {
		dir := filepath.Join(p.devicesDir(), e.Name())
		vendor, ok := readSysfsHex(filepath.Join(dir, "vendor"))
		if !ok {
			continue
		}
		device, ok := readSysfsHex(filepath.Join(dir, "device"))
		if !ok {
			continue
		}

		d := PCIDevice{
			Slot:     e.Name(),
			VendorID: vendor,
			DeviceID: device,
		}
		d.VendorName, d.DeviceName = p.DB.Lookup(vendor, device)
		if class := readSysfsString(filepath.Join(dir, "class")); class != "" {
			if _, err := strconv.ParseUint(class, 0, 32); err == nil {
				d.ClassName = &class
			}
		}
		devices = append(devices, d)
	}
	return devices
}
