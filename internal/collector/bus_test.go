package collector

import (
	"context"
	"strings"
	"testing"

	"github.com/go-tangra/go-tangra-hwcheck/internal/pcidb"
)

func writeUSBDevice(t *testing.T, root, name, bus, dev, vendor, product string) {
	t.Helper()
	dir := "bus/usb/devices/" + name + "/"
	writeSyntheticFile(t, root, dir+"busnum", bus+"\n")
	writeSyntheticFile(t, root, dir+"devnum", dev+"\n")
	writeSyntheticFile(t, root, dir+"idVendor", vendor+"\n")
	writeSyntheticFile(t, root, dir+"idProduct", product+"\n")
}

func TestUSBProbe(t *testing.T) {
	sys := t.TempDir()
	dev := t.TempDir()

	writeUSBDevice(t, sys, "usb1", "1", "1", "1d6b", "0002")
	writeSyntheticFile(t, sys, "bus/usb/devices/usb1/manufacturer", "Linux Foundation\n")
	writeSyntheticFile(t, sys, "bus/usb/devices/usb1/product", "2.0 root hub\n")
	writeSyntheticFile(t, dev, "bus/usb/001/001", "")

	// No device node: strings must be withheld even though sysfs has them.
	writeUSBDevice(t, sys, "1-2", "1", "4", "046d", "c52b")
	writeSyntheticFile(t, sys, "bus/usb/devices/1-2/manufacturer", "Logitech\n")

	// Interface directory, no idVendor.
	writeSyntheticFile(t, sys, "bus/usb/devices/1-2:1.0/bInterfaceClass", "03\n")

	p := &USBProbe{SysRoot: sys, DevRoot: dev}
	if !p.Supported() {
		t.Fatal("Supported() = false with a devices directory")
	}
	got := p.Probe(context.Background())
	if len(got) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(got))
	}

	hub := got[0]
	if hub.Bus != 1 || hub.Address != 1 || hub.VendorID != 0x1d6b || hub.ProductID != 0x0002 {
		t.Errorf("hub = %+v", hub)
	}
	if hub.Manufacturer == nil || *hub.Manufacturer != "Linux Foundation" {
		t.Errorf("hub manufacturer = %v", hub.Manufacturer)
	}
	if hub.Product == nil || *hub.Product != "2.0 root hub" {
		t.Errorf("hub product = %v", hub.Product)
	}

	mouse := got[1]
	if mouse.Address != 4 || mouse.VendorID != 0x046d {
		t.Errorf("mouse = %+v", mouse)
	}
	if mouse.Manufacturer != nil || mouse.Product != nil {
		t.Errorf("strings reported without an openable device node: %+v", mouse)
	}
}

func TestUSBProbeUnsupported(t *testing.T) {
	p := &USBProbe{SysRoot: t.TempDir(), DevRoot: t.TempDir()}
	if p.Supported() {
		t.Error("Supported() = true without /sys/bus/usb/devices")
	}
}

func TestPCIProbe(t *testing.T) {
	sys := t.TempDir()
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:00:02.0/vendor", "0x8086\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:00:02.0/device", "0x46a6\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:00:02.0/class", "0x030000\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:00:1f.0/vendor", "0x8086\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:00:1f.0/device", "0x5182\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:01:00.0/vendor", "0x1b4b\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:01:00.0/device", "0x9215\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:02:00.0/vendor", "garbage\n")

	db := pcidb.Parse(strings.NewReader("8086  Intel Corporation\n\t46a6  Alder Lake-P GT2 [Iris Xe Graphics]\n"))

	p := &PCIProbe{SysRoot: sys, DB: db}
	got := p.Probe(context.Background())
	if len(got) != 3 {
		t.Fatalf("len(devices) = %d, want 3", len(got))
	}

	gpu := got[0]
	if gpu.Slot != "0000:00:02.0" || gpu.VendorID != 0x8086 || gpu.DeviceID != 0x46a6 {
		t.Errorf("gpu = %+v", gpu)
	}
	if gpu.DeviceName == nil || *gpu.DeviceName != "Alder Lake-P GT2 [Iris Xe Graphics]" {
		t.Errorf("gpu device name = %v", gpu.DeviceName)
	}
	if gpu.ClassName == nil || *gpu.ClassName != "0x030000" {
		t.Errorf("gpu class = %v", gpu.ClassName)
	}

	lpc := got[1]
	if lpc.VendorName == nil || *lpc.VendorName != "Intel Corporation" || lpc.DeviceName != nil {
		t.Errorf("lpc names = %v, %v, want vendor only", lpc.VendorName, lpc.DeviceName)
	}
	if lpc.ClassName != nil {
		t.Errorf("lpc class = %q, want nil", *lpc.ClassName)
	}

	sata := got[2]
	if sata.VendorName != nil || sata.DeviceName != nil {
		t.Errorf("unknown vendor resolved: %+v", sata)
	}
}

func TestPCIProbeWithoutDatabase(t *testing.T) {
	sys := t.TempDir()
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:00:00.0/vendor", "0x1022\n")
	writeSyntheticFile(t, sys, "bus/pci/devices/0000:00:00.0/device", "0x14d8\n")

	got := (&PCIProbe{SysRoot: sys}).Probe(context.Background())
	if len(got) != 1 || got[0].VendorName != nil {
		t.Errorf("Probe() = %+v, want one unnamed device", got)
	}
}
