package collector

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// BoardProbe reads board and BIOS identity from /sys/class/dmi/id.
type BoardProbe struct {
	SysRoot string
}

func (p *BoardProbe) dir() string { return filepath.Join(p.SysRoot, "class", "dmi", "id") }

func (p *BoardProbe) Supported() bool { return dirExists(p.dir()) }

func (p *BoardProbe) Probe(_ context.Context) *MotherboardInfo {
	read := func(name string) string {
		if v := readSysfsString(filepath.Join(p.dir(), name)); v != "" {
			return v
		}
		return "Unknown"
	}
	return &MotherboardInfo{
		Vendor:      read("board_vendor"),
		Product:     read("board_name"),
		BIOSVendor:  read("bios_vendor"),
		BIOSVersion: read("bios_version"),
		BIOSDate:    read("bios_date"),
	}
}

// BatteryProbe reads BAT* entries of /sys/class/power_supply.
type BatteryProbe struct {
	SysRoot string
}

func (p *BatteryProbe) dir() string { return filepath.Join(p.SysRoot, "class", "power_supply") }

func (p *BatteryProbe) Supported() bool { return dirExists(p.dir()) }

func (p *BatteryProbe) Probe(_ context.Context) []BatteryInfo {
	entries, err := os.ReadDir(p.dir())
	if err != nil {
		return []BatteryInfo{}
	}

	batteries := []BatteryInfo{}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "BAT") {
			continue
		}
		dir := filepath.Join(p.dir(), e.Name())
		status := readSysfsString(filepath.Join(dir, "status"))
		if status == "" {
			status = "Unknown"
		}
		batteries = append(batteries, BatteryInfo{
			Name:     e.Name(),
			Status:   status,
			Capacity: batteryCapacity(readSysfsString(filepath.Join(dir, "capacity"))),
		})
	}
	return batteries
}

// batteryCapacity parses a 0-100 percentage; anything else is 0.
func batteryCapacity(s string) uint8 {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 100 {
		return 0
	}
	return uint8(n)
}
