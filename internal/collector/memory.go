package collector

import (
	"context"
	"runtime"
	"strconv"
	"strings"

	"github.com/siderolabs/go-smbios/smbios"
)

// Firmware is what the SMBIOS tables contribute to a report.
type Firmware struct {
	Sticks []MemoryModule
	System *SystemIdentity
}

// rawMemoryDevice is the subset of a type 17 structure we keep, as text.
type rawMemoryDevice struct {
	Manufacturer string
	PartNumber   string
	SerialNumber string
	Speed        string
}

// SMBIOSProbe decodes the firmware tables. Reading them needs root; any
// failure yields no modules.
type SMBIOSProbe struct {
	Open func() (*smbios.SMBIOS, error)
}

func NewSMBIOSProbe() *SMBIOSProbe {
	return &SMBIOSProbe{Open: smbios.New}
}

func (p *SMBIOSProbe) Supported() bool { return runtime.GOOS == "linux" && p.Open != nil }

func (p *SMBIOSProbe) Probe(_ context.Context) Firmware {
	s, err := p.Open()
	if err != nil || s == nil {
		return Firmware{Sticks: []MemoryModule{}}
	}

	raw := make([]rawMemoryDevice, 0, len(s.MemoryDevices))
	for _, dev := range s.MemoryDevices {
		raw = append(raw, rawMemoryDevice{
			Manufacturer: dev.Manufacturer,
			PartNumber:   dev.PartNumber,
			SerialNumber: dev.SerialNumber,
			Speed:        smbiosSpeed(uint16(dev.ConfiguredMemorySpeed)),
		})
	}

	sys := s.SystemInformation
	return Firmware{
		Sticks: memoryModules(raw),
		System: systemIdentity(sys.Manufacturer, sys.ProductName, sys.Version, sys.SerialNumber),
	}
}

// memoryModules cleans raw type 17 records. A record without a usable
// manufacturer is an empty slot and is dropped.
func memoryModules(raw []rawMemoryDevice) []MemoryModule {
	out := make([]MemoryModule, 0, len(raw))
	for _, r := range raw {
		manufacturer := cleanSMBIOSString(r.Manufacturer)
		if manufacturer == nil {
			continue
		}
		out = append(out, MemoryModule{
			Manufacturer: jedecManufacturer(*manufacturer),
			PartNumber:   cleanSMBIOSString(r.PartNumber),
			SerialNumber: cleanSMBIOSString(r.SerialNumber),
			Speed:        parseSpeed(r.Speed),
		})
	}
	return out
}

func systemIdentity(manufacturer, product, version, serial string) *SystemIdentity {
	id := SystemIdentity{
		Manufacturer: cleanSMBIOSString(manufacturer),
		ProductName:  cleanSMBIOSString(product),
		Version:      cleanSMBIOSString(version),
		SerialNumber: cleanSMBIOSString(serial),
	}
	if id.Manufacturer == nil && id.ProductName == nil && id.Version == nil && id.SerialNumber == nil {
		return nil
	}
	return &id
}

// cleanSMBIOSString maps the placeholders firmware vendors put in unused
// fields to nil.
func cleanSMBIOSString(s string) *string {
	v := strings.TrimSpace(s)
	lower := strings.ToLower(v)
	switch {
	case v == "", v == "0":
		return nil
	case lower == "unknown", lower == "none", lower == "not specified":
		return nil
	case strings.Contains(lower, "empty"):
		return nil
	}
	return &v
}

var jedecCodes = []struct {
	codes []string
	name  string
}{
	{[]string{"0198"}, "Kingston"},
	{[]string{"04cb"}, "ADATA"},
	{[]string{"00ad", "80ad"}, "SK Hynix"},
	{[]string{"00ce", "80ce"}, "Samsung"},
	{[]string{"012f", "812f"}, "Micron"},
	{[]string{"029e", "829e"}, "Corsair"},
	{[]string{"0423", "8423", "059b", "859b"}, "Crucial"},
}

// jedecManufacturer translates a JEDEC manufacturer code. Names and unknown
// codes are returned unchanged.
func jedecManufacturer(s string) string {
	lower := strings.ToLower(s)
	for _, j := range jedecCodes {
		for _, c := range j.codes {
			if strings.Contains(lower, c) {
				return j.name
			}
		}
	}
	return s
}

// parseSpeed keeps only the digits of a speed string such as "3200 MT/s".
// smbiosSpeed renders a type 17 speed word. 0 is unknown and 0xFFFF means
// the value lives in the extended field, so both give "".
func smbiosSpeed(v uint16) string {
	if v == 0 || v == 0xFFFF {
		return ""
	}
	return strconv.FormatUint(uint64(v), 10)
}

func parseSpeed(s string) *uint32 {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || n == 0 {
		return nil
	}
	v := uint32(n)
	return &v
}
