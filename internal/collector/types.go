package collector

import "time"

// HardwareReport holds one snapshot of the local host's hardware.
// Collections are never nil; optional values are nil when no source could
// supply them.
type HardwareReport struct {
	CollectedAt   time.Time          `json:"collected_at" yaml:"collected_at"`
	OSName        string             `json:"os_name" yaml:"os_name"`
	OSVersion     string             `json:"os_version" yaml:"os_version"`
	KernelVersion string             `json:"kernel_version" yaml:"kernel_version"`
	Hostname      string             `json:"hostname" yaml:"hostname"`
	Uptime        uint64             `json:"uptime" yaml:"uptime"`
	System        *SystemIdentity    `json:"system" yaml:"system"`
	CPU           []CPUCore          `json:"cpu" yaml:"cpu"`
	RAM           RAMInfo            `json:"ram" yaml:"ram"`
	Storage       []StorageVolume    `json:"storage" yaml:"storage"`
	Network       []NetworkInterface `json:"network" yaml:"network"`
	USB           []USBDevice        `json:"usb" yaml:"usb"`
	PCI           []PCIDevice        `json:"pci" yaml:"pci"`
	Motherboard   *MotherboardInfo   `json:"motherboard" yaml:"motherboard"`
	Battery       []BatteryInfo      `json:"battery" yaml:"battery"`
}

// SystemIdentity holds the SMBIOS system information structure.
type SystemIdentity struct {
	Manufacturer *string `json:"manufacturer" yaml:"manufacturer"`
	ProductName  *string `json:"product_name" yaml:"product_name"`
	Version      *string `json:"version" yaml:"version"`
	SerialNumber *string `json:"serial_number" yaml:"serial_number"`
}

// CPUCore is one logical processor. Cache labels are package level and
// repeated on every core.
type CPUCore struct {
	Model     string  `json:"model" yaml:"model"`
	VendorID  string  `json:"vendor_id" yaml:"vendor_id"`
	Brand     string  `json:"brand" yaml:"brand"`
	Cores     int     `json:"cores" yaml:"cores"`
	Frequency uint64  `json:"frequency" yaml:"frequency"`
	Usage     float64 `json:"usage" yaml:"usage"`
	L1Cache   *string `json:"l1_cache" yaml:"l1_cache"`
	L2Cache   *string `json:"l2_cache" yaml:"l2_cache"`
	L3Cache   *string `json:"l3_cache" yaml:"l3_cache"`
}

// RAMInfo holds memory counters in bytes and the installed modules.
type RAMInfo struct {
	Total     uint64         `json:"total" yaml:"total"`
	Used      uint64         `json:"used" yaml:"used"`
	Free      uint64         `json:"free" yaml:"free"`
	SwapTotal uint64         `json:"swap_total" yaml:"swap_total"`
	SwapUsed  uint64         `json:"swap_used" yaml:"swap_used"`
	Sticks    []MemoryModule `json:"sticks" yaml:"sticks"`
}

// MemoryModule holds details for a single physical memory DIMM.
type MemoryModule struct {
	Manufacturer string  `json:"manufacturer" yaml:"manufacturer"`
	PartNumber   *string `json:"part_number" yaml:"part_number"`
	SerialNumber *string `json:"serial_number" yaml:"serial_number"`
	Speed        *uint32 `json:"speed" yaml:"speed"`
}

// StorageVolume is a mounted filesystem plus whatever is known about the
// disk underneath it.
type StorageVolume struct {
	Name         string  `json:"name" yaml:"name"`
	MountPoint   string  `json:"mount_point" yaml:"mount_point"`
	Total        uint64  `json:"total" yaml:"total"`
	Used         uint64  `json:"used" yaml:"used"`
	Free         uint64  `json:"free" yaml:"free"`
	Filesystem   string  `json:"filesystem" yaml:"filesystem"`
	Vendor       *string `json:"vendor" yaml:"vendor"`
	ModelName    *string `json:"model_name" yaml:"model_name"`
	SerialNumber *string `json:"serial_number" yaml:"serial_number"`
	DiskType     *string `json:"disk_type" yaml:"disk_type"`
	Interface    *string `json:"interface" yaml:"interface"`
}

type NetworkInterface struct {
	Name        string `json:"name" yaml:"name"`
	Received    uint64 `json:"received" yaml:"received"`
	Transmitted uint64 `json:"transmitted" yaml:"transmitted"`
	MACAddress  string `json:"mac_address" yaml:"mac_address"`
}

type USBDevice struct {
	Bus          uint8   `json:"bus" yaml:"bus"`
	Address      uint8   `json:"address" yaml:"address"`
	VendorID     uint16  `json:"vendor_id" yaml:"vendor_id"`
	ProductID    uint16  `json:"product_id" yaml:"product_id"`
	Manufacturer *string `json:"manufacturer" yaml:"manufacturer"`
	Product      *string `json:"product" yaml:"product"`
}

type PCIDevice struct {
	Slot       string  `json:"slot" yaml:"slot"`
	VendorID   uint16  `json:"vendor_id" yaml:"vendor_id"`
	DeviceID   uint16  `json:"device_id" yaml:"device_id"`
	VendorName *string `json:"vendor_name" yaml:"vendor_name"`
	DeviceName *string `json:"device_name" yaml:"device_name"`
	ClassName  *string `json:"class_name" yaml:"class_name"`
}

// MotherboardInfo holds DMI board and BIOS identification.
type MotherboardInfo struct {
	Vendor      string `json:"vendor" yaml:"vendor"`
	Product     string `json:"product" yaml:"product"`
	BIOSVendor  string `json:"bios_vendor" yaml:"bios_vendor"`
	BIOSVersion string `json:"bios_version" yaml:"bios_version"`
	BIOSDate    string `json:"bios_date" yaml:"bios_date"`
}

type BatteryInfo struct {
	Name     string `json:"name" yaml:"name"`
	Status   string `json:"status" yaml:"status"`
	Capacity uint8  `json:"capacity" yaml:"capacity"`
}

// Clone returns a deep copy of r.
func (r HardwareReport) Clone() HardwareReport {
	out := r
	if r.System != nil {
		s := SystemIdentity{
			Manufacturer: cloneString(r.System.Manufacturer),
			ProductName:  cloneString(r.System.ProductName),
			Version:      cloneString(r.System.Version),
			SerialNumber: cloneString(r.System.SerialNumber),
		}
		out.System = &s
	}

	out.CPU = make([]CPUCore, len(r.CPU))
	for i, c := range r.CPU {
		c.L1Cache = cloneString(c.L1Cache)
		c.L2Cache = cloneString(c.L2Cache)
		c.L3Cache = cloneString(c.L3Cache)
		out.CPU[i] = c
	}

	out.RAM.Sticks = make([]MemoryModule, len(r.RAM.Sticks))
	for i, m := range r.RAM.Sticks {
		m.PartNumber = cloneString(m.PartNumber)
		m.SerialNumber = cloneString(m.SerialNumber)
		if m.Speed != nil {
			v := *m.Speed
			m.Speed = &v
		}
		out.RAM.Sticks[i] = m
	}

	out.Storage = make([]StorageVolume, len(r.Storage))
	for i, v := range r.Storage {
		v.Vendor = cloneString(v.Vendor)
		v.ModelName = cloneString(v.ModelName)
		v.SerialNumber = cloneString(v.SerialNumber)
		v.DiskType = cloneString(v.DiskType)
		v.Interface = cloneString(v.Interface)
		out.Storage[i] = v
	}

	out.Network = append(make([]NetworkInterface, 0, len(r.Network)), r.Network...)

	out.USB = make([]USBDevice, len(r.USB))
	for i, d := range r.USB {
		d.Manufacturer = cloneString(d.Manufacturer)
		d.Product = cloneString(d.Product)
		out.USB[i] = d
	}

	out.PCI = make([]PCIDevice, len(r.PCI))
	for i, d := range r.PCI {
		d.VendorName = cloneString(d.VendorName)
		d.DeviceName = cloneString(d.DeviceName)
		d.ClassName = cloneString(d.ClassName)
		out.PCI[i] = d
	}

	if r.Motherboard != nil {
		mb := *r.Motherboard
		out.Motherboard = &mb
	}

	out.Battery = append(make([]BatteryInfo, 0, len(r.Battery)), r.Battery...)
	return out
}

// normalize replaces nil collections with empty ones.
func (r *HardwareReport) normalize() {
	if r.CPU == nil {
		r.CPU = []CPUCore{}
	}
	if r.RAM.Sticks == nil {
		r.RAM.Sticks = []MemoryModule{}
	}
	if r.Storage == nil {
		r.Storage = []StorageVolume{}
	}
	if r.Network == nil {
		r.Network = []NetworkInterface{}
	}
	if r.USB == nil {
		r.USB = []USBDevice{}
	}
	if r.PCI == nil {
		r.PCI = []PCIDevice{}
	}
	if r.Battery == nil {
		r.Battery = []BatteryInfo{}
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func strPtr(s string) *string { return &s }
