package collector

import (
	"context"
	"sync"
	"time"

	"github.com/go-tangra/go-tangra-hwcheck/internal/pcidb"
)

// DefaultCPUSampleInterval is the minimum gap between the two CPU readings
// a usage figure is derived from.
const DefaultCPUSampleInterval = 200 * time.Millisecond

// Collector assembles a HardwareReport from the sampler and the probes.
// A nil probe is treated as unsupported.
type Collector struct {
	Sampler  Sampler
	Caches   Probe[CacheLabels]
	Firmware Probe[Firmware]
	Storage  Probe[[]StorageVolume]
	USB      Probe[[]USBDevice]
	PCI      Probe[[]PCIDevice]
	Board    Probe[*MotherboardInfo]
	Battery  Probe[[]BatteryInfo]

	// Brand returns the CPU vendor string copied onto every core.
	Brand             func() string
	CPUSampleInterval time.Duration
	Now               func() time.Time

	// cpuMu holds one baseline/reading pair together; an overlapping
	// Collect would otherwise reset the baseline mid-window.
	cpuMu sync.Mutex
}

// New returns a Collector reading the live host through /sys and /dev.
func New(db *pcidb.DB, sampleInterval time.Duration) *Collector {
	return &Collector{
		Sampler:           NewPSSampler("/sys"),
		Caches:            NewCacheProbe("/sys"),
		Firmware:          NewSMBIOSProbe(),
		Storage:           NewStorageProbe("/sys"),
		USB:               &USBProbe{SysRoot: "/sys", DevRoot: "/dev"},
		PCI:               &PCIProbe{SysRoot: "/sys", DB: db},
		Board:             &BoardProbe{SysRoot: "/sys"},
		Battery:           &BatteryProbe{SysRoot: "/sys"},
		Brand:             cpuBrand,
		CPUSampleInterval: sampleInterval,
		Now:               time.Now,
	}
}

// Collect gathers a full hardware report. It never fails: sources that are
// missing or unreadable leave empty collections and nil fields behind.
func (c *Collector) Collect(ctx context.Context) HardwareReport {
	var report HardwareReport
	if c.Now != nil {
		report.CollectedAt = c.Now().UTC()
	}

	if c.Sampler != nil {
		hostInfo := c.Sampler.Host(ctx)
		report.OSName = hostInfo.OSName
		report.OSVersion = hostInfo.OSVersion
		report.KernelVersion = hostInfo.KernelVersion
		report.Hostname = hostInfo.Hostname
		report.Uptime = hostInfo.Uptime

		report.CPU = buildCPU(c.sampleCPU(ctx), c.Sampler.PhysicalCores(ctx), c.brand(), runProbe(ctx, c.Caches, CacheLabels{}))

		m := c.Sampler.Memory(ctx)
		report.RAM = RAMInfo{
			Total:     m.Total,
			Used:      m.Used,
			Free:      m.Free,
			SwapTotal: m.SwapTotal,
			SwapUsed:  m.SwapUsed,
		}

		for _, n := range c.Sampler.Network(ctx) {
			report.Network = append(report.Network, NetworkInterface{
				Name:        n.Name,
				Received:    n.Received,
				Transmitted: n.Transmitted,
				MACAddress:  n.MACAddress,
			})
		}
	}

	fw := runProbe(ctx, c.Firmware, Firmware{})
	report.RAM.Sticks = fw.Sticks
	report.System = fw.System

	report.Storage = runProbe(ctx, c.Storage, nil)
	report.USB = runProbe(ctx, c.USB, nil)
	report.PCI = runProbe(ctx, c.PCI, nil)
	report.Motherboard = runProbe(ctx, c.Board, nil)
	report.Battery = runProbe(ctx, c.Battery, nil)

	report.normalize()
	return report
}

// sampleCPU discards the first reading and waits out the sample interval
// before taking the one that is kept.
func (c *Collector) sampleCPU(ctx context.Context) []CPUSample {
	c.cpuMu.Lock()
	defer c.cpuMu.Unlock()

	c.Sampler.CPU(ctx)
	if c.CPUSampleInterval > 0 {
		t := time.NewTimer(c.CPUSampleInterval)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	return c.Sampler.CPU(ctx)
}

func (c *Collector) brand() string {
	if c.Brand == nil {
		return "Unknown"
	}
	return c.Brand()
}
