package collector

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// CPUSample is one logical processor as seen by the OS.
type CPUSample struct {
	Model     string
	VendorID  string
	Frequency uint64
	Usage     float64
}

type MemorySample struct {
	Total     uint64
	Used      uint64
	Free      uint64
	SwapTotal uint64
	SwapUsed  uint64
}

type NetworkSample struct {
	Name        string
	MACAddress  string
	Received    uint64
	Transmitted uint64
}

type HostSample struct {
	Hostname      string
	OSName        string
	OSVersion     string
	KernelVersion string
	Uptime        uint64
}

// Sampler reads the cheap, fast-changing counters. CPU usage is a delta
// against the previous CPU call, so the first reading is always zero.
type Sampler interface {
	CPU(ctx context.Context) []CPUSample
	PhysicalCores(ctx context.Context) int
	Memory(ctx context.Context) MemorySample
	Network(ctx context.Context) []NetworkSample
	Host(ctx context.Context) HostSample
	Uptime(ctx context.Context) uint64
}

// PSSampler implements Sampler with gopsutil. The current clock of each
// core comes from cpufreq under SysRoot, since gopsutil only reports the
// maximum.
type PSSampler struct {
	SysRoot string

	mu   sync.Mutex
	prev map[string]cpu.TimesStat
}

func NewPSSampler(sysRoot string) *PSSampler {
	return &PSSampler{SysRoot: sysRoot}
}

func (s *PSSampler) CPU(ctx context.Context) []CPUSample {
	times, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		return nil
	}
	infos, _ := cpu.InfoWithContext(ctx)

	s.mu.Lock()
	prev := s.prev
	s.prev = make(map[string]cpu.TimesStat, len(times))
	for _, t := range times {
		s.prev[t.CPU] = t
	}
	s.mu.Unlock()

	samples := make([]CPUSample, len(times))
	for i, t := range times {
		if p, ok := prev[t.CPU]; ok {
			samples[i].Usage = cpuUsage(p, t)
		}
		// cpu.Info is one entry per logical CPU on Linux but per package
		// elsewhere; reuse the last entry when it runs short.
		if len(infos) > 0 {
			info := infos[len(infos)-1]
			if i < len(infos) {
				info = infos[i]
			}
			samples[i].Model = strings.TrimSpace(info.ModelName)
			samples[i].VendorID = info.VendorID
			samples[i].Frequency = uint64(info.Mhz)
		}
		if mhz := s.currentMHz(t.CPU); mhz > 0 {
			samples[i].Frequency = mhz
		}
	}
	return samples
}

// currentMHz reads scaling_cur_freq (kHz) for a core named like "cpu3".
// It returns 0 when the attribute is missing.
func (s *PSSampler) currentMHz(name string) uint64 {
	if s.SysRoot == "" || !strings.HasPrefix(name, "cpu") {
		return 0
	}
	khz := readSysfsInt(filepath.Join(s.SysRoot, "devices", "system", "cpu", name, "cpufreq", "scaling_cur_freq"))
	if khz <= 0 {
		return 0
	}
	return uint64(khz) / 1000
}

// cpuUsage returns the busy share of the interval between two cumulative
// readings, 0-100.
func cpuUsage(prev, cur cpu.TimesStat) float64 {
	total := func(t cpu.TimesStat) float64 {
		return t.User + t.System + t.Nice + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
	}
	idle := func(t cpu.TimesStat) float64 { return t.Idle + t.Iowait }

	totalDelta := total(cur) - total(prev)
	if totalDelta <= 0 {
		return 0
	}
	busyDelta := totalDelta - (idle(cur) - idle(prev))
	usage := busyDelta * 100 / totalDelta
	switch {
	case usage < 0:
		return 0
	case usage > 100:
		return 100
	}
	return usage
}

func (s *PSSampler) PhysicalCores(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		return 0
	}
	return n
}

func (s *PSSampler) Memory(ctx context.Context) MemorySample {
	var out MemorySample
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.Total = vm.Total
		out.Used = vm.Used
		out.Free = vm.Free
	}
	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil {
		out.SwapTotal = sw.Total
		out.SwapUsed = sw.Used
	}
	return out
}

func (s *PSSampler) Network(ctx context.Context) []NetworkSample {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil
	}

	macs := make(map[string]string)
	if ifaces, err := net.InterfacesWithContext(ctx); err == nil {
		for _, iface := range ifaces {
			macs[iface.Name] = iface.HardwareAddr
		}
	}

	out := make([]NetworkSample, 0, len(counters))
	for _, c := range counters {
		mac := macs[c.Name]
		if mac == "" {
			mac = "00:00:00:00:00:00"
		}
		out = append(out, NetworkSample{
			Name:        c.Name,
			MACAddress:  mac,
			Received:    c.BytesRecv,
			Transmitted: c.BytesSent,
		})
	}
	return out
}

func (s *PSSampler) Host(ctx context.Context) HostSample {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostSample{OSName: "Unknown", OSVersion: "Unknown", KernelVersion: "Unknown", Hostname: "Unknown"}
	}
	return HostSample{
		Hostname:      orUnknown(info.Hostname),
		OSName:        orUnknown(info.Platform),
		OSVersion:     orUnknown(info.PlatformVersion),
		KernelVersion: orUnknown(info.KernelVersion),
		Uptime:        info.Uptime,
	}
}

func (s *PSSampler) Uptime(ctx context.Context) uint64 {
	up, err := host.UptimeWithContext(ctx)
	if err != nil {
		return 0
	}
	return up
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
