// Package live keeps a hardware report current in an interactive view.
//
// A Session owns a private copy of a report taken once at start. On each
// refresh only the fast-changing counters (CPU usage and frequency, memory
// usage, uptime, network totals) are re-sampled and patched into that copy;
// everything else stays as first discovered.
package live

import (
	"context"
	"time"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
)

const (
	DefaultRefreshInterval = time.Second
	DefaultPollInterval    = 250 * time.Millisecond
)

// Tab is a dashboard page.
type Tab int

const (
	TabOverview Tab = iota
	TabCPUMemory
	TabStorageNetwork
	TabPeripherals
)

// TabCount is the number of dashboard pages.
const TabCount = 4

var tabTitles = [TabCount]string{
	" 1: Overview ",
	" 2: CPU & RAM ",
	" 3: Storage & Network ",
	" 4: PCI & USB ",
}

func (t Tab) String() string {
	if t < 0 || int(t) >= TabCount {
		return "unknown"
	}
	return tabTitles[t]
}

type State int

const (
	Running State = iota
	Terminated
)

// Session is the state machine behind the dashboard. It is not safe for
// concurrent use; the UI loop is its only caller.
type Session struct {
	report       collector.HardwareReport
	sampler      collector.Sampler
	tab          Tab
	state        State
	refreshEvery time.Duration
	lastRefresh  time.Time
}

// NewSession wraps a copy of report. sampler may be nil, in which case the
// view is static.
func NewSession(report collector.HardwareReport, sampler collector.Sampler, refreshEvery time.Duration, now time.Time) *Session {
	if refreshEvery <= 0 {
		refreshEvery = DefaultRefreshInterval
	}
	return &Session{
		report:       report.Clone(),
		sampler:      sampler,
		refreshEvery: refreshEvery,
		lastRefresh:  now,
	}
}

// Report returns the working copy. Callers must not modify it.
func (s *Session) Report() *collector.HardwareReport { return &s.report }

func (s *Session) Tab() Tab { return s.tab }

func (s *Session) State() State { return s.state }

func (s *Session) Next() { s.tab = (s.tab + 1) % TabCount }

func (s *Session) Previous() { s.tab = (s.tab + TabCount - 1) % TabCount }

// Select jumps to the 1-based page n. Out of range values are ignored.
func (s *Session) Select(n int) bool {
	if n < 1 || n > TabCount {
		return false
	}
	s.tab = Tab(n - 1)
	return true
}

func (s *Session) Quit() { s.state = Terminated }

// Tick refreshes when at least one refresh interval has passed since the
// last refresh. It reports whether a refresh happened.
func (s *Session) Tick(ctx context.Context, now time.Time) bool {
	if s.state == Terminated || now.Sub(s.lastRefresh) < s.refreshEvery {
		return false
	}
	s.Refresh(ctx, now)
	return true
}

// Refresh re-samples the live counters and patches them in.
func (s *Session) Refresh(ctx context.Context, now time.Time) {
	s.lastRefresh = now
	if s.sampler == nil {
		return
	}
	mem := s.sampler.Memory(ctx)
	uptime := s.sampler.Uptime(ctx)
	Patch{
		CPU:     s.sampler.CPU(ctx),
		Memory:  &mem,
		Uptime:  &uptime,
		Network: s.sampler.Network(ctx),
	}.Apply(&s.report)
}

// Patch is the set of counters a refresh may overwrite.
type Patch struct {
	// CPU is matched to cores by index; extra entries on either side are
	// ignored.
	CPU    []collector.CPUSample
	Memory *collector.MemorySample
	Uptime *uint64
	// Network is matched by interface name. Interfaces without a sample
	// keep their previous counters and new interfaces are not added.
	Network []collector.NetworkSample
}

// Apply writes p into r in place.
func (p Patch) Apply(r *collector.HardwareReport) {
	for i := range r.CPU {
		if i >= len(p.CPU) {
			break
		}
		r.CPU[i].Usage = p.CPU[i].Usage
		r.CPU[i].Frequency = p.CPU[i].Frequency
	}

	if p.Memory != nil {
		r.RAM.Used = p.Memory.Used
		r.RAM.Free = p.Memory.Free
		r.RAM.SwapUsed = p.Memory.SwapUsed
	}

	if p.Uptime != nil {
		r.Uptime = *p.Uptime
	}

	if len(p.Network) > 0 {
		byName := make(map[string]collector.NetworkSample, len(p.Network))
		for _, n := range p.Network {
			byName[n.Name] = n
		}
		for i := range r.Network {
			if n, ok := byName[r.Network[i].Name]; ok {
				r.Network[i].Received = n.Received
				r.Network[i].Transmitted = n.Transmitted
			}
		}
	}
}
