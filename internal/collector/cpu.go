package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CacheLabels are the per-level cache sizes, "<n> KB", nil when unknown.
type CacheLabels struct {
	L1 *string
	L2 *string
	L3 *string
}

// CacheProbe reads cache geometry from the cpu0 sysfs cache tree and falls
// back to CPUID leaves when the tree is missing.
type CacheProbe struct {
	SysRoot string
	// CPUID returns L1, L2 and L3 sizes in KB, 0 when unknown.
	CPUID func() (l1, l2, l3 int)
}

func NewCacheProbe(sysRoot string) *CacheProbe {
	return &CacheProbe{SysRoot: sysRoot, CPUID: cpuidCaches}
}

func (p *CacheProbe) Supported() bool { return true }

func (p *CacheProbe) Probe(_ context.Context) CacheLabels {
	sizes := p.sysfsCaches()
	if len(sizes) == 0 && p.CPUID != nil {
		l1, l2, l3 := p.CPUID()
		sizes = map[int]int{}
		for level, kb := range map[int]int{1: l1, 2: l2, 3: l3} {
			if kb > 0 {
				sizes[level] = kb
			}
		}
	}

	label := func(level int) *string {
		kb, ok := sizes[level]
		if !ok || kb <= 0 {
			return nil
		}
		return strPtr(fmt.Sprintf("%d KB", kb))
	}
	return CacheLabels{L1: label(1), L2: label(2), L3: label(3)}
}

// sysfsCaches walks cpu0/cache/index* in index order; when a level has more
// than one entry (L1d and L1i) the last one wins.
func (p *CacheProbe) sysfsCaches() map[int]int {
	base := filepath.Join(p.SysRoot, "devices", "system", "cpu", "cpu0", "cache")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil
	}

	type index struct {
		n   int
		dir string
	}
	var indexes []index
	for _, e := range entries {
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "index"))
		if err != nil || !strings.HasPrefix(e.Name(), "index") {
			continue
		}
		indexes = append(indexes, index{n: n, dir: filepath.Join(base, e.Name())})
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].n < indexes[j].n })

	sizes := make(map[int]int)
	for _, idx := range indexes {
		level := readSysfsInt(filepath.Join(idx.dir, "level"))
		if level < 1 || level > 3 {
			continue
		}
		ways := readSysfsInt(filepath.Join(idx.dir, "ways_of_associativity"))
		partitions := readSysfsInt(filepath.Join(idx.dir, "physical_line_partition"))
		lineSize := readSysfsInt(filepath.Join(idx.dir, "coherency_line_size"))
		sets := readSysfsInt(filepath.Join(idx.dir, "number_of_sets"))
		if kb := cacheKB(ways, partitions, lineSize, sets); kb > 0 {
			sizes[level] = kb
		}
	}
	return sizes
}

// cacheKB is ways x partitions x line size x sets in kibibytes.
func cacheKB(ways, partitions, lineSize, sets int) int {
	return ways * partitions * lineSize * sets / 1024
}

func cpuidCaches() (l1, l2, l3 int) {
	c := cpuid.CPU.Cache
	kb := func(b int) int {
		if b <= 0 {
			return 0
		}
		return b / 1024
	}
	// Leaf order is L1d then L1i, so the instruction cache is the last L1.
	l1 = kb(c.L1I)
	if l1 == 0 {
		l1 = kb(c.L1D)
	}
	return l1, kb(c.L2), kb(c.L3)
}

// cpuBrand is the CPUID vendor string, e.g. "GenuineIntel".
func cpuBrand() string {
	if v := strings.TrimSpace(cpuid.CPU.VendorString); v != "" {
		return v
	}
	return "Unknown"
}

// buildCPU merges sampler readings with package-level cache labels and
// copies the labels onto every logical core.
func buildCPU(samples []CPUSample, physical int, brand string, caches CacheLabels) []CPUCore {
	cores := make([]CPUCore, len(samples))
	for i, s := range samples {
		cores[i] = CPUCore{
			Model:     s.Model,
			VendorID:  s.VendorID,
			Brand:     brand,
			Cores:     physical,
			Frequency: s.Frequency,
			Usage:     s.Usage,
			L1Cache:   cloneString(caches.L1),
			L2Cache:   cloneString(caches.L2),
			L3Cache:   cloneString(caches.L3),
		}
	}
	return cores
}
