package collector

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// Probe reads one hardware source. Supported reports whether the source can
// exist on this host at all; Probe never fails and degrades to an empty or
// nil result instead.
type Probe[T any] interface {
	Supported() bool
	Probe(ctx context.Context) T
}

// runProbe returns fallback when p is absent or unsupported.
func runProbe[T any](ctx context.Context, p Probe[T], fallback T) T {
	if p == nil || !p.Supported() {
		return fallback
	}
	return p.Probe(ctx)
}

// readSysfsString reads a single-line sysfs file and returns its trimmed
// content. Returns "" on any error.
func readSysfsString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// readSysfsOptional is readSysfsString with "" mapped to nil.
func readSysfsOptional(path string) *string {
	v := readSysfsString(path)
	if v == "" {
		return nil
	}
	return &v
}

// readSysfsInt reads a decimal integer. Returns 0 on error.
func readSysfsInt(path string) int {
	v, err := strconv.Atoi(readSysfsString(path))
	if err != nil {
		return 0
	}
	return v
}

// readSysfsHex reads a "0x"-prefixed or bare hex attribute.
func readSysfsHex(path string) (uint16, bool) {
	v := strings.TrimPrefix(readSysfsString(path), "0x")
	n, err := strconv.ParseUint(v, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
