// Package pcidb indexes the pci.ids vendor/device registry.
package pcidb

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// SentinelDevice is the device id under which a vendor-only entry is stored.
const SentinelDevice uint16 = 0xFFFF

// DefaultPaths lists the usual pci.ids locations, most common first.
var DefaultPaths = []string{
	"/usr/share/misc/pci.ids",
	"/usr/share/hwdata/pci.ids",
	"/var/lib/pciutils/pci.ids",
}

// Key identifies a registry entry.
type Key struct {
	Vendor uint16
	Device uint16
}

// DB is an immutable (vendor, device) -> name table.
// A nil *DB is valid and resolves nothing.
type DB struct {
	names map[Key]string
}

// Load parses the first path that opens and returns the table together with
// the path that was used. When no path opens it returns an empty table and "".
func Load(paths ...string) (*DB, string) {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		db := Parse(f)
		f.Close()
		return db, p
	}
	return &DB{names: map[Key]string{}}, ""
}

// Parse reads the pci.ids line format. Malformed records are skipped.
func Parse(r io.Reader) *DB {
	db := &DB{names: make(map[Key]string)}

	var (
		vendor    uint16
		hasVendor bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Class section; its indented subclasses must not land on a vendor.
		if strings.HasPrefix(line, "C ") {
			hasVendor = false
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t\t"):
			// subsystem, not modelled
		case strings.HasPrefix(line, "\t"):
			if !hasVendor {
				continue
			}
			id, name, ok := splitRecord(line[1:])
			if !ok {
				continue
			}
			db.names[Key{Vendor: vendor, Device: id}] = name
		default:
			id, name, ok := splitRecord(line)
			if !ok {
				hasVendor = false
				continue
			}
			vendor, hasVendor = id, true
			db.names[Key{Vendor: id, Device: SentinelDevice}] = name
		}
	}

	return db
}

// splitRecord splits "hhhh  Name with spaces" at the first space.
func splitRecord(s string) (uint16, string, bool) {
	idPart, rest, found := strings.Cut(s, " ")
	if !found {
		return 0, "", false
	}
	id, err := strconv.ParseUint(idPart, 16, 16)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(rest)
	if name == "" {
		return 0, "", false
	}
	return uint16(id), name, true
}

// Lookup resolves a vendor and device name. An exact match wins; otherwise the
// vendor-only entry supplies the vendor name and the device name stays nil.
func (db *DB) Lookup(vendor, device uint16) (vendorName, deviceName *string) {
	if db == nil {
		return nil, nil
	}
	if v, ok := db.names[Key{Vendor: vendor, Device: SentinelDevice}]; ok {
		vendorName = &v
	}
	if device == SentinelDevice {
		return vendorName, nil
	}
	if d, ok := db.names[Key{Vendor: vendor, Device: device}]; ok {
		deviceName = &d
	}
	return vendorName, deviceName
}

// Len reports the number of entries, vendor-only records included.
func (db *DB) Len() int {
	if db == nil {
		return 0
	}
	return len(db.names)
}
