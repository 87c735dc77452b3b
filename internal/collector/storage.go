package collector

import (
	"context"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/shirou/gopsutil/v3/disk"
)

// StorageProbe lists mounted volumes and enriches each with metadata of the
// disk it lives on.
type StorageProbe struct {
	SysRoot    string
	Partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	Usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
}

func NewStorageProbe(sysRoot string) *StorageProbe {
	return &StorageProbe{
		SysRoot:    sysRoot,
		Partitions: disk.PartitionsWithContext,
		Usage:      disk.UsageWithContext,
	}
}

func (p *StorageProbe) Supported() bool { return p.Partitions != nil && p.Usage != nil }

func (p *StorageProbe) Probe(ctx context.Context) []StorageVolume {
	parts, err := p.Partitions(ctx, false)
	if err != nil {
		return []StorageVolume{}
	}

	enrich := dirExists(filepath.Join(p.SysRoot, "block"))

	volumes := make([]StorageVolume, 0, len(parts))
	for _, part := range parts {
		usage, err := p.Usage(ctx, part.Mountpoint)
		if err != nil || usage == nil {
			continue
		}
		free := usage.Free
		if free > usage.Total {
			free = usage.Total
		}
		v := StorageVolume{
			Name:       part.Device,
			MountPoint: part.Mountpoint,
			Filesystem: part.Fstype,
			Total:      usage.Total,
			Used:       usage.Total - free,
			Free:       free,
		}
		if enrich {
			p.diskMetadata(&v)
		}
		volumes = append(volumes, v)
	}
	return volumes
}

func (p *StorageProbe) diskMetadata(v *StorageVolume) {
	name := filepath.Base(v.Name)
	parent := parentDisk(name)

	dev := filepath.Join(p.SysRoot, "block", parent, "device")
	v.Vendor = readSysfsOptional(filepath.Join(dev, "vendor"))
	v.ModelName = readSysfsOptional(filepath.Join(dev, "model"))
	v.SerialNumber = readSysfsOptional(filepath.Join(dev, "serial"))
	v.Interface = diskInterface(parent)

	switch readSysfsString(filepath.Join(p.SysRoot, "block", parent, "queue", "rotational")) {
	case "0":
		v.DiskType = strPtr("SSD")
	case "1":
		v.DiskType = strPtr("HDD")
	}
}

// parentDisk maps a partition name to its whole-disk name:
// sda1 -> sda, nvme0n1p2 -> nvme0n1. Other names are returned unchanged.
func parentDisk(name string) string {
	switch {
	case isLegacyDisk(name):
		return strings.TrimRightFunc(name, unicode.IsDigit)
	case strings.HasPrefix(name, "nvme") && strings.Contains(name, "p"):
		return name[:strings.LastIndex(name, "p")]
	}
	return name
}

func diskInterface(parent string) *string {
	switch {
	case strings.HasPrefix(parent, "nvme"):
		return strPtr("NVMe")
	case isLegacyDisk(parent):
		return strPtr("SATA/SAS")
	}
	return nil
}

func isLegacyDisk(name string) bool {
	return strings.HasPrefix(name, "sd") || strings.HasPrefix(name, "hd")
}
