package types

import "fmt"

// Role selects which registered volume a linear access targets.
type Role int

const (
	RoleLinearCache Role = iota
	RoleLinearPersistent
	RoleCount
)

func (r Role) String() string {
	switch r {
	case RoleLinearCache:
		return "linear-cache"
	case RoleLinearPersistent:
		return "linear-persistent"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MBR layout used to locate linear partitions.
const (
	MBRPartitionTableOffset = 0x01BE
	MBRPartitionEntrySize   = 16
	MBRSignatureOffset      = 0x01FE
	MBRMaxPartitions        = 4
	// MBRPartTypeNoFSData is the partition type reserved for linear volumes.
	MBRPartTypeNoFSData = 0xDA
)

// VolumeInfo describes the device sectors assigned to a role. SectorEnd is
// inclusive.
type VolumeInfo struct {
	SectorBegin   uint32 `json:"sector_begin" yaml:"sector_begin"`
	SectorEnd     uint32 `json:"sector_end" yaml:"sector_end"`
	PartitionNr   uint8  `json:"partition_nr" yaml:"partition_nr"`
	PartitionType uint8  `json:"partition_type" yaml:"partition_type"`
}

// SectorCount returns the number of sectors in the volume.
func (v VolumeInfo) SectorCount() uint32 {
	return v.SectorEnd - v.SectorBegin + 1
}
