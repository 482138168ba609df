// File: internal/interfaces/block_device.go
package interfaces

import (
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// RawDevice is one kind of sector-addressed media driver. Sectors are
// device-relative and types.SectorSize bytes each.
type RawDevice interface {
	// MediaRead reads count sectors starting at sector into buf
	MediaRead(buf []byte, sector, count uint32) error

	// MediaWrite writes count sectors from buf starting at sector
	MediaWrite(buf []byte, sector, count uint32) error

	// SectorCount returns the total number of sectors on the media
	SectorCount() (uint32, error)

	// Description names the driver for logs
	Description() string
}

// LinearStorage provides volume-relative, 0-based sector access to the
// volumes registered for each role. Retries happen inside the implementation.
type LinearStorage interface {
	// LinearRead reads count sectors starting at the volume-relative sector
	LinearRead(role types.Role, buf []byte, sector, count, retries uint32) error

	// LinearWrite writes count sectors starting at the volume-relative sector
	LinearWrite(role types.Role, buf []byte, sector, count, retries uint32) error

	// VolumeInfo returns the device bounds of the volume registered for role
	VolumeInfo(role types.Role) (types.VolumeInfo, bool)
}

// ElementCountPublisher receives the number of trusted cached elements
// whenever a verification pass establishes it.
type ElementCountPublisher interface {
	SetCachedElementCount(count uint32)
}
