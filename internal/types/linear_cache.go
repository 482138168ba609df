// Package types holds the on-disk structures and shared vocabulary of the
// linear element cache.
package types

// Sector geometry of every linear volume.
const (
	// SectorSize is the size of a single volume sector in bytes.
	SectorSize = 512
	// SectorShift converts octets to sectors.
	SectorShift = 9
	// SectorMask selects the octets past the last full sector.
	SectorMask = SectorSize - 1
	// SectorChecksumOffset is where every self-checked sector keeps its CRC32C.
	SectorChecksumOffset = SectorSize - 4
)

// Header sector (sector 0) field offsets.
const (
	HeaderSector = 0

	HeaderSignatureOffset        = 0
	HeaderSignatureSize          = 16
	HeaderFrameworkVersionOffset = 16
	HeaderAppNameOffset          = 80
	HeaderAppVersionOffset       = 144
	HeaderIdentityFieldSize      = 64
	HeaderElementCountOffset     = 504
	HeaderChecksumOffset         = SectorChecksumOffset
)

// CacheSignature marks sector 0 of a linear cache volume.
const CacheSignature = "EMBEDUL.AR CACHE"

// Element info sector field offsets.
const (
	InfoFileDateOffset    = 0
	InfoFileTimeOffset    = 4
	InfoOctetsOffset      = 8
	InfoSectorBeginOffset = 12
	InfoSectorEndOffset   = 16
	InfoDataCRCOffset     = 20
	InfoPathOffset        = 24
	InfoPathSize          = 64
	InfoChecksumOffset    = SectorChecksumOffset
)

// FrameworkElements is the number of low element indices reserved for the
// framework; their slots live under the framework base path.
const FrameworkElements = 8

// Identity is the build identity stamped into the header. A volume written
// by a different build is not trusted.
type Identity struct {
	FrameworkVersion string `json:"framework_version" yaml:"framework_version" mapstructure:"framework_version"`
	AppName          string `json:"app_name" yaml:"app_name" mapstructure:"app_name"`
	AppVersion       string `json:"app_version" yaml:"app_version" mapstructure:"app_version"`
}

// Header is the decoded form of sector 0.
type Header struct {
	Signature        string `json:"signature" yaml:"signature"`
	FrameworkVersion string `json:"framework_version" yaml:"framework_version"`
	AppName          string `json:"app_name" yaml:"app_name"`
	AppVersion       string `json:"app_version" yaml:"app_version"`
	ElementCount     uint32 `json:"element_count" yaml:"element_count"`
	Checksum         uint32 `json:"checksum" yaml:"checksum"`
}

// Identity returns the identity strings carried by the header.
func (h *Header) Identity() Identity {
	return Identity{
		FrameworkVersion: h.FrameworkVersion,
		AppName:          h.AppName,
		AppVersion:       h.AppVersion,
	}
}

// ElementInfo is the decoded form of one element info sector.
type ElementInfo struct {
	FileDate    uint32 `json:"file_date" yaml:"file_date"`
	FileTime    uint32 `json:"file_time" yaml:"file_time"`
	Octets      uint32 `json:"octets" yaml:"octets"`
	SectorBegin uint32 `json:"sector_begin" yaml:"sector_begin"`
	SectorEnd   uint32 `json:"sector_end" yaml:"sector_end"`
	// SectorCount is derived from SectorBegin and SectorEnd; it is not stored.
	SectorCount uint32 `json:"sector_count" yaml:"sector_count"`
	DataCRC     uint32 `json:"data_crc" yaml:"data_crc"`
	Path        string `json:"path" yaml:"path"`
	Checksum    uint32 `json:"checksum" yaml:"checksum"`
}
