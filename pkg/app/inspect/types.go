package inspect

import (
	"time"

	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-linearcache/internal/types"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

// HeaderRequest asks for the decoded cache header
type HeaderRequest struct {
	Target   app.ImageTarget
	Identity types.Identity
	Retries  uint32
}

// HeaderResponse is the decoded header and its checks
type HeaderResponse struct {
	Image         string       `json:"image" yaml:"image"`
	VolumeSectors uint32       `json:"volume_sectors" yaml:"volume_sectors"`
	Header        types.Header `json:"header" yaml:"header"`
	Checks        HeaderChecks `json:"checks" yaml:"checks"`
	Trusted       bool         `json:"trusted" yaml:"trusted"`
}

// HeaderChecks lists each header check
type HeaderChecks struct {
	Checksum         bool `json:"checksum" yaml:"checksum"`
	Signature        bool `json:"signature" yaml:"signature"`
	FrameworkVersion bool `json:"framework_version" yaml:"framework_version"`
	AppName          bool `json:"app_name" yaml:"app_name"`
	AppVersion       bool `json:"app_version" yaml:"app_version"`
}

// ListRequest asks for the info of every cached element
type ListRequest struct {
	Target   app.ImageTarget
	Identity types.Identity
	Retries  uint32

	// Force lists a sealed header's elements even when the identity does
	// not match.
	Force bool
	// VerifyData checks the data CRC of each element
	VerifyData bool
}

// ListResponse holds the cached elements
type ListResponse struct {
	Image    string         `json:"image" yaml:"image"`
	Trusted  bool           `json:"trusted" yaml:"trusted"`
	Elements []ElementEntry `json:"elements" yaml:"elements"`
}

// ElementEntry is one element info sector
type ElementEntry struct {
	Index       uint32    `json:"index" yaml:"index"`
	Path        string    `json:"path" yaml:"path"`
	Octets      uint32    `json:"octets" yaml:"octets"`
	SectorBegin uint32    `json:"sector_begin" yaml:"sector_begin"`
	SectorEnd   uint32    `json:"sector_end" yaml:"sector_end"`
	SectorCount uint32    `json:"sector_count" yaml:"sector_count"`
	DataCRC     uint32    `json:"data_crc" yaml:"data_crc"`
	Modified    time.Time `json:"modified" yaml:"modified"`
	InfoValid   bool      `json:"info_valid" yaml:"info_valid"`
	DataChecked bool      `json:"data_checked" yaml:"data_checked"`
	DataValid   bool      `json:"data_valid" yaml:"data_valid"`
}

// ExtractRequest asks for one element to be copied out of the cache
type ExtractRequest struct {
	Target   app.ImageTarget
	Identity types.Identity
	Retries  uint32

	Index uint32
	// Dest is a file, or a directory that receives the element under the
	// base name of its mirror path.
	Dest      string
	Overwrite bool
	// Force extracts elements whose checksums fail
	Force bool

	// Fs receives the extracted file. Nil means the host file system.
	Fs afero.Fs
}

// ExtractResponse describes the extracted element
type ExtractResponse struct {
	Image    string `json:"image" yaml:"image"`
	Index    uint32 `json:"index" yaml:"index"`
	Path     string `json:"path" yaml:"path"`
	Dest     string `json:"dest" yaml:"dest"`
	Octets   uint32 `json:"octets" yaml:"octets"`
	DataCRC  uint32 `json:"data_crc" yaml:"data_crc"`
	Verified bool   `json:"verified" yaml:"verified"`
}
