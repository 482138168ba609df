// Package layout encodes and decodes the fixed-offset sectors of a linear
// cache volume and maps element indices to volume sectors.
package layout

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-linearcache/internal/checksum"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// ErrSectorSize is returned when a buffer is not exactly one sector.
var ErrSectorSize = errors.New("buffer is not one sector")

func requireSector(data []byte) error {
	if len(data) != types.SectorSize {
		return errors.Wrapf(ErrSectorSize, "got %d bytes, want %d", len(data), types.SectorSize)
	}
	return nil
}

// cString returns the NUL-terminated prefix of a fixed-size field.
func cString(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		return string(field[:i])
	}
	return string(field)
}

// putCString copies s into a fixed-size field, truncating and NUL padding.
func putCString(field []byte, s string) {
	n := copy(field, s)
	for i := n; i < len(field); i++ {
		field[i] = 0
	}
}

// ParseHeader decodes sector 0. It does not validate the checksum.
func ParseHeader(data []byte) (*types.Header, error) {
	if err := requireSector(data); err != nil {
		return nil, err
	}

	le := binary.LittleEndian
	idSize := types.HeaderIdentityFieldSize

	return &types.Header{
		Signature:        string(data[types.HeaderSignatureOffset : types.HeaderSignatureOffset+types.HeaderSignatureSize]),
		FrameworkVersion: cString(data[types.HeaderFrameworkVersionOffset : types.HeaderFrameworkVersionOffset+idSize]),
		AppName:          cString(data[types.HeaderAppNameOffset : types.HeaderAppNameOffset+idSize]),
		AppVersion:       cString(data[types.HeaderAppVersionOffset : types.HeaderAppVersionOffset+idSize]),
		ElementCount:     le.Uint32(data[types.HeaderElementCountOffset:]),
		Checksum:         le.Uint32(data[types.HeaderChecksumOffset:]),
	}, nil
}

// EncodeHeader writes a sealed header for id and elementCount into data,
// which must be one sector. Reserved bytes are zeroed.
func EncodeHeader(data []byte, id types.Identity, elementCount uint32) error {
	if err := requireSector(data); err != nil {
		return err
	}

	clear(data)

	idSize := types.HeaderIdentityFieldSize
	copy(data[types.HeaderSignatureOffset:types.HeaderSignatureOffset+types.HeaderSignatureSize], types.CacheSignature)
	putCString(data[types.HeaderFrameworkVersionOffset:types.HeaderFrameworkVersionOffset+idSize], id.FrameworkVersion)
	putCString(data[types.HeaderAppNameOffset:types.HeaderAppNameOffset+idSize], id.AppName)
	putCString(data[types.HeaderAppVersionOffset:types.HeaderAppVersionOffset+idSize], id.AppVersion)
	binary.LittleEndian.PutUint32(data[types.HeaderElementCountOffset:], elementCount)

	checksum.SealSector(data)
	return nil
}

// HeaderChecks is the outcome of validating sector 0 against a build
// identity.
type HeaderChecks struct {
	Checksum         bool
	Signature        bool
	FrameworkVersion bool
	AppName          bool
	AppVersion       bool
}

// Trusted reports whether the element count of the header may be used.
func (c HeaderChecks) Trusted() bool {
	return c.Checksum && c.Signature && c.FrameworkVersion && c.AppName && c.AppVersion
}

// identityField compares a stored identity field with want the way the
// header was written: at most one field width, up to the first NUL.
func identityField(field []byte, want string) bool {
	expected := make([]byte, len(field))
	putCString(expected, want)
	return cString(field) == cString(expected)
}

// CheckHeader validates sector 0 against id. data is left unchanged.
func CheckHeader(data []byte, id types.Identity) (HeaderChecks, error) {
	if err := requireSector(data); err != nil {
		return HeaderChecks{}, err
	}

	idSize := types.HeaderIdentityFieldSize
	return HeaderChecks{
		Checksum:         checksum.CheckSector(data),
		Signature:        string(data[types.HeaderSignatureOffset:types.HeaderSignatureOffset+types.HeaderSignatureSize]) == types.CacheSignature,
		FrameworkVersion: identityField(data[types.HeaderFrameworkVersionOffset:types.HeaderFrameworkVersionOffset+idSize], id.FrameworkVersion),
		AppName:          identityField(data[types.HeaderAppNameOffset:types.HeaderAppNameOffset+idSize], id.AppName),
		AppVersion:       identityField(data[types.HeaderAppVersionOffset:types.HeaderAppVersionOffset+idSize], id.AppVersion),
	}, nil
}
