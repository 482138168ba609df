// Package checksum implements the CRC32C integrity protocol used by every
// self-checked sector of the linear cache.
package checksum

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// Poly is the CRC-32C (Castagnoli) polynomial in reversed bit order.
const Poly = crc32.Castagnoli

var table = crc32.MakeTable(Poly)

// CRC32C continues a reflected CRC-32C over data starting from seed. Pass 0
// as seed to start a new checksum; pass a previous result to extend it.
func CRC32C(seed uint32, data []byte) uint32 {
	return crc32.Update(seed, table, data)
}

func mustBeSector(sector []byte) {
	if len(sector) != types.SectorSize {
		panic(errors.AssertionFailedf("sector checksum over %d bytes, want %d", len(sector), types.SectorSize))
	}
}

// Stored returns the checksum kept in the last four bytes of sector.
func Stored(sector []byte) uint32 {
	mustBeSector(sector)
	return binary.LittleEndian.Uint32(sector[types.SectorChecksumOffset:])
}

// Sector computes the checksum of sector as if its checksum field were zero.
// The buffer is left exactly as it was passed in.
func Sector(sector []byte) uint32 {
	stored := Stored(sector)
	binary.LittleEndian.PutUint32(sector[types.SectorChecksumOffset:], 0)
	computed := CRC32C(0, sector)
	binary.LittleEndian.PutUint32(sector[types.SectorChecksumOffset:], stored)
	return computed
}

// CheckSector reports whether the stored checksum of sector matches its
// contents.
func CheckSector(sector []byte) bool {
	return Sector(sector) == Stored(sector)
}

// SealSector writes the checksum of sector into its checksum field and
// returns it.
func SealSector(sector []byte) uint32 {
	mustBeSector(sector)
	binary.LittleEndian.PutUint32(sector[types.SectorChecksumOffset:], 0)
	sum := CRC32C(0, sector)
	binary.LittleEndian.PutUint32(sector[types.SectorChecksumOffset:], sum)
	return sum
}
