package layout

import (
	"encoding/binary"

	"github.com/deploymenttheory/go-linearcache/internal/checksum"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// ParseElementInfo decodes an element info sector. It does not validate the
// checksum; callers that need trust use checksum.CheckSector first.
func ParseElementInfo(data []byte) (*types.ElementInfo, error) {
	if err := requireSector(data); err != nil {
		return nil, err
	}

	le := binary.LittleEndian
	info := &types.ElementInfo{
		FileDate:    le.Uint32(data[types.InfoFileDateOffset:]),
		FileTime:    le.Uint32(data[types.InfoFileTimeOffset:]),
		Octets:      le.Uint32(data[types.InfoOctetsOffset:]),
		SectorBegin: le.Uint32(data[types.InfoSectorBeginOffset:]),
		SectorEnd:   le.Uint32(data[types.InfoSectorEndOffset:]),
		DataCRC:     le.Uint32(data[types.InfoDataCRCOffset:]),
		Path:        cString(data[types.InfoPathOffset : types.InfoPathOffset+types.InfoPathSize]),
		Checksum:    le.Uint32(data[types.InfoChecksumOffset:]),
	}
	info.SectorCount = SpanLength(info.SectorBegin, info.SectorEnd)

	return info, nil
}

// EncodeElementInfo writes info into data with a zero sector checksum. The
// caller seals the sector once the data CRC is known.
func EncodeElementInfo(data []byte, info *types.ElementInfo) error {
	if err := requireSector(data); err != nil {
		return err
	}

	clear(data)

	le := binary.LittleEndian
	le.PutUint32(data[types.InfoFileDateOffset:], info.FileDate)
	le.PutUint32(data[types.InfoFileTimeOffset:], info.FileTime)
	le.PutUint32(data[types.InfoOctetsOffset:], info.Octets)
	le.PutUint32(data[types.InfoSectorBeginOffset:], info.SectorBegin)
	le.PutUint32(data[types.InfoSectorEndOffset:], info.SectorEnd)
	le.PutUint32(data[types.InfoDataCRCOffset:], info.DataCRC)
	putCString(data[types.InfoPathOffset:types.InfoPathOffset+types.InfoPathSize], info.Path)

	return nil
}

// PatchDataCRC stores the data CRC of an encoded info sector and seals it.
func PatchDataCRC(data []byte, dataCRC uint32) error {
	if err := requireSector(data); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(data[types.InfoDataCRCOffset:], dataCRC)
	checksum.SealSector(data)
	return nil
}
