package cache

import (
	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-linearcache/internal/interfaces"
	"github.com/deploymenttheory/go-linearcache/internal/layout"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

var (
	// ErrRead marks a failed read of cached element info or data.
	ErrRead = errors.New("cached element read failed")
	// ErrPrecondition marks a read request the caller should never make.
	ErrPrecondition = errors.New("cached element read precondition")
)

func precondition(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrPrecondition)
}

// ElementInfo reads and decodes the info sector of element index. scratch
// must be one sector. The sector checksum is not verified; callers use
// indices below the published cached element count, which the last pass
// verified.
func ElementInfo(storage interfaces.LinearStorage, index uint32, scratch []byte, retries uint32) (types.ElementInfo, error) {
	if len(scratch) != types.SectorSize {
		return types.ElementInfo{}, precondition("info scratch of %d bytes", len(scratch))
	}

	vol, ok := storage.VolumeInfo(types.RoleLinearCache)
	if !ok {
		return types.ElementInfo{}, errors.Mark(errors.New("no linear cache volume"), ErrRead)
	}
	sectors := vol.SectorCount()
	if sectors < 2 || index >= sectors-1 {
		return types.ElementInfo{}, precondition("element %d beyond a %d sector volume", index, sectors)
	}

	err := storage.LinearRead(types.RoleLinearCache, scratch, layout.InfoSectorOf(sectors, index), 1, retries)
	if err != nil {
		return types.ElementInfo{}, errors.Mark(errors.Wrapf(err, "element %d info", index), ErrRead)
	}

	info, err := layout.ParseElementInfo(scratch)
	if err != nil {
		return types.ElementInfo{}, err
	}
	return *info, nil
}

// ElementData reads sectorCount data sectors of the element described by
// info, starting sectorOffset sectors into its data, into out. A sectorCount
// of 0 reads the rest of the element. The data CRC is not verified.
func ElementData(storage interfaces.LinearStorage, info *types.ElementInfo, sectorOffset, sectorCount uint32, out []byte, retries uint32) error {
	if info == nil {
		return precondition("nil element info")
	}
	if sectorOffset > info.SectorCount {
		return precondition("sector offset %d beyond element of %d sectors", sectorOffset, info.SectorCount)
	}
	if sectorCount == 0 {
		sectorCount = info.SectorCount - sectorOffset
	}
	if uint64(sectorOffset)+uint64(sectorCount) > uint64(info.SectorCount) {
		return precondition("sectors [%d,+%d) beyond element of %d sectors", sectorOffset, sectorCount, info.SectorCount)
	}
	if uint64(len(out)) < uint64(sectorCount)*types.SectorSize {
		return precondition("%d byte buffer for %d sectors", len(out), sectorCount)
	}
	if sectorCount == 0 {
		return nil
	}

	size := int(sectorCount) * types.SectorSize
	err := storage.LinearRead(types.RoleLinearCache, out[:size], info.SectorBegin+sectorOffset, sectorCount, retries)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "element data at sector %d", info.SectorBegin+sectorOffset), ErrRead)
	}
	return nil
}

// ReadElement reads the info and the whole data of element index. The data
// is trimmed to the element size.
func ReadElement(storage interfaces.LinearStorage, index, retries uint32) ([]byte, types.ElementInfo, error) {
	var scratch [types.SectorSize]byte

	info, err := ElementInfo(storage, index, scratch[:], retries)
	if err != nil {
		return nil, types.ElementInfo{}, err
	}
	if layout.SectorsFor(info.Octets) > info.SectorCount {
		return nil, info, errors.Mark(errors.Newf("element %d info claims %d octets in %d sectors", index, info.Octets, info.SectorCount), ErrRead)
	}

	data := make([]byte, int(info.SectorCount)*types.SectorSize)
	if err := ElementData(storage, &info, 0, 0, data, retries); err != nil {
		return nil, info, err
	}
	return data[:info.Octets], info, nil
}
