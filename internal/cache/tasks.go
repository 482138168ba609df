package cache

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-linearcache/internal/checksum"
	"github.com/deploymenttheory/go-linearcache/internal/layout"
	"github.com/deploymenttheory/go-linearcache/internal/mirror"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// mustCodec panics on codec errors. The scratch sector always has the
// right size, so an error here is a bug.
func mustCodec(err error) {
	if err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "cache scratch sector"))
	}
}

func (p *Process) readSector(sector uint32) error {
	return p.storage.LinearRead(types.RoleLinearCache, p.sector[:], sector, 1, p.retries)
}

func (p *Process) writeSector(sector uint32) error {
	return p.storage.LinearWrite(types.RoleLinearCache, p.sector[:], sector, 1, p.retries)
}

func (p *Process) infoSector() uint32 {
	return layout.InfoSectorOf(p.volumeSectors, p.element)
}

func (p *Process) start() {
	p.clearChecks()
	p.publish(0)

	vol, ok := p.storage.VolumeInfo(types.RoleLinearCache)
	ok = ok && vol.SectorCount() >= 2
	p.check(types.CheckVolume, ok)
	if !ok {
		p.log.Warn("no linear cache volume")
		p.setNext(types.StageDone)
		return
	}

	p.volumeSectors = vol.SectorCount()
	p.hasSlots = p.mirror != nil
	p.setNext(types.StageReadHeader)
}

func (p *Process) readHeader() {
	p.clearChecks()

	if err := p.readSector(0); err != nil {
		p.check(types.CheckRead, false)
		p.log.WithError(err).Error("reading cache header")
		p.setNext(types.StageDone)
		return
	}
	p.check(types.CheckRead, true)

	hc, err := layout.CheckHeader(p.sector[:], p.identity)
	mustCodec(err)
	header, err := layout.ParseHeader(p.sector[:])
	mustCodec(err)
	p.header = header

	p.check(types.CheckChecksum, hc.Checksum)
	p.check(types.CheckSignature, hc.Signature)
	p.check(types.CheckFwkVersion, hc.FrameworkVersion)
	p.check(types.CheckAppName, hc.AppName)
	p.check(types.CheckAppVersion, hc.AppVersion)

	trusted := hc.Trusted()
	if trusted {
		fits := header.ElementCount <= p.volumeSectors-1
		p.check(types.CheckCapacity, fits)
		trusted = fits
	}

	p.element = 0
	p.sectorEnd = 0
	p.rewriteHeader = !trusted
	if trusted {
		p.storedCount = header.ElementCount
		p.elementCount = header.ElementCount
	}

	p.log.WithFields(logrus.Fields{
		"trusted":  trusted,
		"elements": p.elementCount,
		"passed":   p.checksPassed.String(),
		"failed":   p.checksFailed.String(),
	}).Info("cache header")

	p.publish(p.elementCount)

	if !p.hasSlots && p.elementCount == 0 {
		p.setNext(types.StageDone)
		return
	}
	p.setNext(types.StageBeginIteration)
}

func (p *Process) beginIteration() {
	p.clearChecks()
	p.progressDelta = 0
	p.progressCurrent = 0

	if p.hasSlots {
		p.setNext(types.StageReadSlot)
		return
	}
	p.setNext(types.StageCheckInfo)
}

func (p *Process) readSlot() {
	slot, err := p.mirror.Slot(p.element)
	p.check(types.CheckFilesystem, err == nil)
	if err != nil {
		p.slot = types.SlotFile{}
		if errors.Is(err, mirror.ErrSlotNotFound) {
			p.log.WithField("element", p.element).Debug("no more slots")
			p.setNext(types.StageEndIteration)
			return
		}
		p.log.WithError(err).WithField("element", p.element).Warn("unusable slot")
		p.fail(types.StageEndIteration)
		return
	}

	p.slot = slot
	if p.element < p.elementCount {
		p.setNext(types.StageCheckInfo)
		return
	}
	p.setNext(types.StageSlotToInfo)
}

func (p *Process) slotToInfo() {
	begin, end := layout.NextSpan(p.sectorEnd, p.slot.Size)

	fits := layout.Fits(p.volumeSectors, p.element, begin, end)
	p.check(types.CheckCapacity, fits)
	if !fits {
		p.log.WithFields(logrus.Fields{
			"element": p.element,
			"path":    p.slot.Path,
			"octets":  p.slot.Size,
		}).Warn("element does not fit the cache volume")
		p.fail(types.StageEndIteration)
		return
	}

	file, err := p.mirror.Open(p.slot.Path)
	p.check(types.CheckFilesystem, err == nil)
	if err != nil {
		p.log.WithError(err).WithField("path", p.slot.Path).Warn("opening slot file")
		p.fail(types.StageEndIteration)
		return
	}
	p.file = file

	p.fileDate = p.slot.Date
	p.fileTime = p.slot.Time
	p.octets = p.slot.Size
	p.sectorBegin = begin
	p.sectorEnd = end
	p.sectorCurrent = begin
	p.storedCRC = 0
	p.checkCRC = 0
	p.path = p.slot.Path

	info := p.CurrentInfo()
	mustCodec(layout.EncodeElementInfo(p.sector[:], &info))

	err = p.writeSector(p.infoSector())
	p.check(types.CheckWrite, err == nil)
	if err != nil {
		p.log.WithError(err).WithField("element", p.element).Error("writing element info")
		p.closeFile()
		p.fail(types.StageEndIteration)
		return
	}

	p.initProgress(layout.SpanLength(begin, end))
	p.setNext(types.StageSlotToData)
}

func (p *Process) slotToData() {
	for p.sectorCurrent <= p.sectorEnd {
		copied := (p.sectorCurrent - p.sectorBegin) << types.SectorShift
		want := min(p.octets-copied, types.SectorSize)

		clear(p.sector[:])
		if _, err := io.ReadFull(p.file, p.sector[:want]); err != nil {
			p.check(types.CheckFilesystem, false)
			p.log.WithError(err).WithField("path", p.path).Warn("reading slot file")
			p.closeFile()
			p.fail(types.StageEndIteration)
			return
		}

		if err := p.writeSector(p.sectorCurrent); err != nil {
			p.check(types.CheckWrite, false)
			p.log.WithError(err).WithField("element", p.element).Error("writing element data")
			p.closeFile()
			p.fail(types.StageEndIteration)
			return
		}

		p.checkCRC = checksum.CRC32C(p.checkCRC, p.sector[:])
		p.sectorCurrent++
		p.progressCurrent += p.progressDelta

		if p.sectorCurrent <= p.sectorEnd && p.breakFunc != nil && p.breakFunc() {
			return
		}
	}

	p.closeFile()
	p.progressCurrent = p.progressFinished()

	infoSector := p.infoSector()
	if err := p.readSector(infoSector); err != nil {
		p.check(types.CheckRead, false)
		p.log.WithError(err).WithField("element", p.element).Error("reading back element info")
		p.fail(types.StageEndIteration)
		return
	}
	mustCodec(layout.PatchDataCRC(p.sector[:], p.checkCRC))

	err := p.writeSector(infoSector)
	p.check(types.CheckWrite, err == nil)
	if err != nil {
		p.log.WithError(err).WithField("element", p.element).Error("sealing element info")
		p.fail(types.StageEndIteration)
		return
	}

	p.storedCRC = p.checkCRC
	if p.element < p.elementCount {
		p.summary.Rebuilt = append(p.summary.Rebuilt, p.element)
	} else {
		p.summary.Built = append(p.summary.Built, p.element)
	}

	p.log.WithFields(logrus.Fields{
		"element": p.element,
		"path":    p.path,
		"octets":  p.octets,
		"begin":   p.sectorBegin,
		"end":     p.sectorEnd,
	}).Info("cached element written")

	p.setNext(types.StageNextIteration)
}

// invalid handles an element whose stored info or data cannot be trusted.
func (p *Process) invalid() {
	if p.hasSlots {
		p.sectorEnd = p.prevSectorEnd
		p.rewriteHeader = true
		p.setNext(types.StageSlotToInfo)
		return
	}
	p.fail(types.StageNextIteration)
}

func (p *Process) checkInfo() {
	if err := p.readSector(p.infoSector()); err != nil {
		p.check(types.CheckRead, false)
		p.log.WithError(err).WithField("element", p.element).Error("reading element info")
		p.fail(types.StageEndIteration)
		return
	}
	p.check(types.CheckRead, true)

	p.prevSectorEnd = p.sectorEnd

	valid := checksum.CheckSector(p.sector[:])
	p.check(types.CheckChecksum, valid)
	if !valid {
		p.invalid()
		return
	}

	info, err := layout.ParseElementInfo(p.sector[:])
	mustCodec(err)

	p.fileDate = info.FileDate
	p.fileTime = info.FileTime
	p.octets = info.Octets
	p.sectorBegin = info.SectorBegin
	p.sectorEnd = info.SectorEnd
	p.storedCRC = info.DataCRC
	p.path = info.Path

	// Every element below the stored count owns an info sector, so stored
	// data has to end before the info of the last one.
	last := max(p.elementCount, p.element+1) - 1
	sane := layout.SectorsFor(info.Octets) == info.SectorCount &&
		layout.Fits(p.volumeSectors, last, info.SectorBegin, info.SectorEnd)
	p.check(types.CheckCapacity, sane)
	if !sane {
		p.invalid()
		return
	}

	if p.hasSlots {
		// A rebuilt element that grew may now overlap the data of this one.
		// Gaps left by shrunken elements are kept.
		same := p.slot.Archive &&
			p.slot.Date == info.FileDate &&
			p.slot.Time == info.FileTime &&
			p.slot.Size == info.Octets &&
			p.slot.Path == info.Path &&
			info.SectorBegin > p.prevSectorEnd
		p.check(types.CheckFileMetrics, same)
		if !same {
			p.log.WithFields(logrus.Fields{
				"element": p.element,
				"path":    p.slot.Path,
			}).Info("mirror changed, rebuilding element")
			p.sectorEnd = p.prevSectorEnd
			p.rewriteHeader = true
			p.setNext(types.StageSlotToInfo)
			return
		}
	}

	if p.skipDataCheck {
		p.summary.Verified = append(p.summary.Verified, p.element)
		p.setNext(types.StageNextIteration)
		return
	}

	p.sectorCurrent = p.sectorBegin
	p.checkCRC = 0
	p.initProgress(info.SectorCount)
	p.setNext(types.StageCheckData)
}

func (p *Process) checkData() {
	for p.sectorCurrent <= p.sectorEnd {
		if err := p.readSector(p.sectorCurrent); err != nil {
			p.check(types.CheckRead, false)
			p.log.WithError(err).WithField("element", p.element).Error("reading element data")
			p.fail(types.StageEndIteration)
			return
		}

		p.checkCRC = checksum.CRC32C(p.checkCRC, p.sector[:])
		p.sectorCurrent++
		p.progressCurrent += p.progressDelta

		if p.sectorCurrent <= p.sectorEnd && p.breakFunc != nil && p.breakFunc() {
			return
		}
	}

	p.progressCurrent = p.progressFinished()

	match := p.checkCRC == p.storedCRC
	p.check(types.CheckChecksum, match)
	if !match {
		p.log.WithFields(logrus.Fields{
			"element": p.element,
			"stored":  p.storedCRC,
			"actual":  p.checkCRC,
		}).Warn("element data checksum mismatch")
		p.invalid()
		return
	}

	p.summary.Verified = append(p.summary.Verified, p.element)
	p.setNext(types.StageNextIteration)
}

func (p *Process) nextIteration() {
	p.element++

	if p.hasSlots || p.element < p.elementCount {
		p.setNext(types.StageBeginIteration)
		return
	}
	p.setNext(types.StageEndIteration)
}

func (p *Process) endIteration() {
	p.closeFile()

	if p.hasSlots && (p.rewriteHeader || p.element != p.elementCount) {
		p.setNext(types.StageWriteHeader)
		return
	}
	p.setNext(types.StageDone)
}

func (p *Process) writeHeader() {
	p.clearChecks()
	mustCodec(layout.EncodeHeader(p.sector[:], p.identity, p.element))

	err := p.writeSector(0)
	p.check(types.CheckWrite, err == nil)
	if err != nil {
		p.log.WithError(err).Error("writing cache header")
	} else {
		p.summary.HeaderWritten = true
		p.log.WithField("elements", p.element).Info("cache header written")
	}

	p.publish(p.element)
	p.setNext(types.StageDone)
}
