// Package storage assigns raw devices to volume roles and serves
// volume-relative linear sector access with retries.
package storage

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-linearcache/internal/interfaces"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

var (
	// ErrNoVolume is returned for roles without a registered volume.
	ErrNoVolume = errors.New("no volume registered for role")
	// ErrPartition is returned when the requested MBR partition cannot host
	// the role.
	ErrPartition = errors.New("invalid partition for role")
	// ErrIO marks a linear access that failed after all retries.
	ErrIO = errors.New("linear access failed")
)

type volume struct {
	driver interfaces.RawDevice
	info   types.VolumeInfo
}

// Manager owns the registered volumes and the published cached element
// count. It implements interfaces.LinearStorage and
// interfaces.ElementCountPublisher.
type Manager struct {
	mu          sync.Mutex
	volumes     [types.RoleCount]volume
	registered  int
	cachedCount uint32
	metrics     *Metrics
	log         *logrus.Entry
}

// Option configures a Manager
type Option func(*Manager)

// WithMetrics records linear access in m
func WithMetrics(m *Metrics) Option {
	return func(s *Manager) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(s *Manager) { s.log = log }
}

// NewManager returns a Manager with no volumes
func NewManager(opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	if m.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		m.log = logrus.NewEntry(l)
	}
	m.log = m.log.WithField("component", "storage")
	return m
}

// RegisterVolume assigns a device to role. Partition 0 uses the whole media;
// partitions 1-4 are looked up in the MBR and must be of type 0xDA.
func (m *Manager) RegisterVolume(role types.Role, driver interfaces.RawDevice, partitionNr uint8) error {
	if role < 0 || role >= types.RoleCount || driver == nil || partitionNr > types.MBRMaxPartitions {
		return errors.AssertionFailedf("invalid volume registration: role %s, partition %d", role, partitionNr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.volumes[role].driver != nil {
		return errors.AssertionFailedf("role %s already has a volume", role)
	}

	var (
		info types.VolumeInfo
		err  error
	)
	if partitionNr == 0 {
		info, err = rawVolume(driver)
	} else {
		info, err = mbrVolume(driver, partitionNr)
	}
	if err != nil {
		return errors.Wrapf(err, "register %s on %s", role, driver.Description())
	}

	m.volumes[role] = volume{driver: driver, info: info}
	m.registered++

	m.log.WithFields(logrus.Fields{
		"role":      role.String(),
		"driver":    driver.Description(),
		"partition": partitionNr,
		"begin":     info.SectorBegin,
		"end":       info.SectorEnd,
	}).Info("volume registered")

	return nil
}

func rawVolume(driver interfaces.RawDevice) (types.VolumeInfo, error) {
	sectors, err := driver.SectorCount()
	if err != nil {
		return types.VolumeInfo{}, errors.Wrap(err, "get sector count")
	}
	if sectors == 0 {
		return types.VolumeInfo{}, errors.New("media reports zero sectors")
	}
	return types.VolumeInfo{SectorBegin: 0, SectorEnd: sectors - 1}, nil
}

func mbrVolume(driver interfaces.RawDevice, partitionNr uint8) (types.VolumeInfo, error) {
	mbr := make([]byte, types.SectorSize)
	if err := driver.MediaRead(mbr, 0, 1); err != nil {
		return types.VolumeInfo{}, errors.Wrap(err, "read MBR")
	}
	if mbr[types.MBRSignatureOffset] != 0x55 || mbr[types.MBRSignatureOffset+1] != 0xAA {
		return types.VolumeInfo{}, errors.Wrapf(ErrPartition, "partition %d requested but media has no MBR", partitionNr)
	}

	base := types.MBRPartitionTableOffset + int(partitionNr-1)*types.MBRPartitionEntrySize
	partType := mbr[base+0x04]
	first := binary.LittleEndian.Uint32(mbr[base+0x08:])
	count := binary.LittleEndian.Uint32(mbr[base+0x0C:])

	if partType != types.MBRPartTypeNoFSData {
		return types.VolumeInfo{}, errors.Wrapf(ErrPartition, "partition %d has type 0x%02X, linear volumes need 0x%02X",
			partitionNr, partType, types.MBRPartTypeNoFSData)
	}
	if count == 0 {
		return types.VolumeInfo{}, errors.Wrapf(ErrPartition, "partition %d is empty", partitionNr)
	}

	sectors, err := driver.SectorCount()
	if err != nil {
		return types.VolumeInfo{}, errors.Wrap(err, "get sector count")
	}
	if uint64(first)+uint64(count) > uint64(sectors) {
		return types.VolumeInfo{}, errors.Wrapf(ErrPartition, "partition %d [%d,+%d) exceeds media of %d sectors",
			partitionNr, first, count, sectors)
	}

	return types.VolumeInfo{
		SectorBegin:   first,
		SectorEnd:     first + count - 1,
		PartitionNr:   partitionNr,
		PartitionType: partType,
	}, nil
}

// RegisteredVolumes returns how many roles have a volume
func (m *Manager) RegisteredVolumes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registered
}

// VolumeInfo implements interfaces.LinearStorage
func (m *Manager) VolumeInfo(role types.Role) (types.VolumeInfo, bool) {
	if role < 0 || role >= types.RoleCount {
		return types.VolumeInfo{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.volumes[role]
	return v.info, v.driver != nil
}

func (m *Manager) access(role types.Role, buf []byte, sector, count uint32) (volume, uint32, error) {
	if role < 0 || role >= types.RoleCount {
		return volume{}, 0, errors.AssertionFailedf("invalid role %d", int(role))
	}

	m.mu.Lock()
	v := m.volumes[role]
	m.mu.Unlock()

	if v.driver == nil {
		return volume{}, 0, errors.Wrapf(ErrNoVolume, "%s", role)
	}
	if count == 0 || len(buf) < int(count)*types.SectorSize {
		return volume{}, 0, errors.AssertionFailedf("%s access of %d sectors with a %d byte buffer", role, count, len(buf))
	}

	device := uint64(v.info.SectorBegin) + uint64(sector)
	if device+uint64(count)-1 > uint64(v.info.SectorEnd) {
		m.log.WithFields(logrus.Fields{
			"role":   role.String(),
			"driver": v.driver.Description(),
			"begin":  device,
			"count":  count,
			"end":    v.info.SectorEnd,
		}).Error("out of bounds linear access")
		return volume{}, 0, errors.AssertionFailedf("%s access [%d,+%d) beyond volume end %d", role, device, count, v.info.SectorEnd)
	}

	return v, uint32(device), nil
}

// LinearRead implements interfaces.LinearStorage. The read is attempted
// retries+1 times.
func (m *Manager) LinearRead(role types.Role, buf []byte, sector, count, retries uint32) error {
	v, device, err := m.access(role, buf, sector, count)
	if err != nil {
		return err
	}

	label := role.String()
	m.metrics.SectorsRead.WithLabelValues(label).Add(float64(count))

	for attempt := uint32(0); ; attempt++ {
		err = v.driver.MediaRead(buf, device, count)
		if err == nil {
			return nil
		}
		m.metrics.FailedReads.WithLabelValues(label).Inc()
		if attempt >= retries {
			break
		}
	}

	m.log.WithError(err).WithFields(logrus.Fields{"role": label, "sector": sector, "count": count}).Warn("linear read failed")
	return errors.Mark(errors.Wrapf(err, "read %s sector %d", role, sector), ErrIO)
}

// LinearWrite implements interfaces.LinearStorage. The write is attempted
// retries+1 times.
func (m *Manager) LinearWrite(role types.Role, buf []byte, sector, count, retries uint32) error {
	v, device, err := m.access(role, buf, sector, count)
	if err != nil {
		return err
	}

	label := role.String()
	m.metrics.SectorsWritten.WithLabelValues(label).Add(float64(count))

	for attempt := uint32(0); ; attempt++ {
		err = v.driver.MediaWrite(buf, device, count)
		if err == nil {
			return nil
		}
		m.metrics.FailedWrites.WithLabelValues(label).Inc()
		if attempt >= retries {
			break
		}
	}

	m.log.WithError(err).WithFields(logrus.Fields{"role": label, "sector": sector, "count": count}).Warn("linear write failed")
	return errors.Mark(errors.Wrapf(err, "write %s sector %d", role, sector), ErrIO)
}

// SetCachedElementCount implements interfaces.ElementCountPublisher
func (m *Manager) SetCachedElementCount(count uint32) {
	m.mu.Lock()
	m.cachedCount = count
	m.mu.Unlock()
	m.metrics.CachedElementCount.Set(float64(count))
}

// CachedElementCount returns the number of elements the last pass trusted
func (m *Manager) CachedElementCount() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cachedCount
}
