package device

import (
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// ErrMedia marks failures reported by the media itself.
var ErrMedia = errors.New("media error")

// FileDevice provides sector access to a disk image or block device node
type FileDevice struct {
	file     *os.File
	path     string
	sectors  uint32
	readOnly bool
	stats    *Statistics
	log      *logrus.Entry
}

// Statistics tracks device access
type Statistics struct {
	SectorsRead    int64
	SectorsWritten int64
	ReadErrors     int64
	WriteErrors    int64
	mu             sync.RWMutex
}

// Snapshot returns a copy of the counters
func (s *Statistics) Snapshot() (read, written, readErrors, writeErrors int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SectorsRead, s.SectorsWritten, s.ReadErrors, s.WriteErrors
}

// OpenFile opens an image file. Trailing bytes past the last whole sector
// are ignored.
func OpenFile(path string, readOnly bool, log *logrus.Entry) (*FileDevice, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %s", path)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "failed to stat image %s", path)
	}

	size := stat.Size() / types.SectorSize
	if size == 0 || size > int64(^uint32(0)) {
		file.Close()
		return nil, errors.Newf("image %s has %d sectors, outside the 32-bit sector range", path, size)
	}

	if log == nil {
		log = discardLogger()
	}

	d := &FileDevice{
		file:     file,
		path:     path,
		sectors:  uint32(size),
		readOnly: readOnly,
		stats:    &Statistics{},
		log:      log.WithField("device", path),
	}
	d.log.WithField("sectors", d.sectors).Debug("image opened")

	return d, nil
}

func (d *FileDevice) span(buf []byte, sector, count uint32) (int64, []byte, error) {
	need := int(count) * types.SectorSize
	if len(buf) < need {
		return 0, nil, errors.AssertionFailedf("buffer holds %d bytes, %d sectors need %d", len(buf), count, need)
	}
	if uint64(sector)+uint64(count) > uint64(d.sectors) {
		return 0, nil, errors.AssertionFailedf("sectors [%d,+%d) beyond device end %d", sector, count, d.sectors)
	}
	return int64(sector) * types.SectorSize, buf[:need], nil
}

// MediaRead implements interfaces.RawDevice
func (d *FileDevice) MediaRead(buf []byte, sector, count uint32) error {
	off, p, err := d.span(buf, sector, count)
	if err != nil {
		return err
	}

	if _, err := d.file.ReadAt(p, off); err != nil && err != io.EOF {
		d.stats.mu.Lock()
		d.stats.ReadErrors++
		d.stats.mu.Unlock()
		return errors.Mark(errors.Wrapf(err, "read sector %d", sector), ErrMedia)
	}

	d.stats.mu.Lock()
	d.stats.SectorsRead += int64(count)
	d.stats.mu.Unlock()
	return nil
}

// MediaWrite implements interfaces.RawDevice
func (d *FileDevice) MediaWrite(buf []byte, sector, count uint32) error {
	if d.readOnly {
		return errors.Mark(errors.Newf("write to read-only image %s", d.path), ErrMedia)
	}

	off, p, err := d.span(buf, sector, count)
	if err != nil {
		return err
	}

	if _, err := d.file.WriteAt(p, off); err != nil {
		d.stats.mu.Lock()
		d.stats.WriteErrors++
		d.stats.mu.Unlock()
		return errors.Mark(errors.Wrapf(err, "write sector %d", sector), ErrMedia)
	}

	d.stats.mu.Lock()
	d.stats.SectorsWritten += int64(count)
	d.stats.mu.Unlock()
	return nil
}

// SectorCount implements interfaces.RawDevice
func (d *FileDevice) SectorCount() (uint32, error) {
	return d.sectors, nil
}

// Description implements interfaces.RawDevice
func (d *FileDevice) Description() string {
	return "file:" + d.path
}

// Stats returns access statistics
func (d *FileDevice) Stats() *Statistics {
	return d.stats
}

// Sync flushes written sectors to stable storage
func (d *FileDevice) Sync() error {
	if d.readOnly {
		return nil
	}
	return errors.Wrap(d.file.Sync(), "sync image")
}

// Close syncs and closes the image
func (d *FileDevice) Close() error {
	if d.file == nil {
		return nil
	}
	syncErr := d.Sync()
	closeErr := d.file.Close()
	d.file = nil
	return errors.CombineErrors(syncErr, closeErr)
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
