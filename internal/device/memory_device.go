package device

import (
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// MemoryDevice is a RAM disk. It counts per-sector writes and can inject
// media failures, which makes it the device of choice for dry runs and tests.
type MemoryDevice struct {
	mu     sync.Mutex
	data   []byte
	writes map[uint32]int
	reads  int

	// FailRead and FailWrite, when set, make the matching sector fail.
	FailRead  func(sector uint32) bool
	FailWrite func(sector uint32) bool
}

// NewMemory returns a zero-filled RAM disk of sectors sectors.
func NewMemory(sectors uint32) *MemoryDevice {
	return &MemoryDevice{
		data:   make([]byte, int(sectors)*types.SectorSize),
		writes: make(map[uint32]int),
	}
}

// NewErasedMemory returns a RAM disk filled with 0xFF, like erased flash.
func NewErasedMemory(sectors uint32) *MemoryDevice {
	d := NewMemory(sectors)
	for i := range d.data {
		d.data[i] = 0xFF
	}
	return d
}

// LoadMemory copies an image file into a RAM disk.
func LoadMemory(path string) (*MemoryDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %s", path)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image %s", path)
	}

	sectors := len(data) / types.SectorSize
	if sectors == 0 {
		return nil, errors.Newf("image %s is smaller than one sector", path)
	}

	d := NewMemory(uint32(sectors))
	copy(d.data, data)
	return d, nil
}

func (d *MemoryDevice) span(buf []byte, sector, count uint32) (int, int, error) {
	need := int(count) * types.SectorSize
	if len(buf) < need {
		return 0, 0, errors.AssertionFailedf("buffer holds %d bytes, %d sectors need %d", len(buf), count, need)
	}
	off := int(sector) * types.SectorSize
	if off+need > len(d.data) {
		return 0, 0, errors.AssertionFailedf("sectors [%d,+%d) beyond device end %d", sector, count, len(d.data)/types.SectorSize)
	}
	return off, need, nil
}

// MediaRead implements interfaces.RawDevice
func (d *MemoryDevice) MediaRead(buf []byte, sector, count uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	off, n, err := d.span(buf, sector, count)
	if err != nil {
		return err
	}
	for s := sector; s < sector+count; s++ {
		if d.FailRead != nil && d.FailRead(s) {
			return errors.Mark(errors.Newf("injected read failure at sector %d", s), ErrMedia)
		}
	}

	copy(buf[:n], d.data[off:off+n])
	d.reads += int(count)
	return nil
}

// MediaWrite implements interfaces.RawDevice
func (d *MemoryDevice) MediaWrite(buf []byte, sector, count uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	off, n, err := d.span(buf, sector, count)
	if err != nil {
		return err
	}
	for s := sector; s < sector+count; s++ {
		if d.FailWrite != nil && d.FailWrite(s) {
			return errors.Mark(errors.Newf("injected write failure at sector %d", s), ErrMedia)
		}
	}

	copy(d.data[off:off+n], buf[:n])
	for s := sector; s < sector+count; s++ {
		d.writes[s]++
	}
	return nil
}

// SectorCount implements interfaces.RawDevice
func (d *MemoryDevice) SectorCount() (uint32, error) {
	return uint32(len(d.data) / types.SectorSize), nil
}

// Description implements interfaces.RawDevice
func (d *MemoryDevice) Description() string {
	return "memory"
}

// Sector returns a copy of one device sector.
func (d *MemoryDevice) Sector(sector uint32) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	off := int(sector) * types.SectorSize
	return append([]byte(nil), d.data[off:off+types.SectorSize]...)
}

// Poke overwrites bytes at a device byte offset without counting a write.
func (d *MemoryDevice) Poke(offset int, b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.data[offset:], b)
}

// Writes returns how many times each sector was written.
func (d *MemoryDevice) Writes() map[uint32]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uint32]int, len(d.writes))
	for k, v := range d.writes {
		out[k] = v
	}
	return out
}

// Reads returns the number of sectors read since the last reset.
func (d *MemoryDevice) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// TotalWrites returns the number of sector writes since the last reset.
func (d *MemoryDevice) TotalWrites() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, v := range d.writes {
		total += v
	}
	return total
}

// ResetCounters clears the read and write counters.
func (d *MemoryDevice) ResetCounters() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = make(map[uint32]int)
	d.reads = 0
}

// SaveTo writes the RAM disk contents to w.
func (d *MemoryDevice) SaveTo(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := w.Write(d.data)
	return errors.Wrap(err, "save memory image")
}
