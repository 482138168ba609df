// Package mirror resolves cache element slots on a file system.
package mirror

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

var (
	// ErrSlotNotFound means the slot directory does not exist. Slots are
	// dense, so this ends the mirror.
	ErrSlotNotFound = errors.New("slot directory not found")
	// ErrSlotEmpty means the slot directory holds no file.
	ErrSlotEmpty = errors.New("slot has no file")
	// ErrSlotPath means the slot file path does not fit an info sector.
	ErrSlotPath = errors.New("slot path too long")
	// ErrSlotSize means the slot file is larger than an element can be.
	ErrSlotSize = errors.New("slot file too large")
)

// Default slot base paths.
const (
	DefaultFrameworkDir   = "/cache/fwk/"
	DefaultApplicationDir = "/cache/app/"
)

// FS resolves slots on an afero file system. Element indices below
// types.FrameworkElements live under FrameworkDir, the rest under
// ApplicationDir; each slot is the directory named after the index.
type FS struct {
	fs             afero.Fs
	frameworkDir   string
	applicationDir string
}

// New returns an FS. Base directories must end with a slash; empty values
// select the defaults.
func New(fs afero.Fs, frameworkDir, applicationDir string) *FS {
	if frameworkDir == "" {
		frameworkDir = DefaultFrameworkDir
	}
	if applicationDir == "" {
		applicationDir = DefaultApplicationDir
	}
	return &FS{fs: fs, frameworkDir: frameworkDir, applicationDir: applicationDir}
}

// FrameworkDir returns the base path of framework slots
func (m *FS) FrameworkDir() string { return m.frameworkDir }

// ApplicationDir returns the base path of application slots
func (m *FS) ApplicationDir() string { return m.applicationDir }

// SlotDir returns the directory of slot index, with a trailing slash.
func (m *FS) SlotDir(index uint32) string {
	base := m.applicationDir
	if index < types.FrameworkElements {
		base = m.frameworkDir
	}
	return base + strconv.FormatUint(uint64(index), 10) + "/"
}

// Slot implements interfaces.SlotMirror. The slot file is the first regular
// file in name order. Symbolic links are followed; directories, dangling
// links and other special files are skipped.
func (m *FS) Slot(index uint32) (types.SlotFile, error) {
	dir := m.SlotDir(index)
	if len(dir) >= types.InfoPathSize {
		return types.SlotFile{}, errors.Wrapf(ErrSlotPath, "%s", dir)
	}

	entries, err := afero.ReadDir(m.fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.SlotFile{}, errors.Wrapf(ErrSlotNotFound, "%s", dir)
		}
		return types.SlotFile{}, errors.Wrapf(err, "read slot directory %s", dir)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := dir + entry.Name()
		// Readdir reports the link itself, not its target.
		fi, err := m.fs.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return types.SlotFile{}, errors.Wrapf(err, "stat slot file %s", path)
		}
		if !fi.Mode().IsRegular() {
			continue
		}

		// Stored NUL terminated in a 64 byte field.
		if len(path) >= types.InfoPathSize {
			return types.SlotFile{}, errors.Wrapf(ErrSlotPath, "%s", path)
		}
		if fi.Size() > int64(^uint32(0)) {
			return types.SlotFile{}, errors.Wrapf(ErrSlotSize, "%s is %d bytes", path, fi.Size())
		}

		date, tm := FATDateTime(fi.ModTime())
		return types.SlotFile{
			Path:    path,
			Date:    date,
			Time:    tm,
			Size:    uint32(fi.Size()),
			Archive: true,
		}, nil
	}

	return types.SlotFile{}, errors.Wrapf(ErrSlotEmpty, "%s", dir)
}

// Open implements interfaces.SlotMirror
func (m *FS) Open(path string) (io.ReadCloser, error) {
	f, err := m.fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open slot file %s", path)
	}
	return f, nil
}

// FATDateTime encodes t the way FAT directory entries do: date is
// (year-1980)<<9 | month<<5 | day and time is hour<<11 | minute<<5 | second/2.
// Times are taken in UTC so a cache checks out the same under any host time
// zone. Times before 1980 clamp to the FAT epoch.
func FATDateTime(t time.Time) (date, tm uint32) {
	t = t.UTC()
	if t.Year() < 1980 {
		return 1<<5 | 1, 0
	}
	date = uint32(t.Year()-1980)<<9 | uint32(t.Month())<<5 | uint32(t.Day())
	tm = uint32(t.Hour())<<11 | uint32(t.Minute())<<5 | uint32(t.Second()/2)
	return date, tm
}

// FATTime decodes a FAT date and time pair as UTC.
func FATTime(date, tm uint32) time.Time {
	return time.Date(
		int(date>>9&0x7F)+1980, time.Month(date>>5&0x0F), int(date&0x1F),
		int(tm>>11&0x1F), int(tm>>5&0x3F), int(tm&0x1F)*2,
		0, time.UTC)
}
