package mirror

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotDir(t *testing.T) {
	m := New(afero.NewMemMapFs(), "", "")

	assert.Equal(t, "/cache/fwk/0/", m.SlotDir(0))
	assert.Equal(t, "/cache/fwk/7/", m.SlotDir(7))
	assert.Equal(t, "/cache/app/8/", m.SlotDir(8))
	assert.Equal(t, "/cache/app/123/", m.SlotDir(123))
}

func TestSlotResolvesFirstFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/cache/fwk/0/aaa-subdir", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/cache/fwk/0/font.bin", []byte("0123456789"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/cache/fwk/0/zz.bin", []byte("ignored"), 0o644))

	mod := time.Date(2022, time.March, 14, 15, 9, 26, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/cache/fwk/0/font.bin", mod, mod))

	m := New(fs, "", "")
	slot, err := m.Slot(0)
	require.NoError(t, err)

	assert.Equal(t, "/cache/fwk/0/font.bin", slot.Path)
	assert.Equal(t, uint32(10), slot.Size)
	assert.True(t, slot.Archive)

	date, tm := FATDateTime(mod)
	assert.Equal(t, date, slot.Date)
	assert.Equal(t, tm, slot.Time)

	r, err := m.Open(slot.Path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestSlotErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/cache/fwk/1/only-dirs", 0o755))
	require.NoError(t, fs.MkdirAll("/cache/fwk/2", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/cache/fwk/2/"+strings.Repeat("n", 60), []byte("x"), 0o644))

	m := New(fs, "", "")

	_, err := m.Slot(0)
	assert.True(t, errors.Is(err, ErrSlotNotFound))

	_, err = m.Slot(1)
	assert.True(t, errors.Is(err, ErrSlotEmpty))

	_, err = m.Slot(2)
	assert.True(t, errors.Is(err, ErrSlotPath))
}

func TestFATDateTime(t *testing.T) {
	date, tm := FATDateTime(time.Date(2022, time.March, 14, 15, 9, 27, 0, time.UTC))
	assert.Equal(t, uint32(42<<9|3<<5|14), date)
	assert.Equal(t, uint32(15<<11|9<<5|13), tm)

	date, tm = FATDateTime(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, uint32(1<<5|1), date)
	assert.Zero(t, tm)
}

func TestFATTime(t *testing.T) {
	mod := time.Date(2022, time.March, 14, 15, 9, 26, 0, time.UTC)
	assert.True(t, mod.Equal(FATTime(FATDateTime(mod))))

	odd := time.Date(2022, time.March, 14, 15, 9, 27, 0, time.UTC)
	assert.True(t, mod.Equal(FATTime(FATDateTime(odd))), "seconds have two second resolution")
}

func TestFATDateTimeIgnoresZone(t *testing.T) {
	instant := time.Date(2023, time.December, 31, 23, 30, 0, 0, time.UTC)
	east := instant.In(time.FixedZone("UTC+9", 9*3600))
	west := instant.In(time.FixedZone("UTC-5", -5*3600))

	date, tm := FATDateTime(instant)
	for _, zoned := range []time.Time{east, west} {
		d, h := FATDateTime(zoned)
		assert.Equal(t, date, d, zoned.Location().String())
		assert.Equal(t, tm, h, zoned.Location().String())
	}
	assert.True(t, instant.Equal(FATTime(date, tm)))
}

func TestSlotFollowsSymlink(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.bin")
	data := strings.Repeat("x", 2000)
	require.NoError(t, os.WriteFile(target, []byte(data), 0o644))

	slotDir := filepath.Join(root, "mirror", "cache", "fwk", "0")
	require.NoError(t, os.MkdirAll(slotDir, 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(slotDir, "a.bin")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.bin"), filepath.Join(slotDir, "0-dangling.bin")))

	mod := time.Date(2021, time.May, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(target, mod, mod))

	m := New(afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(root, "mirror")), "", "")
	slot, err := m.Slot(0)
	require.NoError(t, err)

	assert.Equal(t, "/cache/fwk/0/a.bin", slot.Path)
	assert.Equal(t, uint32(2000), slot.Size)
	assert.True(t, slot.Archive)
	date, tm := FATDateTime(mod)
	assert.Equal(t, date, slot.Date)
	assert.Equal(t, tm, slot.Time)

	r, err := m.Open(slot.Path)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, string(got))
}
