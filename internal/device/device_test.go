package device

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

func writeImage(t *testing.T, sectors int, extra int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.img")
	data := make([]byte, sectors*types.SectorSize+extra)
	for i := range data {
		data[i] = byte(i / types.SectorSize)
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileDeviceReadWrite(t *testing.T) {
	path := writeImage(t, 8, 100)

	d, err := OpenFile(path, false, nil)
	require.NoError(t, err)

	n, err := d.SectorCount()
	require.NoError(t, err)
	assert.Equal(t, uint32(8), n, "partial trailing sector is ignored")

	buf := make([]byte, 2*types.SectorSize)
	require.NoError(t, d.MediaRead(buf, 3, 2))
	assert.Equal(t, byte(3), buf[0])
	assert.Equal(t, byte(4), buf[types.SectorSize])

	out := bytes.Repeat([]byte{0xAB}, types.SectorSize)
	require.NoError(t, d.MediaWrite(out, 7, 1))
	require.NoError(t, d.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, data[7*types.SectorSize:8*types.SectorSize])

	read, written, _, _ := d.Stats().Snapshot()
	assert.Equal(t, int64(2), read)
	assert.Equal(t, int64(1), written)
}

func TestFileDeviceBounds(t *testing.T) {
	d, err := OpenFile(writeImage(t, 4, 0), true, nil)
	require.NoError(t, err)
	defer d.Close()

	err = d.MediaRead(make([]byte, types.SectorSize), 4, 1)
	require.Error(t, err)
	assert.True(t, errors.HasAssertionFailure(err))

	err = d.MediaRead(make([]byte, 10), 0, 1)
	assert.True(t, errors.HasAssertionFailure(err))
}

func TestFileDeviceReadOnly(t *testing.T) {
	d, err := OpenFile(writeImage(t, 4, 0), true, nil)
	require.NoError(t, err)
	defer d.Close()

	err = d.MediaWrite(make([]byte, types.SectorSize), 0, 1)
	assert.True(t, errors.Is(err, ErrMedia))
}

func TestOpenFileTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.img")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))

	_, err := OpenFile(path, true, nil)
	assert.Error(t, err)
}

func TestMemoryDeviceCountsAndFaults(t *testing.T) {
	d := NewErasedMemory(16)

	sector := d.Sector(5)
	assert.Equal(t, byte(0xFF), sector[0])

	buf := make([]byte, 2*types.SectorSize)
	require.NoError(t, d.MediaWrite(buf, 2, 2))
	require.NoError(t, d.MediaWrite(buf[:types.SectorSize], 2, 1))
	assert.Equal(t, map[uint32]int{2: 2, 3: 1}, d.Writes())
	assert.Equal(t, 3, d.TotalWrites())

	d.FailRead = func(s uint32) bool { return s == 9 }
	err := d.MediaRead(buf, 8, 2)
	assert.True(t, errors.Is(err, ErrMedia))
	require.NoError(t, d.MediaRead(buf, 10, 2))
	assert.Equal(t, 2, d.Reads())

	d.ResetCounters()
	assert.Zero(t, d.TotalWrites())
	assert.Zero(t, d.Reads())
}

func TestLoadMemoryRoundTrip(t *testing.T) {
	path := writeImage(t, 6, 0)

	d, err := LoadMemory(path)
	require.NoError(t, err)
	assert.Equal(t, byte(4), d.Sector(4)[0])

	var out bytes.Buffer
	require.NoError(t, d.SaveTo(&out))
	orig, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, orig, out.Bytes())
}
