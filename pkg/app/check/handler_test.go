package check

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-linearcache/internal/types"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

var testIdentity = types.Identity{
	FrameworkVersion: "2.1.0",
	AppName:          "retro-console",
	AppVersion:       "0.9.4",
}

func erasedImage(t *testing.T, sectors int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.img")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, sectors*types.SectorSize), 0o644))
	return path
}

// mirrorTree lays out slot files below a temporary root.
func mirrorTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for rel, data := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, data, 0o644))
	}
	return root
}

func newRequest(image, mirrorRoot string) *Request {
	return &Request{
		Target:        app.ImageTarget{Path: image},
		MirrorRoot:    mirrorRoot,
		Identity:      testIdentity,
		Retries:       1,
		ProgressScale: 100,
	}
}

func TestHandleRebuildThenVerify(t *testing.T) {
	image := erasedImage(t, 64)
	root := mirrorTree(t, map[string][]byte{
		"cache/fwk/0/font.bin":  bytes.Repeat([]byte{0x11}, 10),
		"cache/fwk/1/tiles.bin": bytes.Repeat([]byte{0x22}, 1050),
		"cache/app/8/level.bin": bytes.Repeat([]byte{0x33}, 300),
	})

	var progress []int
	ctx := app.NewContext()
	ctx.SetProgress(func(_ string, percent int) { progress = append(progress, percent) })

	resp, err := Handle(ctx, newRequest(image, root))
	require.NoError(t, err)

	assert.Equal(t, ModeRebuild, resp.Mode)
	assert.True(t, resp.Header.Read)
	assert.False(t, resp.Header.Trusted)
	assert.Contains(t, resp.Header.Failed, "signature")
	assert.Equal(t, []uint32{0, 1}, resp.Summary.Built, "slot 2 is missing so slot 8 is never reached")
	assert.True(t, resp.Summary.HeaderWritten)
	assert.Equal(t, uint32(2), resp.Summary.ElementCount)
	assert.Greater(t, resp.Steps, 10)
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])

	resp, err = Handle(app.NewContext(), newRequest(image, ""))
	require.NoError(t, err)
	assert.Equal(t, ModeVerify, resp.Mode)
	assert.True(t, resp.Header.Trusted)
	assert.Equal(t, "EMBEDUL.AR CACHE", resp.Header.Signature)
	assert.Equal(t, "retro-console", resp.Header.AppName)
	assert.Equal(t, uint32(2), resp.Header.ElementCount)
	assert.Equal(t, []uint32{0, 1}, resp.Summary.Verified)
	assert.False(t, resp.Summary.Degraded())
	assert.True(t, resp.Summary.ReadOnly)
}

func TestHandleDryRun(t *testing.T) {
	image := erasedImage(t, 32)
	root := mirrorTree(t, map[string][]byte{"cache/fwk/0/a.bin": []byte("payload")})

	req := newRequest(image, root)
	req.DryRun = true
	req.Metrics = true

	resp, err := Handle(app.NewContext(), req)
	require.NoError(t, err)
	assert.True(t, resp.DryRun)
	assert.Equal(t, []uint32{0}, resp.Summary.Built)

	written := 0.0
	for _, m := range resp.Metrics {
		if m.Name == "lcache_storage_sectors_written_total" {
			written = m.Value
		}
		if m.Name == "lcache_cached_elements" {
			assert.Equal(t, 1.0, m.Value)
		}
	}
	assert.Equal(t, 4.0, written, "info twice, one data sector, header")

	data, err := os.ReadFile(image)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, len(data)), data, "dry run leaves the image untouched")
}

func TestHandleCanceled(t *testing.T) {
	image := erasedImage(t, 32)
	root := mirrorTree(t, map[string][]byte{"cache/fwk/0/a.bin": []byte("payload")})

	ctx := app.NewContext()
	c, cancel := context.WithCancel(context.Background())
	cancel()
	ctx.Context = c

	_, err := Handle(ctx, newRequest(image, root))
	require.Error(t, err)
	assert.Equal(t, app.ErrCodeCanceled, app.ErrorCode(err))
}

func TestHandleOpenErrors(t *testing.T) {
	_, err := Handle(app.NewContext(), newRequest(filepath.Join(t.TempDir(), "none.img"), ""))
	assert.Equal(t, app.ErrCodeImageAccess, app.ErrorCode(err))

	req := newRequest(erasedImage(t, 32), "")
	req.Target.Partition = 3
	_, err = Handle(app.NewContext(), req)
	assert.Equal(t, app.ErrCodeVolumeNotFound, app.ErrorCode(err))
}
