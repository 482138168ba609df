package inspect

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

func sampleList() *ListResponse {
	return &ListResponse{
		Image:   "cache.img",
		Trusted: false,
		Elements: []ElementEntry{
			{Index: 0, Path: "/cache/fwk/0/font.bin", Octets: 10, SectorBegin: 1, SectorEnd: 1, SectorCount: 1,
				DataCRC: 0xDEADBEEF, Modified: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), InfoValid: true},
			{Index: 1, Path: "/cache/fwk/1/empty.bin", SectorBegin: 2, SectorEnd: 1, InfoValid: true,
				DataChecked: true, DataValid: true},
		},
	}
}

func TestFormatList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatList(&buf, sampleList(), "table"))
	out := buf.String()
	assert.Contains(t, out, "/cache/fwk/0/font.bin")
	assert.Contains(t, out, "deadbeef")
	assert.Contains(t, out, "2024-03-01 12:00:00")
	assert.Contains(t, out, "2 elements in cache.img")
	assert.Contains(t, out, "warning")

	buf.Reset()
	require.NoError(t, FormatList(&buf, &ListResponse{Image: "cache.img"}, "table"))
	assert.Contains(t, buf.String(), "no elements")

	buf.Reset()
	require.NoError(t, FormatList(&buf, sampleList(), "json"))
	var decoded ListResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "/cache/fwk/1/empty.bin", decoded.Elements[1].Path)

	buf.Reset()
	require.NoError(t, FormatList(&buf, sampleList(), "yaml"))
	var generic map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &generic))
	assert.Equal(t, "cache.img", generic["image"])

	assert.Error(t, FormatList(&buf, sampleList(), "xml"))
}

func TestFormatHeader(t *testing.T) {
	resp := &HeaderResponse{
		Image:         "cache.img",
		VolumeSectors: 64,
		Header: types.Header{
			Signature:    "EMBEDUL.AR CACHE",
			AppName:      "retro-console",
			ElementCount: 2,
			Checksum:     0x1234,
		},
		Checks: HeaderChecks{Checksum: true, Signature: true, AppName: true},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatHeader(&buf, resp, "table"))
	out := buf.String()
	assert.Contains(t, out, "EMBEDUL.AR CACHE")
	assert.Contains(t, out, "0x00001234")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "header NOT trusted")
}

func TestFormatExtract(t *testing.T) {
	resp := &ExtractResponse{Index: 3, Path: "/cache/fwk/3/a.bin", Dest: "out/a.bin", Octets: 42}

	var buf bytes.Buffer
	require.NoError(t, FormatExtract(&buf, resp, "table"))
	assert.Contains(t, buf.String(), "element 3 (/cache/fwk/3/a.bin): 42 bytes -> out/a.bin [checksum FAILED]")

	buf.Reset()
	resp.Verified = true
	require.NoError(t, FormatExtract(&buf, resp, "json"))
	assert.Contains(t, buf.String(), `"verified": true`)
}
