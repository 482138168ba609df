package layout

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-linearcache/internal/checksum"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

var testIdentity = types.Identity{
	FrameworkVersion: "fwk-1.4.2",
	AppName:          "retro-launcher",
	AppVersion:       "app-0.9.0",
}

func TestEncodeHeaderOffsets(t *testing.T) {
	data := make([]byte, types.SectorSize)
	require.NoError(t, EncodeHeader(data, testIdentity, 7))

	assert.Equal(t, types.CacheSignature, string(data[0:16]))
	assert.Equal(t, "fwk-1.4.2", string(data[16:25]))
	assert.Equal(t, byte(0), data[25])
	assert.Equal(t, "retro-launcher", string(data[80:94]))
	assert.Equal(t, "app-0.9.0", string(data[144:153]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(data[504:508]))
	assert.True(t, checksum.CheckSector(data))

	for i := 208; i < 504; i++ {
		require.Zerof(t, data[i], "reserved byte %d", i)
	}
}

func TestParseHeader(t *testing.T) {
	data := make([]byte, types.SectorSize)
	require.NoError(t, EncodeHeader(data, testIdentity, 42))

	h, err := ParseHeader(data)
	require.NoError(t, err)

	assert.Equal(t, types.CacheSignature, h.Signature)
	assert.Equal(t, testIdentity, h.Identity())
	assert.Equal(t, uint32(42), h.ElementCount)
	assert.Equal(t, checksum.Stored(data), h.Checksum)
}

func TestParseHeaderWrongSize(t *testing.T) {
	_, err := ParseHeader(make([]byte, 100))
	assert.True(t, errors.Is(err, ErrSectorSize))
}

func TestCheckHeader(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func([]byte)
		id      types.Identity
		want    HeaderChecks
		trusted bool
	}{
		{
			name:    "valid",
			id:      testIdentity,
			want:    HeaderChecks{true, true, true, true, true},
			trusted: true,
		},
		{
			name:   "erased flash",
			mutate: func(b []byte) { fill(b, 0xFF) },
			id:     testIdentity,
			want:   HeaderChecks{false, false, false, false, false},
		},
		{
			name: "new application version",
			id: types.Identity{
				FrameworkVersion: testIdentity.FrameworkVersion,
				AppName:          testIdentity.AppName,
				AppVersion:       "app-1.0.0",
			},
			want: HeaderChecks{true, true, true, true, false},
		},
		{
			name:   "corrupted count",
			mutate: func(b []byte) { b[types.HeaderElementCountOffset] ^= 0x01 },
			id:     testIdentity,
			want:   HeaderChecks{false, true, true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, types.SectorSize)
			require.NoError(t, EncodeHeader(data, testIdentity, 3))
			if tt.mutate != nil {
				tt.mutate(data)
			}

			got, err := CheckHeader(data, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.trusted, got.Trusted())
		})
	}
}

func TestIdentityFieldTruncation(t *testing.T) {
	long := types.Identity{
		FrameworkVersion: strings.Repeat("v", 80),
		AppName:          "a",
		AppVersion:       "b",
	}

	data := make([]byte, types.SectorSize)
	require.NoError(t, EncodeHeader(data, long, 0))

	got, err := CheckHeader(data, long)
	require.NoError(t, err)
	assert.True(t, got.Trusted())
	assert.Equal(t, byte('a'), data[types.HeaderAppNameOffset])
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
