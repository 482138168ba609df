package check

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/deploymenttheory/go-linearcache/internal/cache"
	"github.com/deploymenttheory/go-linearcache/internal/types"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

func sampleResponse() *Response {
	return &Response{
		Image: "cache.img",
		Mode:  ModeVerify,
		Header: HeaderStatus{
			Read:         true,
			Trusted:      true,
			Signature:    types.CacheSignature,
			AppName:      "retro-console",
			ElementCount: 3,
		},
		Summary: cache.Summary{
			PassID:       "5b7c8f1e-0000-4000-8000-000000000000",
			ReadOnly:     true,
			StoredCount:  3,
			ElementCount: 3,
			Verified:     []uint32{0, 2},
			Failed: []cache.ElementFailure{
				{Index: 1, Task: "check-data", Failed: []string{"checksum"}},
			},
		},
		Elapsed: 1500 * time.Microsecond,
		Metrics: []app.MetricSample{
			{Name: "lcache_storage_sectors_read_total", Labels: map[string]string{"role": "linear-cache"}, Value: 12},
		},
	}
}

func TestFormatOutput(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		wantErr  bool
		validate func(*testing.T, string)
	}{
		{
			name:   "table format",
			format: "table",
			validate: func(t *testing.T, output string) {
				assert.Contains(t, output, "EMBEDUL.AR CACHE")
				assert.Contains(t, output, "check-data")
				assert.Contains(t, output, "0,2")
				assert.Contains(t, output, "lcache_storage_sectors_read_total")
				assert.Contains(t, output, "3 cached elements, 1 failed")
			},
		},
		{
			name:   "json format",
			format: "json",
			validate: func(t *testing.T, output string) {
				var decoded map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(output), &decoded))
				summary := decoded["summary"].(map[string]interface{})
				assert.Equal(t, "5b7c8f1e-0000-4000-8000-000000000000", summary["pass_id"])
				assert.Len(t, summary["failed"], 1)
			},
		},
		{
			name:   "yaml format",
			format: "yaml",
			validate: func(t *testing.T, output string) {
				var decoded map[string]interface{}
				require.NoError(t, yaml.Unmarshal([]byte(output), &decoded))
				assert.Equal(t, "verify", decoded["mode"])
				assert.Contains(t, output, "elapsed: 1.5ms")
			},
		},
		{
			name:    "unknown format",
			format:  "xml",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := FormatOutput(&buf, sampleResponse(), tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, buf.String())
		})
	}
}

func TestFormatSummary(t *testing.T) {
	resp := &Response{
		Summary: cache.Summary{ElementCount: 1, Built: []uint32{0}, HeaderWritten: true},
		Elapsed: time.Second,
	}
	assert.Equal(t, "1 cached element, 1 written, header rewritten in 1s", FormatSummary(resp))
}
