package app

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestImageTarget(t *testing.T) {
	tests := []struct {
		name    string
		target  ImageTarget
		wantErr bool
		str     string
	}{
		{name: "whole image", target: ImageTarget{Path: "cache.img"}, str: "cache.img"},
		{name: "partition", target: ImageTarget{Path: "/dev/sdb", Partition: 2}, str: "/dev/sdb (partition 2)"},
		{name: "missing path", target: ImageTarget{}, wantErr: true, str: ""},
		{name: "bad partition", target: ImageTarget{Path: "cache.img", Partition: 5}, wantErr: true, str: "cache.img (partition 5)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.str, tt.target.String())
		})
	}
}

func TestProgressUpdate(t *testing.T) {
	p := ProgressUpdate{Completed: 3, Total: 12, ElapsedTime: 2 * time.Second}
	assert.Equal(t, 25, p.Percent())
	assert.InDelta(t, 1.5, p.Rate(), 1e-9)

	empty := ProgressUpdate{}
	assert.Equal(t, 0, empty.Percent())
	assert.Equal(t, 0.0, empty.Rate())
}

func TestCommonError(t *testing.T) {
	cause := errors.New("disk on fire")
	err := errors.Wrap(NewError(ErrCodeIO, "read failed", cause), "list")

	assert.Equal(t, ErrCodeIO, ErrorCode(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "list: read failed: disk on fire", err.Error())

	assert.Equal(t, "no cause", NewError(ErrCodeInvalidInput, "no cause", nil).Error())
	assert.Empty(t, ErrorCode(cause))
}
