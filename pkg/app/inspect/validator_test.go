package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

func TestValidate(t *testing.T) {
	target := app.ImageTarget{Path: "cache.img"}

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"header ok", (&HeaderRequest{Target: target, Identity: testIdentity}).Validate(), ""},
		{"list ok", (&ListRequest{Target: target, Identity: testIdentity}).Validate(), ""},
		{"extract ok", (&ExtractRequest{Target: target, Identity: testIdentity, Dest: "out"}).Validate(), ""},
		{"missing image", (&HeaderRequest{Identity: testIdentity}).Validate(), app.ErrCodeInvalidInput},
		{"missing app name", (&ListRequest{Target: target}).Validate(), app.ErrCodeInvalidInput},
		{"missing dest", (&ExtractRequest{Target: target, Identity: testIdentity}).Validate(), app.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code == "" {
				assert.NoError(t, tt.err)
				return
			}
			assert.Equal(t, tt.code, app.ErrorCode(tt.err))
		})
	}
}
