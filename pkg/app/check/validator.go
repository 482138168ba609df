package check

import (
	"strings"

	"github.com/spf13/afero"

	"github.com/deploymenttheory/go-linearcache/internal/types"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

// Validate validates a check request
func (r *Request) Validate() error {
	if err := r.Target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid image target", err)
	}

	if r.ProgressScale == 0 {
		return app.NewError(app.ErrCodeInvalidInput, "progress scale must be between 1 and 255", nil)
	}

	if r.Identity.AppName == "" {
		return app.NewError(app.ErrCodeInvalidInput, "application name is required", nil)
	}

	if r.MirrorRoot != "" {
		ok, err := afero.DirExists(afero.NewOsFs(), r.MirrorRoot)
		if err != nil || !ok {
			return app.NewError(app.ErrCodeInvalidInput, "mirror root is not a directory: "+r.MirrorRoot, err)
		}
	}

	for _, dir := range []string{r.FrameworkDir, r.ApplicationDir} {
		if dir != "" && !strings.HasPrefix(dir, "/") {
			return app.NewError(app.ErrCodeInvalidInput, "slot base directories must be absolute: "+dir, nil)
		}
	}
	if len(r.FrameworkDir) >= types.InfoPathSize || len(r.ApplicationDir) >= types.InfoPathSize {
		return app.NewError(app.ErrCodeInvalidInput, "slot base directory does not fit an element path", nil)
	}

	return nil
}

// Mode returns the pass mode the request selects
func (r *Request) Mode() string {
	if r.MirrorRoot != "" {
		return ModeRebuild
	}
	return ModeVerify
}
