package inspect

import (
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

func validateCommon(target *app.ImageTarget, appName string) error {
	if err := target.Validate(); err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid image target", err)
	}
	if appName == "" {
		return app.NewError(app.ErrCodeInvalidInput, "application name is required", nil)
	}
	return nil
}

// Validate validates a header request
func (r *HeaderRequest) Validate() error {
	return validateCommon(&r.Target, r.Identity.AppName)
}

// Validate validates a list request
func (r *ListRequest) Validate() error {
	return validateCommon(&r.Target, r.Identity.AppName)
}

// Validate validates an extract request
func (r *ExtractRequest) Validate() error {
	if err := validateCommon(&r.Target, r.Identity.AppName); err != nil {
		return err
	}
	if r.Dest == "" {
		return app.NewError(app.ErrCodeInvalidInput, "destination is required", nil)
	}
	return nil
}
