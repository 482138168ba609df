package check

import (
	"time"

	"github.com/deploymenttheory/go-linearcache/internal/cache"
	"github.com/deploymenttheory/go-linearcache/internal/types"
	"github.com/deploymenttheory/go-linearcache/pkg/app"
)

// Request represents a cache verification or rebuild request
type Request struct {
	Target app.ImageTarget

	// MirrorRoot enables rebuilding from the slot tree under this host
	// directory. Empty verifies only.
	MirrorRoot     string
	FrameworkDir   string
	ApplicationDir string

	Identity      types.Identity
	Retries       uint32
	ProgressScale uint8
	SkipDataCheck bool

	// DryRun runs the pass on an in-memory copy of the image
	DryRun  bool
	Metrics bool
}

// Response represents the outcome of one pass
type Response struct {
	Image   string             `json:"image" yaml:"image"`
	Mode    string             `json:"mode" yaml:"mode"`
	DryRun  bool               `json:"dry_run" yaml:"dry_run"`
	Header  HeaderStatus       `json:"header" yaml:"header"`
	Summary cache.Summary      `json:"summary" yaml:"summary"`
	Steps   int                `json:"steps" yaml:"steps"`
	Elapsed time.Duration      `json:"elapsed" yaml:"elapsed"`
	Metrics []app.MetricSample `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// HeaderStatus is the header as the pass found it
type HeaderStatus struct {
	Read             bool     `json:"read" yaml:"read"`
	Trusted          bool     `json:"trusted" yaml:"trusted"`
	Signature        string   `json:"signature" yaml:"signature"`
	FrameworkVersion string   `json:"framework_version" yaml:"framework_version"`
	AppName          string   `json:"app_name" yaml:"app_name"`
	AppVersion       string   `json:"app_version" yaml:"app_version"`
	ElementCount     uint32   `json:"element_count" yaml:"element_count"`
	Passed           []string `json:"passed" yaml:"passed"`
	Failed           []string `json:"failed" yaml:"failed"`
}

// Pass modes
const (
	ModeVerify  = "verify"
	ModeRebuild = "rebuild"
)
