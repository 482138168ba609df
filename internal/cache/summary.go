package cache

import (
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// ElementFailure is one element that did not pass its checks.
type ElementFailure struct {
	Index  uint32           `json:"index" yaml:"index"`
	Stage  types.Stage      `json:"-" yaml:"-"`
	Task   string           `json:"task" yaml:"task"`
	Checks types.CheckFlags `json:"-" yaml:"-"`
	Failed []string         `json:"failed" yaml:"failed"`
}

// Summary is the outcome of a pass.
type Summary struct {
	PassID        string           `json:"pass_id" yaml:"pass_id"`
	ReadOnly      bool             `json:"read_only" yaml:"read_only"`
	StoredCount   uint32           `json:"stored_count" yaml:"stored_count"`
	ElementCount  uint32           `json:"element_count" yaml:"element_count"`
	HeaderWritten bool             `json:"header_written" yaml:"header_written"`
	Verified      []uint32         `json:"verified" yaml:"verified"`
	Built         []uint32         `json:"built" yaml:"built"`
	Rebuilt       []uint32         `json:"rebuilt" yaml:"rebuilt"`
	Failed        []ElementFailure `json:"failed" yaml:"failed"`
}

// Degraded reports whether any element failed its checks
func (s Summary) Degraded() bool {
	return len(s.Failed) > 0
}

// FailedIndices lists the failed element indices in pass order
func (s Summary) FailedIndices() []uint32 {
	out := make([]uint32, 0, len(s.Failed))
	for _, f := range s.Failed {
		out = append(out, f.Index)
	}
	return out
}
