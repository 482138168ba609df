package app

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// ImageTarget selects the cache volume across commands
type ImageTarget struct {
	Path      string
	Partition uint8
}

// Validate ensures the image target is valid
func (it *ImageTarget) Validate() error {
	if it.Path == "" {
		return errors.New("image path is required")
	}
	if it.Partition > types.MBRMaxPartitions {
		return errors.Newf("partition %d out of range 0-%d", it.Partition, types.MBRMaxPartitions)
	}
	return nil
}

// String returns a string representation of the image target
func (it *ImageTarget) String() string {
	if it.Partition == 0 {
		return it.Path
	}
	return fmt.Sprintf("%s (partition %d)", it.Path, it.Partition)
}

// ProgressUpdate represents progress information
type ProgressUpdate struct {
	Message     string
	Completed   int64
	Total       int64
	StartedAt   time.Time
	ElapsedTime time.Duration
}

// Percent calculates completion percentage
func (p *ProgressUpdate) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int((p.Completed * 100) / p.Total)
}

// Rate calculates items per second
func (p *ProgressUpdate) Rate() float64 {
	if p.ElapsedTime == 0 {
		return 0
	}
	return float64(p.Completed) / p.ElapsedTime.Seconds()
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeImageAccess     = "IMAGE_ACCESS"
	ErrCodeVolumeNotFound  = "VOLUME_NOT_FOUND"
	ErrCodeCacheInvalid    = "CACHE_INVALID"
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"
	ErrCodeIO              = "IO_ERROR"
	ErrCodeCanceled        = "CANCELED"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the code of the first CommonError in err's chain
func ErrorCode(err error) string {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
