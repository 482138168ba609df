package interfaces

import (
	"io"

	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// SlotMirror is the optional file-system source the cache is built from.
type SlotMirror interface {
	// Slot resolves the directory and file of element index
	Slot(index uint32) (types.SlotFile, error)

	// Open opens a slot file previously returned by Slot
	Open(path string) (io.ReadCloser, error)
}
