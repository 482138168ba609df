package types

// SlotFile is the live metadata of the file backing one cache element in
// the file-system mirror.
type SlotFile struct {
	// Path is the full mirror path: base directory, slot index and file name.
	Path string
	// Date and Time use the FAT encoding stored in element info sectors.
	Date    uint32
	Time    uint32
	Size    uint32
	Archive bool
}
