package types

import "strings"

// CheckFlags records which checks a cache task passed or failed.
type CheckFlags uint32

const (
	CheckVolume CheckFlags = 1 << iota
	CheckRead
	CheckWrite
	CheckChecksum
	CheckSignature
	CheckFwkVersion
	CheckAppName
	CheckAppVersion
	CheckFileMetrics
	CheckFilesystem
	CheckCapacity
)

var checkFlagNames = []struct {
	flag CheckFlags
	name string
}{
	{CheckVolume, "volume"},
	{CheckRead, "read"},
	{CheckWrite, "write"},
	{CheckChecksum, "checksum"},
	{CheckSignature, "signature"},
	{CheckFwkVersion, "framework-version"},
	{CheckAppName, "app-name"},
	{CheckAppVersion, "app-version"},
	{CheckFileMetrics, "file-metrics"},
	{CheckFilesystem, "filesystem"},
	{CheckCapacity, "capacity"},
}

// Has reports whether every bit of f is set.
func (c CheckFlags) Has(f CheckFlags) bool {
	return c&f == f
}

// Names lists the set flags in declaration order.
func (c CheckFlags) Names() []string {
	var names []string
	for _, n := range checkFlagNames {
		if c&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

func (c CheckFlags) String() string {
	if c == 0 {
		return "none"
	}
	return strings.Join(c.Names(), "|")
}
