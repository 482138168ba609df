package layout

// InfoSectorOf returns the volume-relative sector holding the info of
// element index. Info sectors grow backwards from the last volume sector.
func InfoSectorOf(volumeSectors, index uint32) uint32 {
	return volumeSectors - 1 - index
}

// SectorsFor returns the number of data sectors needed for octets.
func SectorsFor(octets uint32) uint32 {
	n := octets >> 9
	if octets&511 != 0 {
		n++
	}
	return n
}

// NextSpan places an element of octets right after the data of the previous
// element. An empty element gets end == begin-1.
func NextSpan(prevEnd, octets uint32) (begin, end uint32) {
	begin = prevEnd + 1
	end = begin + SectorsFor(octets) - 1
	return begin, end
}

// SpanLength returns the sector count of the inclusive span [begin, end].
func SpanLength(begin, end uint32) uint32 {
	if end < begin {
		return 0
	}
	return end - begin + 1
}

// Fits reports whether element index, with data [begin, end], can be
// written without its data reaching the info region. The info region at
// that point spans InfoSectorOf(index) up to the last volume sector.
func Fits(volumeSectors, index, begin, end uint32) bool {
	if volumeSectors < 2 || index >= volumeSectors-1 {
		return false
	}
	// An empty element has end == begin-1, the end of the previous data,
	// which must still stay clear of its info sector.
	return begin >= 1 && end < InfoSectorOf(volumeSectors, index)
}
