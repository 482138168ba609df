package cache

// Element progress is a 24-bit fixed point accumulator: each copied sector
// adds (scale << 24) / sectors, and completion snaps it to scale << 24.

func (p *Process) progressFinished() uint32 {
	return p.progressScale << 24
}

func (p *Process) initProgress(sectors uint32) {
	if sectors == 0 {
		p.progressDelta = 0
		p.progressCurrent = p.progressFinished()
		return
	}
	p.progressDelta = p.progressFinished() / sectors
	p.progressCurrent = 0
}

// ElementProgress returns the progress of the current element copy or
// check, from 0 up to the configured scale.
func (p *Process) ElementProgress() uint32 {
	return p.progressCurrent >> 24
}

// ElementFinished reports whether the current element copy or check has
// completed.
func (p *Process) ElementFinished() bool {
	return p.progressCurrent == p.progressFinished()
}
