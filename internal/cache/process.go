// Package cache verifies and rebuilds the linear element cache.
//
// A Process runs one pass over the cache volume as a sequence of short
// tasks. Callers drive it with Step until it reports that no task remains:
//
//	p, err := cache.New(storage, mirror, registry, identity)
//	for p.Step() {
//		// update a progress display, service a watchdog...
//	}
//
// Sector copies inside a task poll the break predicate once per sector, so
// a long element can be spread across many Step calls.
package cache

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-linearcache/internal/interfaces"
	"github.com/deploymenttheory/go-linearcache/internal/layout"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// BreakFunc is polled once per copied sector. Returning true suspends the
// copy until the next Step.
type BreakFunc func() bool

// Option configures a Process
type Option func(*Process)

// WithSkipDataCheck skips the data CRC of elements whose info is valid
func WithSkipDataCheck(skip bool) Option {
	return func(p *Process) { p.skipDataCheck = skip }
}

// WithRetries sets the retry count passed to every linear access
func WithRetries(retries uint32) Option {
	return func(p *Process) { p.retries = retries }
}

// WithProgressScale sets the value ElementProgress reaches on completion.
// It must be between 1 and 255.
func WithProgressScale(scale uint8) Option {
	return func(p *Process) { p.progressScale = uint32(scale) }
}

// WithBreak installs the break predicate
func WithBreak(fn BreakFunc) Option {
	return func(p *Process) { p.breakFunc = fn }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(p *Process) { p.log = log }
}

// Process is the state of one verification/rebuild pass. It is created at
// the start of a pass and discarded at the end.
type Process struct {
	storage   interfaces.LinearStorage
	mirror    interfaces.SlotMirror
	publisher interfaces.ElementCountPublisher
	identity  types.Identity

	skipDataCheck bool
	retries       uint32
	progressScale uint32
	breakFunc     BreakFunc
	log           *logrus.Entry

	lastTask types.Stage
	nextTask types.Stage

	hasSlots      bool
	rewriteHeader bool
	volumeSectors uint32
	header        *types.Header
	storedCount   uint32
	elementCount  uint32
	element       uint32

	slot types.SlotFile
	file io.ReadCloser

	fileDate      uint32
	fileTime      uint32
	octets        uint32
	sectorBegin   uint32
	sectorEnd     uint32
	sectorCurrent uint32
	prevSectorEnd uint32
	storedCRC     uint32
	checkCRC      uint32
	path          string

	progressDelta   uint32
	progressCurrent uint32

	checksPassed types.CheckFlags
	checksFailed types.CheckFlags

	summary Summary
	sector  [types.SectorSize]byte
}

// New prepares a pass over the linear cache volume of storage. A nil mirror
// selects read-only mode, where the pass only verifies. publisher may be nil.
func New(storage interfaces.LinearStorage, mirror interfaces.SlotMirror, publisher interfaces.ElementCountPublisher, id types.Identity, opts ...Option) (*Process, error) {
	if storage == nil {
		return nil, errors.AssertionFailedf("cache process without storage")
	}

	p := &Process{
		storage:       storage,
		mirror:        mirror,
		publisher:     publisher,
		identity:      id,
		progressScale: 100,
		nextTask:      types.StageStart,
		lastTask:      types.StageStart,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.progressScale == 0 || p.progressScale > 255 {
		return nil, errors.AssertionFailedf("progress scale %d outside 1..255", p.progressScale)
	}
	if p.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		p.log = logrus.NewEntry(l)
	}

	p.summary.PassID = uuid.NewString()
	p.log = p.log.WithField("pass", p.summary.PassID)

	return p, nil
}

// Step runs the next task and reports whether more tasks remain.
func (p *Process) Step() bool {
	task := p.nextTask

	switch task {
	case types.StageStart:
		p.start()
	case types.StageReadHeader:
		p.readHeader()
	case types.StageBeginIteration:
		p.beginIteration()
	case types.StageReadSlot:
		p.readSlot()
	case types.StageSlotToInfo:
		p.slotToInfo()
	case types.StageSlotToData:
		p.slotToData()
	case types.StageCheckInfo:
		p.checkInfo()
	case types.StageCheckData:
		p.checkData()
	case types.StageNextIteration:
		p.nextIteration()
	case types.StageEndIteration:
		p.endIteration()
	case types.StageWriteHeader:
		p.writeHeader()
	case types.StageDone:
		return false
	default:
		panic(errors.AssertionFailedf("unknown cache stage %d", int(task)))
	}

	if !task.Streaming() || p.nextTask != task {
		p.log.WithFields(logrus.Fields{
			"task":    task.String(),
			"next":    p.nextTask.String(),
			"element": p.element,
			"passed":  p.checksPassed.String(),
			"failed":  p.checksFailed.String(),
		}).Debug("cache task")
	}

	return true
}

// Run steps the pass to completion and returns its summary.
func (p *Process) Run() Summary {
	for p.Step() {
	}
	return p.Summary()
}

// Close releases the slot file of an interrupted pass and ends it. Step
// returns false afterwards. Closing a finished pass does nothing.
func (p *Process) Close() {
	if p.nextTask == types.StageDone {
		return
	}
	p.closeFile()
	p.nextTask = types.StageDone
	p.log.WithField("element", p.element).Debug("cache pass closed")
}

// LastTask returns the task run by the latest Step
func (p *Process) LastTask() types.Stage { return p.lastTask }

// NextTask returns the task the next Step runs
func (p *Process) NextTask() types.Stage { return p.nextTask }

// Element returns the current element index
func (p *Process) Element() uint32 { return p.element }

// ElementCount returns the element count read from a trusted header
func (p *Process) ElementCount() uint32 { return p.elementCount }

// HasSlots reports whether the pass rebuilds from a mirror
func (p *Process) HasSlots() bool { return p.hasSlots }

// Slot returns the mirror slot of the current element
func (p *Process) Slot() types.SlotFile { return p.slot }

// Header returns the header read from sector 0, trusted or not. It is nil
// before ReadHeader ran or when the read failed.
func (p *Process) Header() *types.Header { return p.header }

// ChecksPassed returns the checks passed by the latest task
func (p *Process) ChecksPassed() types.CheckFlags { return p.checksPassed }

// ChecksFailed returns the checks failed by the latest task
func (p *Process) ChecksFailed() types.CheckFlags { return p.checksFailed }

// CurrentInfo returns the element scratch fields of the current element
func (p *Process) CurrentInfo() types.ElementInfo {
	return types.ElementInfo{
		FileDate:    p.fileDate,
		FileTime:    p.fileTime,
		Octets:      p.octets,
		SectorBegin: p.sectorBegin,
		SectorEnd:   p.sectorEnd,
		SectorCount: layout.SpanLength(p.sectorBegin, p.sectorEnd),
		DataCRC:     p.storedCRC,
		Path:        p.path,
	}
}

// Summary returns what the pass did so far
func (p *Process) Summary() Summary {
	s := p.summary
	s.ReadOnly = !p.hasSlots
	s.StoredCount = p.storedCount
	s.Verified = append([]uint32(nil), p.summary.Verified...)
	s.Built = append([]uint32(nil), p.summary.Built...)
	s.Rebuilt = append([]uint32(nil), p.summary.Rebuilt...)
	s.Failed = append([]ElementFailure(nil), p.summary.Failed...)
	return s
}

func (p *Process) check(flag types.CheckFlags, passed bool) {
	if passed {
		p.checksPassed |= flag
	} else {
		p.checksFailed |= flag
	}
}

func (p *Process) clearChecks() {
	p.checksPassed = 0
	p.checksFailed = 0
}

func (p *Process) setNext(next types.Stage) {
	p.lastTask = p.nextTask
	p.nextTask = next
}

// fail records the current element as failed and moves to next.
func (p *Process) fail(next types.Stage) {
	p.summary.Failed = append(p.summary.Failed, ElementFailure{
		Index:  p.element,
		Stage:  p.nextTask,
		Task:   p.nextTask.String(),
		Checks: p.checksFailed,
		Failed: p.checksFailed.Names(),
	})
	p.log.WithFields(logrus.Fields{
		"element": p.element,
		"task":    p.nextTask.String(),
		"failed":  p.checksFailed.String(),
	}).Warn("cached element failed")
	p.setNext(next)
}

func (p *Process) publish(count uint32) {
	p.summary.ElementCount = count
	if p.publisher != nil {
		p.publisher.SetCachedElementCount(count)
	}
}

func (p *Process) closeFile() {
	if p.file != nil {
		if err := p.file.Close(); err != nil {
			p.log.WithError(err).WithField("path", p.slot.Path).Warn("closing slot file")
		}
		p.file = nil
	}
}
