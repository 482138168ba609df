package types

import "fmt"

// Stage is one task of the verification/rebuild pipeline.
type Stage int

const (
	StageStart Stage = iota
	StageReadHeader
	StageBeginIteration
	StageReadSlot
	StageSlotToInfo
	StageSlotToData
	StageCheckInfo
	StageCheckData
	StageNextIteration
	StageEndIteration
	StageWriteHeader
	StageDone
)

var stageNames = [...]string{
	StageStart:          "start",
	StageReadHeader:     "read-header",
	StageBeginIteration: "begin-iteration",
	StageReadSlot:       "read-slot",
	StageSlotToInfo:     "slot-to-info",
	StageSlotToData:     "slot-to-data",
	StageCheckInfo:      "check-info",
	StageCheckData:      "check-data",
	StageNextIteration:  "next-iteration",
	StageEndIteration:   "end-iteration",
	StageWriteHeader:    "write-header",
	StageDone:           "done",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Streaming reports whether the stage copies sectors in a break-able loop.
func (s Stage) Streaming() bool {
	return s == StageSlotToData || s == StageCheckData
}
