package relay

import "go.uber.org/zap"

// Stage is the position of a run in its lifecycle:
//
//	START → RESOLVING → BINDING → DISPATCHING_ONCE → STREAMING → DONE
//
// A failure in any stage ends the run with one error event and moves it to
// FAILED.
type Stage int

const (
	StageStart Stage = iota
	StageResolving
	StageBinding
	StageDispatchingOnce
	StageStreaming
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageStart:           "start",
	StageResolving:       "resolving",
	StageBinding:         "binding",
	StageDispatchingOnce: "dispatching_once",
	StageStreaming:       "streaming",
	StageDone:            "done",
	StageFailed:          "failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

func (s *Stage) move(next Stage, log *zap.Logger) {
	log.Debug("relay stage", zap.Stringer("from", *s), zap.Stringer("to", next))
	*s = next
}
