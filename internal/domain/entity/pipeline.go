package entity

type PipelineStage string

const (
	StageReceived            PipelineStage = "received"
	StageDecoding            PipelineStage = "decoding"
	StageSampling            PipelineStage = "sampling"
	StageExtractingLandmarks PipelineStage = "extracting_landmarks"
	StageAggregating         PipelineStage = "aggregating"
	StagePredicting          PipelineStage = "predicting"
	StageDone                PipelineStage = "done"
	StageFailed              PipelineStage = "failed"
)

func (s PipelineStage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

var stageOrder = map[PipelineStage]int{
	StageReceived:            0,
	StageDecoding:            1,
	StageSampling:            2,
	StageExtractingLandmarks: 3,
	StageAggregating:         4,
	StagePredicting:          5,
	StageDone:                6,
}

// CanTransition allows moving forward one stage (sampling and extraction
// interleave, so extraction may follow decoding directly) or to failed from
// any non-terminal stage.
func (s PipelineStage) CanTransition(next PipelineStage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	from, ok1 := stageOrder[s]
	to, ok2 := stageOrder[next]
	return ok1 && ok2 && to > from && to-from <= 2
}
