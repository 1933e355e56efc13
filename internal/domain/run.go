package domain

import "time"

// RunStage enumerates pipeline milestones for one execution.
type RunStage string

const (
	StageFetching      RunStage = "fetching"
	StageNormalizing   RunStage = "normalizing"
	StageDeduplicating RunStage = "deduplicating"
	StageTranslating   RunStage = "translating"
	StageScoring       RunStage = "scoring"
	StageRanking       RunStage = "ranking"
	StagePersisting    RunStage = "persisting"
	StageReporting     RunStage = "reporting"
	StageDone          RunStage = "done"
	StageFailed        RunStage = "failed"
)

// RunCounters aggregates per-item outcomes; recoverable failures surface
// here instead of aborting the run.
type RunCounters struct {
	Fetched    int
	Dropped    int
	Duplicates int
	Translated int
	Scored     int
	Excluded   int
	Reported   int
}

// RunRecord is persisted once per execution, both for the run summary and
// for idempotence windowing.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Stage      RunStage

	Counters RunCounters

	// DegradedSources lists adapters that failed; the run still completes
	// with partial results.
	DegradedSources []string

	Err string
}

// Failed reports whether the run ended in the terminal FAILED state.
func (r RunRecord) Failed() bool {
	return r.Stage == StageFailed
}
