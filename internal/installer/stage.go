// SPDX-License-Identifier: MPL-2.0

package installer

// Stage identifies where in the pipeline an installer currently is.
type Stage int

const (
	StageIdle Stage = iota
	StageResolvingVersion
	StageUpToDate
	StageFetching
	StageExtracting
	StageCompiling
	StageActivating
	StageDone
)

// String returns the stage name for logs and diagnostics.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageResolvingVersion:
		return "resolving-version"
	case StageUpToDate:
		return "up-to-date"
	case StageFetching:
		return "fetching"
	case StageExtracting:
		return "extracting"
	case StageCompiling:
		return "compiling"
	case StageActivating:
		return "activating"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stage ends a pipeline run.
func (s Stage) Terminal() bool {
	switch s {
	case StageUpToDate, StageDone:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a valid pipeline
// step. Activation can follow Idle or ResolvingVersion directly when an
// already-compiled dataset satisfies the target release.
func (s Stage) CanTransition(next Stage) bool {
	switch s {
	case StageIdle:
		return next == StageResolvingVersion || next == StageFetching || next == StageActivating
	case StageResolvingVersion:
		return next == StageUpToDate || next == StageFetching || next == StageActivating
	case StageFetching:
		return next == StageExtracting
	case StageExtracting:
		return next == StageCompiling
	case StageCompiling:
		return next == StageActivating
	case StageActivating:
		return next == StageDone
	default:
		return false
	}
}
