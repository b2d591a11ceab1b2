package models

// Stage is one of the four board-level groupings derived from a status.
// It is a projection only and is never persisted.
type Stage string

const (
	StageNew        Stage = "new"
	StageInProgress Stage = "in-progress"
	StageRepaired   Stage = "repaired"
	StageScrap      Stage = "scrap"
)

// AllStages lists the board columns in display order.
var AllStages = []Stage{StageNew, StageInProgress, StageRepaired, StageScrap}

// IsValidStage reports whether s is one of the four board stages.
func IsValidStage(s Stage) bool {
	switch s {
	case StageNew, StageInProgress, StageRepaired, StageScrap:
		return true
	default:
		return false
	}
}

// StageForStatus maps every status to exactly one board stage. The mapping is
// total: an unknown status is treated as still-active work so it never
// disappears from the board.
func StageForStatus(s Status) Stage {
	switch s {
	case StatusNew:
		return StageNew
	case StatusAssigned, StatusInProgress, StatusWaitingForParts, StatusOnHold:
		return StageInProgress
	case StatusCompleted:
		return StageRepaired
	case StatusCancelled, StatusRejected:
		return StageScrap
	default:
		return StageInProgress
	}
}

// StatusesForStage returns, in declaration order, every status that projects
// onto the given stage.
func StatusesForStage(s Stage) []Status {
	var statuses []Status
	for _, status := range AllStatuses {
		if StageForStatus(status) == s {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// StageTargetStatus is the fixed stage-to-status table used when a card is
// dragged into a column. The reverse of StageForStatus is lossy: several
// statuses collapse into in-progress, and a move into that column lands on the
// generic in_progress value.
func StageTargetStatus(s Stage) (Status, bool) {
	switch s {
	case StageNew:
		return StatusNew, true
	case StageInProgress:
		return StatusInProgress, true
	case StageRepaired:
		return StatusCompleted, true
	case StageScrap:
		return StatusCancelled, true
	default:
		return "", false
	}
}

// TerminalStage reports whether s is a closed board column. Requests in these
// columns are never considered overdue.
func TerminalStage(s Stage) bool {
	return s == StageRepaired || s == StageScrap
}
