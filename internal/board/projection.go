package board

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ukydev/equipment-maintenance/internal/models"
)

var (
	// ErrInvalidStage is returned when a move names an unknown board stage.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrInvalidSortKey is returned when a caller asks for an unknown column order.
	ErrInvalidSortKey = errors.New("invalid sort key")
)

// Board groups requests by stage. Within a column, requests keep the order
// they were supplied in.
type Board map[models.Stage][]models.MaintenanceRequest

// Classify groups requests into the four board columns. Every request lands
// in exactly one column, and re-classifying the same input yields the same
// arrangement.
func Classify(requests []models.MaintenanceRequest) Board {
	board := Board{
		models.StageNew:        {},
		models.StageInProgress: {},
		models.StageRepaired:   {},
		models.StageScrap:      {},
	}
	for _, request := range requests {
		stage := request.Stage()
		board[stage] = append(board[stage], request)
	}
	return board
}

// SortKey orders cards within a column.
type SortKey string

const (
	SortNone        SortKey = ""
	SortPriority    SortKey = "priority"
	SortScheduledAt SortKey = "scheduled_at"
	SortCreatedAt   SortKey = "created_at"
)

// priorityRank orders priorities from most to least urgent.
var priorityRank = map[models.Priority]int{
	models.PriorityEmergency: 0,
	models.PriorityCritical:  1,
	models.PriorityHigh:      2,
	models.PriorityMedium:    3,
	models.PriorityLow:       4,
}

// ClassifySorted groups like Classify, then orders each column by the given
// key. The sort is stable, so cards with equal keys keep their input order.
func ClassifySorted(requests []models.MaintenanceRequest, key SortKey) (Board, error) {
	board := Classify(requests)
	switch key {
	case SortNone:
	case SortPriority:
		for stage := range board {
			column := board[stage]
			sort.SliceStable(column, func(i, j int) bool {
				return priorityRank[column[i].Priority] < priorityRank[column[j].Priority]
			})
		}
	case SortScheduledAt:
		for stage := range board {
			column := board[stage]
			sort.SliceStable(column, func(i, j int) bool {
				return column[i].ScheduledAt.Before(column[j].ScheduledAt)
			})
		}
	case SortCreatedAt:
		for stage := range board {
			column := board[stage]
			sort.SliceStable(column, func(i, j int) bool {
				return column[i].CreatedAt.Before(column[j].CreatedAt)
			})
		}
	default:
		return nil, fmt.Errorf("sort key %q: %w", key, ErrInvalidSortKey)
	}
	return board, nil
}

// Move is the lifecycle transition a card move resolves to.
type Move struct {
	RequestID    string
	TargetStatus models.Status
}

// MoveCard translates a column-level drag into a concrete target status using
// the fixed stage projection: new maps to New, in-progress to In Progress,
// repaired to Completed, scrap to Cancelled. The mapping is lossy on purpose;
// several statuses collapse into the in-progress column. Moving a card within
// its own column returns a nil Move and must not reach the lifecycle engine,
// so a specific status like Waiting for Parts is never silently downgraded.
func MoveCard(requestID string, from, to models.Stage) (*Move, error) {
	if !models.IsValidStage(from) {
		return nil, fmt.Errorf("stage %q: %w", from, ErrInvalidStage)
	}
	if !models.IsValidStage(to) {
		return nil, fmt.Errorf("stage %q: %w", to, ErrInvalidStage)
	}
	if from == to {
		return nil, nil
	}
	target, _ := models.StageTargetStatus(to)
	return &Move{RequestID: requestID, TargetStatus: target}, nil
}

// DefaultDurationMinutes is assumed when a request carries no estimate.
const DefaultDurationMinutes = 60

// Calendar colors. Priority picks the color; a terminal stage overrides it.
const (
	ColorRed    = "red"
	ColorOrange = "orange"
	ColorBlue   = "blue"
	ColorGreen  = "green"
	ColorGray   = "gray"
)

// CalendarEvent is the calendar rendition of a scheduled request.
type CalendarEvent struct {
	RequestID string        `json:"request_id"`
	Title     string        `json:"title"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Color     string        `json:"color"`
	Status    models.Status `json:"status"`
}

// EventFor builds the calendar event for a request. End is start plus the
// estimated duration, defaulting to 60 minutes. Color follows priority and
// turns gray once the request reaches a terminal stage.
func EventFor(request models.MaintenanceRequest) CalendarEvent {
	minutes := request.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultDurationMinutes
	}
	return CalendarEvent{
		RequestID: request.ID.Hex(),
		Title:     request.Title,
		Start:     request.ScheduledAt,
		End:       request.ScheduledAt.Add(time.Duration(minutes) * time.Minute),
		Color:     colorFor(request),
		Status:    request.Status,
	}
}

func colorFor(request models.MaintenanceRequest) string {
	if models.TerminalStage(request.Stage()) {
		return ColorGray
	}
	switch request.Priority {
	case models.PriorityCritical, models.PriorityEmergency:
		return ColorRed
	case models.PriorityHigh:
		return ColorOrange
	case models.PriorityLow:
		return ColorGreen
	default:
		return ColorBlue
	}
}

// Events builds calendar events for every request, in input order.
func Events(requests []models.MaintenanceRequest) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(requests))
	for _, request := range requests {
		events = append(events, EventFor(request))
	}
	return events
}
