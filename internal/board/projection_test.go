package board

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/equipment-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func named(title string, status models.Status) models.MaintenanceRequest {
	return models.MaintenanceRequest{ID: primitive.NewObjectID(), Title: title, Status: status}
}

func TestClassify_EveryStatusLandsInExactlyOneStage(t *testing.T) {
	var requests []models.MaintenanceRequest
	for _, status := range models.AllStatuses {
		requests = append(requests, named(string(status), status))
	}

	board := Classify(requests)

	total := 0
	for _, stage := range models.AllStages {
		total += len(board[stage])
	}
	assert.Equal(t, len(requests), total)

	for _, request := range requests {
		stage := models.StageForStatus(request.Status)
		found := false
		for _, card := range board[stage] {
			if card.ID == request.ID {
				found = true
			}
		}
		assert.True(t, found, "request %s should be in stage %s", request.Title, stage)
	}

	// Stability: identical input, identical arrangement
	assert.Equal(t, board, Classify(requests))
}

func TestClassify_PreservesInputOrderWithinStage(t *testing.T) {
	requests := []models.MaintenanceRequest{
		named("a", models.StatusAssigned),
		named("b", models.StatusNew),
		named("c", models.StatusWaitingForParts),
		named("d", models.StatusOnHold),
		named("e", models.StatusNew),
	}

	board := Classify(requests)

	inProgress := board[models.StageInProgress]
	require.Len(t, inProgress, 3)
	assert.Equal(t, "a", inProgress[0].Title)
	assert.Equal(t, "c", inProgress[1].Title)
	assert.Equal(t, "d", inProgress[2].Title)

	newColumn := board[models.StageNew]
	require.Len(t, newColumn, 2)
	assert.Equal(t, "b", newColumn[0].Title)
	assert.Equal(t, "e", newColumn[1].Title)
}

func TestClassifySorted_ByPriority(t *testing.T) {
	a := named("routine check", models.StatusNew)
	a.Priority = models.PriorityLow
	b := named("burst pipe", models.StatusNew)
	b.Priority = models.PriorityEmergency
	c := named("worn belt", models.StatusNew)
	c.Priority = models.PriorityMedium
	d := named("second routine", models.StatusNew)
	d.Priority = models.PriorityLow

	board, err := ClassifySorted([]models.MaintenanceRequest{a, b, c, d}, SortPriority)
	require.NoError(t, err)

	column := board[models.StageNew]
	require.Len(t, column, 4)
	assert.Equal(t, "burst pipe", column[0].Title)
	assert.Equal(t, "worn belt", column[1].Title)
	// Stable: equal priorities keep their input order
	assert.Equal(t, "routine check", column[2].Title)
	assert.Equal(t, "second routine", column[3].Title)
}

func TestClassifySorted_ByScheduledAt(t *testing.T) {
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	a := named("later", models.StatusAssigned)
	a.ScheduledAt = base.Add(48 * time.Hour)
	b := named("sooner", models.StatusOnHold)
	b.ScheduledAt = base

	board, err := ClassifySorted([]models.MaintenanceRequest{a, b}, SortScheduledAt)
	require.NoError(t, err)

	column := board[models.StageInProgress]
	require.Len(t, column, 2)
	assert.Equal(t, "sooner", column[0].Title)
	assert.Equal(t, "later", column[1].Title)
}

func TestClassifySorted_ByCreatedAt(t *testing.T) {
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	a := named("filed second", models.StatusNew)
	a.CreatedAt = base.Add(time.Hour)
	b := named("filed first", models.StatusNew)
	b.CreatedAt = base

	board, err := ClassifySorted([]models.MaintenanceRequest{a, b}, SortCreatedAt)
	require.NoError(t, err)

	column := board[models.StageNew]
	require.Len(t, column, 2)
	assert.Equal(t, "filed first", column[0].Title)
	assert.Equal(t, "filed second", column[1].Title)
}

func TestClassifySorted_UnknownKey(t *testing.T) {
	_, err := ClassifySorted(nil, "severity")
	assert.ErrorIs(t, err, ErrInvalidSortKey)
}

func TestMoveCard_FixedProjection(t *testing.T) {
	tests := []struct {
		to     models.Stage
		target models.Status
	}{
		{models.StageNew, models.StatusNew},
		{models.StageInProgress, models.StatusInProgress},
		{models.StageRepaired, models.StatusCompleted},
		{models.StageScrap, models.StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			from := models.StageNew
			if tt.to == models.StageNew {
				from = models.StageInProgress
			}

			move, err := MoveCard("req-1", from, tt.to)

			require.NoError(t, err)
			require.NotNil(t, move)
			assert.Equal(t, "req-1", move.RequestID)
			assert.Equal(t, tt.target, move.TargetStatus)
		})
	}
}

func TestMoveCard_SameStageIsNoOp(t *testing.T) {
	for _, stage := range models.AllStages {
		move, err := MoveCard("req-1", stage, stage)
		assert.NoError(t, err)
		assert.Nil(t, move)
	}
}

func TestMoveCard_UnknownStage(t *testing.T) {
	_, err := MoveCard("req-1", "backlog", models.StageNew)
	assert.ErrorIs(t, err, ErrInvalidStage)

	_, err = MoveCard("req-1", models.StageNew, "done")
	assert.ErrorIs(t, err, ErrInvalidStage)
}

func TestRoundTrip_MoveEveryCardThenReclassify(t *testing.T) {
	requests := []models.MaintenanceRequest{
		named("n1", models.StatusNew),
		named("n2", models.StatusNew),
		named("p1", models.StatusWaitingForParts),
		named("r1", models.StatusCompleted),
	}
	board := Classify(requests)
	require.Len(t, board[models.StageNew], 2)

	// Shift every active card one column rightward; r1 stays put.
	moved := make([]models.MaintenanceRequest, 0, len(requests))
	for _, request := range requests {
		from := request.Stage()
		to := from
		switch from {
		case models.StageNew:
			to = models.StageInProgress
		case models.StageInProgress:
			to = models.StageRepaired
		}

		move, err := MoveCard(request.ID.Hex(), from, to)
		require.NoError(t, err)
		if move != nil {
			request.Status = move.TargetStatus
		}
		moved = append(moved, request)
	}

	after := Classify(moved)
	assert.Len(t, after[models.StageNew], 0)

	inProgress := after[models.StageInProgress]
	require.Len(t, inProgress, 2)
	assert.Equal(t, "n1", inProgress[0].Title)
	assert.Equal(t, "n2", inProgress[1].Title)

	repaired := after[models.StageRepaired]
	require.Len(t, repaired, 2)
	assert.Equal(t, "p1", repaired[0].Title)
	assert.Equal(t, "r1", repaired[1].Title)
	// r1 never went through a move, so its status is untouched
	assert.Equal(t, models.StatusCompleted, repaired[1].Status)
}

func TestEventFor(t *testing.T) {
	start := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

	t.Run("default duration is one hour", func(t *testing.T) {
		request := named("PM check", models.StatusAssigned)
		request.ScheduledAt = start
		request.Priority = models.PriorityMedium

		event := EventFor(request)

		assert.Equal(t, start, event.Start)
		assert.Equal(t, start.Add(60*time.Minute), event.End)
		assert.Equal(t, ColorBlue, event.Color)
		assert.Equal(t, request.ID.Hex(), event.RequestID)
	})

	t.Run("explicit duration", func(t *testing.T) {
		request := named("bearing swap", models.StatusInProgress)
		request.ScheduledAt = start
		request.DurationMinutes = 90

		event := EventFor(request)
		assert.Equal(t, start.Add(90*time.Minute), event.End)
	})

	t.Run("priority colors", func(t *testing.T) {
		tests := []struct {
			priority models.Priority
			color    string
		}{
			{models.PriorityEmergency, ColorRed},
			{models.PriorityCritical, ColorRed},
			{models.PriorityHigh, ColorOrange},
			{models.PriorityMedium, ColorBlue},
			{models.PriorityLow, ColorGreen},
		}
		for _, tt := range tests {
			request := named("color probe", models.StatusNew)
			request.Priority = tt.priority
			assert.Equal(t, tt.color, EventFor(request).Color, "priority %s", tt.priority)
		}
	})

	t.Run("terminal stage overrides priority color", func(t *testing.T) {
		request := named("closed out", models.StatusCompleted)
		request.Priority = models.PriorityCritical
		assert.Equal(t, ColorGray, EventFor(request).Color)

		request.Status = models.StatusCancelled
		assert.Equal(t, ColorGray, EventFor(request).Color)
	})
}

func TestEvents_PreservesOrder(t *testing.T) {
	a := named("first", models.StatusNew)
	b := named("second", models.StatusAssigned)

	events := Events([]models.MaintenanceRequest{a, b})

	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Title)
	assert.Equal(t, "second", events[1].Title)
}
