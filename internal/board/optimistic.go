package board

import (
	"errors"
	"fmt"

	"github.com/ukydev/equipment-maintenance/internal/models"
)

// ErrCardNotFound is returned when the moved card is not in the source column.
var ErrCardNotFound = errors.New("card not found in source column")

// PendingMove is a card move applied locally before the store has confirmed
// the underlying transition. Board holds the optimistic arrangement; Confirm
// settles it with the stored request, Rollback restores the previous one.
type PendingMove struct {
	Board    Board
	previous Board
	settled  bool
}

func cloneBoard(board Board) Board {
	out := make(Board, len(board))
	for stage, column := range board {
		out[stage] = append([]models.MaintenanceRequest{}, column...)
	}
	return out
}

// ApplyMove moves the card with requestID between columns in a copy of the
// board, leaving the input untouched. The card lands at the end of the
// destination column with the projected status, matching where a re-classify
// places it once the transition persists. A same-column move changes nothing.
func ApplyMove(board Board, requestID string, from, to models.Stage) (*PendingMove, error) {
	if !models.IsValidStage(from) {
		return nil, fmt.Errorf("stage %q: %w", from, ErrInvalidStage)
	}
	if !models.IsValidStage(to) {
		return nil, fmt.Errorf("stage %q: %w", to, ErrInvalidStage)
	}

	previous := cloneBoard(board)
	next := cloneBoard(board)
	if from == to {
		return &PendingMove{Board: next, previous: previous}, nil
	}

	source := next[from]
	index := -1
	for i := range source {
		if source[i].ID.Hex() == requestID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("request %s in stage %s: %w", requestID, from, ErrCardNotFound)
	}

	card := source[index]
	next[from] = append(source[:index:index], source[index+1:]...)
	card.Status, _ = models.StageTargetStatus(to)
	next[to] = append(next[to], card)

	return &PendingMove{Board: next, previous: previous}, nil
}

// Confirm settles the move with the request the engine returned, replacing
// the locally guessed card so version and timestamps match the store. The
// first settlement wins; later calls return the settled board unchanged.
func (p *PendingMove) Confirm(confirmed models.MaintenanceRequest) Board {
	if p.settled {
		return p.Board
	}
	p.settled = true
	column := p.Board[confirmed.Stage()]
	for i := range column {
		if column[i].ID == confirmed.ID {
			column[i] = confirmed
			break
		}
	}
	return p.Board
}

// Rollback discards the local move and restores the board as it was, as
// required when the store rejects the transition.
func (p *PendingMove) Rollback() Board {
	if p.settled {
		return p.Board
	}
	p.settled = true
	p.Board = p.previous
	return p.Board
}
