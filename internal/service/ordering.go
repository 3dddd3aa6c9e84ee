package service

import (
	"errors"

	"github.com/eventify/internal/db"
)

// ErrReorderTargetInvalid is returned when the dragged item or the drop
// target cannot be found in the current order.
var ErrReorderTargetInvalid = errors.New("reorder target is invalid")

// moveItem returns a copy of items with the element at from removed and
// reinserted at to. Every other element keeps its relative order.
func moveItem[T any](items []T, from, to int) []T {
	rest := make([]T, 0, len(items))
	rest = append(rest, items[:from]...)
	rest = append(rest, items[from+1:]...)

	out := make([]T, 0, len(items))
	out = append(out, rest[:to]...)
	out = append(out, items[from])
	out = append(out, rest[to:]...)
	return out
}

// PlanReorder computes the order produced by dropping activeID onto the
// slot held by overID. Positions are rewritten densely as 0..n-1. The
// boolean result is false when nothing moves, in which case no write is
// needed.
func PlanReorder(items []db.MediaItem, activeID, overID string) ([]db.MediaItem, bool, error) {
	from, to := -1, -1
	for i, item := range items {
		if item.ID == activeID {
			from = i
		}
		if item.ID == overID {
			to = i
		}
	}
	if from < 0 || to < 0 {
		return nil, false, ErrReorderTargetInvalid
	}
	if from == to {
		return items, false, nil
	}

	planned := moveItem(items, from, to)
	for i := range planned {
		planned[i].Position = i
	}
	return planned, true, nil
}
