// Package orderflow is the status transition guard for work orders.
//
// Lifecycle:
//
//	draft ──► pending ──► approved ──► in-progress ──► completed
//	  ▲          │            │             │
//	  └──────────┘            │             │
//	  any non-terminal ──► on-hold ──► back into the flow
//	  any non-terminal ──► cancelled
//
// completed and cancelled are terminal. Moving to the current status is not
// a transition and is rejected.
package orderflow

import (
	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/domain/models"
)

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.StatusDraft: {
		models.StatusPending,
		models.StatusOnHold,
		models.StatusCancelled,
	},
	models.StatusPending: {
		models.StatusApproved,
		models.StatusDraft,
		models.StatusOnHold,
		models.StatusCancelled,
	},
	models.StatusApproved: {
		models.StatusInProgress,
		models.StatusOnHold,
		models.StatusCancelled,
	},
	models.StatusInProgress: {
		models.StatusCompleted,
		models.StatusOnHold,
		models.StatusCancelled,
	},
	models.StatusOnHold: {
		models.StatusDraft,
		models.StatusPending,
		models.StatusApproved,
		models.StatusInProgress,
		models.StatusCancelled,
	},
	models.StatusCompleted: nil,
	models.StatusCancelled: nil,
}

// CanTransition reports whether an order in status from may move to status to.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Check returns *apperr.InvalidTransitionError when the move is not allowed.
func Check(from, to models.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &apperr.InvalidTransitionError{Current: string(from), Requested: string(to)}
}

// Next lists the statuses reachable from from.
func Next(from models.OrderStatus) []models.OrderStatus {
	out := make([]models.OrderStatus, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.OrderStatus) bool {
	_, known := transitions[s]
	return known && len(transitions[s]) == 0
}
