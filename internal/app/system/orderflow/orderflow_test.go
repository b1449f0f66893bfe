package orderflow

import (
	"errors"
	"testing"

	"github.com/dalemusser/confinedspace/internal/app/system/apperr"
	"github.com/dalemusser/confinedspace/internal/domain/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusDraft, models.StatusPending, true},
		{models.StatusPending, models.StatusApproved, true},
		{models.StatusPending, models.StatusDraft, true},
		{models.StatusApproved, models.StatusInProgress, true},
		{models.StatusInProgress, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusOnHold, true},
		{models.StatusOnHold, models.StatusInProgress, true},
		{models.StatusDraft, models.StatusCancelled, true},

		{models.StatusDraft, models.StatusCompleted, false},
		{models.StatusPending, models.StatusInProgress, false},
		{models.StatusApproved, models.StatusDraft, false},
		{models.StatusOnHold, models.StatusCompleted, false},
		{models.StatusCompleted, models.StatusDraft, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusPending, false},
		{"bogus", models.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanTransition_SameStatusRejected(t *testing.T) {
	for _, s := range models.AllOrderStatuses {
		if CanTransition(s, s) {
			t.Errorf("CanTransition(%q, %q) = true, want false", s, s)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []models.OrderStatus{models.StatusCompleted, models.StatusCancelled} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%q) = false, want true", s)
		}
		for _, to := range models.AllOrderStatuses {
			if CanTransition(s, to) {
				t.Errorf("terminal %q should not reach %q", s, to)
			}
		}
	}
	if IsTerminal(models.StatusOnHold) {
		t.Error("on-hold should not be terminal")
	}
	if IsTerminal("bogus") {
		t.Error("unknown status should not be reported terminal")
	}
}

func TestEveryNonTerminalCanBeCancelled(t *testing.T) {
	for _, s := range models.AllOrderStatuses {
		if IsTerminal(s) {
			continue
		}
		if !CanTransition(s, models.StatusCancelled) {
			t.Errorf("%q should be cancellable", s)
		}
	}
}

func TestCheck(t *testing.T) {
	if err := Check(models.StatusDraft, models.StatusPending); err != nil {
		t.Fatalf("Check(draft, pending) = %v, want nil", err)
	}

	err := Check(models.StatusCompleted, models.StatusDraft)
	var te *apperr.InvalidTransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *InvalidTransitionError, got %T", err)
	}
	if te.Current != "completed" || te.Requested != "draft" {
		t.Errorf("got current=%q requested=%q", te.Current, te.Requested)
	}
}

func TestNext_ReturnsCopy(t *testing.T) {
	got := Next(models.StatusDraft)
	if len(got) != 3 {
		t.Fatalf("Next(draft) has %d entries, want 3", len(got))
	}
	got[0] = models.StatusCompleted
	if CanTransition(models.StatusDraft, models.StatusCompleted) {
		t.Error("mutating Next result changed the transition table")
	}
}
