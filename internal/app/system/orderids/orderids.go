// Package orderids hands out the three identifiers every work order gets at
// creation: an opaque internal UUID, a zero-padded global sequence number,
// and a human-readable WO-YYYY-MM-NNNN number that restarts each month.
package orderids

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Counter keys.
const (
	GlobalKey = "orderId"
)

// MonthKey is the counter key for work-order numbers created in t's UTC month.
func MonthKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("workorder_%04d_%02d", t.Year(), int(t.Month()))
}

// Sequencer is an atomic named counter (see counterstore.Store).
type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

// IDs is the identifier set assigned to a new order.
type IDs struct {
	InternalID  string
	UniqueID    string
	WorkOrderID string
}

// Assigner draws identifiers from a Sequencer.
type Assigner struct {
	seq     Sequencer
	newUUID func() string
}

// NewAssigner returns an Assigner backed by seq.
func NewAssigner(seq Sequencer) *Assigner {
	return &Assigner{seq: seq, newUUID: func() string { return uuid.NewString() }}
}

// Assign draws the next global and monthly sequence values. Any counter error
// is returned as-is and no partial IDs are produced.
func (a *Assigner) Assign(ctx context.Context, createdAt time.Time) (IDs, error) {
	global, err := a.seq.Next(ctx, GlobalKey)
	if err != nil {
		return IDs{}, fmt.Errorf("next %s: %w", GlobalKey, err)
	}

	key := MonthKey(createdAt)
	monthly, err := a.seq.Next(ctx, key)
	if err != nil {
		return IDs{}, fmt.Errorf("next %s: %w", key, err)
	}

	return IDs{
		InternalID:  a.newUUID(),
		UniqueID:    FormatUniqueID(global),
		WorkOrderID: FormatWorkOrderID(createdAt, monthly),
	}, nil
}

// FormatUniqueID zero-pads seq to four digits. Larger values keep all digits.
func FormatUniqueID(seq int64) string {
	return fmt.Sprintf("%04d", seq)
}

// FormatWorkOrderID renders WO-YYYY-MM-NNNN for t's UTC month.
func FormatWorkOrderID(t time.Time, seq int64) string {
	t = t.UTC()
	return fmt.Sprintf("WO-%04d-%02d-%04d", t.Year(), int(t.Month()), seq)
}
