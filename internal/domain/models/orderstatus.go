package models

import "strings"

// OrderStatus is the lifecycle state of a work order.
type OrderStatus string

const (
	StatusDraft      OrderStatus = "draft"
	StatusPending    OrderStatus = "pending"
	StatusApproved   OrderStatus = "approved"
	StatusInProgress OrderStatus = "in-progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusOnHold     OrderStatus = "on-hold"
)

// AllOrderStatuses lists every status in display order.
var AllOrderStatuses = []OrderStatus{
	StatusDraft,
	StatusPending,
	StatusApproved,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
	StatusOnHold,
}

// ParseOrderStatus normalizes s and reports whether it names a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllOrderStatuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Priority ranks how urgently a work order should be handled.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// AllPriorities lists priorities from least to most urgent.
var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// ParsePriority normalizes s and reports whether it names a known priority.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllPriorities {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Workflow actions recorded in an order's history.
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionStatusChanged = "status_changed"
	ActionImagesAdded   = "images_added"
)
