package domain

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state shared by orders and shipments.
type Status string

// Lifecycle states.
const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// ValidStatuses returns every status in lifecycle order.
func ValidStatuses() []Status {
	return []Status{StatusPending, StatusShipped, StatusDelivered, StatusCancelled}
}

// ParseStatus normalizes raw case-insensitively, ignoring surrounding
// whitespace.
func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	for _, s := range ValidStatuses() {
		if strings.EqualFold(trimmed, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid status %q: must be one of Pending, Shipped, Delivered, Cancelled", raw)
}

// orderTransitions is the order lifecycle graph. Shipments are not bound by it.
var orderTransitions = map[Status][]Status{
	StatusPending: {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

// CanTransitionTo reports whether an order may move from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
