package service

import (
	"fmt"

	"github.com/smart-canteen/api/internal/enum"
)

// nextStatuses is the admin-advance adjacency. The switch is exhaustive over
// enum.OrderStatuses; a status added there must be handled here or
// checkTransitions rejects the table at startup.
//
// PLACED -> CANCELLED is not listed: only the owner may cancel, via CancelOrder.
func nextStatuses(s enum.OrderStatus) ([]enum.OrderStatus, bool) {
	switch s {
	case enum.OrderStatusPlaced:
		return []enum.OrderStatus{enum.OrderStatusAccepted, enum.OrderStatusRejected}, true
	case enum.OrderStatusAccepted:
		return []enum.OrderStatus{enum.OrderStatusPreparing}, true
	case enum.OrderStatusPreparing:
		return []enum.OrderStatus{enum.OrderStatusReady}, true
	case enum.OrderStatusReady:
		return []enum.OrderStatus{enum.OrderStatusCollected}, true
	case enum.OrderStatusRejected, enum.OrderStatusCollected, enum.OrderStatusCancelled:
		return nil, true
	}
	return nil, false
}

// allowedTransitions maps a current status to the statuses an admin may move it to.
// Terminal statuses have no entry.
var allowedTransitions = mustBuildTransitions()

func mustBuildTransitions() map[enum.OrderStatus][]enum.OrderStatus {
	table, err := buildTransitions(enum.OrderStatuses)
	if err != nil {
		panic(err)
	}
	return table
}

func buildTransitions(statuses []enum.OrderStatus) (map[enum.OrderStatus][]enum.OrderStatus, error) {
	table := make(map[enum.OrderStatus][]enum.OrderStatus, len(statuses))
	for _, s := range statuses {
		next, ok := nextStatuses(s)
		if !ok {
			return nil, fmt.Errorf("order status %s has no transition entry", s)
		}
		if len(next) > 0 {
			table[s] = next
		}
	}
	if err := checkTransitions(table, statuses); err != nil {
		return nil, err
	}
	return table, nil
}

func checkTransitions(table map[enum.OrderStatus][]enum.OrderStatus, statuses []enum.OrderStatus) error {
	for from, targets := range table {
		if !from.Valid() {
			return fmt.Errorf("unknown source status %s", from)
		}
		if from.Terminal() {
			return fmt.Errorf("terminal status %s has outgoing transitions", from)
		}
		for _, to := range targets {
			if !to.Valid() {
				return fmt.Errorf("unknown target status %s from %s", to, from)
			}
			if to == enum.OrderStatusPlaced {
				return fmt.Errorf("%s cannot transition back to %s", from, to)
			}
		}
	}
	for _, s := range statuses {
		if !s.Terminal() && len(table[s]) == 0 {
			return fmt.Errorf("non-terminal status %s has no way forward", s)
		}
	}
	return nil
}

// validateStatusTransition checks if an admin may move an order from current to next.
func validateStatusTransition(current, next enum.OrderStatus) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, current, next)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, current, next)
}
