package models

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCancelled OrderStatus = "cancelled"
)

// allowedTransitions is keyed by current status. Terminal statuses have no entry.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusServed, StatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusServed || s == StatusCancelled
}

// NeedsKitchen reports whether the kitchen still has work on the order.
func (s OrderStatus) NeedsKitchen() bool {
	return s == StatusConfirmed || s == StatusPreparing
}

// CanTransitionTo reports whether next is a listed edge from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns an *InvalidTransitionError explaining why
// current -> next is not allowed, or nil.
func ValidateTransition(current, next OrderStatus) error {
	if current.CanTransitionTo(next) {
		return nil
	}
	return &InvalidTransitionError{
		Current:   current,
		Requested: next,
		Reason:    transitionReason(current, next),
	}
}

func transitionReason(current, next OrderStatus) string {
	switch {
	case !next.Valid():
		return "unknown status"
	case current == next:
		return "order is already " + string(current)
	case current.Terminal():
		return "order is " + string(current) + " and can no longer change"
	case next == StatusCancelled:
		return "order has reached the customer; issue a refund instead"
	default:
		return "transition is not part of the order lifecycle"
	}
}
