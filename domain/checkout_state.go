package domain

// CheckoutState tracks a checkout attempt through its state machine. Failure
// exits are not states of their own; whichever state the attempt dies in is
// recorded alongside the error kind.
type CheckoutState string

const (
	CheckoutStateInit              CheckoutState = "INIT"
	CheckoutStateLockAcquired      CheckoutState = "LOCK_ACQUIRED"
	CheckoutStateInventoryReserved CheckoutState = "INVENTORY_RESERVED"
	CheckoutStatePriced            CheckoutState = "PRICED"
	CheckoutStateOrderPersisted    CheckoutState = "ORDER_PERSISTED"
	CheckoutStateLockReleased      CheckoutState = "LOCK_RELEASED"
)

var checkoutTransitions = map[CheckoutState]CheckoutState{
	CheckoutStateInit:              CheckoutStateLockAcquired,
	CheckoutStateLockAcquired:      CheckoutStateInventoryReserved,
	CheckoutStateInventoryReserved: CheckoutStatePriced,
	CheckoutStatePriced:            CheckoutStateOrderPersisted,
	CheckoutStateOrderPersisted:    CheckoutStateLockReleased,
}

// CanTransitionTo reports whether next is the legal successor of s.
func CanTransitionTo(s, next CheckoutState) bool {
	return checkoutTransitions[s] == next
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}
