package orders

type Status string

const (
	StatusPendingPayment     Status = "PENDING_PAYMENT"
	StatusPendingFulfillment Status = "PENDING_FULFILLMENT"
	StatusFailed             Status = "FAILED"
)

var validNext = map[Status]map[Status]bool{
	StatusPendingPayment:     {StatusPendingFulfillment: true, StatusFailed: true},
	StatusPendingFulfillment: {},
	StatusFailed:             {},
}

// CanTransition reports whether from -> to moves the order forward.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
