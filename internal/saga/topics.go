package saga

const (
	TopicCheckoutEvents = "checkout.checkout-events"
	TopicRefundCommands = "refund.command.initiate"
	TopicDeadLetter     = "checkout.dead-letter"
)

// PartitionKey = saga id, so every event of one checkout keeps its order.
func PartitionKey(sagaID string) []byte { return []byte(sagaID) }
