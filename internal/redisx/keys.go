package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{idempotency_key} -> saga_id
	KeyIdemCheckout = "idem:checkout:%s"

	// Order status cache: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{component}:{saga_id}:{event_type}
	KeyDedup = "dedup:%s"

	// Compensation record per saga: hash saga:{saga_id}
	KeySaga = "saga:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLSaga        = 48 * time.Hour
)
