package redisx

import "time"

const (
	// Cache status pembayaran: payment_status:{payment_record_id} -> {"status": "..."}
	KeyPaymentStatus = "payment_status:%s"

	// Cache produk: product:{id} -> JSON produk
	KeyProduct = "product:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache  = 5 * time.Minute
	TTLProductCache = 1 * time.Minute
	TTLDedup        = 48 * time.Hour
)
