package rental

const (
	TopicOrderCreated         = "rental.order.created"
	TopicPaymentStatusChanged = "rental.payment.status_changed"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
