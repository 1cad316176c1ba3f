package rental

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated         = "OrderCreated"
	EventPaymentStatusChanged = "PaymentStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedItem struct {
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
	RentalDays int   `json:"rental_days"`
	Subtotal   int64 `json:"subtotal"`
}

type OrderCreatedPayload struct {
	OrderID         string             `json:"order_id"`
	PaymentRecordID string             `json:"payment_record_id"`
	UserID          string             `json:"user_id"`
	Items           []OrderCreatedItem `json:"items"`
	Total           int64              `json:"total"`
	DueDate         time.Time          `json:"due_date"`
}

type PaymentStatusChangedPayload struct {
	PaymentRecordID string `json:"payment_record_id"`
	OrderID         string `json:"order_id"`
	From            Status `json:"from"`
	To              Status `json:"to"`
}
