package rental

import (
	"context"

	"github.com/ariefcatur/go-rental-orders.git/internal/clock"
	"github.com/google/uuid"
)

// Store is the persistence boundary the service commits through. The catalog
// read feeds the advisory pre-check; CreateOrder and SetStatus are the two
// atomic units.
type Store interface {
	CatalogReader
	CreateOrder(ctx context.Context, order Order, items []DraftItem, rec PaymentRecord) (Order, PaymentRecord, error)
	SetStatus(ctx context.Context, paymentRecordID string, next Status) (PaymentRecord, Status, error)
}

type Service struct {
	Store Store
	Clock clock.Clock
}

// PlaceOrder validates the cart, then persists order + items + stock
// decrement + payment record as one unit. The pair is born together or not
// at all.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (Order, PaymentRecord, error) {
	now := s.Clock.Now()

	draft, err := BuildDraft(ctx, s.Store, now, in)
	if err != nil {
		return Order{}, PaymentRecord{}, err
	}

	order := Order{
		ID:             uuid.NewString(),
		UserID:         draft.UserID,
		PersonalInfo:   draft.PersonalInfo,
		PaymentMethod:  draft.PaymentMethod,
		ShippingMethod: draft.ShippingMethod,
		Total:          draft.Total,
		Status:         StatusPending,
		CreatedAt:      now,
		DueDate:        draft.DueDate,
	}
	rec := PaymentRecord{
		ID:            "TXN-" + uuid.NewString(),
		OrderID:       order.ID,
		CustomerName:  draft.PersonalInfo.FullName,
		CustomerEmail: draft.PersonalInfo.Email,
		Total:         draft.Total,
		Status:        StatusPending,
		CreatedAt:     now,
		DueDate:       draft.DueDate,
	}

	return s.Store.CreateOrder(ctx, order, draft.Items, rec)
}

// SetStatus advances a payment record and its order in lockstep. Returns the
// updated record and the status it moved from.
func (s *Service) SetStatus(ctx context.Context, paymentRecordID string, next Status) (PaymentRecord, Status, error) {
	if !ValidStatus(next) {
		return PaymentRecord{}, "", validationf("valid status is required (pending, active, completed, cancelled)")
	}
	return s.Store.SetStatus(ctx, paymentRecordID, next)
}
