package rental

import (
	"context"
	"time"
)

// CatalogReader is the product lookup the validator prices a cart against.
type CatalogReader interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
}

// MaxRentalDays batas atas sewa; juga menjaga subtotal (price*qty*days)
// tetap jauh dari overflow int64.
const MaxRentalDays = 365

type PlaceOrderInput struct {
	UserID         string             `json:"-"`
	Items          []OrderRequestItem `json:"items"`
	PersonalInfo   PersonalInfo       `json:"personal_info"`
	PaymentMethod  string             `json:"payment_method"`
	ShippingMethod string             `json:"shipping_method"`
}

// BuildDraft turns a raw cart into a priced, stock-checked draft. It is a
// read-only pre-check: stock can still change before commit, so the write-time
// guard in the repo stays authoritative.
func BuildDraft(ctx context.Context, catalog CatalogReader, now time.Time, in PlaceOrderInput) (OrderDraft, error) {
	if in.UserID == "" {
		return OrderDraft{}, validationf("user id is required")
	}
	if len(in.Items) == 0 {
		return OrderDraft{}, validationf("order items are required")
	}
	if in.PersonalInfo.FullName == "" || in.PersonalInfo.Email == "" {
		return OrderDraft{}, validationf("personal info with full name and email is required")
	}
	if in.PaymentMethod == "" || in.ShippingMethod == "" {
		return OrderDraft{}, validationf("payment method and shipping method are required")
	}

	draft := OrderDraft{
		UserID:         in.UserID,
		PersonalInfo:   in.PersonalInfo,
		PaymentMethod:  in.PaymentMethod,
		ShippingMethod: in.ShippingMethod,
		Items:          make([]DraftItem, 0, len(in.Items)),
	}

	maxDays := 0
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return OrderDraft{}, validationf("invalid quantity for product %d", it.ProductID)
		}
		if it.RentalDays < 1 {
			return OrderDraft{}, validationf("invalid rental days for product %d", it.ProductID)
		}
		if it.RentalDays > MaxRentalDays {
			return OrderDraft{}, validationf("rental days for product %d exceed the %d day limit", it.ProductID, MaxRentalDays)
		}

		p, err := catalog.GetProduct(ctx, it.ProductID)
		if err != nil {
			return OrderDraft{}, err
		}
		if !p.Available || p.Stock < it.Quantity {
			return OrderDraft{}, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   it.Quantity,
				Available:   p.Stock,
			}
		}

		subtotal := p.Price * int64(it.Quantity) * int64(it.RentalDays)
		draft.Items = append(draft.Items, DraftItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			RentalDays:  it.RentalDays,
			Price:       p.Price,
			Subtotal:    subtotal,
		})
		draft.Total += subtotal

		if it.RentalDays > maxDays {
			maxDays = it.RentalDays
		}
	}

	draft.DueDate = now.Add(time.Duration(maxDays) * 24 * time.Hour)
	return draft, nil
}
