package rental

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-rental-orders.git/internal/clock"
)

// fakeStore mimics the repo's atomic unit in memory: the guard re-checks
// every item before any mutation is applied, so a failing item leaves
// nothing behind.
type fakeStore struct {
	products map[int64]*Product
	orders   map[string]Order
	recs     map[string]PaymentRecord
}

func newFakeStore(products ...Product) *fakeStore {
	f := &fakeStore{
		products: make(map[int64]*Product),
		orders:   make(map[string]Order),
		recs:     make(map[string]PaymentRecord),
	}
	for i := range products {
		p := products[i]
		f.products[p.ID] = &p
	}
	return f
}

func (f *fakeStore) GetProduct(_ context.Context, id int64) (Product, error) {
	p, ok := f.products[id]
	if !ok {
		return Product{}, &NotFoundError{Entity: "product", ID: itoa(id)}
	}
	return *p, nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order Order, items []DraftItem, rec PaymentRecord) (Order, PaymentRecord, error) {
	// write-time guard over all items first; apply nothing on failure
	for _, it := range items {
		p, ok := f.products[it.ProductID]
		if !ok {
			return Order{}, PaymentRecord{}, &NotFoundError{Entity: "product", ID: itoa(it.ProductID)}
		}
		if !p.Available || p.Stock < it.Quantity {
			return Order{}, PaymentRecord{}, &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   it.Quantity,
				Available:   p.Stock,
			}
		}
	}
	order.Items = make([]OrderItem, 0, len(items))
	for _, it := range items {
		p := f.products[it.ProductID]
		p.Stock -= it.Quantity
		if p.Stock <= 0 {
			p.Available = false
		}
		order.Items = append(order.Items, OrderItem{
			OrderID:    order.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			RentalDays: it.RentalDays,
			Price:      it.Price,
			Subtotal:   it.Subtotal,
		})
	}
	f.orders[order.ID] = order
	f.recs[rec.ID] = rec
	return order, rec, nil
}

func (f *fakeStore) SetStatus(_ context.Context, paymentRecordID string, next Status) (PaymentRecord, Status, error) {
	rec, ok := f.recs[paymentRecordID]
	if !ok {
		return PaymentRecord{}, "", &NotFoundError{Entity: "transaction", ID: paymentRecordID}
	}
	prev := rec.Status
	if prev == next {
		return rec, prev, nil
	}
	if !CanTransition(prev, next) {
		return PaymentRecord{}, "", validationf("cannot transition from %s to %s", prev, next)
	}
	rec.Status = next
	f.recs[paymentRecordID] = rec
	order := f.orders[rec.OrderID]
	order.Status = next
	f.orders[rec.OrderID] = order
	return rec, prev, nil
}

// staleStore reports inflated stock to the validator so the write-time guard
// inside CreateOrder is what decides.
type staleStore struct {
	*fakeStore
	reportedStock int
}

func (s *staleStore) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := s.fakeStore.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Stock = s.reportedStock
	p.Available = true
	return p, nil
}

func feixiao() Product {
	return Product{ID: 1, Name: "Feixiao Cosplay Set", Price: 150000, Stock: 5, Available: true}
}

func TestServicePlaceOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("order, items and payment record are born together", func(t *testing.T) {
		store := newFakeStore(feixiao())
		svc := &Service{Store: store, Clock: clock.NewFixed(now)}

		order, rec, err := svc.PlaceOrder(context.Background(), validInput())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if order.ID == "" || rec.ID == "" {
			t.Fatalf("expected generated ids, got %q / %q", order.ID, rec.ID)
		}
		if rec.OrderID != order.ID {
			t.Fatalf("payment record not linked: %q vs %q", rec.OrderID, order.ID)
		}
		if order.Status != StatusPending || rec.Status != StatusPending {
			t.Fatalf("expected pending pair, got %s / %s", order.Status, rec.Status)
		}
		if rec.Total != order.Total || !rec.DueDate.Equal(order.DueDate) {
			t.Fatalf("payment record total/due date diverges from order")
		}
		if rec.CustomerName != "Budi Santoso" || rec.CustomerEmail != "budi@example.com" {
			t.Fatalf("unexpected customer snapshot: %+v", rec)
		}
		var sum int64
		for _, it := range order.Items {
			sum += it.Subtotal
		}
		if sum != order.Total {
			t.Fatalf("order total %d != sum of subtotals %d", order.Total, sum)
		}
		if store.products[1].Stock != 3 {
			t.Fatalf("expected stock 3 after decrement, got %d", store.products[1].Stock)
		}
	})

	t.Run("rental scenario drains stock and flips availability", func(t *testing.T) {
		store := newFakeStore(feixiao())
		svc := &Service{Store: store, Clock: clock.NewFixed(now)}

		in := validInput()
		in.Items = []OrderRequestItem{{ProductID: 1, Quantity: 2, RentalDays: 3}}
		order, _, err := svc.PlaceOrder(context.Background(), in)
		if err != nil {
			t.Fatalf("first order: %v", err)
		}
		if order.Total != 900000 {
			t.Fatalf("expected total 900000, got %d", order.Total)
		}
		if want := now.Add(3 * 24 * time.Hour); !order.DueDate.Equal(want) {
			t.Fatalf("expected due date %v, got %v", want, order.DueDate)
		}
		if store.products[1].Stock != 3 {
			t.Fatalf("expected stock 3, got %d", store.products[1].Stock)
		}

		in.Items = []OrderRequestItem{{ProductID: 1, Quantity: 3, RentalDays: 2}}
		if _, _, err := svc.PlaceOrder(context.Background(), in); err != nil {
			t.Fatalf("second order: %v", err)
		}
		if store.products[1].Stock != 0 {
			t.Fatalf("expected stock 0, got %d", store.products[1].Stock)
		}
		if store.products[1].Available {
			t.Fatalf("expected available=false once stock hit 0")
		}

		in.Items = []OrderRequestItem{{ProductID: 1, Quantity: 1, RentalDays: 1}}
		_, _, err = svc.PlaceOrder(context.Background(), in)
		if !IsInsufficientStock(err) {
			t.Fatalf("expected InsufficientStockError, got %v", err)
		}
		if store.products[1].Stock != 0 {
			t.Fatalf("stock must stay 0, got %d", store.products[1].Stock)
		}
		if len(store.orders) != 2 {
			t.Fatalf("expected no third order, got %d orders", len(store.orders))
		}
	})

	t.Run("write-time guard failure leaves no partial state", func(t *testing.T) {
		inner := newFakeStore(
			feixiao(),
			Product{ID: 2, Name: "Kafka Cosplay Outfit", Price: 200000, Stock: 1, Available: true},
		)
		// validator melihat stok 5 untuk semua produk; commit melihat stok asli
		store := &staleStore{fakeStore: inner, reportedStock: 5}
		svc := &Service{Store: store, Clock: clock.NewFixed(now)}

		in := validInput()
		in.Items = []OrderRequestItem{
			{ProductID: 1, Quantity: 1, RentalDays: 1},
			{ProductID: 2, Quantity: 3, RentalDays: 1},
		}
		_, _, err := svc.PlaceOrder(context.Background(), in)
		if !IsInsufficientStock(err) {
			t.Fatalf("expected InsufficientStockError at commit, got %v", err)
		}
		if inner.products[1].Stock != 5 {
			t.Fatalf("item 1 decrement must roll back, stock %d", inner.products[1].Stock)
		}
		if len(inner.orders) != 0 || len(inner.recs) != 0 {
			t.Fatalf("expected no order or payment record rows")
		}
	})
}

func TestServiceSetStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	place := func(t *testing.T) (*fakeStore, *Service, PaymentRecord) {
		t.Helper()
		store := newFakeStore(feixiao())
		svc := &Service{Store: store, Clock: clock.NewFixed(now)}
		_, rec, err := svc.PlaceOrder(context.Background(), validInput())
		if err != nil {
			t.Fatalf("place order: %v", err)
		}
		return store, svc, rec
	}

	assertLockstep := func(t *testing.T, store *fakeStore, recID string) {
		t.Helper()
		rec := store.recs[recID]
		order := store.orders[rec.OrderID]
		if rec.Status != order.Status {
			t.Fatalf("pair out of sync: record=%s order=%s", rec.Status, order.Status)
		}
	}

	t.Run("moves record and order in lockstep", func(t *testing.T) {
		store, svc, rec := place(t)

		got, prev, err := svc.SetStatus(context.Background(), rec.ID, StatusActive)
		if err != nil {
			t.Fatalf("set active: %v", err)
		}
		if prev != StatusPending || got.Status != StatusActive {
			t.Fatalf("expected pending->active, got %s->%s", prev, got.Status)
		}
		assertLockstep(t, store, rec.ID)

		if _, _, err := svc.SetStatus(context.Background(), rec.ID, StatusCompleted); err != nil {
			t.Fatalf("set completed: %v", err)
		}
		assertLockstep(t, store, rec.ID)
	})

	t.Run("setStatus is idempotent on same status", func(t *testing.T) {
		store, svc, rec := place(t)
		if _, _, err := svc.SetStatus(context.Background(), rec.ID, StatusActive); err != nil {
			t.Fatalf("set active: %v", err)
		}
		if _, _, err := svc.SetStatus(context.Background(), rec.ID, StatusCompleted); err != nil {
			t.Fatalf("set completed: %v", err)
		}
		got, prev, err := svc.SetStatus(context.Background(), rec.ID, StatusCompleted)
		if err != nil {
			t.Fatalf("repeat completed: %v", err)
		}
		if prev != StatusCompleted || got.Status != StatusCompleted {
			t.Fatalf("expected no-op, got %s->%s", prev, got.Status)
		}
		assertLockstep(t, store, rec.ID)
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		store, svc, rec := place(t)
		if _, _, err := svc.SetStatus(context.Background(), rec.ID, StatusCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if _, _, err := svc.SetStatus(context.Background(), rec.ID, StatusActive); !IsValidation(err) {
			t.Fatalf("expected ValidationError from cancelled, got %v", err)
		}
		assertLockstep(t, store, rec.ID)
	})

	t.Run("cancel does not restore stock", func(t *testing.T) {
		store, svc, rec := place(t)
		if _, _, err := svc.SetStatus(context.Background(), rec.ID, StatusCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if store.products[1].Stock != 3 {
			t.Fatalf("stock must stay decremented after cancel, got %d", store.products[1].Stock)
		}
	})

	t.Run("unknown status value fails validation", func(t *testing.T) {
		_, svc, rec := place(t)
		if _, _, err := svc.SetStatus(context.Background(), rec.ID, "shipped"); !IsValidation(err) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("missing record is not found", func(t *testing.T) {
		_, svc, _ := place(t)
		if _, _, err := svc.SetStatus(context.Background(), "TXN-missing", StatusActive); !IsNotFound(err) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}
