package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-rental-orders.git/internal/kafka"
	"github.com/ariefcatur/go-rental-orders.git/internal/redisx"
	"github.com/ariefcatur/go-rental-orders.git/internal/rental"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// OrderService is the engine surface the handlers call into.
type OrderService interface {
	PlaceOrder(ctx context.Context, in rental.PlaceOrderInput) (rental.Order, rental.PaymentRecord, error)
	SetStatus(ctx context.Context, paymentRecordID string, next rental.Status) (rental.PaymentRecord, rental.Status, error)
}

// Store covers the read paths the handlers serve directly.
type Store interface {
	GetProduct(ctx context.Context, id int64) (rental.Product, error)
	ListProducts(ctx context.Context, f rental.ProductFilter) ([]rental.Product, int, error)
	GetOrder(ctx context.Context, id string) (rental.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, status rental.Status, limit, offset int) ([]rental.Order, int, error)
	ListPaymentRecords(ctx context.Context, status rental.Status, limit, offset int) ([]rental.PaymentRecord, int, rental.PaymentSummary, error)
	GetPaymentRecord(ctx context.Context, id string) (rental.PaymentRecord, error)
}

// Publisher matches kafkax.Producer.Publish; swapped for a fake in tests.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type RentalHandler struct {
	Svc            OrderService
	Store          Store
	OrderProducer  Publisher // rental.order.created
	StatusProducer Publisher // rental.payment.status_changed
	Redis          *redis.Client
	Service        string
}

func (h *RentalHandler) Register(r *chi.Mux) {
	r.Post("/api/orders", h.placeOrder)
	r.Get("/api/orders", h.listOrders)
	r.Get("/api/orders/{id}", h.getOrder)
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{id}", h.getProduct)
	r.Get("/api/transactions", h.listTransactions)
	r.Get("/api/transactions/{id}/status", h.getTransactionStatus)
	r.Put("/api/transactions/{id}/status", h.setTransactionStatus)
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalItems   int `json:"total_items"`
	ItemsPerPage int `json:"items_per_page"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), apiResponse{Success: false, Message: err.Error()})
}

func pageParams(r *http.Request) (page, limit, offset int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 10
	}
	return page, limit, (page - 1) * limit
}

func pageInfo(page, limit, total int) pagination {
	return pagination{
		CurrentPage:  page,
		TotalPages:   (total + limit - 1) / limit,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}

func (h *RentalHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var in rental.PlaceOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid json"})
		return
	}
	in.UserID = r.Header.Get("X-User-Id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, rec, err := h.Svc.PlaceOrder(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publishOrderCreated(r, order, rec)
	h.cacheStatus(ctx, rec.ID, rec.Status)

	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: "Order created successfully",
		Data:    map[string]any{"order": order, "transaction": rec},
	})
}

func (h *RentalHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Store.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if uid := r.Header.Get("X-User-Id"); uid != "" && uid != order.UserID {
		writeJSON(w, http.StatusForbidden, apiResponse{Success: false, Message: "access denied"})
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: order})
}

func (h *RentalHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "missing user id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := rental.Status(r.URL.Query().Get("status"))
	page, limit, offset := pageParams(r)
	orders, total, err := h.Store.ListOrdersByUser(ctx, userID, status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]any{
		"orders":     orders,
		"pagination": pageInfo(page, limit, total),
	}})
}

func (h *RentalHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid product id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// read-through cache; DB tetap sumber kebenaran
	key := fmt.Sprintf(redisx.KeyProduct, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: json.RawMessage(s)})
			return
		}
	}

	p, err := h.Store.GetProduct(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Redis != nil {
		b, _ := json.Marshal(p)
		_ = h.Redis.Set(ctx, key, b, redisx.TTLProductCache).Err()
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: p})
}

func (h *RentalHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f := rental.ProductFilter{Category: r.URL.Query().Get("category")}
	if f.Category == "All" {
		f.Category = ""
	}
	if v := r.URL.Query().Get("available"); v != "" {
		b := v == "true"
		f.Available = &b
	}

	page, limit, offset := pageParams(r)
	f.Limit, f.Offset = limit, offset
	products, total, err := h.Store.ListProducts(ctx, f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]any{
		"products":   products,
		"pagination": pageInfo(page, limit, total),
	}})
}

func (h *RentalHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := rental.Status(r.URL.Query().Get("status"))
	page, limit, offset := pageParams(r)
	recs, total, sum, err := h.Store.ListPaymentRecords(ctx, status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]any{
		"transactions": recs,
		"pagination":   pageInfo(page, limit, total),
		"summary":      sum,
	}})
}

func (h *RentalHandler) getTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache dulu (diisi handler + worker), DB kalau miss
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyPaymentStatus, id)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: json.RawMessage(s)})
			return
		}
	}

	rec, err := h.Store.GetPaymentRecord(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, rec.ID, rec.Status)
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]any{"status": rec.Status}})
}

type setStatusReq struct {
	Status rental.Status `json:"status"`
}

func (h *RentalHandler) setTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Success: false, Message: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, prev, err := h.Svc.SetStatus(ctx, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	if prev != rec.Status {
		h.publishStatusChanged(r, rec, prev)
	}
	h.cacheStatus(ctx, rec.ID, rec.Status)

	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "Transaction status updated successfully",
		Data:    rec,
	})
}

func (h *RentalHandler) cacheStatus(ctx context.Context, paymentRecordID string, status rental.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyPaymentStatus, paymentRecordID)
	body, _ := json.Marshal(map[string]any{"status": status})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (h *RentalHandler) publishOrderCreated(r *http.Request, order rental.Order, rec rental.PaymentRecord) {
	if h.OrderProducer == nil {
		return
	}
	items := make([]rental.OrderCreatedItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, rental.OrderCreatedItem{
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			RentalDays: it.RentalDays,
			Subtotal:   it.Subtotal,
		})
	}
	ev := rental.Envelope{
		EventID:       uuid.NewString(),
		EventType:     rental.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: order.ID,
		Payload: kafkax.MustMarshal(rental.OrderCreatedPayload{
			OrderID:         order.ID,
			PaymentRecordID: rec.ID,
			UserID:          order.UserID,
			Items:           items,
			Total:           order.Total,
			DueDate:         order.DueDate,
		}),
	}
	h.OrderProducer.Publish(rental.PartitionKey(order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(rental.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *RentalHandler) publishStatusChanged(r *http.Request, rec rental.PaymentRecord, prev rental.Status) {
	if h.StatusProducer == nil {
		return
	}
	ev := rental.Envelope{
		EventID:       uuid.NewString(),
		EventType:     rental.EventPaymentStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: rec.OrderID,
		Payload: kafkax.MustMarshal(rental.PaymentStatusChangedPayload{
			PaymentRecordID: rec.ID,
			OrderID:         rec.OrderID,
			From:            prev,
			To:              rec.Status,
		}),
	}
	h.StatusProducer.Publish(rental.PartitionKey(rec.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(rental.EventPaymentStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
