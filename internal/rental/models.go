package rental

import "time"

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"` // rupiah per hari sewa
	PriceUnit   string    `json:"price_unit"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Available   bool      `json:"available"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PersonalInfo is the checkout contact snapshot captured on the order.
type PersonalInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type Order struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	PersonalInfo   PersonalInfo `json:"personal_info"`
	PaymentMethod  string       `json:"payment_method"`
	ShippingMethod string       `json:"shipping_method"`
	Total          int64        `json:"total"`
	Status         Status       `json:"status"`
	CreatedAt      time.Time    `json:"created_at"`
	DueDate        time.Time    `json:"due_date"`
	Items          []OrderItem  `json:"items,omitempty"`
}

type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    string `json:"order_id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
	RentalDays int    `json:"rental_days"`
	Price      int64  `json:"price"` // harga satuan saat checkout
	Subtotal   int64  `json:"subtotal"`
}

// PaymentRecord is the fulfillment entity paired 1:1 with an Order.
// Its status is kept identical to the order's status on every update.
type PaymentRecord struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Total         int64     `json:"total"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	DueDate       time.Time `json:"due_date"`
}

type OrderRequestItem struct {
	ProductID  int64 `json:"product_id"`
	Quantity   int   `json:"quantity"`
	RentalDays int   `json:"rental_days"`
}

// DraftItem is a request item with the catalog price captured at validation.
type DraftItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
	RentalDays  int
	Price       int64
	Subtotal    int64
}

// OrderDraft is the priced, stock-checked result of validation. The stock
// check here is advisory; the commit re-checks against the live rows.
type OrderDraft struct {
	UserID         string
	PersonalInfo   PersonalInfo
	PaymentMethod  string
	ShippingMethod string
	Items          []DraftItem
	Total          int64
	DueDate        time.Time
}

// PaymentSummary mirrors the admin transactions overview: revenue counts
// completed records only.
type PaymentSummary struct {
	TotalRevenue int64 `json:"total_revenue"`
	Total        int   `json:"total"`
	Pending      int   `json:"pending"`
	Active       int   `json:"active"`
	Completed    int   `json:"completed"`
	Cancelled    int   `json:"cancelled"`
}
