package rental

import (
	"context"
	"errors"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// lockOrder menyalin dan mengurutkan item per product id, supaya semua
// transaksi mengambil row lock dengan urutan yang sama (hindari deadlock
// antar order yang itemnya terbalik).
func lockOrder(items []DraftItem) []DraftItem {
	sorted := make([]DraftItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

// GetProduct implements CatalogReader against the products table.
func (r *Repo) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, description, price, price_unit, category, image_url, available, stock, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.PriceUnit, &p.Category,
			&p.ImageURL, &p.Available, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &NotFoundError{Entity: "product", ID: itoa(id)}
		}
		return Product{}, storagef("get product", err)
	}
	return p, nil
}

type ProductFilter struct {
	Category  string
	Available *bool
	Limit     int
	Offset    int
}

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter) ([]Product, int, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	where := ` WHERE ($1 = '' OR category = $1) AND ($2::boolean IS NULL OR available = $2)`

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, f.Category, f.Available).Scan(&total); err != nil {
		return nil, 0, storagef("count products", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, price, price_unit, category, image_url, available, stock, created_at, updated_at
		FROM products`+where+` ORDER BY id LIMIT $3 OFFSET $4`,
		f.Category, f.Available, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, storagef("list products", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.PriceUnit, &p.Category,
			&p.ImageURL, &p.Available, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, storagef("scan product", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storagef("list products", err)
	}
	return out, total, nil
}

// CreateOrder commits the draft as one atomic unit: order header, line items,
// stock decrements, paired payment record. The stock guard is re-evaluated
// here against the locked row; a guard failure on any item rolls back every
// write in the unit, including earlier items' decrements.
func (r *Repo) CreateOrder(ctx context.Context, order Order, items []DraftItem, rec PaymentRecord) (Order, PaymentRecord, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, PaymentRecord{}, storagef("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, full_name, email, phone, address, payment_method, shipping_method, total, status, created_at, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		order.ID, order.UserID, order.PersonalInfo.FullName, order.PersonalInfo.Email,
		order.PersonalInfo.Phone, order.PersonalInfo.Address,
		order.PaymentMethod, order.ShippingMethod, order.Total, order.Status, order.CreatedAt, order.DueDate)
	if err != nil {
		return Order{}, PaymentRecord{}, storagef("insert order", err)
	}

	order.Items = make([]OrderItem, 0, len(items))
	for _, it := range lockOrder(items) {
		// lock dulu, lalu cek stok hidup (bukan hasil baca validator)
		var name string
		var stock int
		var available bool
		err := tx.QueryRow(ctx, `SELECT name, stock, available FROM products WHERE id=$1 FOR UPDATE`, it.ProductID).
			Scan(&name, &stock, &available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Order{}, PaymentRecord{}, &NotFoundError{Entity: "product", ID: itoa(it.ProductID)}
			}
			return Order{}, PaymentRecord{}, storagef("lock product", err)
		}
		if !available || stock < it.Quantity {
			return Order{}, PaymentRecord{}, &InsufficientStockError{
				ProductID:   it.ProductID,
				ProductName: name,
				Requested:   it.Quantity,
				Available:   stock,
			}
		}

		// guard di write time; stok habis -> available=false dalam UPDATE yang sama
		ct, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $2,
			    available = CASE WHEN stock - $2 <= 0 THEN FALSE ELSE available END,
			    updated_at = $3
			WHERE id = $1 AND stock >= $2`,
			it.ProductID, it.Quantity, order.CreatedAt)
		if err != nil {
			return Order{}, PaymentRecord{}, storagef("decrement stock", err)
		}
		if ct.RowsAffected() != 1 {
			return Order{}, PaymentRecord{}, &ConflictError{Reason: "lost stock race on product " + name}
		}

		item := OrderItem{
			OrderID:    order.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			RentalDays: it.RentalDays,
			Price:      it.Price,
			Subtotal:   it.Subtotal,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, rental_days, price, subtotal)
			VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			item.OrderID, item.ProductID, item.Quantity, item.RentalDays, item.Price, item.Subtotal).
			Scan(&item.ID)
		if err != nil {
			return Order{}, PaymentRecord{}, storagef("insert order item", err)
		}
		order.Items = append(order.Items, item)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payment_records(id, order_id, customer_name, customer_email, total, status, created_at, due_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.OrderID, rec.CustomerName, rec.CustomerEmail, rec.Total, rec.Status, rec.CreatedAt, rec.DueDate)
	if err != nil {
		return Order{}, PaymentRecord{}, storagef("insert payment record", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, PaymentRecord{}, storagef("commit order", err)
	}
	return order, rec, nil
}

// SetStatus moves a payment record and its order to next as one atomic unit.
// The FOR UPDATE on the payment record serializes updates for the same id, so
// the pair is never observed out of sync. Returns the updated record and the
// status it moved from.
func (r *Repo) SetStatus(ctx context.Context, paymentRecordID string, next Status) (PaymentRecord, Status, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PaymentRecord{}, "", storagef("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var rec PaymentRecord
	err = tx.QueryRow(ctx, `
		SELECT id, order_id, customer_name, customer_email, total, status, created_at, due_date
		FROM payment_records WHERE id=$1 FOR UPDATE`, paymentRecordID).
		Scan(&rec.ID, &rec.OrderID, &rec.CustomerName, &rec.CustomerEmail, &rec.Total, &rec.Status, &rec.CreatedAt, &rec.DueDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, "", &NotFoundError{Entity: "transaction", ID: paymentRecordID}
		}
		return PaymentRecord{}, "", storagef("lock payment record", err)
	}

	prev := rec.Status
	if prev == next {
		// idempotent: status sudah sesuai, tidak ada yang ditulis
		if err := tx.Commit(ctx); err != nil {
			return PaymentRecord{}, "", storagef("commit status", err)
		}
		return rec, prev, nil
	}
	if !CanTransition(prev, next) {
		return PaymentRecord{}, "", validationf("cannot transition from %s to %s", prev, next)
	}

	if _, err := tx.Exec(ctx, `UPDATE payment_records SET status=$2 WHERE id=$1`, rec.ID, next); err != nil {
		return PaymentRecord{}, "", storagef("update payment record status", err)
	}
	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$2 WHERE id=$1`, rec.OrderID, next)
	if err != nil {
		return PaymentRecord{}, "", storagef("update order status", err)
	}
	if ct.RowsAffected() != 1 {
		return PaymentRecord{}, "", &NotFoundError{Entity: "order", ID: rec.OrderID}
	}

	if err := tx.Commit(ctx); err != nil {
		return PaymentRecord{}, "", storagef("commit status", err)
	}
	rec.Status = next
	return rec, prev, nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, full_name, email, phone, address, payment_method, shipping_method, total, status, created_at, due_date
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.UserID, &o.PersonalInfo.FullName, &o.PersonalInfo.Email,
			&o.PersonalInfo.Phone, &o.PersonalInfo.Address,
			&o.PaymentMethod, &o.ShippingMethod, &o.Total, &o.Status, &o.CreatedAt, &o.DueDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, &NotFoundError{Entity: "order", ID: id}
		}
		return Order{}, storagef("get order", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity, rental_days, price, subtotal
		FROM order_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return Order{}, storagef("list order items", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.RentalDays, &it.Price, &it.Subtotal); err != nil {
			return Order{}, storagef("scan order item", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Order{}, storagef("list order items", err)
	}
	return o, nil
}

func (r *Repo) ListOrdersByUser(ctx context.Context, userID string, status Status, limit, offset int) ([]Order, int, error) {
	if limit <= 0 {
		limit = 10
	}
	where := ` WHERE user_id = $1 AND ($2 = '' OR status = $2)`

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, userID, status).Scan(&total); err != nil {
		return nil, 0, storagef("count orders", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, full_name, email, phone, address, payment_method, shipping_method, total, status, created_at, due_date
		FROM orders`+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		userID, status, limit, offset)
	if err != nil {
		return nil, 0, storagef("list orders", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.PersonalInfo.FullName, &o.PersonalInfo.Email,
			&o.PersonalInfo.Phone, &o.PersonalInfo.Address,
			&o.PaymentMethod, &o.ShippingMethod, &o.Total, &o.Status, &o.CreatedAt, &o.DueDate); err != nil {
			return nil, 0, storagef("scan order", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storagef("list orders", err)
	}
	return out, total, nil
}

func (r *Repo) GetPaymentRecord(ctx context.Context, id string) (PaymentRecord, error) {
	var rec PaymentRecord
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_id, customer_name, customer_email, total, status, created_at, due_date
		FROM payment_records WHERE id=$1`, id).
		Scan(&rec.ID, &rec.OrderID, &rec.CustomerName, &rec.CustomerEmail, &rec.Total, &rec.Status, &rec.CreatedAt, &rec.DueDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, &NotFoundError{Entity: "transaction", ID: id}
		}
		return PaymentRecord{}, storagef("get payment record", err)
	}
	return rec, nil
}

func (r *Repo) ListPaymentRecords(ctx context.Context, status Status, limit, offset int) ([]PaymentRecord, int, PaymentSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	var sum PaymentSummary
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total) FILTER (WHERE status='completed'), 0),
		       COUNT(*) FILTER (WHERE status='pending'),
		       COUNT(*) FILTER (WHERE status='active'),
		       COUNT(*) FILTER (WHERE status='completed'),
		       COUNT(*) FILTER (WHERE status='cancelled')
		FROM payment_records`).
		Scan(&sum.Total, &sum.TotalRevenue, &sum.Pending, &sum.Active, &sum.Completed, &sum.Cancelled)
	if err != nil {
		return nil, 0, PaymentSummary{}, storagef("summarize payment records", err)
	}

	var total int
	if err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_records WHERE ($1 = '' OR status = $1)`, status).Scan(&total); err != nil {
		return nil, 0, PaymentSummary{}, storagef("count payment records", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, customer_name, customer_email, total, status, created_at, due_date
		FROM payment_records WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, PaymentSummary{}, storagef("list payment records", err)
	}
	defer rows.Close()

	var out []PaymentRecord
	for rows.Next() {
		var rec PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.OrderID, &rec.CustomerName, &rec.CustomerEmail,
			&rec.Total, &rec.Status, &rec.CreatedAt, &rec.DueDate); err != nil {
			return nil, 0, PaymentSummary{}, storagef("scan payment record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, PaymentSummary{}, storagef("list payment records", err)
	}
	return out, total, sum, nil
}
