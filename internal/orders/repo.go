package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
)

const maxOrderNoAttempts = 3

const orderCols = `o.id, o.customer_id, o.game_id, o.product_id, o.player_uid, o.server_name,
	o.quantity, o.unit_price, o.total_amount, o.order_no, o.status, o.payment_method,
	o.notes, o.created_by, o.created_at, o.updated_at`

const viewSelect = `SELECT ` + orderCols + `,
		c.name, c.email, c.phone,
		g.name, g.platform,
		p.name, p.price, p.description
	FROM orders o
	LEFT JOIN customers c ON o.customer_id = c.id
	LEFT JOIN games g ON o.game_id = g.id
	LEFT JOIN products p ON o.product_id = p.id`

type Repo struct {
	DB  postgres.DB
	Now func() time.Time
}

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func orderDest(o *Order) []any {
	return []any{&o.ID, &o.CustomerID, &o.GameID, &o.ProductID, &o.PlayerUID, &o.ServerName,
		&o.Quantity, &o.UnitPrice, &o.TotalAmount, &o.OrderNo, &o.Status, &o.PaymentMethod,
		&o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt}
}

func scanView(row pgx.Row) (View, error) {
	var v View
	dest := append(orderDest(&v.Order),
		&v.CustomerName, &v.CustomerEmail, &v.CustomerPhone,
		&v.GameName, &v.GamePlatform,
		&v.ProductName, &v.ProductPrice, &v.ProductDescription)
	err := row.Scan(dest...)
	return v, err
}

// List returns orders newest first. Substring filters match anywhere.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]View, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("o.status = $%d", f.Status)
	}
	if f.CustomerID != nil {
		add("o.customer_id = $%d", *f.CustomerID)
	}
	if f.GameID != nil {
		add("o.game_id = $%d", *f.GameID)
	}
	if f.ProductID != nil {
		add("o.product_id = $%d", *f.ProductID)
	}
	if f.ServerName != "" {
		add("o.server_name ILIKE $%d", "%"+escapeLike(f.ServerName)+"%")
	}
	if f.PlayerUID != "" {
		add("o.player_uid ILIKE $%d", "%"+escapeLike(f.PlayerUID)+"%")
	}

	q := viewSelect
	if len(conds) > 0 {
		q += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	q += "\n\tORDER BY o.created_at DESC, o.id DESC"

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	out := []View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, v)
	}
	return out, errors.Wrap(rows.Err(), "list orders")
}

func (r *Repo) Get(ctx context.Context, id int64) (View, error) {
	v, err := scanView(r.DB.QueryRow(ctx, viewSelect+"\n\tWHERE o.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return View{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return View{}, errors.Wrapf(err, "get order %d", id)
	}
	return v, nil
}

// Create prices the order from the product's current price. A generated
// order_no that collides is regenerated; a caller-supplied one is a conflict.
func (r *Repo) Create(ctx context.Context, in CreateInput) (Order, error) {
	if in.Quantity <= 0 {
		return Order{}, apperr.Validation("quantity must be positive")
	}

	var (
		price       decimal.Decimal
		productGame *int64
	)
	err := r.DB.QueryRow(ctx, `SELECT price, game_id FROM products WHERE id = $1`, in.ProductID).Scan(&price, &productGame)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("product not found")
	}
	if err != nil {
		return Order{}, errors.Wrap(err, "select product price")
	}

	o := Order{
		CustomerID:    in.CustomerID,
		GameID:        in.GameID,
		ProductID:     in.ProductID,
		PlayerUID:     in.PlayerUID,
		ServerName:    in.ServerName,
		Quantity:      in.Quantity,
		UnitPrice:     price,
		TotalAmount:   Total(price, in.Quantity),
		Status:        StatusPending,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		CreatedBy:     &in.CreatedBy,
	}
	if o.GameID == nil {
		o.GameID = productGame
	}

	generated := in.OrderNo == ""
	for attempt := 1; ; attempt++ {
		o.OrderNo = in.OrderNo
		if generated {
			o.OrderNo = NewOrderNo(r.now())
		}
		err = r.DB.QueryRow(ctx, `
			INSERT INTO orders (customer_id, game_id, product_id, player_uid, server_name, quantity,
				unit_price, total_amount, order_no, status, payment_method, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, created_at, updated_at`,
			o.CustomerID, o.GameID, o.ProductID, o.PlayerUID, o.ServerName, o.Quantity,
			o.UnitPrice, o.TotalAmount, o.OrderNo, o.Status, o.PaymentMethod, o.Notes, o.CreatedBy,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err == nil {
			return o, nil
		}
		if apperr.IsUniqueViolation(err, "orders_order_no_key") {
			if generated && attempt < maxOrderNoAttempts {
				continue
			}
			return Order{}, apperr.Conflict("order number %s already exists", o.OrderNo)
		}
		return Order{}, errors.Wrap(apperr.FromPg(err), "insert order")
	}
}

func lockStatus(ctx context.Context, tx pgx.Tx, id int64) (Status, error) {
	var s Status
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("order not found")
	}
	return s, errors.Wrap(err, "lock order")
}

// LockEditable locks order id for the rest of tx and fails unless its line
// items may still change.
func LockEditable(ctx context.Context, tx pgx.Tx, id int64) error {
	s, err := lockStatus(ctx, tx, id)
	if err != nil {
		return err
	}
	if !s.Editable() {
		return apperr.NotFound("order %d items cannot be edited in status %s", id, s)
	}
	return nil
}

// UpdateStatus moves the order along the transition table and returns the
// status it left.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, to Status, notes *string) (Status, error) {
	if !to.Valid() {
		return "", apperr.Validation("invalid status %q", to)
	}
	var from Status
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		var err error
		if from, err = lockStatus(ctx, tx, id); err != nil {
			return err
		}
		if !CanTransition(from, to) {
			return apperr.Validation("cannot change order status from %s to %s", from, to)
		}
		_, err = tx.Exec(ctx, `
			UPDATE orders SET status = $2, notes = COALESCE($3, notes), updated_at = NOW()
			WHERE id = $1`, id, to, notes)
		return errors.Wrap(err, "update order status")
	})
	return from, err
}

// Update edits the allow-listed fields of a PENDING or CONFIRMED order and
// reprices it when quantity or product change. A new product also brings its
// game along, as on create.
func (r *Repo) Update(ctx context.Context, id int64, in UpdateInput) (Order, error) {
	if in.Empty() {
		return Order{}, apperr.Validation("no valid fields to update")
	}
	if in.Quantity != nil && *in.Quantity <= 0 {
		return Order{}, apperr.Validation("quantity must be positive")
	}

	var o Order
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		var (
			productID int64
			gameID    *int64
			quantity  int
			unitPrice decimal.Decimal
			status    Status
		)
		err := tx.QueryRow(ctx, `
			SELECT product_id, game_id, quantity, unit_price, status FROM orders WHERE id = $1 FOR UPDATE`, id,
		).Scan(&productID, &gameID, &quantity, &unitPrice, &status)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && !status.Editable()) {
			return apperr.NotFound("order not found or cannot be updated (invalid status)")
		}
		if err != nil {
			return errors.Wrap(err, "lock order")
		}

		if in.Reprices() {
			if in.ProductID != nil {
				productID = *in.ProductID
			}
			if in.Quantity != nil {
				quantity = *in.Quantity
			}
			var productGame *int64
			err := tx.QueryRow(ctx, `SELECT price, game_id FROM products WHERE id = $1`, productID).Scan(&unitPrice, &productGame)
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("product not found")
			}
			if err != nil {
				return errors.Wrap(err, "select product price")
			}
			if in.ProductID != nil && productGame != nil {
				gameID = productGame
			}
		}

		err = tx.QueryRow(ctx, `
			UPDATE orders AS o SET
				player_uid = COALESCE($2, o.player_uid),
				server_name = COALESCE($3, o.server_name),
				payment_method = COALESCE($4, o.payment_method),
				notes = COALESCE($5, o.notes),
				product_id = $6,
				quantity = $7,
				unit_price = $8,
				total_amount = $9,
				game_id = $10,
				updated_at = NOW()
			WHERE o.id = $1
			RETURNING `+orderCols,
			id, in.PlayerUID, in.ServerName, in.PaymentMethod, in.Notes,
			productID, quantity, unitPrice, Total(unitPrice, quantity), gameID,
		).Scan(orderDest(&o)...)
		return errors.Wrap(apperr.FromPg(err), "update order")
	})
	return o, err
}

// Delete removes a PENDING or CANCELLED order together with its items.
func (r *Repo) Delete(ctx context.Context, id int64) (int64, error) {
	var affected int64
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		status, err := lockStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if !status.Deletable() {
			return apperr.NotFound("cannot delete order in status %s: only PENDING or CANCELLED orders can be deleted", status)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return errors.Wrap(err, "delete order items")
		}
		tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
		if err != nil {
			return errors.Wrap(apperr.FromPg(err), "delete order")
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// Summary aggregates orders created within [from, to] (calendar days, both optional).
func (r *Repo) Summary(ctx context.Context, from, to *time.Time) (Summary, error) {
	var (
		conds []string
		args  []any
	)
	if from != nil {
		args = append(args, from.Format(time.DateOnly))
		conds = append(conds, fmt.Sprintf("created_at::date >= $%d::date", len(args)))
	}
	if to != nil {
		args = append(args, to.Format(time.DateOnly))
		conds = append(conds, fmt.Sprintf("created_at::date <= $%d::date", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var s Summary
	err := r.DB.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'CANCELLED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'COMPLETED' THEN total_amount ELSE 0 END), 0),
			AVG(CASE WHEN status = 'COMPLETED' THEN total_amount END)
		FROM orders`+where, args...,
	).Scan(&s.TotalOrders, &s.CompletedOrders, &s.PendingOrders, &s.CancelledOrders, &s.TotalRevenue, &s.AvgOrderValue)
	if err != nil {
		return Summary{}, errors.Wrap(err, "order summary")
	}

	rows, err := r.DB.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders`+where+`
		GROUP BY status ORDER BY status`, args...)
	if err != nil {
		return Summary{}, errors.Wrap(err, "order summary by status")
	}
	defer rows.Close()

	s.ByStatus = []StatusCount{}
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Orders, &c.Revenue); err != nil {
			return Summary{}, errors.Wrap(err, "scan status count")
		}
		s.ByStatus = append(s.ByStatus, c)
	}
	return s, errors.Wrap(rows.Err(), "order summary by status")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
