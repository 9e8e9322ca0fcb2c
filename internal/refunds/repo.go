package refunds

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/orders"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
)

const refundCols = `r.id, r.order_id, r.customer_id, r.refund_amount, r.refund_reason, r.refund_type,
	r.refund_method, r.bank_account_name, r.bank_account_number, r.bank_name, r.notes, r.status,
	r.requested_by, r.approved_by, r.refund_reference, r.processed_at, r.created_at, r.updated_at`

const viewSelect = `SELECT ` + refundCols + `,
		c.name, c.email, o.order_no, o.total_amount, u1.name, u2.name
	FROM refunds r
	LEFT JOIN customers c ON r.customer_id = c.id
	LEFT JOIN orders o ON r.order_id = o.id
	LEFT JOIN users u1 ON r.requested_by = u1.id
	LEFT JOIN users u2 ON r.approved_by = u2.id`

type Repo struct{ DB postgres.DB }

func refundDest(f *Refund) []any {
	return []any{&f.ID, &f.OrderID, &f.CustomerID, &f.RefundAmount, &f.RefundReason, &f.RefundType,
		&f.RefundMethod, &f.BankAccountName, &f.BankAccountNumber, &f.BankName, &f.Notes, &f.Status,
		&f.RequestedBy, &f.ApprovedBy, &f.RefundReference, &f.ProcessedAt, &f.CreatedAt, &f.UpdatedAt}
}

func scanView(row pgx.Row) (View, error) {
	var v View
	dest := append(refundDest(&v.Refund),
		&v.CustomerName, &v.CustomerEmail, &v.OrderNo, &v.OrderAmount, &v.RequestedByName, &v.ApprovedByName)
	err := row.Scan(dest...)
	return v, err
}

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
		add("r.status = $%d", f.Status)
	}
	if f.CustomerID != nil {
		add("r.customer_id = $%d", *f.CustomerID)
	}
	if f.OrderID != nil {
		add("r.order_id = $%d", *f.OrderID)
	}

	q := viewSelect
	if len(conds) > 0 {
		q += "\n\tWHERE " + strings.Join(conds, " AND ")
	}
	q += "\n\tORDER BY r.created_at DESC, r.id DESC"

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list refunds")
	}
	defer rows.Close()

	out := []View{}
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan refund")
		}
		// list rows carry the lighter join
		v.CustomerEmail, v.OrderAmount = nil, nil
		out = append(out, v)
	}
	return out, errors.Wrap(rows.Err(), "list refunds")
}

func (r *Repo) Get(ctx context.Context, id int64) (View, error) {
	v, err := scanView(r.DB.QueryRow(ctx, viewSelect+"\n\tWHERE r.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return View{}, apperr.NotFound("refund not found")
	}
	if err != nil {
		return View{}, errors.Wrapf(err, "get refund %d", id)
	}
	return v, nil
}

func validType(t string) bool { return t == TypeFull || t == TypePartial }

// Create records a PENDING refund request.
func (r *Repo) Create(ctx context.Context, in CreateInput) (Refund, error) {
	if !in.RefundAmount.IsPositive() {
		return Refund{}, apperr.Validation("refund_amount must be positive")
	}
	if in.RefundType == "" {
		in.RefundType = TypeFull
	}
	if !validType(in.RefundType) {
		return Refund{}, apperr.Validation("invalid refund_type %q", in.RefundType)
	}
	if in.RefundMethod == "" {
		in.RefundMethod = MethodBankTransfer
	}

	f := Refund{
		OrderID:           in.OrderID,
		CustomerID:        in.CustomerID,
		RefundAmount:      in.RefundAmount,
		RefundReason:      in.RefundReason,
		RefundType:        in.RefundType,
		RefundMethod:      in.RefundMethod,
		BankAccountName:   in.BankAccountName,
		BankAccountNumber: in.BankAccountNumber,
		BankName:          in.BankName,
		Notes:             in.Notes,
		Status:            StatusPending,
		RequestedBy:       &in.RequestedBy,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO refunds (order_id, customer_id, refund_amount, refund_reason, refund_type, refund_method,
			bank_account_name, bank_account_number, bank_name, notes, status, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`,
		f.OrderID, f.CustomerID, f.RefundAmount, f.RefundReason, f.RefundType, f.RefundMethod,
		f.BankAccountName, f.BankAccountNumber, f.BankName, f.Notes, f.Status, f.RequestedBy,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return Refund{}, errors.Wrap(apperr.FromPg(err), "insert refund")
	}
	return f, nil
}

// UpdateStatus applies a reviewer decision. Completing an APPROVED refund of a
// COMPLETED order marks the order REFUNDED in the same transaction.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, in StatusInput) (StatusResult, error) {
	if !in.Status.Settable() {
		return StatusResult{}, apperr.Validation("invalid status %q", in.Status)
	}
	reference := in.Reference
	if in.Status != StatusCompleted || (reference != nil && *reference == "") {
		reference = nil
	}

	var res StatusResult
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `SELECT status, order_id FROM refunds WHERE id = $1 FOR UPDATE`, id).
			Scan(&res.From, &res.OrderID)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("refund not found")
		}
		if err != nil {
			return errors.Wrap(err, "lock refund")
		}
		if !CanTransition(res.From, in.Status) {
			return apperr.Validation("cannot change refund status from %s to %s", res.From, in.Status)
		}

		_, err = tx.Exec(ctx, `
			UPDATE refunds SET
				status = $2,
				notes = COALESCE($3, notes),
				approved_by = $4,
				refund_reference = COALESCE($5::text, refund_reference),
				processed_at = CASE WHEN $5::text IS NULL THEN processed_at ELSE NOW() END,
				updated_at = NOW()
			WHERE id = $1`, id, in.Status, in.Notes, in.ApprovedBy, reference)
		if err != nil {
			return errors.Wrap(apperr.FromPg(err), "update refund status")
		}

		if res.From != StatusApproved || in.Status != StatusCompleted {
			return nil
		}
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3`, res.OrderID, orders.StatusRefunded, orders.StatusCompleted)
		if err != nil {
			return errors.Wrap(err, "mark order refunded")
		}
		res.OrderRefunded = tag.RowsAffected() == 1
		return nil
	})
	return res, err
}

// Update edits a PENDING refund.
func (r *Repo) Update(ctx context.Context, id int64, in UpdateInput) (Refund, error) {
	if in.Empty() {
		return Refund{}, apperr.Validation("no valid fields to update")
	}
	if in.RefundAmount != nil && !in.RefundAmount.IsPositive() {
		return Refund{}, apperr.Validation("refund_amount must be positive")
	}
	if in.RefundType != nil && !validType(*in.RefundType) {
		return Refund{}, apperr.Validation("invalid refund_type %q", *in.RefundType)
	}

	var f Refund
	err := r.DB.QueryRow(ctx, `
		UPDATE refunds AS r SET
			refund_amount = COALESCE($2, r.refund_amount),
			refund_reason = COALESCE($3, r.refund_reason),
			refund_type = COALESCE($4, r.refund_type),
			refund_method = COALESCE($5, r.refund_method),
			bank_account_name = COALESCE($6, r.bank_account_name),
			bank_account_number = COALESCE($7, r.bank_account_number),
			bank_name = COALESCE($8, r.bank_name),
			notes = COALESCE($9, r.notes),
			updated_at = NOW()
		WHERE r.id = $1 AND r.status = $10
		RETURNING `+refundCols,
		id, in.RefundAmount, in.RefundReason, in.RefundType, in.RefundMethod,
		in.BankAccountName, in.BankAccountNumber, in.BankName, in.Notes, StatusPending,
	).Scan(refundDest(&f)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Refund{}, apperr.NotFound("refund not found or cannot be updated (not in PENDING status)")
	}
	if err != nil {
		return Refund{}, errors.Wrap(apperr.FromPg(err), "update refund")
	}
	return f, nil
}

// Delete removes a PENDING refund.
func (r *Repo) Delete(ctx context.Context, id int64) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM refunds WHERE id = $1 AND status = $2`, id, StatusPending)
	if err != nil {
		return 0, errors.Wrap(err, "delete refund")
	}
	if tag.RowsAffected() == 0 {
		return 0, apperr.NotFound("refund not found or cannot be deleted (not in PENDING status)")
	}
	return tag.RowsAffected(), nil
}
