package refunds

import (
	"time"

	"github.com/shopspring/decimal"
)

type Refund struct {
	ID                int64           `json:"id"`
	OrderID           int64           `json:"order_id"`
	CustomerID        int64           `json:"customer_id"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	RefundReason      *string         `json:"refund_reason"`
	RefundType        string          `json:"refund_type"`
	RefundMethod      string          `json:"refund_method"`
	BankAccountName   *string         `json:"bank_account_name"`
	BankAccountNumber *string         `json:"bank_account_number"`
	BankName          *string         `json:"bank_name"`
	Notes             *string         `json:"notes"`
	Status            Status          `json:"status"`
	RequestedBy       *int64          `json:"requested_by"`
	ApprovedBy        *int64          `json:"approved_by"`
	RefundReference   *string         `json:"refund_reference"`
	ProcessedAt       *time.Time      `json:"processed_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

type View struct {
	Refund
	CustomerName    *string          `json:"customer_name"`
	CustomerEmail   *string          `json:"customer_email,omitempty"`
	OrderNo         *string          `json:"order_no"`
	OrderAmount     *decimal.Decimal `json:"order_amount,omitempty"`
	RequestedByName *string          `json:"requested_by_name"`
	ApprovedByName  *string          `json:"approved_by_name"`
}

type CreateInput struct {
	OrderID           int64
	CustomerID        int64
	RefundAmount      decimal.Decimal
	RefundReason      *string
	RefundType        string // empty: FULL
	RefundMethod      string // empty: BANK_TRANSFER
	BankAccountName   *string
	BankAccountNumber *string
	BankName          *string
	Notes             *string
	RequestedBy       int64
}

// UpdateInput carries the editable fields; nil means unchanged.
type UpdateInput struct {
	RefundAmount      *decimal.Decimal
	RefundReason      *string
	RefundType        *string
	RefundMethod      *string
	BankAccountName   *string
	BankAccountNumber *string
	BankName          *string
	Notes             *string
}

func (in UpdateInput) Empty() bool {
	return in.RefundAmount == nil && in.RefundReason == nil && in.RefundType == nil && in.RefundMethod == nil &&
		in.BankAccountName == nil && in.BankAccountNumber == nil && in.BankName == nil && in.Notes == nil
}

type StatusInput struct {
	Status     Status
	Notes      *string
	Reference  *string // stamped only when completing
	ApprovedBy int64
}

// StatusResult reports what a status change did.
type StatusResult struct {
	From          Status
	OrderID       int64
	OrderRefunded bool
}

type ListFilter struct {
	Status     Status
	CustomerID *int64
	OrderID    *int64
}
