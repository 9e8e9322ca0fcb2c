package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/lifecycle"
	"github.com/ariefcatur/game-topup-api/internal/refunds"
)

type RefundStore interface {
	List(ctx context.Context, f refunds.ListFilter) ([]refunds.View, error)
	Get(ctx context.Context, id int64) (refunds.View, error)
	Create(ctx context.Context, in refunds.CreateInput) (refunds.Refund, error)
	UpdateStatus(ctx context.Context, id int64, in refunds.StatusInput) (refunds.StatusResult, error)
	Update(ctx context.Context, id int64, in refunds.UpdateInput) (refunds.Refund, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type RefundsHandler struct {
	Store   RefundStore
	Events  lifecycle.Publisher
	Log     log.FieldLogger
	Timeout time.Duration
}

type createRefundRequest struct {
	OrderID           int64           `json:"order_id" validate:"required"`
	CustomerID        int64           `json:"customer_id" validate:"required"`
	RefundAmount      decimal.Decimal `json:"refund_amount"`
	RefundReason      *string         `json:"refund_reason"`
	RefundType        string          `json:"refund_type" validate:"omitempty,oneof=FULL PARTIAL"`
	RefundMethod      string          `json:"refund_method"`
	BankAccountName   *string         `json:"bank_account_name"`
	BankAccountNumber *string         `json:"bank_account_number"`
	BankName          *string         `json:"bank_name"`
	Notes             *string         `json:"notes"`
}

type refundStatusRequest struct {
	Status          string  `json:"status" validate:"required,oneof=APPROVED REJECTED COMPLETED"`
	Notes           *string `json:"notes"`
	RefundReference *string `json:"refund_reference"`
}

type updateRefundRequest struct {
	RefundAmount      *decimal.Decimal `json:"refund_amount"`
	RefundReason      *string          `json:"refund_reason"`
	RefundType        *string          `json:"refund_type" validate:"omitempty,oneof=FULL PARTIAL"`
	RefundMethod      *string          `json:"refund_method"`
	BankAccountName   *string          `json:"bank_account_name"`
	BankAccountNumber *string          `json:"bank_account_number"`
	BankName          *string          `json:"bank_name"`
	Notes             *string          `json:"notes"`
}

type createdRefund struct {
	Message string `json:"message"`
	refunds.Refund
}

type refundStatusResponse struct {
	affected
	OrderRefunded bool `json:"orderRefunded"`
}

type updatedRefund struct {
	Message      string         `json:"message"`
	AffectedRows int64          `json:"affectedRows"`
	Refund       refunds.Refund `json:"refund"`
}

func (h *RefundsHandler) Register(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Put("/{id}/status", h.updateStatus)
	r.Delete("/{id}", h.delete)
}

func (h *RefundsHandler) list(w http.ResponseWriter, r *http.Request) {
	f := refunds.ListFilter{Status: refunds.Status(r.URL.Query().Get("status"))}
	var err error
	if f.CustomerID, err = queryInt(r, "customer_id"); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if f.OrderID, err = queryInt(r, "order_id"); err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	out, err := h.Store.List(ctx, f)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RefundsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	v, err := h.Store.Get(ctx, id)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *RefundsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRefundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	f, err := h.Store.Create(ctx, refunds.CreateInput{
		OrderID:           req.OrderID,
		CustomerID:        req.CustomerID,
		RefundAmount:      req.RefundAmount,
		RefundReason:      req.RefundReason,
		RefundType:        req.RefundType,
		RefundMethod:      req.RefundMethod,
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
		BankName:          req.BankName,
		Notes:             req.Notes,
		RequestedBy:       caller(r).ID,
	})
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	publish(r, h.Events, lifecycle.Event{
		Type: lifecycle.EventRefundCreated, Aggregate: lifecycle.AggregateRefund, AggregateID: f.ID, Payload: f,
	})
	writeJSON(w, http.StatusCreated, createdRefund{Message: "Refund request created successfully", Refund: f})
}

func (h *RefundsHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	var req refundStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	to := refunds.Status(req.Status)
	who := caller(r).ID

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	res, err := h.Store.UpdateStatus(ctx, id, refunds.StatusInput{
		Status: to, Notes: req.Notes, Reference: req.RefundReference, ApprovedBy: who,
	})
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	change := lifecycle.StatusChange{ID: id, From: string(res.From), To: string(to), UserID: who}
	if req.Notes != nil {
		change.Notes = *req.Notes
	}
	publish(r, h.Events, lifecycle.Event{
		Type: lifecycle.EventRefundStatusChanged, Aggregate: lifecycle.AggregateRefund, AggregateID: id, Payload: change,
	})
	if res.OrderRefunded {
		publish(r, h.Events, lifecycle.Event{
			Type: lifecycle.EventOrderStatusChanged, Aggregate: lifecycle.AggregateOrder, AggregateID: res.OrderID,
			Payload: lifecycle.StatusChange{ID: res.OrderID, From: "COMPLETED", To: "REFUNDED", UserID: who},
		})
	}
	writeJSON(w, http.StatusOK, refundStatusResponse{
		affected:      affected{Message: fmt.Sprintf("Refund %s successfully", strings.ToLower(string(to))), AffectedRows: 1},
		OrderRefunded: res.OrderRefunded,
	})
}

func (h *RefundsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	var req updateRefundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	f, err := h.Store.Update(ctx, id, refunds.UpdateInput{
		RefundAmount:      req.RefundAmount,
		RefundReason:      req.RefundReason,
		RefundType:        req.RefundType,
		RefundMethod:      req.RefundMethod,
		BankAccountName:   req.BankAccountName,
		BankAccountNumber: req.BankAccountNumber,
		BankName:          req.BankName,
		Notes:             req.Notes,
	})
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	publish(r, h.Events, lifecycle.Event{
		Type: lifecycle.EventRefundUpdated, Aggregate: lifecycle.AggregateRefund, AggregateID: id, Payload: f,
	})
	writeJSON(w, http.StatusOK, updatedRefund{Message: "Refund updated successfully", AffectedRows: 1, Refund: f})
}

func (h *RefundsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	n, err := h.Store.Delete(ctx, id)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	publish(r, h.Events, lifecycle.Event{
		Type: lifecycle.EventRefundDeleted, Aggregate: lifecycle.AggregateRefund, AggregateID: id,
		Payload: lifecycle.Deleted{ID: id, UserID: caller(r).ID},
	})
	writeJSON(w, http.StatusOK, affected{Message: "Refund deleted successfully", AffectedRows: n})
}
