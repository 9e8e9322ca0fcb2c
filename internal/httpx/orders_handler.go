package httpx

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/lifecycle"
	"github.com/ariefcatur/game-topup-api/internal/orders"
)

type OrderStore interface {
	List(ctx context.Context, f orders.ListFilter) ([]orders.View, error)
	Get(ctx context.Context, id int64) (orders.View, error)
	Create(ctx context.Context, in orders.CreateInput) (orders.Order, error)
	UpdateStatus(ctx context.Context, id int64, to orders.Status, notes *string) (orders.Status, error)
	Update(ctx context.Context, id int64, in orders.UpdateInput) (orders.Order, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Summary(ctx context.Context, from, to *time.Time) (orders.Summary, error)
}

type OrdersHandler struct {
	Store   OrderStore
	Events  lifecycle.Publisher
	Log     log.FieldLogger
	Timeout time.Duration
}

type createOrderRequest struct {
	CustomerID    int64   `json:"customer_id" validate:"required"`
	GameID        *int64  `json:"game_id"`
	ProductID     int64   `json:"product_id" validate:"required"`
	PlayerUID     string  `json:"player_uid" validate:"required"`
	ServerName    *string `json:"server_name"`
	Quantity      *int    `json:"quantity" validate:"omitempty,min=1,max=2147483647"`
	OrderNumber   string  `json:"order_number" validate:"omitempty,max=64"`
	PaymentMethod *string `json:"payment_method"`
	Notes         *string `json:"notes"`
}

type orderStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes"`
}

type updateOrderRequest struct {
	PlayerUID     *string `json:"player_uid" validate:"omitempty,min=1"`
	ServerName    *string `json:"server_name"`
	Quantity      *int    `json:"quantity" validate:"omitempty,min=1,max=2147483647"`
	PaymentMethod *string `json:"payment_method"`
	Notes         *string `json:"notes"`
	ProductID     *int64  `json:"product_id" validate:"omitempty,min=1"`
}

type createdOrder struct {
	Message string `json:"message"`
	orders.Order
}

type updatedOrder struct {
	Message      string       `json:"message"`
	AffectedRows int64        `json:"affectedRows"`
	Order        orders.Order `json:"order"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Put("/{id}/status", h.updateStatus)
	r.Delete("/{id}", h.delete)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := orders.ListFilter{
		Status:     orders.Status(q.Get("status")),
		ServerName: q.Get("server_name"),
		PlayerUID:  q.Get("player_uid"),
	}
	var err error
	if f.CustomerID, err = queryInt(r, "customer_id"); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if f.GameID, err = queryInt(r, "game_id"); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if f.ProductID, err = queryInt(r, "product_id"); err != nil {
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

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
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

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	o, err := h.Store.Create(ctx, orders.CreateInput{
		CustomerID:    req.CustomerID,
		GameID:        req.GameID,
		ProductID:     req.ProductID,
		PlayerUID:     req.PlayerUID,
		ServerName:    req.ServerName,
		Quantity:      qty,
		OrderNo:       req.OrderNumber,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CreatedBy:     caller(r).ID,
	})
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	publish(r, h.Events, lifecycle.Event{
		Type: lifecycle.EventOrderCreated, Aggregate: lifecycle.AggregateOrder, AggregateID: o.ID, Payload: o,
	})
	writeJSON(w, http.StatusCreated, createdOrder{Message: "Order created successfully", Order: o})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	var req orderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeErr(w, h.Log, err)
		return
	}
	to := orders.Status(req.Status)

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	from, err := h.Store.UpdateStatus(ctx, id, to, req.Notes)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	change := lifecycle.StatusChange{ID: id, From: string(from), To: string(to), UserID: caller(r).ID}
	if req.Notes != nil {
		change.Notes = *req.Notes
	}
	publish(r, h.Events, lifecycle.Event{
		Type: lifecycle.EventOrderStatusChanged, Aggregate: lifecycle.AggregateOrder, AggregateID: id, Payload: change,
	})
	writeJSON(w, http.StatusOK, affected{Message: fmt.Sprintf("Order status updated to %s", to), AffectedRows: 1})
}

func (h *OrdersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	var req updateOrderRequest
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

	o, err := h.Store.Update(ctx, id, orders.UpdateInput{
		PlayerUID:     req.PlayerUID,
		ServerName:    req.ServerName,
		Quantity:      req.Quantity,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		ProductID:     req.ProductID,
	})
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	publish(r, h.Events, lifecycle.Event{
		Type: lifecycle.EventOrderUpdated, Aggregate: lifecycle.AggregateOrder, AggregateID: id, Payload: o,
	})
	writeJSON(w, http.StatusOK, updatedOrder{Message: "Order updated successfully", AffectedRows: 1, Order: o})
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
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
		Type: lifecycle.EventOrderDeleted, Aggregate: lifecycle.AggregateOrder, AggregateID: id,
		Payload: lifecycle.Deleted{ID: id, UserID: caller(r).ID},
	})
	writeJSON(w, http.StatusOK, affected{Message: "Order deleted successfully", AffectedRows: n})
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Validation("invalid %s %q, expected YYYY-MM-DD", name, raw)
	}
	return &d, nil
}

func (h *OrdersHandler) summary(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "date_from")
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	to, err := queryDate(r, "date_to")
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	s, err := h.Store.Summary(ctx, from, to)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
