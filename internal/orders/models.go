package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	GameID        *int64          `json:"game_id"`
	ProductID     int64           `json:"product_id"`
	PlayerUID     string          `json:"player_uid"`
	ServerName    *string         `json:"server_name"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OrderNo       string          `json:"order_no"`
	Status        Status          `json:"status"`
	PaymentMethod *string         `json:"payment_method"`
	Notes         *string         `json:"notes"`
	CreatedBy     *int64          `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// View is an order joined with its customer, game and product display fields.
type View struct {
	Order
	CustomerName       *string          `json:"customer_name"`
	CustomerEmail      *string          `json:"customer_email"`
	CustomerPhone      *string          `json:"customer_phone,omitempty"`
	GameName           *string          `json:"game_name"`
	GamePlatform       *string          `json:"game_platform,omitempty"`
	ProductName        *string          `json:"product_name"`
	ProductPrice       *decimal.Decimal `json:"product_price"`
	ProductDescription *string          `json:"product_description,omitempty"`
}

type CreateInput struct {
	CustomerID    int64
	GameID        *int64
	ProductID     int64
	PlayerUID     string
	ServerName    *string
	Quantity      int
	OrderNo       string // empty: generated
	PaymentMethod *string
	Notes         *string
	CreatedBy     int64
}

// UpdateInput carries the editable fields; nil means unchanged.
type UpdateInput struct {
	PlayerUID     *string
	ServerName    *string
	Quantity      *int
	PaymentMethod *string
	Notes         *string
	ProductID     *int64
}

func (in UpdateInput) Empty() bool {
	return in.PlayerUID == nil && in.ServerName == nil && in.Quantity == nil &&
		in.PaymentMethod == nil && in.Notes == nil && in.ProductID == nil
}

func (in UpdateInput) Reprices() bool {
	return in.Quantity != nil || in.ProductID != nil
}

type ListFilter struct {
	Status     Status
	CustomerID *int64
	GameID     *int64
	ProductID  *int64
	ServerName string // substring
	PlayerUID  string // substring
}

type StatusCount struct {
	Status  Status          `json:"status"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type Summary struct {
	TotalOrders     int64               `json:"total_orders"`
	CompletedOrders int64               `json:"completed_orders"`
	PendingOrders   int64               `json:"pending_orders"`
	CancelledOrders int64               `json:"cancelled_orders"`
	TotalRevenue    decimal.Decimal     `json:"total_revenue"`
	AvgOrderValue   decimal.NullDecimal `json:"avg_order_value"`
	ByStatus        []StatusCount       `json:"by_status"`
}

// Total is the invariant every persisted order satisfies.
func Total(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
