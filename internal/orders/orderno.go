package orders

import (
	"fmt"
	"math/rand"
	"time"
)

// NewOrderNo formats ORD-YYYYMMDDHHmmss-NNNNNN. Uniqueness is enforced by the
// orders_order_no_key constraint, not by this function.
func NewOrderNo(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%06d", now.Format("20060102150405"), rand.Intn(1_000_000))
}
