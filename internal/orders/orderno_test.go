package orders

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewOrderNo(t *testing.T) {
	re := regexp.MustCompile(`^ORD-\d{14}-\d+$`)
	now := time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)

	no := NewOrderNo(now)
	assert.Regexp(t, re, no)
	assert.True(t, strings.HasPrefix(no, "ORD-20260309140507-"), no)
}

func TestTotal(t *testing.T) {
	assert.True(t, decimal.RequireFromString("30.00").Equal(Total(decimal.RequireFromString("10.00"), 3)))
	assert.True(t, decimal.RequireFromString("0.30").Equal(Total(decimal.RequireFromString("0.10"), 3)))
}
