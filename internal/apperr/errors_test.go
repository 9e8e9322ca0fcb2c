package apperr

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestWrappedSentinels(t *testing.T) {
	err := Validation("missing field %s", "player_uid")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "missing field player_uid", Message(err))

	err = NotFound("order %d not found", 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "order 7 not found", Message(err))
}

func TestMessage_PlainError(t *testing.T) {
	assert.Equal(t, "boom", Message(errors.New("boom")))
}

func TestFromPg(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_no_key", Detail: "Key (order_no) already exists."}
	assert.ErrorIs(t, FromPg(unique), ErrConflict)
	assert.True(t, IsUniqueViolation(errors.Wrap(unique, "insert"), "orders_order_no_key"))
	assert.False(t, IsUniqueViolation(unique, "users_email_key"))

	fk := &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
	assert.ErrorIs(t, FromPg(fk), ErrValidation)

	overflow := &pgconn.PgError{Code: "22003", Message: "numeric field overflow"}
	assert.ErrorIs(t, FromPg(overflow), ErrValidation)
	assert.Equal(t, "numeric field overflow", Message(FromPg(overflow)))

	other := &pgconn.PgError{Code: "57014"}
	assert.Same(t, other, FromPg(other))
}
