package tables

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/orders"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"customers", "games", "products", "users", "order_items"} {
		tbl, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "id", tbl.PrimaryKey)
	}

	for _, name := range []string{"orders", "refunds", "pg_user", `users"; DROP TABLE users; --`} {
		_, err := Lookup(name)
		assert.ErrorIs(t, err, apperr.ErrNotFound, name)
	}
}

func TestUsersNeverExposePasswordHash(t *testing.T) {
	tbl, _ := Lookup("users")
	_, ok := tbl.Column("password_hash")
	assert.False(t, ok)

	_, _, err := tbl.Assignments(map[string]any{"password_hash": "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestColumnCoerce(t *testing.T) {
	cases := []struct {
		name string
		col  Column
		in   any
		want any
		err  bool
	}{
		{"int from json number", col("quantity", KindInt), json.Number("3"), int64(3), false},
		{"int from integral float", col("quantity", KindInt), float64(3), int64(3), false},
		{"int from path string", col("id", KindInt), "42", int64(42), false},
		{"int rejects fraction", col("quantity", KindInt), json.Number("1.5"), nil, true},
		{"int rejects text", col("quantity", KindInt), "abc", nil, true},
		{"text", col("name", KindText), "Mobile Legends", "Mobile Legends", false},
		{"text rejects number", col("name", KindText), json.Number("1"), nil, true},
		{"decimal from number", col("price", KindDecimal), json.Number("10.50"), decimal.RequireFromString("10.50"), false},
		{"decimal from string", col("price", KindDecimal), "0.10", decimal.RequireFromString("0.10"), false},
		{"bool", col("active", KindBool), true, true, false},
		{"date only", col("at", KindTime), "2026-01-02", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"null on nullable", nullable("email", KindText), nil, nil, false},
		{"null on required", col("name", KindText), nil, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.col.Coerce(tc.in)
			if tc.err {
				assert.ErrorIs(t, err, apperr.ErrValidation)
				return
			}
			require.NoError(t, err)
			if d, ok := tc.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(got.(decimal.Decimal)))
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAssignments(t *testing.T) {
	tbl, _ := Lookup("products")

	cols, vals, err := tbl.Assignments(map[string]any{"price": json.Number("5"), "name": "Diamonds x50"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price"}, cols)
	assert.Equal(t, "Diamonds x50", vals[0])

	_, _, err = tbl.Assignments(map[string]any{"id": json.Number("9")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = tbl.Assignments(map[string]any{"colour": "red"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, _, err = tbl.Assignments(map[string]any{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func newStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &Store{DB: mock}, mock
}

func TestStore_List(t *testing.T) {
	s, mock := newStore(t)
	tbl, _ := Lookup("games")
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "name", "platform", "created_at", "updated_at" FROM "games" ORDER BY "id" LIMIT $1 OFFSET $2`)).
		WithArgs(10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "platform", "created_at", "updated_at"}).
			AddRow(int64(1), "Genshin Impact", "mobile", now, now))

	rows, err := s.List(context.Background(), tbl, 10, 20)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Genshin Impact", rows[0]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update(t *testing.T) {
	s, mock := newStore(t)
	tbl, _ := Lookup("customers")

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "customers" SET "name" = $1, "phone" = $2, "updated_at" = NOW() WHERE "id" = $3`)).
		WithArgs("Budi", "0812", int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := s.Update(context.Background(), tbl, int64(7), map[string]any{"phone": "0812", "name": "Budi"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteMissingRow(t *testing.T) {
	s, mock := newStore(t)
	tbl, _ := Lookup("games")

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "games" WHERE "id" = $1`)).
		WithArgs(int64(99)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	_, err := s.Delete(context.Background(), tbl, int64(99))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	lockOrderSQL  = `SELECT status FROM orders WHERE id = $1 FOR UPDATE`
	itemParentSQL = `SELECT "order_id" FROM "order_items" WHERE "id" = $1`
)

func statusRow(s orders.Status) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"status"}).AddRow(s)
}

func TestStore_OrderItems(t *testing.T) {
	tbl, _ := Lookup("order_items")
	item := map[string]any{
		"order_id": json.Number("99"), "product_id": json.Number("7"),
		"quantity": json.Number("2"), "unit_price": json.Number("10.00"),
	}

	t.Run("insert into a completed order is refused", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(int64(99)).
			WillReturnRows(statusRow(orders.StatusCompleted))
		mock.ExpectRollback()

		_, err := s.Insert(context.Background(), tbl, item)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert into a pending order", func(t *testing.T) {
		s, mock := newStore(t)
		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(int64(99)).
			WillReturnRows(statusRow(orders.StatusPending))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items" ("order_id", "product_id", "quantity", "unit_price") VALUES ($1, $2, $3, $4)`)).
			WithArgs(int64(99), int64(7), int64(2), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "order_id", "product_id", "quantity", "unit_price", "created_at"}).
				AddRow(int64(5), int64(99), int64(7), int64(2), decimal.RequireFromString("10.00"), now))
		mock.ExpectCommit()

		row, err := s.Insert(context.Background(), tbl, item)
		require.NoError(t, err)
		assert.Equal(t, int64(5), row["id"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert without order_id", func(t *testing.T) {
		s, mock := newStore(t)
		_, err := s.Insert(context.Background(), tbl, map[string]any{"quantity": json.Number("1")})
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moving an item locks both orders", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(itemParentSQL)).WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"order_id"}).AddRow(int64(99)))
		mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(int64(42)).
			WillReturnRows(statusRow(orders.StatusConfirmed))
		mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(int64(99)).
			WillReturnRows(statusRow(orders.StatusPending))
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE "order_items" SET "order_id" = $1 WHERE "id" = $2 AND "order_id" = $3`)).
			WithArgs(int64(42), int64(5), int64(99)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		n, err := s.Update(context.Background(), tbl, int64(5), map[string]any{"order_id": json.Number("42")})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update of an item on a refunded order is refused", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(itemParentSQL)).WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"order_id"}).AddRow(int64(99)))
		mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(int64(99)).
			WillReturnRows(statusRow(orders.StatusRefunded))
		mock.ExpectRollback()

		_, err := s.Update(context.Background(), tbl, int64(5), map[string]any{"quantity": json.Number("3")})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete of a missing item", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(itemParentSQL)).WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"order_id"}))
		mock.ExpectRollback()

		_, err := s.Delete(context.Background(), tbl, int64(5))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete from a confirmed order", func(t *testing.T) {
		s, mock := newStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(itemParentSQL)).WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"order_id"}).AddRow(int64(99)))
		mock.ExpectQuery(regexp.QuoteMeta(lockOrderSQL)).WithArgs(int64(99)).
			WillReturnRows(statusRow(orders.StatusConfirmed))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "order_items" WHERE "id" = $1 AND "order_id" = $2`)).
			WithArgs(int64(5), int64(99)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectCommit()

		n, err := s.Delete(context.Background(), tbl, int64(5))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_InsertUsersRefused(t *testing.T) {
	s, mock := newStore(t)
	tbl, _ := Lookup("users")

	_, err := s.Insert(context.Background(), tbl, map[string]any{"email": "a@b.c"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseKey(t *testing.T) {
	tbl, _ := Lookup("games")
	id, err := tbl.ParseKey("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	_, err = tbl.ParseKey("12; DROP TABLE games")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
