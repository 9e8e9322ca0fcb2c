// Package tables serves generic CRUD over an allow-list of reference tables.
// Identifiers only ever come from the registry below; values are always bound.
package tables

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
)

type Kind int

const (
	KindInt Kind = iota
	KindText
	KindDecimal
	KindBool
	KindTime
)

type Column struct {
	Name     string
	Kind     Kind
	Writable bool
	Nullable bool
}

type Table struct {
	Name       string
	PrimaryKey string
	Columns    []Column
	// NoInsert carries the reason rows of this table cannot be created here.
	NoInsert string
	// ParentOrder names the column referencing orders. Writes lock that order
	// and require its items to be editable.
	ParentOrder string
}

func col(name string, kind Kind) Column { return Column{Name: name, Kind: kind, Writable: true} }
func nullable(name string, kind Kind) Column { return Column{Name: name, Kind: kind, Writable: true, Nullable: true} }
func readOnly(name string, kind Kind) Column { return Column{Name: name, Kind: kind, Nullable: true} }
func stamps() []Column { return []Column{readOnly("created_at", KindTime), readOnly("updated_at", KindTime)} }
func with(cols []Column, more ...Column) []Column { return append(cols, more...) }

var registry = map[string]Table{
	"customers": {
		Name: "customers", PrimaryKey: "id",
		Columns: with([]Column{readOnly("id", KindInt), col("name", KindText), nullable("email", KindText), nullable("phone", KindText)}, stamps()...),
	},
	"games": {
		Name: "games", PrimaryKey: "id",
		Columns: with([]Column{readOnly("id", KindInt), col("name", KindText), nullable("platform", KindText)}, stamps()...),
	},
	"products": {
		Name: "products", PrimaryKey: "id",
		Columns: with([]Column{
			readOnly("id", KindInt), nullable("game_id", KindInt), col("name", KindText),
			nullable("description", KindText), col("price", KindDecimal),
		}, stamps()...),
	},
	"users": {
		Name: "users", PrimaryKey: "id",
		Columns: with([]Column{
			readOnly("id", KindInt), col("email", KindText), col("name", KindText), col("role", KindText),
			col("status", KindText), readOnly("last_login_at", KindTime),
		}, stamps()...),
		NoInsert: "users are created with `topupctl user create`",
	},
	"order_items": {
		Name: "order_items", PrimaryKey: "id",
		Columns: []Column{
			readOnly("id", KindInt), col("order_id", KindInt), col("product_id", KindInt),
			col("quantity", KindInt), col("unit_price", KindDecimal), readOnly("created_at", KindTime),
		},
		ParentOrder: "order_id",
	},
}

// Lookup returns the schema of an allow-listed table.
func Lookup(name string) (Table, error) {
	t, ok := registry[name]
	if !ok {
		return Table{}, apperr.NotFound("table %q not found", name)
	}
	return t, nil
}

func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) hasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ParseKey coerces a path id to the primary key's kind.
func (t Table) ParseKey(raw string) (any, error) {
	pk, _ := t.Column(t.PrimaryKey)
	v, err := pk.Coerce(raw)
	if err != nil || v == nil {
		return nil, apperr.Validation("invalid id %q", raw)
	}
	return v, nil
}

// Assignments validates body against the writable columns and returns the
// columns in schema order with their coerced values.
func (t Table) Assignments(body map[string]any) ([]string, []any, error) {
	for k := range body {
		c, ok := t.Column(k)
		if !ok {
			return nil, nil, apperr.Validation("unknown column %q for table %s", k, t.Name)
		}
		if !c.Writable {
			return nil, nil, apperr.Validation("column %q is read-only", k)
		}
	}

	var (
		cols []string
		vals []any
	)
	for _, c := range t.Columns {
		raw, ok := body[c.Name]
		if !ok {
			continue
		}
		v, err := c.Coerce(raw)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, c.Name)
		vals = append(vals, v)
	}
	if len(cols) == 0 {
		return nil, nil, apperr.Validation("no valid fields")
	}
	return cols, vals, nil
}

// Coerce converts a decoded JSON value (or a path string) to the column's Go type.
func (c Column) Coerce(raw any) (any, error) {
	if raw == nil {
		if !c.Nullable {
			return nil, apperr.Validation("column %q cannot be null", c.Name)
		}
		return nil, nil
	}

	bad := func() error { return apperr.Validation("invalid value for column %q", c.Name) }

	switch c.Kind {
	case KindInt:
		switch v := raw.(type) {
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, bad()
			}
			return n, nil
		case float64:
			if v != float64(int64(v)) {
				return nil, bad()
			}
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, bad()
			}
			return n, nil
		}
	case KindText:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case KindDecimal:
		switch v := raw.(type) {
		case json.Number:
			d, err := decimal.NewFromString(v.String())
			if err != nil {
				return nil, bad()
			}
			return d, nil
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(v))
			if err != nil {
				return nil, bad()
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(v), nil
		}
	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, bad()
			}
			return b, nil
		}
	case KindTime:
		if v, ok := raw.(string); ok {
			for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
				if ts, err := time.Parse(layout, v); err == nil {
					return ts, nil
				}
			}
		}
	}
	return nil, bad()
}
