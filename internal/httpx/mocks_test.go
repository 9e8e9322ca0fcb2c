package httpx

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ariefcatur/game-topup-api/internal/auth"
	"github.com/ariefcatur/game-topup-api/internal/lifecycle"
	"github.com/ariefcatur/game-topup-api/internal/orders"
	"github.com/ariefcatur/game-topup-api/internal/refunds"
	"github.com/ariefcatur/game-topup-api/internal/tables"
)

type mockOrders struct{ mock.Mock }

func (m *mockOrders) List(ctx context.Context, f orders.ListFilter) ([]orders.View, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]orders.View), args.Error(1)
}

func (m *mockOrders) Get(ctx context.Context, id int64) (orders.View, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(orders.View), args.Error(1)
}

func (m *mockOrders) Create(ctx context.Context, in orders.CreateInput) (orders.Order, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(orders.Order), args.Error(1)
}

func (m *mockOrders) UpdateStatus(ctx context.Context, id int64, to orders.Status, notes *string) (orders.Status, error) {
	args := m.Called(ctx, id, to, notes)
	return args.Get(0).(orders.Status), args.Error(1)
}

func (m *mockOrders) Update(ctx context.Context, id int64, in orders.UpdateInput) (orders.Order, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(orders.Order), args.Error(1)
}

func (m *mockOrders) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOrders) Summary(ctx context.Context, from, to *time.Time) (orders.Summary, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(orders.Summary), args.Error(1)
}

type mockRefunds struct{ mock.Mock }

func (m *mockRefunds) List(ctx context.Context, f refunds.ListFilter) ([]refunds.View, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]refunds.View), args.Error(1)
}

func (m *mockRefunds) Get(ctx context.Context, id int64) (refunds.View, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(refunds.View), args.Error(1)
}

func (m *mockRefunds) Create(ctx context.Context, in refunds.CreateInput) (refunds.Refund, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(refunds.Refund), args.Error(1)
}

func (m *mockRefunds) UpdateStatus(ctx context.Context, id int64, in refunds.StatusInput) (refunds.StatusResult, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(refunds.StatusResult), args.Error(1)
}

func (m *mockRefunds) Update(ctx context.Context, id int64, in refunds.UpdateInput) (refunds.Refund, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(refunds.Refund), args.Error(1)
}

func (m *mockRefunds) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type mockTables struct{ mock.Mock }

func (m *mockTables) List(ctx context.Context, t tables.Table, limit, offset int) ([]tables.Row, error) {
	args := m.Called(ctx, t.Name, limit, offset)
	return args.Get(0).([]tables.Row), args.Error(1)
}

func (m *mockTables) Get(ctx context.Context, t tables.Table, id any) (tables.Row, error) {
	args := m.Called(ctx, t.Name, id)
	return args.Get(0).(tables.Row), args.Error(1)
}

func (m *mockTables) Insert(ctx context.Context, t tables.Table, body map[string]any) (tables.Row, error) {
	args := m.Called(ctx, t.Name, body)
	return args.Get(0).(tables.Row), args.Error(1)
}

func (m *mockTables) Update(ctx context.Context, t tables.Table, id any, body map[string]any) (int64, error) {
	args := m.Called(ctx, t.Name, id, body)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTables) Delete(ctx context.Context, t tables.Table, id any) (int64, error) {
	args := m.Called(ctx, t.Name, id)
	return args.Get(0).(int64), args.Error(1)
}

type mockLogin struct{ mock.Mock }

func (m *mockLogin) Login(ctx context.Context, email, password string) (auth.LoginResult, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.LoginResult), args.Error(1)
}

type recordedEvents struct {
	mu  sync.Mutex
	got []lifecycle.Event
}

func (r *recordedEvents) Publish(_ context.Context, ev lifecycle.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, ev := range r.got {
		out[i] = ev.Type
	}
	return out
}
