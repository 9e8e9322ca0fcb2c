package httpx

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/tables"
)

type TableStore interface {
	List(ctx context.Context, t tables.Table, limit, offset int) ([]tables.Row, error)
	Get(ctx context.Context, t tables.Table, id any) (tables.Row, error)
	Insert(ctx context.Context, t tables.Table, body map[string]any) (tables.Row, error)
	Update(ctx context.Context, t tables.Table, id any, body map[string]any) (int64, error)
	Delete(ctx context.Context, t tables.Table, id any) (int64, error)
}

type TablesHandler struct {
	Store   TableStore
	Log     log.FieldLogger
	Timeout time.Duration
}

func (h *TablesHandler) Register(r chi.Router) {
	r.Get("/{table}", h.list)
	r.Post("/{table}", h.insert)
	r.Get("/{table}/{id}", h.get)
	r.Put("/{table}/{id}", h.update)
	r.Delete("/{table}/{id}", h.delete)
}

// target resolves the table and, when the route has one, the typed key.
func (h *TablesHandler) target(r *http.Request) (tables.Table, any, error) {
	t, err := tables.Lookup(chi.URLParam(r, "table"))
	if err != nil {
		return tables.Table{}, nil, err
	}
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return t, nil, nil
	}
	id, err := t.ParseKey(raw)
	return t, id, err
}

func nonNegative(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("invalid %s %q", name, raw)
	}
	return n, nil
}

func (h *TablesHandler) list(w http.ResponseWriter, r *http.Request) {
	t, _, err := h.target(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	limit, err := nonNegative(r, "limit")
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	offset, err := nonNegative(r, "offset")
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rows, err := h.Store.List(ctx, t, limit, offset)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *TablesHandler) get(w http.ResponseWriter, r *http.Request) {
	t, id, err := h.target(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	row, err := h.Store.Get(ctx, t, id)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *TablesHandler) insert(w http.ResponseWriter, r *http.Request) {
	t, _, err := h.target(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	row, err := h.Store.Insert(ctx, t, body)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *TablesHandler) update(w http.ResponseWriter, r *http.Request) {
	t, id, err := h.target(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	var body map[string]any
	if err := decodeJSON(w, r, &body); err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	n, err := h.Store.Update(ctx, t, id, body)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"affectedRows": n})
}

func (h *TablesHandler) delete(w http.ResponseWriter, r *http.Request) {
	t, id, err := h.target(r)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	n, err := h.Store.Delete(ctx, t, id)
	if err != nil {
		writeErr(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"affectedRows": n})
}
