package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/game-topup-api/internal/apperr"
	"github.com/ariefcatur/game-topup-api/internal/auth"
	"github.com/ariefcatur/game-topup-api/internal/lifecycle"
)

const defaultDBTimeout = 5 * time.Second

type Deps struct {
	Log         log.FieldLogger
	ServiceName string
	Environment string
	StartedAt   time.Time
	Tracing     bool

	Tokens  *auth.Manager
	Login   Authenticator
	Tables  TableStore
	Orders  OrderStore
	Refunds RefundStore
	Events  lifecycle.Publisher

	// DBTimeout bounds the database work of a single request.
	DBTimeout time.Duration
}

func NewRouter(d Deps) *chi.Mux {
	if d.DBTimeout <= 0 {
		d.DBTimeout = defaultDBTimeout
	}
	if d.Events == nil {
		d.Events = lifecycle.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Log), middleware.Recoverer)
	if d.Tracing {
		r.Use(tracing(d.ServiceName))
	}
	r.Use(middleware.Timeout(15 * time.Second))

	sys := &SystemHandler{Environment: d.Environment, StartedAt: d.StartedAt}
	sys.Register(r)

	(&AuthHandler{Login: d.Login, Log: d.Log, Timeout: d.DBTimeout}).Register(r)

	onErr := func(w http.ResponseWriter, _ *http.Request, err error) { writeErr(w, d.Log, err) }
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Guard(d.Tokens, onErr))
		r.Route("/orders", (&OrdersHandler{Store: d.Orders, Events: d.Events, Log: d.Log, Timeout: d.DBTimeout}).Register)
		r.Route("/refunds", (&RefundsHandler{Store: d.Refunds, Events: d.Events, Log: d.Log, Timeout: d.DBTimeout}).Register)
		(&TablesHandler{Store: d.Tables, Log: d.Log, Timeout: d.DBTimeout}).Register(r)
	})
	return r
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Validation("invalid %s %q", name, raw)
	}
	return &n, nil
}

func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

func publish(r *http.Request, events lifecycle.Publisher, ev lifecycle.Event) {
	ev.TraceID = middleware.GetReqID(r.Context())
	events.Publish(r.Context(), ev)
}
