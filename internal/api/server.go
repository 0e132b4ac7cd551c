// Package api implements the HTTP layer of the paid-message service.
// Handlers are methods on *Server. Each handler file is responsible for one
// resource group and only imports the dependencies it actually uses.
package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nyashahama/ironic-mailer-backend/internal/email"
	"github.com/nyashahama/ironic-mailer-backend/internal/store"
	stripeinternal "github.com/nyashahama/ironic-mailer-backend/internal/stripe"
)

// Order modes, mirrored from config so api does not import it.
const (
	OrderModeMetadata = "metadata"
	OrderModeStore    = "store"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// BaseURL prefixes the Checkout success and cancel URLs.
	// When empty it is derived from the incoming request.
	BaseURL string

	// StripeWebhookSecret is the signing secret from the Stripe dashboard.
	StripeWebhookSecret string

	// Env is "production", "staging", or "development".
	Env string

	Currency           string
	PriceCustom        int64 // minor units
	PriceTemplate      int64 // minor units
	ProductName        string
	ProductDescription string

	// OrderMode is OrderModeMetadata or OrderModeStore.
	OrderMode string

	// EmailToName fills the to_name template variable.
	EmailToName string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// stripe creates Checkout sessions and verifies webhook signatures.
	stripe stripeinternal.Client

	// mailer delivers the paid message.
	mailer email.Sender

	// orders holds intents in store mode. The webhook also consults it in
	// metadata mode when an event carries an order_id.
	orders store.OrderStore

	// ledger remembers handled webhook events.
	ledger store.EventLedger

	// pages serves index, success and cancel.
	pages fs.FS

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	stripeClient stripeinternal.Client,
	mailer email.Sender,
	orders store.OrderStore,
	ledger store.EventLedger,
	pages fs.FS,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		stripe: stripeClient,
		mailer: mailer,
		orders: orders,
		ledger: ledger,
		pages:  pages,
		cfg:    cfg,
		logger: logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(blockBrackets)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── Stripe ────────────────────────────────────────────────────────────────
	r.Route("/api/stripe", func(r chi.Router) {
		r.Post("/create-session", s.handleCreateSession)

		// No auth: signature verification inside the handler.
		r.Post("/webhook", s.handleStripeWebhook)
	})

	// ── Pages ─────────────────────────────────────────────────────────────────
	r.Get("/success", s.servePage("success.html"))
	r.Get("/cancel", s.servePage("cancel.html"))

	// Everything else is a static file or the order form.
	r.NotFound(s.handleFallback)
	r.MethodNotAllowed(s.handleFallback)

	return r
}
