package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	appinv "github.com/Zhima-Mochi/invoicebook/internal/application/inventory"
	appinvoice "github.com/Zhima-Mochi/invoicebook/internal/application/invoice"
	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	"github.com/Zhima-Mochi/invoicebook/internal/observability"
	"github.com/Zhima-Mochi/invoicebook/internal/observability/logctx"
	"github.com/Zhima-Mochi/invoicebook/internal/presentation/form"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type Inventory interface {
	AddProduct(ctx context.Context, p dominv.Product) (dominv.Product, error)
	UpdateProduct(ctx context.Context, in appinv.UpdateProductInput) (dominv.Product, error)
	RemoveProduct(ctx context.Context, name string) error
	GetProduct(ctx context.Context, name string) (dominv.Product, error)
	ListProducts(ctx context.Context) []dominv.Product
}

type Invoices interface {
	Open(ctx context.Context) (*dominvoice.Invoice, error)
	AddLine(ctx context.Context, id string, in appinvoice.AddLineInput) (*dominvoice.Invoice, error)
	Get(ctx context.Context, id string) (*dominvoice.Invoice, error)
	Render(ctx context.Context, id string) (string, error)
	Commit(ctx context.Context, id string) (*appinvoice.CommitResult, error)
	Discard(ctx context.Context, id string) error
}

type Handler struct {
	invoices  Invoices
	inventory Inventory
	log       observability.Logger
	tracer    trace.Tracer

	reqCounter   observability.Counter   // http_requests_total{route,method,status}
	durHistogram observability.Histogram // http_request_duration_seconds{route,method}
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	tracerName           = "invoicebook.http"
)

type Option func(*Handler)

// WithTracerProvider replaces the global tracer provider for server spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) { h.tracer = tp.Tracer(tracerName) }
}

// NewHandler serves the invoice routes, and the product routes when inventory is non-nil.
func NewHandler(invoices Invoices, inventory Inventory, tel observability.Observability, opts ...Option) *Handler {
	tel = observability.OrNop(tel)
	h := &Handler{
		invoices:     invoices,
		inventory:    inventory,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tracer:       otel.Tracer(tracerName),
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Trace → request logger → metrics → access log → handler
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	if h.inventory != nil {
		h.muxHandle(mux, http.MethodGet, "/products", h.handleListProducts)
		h.muxHandle(mux, http.MethodPost, "/products", h.handleAddProduct)
		h.muxHandle(mux, http.MethodGet, "/products/{name}", h.handleGetProduct)
		h.muxHandle(mux, http.MethodPut, "/products/{name}", h.handleUpdateProduct)
		h.muxHandle(mux, http.MethodDelete, "/products/{name}", h.handleRemoveProduct)
	}

	h.muxHandle(mux, http.MethodPost, "/invoices", h.handleOpenInvoice)
	h.muxHandle(mux, http.MethodGet, "/invoices/{id}", h.handleGetInvoice)
	h.muxHandle(mux, http.MethodDelete, "/invoices/{id}", h.handleDiscardInvoice)
	h.muxHandle(mux, http.MethodPost, "/invoices/{id}/lines", h.handleAddLine)
	h.muxHandle(mux, http.MethodPost, "/invoices/{id}/commit", h.handleCommitInvoice)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	pattern := method + " " + route
	wrapped := h.withTrace(
		ObservabilityMiddleware(h.log, func(r *http.Request) string {
			return r.Header.Get(headerRequestID)
		})(
			h.withHTTPMetrics(
				h.withAccessLog(handler),
			),
		),
	)
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		// Stable route template keeps metric labels low-cardinality.
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type productRequest struct {
	Name      string      `json:"name"`
	Quantity  json.Number `json:"quantity"`
	UnitPrice json.Number `json:"unit_price"`
}

type productResponse struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

func toProductResponse(p dominv.Product) productResponse {
	return productResponse{Name: p.Name, Quantity: p.Quantity, UnitPrice: p.UnitPrice.StringFixed(2)}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.inventory.ListProducts(r.Context())
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := form.ParseProduct(req.Name, req.Quantity.String(), req.UnitPrice.String())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	stored, err := h.inventory.AddProduct(r.Context(), in.Product())
	if err != nil {
		h.logFailure(r, "add_product_failed", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(stored))
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.inventory.GetProduct(r.Context(), r.PathValue("name"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := form.ParseProduct(r.PathValue("name"), req.Quantity.String(), req.UnitPrice.String())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	stored, err := h.inventory.UpdateProduct(r.Context(), appinv.UpdateProductInput{
		Name:      in.Name,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
	})
	if err != nil {
		h.logFailure(r, "update_product_failed", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(stored))
}

func (h *Handler) handleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.inventory.RemoveProduct(r.Context(), r.PathValue("name")); err != nil {
		h.logFailure(r, "remove_product_failed", err)
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type lineResponse struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type invoiceResponse struct {
	ID          string            `json:"id"`
	Status      dominvoice.Status `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	CommittedAt *time.Time        `json:"committed_at,omitempty"`
	Lines       []lineResponse    `json:"lines"`
	Total       string            `json:"total"`
	Report      string            `json:"report,omitempty"`
}

func toInvoiceResponse(inv *dominvoice.Invoice) invoiceResponse {
	lines := inv.Lines()
	out := invoiceResponse{
		ID:        inv.ID,
		Status:    inv.Status,
		CreatedAt: inv.CreatedAt,
		Lines:     make([]lineResponse, 0, len(lines)),
		Total:     inv.Total().StringFixed(2),
	}
	if !inv.CommittedAt.IsZero() {
		at := inv.CommittedAt
		out.CommittedAt = &at
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, lineResponse{
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.StringFixed(2),
			LineTotal: l.LineTotal().StringFixed(2),
		})
	}
	return out
}

func (h *Handler) handleOpenInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.Open(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/invoices/"+inv.ID)
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := toInvoiceResponse(inv)
	if resp.Report, err = h.invoices.Render(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDiscardInvoice(w http.ResponseWriter, r *http.Request) {
	if err := h.invoices.Discard(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addLineRequest struct {
	Name      string      `json:"name"`
	Quantity  json.Number `json:"quantity"`
	UnitPrice json.Number `json:"unit_price,omitempty"`
}

func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name, err := form.ParseName(req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	qty, err := form.ParseQuantity(req.Quantity.String())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	in := appinvoice.AddLineInput{Name: name, Quantity: qty}
	if req.UnitPrice != "" {
		var price decimal.Decimal
		if price, err = form.ParsePrice(req.UnitPrice.String()); err != nil {
			writeDomainError(w, err)
			return
		}
		in.UnitPrice = &price
	}

	inv, err := h.invoices.AddLine(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

type commitResponse struct {
	InvoiceID string `json:"invoice_id"`
	Total     string `json:"total"`
	Report    string `json:"report"`
}

func (h *Handler) handleCommitInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.invoices.Commit(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logFailure(r, "commit_invoice_failed", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{
		InvoiceID: res.InvoiceID,
		Total:     res.Total.StringFixed(2),
		Report:    res.Report,
	})
}

func (h *Handler) logFailure(r *http.Request, msg string, err error) {
	if statusFor(err) < http.StatusInternalServerError {
		return
	}
	logctx.FromOr(r.Context(), h.log).Error(msg, observability.F("error", err))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dominvoice.ErrNotFound),
		errors.Is(err, dominv.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dominv.ErrInsufficientStock),
		errors.Is(err, dominvoice.ErrCommitted):
		return http.StatusConflict
	case errors.Is(err, dominv.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics and logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
