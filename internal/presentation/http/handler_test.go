package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appinv "github.com/Zhima-Mochi/invoicebook/internal/application/inventory"
	appinvoice "github.com/Zhima-Mochi/invoicebook/internal/application/invoice"
	dominv "github.com/Zhima-Mochi/invoicebook/internal/domain/inventory"
	dominvoice "github.com/Zhima-Mochi/invoicebook/internal/domain/invoice"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/id"
	"github.com/Zhima-Mochi/invoicebook/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type server struct {
	t     *testing.T
	h     http.Handler
	stock *appinv.Service
	sink  *memory.ReportSink
	spans *tracetest.SpanRecorder
}

func newServer(t *testing.T, seed ...dominv.Product) *server {
	t.Helper()
	stock := appinv.NewService(memory.NewInventoryRepository(seed...), nil, nil)
	require.NoError(t, stock.Load(context.Background()))
	sink := memory.NewReportSink(dominvoice.PolicyAppend)
	invoices := appinvoice.NewService(memory.NewInvoiceRepository(), stock, sink, nil, id.NewUUIDGenerator(), nil)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return &server{
		t:     t,
		h:     NewHandler(invoices, stock, nil, WithTracerProvider(tp)).Router(),
		stock: stock,
		sink:  sink,
		spans: rec,
	}
}

func (s *server) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func widget(qty int) dominv.Product {
	return dominv.Product{Name: "Widget", Quantity: qty, UnitPrice: decimal.RequireFromString("2.50")}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rr := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(headerRequestID))
}

func TestProductsLifecycle(t *testing.T) {
	s := newServer(t)

	rr := s.do(http.MethodPost, "/products", `{"name":"Widget","quantity":3,"unit_price":2.50}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = s.do(http.MethodPost, "/products", `{"name":"Widget","quantity":5,"unit_price":9}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	got := decode[productResponse](t, rr)
	assert.Equal(t, productResponse{Name: "Widget", Quantity: 8, UnitPrice: "2.50"}, got)

	rr = s.do(http.MethodPut, "/products/Widget", `{"quantity":4,"unit_price":"3.00"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/products", "")
	list := decode[[]productResponse](t, rr)
	assert.Equal(t, []productResponse{{Name: "Widget", Quantity: 4, UnitPrice: "3.00"}}, list)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/products/Widget", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/products/Widget", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/products/Widget", "").Code)
}

func TestProductValidation(t *testing.T) {
	s := newServer(t)

	rr := s.do(http.MethodPost, "/products", `{"name":"Widget","quantity":-1,"unit_price":1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Value cannot be negative.")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/products", `{"name":"Widget","bogus":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/products", `not json`).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, s.do(http.MethodPatch, "/products", "").Code)
}

func TestInvoiceCheckout(t *testing.T) {
	s := newServer(t, widget(10))

	rr := s.do(http.MethodPost, "/invoices", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	inv := decode[invoiceResponse](t, rr)
	assert.Equal(t, dominvoice.StatusBuilding, inv.Status)
	assert.Equal(t, "/invoices/"+inv.ID, rr.Header().Get("Location"))

	rr = s.do(http.MethodPost, "/invoices/"+inv.ID+"/lines", `{"name":"Widget","quantity":4}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	inv = decode[invoiceResponse](t, rr)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, "10.00", inv.Total)

	rr = s.do(http.MethodPost, "/invoices/"+inv.ID+"/lines", `{"name":"Widget","quantity":7}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = s.do(http.MethodPost, "/invoices/"+inv.ID+"/lines", `{"name":"Gizmo","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = s.do(http.MethodGet, "/invoices/"+inv.ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, decode[invoiceResponse](t, rr).Report, "Grand Total: $10.00")

	rr = s.do(http.MethodPost, "/invoices/"+inv.ID+"/commit", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[commitResponse](t, rr)
	assert.Equal(t, "10.00", res.Total)
	assert.Contains(t, s.sink.Content(), "Grand Total: $10.00")

	p, ok := s.stock.Find("Widget")
	require.True(t, ok)
	assert.Equal(t, 6, p.Quantity)

	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/invoices/"+inv.ID+"/commit", "").Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodDelete, "/invoices/"+inv.ID, "").Code)
}

func TestEmptyInvoiceCommitIsRejected(t *testing.T) {
	s := newServer(t, widget(10))

	inv := decode[invoiceResponse](t, s.do(http.MethodPost, "/invoices", ""))
	rr := s.do(http.MethodPost, "/invoices/"+inv.ID+"/commit", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, s.sink.Content())

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/invoices/"+inv.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/invoices/"+inv.ID, "").Code)
}

func TestServerSpansUseRouteTemplate(t *testing.T) {
	s := newServer(t, widget(1))
	s.do(http.MethodGet, "/products/Widget", "")

	ended := s.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "/products/{name}", ended[0].Name())
}

func TestProductRoutesAbsentWithoutInventory(t *testing.T) {
	invoices := appinvoice.NewService(memory.NewInvoiceRepository(), nil, memory.NewReportSink(""), nil, id.NewUUIDGenerator(), nil)
	h := NewHandler(invoices, nil, nil).Router()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
