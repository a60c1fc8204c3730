package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/eencloud/goeen/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/core"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/printing"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/settings"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/transport"
)

func testLogger() *log.Logger {
	ctx := log.NewContext(os.Stderr, "", log.LevelError)
	return ctx.GetLogger("test", log.LevelError)
}

// fakeTransport stands in for the network printer so sales tests run
// without sockets.
type fakeTransport struct {
	sendErr error
	jobs    []*transport.Job
}

func (t *fakeTransport) Name() string { return transport.NetworkName }

func (t *fakeTransport) Send(job *transport.Job) error {
	t.jobs = append(t.jobs, job)
	return t.sendErr
}

type fixture struct {
	server  *Server
	store   *core.Store
	printer *fakeTransport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()

	store, err := core.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	printer := &fakeTransport{}
	registry := transport.NewRegistry()
	registry.Register(transport.NetworkName, func(l *log.Logger, cfg transport.Config) (transport.Transport, error) {
		return printer, nil
	})

	sm := settings.NewManager(logger, store)
	dispatcher := printing.NewDispatcher(logger, registry, nil)
	journal := core.NewReceiptJournal(t.TempDir(), 10, logger)

	return &fixture{
		server:  NewServer(":0", logger, sm, store, dispatcher, journal),
		store:   store,
		printer: printer,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestProducts_ListSeeded(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var products []core.Product
	decode(t, rec, &products)
	require.Len(t, products, 3)
	assert.Equal(t, "Burguer Classico", products[0].Name)
}

func TestProducts_AddConflictAndDelete(t *testing.T) {
	f := newFixture(t)

	body := map[string]interface{}{"code": "010", "name": "Suco Natural", "price": "7.50"}
	rec := f.do(t, http.MethodPost, "/products", body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/products", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/products/010", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/products/010", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_MissingFieldsRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/products", map[string]string{"code": "020"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings_GetAndUpdate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var all map[string]string
	decode(t, rec, &all)
	assert.Equal(t, "Minha Loja", all[settings.KeyStoreName])

	rec = f.do(t, http.MethodPost, "/settings", map[string]string{settings.KeyStoreName: "Burger House"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &all)
	assert.Equal(t, "Burger House", all[settings.KeyStoreName])
}

func TestSettings_UnknownKeyRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/settings", map[string]string{"printer_speed": "fast"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSale_PrintsAndStores(t *testing.T) {
	f := newFixture(t)

	body := saleRequest{
		Items: []saleItemRequest{
			{Code: "001", Quantity: 2},
			{Code: "003", Quantity: 1},
		},
		Payment: "Dinheiro",
	}
	rec := f.do(t, http.MethodPost, "/sales", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp saleResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.SaleID)
	assert.Equal(t, "30.00", resp.Total)
	assert.True(t, resp.Printed)
	assert.Empty(t, resp.PrintError)

	require.Len(t, f.printer.jobs, 1)
	assert.Contains(t, string(f.printer.jobs[0].Rendered), "TOTAL")

	sales, err := f.store.ListSales(0)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Printed)
	assert.Equal(t, []string{"2x Burguer Classico - 25.00", "1x Refrigerante Lata - 5.00"}, sales[0].Items)
}

func TestCreateSale_PrinterDownStillStoresSale(t *testing.T) {
	f := newFixture(t)
	f.printer.sendErr = transport.NewError(transport.NetworkName, transport.KindConnectionRefused, assert.AnError)

	body := saleRequest{Items: []saleItemRequest{{Code: "002", Quantity: 1}}, Payment: "PIX"}
	rec := f.do(t, http.MethodPost, "/sales", body)
	require.Equal(t, http.StatusCreated, rec.Code, "a dead printer must not lose the sale")

	var resp saleResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Printed)
	assert.NotEmpty(t, resp.PrintError)

	sales, err := f.store.ListSales(0)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.False(t, sales[0].Printed)
	assert.NotEmpty(t, sales[0].PrintError)
}

func TestCreateSale_UnknownPaymentRejected(t *testing.T) {
	f := newFixture(t)

	body := saleRequest{Items: []saleItemRequest{{Code: "001", Quantity: 1}}, Payment: "Cheque"}
	rec := f.do(t, http.MethodPost, "/sales", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.printer.jobs)
}

func TestCreateSale_UnknownProductRejected(t *testing.T) {
	f := newFixture(t)

	body := saleRequest{Items: []saleItemRequest{{Code: "999", Quantity: 1}}, Payment: "Dinheiro"}
	rec := f.do(t, http.MethodPost, "/sales", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	sales, err := f.store.ListSales(0)
	require.NoError(t, err)
	assert.Empty(t, sales, "a rejected sale must not be stored")
}

func TestCreateSale_EmptyCartRejected(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/sales", saleRequest{Payment: "Dinheiro"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSale_InvalidPortConfigJournaledWithoutIO(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetSetting(settings.KeyPrinterPort, "not-a-port"))

	body := saleRequest{Items: []saleItemRequest{{Code: "001", Quantity: 1}}, Payment: "Cartão"}
	rec := f.do(t, http.MethodPost, "/sales", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp saleResponse
	decode(t, rec, &resp)
	assert.False(t, resp.Printed)
	assert.Contains(t, resp.PrintError, "printer_port")
	assert.Empty(t, f.printer.jobs, "broken config must not reach a transport")
}

func TestListSales_LimitValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/sales?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/sales", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sales []core.SaleRecord
	decode(t, rec, &sales)
	assert.Empty(t, sales)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics map[string]interface{}
	decode(t, rec, &metrics)
	assert.Contains(t, metrics, "service")
	assert.Contains(t, metrics, "database")
	assert.Contains(t, metrics, "printing")
	assert.Contains(t, metrics, "receipt_journal")
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodDelete, "/settings", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = f.do(t, http.MethodPut, "/sales", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
