package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/core"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/receipt"
)

var serviceStartTime = time.Now() // Track service uptime

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Products ---

func (s *Server) productsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := s.Store.ListProducts()
		if err != nil {
			s.Logger.Errorf("Failed to list products: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list products")
			return
		}
		if products == nil {
			products = []core.Product{}
		}
		writeJSON(w, http.StatusOK, products)

	case http.MethodPost:
		var p core.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if p.Code == "" || p.Name == "" {
			writeError(w, http.StatusBadRequest, "code and name are required")
			return
		}
		if err := s.Store.AddProduct(p); err != nil {
			if errors.Is(err, core.ErrProductExists) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			s.Logger.Errorf("Failed to add product %s: %v", p.Code, err)
			writeError(w, http.StatusInternalServerError, "failed to add product")
			return
		}
		writeJSON(w, http.StatusCreated, p)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) productHandler(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/products/")
	if code == "" || strings.Contains(code, "/") {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := s.Store.GetProduct(code)
		if err != nil {
			if errors.Is(err, core.ErrProductNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to get product")
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPut:
		var p core.Product
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		p.Code = code
		if err := s.Store.UpdateProduct(p); err != nil {
			if errors.Is(err, core.ErrProductNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to update product")
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodDelete:
		if err := s.Store.DeleteProduct(code); err != nil {
			if errors.Is(err, core.ErrProductNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to delete product")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Settings ---

func (s *Server) settingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.Settings.All())

	case http.MethodPost, http.MethodPut:
		var values map[string]string
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		for key, value := range values {
			if err := s.Settings.Set(key, value); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, s.Settings.All())

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- Sales ---

type saleItemRequest struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

type saleRequest struct {
	Items   []saleItemRequest `json:"items"`
	Payment string            `json:"payment"`
}

type saleResponse struct {
	SaleID     string `json:"sale_id"`
	Total      string `json:"total"`
	Printed    bool   `json:"printed"`
	PrintError string `json:"print_error,omitempty"`
}

func (s *Server) salesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSales(w, r)
	case http.MethodPost:
		s.createSale(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	sales, err := s.Store.ListSales(limit)
	if err != nil {
		s.Logger.Errorf("Failed to list sales: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list sales")
		return
	}
	if sales == nil {
		sales = []core.SaleRecord{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// createSale finalizes a sale: the record is persisted before the print
// attempt, so a dead printer never loses a sale. The print outcome is
// attached to the record afterwards and always journaled.
func (s *Server) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "sale has no items")
		return
	}
	if !receipt.KnownPayment(req.Payment) {
		writeError(w, http.StatusBadRequest, "unknown payment method: "+req.Payment)
		return
	}

	var lines []receipt.CartLine
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be positive for product "+item.Code)
			return
		}
		p, err := s.Store.GetProduct(item.Code)
		if err != nil {
			if errors.Is(err, core.ErrProductNotFound) {
				writeError(w, http.StatusBadRequest, "unknown product code: "+item.Code)
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to look up product")
			return
		}
		lines = append(lines, receipt.CartLine{
			Quantity:    item.Quantity,
			Description: p.Name,
			LineTotal:   p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	total := receipt.Sum(lines)

	items := make([]string, len(lines))
	for i, l := range lines {
		items[i] = receipt.ItemLine(l)
	}
	rec := core.SaleRecord{
		Total:   total,
		Payment: req.Payment,
		Items:   items,
	}
	if err := s.Store.SaveSale(&rec); err != nil {
		s.Logger.Errorf("Failed to store sale: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store sale")
		return
	}

	printErr := s.printSale(&rec, lines, total, req.Payment)

	rec.Printed = printErr == nil
	if printErr != nil {
		rec.PrintError = printErr.Error()
		s.Logger.Warningf("Sale %s stored but receipt not printed: %v", rec.ID, printErr)
	}
	if err := s.Store.SaveSale(&rec); err != nil {
		s.Logger.Errorf("Failed to attach print outcome to sale %s: %v", rec.ID, err)
	}

	writeJSON(w, http.StatusCreated, saleResponse{
		SaleID:     rec.ID,
		Total:      total.StringFixed(2),
		Printed:    rec.Printed,
		PrintError: rec.PrintError,
	})
}

// printSale runs the single print attempt for a stored sale and journals
// it. A broken printer configuration is journaled like a transport
// failure, without any I/O.
func (s *Server) printSale(rec *core.SaleRecord, lines []receipt.CartLine, total decimal.Decimal, payment string) error {
	store := s.Settings.StoreIdentity()
	rendered := receipt.Render(store, lines, total, payment)

	cfg, err := s.Settings.PrinterConfig()
	if err != nil {
		s.journal(rec.ID, "", rendered, err)
		return err
	}

	name := s.Dispatcher.SelectTransport(cfg)
	err = s.Dispatcher.PrintReceipt(store, lines, total, payment, cfg)
	s.journal(rec.ID, name, rendered, err)
	return err
}

func (s *Server) journal(saleID, transportName string, rendered []byte, printErr error) {
	if s.Journal == nil {
		return
	}
	if err := s.Journal.Record(saleID, transportName, rendered, printErr); err != nil {
		s.Logger.Errorf("Failed to journal receipt for sale %s: %v", saleID, err)
	}
}

// --- Metrics ---

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	var dbMetrics map[string]interface{}
	if s.Store != nil && s.Store.GetDB() != nil {
		totalKeys, totalSize := s.Store.GetDB().EstimateSize(nil)
		dbMetrics = map[string]interface{}{
			"total_keys": totalKeys,
			"size_mb":    totalSize / 1024 / 1024,
			"status":     "ok",
		}
	} else {
		dbMetrics = map[string]interface{}{
			"status": "unavailable",
		}
	}

	hostname, _ := os.Hostname()

	response := map[string]interface{}{
		"service": map[string]interface{}{
			"uptime_seconds": time.Since(serviceStartTime).Seconds(),
			"pid":            os.Getpid(),
			"hostname":       hostname,
		},
		"database":  dbMetrics,
		"timestamp": time.Now(),
	}
	if s.Dispatcher != nil {
		response["printing"] = s.Dispatcher.Health().GetStats()
	}
	if s.Journal != nil {
		response["receipt_journal"] = s.Journal.GetStats()
	}

	_ = json.NewEncoder(w).Encode(response)
	s.Logger.Info("Served metrics")
}
