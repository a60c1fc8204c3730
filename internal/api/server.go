package api

import (
	"context"
	"net/http"
	"time"

	"github.com/eencloud/goeen/log"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/core"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/printing"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/settings"
)

// Server is the register's HTTP surface: product catalog, settings,
// sale finalization and metrics.
type Server struct {
	*http.Server
	Logger     *log.Logger
	Settings   *settings.Manager
	Store      *core.Store
	Dispatcher *printing.Dispatcher
	Journal    *core.ReceiptJournal
}

// NewServer creates and configures a new server for the register front end.
func NewServer(addr string, logger *log.Logger, sm *settings.Manager, store *core.Store, dispatcher *printing.Dispatcher, journal *core.ReceiptJournal) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: &http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		Logger:     logger,
		Settings:   sm,
		Store:      store,
		Dispatcher: dispatcher,
		Journal:    journal,
	}

	mux.HandleFunc("/products", s.productsHandler)
	mux.HandleFunc("/products/", s.productHandler) // /products/<code>
	mux.HandleFunc("/settings", s.settingsHandler)
	mux.HandleFunc("/sales", s.salesHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.Logger.Infof("Starting API Server on %s", s.Addr)
	return s.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.Logger.Info("Shutting down API Server...")
	return s.Shutdown(ctx)
}
