package printing

import (
	"errors"
	"fmt"

	"github.com/eencloud/goeen/log"
	"github.com/shopspring/decimal"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/receipt"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/settings"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/transport"
)

// ErrTotalMismatch is returned when the declared sale total does not
// equal the sum of the line totals. Caught before any I/O so a wrong
// receipt is never printed.
var ErrTotalMismatch = errors.New("sale total does not match sum of line totals")

// PrintError is the dispatcher's unified failure, wrapping the config or
// transport error of a single print attempt.
type PrintError struct {
	Transport string
	Err       error
}

func (e *PrintError) Error() string {
	return fmt.Sprintf("print failed on %s transport: %v", e.Transport, e.Err)
}

func (e *PrintError) Unwrap() error {
	return e.Err
}

// Dispatcher turns a finalized sale into receipt bytes and delivers them
// on exactly one transport attempt. It holds no state between calls
// beyond its registry and health counters; the printer configuration is
// a per-call snapshot.
type Dispatcher struct {
	logger   *log.Logger
	registry *transport.Registry
	health   *Health
}

// NewDispatcher creates a dispatcher. A nil registry means the default
// process-wide registry; a nil health gets a private instance.
func NewDispatcher(logger *log.Logger, registry *transport.Registry, health *Health) *Dispatcher {
	if registry == nil {
		registry = transport.Default
	}
	if health == nil {
		health = NewHealth()
	}
	return &Dispatcher{logger: logger, registry: registry, health: health}
}

// PrintReceipt renders the sale and sends it to the configured printer.
//
// Transport selection, decided before any I/O begins:
//   - escpos_usb when the mode asks for it, the backend is compiled in
//     and both USB ids are configured;
//   - the network printer in every other case. The USB-to-network
//     substitution is deliberate fallback policy, not an error.
//
// A single attempt is made; failures propagate verbatim inside a
// *PrintError and there is no mid-flight failover.
func (d *Dispatcher) PrintReceipt(store receipt.StoreIdentity, lines []receipt.CartLine, total decimal.Decimal, payment string, cfg settings.PrinterConfig) error {
	if !receipt.Sum(lines).Equal(total) {
		return ErrTotalMismatch
	}

	job := &transport.Job{
		Store:    store,
		Lines:    lines,
		Total:    total,
		Payment:  payment,
		Rendered: receipt.Render(store, lines, total, payment),
	}

	name := d.SelectTransport(cfg)
	newFunc, err := d.registry.Get(name)
	if err != nil {
		d.health.RecordFailure(err)
		return &PrintError{Transport: name, Err: err}
	}
	tr, err := newFunc(d.logger, transport.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		VendorID:  cfg.VendorID,
		ProductID: cfg.ProductID,
	})
	if err != nil {
		d.health.RecordFailure(err)
		return &PrintError{Transport: name, Err: err}
	}

	if err := tr.Send(job); err != nil {
		d.health.RecordFailure(err)
		return &PrintError{Transport: tr.Name(), Err: err}
	}

	d.health.RecordSuccess()
	d.logger.Debugf("Receipt dispatched via %s transport (%d items)", tr.Name(), len(lines))
	return nil
}

// SelectTransport names the transport a print with this configuration
// would use. Exposed so callers can journal the decision.
func (d *Dispatcher) SelectTransport(cfg settings.PrinterConfig) string {
	if cfg.Mode == settings.ModeUSB && cfg.HasUSBIDs && d.registry.Available(string(settings.ModeUSB)) {
		return string(settings.ModeUSB)
	}
	return transport.NetworkName
}

// Health exposes the dispatcher's attempt counters.
func (d *Dispatcher) Health() *Health {
	return d.health
}
