// Package escpos is the USB ESC/POS printer backend. Importing it (a
// blank import in the main package is enough) registers the "escpos_usb"
// transport; binaries built without the import simply lack the backend
// and the dispatcher falls back to the network printer.
package escpos

import (
	"fmt"
	"io"
	"strings"

	"github.com/eencloud/goeen/log"
	"github.com/google/gousb"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/receipt"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/transport"
)

// Name is the registry name of this backend and the printer_mode setting
// value that selects it.
const Name = "escpos_usb"

func init() {
	transport.Register(Name, New)
}

// ESC/POS command bytes. Everything else the printer receives is plain text.
var (
	cmdInit = []byte{0x1b, 0x40}       // ESC @  (reset)
	cmdCut  = []byte{0x1d, 0x56, 0x00} // GS V 0 (full cut)
)

// device is the open printer handle. The gousb wiring lives behind this
// so the command sequence can be tested without hardware.
type device interface {
	io.Writer
	Close() error
}

// Printer drives a USB thermal printer identified by vendor/product ID.
// The device is opened per Send and released regardless of outcome.
type Printer struct {
	logger    *log.Logger
	vendorID  gousb.ID
	productID gousb.ID
	open      func(vid, pid gousb.ID) (device, error)
}

func New(logger *log.Logger, cfg transport.Config) (transport.Transport, error) {
	return &Printer{
		logger:    logger,
		vendorID:  gousb.ID(cfg.VendorID),
		productID: gousb.ID(cfg.ProductID),
		open:      openUSB,
	}, nil
}

func (p *Printer) Name() string {
	return Name
}

// Send opens the device and issues the receipt command sequence: store
// name, separator, one line per item, separator, total, payment, cut.
func (p *Printer) Send(job *transport.Job) error {
	dev, err := p.open(p.vendorID, p.productID)
	if err != nil {
		return err
	}
	defer func() { _ = dev.Close() }()

	separator := strings.Repeat("-", receipt.Width)

	w := &commandWriter{dev: dev}
	w.raw(cmdInit)
	w.text(job.Store.Name)
	w.text(separator)
	for _, line := range job.Lines {
		w.text(receipt.ItemLine(line))
	}
	w.text(separator)
	w.text("TOTAL: " + job.Total.StringFixed(2))
	w.text("Pagamento: " + job.Payment)
	w.raw(cmdCut)

	if w.err != nil {
		return transport.NewError(Name, transport.KindIOError, w.err)
	}

	p.logger.Debugf("Receipt cut on USB printer %s:%s (%d items)",
		p.vendorID, p.productID, len(job.Lines))
	return nil
}

// commandWriter issues the sequence, remembering the first failure so the
// call sites stay flat.
type commandWriter struct {
	dev io.Writer
	err error
}

func (w *commandWriter) raw(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.dev.Write(b)
}

func (w *commandWriter) text(line string) {
	w.raw([]byte(line + "\n"))
}

// usbDevice bundles the gousb handles that must be torn down together.
type usbDevice struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	out  *gousb.OutEndpoint
}

func (d *usbDevice) Write(p []byte) (int, error) {
	return d.out.Write(p)
}

func (d *usbDevice) Close() error {
	if d.done != nil {
		d.done()
	}
	devErr := d.dev.Close()
	ctxErr := d.ctx.Close()
	if devErr != nil {
		return devErr
	}
	return ctxErr
}

func openUSB(vid, pid gousb.ID) (device, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(vid, pid)
	if err != nil {
		_ = ctx.Close()
		return nil, transport.NewError(Name, transport.KindIOError, err)
	}
	if dev == nil {
		_ = ctx.Close()
		return nil, transport.NewError(Name, transport.KindDeviceNotFound,
			fmt.Errorf("no USB device %s:%s", vid, pid))
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		_ = dev.Close()
		_ = ctx.Close()
		return nil, transport.NewError(Name, transport.KindIOError, err)
	}

	out, err := firstOutEndpoint(intf)
	if err != nil {
		done()
		_ = dev.Close()
		_ = ctx.Close()
		return nil, transport.NewError(Name, transport.KindIOError, err)
	}

	return &usbDevice{ctx: ctx, dev: dev, done: done, out: out}, nil
}

func firstOutEndpoint(intf *gousb.Interface) (*gousb.OutEndpoint, error) {
	for _, ep := range intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut {
			return intf.OutEndpoint(ep.Number)
		}
	}
	return nil, fmt.Errorf("interface %d has no OUT endpoint", intf.Setting.Number)
}
