// print-test renders a sample sale and pushes it through a transport,
// for checking a printer without running the whole register.
package main

import (
	"flag"
	"fmt"
	"os"

	goeen_log "github.com/eencloud/goeen/log"
	"github.com/shopspring/decimal"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/receipt"
	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/transport"
	_ "github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/transport/escpos"
)

func main() {
	name := flag.String("transport", transport.NetworkName, "transport to use (network or escpos_usb)")
	host := flag.String("host", "127.0.0.1", "printer host (network transport)")
	port := flag.Int("port", 9100, "printer port (network transport)")
	vendorID := flag.Uint("vendor", 0, "USB vendor id (escpos_usb transport)")
	productID := flag.Uint("product", 0, "USB product id (escpos_usb transport)")
	flag.Parse()

	logger := goeen_log.NewContext(os.Stderr, "", goeen_log.LevelInfo).GetLogger("print-test", goeen_log.LevelInfo)

	store := receipt.StoreIdentity{
		Name:    "Burger House",
		Address: "Rua Exemplo, 123",
		Phone:   "(11) 99999-9999",
	}
	lines := []receipt.CartLine{
		{Quantity: 2, Description: "Burguer Classico", LineTotal: decimal.RequireFromString("25.00")},
		{Quantity: 1, Description: "Refrigerante Lata", LineTotal: decimal.RequireFromString("5.00")},
	}
	total := receipt.Sum(lines)
	payment := receipt.PaymentCash

	fmt.Println("=== Rendered receipt ===")
	fmt.Print(string(receipt.Render(store, lines, total, payment)))

	newFunc, err := transport.Default.Get(*name)
	if err != nil {
		logger.Fatalf("Transport not available: %v", err)
	}
	tr, err := newFunc(logger, transport.Config{
		Host:      *host,
		Port:      *port,
		VendorID:  uint16(*vendorID),
		ProductID: uint16(*productID),
	})
	if err != nil {
		logger.Fatalf("Failed to create transport: %v", err)
	}

	job := &transport.Job{
		Store:    store,
		Lines:    lines,
		Total:    total,
		Payment:  payment,
		Rendered: receipt.Render(store, lines, total, payment),
	}
	if err := tr.Send(job); err != nil {
		logger.Fatalf("Print failed: %v", err)
	}
	fmt.Println("=== Sent via", tr.Name(), "===")
}
