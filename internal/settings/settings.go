package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eencloud/goeen/log"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/receipt"
)

// Setting keys. These are the flat string keys the register UI has always
// written; the manager resolves them into typed snapshots.
const (
	KeyStoreName    = "store_name"
	KeyStoreAddress = "store_address"
	KeyStorePhone   = "store_phone"
	KeyPrinterMode  = "printer_mode"
	KeyPrinterIP    = "printer_ip"
	KeyPrinterPort  = "printer_port"
	KeyUSBVendor    = "printer_usb_vendor"
	KeyUSBProduct   = "printer_usb_product"
)

var defaults = map[string]string{
	KeyStoreName:    "Minha Loja",
	KeyStoreAddress: "Rua Exemplo, 123",
	KeyStorePhone:   "(11) 99999-9999",
	KeyPrinterMode:  string(ModeNetwork),
	KeyPrinterIP:    "192.168.0.100",
	KeyPrinterPort:  "9100",
	KeyUSBVendor:    "",
	KeyUSBProduct:   "",
}

// PrinterMode selects the transport family. The values double as the
// transport registry names.
type PrinterMode string

const (
	ModeNetwork PrinterMode = "network"
	ModeUSB     PrinterMode = "escpos_usb"
)

var (
	// ErrInvalidPort marks a printer_port value that is not a TCP port.
	ErrInvalidPort = errors.New("invalid printer port")
	// ErrInvalidHexID marks a USB vendor/product id that is not a hex number.
	ErrInvalidHexID = errors.New("invalid USB id")
	// ErrUnknownSetting marks a write to a key the register does not use.
	ErrUnknownSetting = errors.New("unknown setting key")
)

// ConfigError reports a malformed configuration value. It is surfaced
// before any printer I/O is attempted, never silently defaulted.
type ConfigError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("setting %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// PrinterConfig is an immutable snapshot of the printer settings,
// constructed once per print call. HasUSBIDs is true only when both the
// vendor and product ids are configured.
type PrinterConfig struct {
	Mode      PrinterMode
	Host      string
	Port      int
	VendorID  uint16
	ProductID uint16
	HasUSBIDs bool
}

// KV is the persistence the manager sits on (the badger store in
// production; a map in tests).
type KV interface {
	GetSetting(key, defaultValue string) (string, error)
	SetSetting(key, value string) error
}

// Manager resolves the raw key/value settings into the typed snapshots
// the rest of the service consumes.
type Manager struct {
	logger     *log.Logger
	store      KV
	changeChan chan struct{}
}

func NewManager(logger *log.Logger, store KV) *Manager {
	return &Manager{
		logger:     logger,
		store:      store,
		changeChan: make(chan struct{}, 1),
	}
}

// Set persists a single setting and signals the change channel.
func (m *Manager) Set(key, value string) error {
	if _, known := defaults[key]; !known {
		return &ConfigError{Key: key, Value: value, Err: ErrUnknownSetting}
	}
	if err := m.store.SetSetting(key, value); err != nil {
		return err
	}
	m.notifyChange()
	return nil
}

// All returns every setting, resolved against the defaults.
func (m *Manager) All() map[string]string {
	resolved := make(map[string]string, len(defaults))
	for key := range defaults {
		resolved[key] = m.get(key)
	}
	return resolved
}

// StoreIdentity returns the store header snapshot for a receipt.
func (m *Manager) StoreIdentity() receipt.StoreIdentity {
	return receipt.StoreIdentity{
		Name:    m.get(KeyStoreName),
		Address: m.get(KeyStoreAddress),
		Phone:   m.get(KeyStorePhone),
	}
}

// PrinterConfig builds the printer snapshot. Malformed values fail here,
// before any transport is constructed.
func (m *Manager) PrinterConfig() (PrinterConfig, error) {
	cfg := PrinterConfig{
		Mode: PrinterMode(m.get(KeyPrinterMode)),
		Host: m.get(KeyPrinterIP),
	}

	port, err := parsePort(m.get(KeyPrinterPort))
	if err != nil {
		return PrinterConfig{}, err
	}
	cfg.Port = port

	vendorRaw := m.get(KeyUSBVendor)
	productRaw := m.get(KeyUSBProduct)
	if vendorRaw != "" {
		if cfg.VendorID, err = parseHexID(KeyUSBVendor, vendorRaw); err != nil {
			return PrinterConfig{}, err
		}
	}
	if productRaw != "" {
		if cfg.ProductID, err = parseHexID(KeyUSBProduct, productRaw); err != nil {
			return PrinterConfig{}, err
		}
	}
	cfg.HasUSBIDs = vendorRaw != "" && productRaw != ""

	return cfg, nil
}

// Changes returns a channel that signals when settings have been updated.
func (m *Manager) Changes() <-chan struct{} {
	return m.changeChan
}

func (m *Manager) notifyChange() {
	select {
	case m.changeChan <- struct{}{}:
	default:
	}
}

func (m *Manager) get(key string) string {
	value, err := m.store.GetSetting(key, defaults[key])
	if err != nil {
		m.logger.Warningf("Failed to read setting %s, using default: %v", key, err)
		return defaults[key]
	}
	return value
}

func parsePort(raw string) (int, error) {
	if raw == "" {
		raw = defaults[KeyPrinterPort]
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Key: KeyPrinterPort, Value: raw, Err: fmt.Errorf("%w: %v", ErrInvalidPort, err)}
	}
	if port < 1 || port > 65535 {
		return 0, &ConfigError{Key: KeyPrinterPort, Value: raw, Err: ErrInvalidPort}
	}
	return port, nil
}

// parseHexID accepts the forms the UI historically stored: "0x04b8" or "04b8".
func parseHexID(key, raw string) (uint16, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "0x")
	id, err := strconv.ParseUint(trimmed, 16, 16)
	if err != nil {
		return 0, &ConfigError{Key: key, Value: raw, Err: fmt.Errorf("%w: %v", ErrInvalidHexID, err)}
	}
	return uint16(id), nil
}
