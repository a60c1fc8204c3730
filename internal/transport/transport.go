package transport

import (
	"fmt"
	"sort"
	"sync"

	"github.com/eencloud/goeen/log"
	"github.com/shopspring/decimal"

	"github.com/HenriqueJRBz/Pedidos-SistemaPVD/internal/receipt"
)

// Job is one receipt delivery. Rendered holds the 32-column block the
// network transport writes verbatim; the ESC/POS transport re-derives its
// own line sequence from the structured fields.
type Job struct {
	Store    receipt.StoreIdentity
	Lines    []receipt.CartLine
	Total    decimal.Decimal
	Payment  string
	Rendered []byte
}

// Transport delivers a receipt job to a physical printer. An
// implementation owns its connection for the duration of a single Send:
// open, write, close. Connections are never reused across calls.
type Transport interface {
	Name() string
	Send(job *Job) error
}

// Config carries the resolved printer settings a transport needs.
type Config struct {
	Host      string
	Port      int
	VendorID  uint16
	ProductID uint16
}

// NewFunc is a function signature for creating a new transport instance.
type NewFunc func(logger *log.Logger, cfg Config) (Transport, error)

// Registry maps transport names to constructors. Backends register
// themselves from their package init(), so a blank import of the backend
// package is what makes the capability available in a binary.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]NewFunc
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]NewFunc)}
}

// Register adds a transport constructor under name. A second registration
// of the same name is ignored.
func (r *Registry) Register(name string, newFunc NewFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return
	}
	r.factories[name] = newFunc
}

// Get returns the constructor for name, or a BackendUnavailable error
// when no backend with that name was compiled in.
func (r *Registry) Get(name string) (NewFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	newFunc, exists := r.factories[name]
	if !exists {
		return nil, NewError(name, KindBackendUnavailable, fmt.Errorf("no transport registered with name: %s", name))
	}
	return newFunc, nil
}

// Available reports whether a backend is registered under name.
func (r *Registry) Available(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Names returns the registered transport names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry.
var Default = NewRegistry()

// Register adds a transport constructor to the default registry.
func Register(name string, newFunc NewFunc) {
	Default.Register(name, newFunc)
}
