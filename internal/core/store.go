package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	goeen_log "github.com/eencloud/goeen/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key prefixes. Sales carry a nanosecond timestamp in the key so a plain
// prefix iteration yields chronological order.
const (
	productPrefix = "product_"
	salePrefix    = "sale_"
	settingPrefix = "setting_"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrProductExists   = errors.New("product code already registered")
)

// Product is a catalog entry. Code is the register's unique lookup key.
type Product struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// SaleRecord is the persisted outcome of a finalized sale. It is written
// regardless of print outcome; Printed/PrintError record what the printer
// did afterwards.
type SaleRecord struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Total      decimal.Decimal `json:"total"`
	Payment    string          `json:"payment"`
	Items      []string        `json:"items"`
	Printed    bool            `json:"printed"`
	PrintError string          `json:"print_error,omitempty"`
}

// Store is the embedded database behind the register: products, sale
// records and the raw settings KV.
type Store struct {
	db     *badger.DB
	ctx    context.Context
	cancel context.CancelFunc
	logger *goeen_log.Logger
}

func NewStore(dir string, logger *goeen_log.Logger) (*Store, error) {
	if err := cleanupStaleLock(dir, logger); err != nil {
		logger.Warningf("Failed to cleanup potential stale lock: %v", err)
	}

	opts := badger.DefaultOptions(dir).
		WithValueLogFileSize(1 << 20). // 1MB value log files
		WithMemTableSize(16 << 20).    // 16MB mem tables
		WithSyncWrites(true).          // sales are money records
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store := &Store{db: db, ctx: ctx, cancel: cancel, logger: logger}

	if err := store.seedProducts(); err != nil {
		cancel()
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed products: %w", err)
	}

	go store.maintenanceWorker()

	return store, nil
}

// seedProducts inserts the sample catalog on first start so the register
// is usable out of the box.
func (s *Store) seedProducts() error {
	products, err := s.ListProducts()
	if err != nil {
		return err
	}
	if len(products) > 0 {
		return nil
	}

	samples := []Product{
		{Code: "001", Name: "Burguer Classico", Price: decimal.RequireFromString("12.50")},
		{Code: "002", Name: "Batata Frita", Price: decimal.RequireFromString("8.00")},
		{Code: "003", Name: "Refrigerante Lata", Price: decimal.RequireFromString("5.00")},
	}
	for _, p := range samples {
		if err := s.AddProduct(p); err != nil {
			return err
		}
	}
	s.logger.Infof("Seeded product catalog with %d sample products", len(samples))
	return nil
}

// --- Products ---

func (s *Store) AddProduct(p Product) error {
	key := []byte(productPrefix + p.Code)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrProductExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *Store) UpdateProduct(p Product) error {
	key := []byte(productPrefix + p.Code)
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		return txn.Set(key, data)
	})
}

func (s *Store) DeleteProduct(code string) error {
	key := []byte(productPrefix + code)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

func (s *Store) GetProduct(code string) (Product, error) {
	var p Product
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(productPrefix + code))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	return p, err
}

func (s *Store) ListProducts() ([]Product, error) {
	var products []Product
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(productPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p Product
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			})
			if err != nil {
				continue
			}
			products = append(products, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(products, func(i, j int) bool { return products[i].Code < products[j].Code })
	return products, nil
}

// --- Sales ---

// SaveSale persists a sale record. A missing ID or timestamp is filled
// in; saving the same record again overwrites it in place, which is how
// the print outcome gets attached after the attempt.
func (s *Store) SaveSale(rec *SaleRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	key := fmt.Sprintf("%s%d_%s", salePrefix, rec.Timestamp.UnixNano(), rec.ID)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal sale record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store sale: %w", err)
	}

	s.logger.Debugf("Stored sale %s (total %s)", rec.ID, rec.Total.StringFixed(2))
	return nil
}

// ListSales returns up to limit sale records, newest first. A limit of 0
// means no limit.
func (s *Store) ListSales(limit int) ([]SaleRecord, error) {
	var sales []SaleRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(salePrefix)
		// Reverse iteration starts just past the prefix range.
		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(sales) >= limit {
				break
			}
			var rec SaleRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				continue
			}
			sales = append(sales, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// --- Settings KV ---

func (s *Store) GetSetting(key, defaultValue string) (string, error) {
	value := defaultValue
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingPrefix + key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return defaultValue, err
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingPrefix+key), []byte(value))
	})
}

// --- Maintenance ---

func (s *Store) maintenanceWorker() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Errorf("Store value log GC failed: %v", err)
			}
		}
	}
}

// GetDB returns the underlying Badger database for metrics access.
func (s *Store) GetDB() *badger.DB {
	return s.db
}

func (s *Store) Close() error {
	s.cancel()
	return s.db.Close()
}

// cleanupStaleLock removes a leftover BadgerDB LOCK file from an
// ungraceful shutdown. Safe on a single-instance deployment: if another
// process really held the lock, Open would still fail afterwards.
func cleanupStaleLock(dir string, logger *goeen_log.Logger) error {
	lockFile := filepath.Join(dir, "LOCK")

	if _, err := os.Stat(lockFile); os.IsNotExist(err) {
		return nil
	}

	logger.Infof("Found potential stale lock file, attempting cleanup: %s", lockFile)
	if err := os.Remove(lockFile); err != nil {
		return fmt.Errorf("failed to remove stale lock file: %w", err)
	}
	return nil
}
