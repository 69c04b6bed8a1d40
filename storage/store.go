package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Observer receives timings for backend operations.
type Observer interface {
	RecordStorageOperation(table, operation string, duration time.Duration)
}

// Option configures a Store.
type Option func(*Store)

// WithObserver attaches an Observer to the store.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is a read-through cached key/value store over a Backend. Each table
// must be registered before use.
type Store struct {
	backend  Backend
	observer Observer
	now      func() time.Time

	mu     sync.RWMutex
	tables map[string]*tableCache
}

// tableCache holds encoded documents. A nil entry caches a miss.
type tableCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewStore creates a store over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		tables:  make(map[string]*tableCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register prepares a table. Registering the same table again resets its
// cache.
func (s *Store) Register(ctx context.Context, table string) error {
	if SanitizeKey(table) == "" {
		return &ConfigurationError{Table: table, Reason: "table name is empty"}
	}
	if err := s.backend.Init(ctx, table); err != nil {
		return err
	}

	s.mu.Lock()
	s.tables[table] = &tableCache{entries: make(map[string][]byte)}
	s.mu.Unlock()

	log.WithField("table", table).Debug("Registered storage table")
	return nil
}

// Get returns the document stored under id, or nil if there is none.
func (s *Store) Get(ctx context.Context, table, id string) (map[string]any, error) {
	data, err := s.load(ctx, table, id)
	if err != nil || data == nil {
		return nil, err
	}
	doc, err := UnmarshalDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s/%s: %w", table, id, err)
	}
	return doc, nil
}

// GetAll loads every document in a table.
func (s *Store) GetAll(ctx context.Context, table string) ([]map[string]any, error) {
	keys, err := s.keys(ctx, table)
	if err != nil {
		return nil, err
	}
	docs := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		doc, err := s.Get(ctx, table, key)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Write stores doc under id, setting createdAt on the first write and
// refreshing updatedAt on every write.
func (s *Store) Write(ctx context.Context, table, id string, doc map[string]any) error {
	if doc == nil {
		return &ConfigurationError{Table: table, Reason: "document is nil"}
	}
	now := s.now()
	if _, ok := doc["createdAt"]; !ok {
		doc["createdAt"] = now
	}
	doc["updatedAt"] = now

	data, err := MarshalDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", table, id, err)
	}
	return s.save(ctx, table, id, data)
}

// Delete removes id from a table. Deleting a missing record is a no-op.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	cache := s.table(table)
	key, err := recordKey(table, id)
	if err != nil {
		return err
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	defer s.observe(table, "delete", time.Now())
	if err := s.backend.Remove(ctx, table, key); err != nil {
		return err
	}
	cache.entries[key] = nil
	return nil
}

// table returns the cache for a registered table and panics otherwise.
func (s *Store) table(table string) *tableCache {
	s.mu.RLock()
	cache, ok := s.tables[table]
	s.mu.RUnlock()
	if !ok {
		panic(&ConfigurationError{Table: table, Reason: "table is not registered"})
	}
	return cache
}

func (s *Store) load(ctx context.Context, table, id string) ([]byte, error) {
	cache := s.table(table)
	key, err := recordKey(table, id)
	if err != nil {
		return nil, err
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if data, ok := cache.entries[key]; ok {
		return data, nil
	}

	defer s.observe(table, "load", time.Now())
	data, err := s.backend.Load(ctx, table, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		data = nil
	}
	cache.entries[key] = data
	return data, nil
}

func (s *Store) save(ctx context.Context, table, id string, data []byte) error {
	cache := s.table(table)
	key, err := recordKey(table, id)
	if err != nil {
		return err
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	defer s.observe(table, "save", time.Now())
	if err := s.backend.Save(ctx, table, key, data); err != nil {
		return err
	}
	cache.entries[key] = data
	return nil
}

func (s *Store) keys(ctx context.Context, table string) ([]string, error) {
	s.table(table)
	defer s.observe(table, "keys", time.Now())
	return s.backend.Keys(ctx, table)
}

func (s *Store) observe(table, operation string, start time.Time) {
	if s.observer != nil {
		s.observer.RecordStorageOperation(table, operation, time.Since(start))
	}
}

func recordKey(table, id string) (string, error) {
	key := SanitizeKey(id)
	if key == "" {
		return "", &ConfigurationError{Table: table, Reason: fmt.Sprintf("invalid record id %q", id)}
	}
	return key, nil
}
