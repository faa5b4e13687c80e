// Package memory is a process-local store used for development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/model"
	"pricewatch/internal/store"
)

var errClosed = errors.New("connection closed")

// DB holds the shared state. Every Open returns a fresh connection over it.
type DB struct {
	mu          sync.RWMutex
	instruments []model.Instrument
	samples     []model.PriceSample
	nextID      int64
	now         func() time.Time
}

// New returns an empty database.
func New() *DB {
	return &DB{now: time.Now}
}

// WithClock replaces the time source.
func (db *DB) WithClock(now func() time.Time) *DB {
	db.now = now
	return db
}

// Open satisfies store.Opener; cfg is ignored.
func (db *DB) Open(ctx context.Context, _ store.Config) (store.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Wrap("open", err)
	}
	return &conn{db: db}, nil
}

// SoftDelete marks the instrument for symbol as deleted.
func (db *DB) SoftDelete(symbol string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i := range db.instruments {
		if db.instruments[i].Symbol == symbol && db.instruments[i].DeletedAt == nil {
			t := db.now()
			db.instruments[i].DeletedAt = &t
			return true
		}
	}
	return false
}

type conn struct {
	db     *DB
	mu     sync.Mutex
	closed bool
}

func (c *conn) Instruments() store.InstrumentRegistry { return registry{c} }
func (c *conn) Samples() store.SampleStore            { return samples{c} }

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return store.Wrap("close", errClosed)
	}
	c.closed = true
	return nil
}

func (c *conn) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return store.Wrap(op, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return store.Wrap(op, errClosed)
	}
	return nil
}

type registry struct{ c *conn }

func (r registry) List(ctx context.Context) ([]model.Instrument, error) {
	if err := r.c.check(ctx, "list instruments"); err != nil {
		return nil, err
	}
	r.c.db.mu.RLock()
	defer r.c.db.mu.RUnlock()
	out := make([]model.Instrument, 0, len(r.c.db.instruments))
	for _, in := range r.c.db.instruments {
		if in.DeletedAt == nil {
			out = append(out, in)
		}
	}
	return out, nil
}

func (r registry) FindBySymbol(ctx context.Context, symbol string) (model.Instrument, error) {
	if err := r.c.check(ctx, "find instrument"); err != nil {
		return model.Instrument{}, err
	}
	r.c.db.mu.RLock()
	defer r.c.db.mu.RUnlock()
	for _, in := range r.c.db.instruments {
		if in.Symbol == symbol && in.DeletedAt == nil {
			return in, nil
		}
	}
	return model.Instrument{}, store.ErrNotFound
}

func (r registry) AddIfAbsent(ctx context.Context, symbol string) (model.Instrument, bool, error) {
	if err := r.c.check(ctx, "add instrument"); err != nil {
		return model.Instrument{}, false, err
	}
	r.c.db.mu.Lock()
	defer r.c.db.mu.Unlock()
	for _, in := range r.c.db.instruments {
		if in.Symbol == symbol {
			return in, false, nil
		}
	}
	in := model.Instrument{ID: uuid.NewString(), Symbol: symbol, CreatedAt: r.c.db.now()}
	r.c.db.instruments = append(r.c.db.instruments, in)
	return in, true, nil
}

type samples struct{ c *conn }

func (s samples) Append(ctx context.Context, instrumentID string, price float64) (model.PriceSample, error) {
	if err := s.c.check(ctx, "append sample"); err != nil {
		return model.PriceSample{}, err
	}
	if err := store.ValidatePrice(price); err != nil {
		return model.PriceSample{}, store.Wrap("append sample", err)
	}
	s.c.db.mu.Lock()
	defer s.c.db.mu.Unlock()
	s.c.db.nextID++
	ps := model.PriceSample{
		ID:           s.c.db.nextID,
		InstrumentID: instrumentID,
		Price:        price,
		CreatedAt:    s.c.db.now(),
	}
	s.c.db.samples = append(s.c.db.samples, ps)
	return ps, nil
}

func (s samples) Recent(ctx context.Context, instrumentID string, limit int) ([]model.PriceSample, error) {
	if err := s.c.check(ctx, "recent samples"); err != nil {
		return nil, err
	}
	s.c.db.mu.RLock()
	var out []model.PriceSample
	for _, ps := range s.c.db.samples {
		if ps.InstrumentID == instrumentID && ps.DeletedAt == nil {
			out = append(out, ps)
		}
	}
	s.c.db.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
