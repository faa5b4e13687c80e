package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"pricewatch/internal/model"
)

// ErrNotFound is returned by lookups that match no live row.
var ErrNotFound = errors.New("not found")

// InstrumentRegistry owns Instrument rows.
//
//go:generate mockgen -package=storemock -destination=storemock/mock_store.go -source=store.go InstrumentRegistry SampleStore Conn
type InstrumentRegistry interface {
	// List returns all non-deleted instruments in registration order.
	List(ctx context.Context) ([]model.Instrument, error)
	// FindBySymbol returns ErrNotFound for unknown or soft-deleted symbols.
	FindBySymbol(ctx context.Context, symbol string) (model.Instrument, error)
	// AddIfAbsent creates the instrument unless the symbol was ever registered.
	AddIfAbsent(ctx context.Context, symbol string) (model.Instrument, bool, error)
}

// SampleStore owns PriceSample rows.
type SampleStore interface {
	Append(ctx context.Context, instrumentID string, price float64) (model.PriceSample, error)
	// Recent returns up to limit samples, newest first.
	Recent(ctx context.Context, instrumentID string, limit int) ([]model.PriceSample, error)
}

// Conn is one store connection; both repositories share it.
type Conn interface {
	Instruments() InstrumentRegistry
	Samples() SampleStore
	Close() error
}

// Opener connects to the store described by cfg.
type Opener func(ctx context.Context, cfg Config) (Conn, error)

// StoreError wraps any failure of the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap returns err as a *StoreError unless it is nil, ErrNotFound or already a StoreError.
func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// ValidatePrice rejects prices that must never be persisted.
func ValidatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return fmt.Errorf("invalid price %v", price)
	}
	return nil
}

// Config describes a store connection.
type Config struct {
	Driver   string `mapstructure:"driver" json:"driver"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"-"`
	Database string `mapstructure:"database" json:"database"`
	Schema   string `mapstructure:"schema" json:"schema"`
	SSLMode  string `mapstructure:"ssl_mode" json:"ssl_mode"`

	MaxOpenConns       int `mapstructure:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetimeSec int `mapstructure:"conn_max_lifetime_sec" json:"conn_max_lifetime_sec"`
	SlowQueryMillis    int `mapstructure:"slow_query_ms" json:"slow_query_ms"`
}

// DSN renders a postgres keyword/value connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s", c.Host, c.Port, c.User, c.Database, sslMode)
	if c.Password != "" {
		dsn += " password=" + quoteValue(c.Password)
	}
	if c.Schema != "" {
		dsn += " search_path=" + c.Schema
	}
	return dsn
}

// String is safe for logs.
func (c Config) String() string {
	return fmt.Sprintf("%s://%s@%s:%d/%s?schema=%s", c.Driver, c.User, c.Host, c.Port, c.Database, c.Schema)
}

func quoteValue(v string) string {
	needs := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := []rune{'\''}
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}
