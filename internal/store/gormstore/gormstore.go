// Package gormstore persists instruments and samples through gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"pricewatch/internal/model"
	"pricewatch/internal/store"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialector picks the gorm dialector for cfg.Driver.
func Dialector(cfg store.Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return postgres.Open(cfg.DSN()), nil
	case DriverSQLite:
		return sqlite.Open(cfg.Database), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// NewOpener returns a store.Opener backed by Dialector.
func NewOpener(log *slog.Logger) store.Opener {
	return func(ctx context.Context, cfg store.Config) (store.Conn, error) {
		d, err := Dialector(cfg)
		if err != nil {
			return nil, store.Wrap("open", err)
		}
		return Open(ctx, cfg, d, log)
	}
}

// Conn is a gorm-backed store.Conn.
type Conn struct {
	db *gorm.DB
}

// Migrate opens a connection, brings the schema up to date and closes it.
// Run it once at startup; Open does not migrate.
func Migrate(ctx context.Context, cfg store.Config, log *slog.Logger) error {
	d, err := Dialector(cfg)
	if err != nil {
		return store.Wrap("migrate", err)
	}
	conn, err := Open(ctx, cfg, d, log)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.Migrate(ctx)
}

// Open connects, applies pool limits and pings.
func Open(ctx context.Context, cfg store.Config, d gorm.Dialector, log *slog.Logger) (*Conn, error) {
	if log == nil {
		log = slog.Default()
	}
	slow := time.Duration(cfg.SlowQueryMillis) * time.Millisecond
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	gl := gormlogger.New(
		slog.NewLogLogger(log.With("component", "gorm").Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(d, &gorm.Config{Logger: gl})
	if err != nil {
		return nil, store.Wrap("open", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, store.Wrap("open", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeSec > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeSec) * time.Second)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, store.Wrap("ping", err)
	}
	return &Conn{db: db}, nil
}

// Migrate creates or alters the tables to match the models.
func (c *Conn) Migrate(ctx context.Context) error {
	return store.Wrap("migrate", c.db.WithContext(ctx).AutoMigrate(&instrumentRow{}, &sampleRow{}))
}

func (c *Conn) Instruments() store.InstrumentRegistry { return &instruments{db: c.db} }
func (c *Conn) Samples() store.SampleStore            { return &samples{db: c.db} }

func (c *Conn) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return store.Wrap("close", err)
	}
	return store.Wrap("close", sqlDB.Close())
}

// SoftDelete marks the instrument for symbol as deleted.
func (c *Conn) SoftDelete(ctx context.Context, symbol string) error {
	res := c.db.WithContext(ctx).Where("symbol = ?", symbol).Delete(&instrumentRow{})
	if res.Error != nil {
		return store.Wrap("delete instrument", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type instruments struct {
	db *gorm.DB
}

func (r *instruments) List(ctx context.Context) ([]model.Instrument, error) {
	var rows []instrumentRow
	if err := r.db.WithContext(ctx).Order("object_id ASC").Find(&rows).Error; err != nil {
		return nil, store.Wrap("list instruments", err)
	}
	out := make([]model.Instrument, 0, len(rows))
	for i := range rows {
		out = append(out, toInstrument(&rows[i]))
	}
	return out, nil
}

func (r *instruments) FindBySymbol(ctx context.Context, symbol string) (model.Instrument, error) {
	var row instrumentRow
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Instrument{}, store.ErrNotFound
	}
	if err != nil {
		return model.Instrument{}, store.Wrap("find instrument", err)
	}
	return toInstrument(&row), nil
}

func (r *instruments) AddIfAbsent(ctx context.Context, symbol string) (model.Instrument, bool, error) {
	db := r.db.WithContext(ctx)

	// soft-deleted rows still own their symbol
	existing, err := r.findAny(db, symbol)
	if err == nil {
		return toInstrument(existing), false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Instrument{}, false, store.Wrap("add instrument", err)
	}

	row := instrumentRow{Symbol: symbol}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return model.Instrument{}, false, store.Wrap("add instrument", res.Error)
	}
	if res.RowsAffected == 0 {
		// lost a race with a concurrent registration
		existing, err := r.findAny(db, symbol)
		if err != nil {
			return model.Instrument{}, false, store.Wrap("add instrument", err)
		}
		return toInstrument(existing), false, nil
	}
	return toInstrument(&row), true, nil
}

func (r *instruments) findAny(db *gorm.DB, symbol string) (*instrumentRow, error) {
	var row instrumentRow
	if err := db.Unscoped().Where("symbol = ?", symbol).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

type samples struct {
	db *gorm.DB
}

func (s *samples) Append(ctx context.Context, instrumentID string, price float64) (model.PriceSample, error) {
	if err := store.ValidatePrice(price); err != nil {
		return model.PriceSample{}, store.Wrap("append sample", err)
	}
	row := sampleRow{InstrumentID: instrumentID, Price: price}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.PriceSample{}, store.Wrap("append sample", err)
	}
	return toSample(&row), nil
}

func (s *samples) Recent(ctx context.Context, instrumentID string, limit int) ([]model.PriceSample, error) {
	q := s.db.WithContext(ctx).
		Where("instrument_id = ?", instrumentID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []sampleRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, store.Wrap("recent samples", err)
	}
	out := make([]model.PriceSample, 0, len(rows))
	for i := range rows {
		out = append(out, toSample(&rows[i]))
	}
	return out, nil
}
