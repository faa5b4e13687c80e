package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pricewatch/internal/model"
)

// instrumentRow maps the watched_instruments table.
type instrumentRow struct {
	ObjectID  uint64         `gorm:"column:object_id;primaryKey;autoIncrement"`
	ID        string         `gorm:"column:id;type:varchar(36);uniqueIndex;not null"`
	Symbol    string         `gorm:"column:symbol;type:varchar(5);uniqueIndex;not null"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (instrumentRow) TableName() string { return "watched_instruments" }

func (r *instrumentRow) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// sampleRow maps the price_samples table.
type sampleRow struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	InstrumentID string         `gorm:"column:instrument_id;type:varchar(36);index:idx_samples_instrument_created;not null"`
	Price        float64        `gorm:"column:price;not null"`
	CreatedAt    time.Time      `gorm:"column:created_at;index:idx_samples_instrument_created"`
	UpdatedAt    time.Time      `gorm:"column:updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (sampleRow) TableName() string { return "price_samples" }

func toInstrument(r *instrumentRow) model.Instrument {
	in := model.Instrument{ID: r.ID, Symbol: r.Symbol, CreatedAt: r.CreatedAt}
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		in.DeletedAt = &t
	}
	return in
}

func toSample(r *sampleRow) model.PriceSample {
	ps := model.PriceSample{
		ID:           r.ID,
		InstrumentID: r.InstrumentID,
		Price:        r.Price,
		CreatedAt:    r.CreatedAt,
	}
	if r.DeletedAt.Valid {
		t := r.DeletedAt.Time
		ps.DeletedAt = &t
	}
	return ps
}
