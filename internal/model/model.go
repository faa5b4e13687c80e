package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	MinSymbolLen = 1
	MaxSymbolLen = 5

	// MovingAverageWindow is how many of the most recent samples feed the moving average.
	MovingAverageWindow = 10
)

// Instrument is a watched ticker symbol.
type Instrument struct {
	ID        string     `json:"id"`
	Symbol    string     `json:"symbol"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// PriceSample is one observed price of one instrument.
type PriceSample struct {
	ID           int64      `json:"id"`
	InstrumentID string     `json:"instrumentId"`
	Price        float64    `json:"price"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// SymbolView is the point-in-time answer for a symbol.
type SymbolView struct {
	CurrentPrice  float64   `json:"currentPrice"`
	MovingAverage float64   `json:"movingAverage"`
	LastCheckedAt time.Time `json:"lastCheckedAt"`
}

var (
	validate = validator.New()

	_symbolRules = fmt.Sprintf("required,min=%d,max=%d", MinSymbolLen, MaxSymbolLen)
)

// ValidateSymbol checks the symbol length bounds. Length is counted in runes.
func ValidateSymbol(symbol string) error {
	err := validate.Var(symbol, _symbolRules)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	if verrs[0].Tag() == "max" {
		return fmt.Errorf("symbol must be maximum %d characters", MaxSymbolLen)
	}
	return fmt.Errorf("symbol must be at least %d character", MinSymbolLen)
}
