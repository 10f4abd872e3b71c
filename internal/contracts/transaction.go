package contracts

import (
	"math"
	"strconv"
	"time"
)

// InvestorKey identifies one investor: owner code plus display name
type InvestorKey struct {
	OwnerCIK  string `json:"owner_cik"`
	OwnerName string `json:"owner_name"`
}

// Less orders keys by owner code, then name
func (k InvestorKey) Less(o InvestorKey) bool {
	if k.OwnerCIK != o.OwnerCIK {
		return k.OwnerCIK < o.OwnerCIK
	}
	return k.OwnerName < o.OwnerName
}

func (k InvestorKey) String() string {
	return k.OwnerCIK + "/" + k.OwnerName
}

// MarketCondition classifies the broad market over the 6M window after a trade
type MarketCondition string

const (
	MarketBull    MarketCondition = "Bull"
	MarketBear    MarketCondition = "Bear"
	MarketNeutral MarketCondition = "Neutral"
	MarketUnknown MarketCondition = "Unknown"
)

// Transaction is one insider trade record.
// Numeric fields are NaN when the source value is missing or unparseable.
type Transaction struct {
	Row int // 1-based data row in the source table

	Investor    InvestorKey
	Ticker      string
	IssuerName  string
	Sector      string
	SubIndustry string
	TransDate   time.Time

	Shares          float64
	PricePerShare   float64
	SplitAdjustment float64
	AdjustedShares  float64
	AdjustedPrice   float64
	MarketCap       float64

	// ForwardPrices are resolved upstream, one per horizon
	ForwardPrices [NumHorizons]float64

	// Populated by the return calculator
	Enrichment *Enrichment
}

// TotalValue is shares x price per share (unadjusted)
func (t *Transaction) TotalValue() float64 {
	return t.Shares * t.PricePerShare
}

// AdjustedTotalValue is recomputed from the adjusted fields, never read from input
func (t *Transaction) AdjustedTotalValue() float64 {
	return t.AdjustedShares * t.AdjustedPrice
}

// HasPositiveValue reports whether the row takes part in weighting.
// The value must be finite; an overflowing product is excluded like a missing one.
func (t *Transaction) HasPositiveValue() bool {
	v := t.AdjustedTotalValue()
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// Returns gives the horizon result, or a zero HorizonResult before enrichment
func (t *Transaction) Returns(h Horizon) HorizonResult {
	if t.Enrichment == nil {
		return HorizonResult{MarketLevel: math.NaN(), SectorLevel: math.NaN()}
	}
	return t.Enrichment.Horizons[h]
}

// Enrichment holds benchmark levels and returns resolved for a transaction
type Enrichment struct {
	MarketLevel     float64 // SP500
	SectorLevel     float64 // SECTOR
	Horizons        [NumHorizons]HorizonResult
	MarketCondition MarketCondition
}

// HorizonResult is the outcome of one transaction over one horizon
type HorizonResult struct {
	MarketLevel float64 // SP500_h
	SectorLevel float64 // SECTOR_h

	Own    Return
	Market Return
	Sector Return
}

// VsMarket is own minus market; defined only when both are
func (r HorizonResult) VsMarket() (float64, bool) {
	return diff(r.Own, r.Market)
}

// VsSector is own minus sector; defined only when both are
func (r HorizonResult) VsSector() (float64, bool) {
	return diff(r.Own, r.Sector)
}

func diff(a, b Return) (float64, bool) {
	av, ok := a.Value()
	if !ok {
		return 0, false
	}
	bv, ok := b.Value()
	if !ok {
		return 0, false
	}
	return av - bv, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
