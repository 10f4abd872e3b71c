package contracts

import (
	"math"
	"time"
)

// TransactionRecord is the stored and served view of one enriched transaction
type TransactionRecord struct {
	Row                int             `json:"row"`
	OwnerCIK           string          `json:"OWNER_CIK"`
	OwnerName          string          `json:"OWNER_NAME"`
	Ticker             string          `json:"ISSUERTRADINGSYMBOL"`
	IssuerName         string          `json:"ISSUERNAME"`
	Sector             string          `json:"GICS_SECTOR"`
	TransDate          time.Time       `json:"TRANS_DATE"`
	TotalValue         *float64        `json:"TOTAL_TRANS_VALUE"`
	AdjustedTotalValue *float64        `json:"ADJUSTED_TOTAL_TRANS_VALUE"`
	MarketLevel        *float64        `json:"SP500"`
	SectorLevel        *float64        `json:"SECTOR"`
	MarketCondition    MarketCondition `json:"Market_Condition"`
	Horizons           []HorizonRecord `json:"horizons"`
}

// HorizonRecord carries one horizon's levels, returns and relative returns
type HorizonRecord struct {
	Horizon     string   `json:"horizon"`
	MarketLevel *float64 `json:"SP500"`
	SectorLevel *float64 `json:"SECTOR"`
	Return      Return   `json:"RETURN"`
	SP500Return Return   `json:"SP500_RETURN"`
	SectorRet   Return   `json:"SECTOR_RETURN"`
	VsSP500     *float64 `json:"Vs_SP500"`
	VsSector    *float64 `json:"Vs_Sector"`
}

// NewTransactionRecord flattens tx. Missing numbers become nil; an
// unenriched transaction has Unknown market condition and no returns.
func NewTransactionRecord(tx *Transaction) TransactionRecord {
	rec := TransactionRecord{
		Row:                tx.Row,
		OwnerCIK:           tx.Investor.OwnerCIK,
		OwnerName:          tx.Investor.OwnerName,
		Ticker:             tx.Ticker,
		IssuerName:         tx.IssuerName,
		Sector:             tx.Sector,
		TransDate:          tx.TransDate,
		TotalValue:         finite(tx.TotalValue()),
		AdjustedTotalValue: finite(tx.AdjustedTotalValue()),
		MarketCondition:    MarketUnknown,
		Horizons:           make([]HorizonRecord, 0, NumHorizons),
	}
	if e := tx.Enrichment; e != nil {
		rec.MarketLevel, rec.SectorLevel = finite(e.MarketLevel), finite(e.SectorLevel)
		if e.MarketCondition != "" {
			rec.MarketCondition = e.MarketCondition
		}
	}

	for _, h := range AllHorizons() {
		r := tx.Returns(h)
		hr := HorizonRecord{
			Horizon:     h.Label(),
			MarketLevel: finite(r.MarketLevel),
			SectorLevel: finite(r.SectorLevel),
			Return:      r.Own,
			SP500Return: r.Market,
			SectorRet:   r.Sector,
		}
		if v, ok := r.VsMarket(); ok {
			hr.VsSP500 = Float(v)
		}
		if v, ok := r.VsSector(); ok {
			hr.VsSector = Float(v)
		}
		rec.Horizons = append(rec.Horizons, hr)
	}
	return rec
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return Float(v)
}
