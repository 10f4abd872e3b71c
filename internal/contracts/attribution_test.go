package contracts

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumeric(t *testing.T) {
	tests := []struct {
		name       string
		in         float64
		wantStatus ReturnStatus
		wantValue  float64
		wantOK     bool
	}{
		{"positive", 0.12, StatusNumeric, 0.12, true},
		{"negative", -0.5, StatusNumeric, -0.5, true},
		{"zero is no price change", 0, StatusNoPriceChange, 0, true},
		{"NaN is missing", math.NaN(), StatusMissingData, 0, false},
		{"Inf is missing", math.Inf(1), StatusMissingData, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Numeric(tt.in)
			assert.Equal(t, tt.wantStatus, r.Status())
			v, ok := r.Value()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantValue, v)
		})
	}
}

func TestUnavailable_NeverYieldsValue(t *testing.T) {
	for _, st := range []ReturnStatus{StatusFutureDataUnavailable, StatusHistoricalDataUnavailable, StatusMissingData, StatusNotComputed} {
		r := Unavailable(st)
		assert.False(t, r.Defined(), st)
	}
	assert.False(t, Return{}.Defined())
}

func TestReturn_JSON(t *testing.T) {
	in := []Return{Numeric(0.25), Numeric(0), Unavailable(StatusFutureDataUnavailable), {}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `[0.25, 0, "FUTURE_DATA_UNAVAILABLE", null]`, string(data))

	var out []Return
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 4)
	assert.Equal(t, StatusNumeric, out[0].Status())
	assert.Equal(t, StatusNoPriceChange, out[1].Status())
	assert.Equal(t, StatusFutureDataUnavailable, out[2].Status())
	assert.Equal(t, StatusNotComputed, out[3].Status())

	var bad Return
	assert.Error(t, json.Unmarshal([]byte(`"SOMETHING_ELSE"`), &bad))
}

func TestReturn_String(t *testing.T) {
	assert.Equal(t, "0.1", Numeric(0.1).String())
	assert.Equal(t, "0", Numeric(0).String())
	assert.Equal(t, "HISTORICAL_DATA_UNAVAILABLE", Unavailable(StatusHistoricalDataUnavailable).String())
	assert.Equal(t, "", Return{}.String())
}

func TestHorizon_Labels(t *testing.T) {
	assert.Len(t, AllHorizons(), NumHorizons)
	assert.Equal(t, "6M", Horizon6M.Label())
	assert.Equal(t, "1Y", Horizon1Y.Label())
	assert.Equal(t, "18M", Horizon18M.Label())
	assert.Equal(t, []int{180, 365, 547}, []int{
		Horizon6M.DefaultOffsetDays(), Horizon1Y.DefaultOffsetDays(), Horizon18M.DefaultOffsetDays(),
	})
}

func TestTransaction_Values(t *testing.T) {
	tx := Transaction{Shares: 100, PricePerShare: 10, AdjustedShares: 200, AdjustedPrice: 5}
	assert.InDelta(t, 1000, tx.TotalValue(), 1e-9)
	assert.InDelta(t, 1000, tx.AdjustedTotalValue(), 1e-9)
	assert.True(t, tx.HasPositiveValue())

	tx.AdjustedPrice = math.NaN()
	assert.False(t, tx.HasPositiveValue())

	tx.AdjustedPrice = 0
	assert.False(t, tx.HasPositiveValue())

	tx.AdjustedPrice = math.Inf(1)
	assert.False(t, tx.HasPositiveValue())

	// finite factors whose product overflows
	tx.AdjustedShares, tx.AdjustedPrice = 1e200, 1e200
	assert.False(t, tx.HasPositiveValue())
}

func TestHorizonResult_Relative(t *testing.T) {
	r := HorizonResult{Own: Numeric(0.10), Market: Numeric(0.04), Sector: Unavailable(StatusMissingData)}

	v, ok := r.VsMarket()
	require.True(t, ok)
	assert.InDelta(t, 0.06, v, 1e-12)

	_, ok = r.VsSector()
	assert.False(t, ok)
}

func TestInvestorProfile_HorizonRoundTrip(t *testing.T) {
	var p InvestorProfile
	hp := HorizonPerformance{Own: Float(0.1), Market: Float(0.04), Sector: Float(0.02), VsMarket: Float(0.06), VsSector: Float(0.08)}

	for _, h := range AllHorizons() {
		p.SetHorizon(h, hp)
		assert.Equal(t, hp, p.Horizon(h), h.Label())
	}
	assert.Equal(t, 0.06, *p.ReturnVsSP5001Y)
}

func TestInvestorProfile_JSONNullsNotOmitted(t *testing.T) {
	p := InvestorProfile{OwnerCIK: "0001", OwnerName: "Doe Jane"}
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	v, present := m["Weighted_Return_6M"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, "Doe Jane", m["OWNER_NAME"])
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Code:      DiagSuspiciousReturnValues,
		Severity:  DiagSuspiciousReturnValues.Severity(),
		OwnerCIK:  "0001",
		OwnerName: "Doe Jane",
		Column:    "RETURN_6M",
		Count:     2,
		Detail:    "values with |r| > 5 or exactly 0",
	}
	assert.Equal(t, "[warn] SUSPICIOUS_RETURN_VALUES investor=0001/Doe Jane column=RETURN_6M count=2: values with |r| > 5 or exactly 0", d.String())
	assert.Equal(t, SeverityInfo, DiagHorizonDataUnavailable.Severity())
}

func TestCoverageSnapshot_CoverageRate(t *testing.T) {
	c := CoverageSnapshot{Coverage: map[string]float64{"RETURN_6M": 1.0, "SP500_RETURN_6M": 0.5}}
	assert.InDelta(t, 0.75, c.CoverageRate(), 1e-12)
	assert.Equal(t, 0.0, (&CoverageSnapshot{}).CoverageRate())
}

func TestReturnColumns(t *testing.T) {
	cols := ReturnColumns()
	require.Len(t, cols, 9)

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	assert.Equal(t, []string{
		"RETURN_6M", "RETURN_1Y", "RETURN_18M",
		"SP500_RETURN_6M", "SP500_RETURN_1Y", "SP500_RETURN_18M",
		"SECTOR_RETURN_6M", "SECTOR_RETURN_1Y", "SECTOR_RETURN_18M",
	}, names)

	tx := &Transaction{Enrichment: &Enrichment{}}
	tx.Enrichment.Horizons[Horizon1Y].Sector = Numeric(0.3)
	v, ok := ReturnColumn{Kind: KindSector, Horizon: Horizon1Y}.Of(tx).Value()
	assert.True(t, ok)
	assert.Equal(t, 0.3, v)

	assert.False(t, ReturnColumn{Kind: KindOwn, Horizon: Horizon6M}.Of(&Transaction{}).Defined())
}

func TestNewTransactionRecord(t *testing.T) {
	tx := &Transaction{
		Row:            4,
		Investor:       InvestorKey{OwnerCIK: "0001", OwnerName: "Doe Jane"},
		Ticker:         "XOM",
		Shares:         10,
		PricePerShare:  math.NaN(),
		AdjustedShares: 10,
		AdjustedPrice:  5,
		Enrichment: &Enrichment{
			MarketLevel:     100,
			SectorLevel:     math.NaN(),
			MarketCondition: MarketBull,
			Horizons: [NumHorizons]HorizonResult{
				{MarketLevel: 110, SectorLevel: math.NaN(), Own: Numeric(0.2), Market: Numeric(0.1), Sector: Unavailable(StatusMissingData)},
				{Own: Unavailable(StatusFutureDataUnavailable)},
				{},
			},
		},
	}

	rec := NewTransactionRecord(tx)
	assert.Nil(t, rec.TotalValue)
	require.NotNil(t, rec.AdjustedTotalValue)
	assert.Equal(t, 50.0, *rec.AdjustedTotalValue)
	require.NotNil(t, rec.MarketLevel)
	assert.Nil(t, rec.SectorLevel)
	assert.Equal(t, MarketBull, rec.MarketCondition)

	require.Len(t, rec.Horizons, NumHorizons)
	h6 := rec.Horizons[Horizon6M]
	assert.Equal(t, "6M", h6.Horizon)
	require.NotNil(t, h6.VsSP500)
	assert.InDelta(t, 0.1, *h6.VsSP500, 1e-12)
	assert.Nil(t, h6.VsSector)
	assert.Equal(t, StatusFutureDataUnavailable, rec.Horizons[Horizon1Y].Return.Status())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var back TransactionRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, StatusMissingData, back.Horizons[Horizon6M].SectorRet.Status())
	assert.Nil(t, back.Horizons[Horizon18M].VsSP500)
	assert.Contains(t, string(data), `"Market_Condition":"Bull"`)
}

func TestNewTransactionRecord_Unenriched(t *testing.T) {
	rec := NewTransactionRecord(&Transaction{Row: 1})
	assert.Equal(t, MarketUnknown, rec.MarketCondition)
	require.Len(t, rec.Horizons, NumHorizons)
	for _, h := range rec.Horizons {
		assert.Nil(t, h.MarketLevel)
		assert.False(t, h.Return.Defined())
	}
}
