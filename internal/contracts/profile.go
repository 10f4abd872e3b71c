package contracts

// CapBucket is a market-capitalization category
type CapBucket string

const (
	CapMega         CapBucket = "Mega Cap"
	CapLarge        CapBucket = "Large Cap"
	CapMid          CapBucket = "Mid Cap"
	CapSmall        CapBucket = "Small Cap"
	CapMicro        CapBucket = "Micro Cap"
	CapUnclassified CapBucket = "Unclassified"
)

// InvestorProfile is one aggregated output row per investor.
// JSON names match the tabular column names consumed by the presentation layer.
// Nil numeric fields mean "not computed".
type InvestorProfile struct {
	OwnerCIK  string `json:"OWNER_CIK"`
	OwnerName string `json:"OWNER_NAME"`

	WeightedReturn6M  *float64 `json:"Weighted_Return_6M"`
	WeightedReturn1Y  *float64 `json:"Weighted_Return_1Y"`
	WeightedReturn18M *float64 `json:"Weighted_Return_18M"`
	WeightedSP5006M   *float64 `json:"Weighted_SP500_6M"`
	WeightedSP5001Y   *float64 `json:"Weighted_SP500_1Y"`
	WeightedSP50018M  *float64 `json:"Weighted_SP500_18M"`
	WeightedSector6M  *float64 `json:"Weighted_Sector_6M"`
	WeightedSector1Y  *float64 `json:"Weighted_Sector_1Y"`
	WeightedSector18M *float64 `json:"Weighted_Sector_18M"`

	ReturnVsSP5006M   *float64 `json:"Return_vs_SP500_6M"`
	ReturnVsSP5001Y   *float64 `json:"Return_vs_SP500_1Y"`
	ReturnVsSP50018M  *float64 `json:"Return_vs_SP500_18M"`
	ReturnVsSector6M  *float64 `json:"Return_vs_Sector_6M"`
	ReturnVsSector1Y  *float64 `json:"Return_vs_Sector_1Y"`
	ReturnVsSector18M *float64 `json:"Return_vs_Sector_18M"`

	PctPositiveVsSP5006M  *float64 `json:"Pct_Positive_vs_SP500_6M"`
	PctPositiveVsSP5001Y  *float64 `json:"Pct_Positive_vs_SP500_1Y"`
	PctPositiveVsSector6M *float64 `json:"Pct_Positive_vs_Sector_6M"`

	TransactionCount           int      `json:"Transaction_Count"`
	ExcludedTransactionCount   int      `json:"Excluded_Transaction_Count"`
	MinTransactionValue        *float64 `json:"Min_Transaction_Value"`
	AvgTransactionValue        *float64 `json:"Avg_Transaction_Value"`
	TotalTransactionValue      *float64 `json:"Total_Transaction_Value"`
	AvgDaysBetweenTransactions *int     `json:"Avg_Days_Between_Transactions"`
	NumberOfCompanies          *int     `json:"Number_of_Companies"`
	UniqueTransactionYears     *int     `json:"Unique_Transaction_Years"`
	EarliestTransactionYear    *int     `json:"Earliest_Transaction_Year"`
	MostRecentTransactionYear  *int     `json:"Most_Recent_Transaction_Year"`

	MostCommonCompany            string    `json:"Most_Common_Company"`
	MostActiveSector             string    `json:"Most_Active_Sector"`
	MostCommonCompanyCapCategory CapBucket `json:"Most_Common_Company_Cap_Category"`

	// Rows that qualified for each weighted return; 0 with a value of 0 means "no data"
	Qualifying QualifyingRows `json:"Qualifying_Rows"`
}

// QualifyingRows counts the rows behind each weighted return, per horizon
type QualifyingRows struct {
	Own    [NumHorizons]int `json:"Return"`
	Market [NumHorizons]int `json:"SP500"`
	Sector [NumHorizons]int `json:"Sector"`
}

// HorizonPerformance is a per-horizon view over the flat profile
type HorizonPerformance struct {
	Own      *float64
	Market   *float64
	Sector   *float64
	VsMarket *float64
	VsSector *float64
}

// Key returns the investor key of the profile
func (p *InvestorProfile) Key() InvestorKey {
	return InvestorKey{OwnerCIK: p.OwnerCIK, OwnerName: p.OwnerName}
}

// Horizon returns the weighted figures for h
func (p *InvestorProfile) Horizon(h Horizon) HorizonPerformance {
	switch h {
	case Horizon6M:
		return HorizonPerformance{p.WeightedReturn6M, p.WeightedSP5006M, p.WeightedSector6M, p.ReturnVsSP5006M, p.ReturnVsSector6M}
	case Horizon1Y:
		return HorizonPerformance{p.WeightedReturn1Y, p.WeightedSP5001Y, p.WeightedSector1Y, p.ReturnVsSP5001Y, p.ReturnVsSector1Y}
	case Horizon18M:
		return HorizonPerformance{p.WeightedReturn18M, p.WeightedSP50018M, p.WeightedSector18M, p.ReturnVsSP50018M, p.ReturnVsSector18M}
	default:
		return HorizonPerformance{}
	}
}

// SetHorizon stores the weighted figures for h
func (p *InvestorProfile) SetHorizon(h Horizon, hp HorizonPerformance) {
	switch h {
	case Horizon6M:
		p.WeightedReturn6M, p.WeightedSP5006M, p.WeightedSector6M = hp.Own, hp.Market, hp.Sector
		p.ReturnVsSP5006M, p.ReturnVsSector6M = hp.VsMarket, hp.VsSector
	case Horizon1Y:
		p.WeightedReturn1Y, p.WeightedSP5001Y, p.WeightedSector1Y = hp.Own, hp.Market, hp.Sector
		p.ReturnVsSP5001Y, p.ReturnVsSector1Y = hp.VsMarket, hp.VsSector
	case Horizon18M:
		p.WeightedReturn18M, p.WeightedSP50018M, p.WeightedSector18M = hp.Own, hp.Market, hp.Sector
		p.ReturnVsSP50018M, p.ReturnVsSector18M = hp.VsMarket, hp.VsSector
	}
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }
