package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/wonny/insiderperf/internal/contracts"
)

// ProfileColumns is the investor profile column set, in output order
var ProfileColumns = []string{
	"OWNER_CIK", "OWNER_NAME",
	"Weighted_Return_6M", "Weighted_Return_1Y", "Weighted_Return_18M",
	"Weighted_SP500_6M", "Weighted_SP500_1Y", "Weighted_SP500_18M",
	"Weighted_Sector_6M", "Weighted_Sector_1Y", "Weighted_Sector_18M",
	"Return_vs_SP500_6M", "Return_vs_SP500_1Y", "Return_vs_SP500_18M",
	"Return_vs_Sector_6M", "Return_vs_Sector_1Y", "Return_vs_Sector_18M",
	"Pct_Positive_vs_SP500_6M", "Pct_Positive_vs_SP500_1Y", "Pct_Positive_vs_Sector_6M",
	"Transaction_Count", "Min_Transaction_Value", "Avg_Transaction_Value", "Total_Transaction_Value",
	"Avg_Days_Between_Transactions", "Number_of_Companies",
	"Earliest_Transaction_Year", "Most_Recent_Transaction_Year", "Unique_Transaction_Years",
	"Most_Common_Company", "Most_Active_Sector", "Most_Common_Company_Cap_Category",
}

// ProfileOptions controls optional profile columns
type ProfileOptions struct {
	// WithCoverage appends the excluded-row count and the qualifying-row count of each weighted return
	WithCoverage bool
}

func coverageColumns() []string {
	cols := []string{"Excluded_Transaction_Count"}
	for _, prefix := range []string{"Qualifying_Return_", "Qualifying_SP500_", "Qualifying_Sector_"} {
		for _, h := range contracts.AllHorizons() {
			cols = append(cols, prefix+h.Label())
		}
	}
	return cols
}

// WriteProfiles writes one row per profile. Nil fields are empty cells.
func WriteProfiles(w io.Writer, profiles []contracts.InvestorProfile, opts ProfileOptions) error {
	cw := csv.NewWriter(w)

	cols := ProfileColumns
	if opts.WithCoverage {
		cols = append(append([]string{}, ProfileColumns...), coverageColumns()...)
	}
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write profile header: %w", err)
	}

	for i := range profiles {
		p := &profiles[i]
		record := []string{
			p.OwnerCIK, p.OwnerName,
			floatPtr(p.WeightedReturn6M), floatPtr(p.WeightedReturn1Y), floatPtr(p.WeightedReturn18M),
			floatPtr(p.WeightedSP5006M), floatPtr(p.WeightedSP5001Y), floatPtr(p.WeightedSP50018M),
			floatPtr(p.WeightedSector6M), floatPtr(p.WeightedSector1Y), floatPtr(p.WeightedSector18M),
			floatPtr(p.ReturnVsSP5006M), floatPtr(p.ReturnVsSP5001Y), floatPtr(p.ReturnVsSP50018M),
			floatPtr(p.ReturnVsSector6M), floatPtr(p.ReturnVsSector1Y), floatPtr(p.ReturnVsSector18M),
			floatPtr(p.PctPositiveVsSP5006M), floatPtr(p.PctPositiveVsSP5001Y), floatPtr(p.PctPositiveVsSector6M),
			strconv.Itoa(p.TransactionCount),
			floatPtr(p.MinTransactionValue), floatPtr(p.AvgTransactionValue), floatPtr(p.TotalTransactionValue),
			intPtr(p.AvgDaysBetweenTransactions), intPtr(p.NumberOfCompanies),
			intPtr(p.EarliestTransactionYear), intPtr(p.MostRecentTransactionYear), intPtr(p.UniqueTransactionYears),
			p.MostCommonCompany, p.MostActiveSector, string(p.MostCommonCompanyCapCategory),
		}
		if opts.WithCoverage {
			record = append(record, strconv.Itoa(p.ExcludedTransactionCount))
			for _, counts := range [][contracts.NumHorizons]int{p.Qualifying.Own, p.Qualifying.Market, p.Qualifying.Sector} {
				for _, n := range counts {
					record = append(record, strconv.Itoa(n))
				}
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write profile %s: %w", p.Key(), err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// TransactionColumns returns the enriched transaction header
func TransactionColumns() []string {
	cols := []string{
		ColOwnerCIK, ColOwnerName, ColTicker, ColIssuerName, ColSector, ColSubIndustry, ColTransDate,
		ColShares, ColPrice, ColSplit, ColAdjustedShares, ColAdjustedPrice, ColMarketCap,
	}
	for _, h := range contracts.AllHorizons() {
		cols = append(cols, ForwardPriceColumn(h))
	}
	cols = append(cols, "TOTAL_TRANS_VALUE", "ADJUSTED_TOTAL_TRANS_VALUE", "SP500", "SECTOR")
	for _, h := range contracts.AllHorizons() {
		cols = append(cols, "SP500_"+h.Label(), "SECTOR_"+h.Label())
	}
	for _, c := range contracts.ReturnColumns() {
		cols = append(cols, c.Name())
	}
	for _, h := range contracts.AllHorizons() {
		cols = append(cols, "Vs_SP500_"+h.Label(), "Vs_Sector_"+h.Label())
	}
	return append(cols, "Market_Condition")
}

// WriteTransactions writes enriched transactions. Unavailable returns are
// written as their status marker so the reason survives the export.
func WriteTransactions(w io.Writer, txs []*contracts.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionColumns()); err != nil {
		return fmt.Errorf("write transaction header: %w", err)
	}

	for _, tx := range txs {
		record := []string{
			tx.Investor.OwnerCIK, tx.Investor.OwnerName, tx.Ticker, tx.IssuerName, tx.Sector, tx.SubIndustry,
			tx.TransDate.Format("2006-01-02"),
			formatFloat(tx.Shares), formatFloat(tx.PricePerShare), formatFloat(tx.SplitAdjustment),
			formatFloat(tx.AdjustedShares), formatFloat(tx.AdjustedPrice), formatFloat(tx.MarketCap),
		}
		for _, p := range tx.ForwardPrices {
			record = append(record, formatFloat(p))
		}
		record = append(record, formatFloat(tx.TotalValue()), formatFloat(tx.AdjustedTotalValue()))

		enr := tx.Enrichment
		if enr == nil {
			enr = &contracts.Enrichment{MarketLevel: math.NaN(), SectorLevel: math.NaN()}
		}
		record = append(record, formatFloat(enr.MarketLevel), formatFloat(enr.SectorLevel))
		for _, h := range contracts.AllHorizons() {
			r := tx.Returns(h)
			record = append(record, formatFloat(r.MarketLevel), formatFloat(r.SectorLevel))
		}
		for _, c := range contracts.ReturnColumns() {
			record = append(record, c.Of(tx).String())
		}
		for _, h := range contracts.AllHorizons() {
			r := tx.Returns(h)
			record = append(record, relative(r.VsMarket()), relative(r.VsSector()))
		}
		record = append(record, string(enr.MarketCondition))

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write transaction row %d: %w", tx.Row, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// DiagnosticColumns is the diagnostics export header
var DiagnosticColumns = []string{"code", "severity", "owner_cik", "owner_name", "row", "ticker", "column", "count", "detail"}

// WriteDiagnostics writes one row per diagnostic
func WriteDiagnostics(w io.Writer, diags []contracts.Diagnostic) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DiagnosticColumns); err != nil {
		return fmt.Errorf("write diagnostic header: %w", err)
	}
	for _, d := range diags {
		record := []string{
			string(d.Code), string(d.Severity), d.OwnerCIK, d.OwnerName,
			optionalInt(d.Row), d.Ticker, d.Column, optionalInt(d.Count), d.Detail,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write diagnostic: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func floatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func intPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func relative(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return formatFloat(v)
}
