package tabular

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/insiderperf/internal/benchmark"
	"github.com/wonny/insiderperf/internal/contracts"
)

const transactionsCSV = "\ufeffOWNER_CIK,OWNER_NAME,ISSUERTRADINGSYMBOL,ISSUERNAME,GICS_SECTOR,GICS_SUB_INDUSTRY,TRANS_DATE,TRANS_SHARES,TRANS_PRICEPERSHARE,SPLIT_ADJUSTMENT,ADJUSTED_TRANS_SHARES,ADJUSTED_TRANS_PRICEPERSHARE,Market Cap,6 Month Price,1 Year Price,18 Month Price\n" +
	"0001,Doe Jane,XOM,Exxon Mobil,Energy,Integrated Oil & Gas,2020-01-01,100,20,2,200,10,\"250,000,000,000\",11,12,9\n" +
	"0002,Roe Bob,CVX,Chevron,Energy,Integrated Oil & Gas,2020-03-15 00:00:00,10,50,1,10,50,n/a,,55,60\n"

func TestReadTransactions(t *testing.T) {
	txs, diags, err := ReadTransactions(strings.NewReader(transactionsCSV))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	jane := txs[0]
	assert.Equal(t, 1, jane.Row)
	assert.Equal(t, contracts.InvestorKey{OwnerCIK: "0001", OwnerName: "Doe Jane"}, jane.Investor)
	assert.Equal(t, "XOM", jane.Ticker)
	assert.Equal(t, "Energy", jane.Sector)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), jane.TransDate)
	assert.Equal(t, 2000.0, jane.TotalValue())
	assert.Equal(t, 2000.0, jane.AdjustedTotalValue())
	assert.Equal(t, 250e9, jane.MarketCap)
	assert.Equal(t, [3]float64{11, 12, 9}, jane.ForwardPrices)

	bob := txs[1]
	assert.Equal(t, 2, bob.Row)
	assert.True(t, math.IsNaN(bob.MarketCap))
	assert.True(t, math.IsNaN(bob.ForwardPrices[contracts.Horizon6M]))

	// the empty 6M price is missing, not unparseable
	require.Len(t, diags, 1)
	assert.Equal(t, contracts.DiagUnparseableNumericField, diags[0].Code)
	assert.Equal(t, 2, diags[0].Row)
	assert.Equal(t, ColMarketCap, diags[0].Column)
	assert.Equal(t, "0002", diags[0].OwnerCIK)
}

func TestReadTransactions_NonFiniteNumbers(t *testing.T) {
	input := "OWNER_CIK,OWNER_NAME,ISSUERTRADINGSYMBOL,TRANS_DATE,ADJUSTED_TRANS_SHARES,ADJUSTED_TRANS_PRICEPERSHARE,6 Month Price,1 Year Price,18 Month Price\n" +
		"1,A,XOM,2020-01-01,100,10,11,12,9\n" +
		"1,A,XOM,2020-02-01,Inf,10,NaN,-inf,9\n"

	txs, diags, err := ReadTransactions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	bad := txs[1]
	assert.True(t, math.IsNaN(bad.AdjustedShares))
	assert.True(t, math.IsNaN(bad.ForwardPrices[contracts.Horizon6M]))
	assert.True(t, math.IsNaN(bad.ForwardPrices[contracts.Horizon1Y]))
	assert.Equal(t, 9.0, bad.ForwardPrices[contracts.Horizon18M])
	assert.False(t, bad.HasPositiveValue())
	assert.True(t, txs[0].HasPositiveValue())

	require.Len(t, diags, 3)
	var columns []string
	for _, d := range diags {
		assert.Equal(t, contracts.DiagUnparseableNumericField, d.Code)
		assert.Equal(t, 2, d.Row)
		columns = append(columns, d.Column)
	}
	assert.Equal(t, []string{ColAdjustedShares, "6 Month Price", "1 Year Price"}, columns)
}

func TestReadTransactions_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{"empty", "", ErrMissingColumns, "empty input"},
		{"missing columns", "OWNER_CIK,OWNER_NAME\n1,a\n", ErrMissingColumns, "ISSUERTRADINGSYMBOL"},
		{
			"bad date",
			"OWNER_CIK,OWNER_NAME,ISSUERTRADINGSYMBOL,TRANS_DATE,ADJUSTED_TRANS_SHARES,ADJUSTED_TRANS_PRICEPERSHARE,6 Month Price,1 Year Price,18 Month Price\n" +
				"1,a,X,yesterday,1,1,1,1,1\n",
			nil, "row 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadTransactions(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReadBenchmark(t *testing.T) {
	input := "Date,S&P 500,Energy\n" +
		"2020-06-30,3100,380\n" +
		"2020-01-02,3250,x\n"

	series, diags, err := ReadBenchmark(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, series.Len())
	assert.Equal(t, []string{"Energy", "S&P 500"}, series.Columns())
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), series.MinDate())

	v, err := series.NearestValue(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), "S&P 500")
	require.NoError(t, err)
	assert.Equal(t, 3100.0, v)

	require.Len(t, diags, 1)
	assert.Equal(t, 2, diags[0].Row)
	assert.Equal(t, "Energy", diags[0].Column)
}

func TestReadBenchmark_Errors(t *testing.T) {
	_, _, err := ReadBenchmark(strings.NewReader("Date,S&P 500\n"))
	assert.ErrorIs(t, err, benchmark.ErrMissingSeriesData)

	_, _, err = ReadBenchmark(strings.NewReader("When,S&P 500\n2020-01-01,1\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)

	_, _, err = ReadBenchmark(strings.NewReader("Date,S&P 500\n2020-01-01,1\n2020-01-01,2\n"))
	assert.ErrorIs(t, err, benchmark.ErrDuplicateDate)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2021, 3, 4, 9, 30, 0, 0, time.UTC)
	for _, raw := range []string{"2021-03-04T09:30:00-05:00", "2021-03-04 09:30:00", "2021-03-04T09:30:00Z"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	got, err := ParseDate("3/4/2021")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), got)
}

func readAll(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteProfiles(t *testing.T) {
	profiles := []contracts.InvestorProfile{
		{
			OwnerCIK: "0001", OwnerName: "Doe Jane",
			WeightedReturn6M:             contracts.Float(0.1),
			ReturnVsSP5006M:              contracts.Float(0.06),
			TransactionCount:             1,
			AvgDaysBetweenTransactions:   contracts.Int(0),
			MostCommonCompany:            "XOM",
			MostCommonCompanyCapCategory: contracts.CapMega,
			Qualifying:                   contracts.QualifyingRows{Own: [3]int{1, 1, 0}},
		},
		{OwnerCIK: "0002", OwnerName: "Roe Bob", ExcludedTransactionCount: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProfiles(&buf, profiles, ProfileOptions{}))
	records := readAll(t, &buf)

	require.Len(t, records, 3)
	assert.Equal(t, ProfileColumns, records[0])
	assert.Len(t, ProfileColumns, 32)

	col := func(name string) int {
		for i, c := range records[0] {
			if c == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	assert.Equal(t, "0.1", records[1][col("Weighted_Return_6M")])
	assert.Equal(t, "0.06", records[1][col("Return_vs_SP500_6M")])
	assert.Equal(t, "", records[1][col("Weighted_SP500_6M")])
	assert.Equal(t, "0", records[1][col("Avg_Days_Between_Transactions")])
	assert.Equal(t, "Mega Cap", records[1][col("Most_Common_Company_Cap_Category")])
	assert.Equal(t, "0", records[2][col("Transaction_Count")])
	assert.Equal(t, "", records[2][col("Total_Transaction_Value")])

	buf.Reset()
	require.NoError(t, WriteProfiles(&buf, profiles, ProfileOptions{WithCoverage: true}))
	records = readAll(t, &buf)
	require.Len(t, records[0], 32+10)
	assert.Equal(t, "Excluded_Transaction_Count", records[0][32])
	assert.Equal(t, "Qualifying_Return_6M", records[0][33])
	assert.Equal(t, "Qualifying_Sector_18M", records[0][41])
	assert.Equal(t, []string{"0", "1", "1", "0"}, records[1][32:36])
	assert.Equal(t, "1", records[2][32])
}

func TestWriteTransactions(t *testing.T) {
	txs, _, err := ReadTransactions(strings.NewReader(transactionsCSV))
	require.NoError(t, err)

	txs[0].Enrichment = &contracts.Enrichment{
		MarketLevel:     100,
		SectorLevel:     50,
		MarketCondition: contracts.MarketNeutral,
	}
	txs[0].Enrichment.Horizons[contracts.Horizon6M] = contracts.HorizonResult{
		MarketLevel: 104, SectorLevel: 55,
		Own:    contracts.Numeric(0.1),
		Market: contracts.Numeric(0.04),
		Sector: contracts.Unavailable(contracts.StatusFutureDataUnavailable),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txs))
	records := readAll(t, &buf)
	require.Len(t, records, 3)

	header := records[0]
	row := map[string]string{}
	for i, name := range header {
		row[name] = records[1][i]
	}

	assert.Equal(t, "2020-01-01", row["TRANS_DATE"])
	assert.Equal(t, "2000", row["TOTAL_TRANS_VALUE"])
	assert.Equal(t, "2000", row["ADJUSTED_TOTAL_TRANS_VALUE"])
	assert.Equal(t, "100", row["SP500"])
	assert.Equal(t, "104", row["SP500_6M"])
	assert.Equal(t, "0.1", row["RETURN_6M"])
	assert.Equal(t, "FUTURE_DATA_UNAVAILABLE", row["SECTOR_RETURN_6M"])
	assert.Equal(t, "0.06", row["Vs_SP500_6M"][:4])
	assert.Equal(t, "", row["Vs_Sector_6M"])
	assert.Equal(t, "Neutral", row["Market_Condition"])

	// not enriched
	bob := map[string]string{}
	for i, name := range header {
		bob[name] = records[2][i]
	}
	assert.Equal(t, "", bob["SP500"])
	assert.Equal(t, "", bob["RETURN_1Y"])
	assert.Equal(t, "", bob["Market Cap"])
}

func TestWriteDiagnostics(t *testing.T) {
	diags := []contracts.Diagnostic{
		{Code: contracts.DiagNoValidTransactions, Severity: contracts.SeverityWarn, OwnerCIK: "0002", OwnerName: "Roe Bob", Detail: "no positive-value transactions"},
		{Code: contracts.DiagUnparseableNumericField, Severity: contracts.SeverityWarn, Row: 7, Column: "Market Cap", Detail: "cannot parse"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDiagnostics(&buf, diags))
	records := readAll(t, &buf)

	require.Len(t, records, 3)
	assert.Equal(t, DiagnosticColumns, records[0])
	assert.Equal(t, "NO_VALID_TRANSACTIONS", records[1][0])
	assert.Equal(t, "", records[1][4])
	assert.Equal(t, "7", records[2][4])
	assert.Equal(t, "Market Cap", records[2][6])
}
