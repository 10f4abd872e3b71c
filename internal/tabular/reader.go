// Package tabular reads and writes the pipeline's CSV boundary datasets.
// Column names are the stable contract with the presentation layer.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/insiderperf/internal/benchmark"
	"github.com/wonny/insiderperf/internal/contracts"
)

// ErrMissingColumns is returned when a required header is absent
var ErrMissingColumns = errors.New("missing required columns")

// Transaction input columns
const (
	ColOwnerCIK       = "OWNER_CIK"
	ColOwnerName      = "OWNER_NAME"
	ColTicker         = "ISSUERTRADINGSYMBOL"
	ColIssuerName     = "ISSUERNAME"
	ColSector         = "GICS_SECTOR"
	ColSubIndustry    = "GICS_SUB_INDUSTRY"
	ColTransDate      = "TRANS_DATE"
	ColShares         = "TRANS_SHARES"
	ColPrice          = "TRANS_PRICEPERSHARE"
	ColSplit          = "SPLIT_ADJUSTMENT"
	ColAdjustedShares = "ADJUSTED_TRANS_SHARES"
	ColAdjustedPrice  = "ADJUSTED_TRANS_PRICEPERSHARE"
	ColMarketCap      = "Market Cap"
	ColDate           = "Date"
)

// ForwardPriceColumn is the upstream column holding the resolved price at h
func ForwardPriceColumn(h contracts.Horizon) string {
	switch h {
	case contracts.Horizon6M:
		return "6 Month Price"
	case contracts.Horizon1Y:
		return "1 Year Price"
	default:
		return "18 Month Price"
	}
}

var requiredTransactionColumns = []string{
	ColOwnerCIK, ColOwnerName, ColTicker, ColTransDate, ColAdjustedShares, ColAdjustedPrice,
	"6 Month Price", "1 Year Price", "18 Month Price",
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"01/02/2006",
	"1/2/2006",
}

// header maps column name to index
type header map[string]int

func readHeader(cr *csv.Reader) (header, error) {
	names, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumns)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(names))
	for i, name := range names {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		h[strings.TrimSpace(name)] = i
	}
	return h, nil
}

func (h header) require(cols []string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// rowParser turns cells into values, recording coercion failures
type rowParser struct {
	row   int
	key   contracts.InvestorKey
	diags []contracts.Diagnostic
}

// number parses a numeric cell. Empty cells are missing; anything else that
// fails to parse or is not finite ("Inf", "NaN") is missing too, with a diagnostic.
func (p *rowParser) number(raw, col string) float64 {
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.diags = append(p.diags, contracts.Diagnostic{
			Code:      contracts.DiagUnparseableNumericField,
			Severity:  contracts.DiagUnparseableNumericField.Severity(),
			OwnerCIK:  p.key.OwnerCIK,
			OwnerName: p.key.OwnerName,
			Row:       p.row,
			Column:    col,
			Detail:    fmt.Sprintf("cannot parse %q as a number", raw),
		})
		return math.NaN()
	}
	return v
}

// ParseDate accepts the date layouts seen in upstream exports and drops any zone offset
func ParseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return benchmark.Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// ReadTransactions parses the transaction table. Missing required columns and
// unparseable dates are fatal; unparseable numbers become NaN plus a diagnostic.
func ReadTransactions(r io.Reader) ([]*contracts.Transaction, []contracts.Diagnostic, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	if err := h.require(requiredTransactionColumns); err != nil {
		return nil, nil, fmt.Errorf("transactions: %w", err)
	}

	var (
		txs   []*contracts.Transaction
		diags []contracts.Diagnostic
	)
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("transactions row %d: %w", row, err)
		}

		date, err := ParseDate(h.get(record, ColTransDate))
		if err != nil {
			return nil, nil, fmt.Errorf("transactions row %d: %s: %w", row, ColTransDate, err)
		}

		p := &rowParser{row: row, key: contracts.InvestorKey{
			OwnerCIK:  h.get(record, ColOwnerCIK),
			OwnerName: h.get(record, ColOwnerName),
		}}
		tx := &contracts.Transaction{
			Row:             row,
			Investor:        p.key,
			Ticker:          h.get(record, ColTicker),
			IssuerName:      h.get(record, ColIssuerName),
			Sector:          h.get(record, ColSector),
			SubIndustry:     h.get(record, ColSubIndustry),
			TransDate:       date,
			Shares:          p.number(h.get(record, ColShares), ColShares),
			PricePerShare:   p.number(h.get(record, ColPrice), ColPrice),
			SplitAdjustment: p.number(h.get(record, ColSplit), ColSplit),
			AdjustedShares:  p.number(h.get(record, ColAdjustedShares), ColAdjustedShares),
			AdjustedPrice:   p.number(h.get(record, ColAdjustedPrice), ColAdjustedPrice),
			MarketCap:       p.number(h.get(record, ColMarketCap), ColMarketCap),
		}
		for _, hz := range contracts.AllHorizons() {
			col := ForwardPriceColumn(hz)
			tx.ForwardPrices[hz] = p.number(h.get(record, col), col)
		}

		txs = append(txs, tx)
		diags = append(diags, p.diags...)
	}

	return txs, diags, nil
}

// ReadBenchmark parses the dated benchmark table: a Date column plus one
// column per index. Unparseable levels become NaN plus a diagnostic.
func ReadBenchmark(r io.Reader) (*benchmark.Series, []contracts.Diagnostic, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	h, err := readHeader(cr)
	if err != nil {
		return nil, nil, err
	}
	if err := h.require([]string{ColDate}); err != nil {
		return nil, nil, fmt.Errorf("benchmark: %w", err)
	}

	names := make([]string, 0, len(h)-1)
	for name := range h {
		if name != ColDate && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var (
		dates   []time.Time
		columns = make(map[string][]float64, len(names))
		p       = &rowParser{}
	)
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("benchmark row %d: %w", row, err)
		}

		date, err := ParseDate(h.get(record, ColDate))
		if err != nil {
			return nil, nil, fmt.Errorf("benchmark row %d: %w", row, err)
		}
		dates = append(dates, date)

		p.row = row
		for _, name := range names {
			columns[name] = append(columns[name], p.number(h.get(record, name), name))
		}
	}

	if len(dates) == 0 {
		return nil, nil, benchmark.ErrMissingSeriesData
	}

	series, err := benchmark.NewSeries(dates, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("benchmark: %w", err)
	}
	return series, p.diags, nil
}
