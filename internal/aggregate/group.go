// Package aggregate turns enriched transactions into one profile per investor.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/wonny/insiderperf/internal/contracts"
)

// Group is one investor with its transactions in input order
type Group struct {
	Key          contracts.InvestorKey
	Transactions []*contracts.Transaction
}

// GroupByInvestor partitions transactions by (owner code, owner name).
// Groups are ordered by key.
func GroupByInvestor(txs []*contracts.Transaction) []Group {
	index := make(map[contracts.InvestorKey]int)
	var groups []Group

	for _, tx := range txs {
		i, ok := index[tx.Investor]
		if !ok {
			i = len(groups)
			index[tx.Investor] = i
			groups = append(groups, Group{Key: tx.Investor})
		}
		groups[i].Transactions = append(groups[i].Transactions, tx)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Key.Less(groups[j].Key)
	})
	return groups
}

// canonicalOrder sorts rows so that every sum and "first row" pick is independent of input order
func canonicalOrder(txs []*contracts.Transaction) []*contracts.Transaction {
	out := make([]*contracts.Transaction, len(txs))
	copy(out, txs)

	sort.SliceStable(out, func(i, j int) bool {
		return compareRows(out[i], out[j]) < 0
	})
	return out
}

func compareRows(a, b *contracts.Transaction) int {
	if c := a.TransDate.Compare(b.TransDate); c != 0 {
		return c
	}
	if a.Ticker != b.Ticker {
		return strings.Compare(a.Ticker, b.Ticker)
	}
	if c := compareFloat(a.AdjustedTotalValue(), b.AdjustedTotalValue()); c != 0 {
		return c
	}
	for _, col := range contracts.ReturnColumns() {
		if c := compareReturn(col.Of(a), col.Of(b)); c != 0 {
			return c
		}
	}
	if a.Sector != b.Sector {
		return strings.Compare(a.Sector, b.Sector)
	}
	if c := compareFloat(a.MarketCap, b.MarketCap); c != 0 {
		return c
	}
	return a.Row - b.Row
}

func compareReturn(a, b contracts.Return) int {
	if a.Status() != b.Status() {
		return strings.Compare(string(a.Status()), string(b.Status()))
	}
	av, _ := a.Value()
	bv, _ := b.Value()
	return compareFloat(av, bv)
}

// compareFloat orders NaN after every number
func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	default:
		return -1
	}
}
