package quality

import (
	"github.com/wonny/insiderperf/internal/contracts"
)

// coverage weights per return kind (sum = 1.0), split evenly across horizons
var kindWeights = map[contracts.ReturnKind]float64{
	contracts.KindOwn:    0.50, // own price change drives every profile
	contracts.KindMarket: 0.30,
	contracts.KindSector: 0.20,
}

// Coverage measures, per return column, the fraction of transactions with a numeric return
func Coverage(txs []*contracts.Transaction) *contracts.CoverageSnapshot {
	snapshot := &contracts.CoverageSnapshot{
		TotalTransactions: len(txs),
		Coverage:          make(map[string]float64),
	}

	for _, tx := range txs {
		if tx.HasPositiveValue() {
			snapshot.ValidTransactions++
		}
	}

	for _, col := range contracts.ReturnColumns() {
		defined := 0
		for _, tx := range txs {
			if col.Of(tx).Defined() {
				defined++
			}
		}
		rate := 0.0
		if len(txs) > 0 {
			rate = float64(defined) / float64(len(txs))
		}
		snapshot.Coverage[col.Name()] = rate
	}

	snapshot.QualityScore = calculateScore(snapshot.Coverage)
	return snapshot
}

// calculateScore sums coverage times weight in column order
func calculateScore(coverage map[string]float64) float64 {
	score := 0.0
	for _, col := range contracts.ReturnColumns() {
		if cov, exists := coverage[col.Name()]; exists {
			score += cov * kindWeights[col.Kind] / contracts.NumHorizons
		}
	}
	return score
}
