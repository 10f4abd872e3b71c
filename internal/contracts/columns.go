package contracts

// ReturnKind selects which of a transaction's three returns a column holds
type ReturnKind int

const (
	KindOwn ReturnKind = iota
	KindMarket
	KindSector
)

// ReturnColumn names one per-transaction return column, e.g. SP500_RETURN_1Y
type ReturnColumn struct {
	Kind    ReturnKind
	Horizon Horizon
}

// ReturnColumns lists the nine return columns: own, then market, then sector
func ReturnColumns() []ReturnColumn {
	cols := make([]ReturnColumn, 0, 3*NumHorizons)
	for _, kind := range []ReturnKind{KindOwn, KindMarket, KindSector} {
		for _, h := range AllHorizons() {
			cols = append(cols, ReturnColumn{Kind: kind, Horizon: h})
		}
	}
	return cols
}

// Name is the tabular column name
func (c ReturnColumn) Name() string {
	switch c.Kind {
	case KindMarket:
		return "SP500_RETURN_" + c.Horizon.Label()
	case KindSector:
		return "SECTOR_RETURN_" + c.Horizon.Label()
	default:
		return "RETURN_" + c.Horizon.Label()
	}
}

// Of reads the column from tx
func (c ReturnColumn) Of(tx *Transaction) Return {
	r := tx.Returns(c.Horizon)
	switch c.Kind {
	case KindMarket:
		return r.Market
	case KindSector:
		return r.Sector
	default:
		return r.Own
	}
}
