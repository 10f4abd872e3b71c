package contracts

import (
	"encoding/json"
	"fmt"
	"math"
)

// Horizon is a forward window over which post-transaction performance is measured
type Horizon int

const (
	Horizon6M Horizon = iota
	Horizon1Y
	Horizon18M

	NumHorizons = 3
)

// AllHorizons returns the horizons in reporting order
func AllHorizons() []Horizon {
	return []Horizon{Horizon6M, Horizon1Y, Horizon18M}
}

// Label is the column suffix used in every tabular output (6M, 1Y, 18M)
func (h Horizon) Label() string {
	switch h {
	case Horizon6M:
		return "6M"
	case Horizon1Y:
		return "1Y"
	case Horizon18M:
		return "18M"
	default:
		return fmt.Sprintf("H%d", int(h))
	}
}

// DefaultOffsetDays is the calendar-day offset of the horizon
func (h Horizon) DefaultOffsetDays() int {
	switch h {
	case Horizon6M:
		return 180
	case Horizon1Y:
		return 365
	case Horizon18M:
		return 547
	default:
		return 0
	}
}

// ReturnStatus tags a per-transaction return
type ReturnStatus string

const (
	// StatusNotComputed is the zero value: the calculator has not run
	StatusNotComputed ReturnStatus = ""

	StatusNumeric                   ReturnStatus = "NUMERIC"
	StatusFutureDataUnavailable     ReturnStatus = "FUTURE_DATA_UNAVAILABLE"
	StatusHistoricalDataUnavailable ReturnStatus = "HISTORICAL_DATA_UNAVAILABLE"
	StatusNoPriceChange             ReturnStatus = "NO_PRICE_CHANGE"
	StatusMissingData               ReturnStatus = "MISSING_DATA"
)

// Return is a tagged per-transaction return: either a number or the reason it is absent.
// Aggregation must unwrap it with Value; a status can never be averaged as if it were zero.
type Return struct {
	status ReturnStatus
	value  float64
}

// Numeric wraps a computed return. Exactly zero becomes NO_PRICE_CHANGE,
// non-finite input becomes MISSING_DATA.
func Numeric(v float64) Return {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return Return{status: StatusMissingData}
	case v == 0:
		return Return{status: StatusNoPriceChange}
	default:
		return Return{status: StatusNumeric, value: v}
	}
}

// Unavailable builds a non-numeric return with the given status
func Unavailable(status ReturnStatus) Return {
	return Return{status: status}
}

// Status returns the tag
func (r Return) Status() ReturnStatus {
	return r.status
}

// Value unwraps the return. NO_PRICE_CHANGE is a defined zero.
func (r Return) Value() (float64, bool) {
	switch r.status {
	case StatusNumeric:
		return r.value, true
	case StatusNoPriceChange:
		return 0, true
	default:
		return 0, false
	}
}

// Defined reports whether the return carries a usable number
func (r Return) Defined() bool {
	_, ok := r.Value()
	return ok
}

// String renders the number or the status marker
func (r Return) String() string {
	if v, ok := r.Value(); ok {
		return formatFloat(v)
	}
	if r.status == StatusNotComputed {
		return ""
	}
	return string(r.status)
}

// MarshalJSON writes a number for defined returns and the status string otherwise
func (r Return) MarshalJSON() ([]byte, error) {
	if v, ok := r.Value(); ok {
		return json.Marshal(v)
	}
	if r.status == StatusNotComputed {
		return []byte("null"), nil
	}
	return json.Marshal(string(r.status))
}

// UnmarshalJSON accepts the forms produced by MarshalJSON
func (r *Return) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Return{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*r = Numeric(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("return must be a number or status string: %w", err)
	}
	status, err := ParseReturnStatus(s)
	if err != nil {
		return err
	}
	*r = Return{status: status}
	return nil
}

// ParseReturnStatus validates a status marker read back from storage
func ParseReturnStatus(s string) (ReturnStatus, error) {
	switch st := ReturnStatus(s); st {
	case StatusFutureDataUnavailable, StatusHistoricalDataUnavailable,
		StatusNoPriceChange, StatusMissingData, StatusNotComputed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown return status %q", s)
	}
}
