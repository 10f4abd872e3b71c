package contracts

import "fmt"

// DiagnosticCode names a non-fatal anomaly
type DiagnosticCode string

const (
	DiagNoValidTransactions     DiagnosticCode = "NO_VALID_TRANSACTIONS"
	DiagMissingReturnValues     DiagnosticCode = "MISSING_RETURN_VALUES"
	DiagSuspiciousReturnValues  DiagnosticCode = "SUSPICIOUS_RETURN_VALUES"
	DiagUnparseableNumericField DiagnosticCode = "UNPARSEABLE_NUMERIC_FIELD"
	DiagHorizonDataUnavailable  DiagnosticCode = "HORIZON_DATA_UNAVAILABLE"
	DiagNonPositiveValue        DiagnosticCode = "NON_POSITIVE_TRANSACTION_VALUE"
	DiagMissingSector           DiagnosticCode = "MISSING_SECTOR"
)

// Severity of a diagnostic
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
)

// Severity returns the default severity of the code
func (c DiagnosticCode) Severity() Severity {
	switch c {
	case DiagHorizonDataUnavailable, DiagNonPositiveValue:
		return SeverityInfo
	default:
		return SeverityWarn
	}
}

// Diagnostic is an anomaly attributable to an investor and/or a source row
type Diagnostic struct {
	Code      DiagnosticCode `json:"code"`
	Severity  Severity       `json:"severity"`
	OwnerCIK  string         `json:"owner_cik,omitempty"`
	OwnerName string         `json:"owner_name,omitempty"`
	Row       int            `json:"row,omitempty"`
	Ticker    string         `json:"ticker,omitempty"`
	Column    string         `json:"column,omitempty"`
	Count     int            `json:"count,omitempty"`
	Detail    string         `json:"detail"`
}

// Investor returns the investor the diagnostic is attributed to
func (d Diagnostic) Investor() InvestorKey {
	return InvestorKey{OwnerCIK: d.OwnerCIK, OwnerName: d.OwnerName}
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("[%s] %s", d.Severity, d.Code)
	if d.OwnerCIK != "" || d.OwnerName != "" {
		s += " investor=" + d.Investor().String()
	}
	if d.Row > 0 {
		s += fmt.Sprintf(" row=%d", d.Row)
	}
	if d.Column != "" {
		s += " column=" + d.Column
	}
	if d.Count > 0 {
		s += fmt.Sprintf(" count=%d", d.Count)
	}
	return s + ": " + d.Detail
}
