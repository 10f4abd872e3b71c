package quality

import (
	"fmt"
	"math"

	"github.com/wonny/insiderperf/internal/attribcfg"
	"github.com/wonny/insiderperf/internal/contracts"
)

// Validator reports missing and suspicious return values.
// Findings never alter computed output.
type Validator struct {
	cfg attribcfg.Validation
}

// NewValidator creates a validator with the given thresholds
func NewValidator(cfg attribcfg.Validation) *Validator {
	return &Validator{cfg: cfg}
}

// Check inspects each return column over one investor's filtered transactions
func (v *Validator) Check(key contracts.InvestorKey, txs []*contracts.Transaction) []contracts.Diagnostic {
	var diags []contracts.Diagnostic

	for _, col := range contracts.ReturnColumns() {
		missing, suspicious := 0, 0
		for _, tx := range txs {
			r, ok := col.Of(tx).Value()
			if !ok {
				missing++
				continue
			}
			if v.isSuspicious(r) {
				suspicious++
			}
		}

		if missing > 0 {
			diags = append(diags, investorDiagnostic(key, contracts.DiagMissingReturnValues, col.Name(), missing,
				fmt.Sprintf("%d of %d values are not numeric", missing, len(txs))))
		}
		if suspicious > 0 {
			diags = append(diags, investorDiagnostic(key, contracts.DiagSuspiciousReturnValues, col.Name(), suspicious,
				fmt.Sprintf("%d values with |r| > %g%s", suspicious, v.cfg.SuspiciousAbsReturn, v.zeroSuffix())))
		}
	}

	return diags
}

func (v *Validator) isSuspicious(r float64) bool {
	if math.Abs(r) > v.cfg.SuspiciousAbsReturn {
		return true
	}
	return v.cfg.FlagZeroReturns && r == 0
}

func (v *Validator) zeroSuffix() string {
	if v.cfg.FlagZeroReturns {
		return " or exactly 0"
	}
	return ""
}

func investorDiagnostic(key contracts.InvestorKey, code contracts.DiagnosticCode, column string, count int, detail string) contracts.Diagnostic {
	return contracts.Diagnostic{
		Code:      code,
		Severity:  code.Severity(),
		OwnerCIK:  key.OwnerCIK,
		OwnerName: key.OwnerName,
		Column:    column,
		Count:     count,
		Detail:    detail,
	}
}

// NoValidTransactions builds the diagnostic for an investor with nothing to weight
func NoValidTransactions(key contracts.InvestorKey, excluded int) contracts.Diagnostic {
	return contracts.Diagnostic{
		Code:      contracts.DiagNoValidTransactions,
		Severity:  contracts.DiagNoValidTransactions.Severity(),
		OwnerCIK:  key.OwnerCIK,
		OwnerName: key.OwnerName,
		Count:     excluded,
		Detail:    fmt.Sprintf("no transactions with positive adjusted value (%d excluded)", excluded),
	}
}
