// Package quality validates computed returns and collects run diagnostics.
package quality

import (
	"sort"
	"sync"

	"github.com/wonny/insiderperf/internal/contracts"
)

// Collector gathers diagnostics from concurrent workers
// ⭐ SSOT: the only channel for non-fatal anomalies of a run
type Collector struct {
	mu    sync.Mutex
	items []contracts.Diagnostic
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// Add records diagnostics
func (c *Collector) Add(diags ...contracts.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, diags...)
	c.mu.Unlock()
}

// Len returns the number of recorded diagnostics
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Diagnostics returns a copy in deterministic order:
// run-level first, then by investor, row, code and column
func (c *Collector) Diagnostics() []contracts.Diagnostic {
	c.mu.Lock()
	out := make([]contracts.Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Investor() != b.Investor() {
			return a.Investor().Less(b.Investor())
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Column < b.Column
	})
	return out
}

// CountByCode tallies diagnostics per code
func (c *Collector) CountByCode() map[contracts.DiagnosticCode]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts := make(map[contracts.DiagnosticCode]int)
	for _, d := range c.items {
		counts[d.Code]++
	}
	return counts
}
