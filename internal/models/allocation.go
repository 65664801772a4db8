// Package models defines shared value types for rebal.
package models

import (
	"fmt"
	"strings"
)

// Allocation is the user's target weighting for one symbol.
// InstrumentID is an optional cached contract id; zero means unresolved.
type Allocation struct {
	Symbol        string  `json:"symbol"`
	TargetPercent float64 `json:"target_percent"`
	InstrumentID  int64   `json:"instrument_id,omitempty"`
}

// ValidateAllocations checks a full allocation set before it is persisted.
// Each target must be in (0,100], symbols must be unique case-insensitively,
// and the targets must sum to at most 100.
func ValidateAllocations(allocations []*Allocation) error {
	seen := make(map[string]bool, len(allocations))
	var sum float64

	for _, a := range allocations {
		symbol := strings.TrimSpace(a.Symbol)
		if symbol == "" {
			return fmt.Errorf("allocation symbol cannot be empty")
		}
		key := strings.ToUpper(symbol)
		if seen[key] {
			return fmt.Errorf("duplicate allocation for symbol %s", key)
		}
		seen[key] = true

		if a.TargetPercent <= 0 || a.TargetPercent > 100 {
			return fmt.Errorf("allocation %s: target percent must be in (0,100], got %v", key, a.TargetPercent)
		}
		sum += a.TargetPercent
	}

	if sum > 100 {
		return fmt.Errorf("allocation targets sum to %.2f%%, must not exceed 100%%", sum)
	}

	return nil
}

// ValidateBufferPercent checks a buffer fraction before it is persisted.
func ValidateBufferPercent(buffer float64) error {
	if buffer < 0 || buffer > 1 {
		return fmt.Errorf("buffer percent must be within [0,1], got %v", buffer)
	}
	return nil
}
