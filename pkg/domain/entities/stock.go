package entities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// StockSnapshot holds on-hand quantities per component code, summed across
// every row of an external stock file
type StockSnapshot struct {
	quantities map[string]decimal.Decimal
	order      []string
}

// NewStockSnapshot creates an empty snapshot
func NewStockSnapshot() *StockSnapshot {
	return &StockSnapshot{quantities: make(map[string]decimal.Decimal)}
}

// Add sums a quantity into the entry for code. Codes are matched after trimming.
// Negative rows are adjustments against earlier rows; Validate checks the totals.
func (s *StockSnapshot) Add(code string, quantity decimal.Decimal) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("stock code cannot be empty")
	}
	current, exists := s.quantities[code]
	if !exists {
		s.order = append(s.order, code)
	}
	s.quantities[code] = current.Add(quantity)
	return nil
}

// Validate rejects the first code, in first-seen order, whose summed quantity is negative
func (s *StockSnapshot) Validate() error {
	for _, code := range s.order {
		if q := s.quantities[code]; q.IsNegative() {
			return fmt.Errorf("stock quantity for %s cannot be negative, got %s", code, q)
		}
	}
	return nil
}

// Get returns the summed quantity for code
func (s *StockSnapshot) Get(code string) (decimal.Decimal, bool) {
	q, ok := s.quantities[strings.TrimSpace(code)]
	return q, ok
}

// Codes returns the codes in first-seen order
func (s *StockSnapshot) Codes() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of distinct codes
func (s *StockSnapshot) Len() int {
	return len(s.order)
}

// StockUpdate reports the effect of applying a snapshot to a catalog
type StockUpdate struct {
	Updated []string `json:"updated"`
	// Zeroed are catalog components absent from the snapshot that were reset to 0
	Zeroed []string `json:"zeroed"`
	// Unknown are snapshot codes with no matching component
	Unknown []string `json:"unknown"`
}

// Sort orders every list by code for stable reporting
func (u *StockUpdate) Sort() {
	sort.Strings(u.Updated)
	sort.Strings(u.Zeroed)
	sort.Strings(u.Unknown)
}
