package mrp

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

// QuantityPolicy selects how a BOM line's quantity feeds the multiplier
type QuantityPolicy string

const (
	// WeightedQuantity uses quantity x weighting/100 rounded to four places
	WeightedQuantity QuantityPolicy = "weighted"
	// RawQuantity ignores the weighting
	RawQuantity QuantityPolicy = "raw"
)

// DatePolicy selects the due date a purchase date is derived from
type DatePolicy string

const (
	// GlobalDueDate applies the earliest due date of the whole order set to every component
	GlobalDueDate DatePolicy = "global"
	// PerComponentDueDate uses the earliest due date among the orders that reached the component
	PerComponentDueDate DatePolicy = "per_component"
)

// CycleGuard selects which sub-lists the walker refuses to enter
type CycleGuard string

const (
	// TraversalGuard expands a list at most once per order
	TraversalGuard CycleGuard = "traversal"
	// PathGuard only refuses lists already on the current ancestor path
	PathGuard CycleGuard = "path"
)

// Strictness selects what happens to invalid lines and orders
type Strictness string

const (
	// Strict aborts the run on the first invalid line or order
	Strict Strictness = "strict"
	// Lenient drops invalid lines and orders and reports them as diagnostics
	Lenient Strictness = "lenient"
)

// DefaultMaxDepth bounds the number of nested sub-lists below an order's root
const DefaultMaxDepth = 64

// Clock supplies the reference date when there are no orders
type Clock func() time.Time

// EngineConfig holds configuration for the explosion engine
type EngineConfig struct {
	QuantityPolicy QuantityPolicy
	DatePolicy     DatePolicy
	CycleGuard     CycleGuard
	Strictness     Strictness
	// Parallelism > 1 expands orders concurrently
	Parallelism int
	MaxDepth    int
	Clock       Clock
}

// DefaultEngineConfig returns the baseline configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		QuantityPolicy: WeightedQuantity,
		DatePolicy:     GlobalDueDate,
		CycleGuard:     TraversalGuard,
		Strictness:     Strict,
		Parallelism:    1,
		MaxDepth:       DefaultMaxDepth,
		Clock:          time.Now,
	}
}

// Validate rejects unknown policy values
func (c EngineConfig) Validate() error {
	switch c.QuantityPolicy {
	case WeightedQuantity, RawQuantity:
	default:
		return fmt.Errorf("invalid quantity policy: %q (expected weighted or raw)", c.QuantityPolicy)
	}
	switch c.DatePolicy {
	case GlobalDueDate, PerComponentDueDate:
	default:
		return fmt.Errorf("invalid date policy: %q (expected global or per_component)", c.DatePolicy)
	}
	switch c.CycleGuard {
	case TraversalGuard, PathGuard:
	default:
		return fmt.Errorf("invalid cycle guard: %q (expected traversal or path)", c.CycleGuard)
	}
	switch c.Strictness {
	case Strict, Lenient:
	default:
		return fmt.Errorf("invalid strictness: %q (expected strict or lenient)", c.Strictness)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative, got %d", c.Parallelism)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be positive, got %d", c.MaxDepth)
	}
	return nil
}

// withDefaults fills zero values from DefaultEngineConfig
func (c EngineConfig) withDefaults() EngineConfig {
	d := DefaultEngineConfig()
	if c.QuantityPolicy == "" {
		c.QuantityPolicy = d.QuantityPolicy
	}
	if c.DatePolicy == "" {
		c.DatePolicy = d.DatePolicy
	}
	if c.CycleGuard == "" {
		c.CycleGuard = d.CycleGuard
	}
	if c.Strictness == "" {
		c.Strictness = d.Strictness
	}
	if c.Parallelism == 0 {
		c.Parallelism = d.Parallelism
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = d.MaxDepth
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	return c
}

// lineFactor is the per-unit quantity a line contributes under the policy
func (p QuantityPolicy) lineFactor(line *entities.BOMLine) decimal.Decimal {
	if p == RawQuantity {
		return line.Quantity
	}
	return line.WeightedQuantity()
}
