package memory

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
)

// ComponentRepository provides in-memory component storage. Stored components
// are never mutated in place; stock updates swap in a copy so readers holding
// a pointer keep a consistent snapshot.
type ComponentRepository struct {
	mu         sync.RWMutex
	components []*entities.Component
	byID       map[entities.ComponentID]int
	byCode     map[string]int
}

// NewComponentRepository creates a new in-memory component repository
func NewComponentRepository(expectedComponents int) *ComponentRepository {
	return &ComponentRepository{
		components: make([]*entities.Component, 0, expectedComponents),
		byID:       make(map[entities.ComponentID]int, expectedComponents),
		byCode:     make(map[string]int, expectedComponents),
	}
}

// Verify interface compliance
var _ repositories.ComponentRepository = (*ComponentRepository)(nil)
var _ repositories.StockRepository = (*ComponentRepository)(nil)

// LoadComponents loads components into the repository
func (r *ComponentRepository) LoadComponents(components []*entities.Component) error {
	for _, c := range components {
		if err := r.SaveComponent(c); err != nil {
			return err
		}
	}
	return nil
}

// SaveComponent inserts or replaces a component. Codes must stay unique.
func (r *ComponentRepository) SaveComponent(component *entities.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if idx, exists := r.byCode[component.Code]; exists && r.components[idx].ID != component.ID {
		return fmt.Errorf("component code %s already used by component %d", component.Code, r.components[idx].ID)
	}

	stored := *component
	if idx, exists := r.byID[component.ID]; exists {
		delete(r.byCode, r.components[idx].Code)
		r.components[idx] = &stored
		r.byCode[stored.Code] = idx
		return nil
	}

	r.byID[stored.ID] = len(r.components)
	r.byCode[stored.Code] = len(r.components)
	r.components = append(r.components, &stored)
	return nil
}

// GetComponent returns a component by id
func (r *ComponentRepository) GetComponent(id entities.ComponentID) (*entities.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.byID[id]
	if !exists {
		return nil, fmt.Errorf("component %d: %w", id, entities.ErrNotFound)
	}
	return r.components[idx], nil
}

// GetComponentByCode returns a component by its catalog code
func (r *ComponentRepository) GetComponentByCode(code string) (*entities.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.byCode[code]
	if !exists {
		return nil, fmt.Errorf("component %s: %w", code, entities.ErrNotFound)
	}
	return r.components[idx], nil
}

// GetAllComponents returns all components in insertion order
func (r *ComponentRepository) GetAllComponents() ([]*entities.Component, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*entities.Component(nil), r.components...), nil
}

// ApplyStock sets the on-hand quantity of every component found in the
// snapshot. With zeroMissing, components absent from the snapshot drop to 0.
func (r *ComponentRepository) ApplyStock(snapshot *entities.StockSnapshot, zeroMissing bool) (*entities.StockUpdate, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("stock snapshot cannot be nil")
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	update := &entities.StockUpdate{}
	for _, code := range snapshot.Codes() {
		idx, exists := r.byCode[code]
		if !exists {
			update.Unknown = append(update.Unknown, code)
			continue
		}
		qty, _ := snapshot.Get(code)
		updated := *r.components[idx]
		updated.StockQuantity = qty
		r.components[idx] = &updated
		update.Updated = append(update.Updated, code)
	}

	if zeroMissing {
		for idx, c := range r.components {
			if _, found := snapshot.Get(c.Code); found {
				continue
			}
			zeroed := *c
			zeroed.StockQuantity = decimal.Zero
			r.components[idx] = &zeroed
			update.Zeroed = append(update.Zeroed, c.Code)
		}
	}

	update.Sort()
	return update, nil
}
