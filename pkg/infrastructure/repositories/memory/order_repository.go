package memory

import (
	"sync"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
)

// OrderRepository provides in-memory production order storage
type OrderRepository struct {
	mu     sync.RWMutex
	orders []entities.ProductionOrder
}

// NewOrderRepository creates a new in-memory order repository
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: []entities.ProductionOrder{},
	}
}

// Verify interface compliance
var _ repositories.OrderRepository = (*OrderRepository)(nil)

// LoadOrders appends orders to the repository, skipping nil entries
func (r *OrderRepository) LoadOrders(orders []*entities.ProductionOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, order := range orders {
		if order == nil {
			continue
		}
		r.orders = append(r.orders, *order)
	}
	return nil
}

// GetOrders returns all production orders in load order
func (r *OrderRepository) GetOrders() ([]*entities.ProductionOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*entities.ProductionOrder, 0, len(r.orders))
	for i := range r.orders {
		o := r.orders[i]
		orders = append(orders, &o)
	}
	return orders, nil
}
