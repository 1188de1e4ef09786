package mrp

import (
	"time"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
)

// ResolveDates assigns a due date and a purchase date (due date minus lead
// time) to every record. It returns the run's reference date: the earliest
// due date among orders, or the clock's current day when there are none.
func ResolveDates(
	records []*entities.RequirementRecord,
	orders []*entities.ProductionOrder,
	policy DatePolicy,
	clock Clock,
) time.Time {
	reference := earliestDueDate(orders)
	if reference.IsZero() {
		if clock == nil {
			clock = time.Now
		}
		reference = entities.TruncateToDay(clock())
	}

	var dueByOrder map[entities.OrderID]time.Time
	if policy == PerComponentDueDate {
		dueByOrder = make(map[entities.OrderID]time.Time, len(orders))
		for _, o := range orders {
			if o == nil || o.DueDate.IsZero() {
				continue
			}
			due := entities.TruncateToDay(o.DueDate)
			if current, ok := dueByOrder[o.ID]; !ok || due.Before(current) {
				dueByOrder[o.ID] = due
			}
		}
	}

	for _, rec := range records {
		due := reference
		if policy == PerComponentDueDate {
			if d := earliestAmong(rec.ContributingOrders(), dueByOrder); !d.IsZero() {
				due = d
			}
		}
		rec.DueDate = due
		rec.PurchaseDate = due.AddDate(0, 0, -rec.LeadTimeDays)
	}

	return reference
}

func earliestDueDate(orders []*entities.ProductionOrder) time.Time {
	var earliest time.Time
	for _, o := range orders {
		if o == nil || o.DueDate.IsZero() {
			continue
		}
		due := entities.TruncateToDay(o.DueDate)
		if earliest.IsZero() || due.Before(earliest) {
			earliest = due
		}
	}
	return earliest
}

func earliestAmong(ids []entities.OrderID, dueByOrder map[entities.OrderID]time.Time) time.Time {
	var earliest time.Time
	for _, id := range ids {
		due, ok := dueByOrder[id]
		if !ok {
			continue
		}
		if earliest.IsZero() || due.Before(earliest) {
			earliest = due
		}
	}
	return earliest
}
