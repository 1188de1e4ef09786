package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
	"github.com/vsinha/mrpbom/pkg/domain/services"
	"github.com/vsinha/mrpbom/pkg/infrastructure/repositories/memory"
)

type componentRow struct {
	ID            int64           `db:"id"`
	Code          string          `db:"code"`
	Name          string          `db:"name"`
	UnitOfMeasure string          `db:"unit_of_measure"`
	StockQuantity decimal.Decimal `db:"stock_quantity"`
	LeadTimeDays  int             `db:"lead_time_days"`
	Kind          string          `db:"kind"`
}

type listRow struct {
	ID       int64         `db:"id"`
	Code     string        `db:"code"`
	Name     string        `db:"name"`
	Category int           `db:"category"`
	ParentID sql.NullInt64 `db:"parent_id"`
}

type bomLineRow struct {
	ID               int64               `db:"id"`
	ParentListID     int64               `db:"parent_list_id"`
	ChildComponentID sql.NullInt64       `db:"child_component_id"`
	ChildListID      sql.NullInt64       `db:"child_list_id"`
	Quantity         decimal.Decimal     `db:"quantity"`
	Weighting        decimal.NullDecimal `db:"weighting"`
	Comment          string              `db:"comment"`
}

type orderRow struct {
	ID           int64           `db:"id"`
	TargetListID int64           `db:"target_list_id"`
	Quantity     decimal.Decimal `db:"quantity"`
	DueDate      time.Time       `db:"due_date"`
}

// CatalogRepository stores the catalog and production orders in Postgres.
// Runs read a consistent in-memory snapshot through Snapshot.
type CatalogRepository struct {
	db        *DB
	validator *services.BOMValidator
}

var _ repositories.StockRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db, validator: services.NewBOMValidator()}
}

// Snapshot loads components, lists and lines into a new in-memory catalog.
// All three tables are read in one read-only transaction.
func (r *CatalogRepository) Snapshot(ctx context.Context) (*memory.CatalogRepository, error) {
	var (
		components []componentRow
		lists      []listRow
		lines      []*entities.BOMLine
	)
	err := r.db.ReadTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.SelectContext(ctx, &components, `
			SELECT id, code, name, unit_of_measure, stock_quantity, lead_time_days, kind
			FROM components
			ORDER BY id`); err != nil {
			return fmt.Errorf("failed to load components: %w", err)
		}

		if err := tx.SelectContext(ctx, &lists, `
			SELECT id, code, name, category, parent_id
			FROM technical_lists
			ORDER BY id`); err != nil {
			return fmt.Errorf("failed to load lists: %w", err)
		}

		var err error
		lines, err = bomLines(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	repo := memory.NewCatalogRepository(len(components), len(lists), len(lines))

	converted := make([]*entities.Component, 0, len(components))
	for _, row := range components {
		kind, err := entities.ParseComponentKind(row.Kind)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", row.Code, err)
		}
		converted = append(converted, &entities.Component{
			ID:            entities.ComponentID(row.ID),
			Code:          row.Code,
			Name:          row.Name,
			UnitOfMeasure: row.UnitOfMeasure,
			StockQuantity: row.StockQuantity,
			LeadTimeDays:  row.LeadTimeDays,
			Kind:          kind,
		})
	}
	if err := repo.LoadComponents(converted); err != nil {
		return nil, err
	}

	technical := make([]*entities.TechnicalList, 0, len(lists))
	for _, row := range lists {
		technical = append(technical, &entities.TechnicalList{
			ID:       entities.ListID(row.ID),
			Code:     row.Code,
			Name:     row.Name,
			Category: entities.Category(row.Category),
			ParentID: entities.ListID(row.ParentID.Int64),
		})
	}
	if err := repo.LoadLists(technical); err != nil {
		return nil, err
	}

	if err := repo.LoadBOMLines(lines); err != nil {
		return nil, err
	}
	return repo, nil
}

func bomLines(ctx context.Context, q sqlx.QueryerContext) ([]*entities.BOMLine, error) {
	var rows []bomLineRow
	if err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT id, parent_list_id, child_component_id, child_list_id, quantity, weighting, comment
		FROM bom_lines
		ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load bom lines: %w", err)
	}

	lines := make([]*entities.BOMLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, &entities.BOMLine{
			ID:               entities.LineID(row.ID),
			ParentListID:     entities.ListID(row.ParentListID),
			ChildComponentID: entities.ComponentID(row.ChildComponentID.Int64),
			ChildListID:      entities.ListID(row.ChildListID.Int64),
			Quantity:         row.Quantity,
			Weighting:        row.Weighting,
			Comment:          row.Comment,
		})
	}
	return lines, nil
}

// GetOrders returns every production order by due date
func (r *CatalogRepository) GetOrders(ctx context.Context) ([]*entities.ProductionOrder, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT id, target_list_id, quantity, due_date
		FROM production_orders
		ORDER BY due_date, id`); err != nil {
		return nil, fmt.Errorf("failed to load production orders: %w", err)
	}

	orders := make([]*entities.ProductionOrder, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, &entities.ProductionOrder{
			ID:           entities.OrderID(row.ID),
			TargetListID: entities.ListID(row.TargetListID),
			Quantity:     row.Quantity,
			DueDate:      entities.TruncateToDay(row.DueDate),
		})
	}
	return orders, nil
}

// SaveCatalog upserts components, lists and lines in one transaction
func (r *CatalogRepository) SaveCatalog(
	ctx context.Context,
	components []*entities.Component,
	lists []*entities.TechnicalList,
	lines []*entities.BOMLine,
) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := upsertComponents(ctx, tx, components); err != nil {
			return err
		}
		if err := upsertLists(ctx, tx, lists); err != nil {
			return err
		}
		return upsertBOMLines(ctx, tx, lines)
	})
}

// SaveOrders upserts production orders
func (r *CatalogRepository) SaveOrders(ctx context.Context, orders []*entities.ProductionOrder) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO production_orders (id, target_list_id, quantity, due_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				target_list_id = EXCLUDED.target_list_id,
				quantity = EXCLUDED.quantity,
				due_date = EXCLUDED.due_date`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, o := range orders {
			if _, err := stmt.ExecContext(ctx, int64(o.ID), int64(o.TargetListID), o.Quantity, o.DueDate); err != nil {
				return fmt.Errorf("failed to upsert production order %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

// AddBOMLine inserts one line, refusing lines that would close a cycle
func (r *CatalogRepository) AddBOMLine(ctx context.Context, line *entities.BOMLine) error {
	if errs := r.validator.ValidateLine(line); len(errs) > 0 {
		return errs[0]
	}
	if line.IsSubListLine() {
		lines, err := bomLines(ctx, r.db)
		if err != nil {
			return err
		}
		if r.validator.WouldCreateCycle(lines, line.ParentListID, line.ChildListID) {
			return fmt.Errorf("bom line %d: list %d -> %d: %w", line.ID, line.ParentListID, line.ChildListID, entities.ErrCycleDetected)
		}
	}
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		return upsertBOMLines(ctx, tx, []*entities.BOMLine{line})
	})
}

// ApplyStock implements repositories.StockRepository
func (r *CatalogRepository) ApplyStock(snapshot *entities.StockSnapshot, zeroMissing bool) (*entities.StockUpdate, error) {
	return r.ApplyStockContext(context.Background(), snapshot, zeroMissing)
}

// ApplyStockContext writes snapshot quantities onto components matched by code.
// With zeroMissing, components absent from the snapshot are reset to 0.
func (r *CatalogRepository) ApplyStockContext(
	ctx context.Context,
	snapshot *entities.StockSnapshot,
	zeroMissing bool,
) (*entities.StockUpdate, error) {
	update := &entities.StockUpdate{}

	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE components
			SET stock_quantity = $2, updated_at = NOW()
			WHERE code = $1`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		codes := snapshot.Codes()
		for _, code := range codes {
			qty, _ := snapshot.Get(code)
			res, err := stmt.ExecContext(ctx, code, qty)
			if err != nil {
				return fmt.Errorf("failed to update stock for %s: %w", code, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to update stock for %s: %w", code, err)
			}
			if n == 0 {
				update.Unknown = append(update.Unknown, code)
			} else {
				update.Updated = append(update.Updated, code)
			}
		}

		if !zeroMissing {
			return nil
		}
		rows, err := tx.QueryContext(ctx, `
			UPDATE components
			SET stock_quantity = 0, updated_at = NOW()
			WHERE NOT (code = ANY($1))
			RETURNING code`, pq.Array(codes))
		if err != nil {
			return fmt.Errorf("failed to zero missing stock: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var code string
			if err := rows.Scan(&code); err != nil {
				return fmt.Errorf("failed to zero missing stock: %w", err)
			}
			update.Zeroed = append(update.Zeroed, code)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	update.Sort()
	return update, nil
}

func upsertComponents(ctx context.Context, tx *sql.Tx, components []*entities.Component) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO components (id, code, name, unit_of_measure, stock_quantity, lead_time_days, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			unit_of_measure = EXCLUDED.unit_of_measure,
			stock_quantity = EXCLUDED.stock_quantity,
			lead_time_days = EXCLUDED.lead_time_days,
			kind = EXCLUDED.kind,
			updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range components {
		if _, err := stmt.ExecContext(ctx,
			int64(c.ID), c.Code, c.Name, c.UnitOfMeasure, c.StockQuantity, c.LeadTimeDays, c.Kind.String(),
		); err != nil {
			return fmt.Errorf("failed to upsert component %s: %w", c.Code, err)
		}
	}
	return nil
}

func upsertLists(ctx context.Context, tx *sql.Tx, lists []*entities.TechnicalList) error {
	// parents may come after their children, so the parent link is set in a second pass
	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO technical_lists (id, code, name, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			name = EXCLUDED.name,
			category = EXCLUDED.category`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer insert.Close()

	for _, l := range lists {
		if _, err := insert.ExecContext(ctx, int64(l.ID), l.Code, l.Name, l.Category.Rank()); err != nil {
			return fmt.Errorf("failed to upsert list %s: %w", l.Code, err)
		}
	}

	link, err := tx.PrepareContext(ctx, `UPDATE technical_lists SET parent_id = $2 WHERE id = $1`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer link.Close()

	for _, l := range lists {
		if _, err := link.ExecContext(ctx, int64(l.ID), nullID(int64(l.ParentID))); err != nil {
			return fmt.Errorf("failed to link list %s: %w", l.Code, err)
		}
	}
	return nil
}

func upsertBOMLines(ctx context.Context, tx *sql.Tx, lines []*entities.BOMLine) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bom_lines (id, parent_list_id, child_component_id, child_list_id, quantity, weighting, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			parent_list_id = EXCLUDED.parent_list_id,
			child_component_id = EXCLUDED.child_component_id,
			child_list_id = EXCLUDED.child_list_id,
			quantity = EXCLUDED.quantity,
			weighting = EXCLUDED.weighting,
			comment = EXCLUDED.comment`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, line := range lines {
		if _, err := stmt.ExecContext(ctx,
			int64(line.ID),
			int64(line.ParentListID),
			nullID(int64(line.ChildComponentID)),
			nullID(int64(line.ChildListID)),
			line.Quantity,
			line.Weighting,
			line.Comment,
		); err != nil {
			return fmt.Errorf("failed to upsert bom line %d: %w", line.ID, err)
		}
	}
	return nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
