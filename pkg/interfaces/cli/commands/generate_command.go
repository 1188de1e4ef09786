package commands

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/services"
	csvrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mrpbom/pkg/logger"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Lists     int     // Total number of technical lists to generate
	Items     int     // Number of purchasable components
	MaxDepth  int     // Maximum depth of the list tree, at most 4 (SERIES..ITEM)
	Demands   int     // Number of production orders
	Inventory float64 // Stock multiplier (0.5 = half the needs of one unit of a root, 4.0 = 4x)
	OutputDir string  // Output scenario directory
	Seed      int64   // Random seed for reproducible generation
}

// GenerateCommand handles scenario generation
type GenerateCommand struct {
	config    GenerateConfig
	rand      *rand.Rand
	validator *services.BOMValidator

	lists      []*listNode
	lines      []*entities.BOMLine
	components []*entities.Component
}

// listNode is a technical list in the generated tree
type listNode struct {
	list     *entities.TechnicalList
	level    int
	children map[entities.ListID]bool
}

var levelCategories = []entities.Category{
	entities.Series,
	entities.System,
	entities.Assembly,
	entities.Subassembly,
	entities.ItemCategory,
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if config.MaxDepth <= 0 || config.MaxDepth >= len(levelCategories) {
		config.MaxDepth = len(levelCategories) - 1
	}

	return &GenerateCommand{
		config:    config,
		rand:      rand.New(rand.NewSource(seed)),
		validator: services.NewBOMValidator(),
	}
}

// Execute generates the scenario and writes it to the output directory
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	log := logger.Component("generate")
	if cmd.config.Lists < 1 || cmd.config.Items < 1 {
		return fmt.Errorf("--lists and --items must be positive")
	}

	log.Info().
		Int("lists", cmd.config.Lists).
		Int("items", cmd.config.Items).
		Int("max_depth", cmd.config.MaxDepth).
		Int("demands", cmd.config.Demands).
		Float64("inventory", cmd.config.Inventory).
		Str("output", cmd.config.OutputDir).
		Msg("generating scenario")

	if err := cmd.generateComponents(); err != nil {
		return fmt.Errorf("failed to generate components: %w", err)
	}
	if err := cmd.generateListTree(); err != nil {
		return fmt.Errorf("failed to generate list tree: %w", err)
	}
	if err := cmd.generateComponentLines(); err != nil {
		return fmt.Errorf("failed to generate component lines: %w", err)
	}
	orders, err := cmd.generateOrders()
	if err != nil {
		return fmt.Errorf("failed to generate orders: %w", err)
	}

	scenario := &csvrepo.Scenario{
		Components: cmd.components,
		Lines:      cmd.lines,
		Orders:     orders,
	}
	for _, n := range cmd.lists {
		scenario.Lists = append(scenario.Lists, n.list)
	}

	if err := cmd.generateStock(ctx, scenario); err != nil {
		return fmt.Errorf("failed to generate stock: %w", err)
	}

	if err := csvrepo.WriteScenario(cmd.config.OutputDir, scenario); err != nil {
		return err
	}

	log.Info().
		Int("lists", len(scenario.Lists)).
		Int("bom_lines", len(scenario.Lines)).
		Int("orders", len(scenario.Orders)).
		Msg("scenario generated")
	return nil
}

func (cmd *GenerateCommand) generateComponents() error {
	units := []string{"EA", "EA", "EA", "KG", "M", "L"}
	for i := 1; i <= cmd.config.Items; i++ {
		kind := entities.ManufacturedComponent
		if cmd.rand.Float64() < 0.3 {
			kind = entities.RawMaterial
		}
		code := fmt.Sprintf("CMP-%05d", i)
		c, err := entities.NewComponent(
			entities.ComponentID(i),
			code,
			cmd.generateDescription(code, kind),
			units[cmd.rand.Intn(len(units))],
			decimal.Zero,
			cmd.generateLeadTime(kind),
			kind,
		)
		if err != nil {
			return err
		}
		cmd.components = append(cmd.components, c)
	}
	return nil
}

// generateListTree grows the list tree level by level. About 20% of child
// slots below the second level reuse an existing list when that cannot
// close a cycle.
func (cmd *GenerateCommand) generateListTree() error {
	numRoots := max(1, cmd.config.Lists/50+cmd.rand.Intn(3))
	numRoots = min(numRoots, cmd.config.Lists)

	var currentLevel []*listNode
	for i := 0; i < numRoots; i++ {
		node, err := cmd.newList(0)
		if err != nil {
			return err
		}
		currentLevel = append(currentLevel, node)
	}

	for level := 1; level <= cmd.config.MaxDepth && len(cmd.lists) < cmd.config.Lists; level++ {
		var nextLevel []*listNode

		for _, parent := range currentLevel {
			numChildren := 2 + cmd.rand.Intn(5)

			for child := 0; child < numChildren && len(cmd.lists) < cmd.config.Lists; child++ {
				var childNode *listNode
				if level > 1 && cmd.rand.Float64() < 0.2 {
					candidates := cmd.findShareableLists(level, parent)
					if len(candidates) > 0 {
						childNode = candidates[cmd.rand.Intn(len(candidates))]
					}
				}

				if childNode == nil {
					node, err := cmd.newList(level)
					if err != nil {
						return err
					}
					childNode = node
					nextLevel = append(nextLevel, node)
				}

				qty := 1 + cmd.rand.Intn(4)
				if err := cmd.addLine(parent.list.ID, 0, childNode.list.ID, decimal.NewFromInt(int64(qty)), decimal.NullDecimal{}); err != nil {
					return err
				}
				parent.children[childNode.list.ID] = true
			}
		}

		if len(nextLevel) == 0 {
			break
		}
		currentLevel = nextLevel
	}
	return nil
}

func (cmd *GenerateCommand) newList(level int) (*listNode, error) {
	id := entities.ListID(len(cmd.lists) + 1)
	category := levelCategories[min(level, len(levelCategories)-1)]
	code := fmt.Sprintf("%s-%04d", category.String()[:3], id)
	list, err := entities.NewTechnicalList(id, code, fmt.Sprintf("%s %s", category, code), category, 0)
	if err != nil {
		return nil, err
	}
	node := &listNode{list: list, level: level, children: make(map[entities.ListID]bool)}
	cmd.lists = append(cmd.lists, node)
	return node, nil
}

// findShareableLists returns lists at the parent's depth or deeper that the
// parent does not already use and that cannot reach the parent
func (cmd *GenerateCommand) findShareableLists(level int, parent *listNode) []*listNode {
	var candidates []*listNode
	for _, node := range cmd.lists {
		if node == parent || node.level < level-1 || parent.children[node.list.ID] {
			continue
		}
		if cmd.validator.WouldCreateCycle(cmd.lines, parent.list.ID, node.list.ID) {
			continue
		}
		candidates = append(candidates, node)
	}
	return candidates
}

// generateComponentLines gives every list 1-4 component lines, leaf lists at
// least two. About one line in ten carries a weighting below 100%.
func (cmd *GenerateCommand) generateComponentLines() error {
	for _, node := range cmd.lists {
		count := 1 + cmd.rand.Intn(4)
		if len(node.children) == 0 {
			count = max(count, 2)
		}
		used := make(map[entities.ComponentID]bool, count)
		for i := 0; i < count; i++ {
			c := cmd.components[cmd.rand.Intn(len(cmd.components))]
			if used[c.ID] {
				continue
			}
			used[c.ID] = true

			qty := decimal.NewFromInt(int64(1 + cmd.rand.Intn(10)))
			if c.UnitOfMeasure != "EA" {
				qty = decimal.New(int64(5+cmd.rand.Intn(200)), -2)
			}
			var weighting decimal.NullDecimal
			if cmd.rand.Float64() < 0.1 {
				weighting = entities.Weight(decimal.NewFromInt(int64(25 + 5*cmd.rand.Intn(15))))
			}
			if err := cmd.addLine(node.list.ID, c.ID, 0, qty, weighting); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cmd *GenerateCommand) addLine(
	parent entities.ListID,
	component entities.ComponentID,
	list entities.ListID,
	qty decimal.Decimal,
	weighting decimal.NullDecimal,
) error {
	id := entities.LineID(len(cmd.lines) + 1)
	line, err := entities.NewBOMLine(id, parent, component, list, qty, weighting, "")
	if err != nil {
		return err
	}
	cmd.lines = append(cmd.lines, line)
	return nil
}

// generateOrders creates production orders for random root lists due within
// a year of 2025-03-01
func (cmd *GenerateCommand) generateOrders() ([]*entities.ProductionOrder, error) {
	var roots []*listNode
	for _, node := range cmd.lists {
		if node.level == 0 {
			roots = append(roots, node)
		}
	}

	baseDate := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := make([]*entities.ProductionOrder, 0, cmd.config.Demands)
	for i := 0; i < cmd.config.Demands; i++ {
		root := roots[cmd.rand.Intn(len(roots))]
		qty := decimal.NewFromInt(int64(1 + cmd.rand.Intn(5)))
		due := baseDate.AddDate(0, 0, cmd.rand.Intn(365))

		order, err := entities.NewProductionOrder(entities.OrderID(i+1), root.list.ID, qty, due)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// generateStock sizes each component's stock from the gross need of one unit
// of every root list, times the inventory multiplier
func (cmd *GenerateCommand) generateStock(ctx context.Context, scenario *csvrepo.Scenario) error {
	if cmd.config.Inventory <= 0 {
		return nil
	}

	catalog, err := scenario.Catalog()
	if err != nil {
		return err
	}

	var samples []*entities.ProductionOrder
	for _, node := range cmd.lists {
		if node.level != 0 {
			continue
		}
		sample, err := entities.NewProductionOrder(entities.OrderID(len(samples)+1), node.list.ID, decimal.NewFromInt(1), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		if err != nil {
			return err
		}
		samples = append(samples, sample)
	}

	service := mrp.NewMRPService(mrp.WithLogger(logger.Component("generate")))
	result, err := service.Run(ctx, catalog, samples)
	if err != nil {
		return err
	}

	multiplier := decimal.NewFromFloat(cmd.config.Inventory)
	for _, c := range scenario.Components {
		rec := result.Get(c.ID)
		if rec == nil {
			continue
		}
		c.StockQuantity = rec.Gross.Mul(multiplier).Floor()
	}
	return nil
}

func (cmd *GenerateCommand) generateDescription(code string, kind entities.ComponentKind) string {
	if kind == entities.RawMaterial {
		materials := []string{"Steel", "Aluminium", "Resin", "Copper wire", "Paint", "Adhesive"}
		return fmt.Sprintf("%s %s", materials[cmd.rand.Intn(len(materials))], code)
	}
	componentTypes := []string{"Bracket", "Module", "Housing", "Fastener", "Board", "Seal"}
	return fmt.Sprintf("%s %s", componentTypes[cmd.rand.Intn(len(componentTypes))], code)
}

// generateLeadTime: raw materials 3-30 days, manufactured components 7-90
func (cmd *GenerateCommand) generateLeadTime(kind entities.ComponentKind) int {
	if kind == entities.RawMaterial {
		return 3 + cmd.rand.Intn(28)
	}
	return 7 + cmd.rand.Intn(84)
}

func newGenerateCmd() *cobra.Command {
	var cfg GenerateConfig

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic CSV scenario",
		Example: `  mrp generate --lists 100 --items 200 --demands 10 --inventory 0.5 --output ./test_scenario
  mrp generate --lists 5000 --items 20000 --max-depth 4 --demands 50 --inventory 1.2 --output ./large --seed 12345`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return NewGenerateCommand(cfg).Execute(c.Context())
		},
	}

	cmd.Flags().IntVar(&cfg.Lists, "lists", 50, "Number of technical lists")
	cmd.Flags().IntVar(&cfg.Items, "items", 100, "Number of components")
	cmd.Flags().IntVar(&cfg.MaxDepth, "max-depth", 4, "Maximum list depth (1-4)")
	cmd.Flags().IntVar(&cfg.Demands, "demands", 10, "Number of production orders")
	cmd.Flags().Float64Var(&cfg.Inventory, "inventory", 0.5, "Stock multiplier relative to one unit of each root")
	cmd.Flags().StringVar(&cfg.OutputDir, "output", "", "Output scenario directory")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 0, "Random seed for reproducible generation")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
