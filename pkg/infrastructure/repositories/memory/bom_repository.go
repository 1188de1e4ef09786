package memory

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/domain/repositories"
	"github.com/vsinha/mrpbom/pkg/domain/services"
)

// CatalogRepository provides in-memory storage for components, technical
// lists and BOM lines
type CatalogRepository struct {
	*ComponentRepository

	mu         sync.RWMutex
	lists      []*entities.TechnicalList
	listsMap   map[entities.ListID]int
	bomLines   []*entities.BOMLine
	bomIndexes map[entities.ListID][]int
	validator  *services.BOMValidator
}

// NewCatalogRepository creates an in-memory catalog sized for the expected data
func NewCatalogRepository(expectedComponents, expectedLists, expectedBOMLines int) *CatalogRepository {
	return &CatalogRepository{
		ComponentRepository: NewComponentRepository(expectedComponents),
		lists:               make([]*entities.TechnicalList, 0, expectedLists),
		listsMap:            make(map[entities.ListID]int, expectedLists),
		bomLines:            make([]*entities.BOMLine, 0, expectedBOMLines),
		bomIndexes:          make(map[entities.ListID][]int, expectedLists),
		validator:           services.NewBOMValidator(),
	}
}

// Verify interface compliance
var _ repositories.CatalogRepository = (*CatalogRepository)(nil)
var _ repositories.CatalogReader = (*CatalogRepository)(nil)

// LoadLists loads technical lists into the repository
func (r *CatalogRepository) LoadLists(lists []*entities.TechnicalList) error {
	for _, l := range lists {
		r.AddList(l)
	}
	return nil
}

// AddList inserts or replaces a technical list
func (r *CatalogRepository) AddList(list *entities.TechnicalList) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *list
	if idx, exists := r.listsMap[list.ID]; exists {
		r.lists[idx] = &stored
		return
	}
	r.listsMap[stored.ID] = len(r.lists)
	r.lists = append(r.lists, &stored)
}

// GetList returns a technical list by id
func (r *CatalogRepository) GetList(id entities.ListID) (*entities.TechnicalList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, exists := r.listsMap[id]
	if !exists {
		return nil, fmt.Errorf("list %d: %w", id, entities.ErrNotFound)
	}
	return r.lists[idx], nil
}

// GetListByCode returns a technical list by its code
func (r *CatalogRepository) GetListByCode(code string) (*entities.TechnicalList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.lists {
		if l.Code == code {
			return l, nil
		}
	}
	return nil, fmt.Errorf("list %s: %w", code, entities.ErrNotFound)
}

// GetAllLists returns all lists in insertion order
func (r *CatalogRepository) GetAllLists() ([]*entities.TechnicalList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*entities.TechnicalList(nil), r.lists...), nil
}

// LoadBOMLines loads BOM lines as-is. Bulk loads skip the cycle guard so that
// a damaged catalog can still be inspected and validated.
func (r *CatalogRepository) LoadBOMLines(lines []*entities.BOMLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range lines {
		r.appendLine(line)
	}
	return nil
}

// AddBOMLine adds one BOM line, refusing lines that would close a cycle
func (r *CatalogRepository) AddBOMLine(line *entities.BOMLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if line.IsSubListLine() && r.validator.WouldCreateCycle(r.bomLines, line.ParentListID, line.ChildListID) {
		return fmt.Errorf("bom line %d: list %d -> %d: %w", line.ID, line.ParentListID, line.ChildListID, entities.ErrCycleDetected)
	}
	r.appendLine(line)
	return nil
}

func (r *CatalogRepository) appendLine(line *entities.BOMLine) {
	stored := *line
	index := len(r.bomLines)
	r.bomLines = append(r.bomLines, &stored)
	r.bomIndexes[stored.ParentListID] = append(r.bomIndexes[stored.ParentListID], index)
}

// GetBOMLines returns the lines of a parent list in insertion order
func (r *CatalogRepository) GetBOMLines(parent entities.ListID) ([]*entities.BOMLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes, exists := r.bomIndexes[parent]
	if !exists {
		return []*entities.BOMLine{}, nil
	}

	lines := make([]*entities.BOMLine, 0, len(indexes))
	for _, index := range indexes {
		lines = append(lines, r.bomLines[index])
	}
	return lines, nil
}

// GetAllBOMLines returns all BOM lines
func (r *CatalogRepository) GetAllBOMLines() ([]*entities.BOMLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*entities.BOMLine(nil), r.bomLines...), nil
}

// Counts returns the number of components, lists and BOM lines held
func (r *CatalogRepository) Counts() (components, lists, lines int) {
	all, _ := r.GetAllComponents()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(all), len(r.lists), len(r.bomLines)
}

// MemoryStats provides memory usage statistics
type MemoryStats struct {
	AllocBytes      uint64
	TotalAllocBytes uint64
	HeapObjects     uint64
}

// GetMemoryStats returns current memory usage statistics
func GetMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:      m.Alloc,
		TotalAllocBytes: m.TotalAlloc,
		HeapObjects:     m.HeapObjects,
	}
}

// FormatBytes formats bytes in human readable format
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
