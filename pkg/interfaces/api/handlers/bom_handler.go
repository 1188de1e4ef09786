package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mrpbom/pkg/application/services/flatten"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
)

// BOMHandler serves the leveled BOM table
type BOMHandler struct {
	source source.Source
}

func NewBOMHandler(src source.Source) *BOMHandler {
	return &BOMHandler{source: src}
}

func parseFlattenOptions(c *gin.Context) (flatten.Options, error) {
	var opts flatten.Options

	if raw := strings.TrimSpace(c.Query("list_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return opts, fmt.Errorf("invalid list_id: %s", raw)
		}
		opts.ListID = entities.ListID(id)
	}
	if raw := strings.TrimSpace(c.Query("include_groups")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid include_groups: %s", raw)
		}
		opts.IncludeGroups = include
	}
	opts.Search = c.Query("search")
	return opts, nil
}

// GetFlat returns one row per BOM line with its ancestors by category
func (h *BOMHandler) GetFlat(c *gin.Context) {
	opts, err := parseFlattenOptions(c)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid query", err)
		return
	}

	snapshot, err := h.source.Load(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load catalog", err)
		return
	}

	rows, err := flatten.Build(snapshot.Catalog, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, entities.ErrNotFound) {
			status = http.StatusNotFound
		}
		errorResponse(c, status, "failed to flatten bom", err)
		return
	}
	if rows == nil {
		rows = []flatten.Row{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "rows": rows})
}
