package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/domain/entities"
	"github.com/vsinha/mrpbom/pkg/infrastructure/events"
	csvrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/csv"
	xlsxrepo "github.com/vsinha/mrpbom/pkg/infrastructure/repositories/xlsx"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
	"github.com/vsinha/mrpbom/pkg/logger"
)

// StockHandler accepts stock snapshot uploads
type StockHandler struct {
	source  source.Source
	service *mrp.EventDrivenMRPService
}

func NewStockHandler(src source.Source, service *mrp.EventDrivenMRPService) *StockHandler {
	return &StockHandler{source: src, service: service}
}

// Upload reads an .xlsx or .csv file from the "file" form field and applies
// it to the catalog. zero_missing=true resets components absent from the file.
func (h *StockHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "no file provided", err)
		return
	}
	zeroMissing, _ := strconv.ParseBool(c.DefaultPostForm("zero_missing", "false"))

	file, err := header.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to open upload", err)
		return
	}
	defer file.Close()

	var stock *entities.StockSnapshot
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx", ".xlsm":
		stock, err = xlsxrepo.ReadStock(file)
	case ".csv":
		stock, err = csvrepo.NewLoader().ReadStock(file)
	default:
		err = fmt.Errorf("unsupported stock file %s (expected .xlsx or .csv)", header.Filename)
	}
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid stock file", err)
		return
	}

	update, err := h.source.ApplyStock(c.Request.Context(), stock, zeroMissing)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to apply stock", err)
		return
	}
	if h.service != nil {
		h.service.Publish(events.StockApplied{Update: *update})
	}

	logger.Log.Info().
		Str("file", header.Filename).
		Int("updated", len(update.Updated)).
		Int("zeroed", len(update.Zeroed)).
		Int("unknown", len(update.Unknown)).
		Msg("stock snapshot applied")

	c.JSON(http.StatusOK, update)
}
