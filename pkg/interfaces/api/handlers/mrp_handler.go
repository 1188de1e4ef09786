package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mrpbom/pkg/application/dto"
	"github.com/vsinha/mrpbom/pkg/application/services/mrp"
	"github.com/vsinha/mrpbom/pkg/infrastructure/source"
	"github.com/vsinha/mrpbom/pkg/interfaces/cli/output"
	"github.com/vsinha/mrpbom/pkg/logger"
)

// MRPHandler serves MRP runs over the current catalog snapshot
type MRPHandler struct {
	source  source.Source
	service *mrp.EventDrivenMRPService
	cache   mrp.ResultCache
}

func NewMRPHandler(src source.Source, service *mrp.EventDrivenMRPService, cache mrp.ResultCache) *MRPHandler {
	return &MRPHandler{source: src, service: service, cache: cache}
}

type summaryResponse struct {
	RunID         string              `json:"run_id"`
	Cached        bool                `json:"cached"`
	ReferenceDate string              `json:"reference_date"`
	Rows          []output.SummaryRow `json:"rows"`
	Stats         dto.RunStats        `json:"stats"`
	Diagnostics   []dto.Diagnostic    `json:"diagnostics"`
}

type detailedResponse struct {
	*dto.MRPResult
	Cached bool `json:"cached"`
}

func (h *MRPHandler) run(ctx context.Context) (*dto.MRPResult, bool, error) {
	snapshot, err := h.source.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load catalog: %w", err)
	}
	return h.service.RunCached(ctx, h.cache, snapshot.Catalog, snapshot.Orders)
}

// GetSummary returns one row per component with its shortage and purchase date
func (h *MRPHandler) GetSummary(c *gin.Context) {
	result, cached, err := h.run(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to run mrp", err)
		return
	}

	diagnostics := result.Diagnostics
	if diagnostics == nil {
		diagnostics = []dto.Diagnostic{}
	}
	c.JSON(http.StatusOK, summaryResponse{
		RunID:         result.RunID,
		Cached:        cached,
		ReferenceDate: result.ReferenceDay.Format(time.DateOnly),
		Rows:          output.SummaryRows(result),
		Stats:         result.Stats,
		Diagnostics:   diagnostics,
	})
}

// GetDetailed returns the full result including per-order contributions
func (h *MRPHandler) GetDetailed(c *gin.Context) {
	result, cached, err := h.run(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to run mrp", err)
		return
	}
	c.JSON(http.StatusOK, detailedResponse{MRPResult: result, Cached: cached})
}

// ExportCSV streams the summary, or the contributions with ?details=true
func (h *MRPHandler) ExportCSV(c *gin.Context) {
	details, _ := strconv.ParseBool(c.DefaultQuery("details", "false"))

	result, _, err := h.run(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to run mrp", err)
		return
	}

	name, write := output.SummaryFile, output.WriteSummaryCSV
	if details {
		name, write = output.DetailsFile, output.WriteDetailsCSV
	}
	attachment(c, name, "text/csv; charset=utf-8")
	if err := write(c.Writer, result); err != nil {
		logger.Log.Error().Err(err).Msg("failed to write csv export")
	}
}

// ExportXLSX streams the summary and details workbook
func (h *MRPHandler) ExportXLSX(c *gin.Context) {
	result, _, err := h.run(c.Request.Context())
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to run mrp", err)
		return
	}

	attachment(c, output.XLSXFile, xlsxContentType)
	if err := output.WriteXLSX(c.Writer, result); err != nil {
		logger.Log.Error().Err(err).Msg("failed to write xlsx export")
	}
}
