package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"rentpulse/server/config"
	"rentpulse/server/internal/batch"
	"rentpulse/server/internal/comps"
	"rentpulse/server/internal/database"
	"rentpulse/server/internal/ingest"
	"rentpulse/server/internal/models"
	"rentpulse/server/internal/pricing"
	"rentpulse/server/internal/queue"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Handler struct {
	db       *database.Database
	settings *config.SettingsStore
	queue    *queue.IngestQueue
	importer *ingest.Importer
	batchCfg batch.Config
	logger   *logrus.Logger
}

type UnitListQuery struct {
	Status       string `form:"status"`
	Property     string `form:"property"`
	NeedsPricing *bool  `form:"needs_pricing"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

type OptimizeRequest struct {
	Strategy   string   `json:"strategy"`
	Weight     *float64 `json:"weight"`
	Elasticity *float64 `json:"custom_elasticity"`
}

type BatchOptimizeRequest struct {
	UnitIDs    []string `json:"unit_ids"`
	Status     string   `json:"status"`
	Strategy   string   `json:"strategy"`
	Weight     *float64 `json:"weight"`
	Elasticity *float64 `json:"custom_elasticity"`
	MaxUnits   int      `json:"max_units"`
}

func NewHandler(db *database.Database, settings *config.SettingsStore, q *queue.IngestQueue, batchCfg batch.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:       db,
		settings: settings,
		queue:    q,
		importer: ingest.NewImporter(logger),
		batchCfg: batchCfg,
		logger:   logger,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) ListUnits(c *gin.Context) {
	var query UnitListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.logger.WithError(err).Error("Failed to parse unit filters")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter parameters"})
		return
	}

	if query.Status != "" {
		if _, err := models.ParseUnitStatus(query.Status); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	filter := database.UnitFilter{
		Status:       query.Status,
		Property:     query.Property,
		NeedsPricing: query.NeedsPricing,
		Limit:        size,
		Offset:       (page - 1) * size,
	}

	units, err := h.db.ListUnits(filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list units")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list units"})
		return
	}
	if units == nil {
		units = []models.Unit{}
	}

	total, err := h.db.CountUnits(filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count units")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count units"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"units":     units,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

func (h *Handler) GetUnit(c *gin.Context) {
	unit, err := h.db.GetUnit(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get unit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unit"})
		return
	}
	if unit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		return
	}

	c.JSON(http.StatusOK, unit)
}

func (h *Handler) GetComparables(c *gin.Context) {
	unit, err := h.db.GetUnit(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get unit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unit"})
		return
	}
	if unit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		return
	}

	pool, err := h.db.GetCandidatePool(c.Request.Context(), *unit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load candidate pool")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comparable candidates"})
		return
	}

	settings := h.settings.Get()
	comparables, stats := comps.Select(*unit, pool, settings.CompsConfig())

	c.JSON(http.StatusOK, gin.H{
		"unit_id":     unit.ID,
		"comparables": comparables,
		"stats":       stats,
	})
}

func (h *Handler) OptimizeUnit(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WithError(err).Error("Failed to parse optimize request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	settings := h.settings.Get()
	strategy, weight, pricingCfg, err := resolvePricingInputs(req.Strategy, req.Weight, req.Elasticity, settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	unit, err := h.db.GetUnit(c.Param("id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get unit")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unit"})
		return
	}
	if unit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unit not found"})
		return
	}

	pool, err := h.db.GetCandidatePool(c.Request.Context(), *unit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load candidate pool")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comparable candidates"})
		return
	}

	_, stats := comps.Select(*unit, pool, settings.CompsConfig())
	result, err := pricing.Optimize(*unit, stats, strategy, weight, pricingCfg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to optimize unit")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// OptimizeBatch reprices many units in one run. Explicit unit IDs win over a
// status filter; with neither, the sweep covers every unit that needs
// pricing. A request max_units can tighten the server cap, never widen it.
func (h *Handler) OptimizeBatch(c *gin.Context) {
	var req BatchOptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WithError(err).Error("Failed to parse batch request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	settings := h.settings.Get()
	strategy, weight, pricingCfg, err := resolvePricingInputs(req.Strategy, req.Weight, req.Elasticity, settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var units []models.Unit
	switch {
	case len(req.UnitIDs) > 0:
		units, err = h.db.ListUnitsByIDs(req.UnitIDs)
	case req.Status != "":
		if _, statusErr := models.ParseUnitStatus(req.Status); statusErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": statusErr.Error()})
			return
		}
		units, err = h.db.ListUnits(database.UnitFilter{Status: req.Status})
	default:
		needsPricing := true
		units, err = h.db.ListUnits(database.UnitFilter{NeedsPricing: &needsPricing})
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve batch units")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve batch units"})
		return
	}

	batchCfg := h.batchCfg
	if req.MaxUnits > 0 && (batchCfg.MaxUnits == 0 || req.MaxUnits < batchCfg.MaxUnits) {
		batchCfg.MaxUnits = req.MaxUnits
	}

	orchestrator := batch.New(h.db, settings.CompsConfig(), pricingCfg, batchCfg, h.logger)
	result := orchestrator.Run(c.Request.Context(), units, strategy, weight)

	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.db.GetPortfolioSummary()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get portfolio summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get portfolio summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ListProperties(c *gin.Context) {
	properties, err := h.db.ListProperties()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get properties"})
		return
	}
	if properties == nil {
		properties = []models.PropertySummary{}
	}

	c.JSON(http.StatusOK, properties)
}

func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Get())
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var next config.Settings
	if err := c.ShouldBindJSON(&next); err != nil {
		h.logger.WithError(err).Error("Failed to parse settings")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := next.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settings.Update(next); err != nil {
		h.logger.WithError(err).Error("Failed to save settings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, h.settings.Get())
}

// UploadRentRoll parses a rent roll spreadsheet and queues it for
// persistence. The response reports per-row rejects; a 202 means the batch
// was accepted, not that it has been written yet.
func (h *Handler) UploadRentRoll(c *gin.Context) {
	table, _, ok := h.readUpload(c)
	if !ok {
		return
	}

	ingestBatch, rowErrors, err := h.importer.ParseRentRoll(table, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rowErrors == nil {
		rowErrors = []ingest.RowError{}
	}
	if len(ingestBatch.Units) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "No valid rows found in file",
			"row_errors": rowErrors,
		})
		return
	}

	if err := h.queue.Push(ingestBatch); err != nil {
		h.logger.WithError(err).Error("Failed to queue rent roll batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingest queue is not accepting uploads"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id":   ingestBatch.ID,
		"units":      len(ingestBatch.Units),
		"row_errors": rowErrors,
	})
}

// UploadCompetition parses a competitor survey and queues it. Listings from
// the same source file replace the previous snapshot once persisted.
func (h *Handler) UploadCompetition(c *gin.Context) {
	table, filename, ok := h.readUpload(c)
	if !ok {
		return
	}

	ingestBatch, rowErrors, err := h.importer.ParseCompetition(table, filename, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if rowErrors == nil {
		rowErrors = []ingest.RowError{}
	}
	if len(ingestBatch.Listings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "No valid rows found in file",
			"row_errors": rowErrors,
		})
		return
	}

	if err := h.queue.Push(ingestBatch); err != nil {
		h.logger.WithError(err).Error("Failed to queue competition batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingest queue is not accepting uploads"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"batch_id":   ingestBatch.ID,
		"listings":   len(ingestBatch.Listings),
		"row_errors": rowErrors,
	})
}

func (h *Handler) readUpload(c *gin.Context) (*ingest.Table, string, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return nil, "", false
	}
	defer file.Close()

	table, err := ingest.ReadTable(header.Filename, file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	return table, header.Filename, true
}

// resolvePricingInputs fills strategy, weight, and the engine config from
// the stored settings when the request leaves them blank. A zero elasticity
// override counts as unset.
func resolvePricingInputs(reqStrategy string, reqWeight, reqElasticity *float64, settings config.Settings) (pricing.Strategy, float64, pricing.Config, error) {
	name := reqStrategy
	if name == "" {
		name = settings.DefaultStrategy
	}
	strategy, err := pricing.ParseStrategy(name)
	if err != nil {
		return "", 0, pricing.Config{}, err
	}

	weight := settings.BalancedWeight
	if reqWeight != nil {
		weight = *reqWeight
	}
	if weight < 0 || weight > 1 {
		return "", 0, pricing.Config{}, fmt.Errorf("weight must be within [0, 1], got %.3f", weight)
	}

	cfg := settings.PricingConfig()
	if reqElasticity != nil && *reqElasticity != 0 {
		cfg.Elasticity = *reqElasticity
	}

	return strategy, weight, cfg, nil
}
