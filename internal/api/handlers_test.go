package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpulse/server/config"
	"rentpulse/server/internal/batch"
	"rentpulse/server/internal/database"
	"rentpulse/server/internal/models"
	"rentpulse/server/internal/queue"
)

var unitCols = []string{
	"id", "property_name", "unit_number", "bedrooms", "bathrooms", "area_sqft", "status",
	"current_rent", "market_rent", "lease_end", "created_at", "updated_at",
}

var poolCols = []string{
	"id", "property_name", "unit_number", "bedrooms", "bathrooms", "area_sqft", "price", "is_available",
}

func setupAPI(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *queue.IngestQueue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	store, err := config.NewSettingsStore(filepath.Join(t.TempDir(), "settings.json"), config.DefaultSettings(cfg))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	q := queue.NewIngestQueue(4, logger)
	t.Cleanup(func() { _ = q.Close() })

	// One worker keeps batch runs sequential so mock expectations stay ordered
	handler := NewHandler(database.NewDatabaseFromConn(db), store, q, batch.Config{MaxUnits: 50, Workers: 1}, logger)

	router := gin.New()
	SetupRoutes(router, handler)
	return router, mock, q
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := setupAPI(t)

	w := doRequest(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestListUnitsDefaults(t *testing.T) {
	router, mock, _ := setupAPI(t)

	rows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Maple Court", "101", 2, 2, 850.0, "OCCUPIED",
			1450.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units(.+)LIMIT \\? OFFSET \\?").
		WithArgs(50, 0).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM units").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := doRequest(router, http.MethodGet, "/api/units", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["total"])
	assert.EqualValues(t, 1, resp["page"])
	assert.EqualValues(t, 50, resp["page_size"])
	units, ok := resp["units"].([]any)
	require.True(t, ok)
	assert.Len(t, units, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnitsRejectsUnknownStatus(t *testing.T) {
	router, mock, _ := setupAPI(t)

	w := doRequest(router, http.MethodGet, "/api/units?status=renovating", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown unit status")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnitsRejectsBadPageParam(t *testing.T) {
	router, mock, _ := setupAPI(t)

	w := doRequest(router, http.MethodGet, "/api/units?page=abc", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid filter parameters")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnitNotFound(t *testing.T) {
	router, mock, _ := setupAPI(t)

	mock.ExpectQuery("SELECT (.+) FROM units").
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	w := doRequest(router, http.MethodGet, "/api/units/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Unit not found"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUnitFound(t *testing.T) {
	router, mock, _ := setupAPI(t)

	rows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Maple Court", "101", 2, 2, 850.0, "OCCUPIED",
			1450.0, 1500.0, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units").
		WithArgs("u-1").
		WillReturnRows(rows)

	w := doRequest(router, http.MethodGet, "/api/units/u-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var unit models.Unit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unit))
	assert.Equal(t, "u-1", unit.ID)
	assert.Equal(t, models.TypeTwoBed, unit.UnitType)
	require.NotNil(t, unit.RentPremiumPct)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetComparables(t *testing.T) {
	router, mock, _ := setupAPI(t)

	unitRows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Maple Court", "101", 2, 2, 1000.0, "OCCUPIED",
			1500.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units").
		WithArgs("u-1").
		WillReturnRows(unitRows)

	// Second candidate fails the bedroom filter and must not come back
	poolRows := sqlmock.NewRows(poolCols).
		AddRow("c-1", "Rival Row", "12", 2, 2.0, 980.0, 1550.0, true).
		AddRow("c-2", "Rival Row", "14", 3, 2.0, 990.0, 1800.0, true)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(poolRows)

	w := doRequest(router, http.MethodGet, "/api/units/u-1/comparables", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UnitID      string                    `json:"unit_id"`
		Comparables []models.ScoredComparable `json:"comparables"`
		Stats       models.CompStats          `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u-1", resp.UnitID)
	require.Len(t, resp.Comparables, 1)
	assert.Equal(t, "c-1", resp.Comparables[0].ID)
	assert.Equal(t, 1, resp.Comparables[0].Rank)
	assert.Equal(t, 100, resp.Comparables[0].SimilarityScore)
	assert.Equal(t, 1, resp.Stats.Count)
	require.NotNil(t, resp.Stats.Median)
	assert.Equal(t, 1550.0, *resp.Stats.Median)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeUnitPassthroughWithoutComps(t *testing.T) {
	router, mock, _ := setupAPI(t)

	unitRows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Maple Court", "101", 2, 2, 1000.0, "OCCUPIED",
			1500.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units").
		WithArgs("u-1").
		WillReturnRows(unitRows)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))

	w := doRequest(router, http.MethodPost, "/api/units/u-1/optimize", `{"strategy":"revenue"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.OptimizationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1500.0, result.RecommendedRent)
	assert.Equal(t, 0.30, result.Confidence)
	assert.Nil(t, result.DemandProbability)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeUnitClampsToAdjustmentBand(t *testing.T) {
	router, mock, _ := setupAPI(t)

	unitRows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Maple Court", "101", 2, 2, 1000.0, "OCCUPIED",
			1500.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units").
		WithArgs("u-1").
		WillReturnRows(unitRows)

	// Five comps around a 1600 median pull the revenue price above the
	// band; the recommendation lands on the +15% edge, rounded whole.
	poolRows := sqlmock.NewRows(poolCols).
		AddRow("c-1", "Rival Row", "1", 2, 2.0, 1000.0, 1580.0, true).
		AddRow("c-2", "Rival Row", "2", 2, 2.0, 1010.0, 1590.0, true).
		AddRow("c-3", "Rival Row", "3", 2, 2.0, 990.0, 1600.0, true).
		AddRow("c-4", "Rival Row", "4", 2, 2.0, 1020.0, 1610.0, true).
		AddRow("c-5", "Rival Row", "5", 2, 2.0, 980.0, 1620.0, true)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(poolRows)

	w := doRequest(router, http.MethodPost, "/api/units/u-1/optimize", `{"strategy":"revenue"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.OptimizationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1725.0, result.RecommendedRent)
	require.NotNil(t, result.RentChangePct)
	assert.InDelta(t, 15.0, *result.RentChangePct, 1e-9)
	require.NotNil(t, result.DemandProbability)
	assert.InDelta(t, 0.95, *result.DemandProbability, 1e-9)
	assert.Equal(t, 0.80, result.Confidence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeUnitCustomElasticity(t *testing.T) {
	router, mock, _ := setupAPI(t)

	unitRows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Maple Court", "101", 2, 2, 1000.0, "OCCUPIED",
			1500.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units").
		WithArgs("u-1").
		WillReturnRows(unitRows)

	poolRows := sqlmock.NewRows(poolCols).
		AddRow("c-1", "Rival Row", "1", 2, 2.0, 1000.0, 1580.0, true).
		AddRow("c-2", "Rival Row", "2", 2, 2.0, 1010.0, 1590.0, true).
		AddRow("c-3", "Rival Row", "3", 2, 2.0, 990.0, 1600.0, true).
		AddRow("c-4", "Rival Row", "4", 2, 2.0, 1020.0, 1610.0, true).
		AddRow("c-5", "Rival Row", "5", 2, 2.0, 980.0, 1620.0, true)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(poolRows)

	// A steep override makes demand fall off fast above the 1600 median:
	// the probability ceiling holds through $1616, so the revenue scan
	// stops there instead of riding to the +15% edge.
	w := doRequest(router, http.MethodPost, "/api/units/u-1/optimize",
		`{"strategy":"revenue","custom_elasticity":-0.05}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.OptimizationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1616.0, result.RecommendedRent)
	require.NotNil(t, result.DemandProbability)
	assert.InDelta(t, 0.95, *result.DemandProbability, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeUnitUnknownStrategy(t *testing.T) {
	router, mock, _ := setupAPI(t)

	w := doRequest(router, http.MethodPost, "/api/units/u-1/optimize", `{"strategy":"yolo"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown strategy")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeUnitWithoutRentFails(t *testing.T) {
	router, mock, _ := setupAPI(t)

	unitRows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Maple Court", "101", 2, 2, 1000.0, "VACANT",
			nil, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units").
		WithArgs("u-1").
		WillReturnRows(unitRows)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))

	w := doRequest(router, http.MethodPost, "/api/units/u-1/optimize", `{"strategy":"revenue"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no current rent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeBatchDefaultsToNeedsPricing(t *testing.T) {
	router, mock, _ := setupAPI(t)

	rows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Birch Flats", "1A", 1, 1, 620.0, "VACANT",
			1400.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00").
		AddRow("u-2", "Birch Flats", "2B", 2, 2, 840.0, "NOTICE",
			1500.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units WHERE \\(status IN").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))

	w := doRequest(router, http.MethodPost, "/api/batch/optimize", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result models.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.TotalUnits)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "u-1", result.Results[0].UnitID)
	assert.Equal(t, "revenue", result.Results[0].Strategy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeBatchExplicitIDsKeepRequestOrder(t *testing.T) {
	router, mock, _ := setupAPI(t)

	// Store returns rows in its own order; results must follow the request
	rows := sqlmock.NewRows(unitCols).
		AddRow("u-9", "Cedar Heights", "9C", 2, 1, 800.0, "OCCUPIED",
			1520.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00").
		AddRow("u-3", "Cedar Heights", "3A", 2, 1, 790.0, "OCCUPIED",
			1480.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units WHERE id IN").
		WithArgs("u-3", "u-9").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))

	w := doRequest(router, http.MethodPost, "/api/batch/optimize",
		`{"unit_ids":["u-3","u-9"],"strategy":"lease_up"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Results, 2)
	assert.Equal(t, "u-3", result.Results[0].UnitID)
	assert.Equal(t, "u-9", result.Results[1].UnitID)
	assert.Equal(t, "lease_up", result.Results[0].Strategy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeBatchHonorsMaxUnits(t *testing.T) {
	router, mock, _ := setupAPI(t)

	rows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Birch Flats", "1A", 1, 1, 620.0, "VACANT",
			1400.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00").
		AddRow("u-2", "Birch Flats", "2B", 2, 2, 840.0, "VACANT",
			1500.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units WHERE id IN").
		WithArgs("u-1", "u-2").
		WillReturnRows(rows)
	// Only the first unit survives the cap, so only one pool fetch happens
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))

	w := doRequest(router, http.MethodPost, "/api/batch/optimize",
		`{"unit_ids":["u-1","u-2"],"max_units":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.TotalUnits)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "u-1", result.Results[0].UnitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOptimizeBatchIsolatesFailures(t *testing.T) {
	router, mock, _ := setupAPI(t)

	rows := sqlmock.NewRows(unitCols).
		AddRow("u-1", "Birch Flats", "1A", 1, 1, 620.0, "VACANT",
			1400.0, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00").
		AddRow("u-2", "Birch Flats", "2B", 2, 2, 840.0, "VACANT",
			nil, nil, nil, "2025-01-02 10:00:00", "2025-01-02 10:00:00")
	mock.ExpectQuery("SELECT (.+) FROM units WHERE id IN").
		WithArgs("u-1", "u-2").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))
	mock.ExpectQuery("SELECT (.+) FROM competitor_listings").
		WillReturnRows(sqlmock.NewRows(poolCols))

	w := doRequest(router, http.MethodPost, "/api/batch/optimize", `{"unit_ids":["u-1","u-2"]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var result models.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "u-2", result.Failures[0].UnitID)
	assert.Contains(t, result.Failures[0].Reason, "no current rent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSummary(t *testing.T) {
	router, mock, _ := setupAPI(t)

	rows := sqlmock.NewRows([]string{
		"total_units", "occupied", "vacant", "notice", "needs_pricing", "below_market",
		"avg_current_rent", "avg_market_rent",
	}).
		AddRow(42, 35, 4, 3, 9, 12, 1512.50, 1580.25)
	mock.ExpectQuery("SELECT(.+)FROM units").WillReturnRows(rows)

	w := doRequest(router, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary models.PortfolioSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 42, summary.TotalUnits)
	assert.Equal(t, 9, summary.NeedsPricing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPropertiesEmpty(t *testing.T) {
	router, mock, _ := setupAPI(t)

	mock.ExpectQuery("SELECT(.+)FROM units(.+)GROUP BY property_name").
		WillReturnRows(sqlmock.NewRows([]string{
			"property_name", "unit_count", "avg_rent", "occupancy_rate", "needs_pricing",
		}))

	w := doRequest(router, http.MethodGet, "/api/properties", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRoundTrip(t *testing.T) {
	router, _, _ := setupAPI(t)

	w := doRequest(router, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	var settings config.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, -0.003, settings.Elasticity)

	settings.Elasticity = -0.005
	settings.MaxComparables = 8
	body, err := json.Marshal(settings)
	require.NoError(t, err)

	w = doRequest(router, http.MethodPut, "/api/settings", string(body))
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, -0.005, settings.Elasticity)
	assert.Equal(t, 8, settings.MaxComparables)
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	router, _, _ := setupAPI(t)

	w := doRequest(router, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	var settings config.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	settings.Elasticity = 0.1
	body, err := json.Marshal(settings)
	require.NoError(t, err)

	w = doRequest(router, http.MethodPut, "/api/settings", string(body))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "elasticity")

	// The stored settings are untouched
	w = doRequest(router, http.MethodGet, "/api/settings", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, -0.003, settings.Elasticity)
}

func uploadFile(router *gin.Engine, path, filename, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", filename)
	_, _ = fw.Write([]byte(content))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadRentRollAccepted(t *testing.T) {
	router, _, q := setupAPI(t)

	csv := "Property,Unit,Bedroom,Bathrooms,Sqft,Status,Rent\n" +
		"Maple Court,101,2,2,850,Current,\"$1,450.00\"\n" +
		"Maple Court,102,1,1,620,Vacant-Unrented,\n" +
		"Maple Court,103,loft,1,700,Current,$1300\n"

	w := uploadFile(router, "/api/uploads/rent-roll", "rent_roll.csv", csv)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["batch_id"])
	assert.EqualValues(t, 2, resp["units"])

	rowErrors, ok := resp["row_errors"].([]any)
	require.True(t, ok)
	require.Len(t, rowErrors, 1)
	first, ok := rowErrors[0].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 4, first["row"])

	assert.Equal(t, 1, q.Len())
}

func TestUploadRentRollAllRowsInvalid(t *testing.T) {
	router, _, q := setupAPI(t)

	csv := "Property,Unit,Bedroom,Bathrooms,Sqft,Status,Rent\n" +
		"Maple Court,101,loft,1,0,Current,\n"

	w := uploadFile(router, "/api/uploads/rent-roll", "rent_roll.csv", csv)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No valid rows found in file")
	assert.Equal(t, 0, q.Len())
}

func TestUploadRentRollMissingColumns(t *testing.T) {
	router, _, _ := setupAPI(t)

	csv := "Property,Unit,Bedroom,Sqft\nMaple Court,101,2,850\n"

	w := uploadFile(router, "/api/uploads/rent-roll", "rent_roll.csv", csv)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing required columns")
	assert.Contains(t, w.Body.String(), "Status")
}

func TestUploadRentRollQueueFull(t *testing.T) {
	router, _, q := setupAPI(t)

	for i := 0; i < 4; i++ {
		require.NoError(t, q.Push(&models.IngestBatch{
			ID:   fmt.Sprintf("b-%d", i),
			Kind: models.IngestRentRoll,
		}))
	}

	csv := "Property,Unit,Bedroom,Bathrooms,Sqft,Status,Rent\n" +
		"Maple Court,101,2,2,850,Current,$1450\n"

	w := uploadFile(router, "/api/uploads/rent-roll", "rent_roll.csv", csv)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Ingest queue is not accepting uploads"}`, w.Body.String())
}

func TestUploadCompetitionAccepted(t *testing.T) {
	router, _, q := setupAPI(t)

	csv := "Reporting Property Name,Bedrooms,Market Rent,Avg. Sq. Ft.,Days Vacant\n" +
		"The Landing,S,\"$1,295.00\",540,12\n" +
		"The Landing,2 Beds,$1850,980,\n"

	w := uploadFile(router, "/api/uploads/competition", "survey-feb.csv", csv)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["batch_id"])
	assert.EqualValues(t, 2, resp["listings"])
	assert.Equal(t, 1, q.Len())
}

func TestUploadCompetitionNoFile(t *testing.T) {
	router, _, _ := setupAPI(t)

	w := doRequest(router, http.MethodPost, "/api/uploads/competition", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No file provided"}`, w.Body.String())
}
