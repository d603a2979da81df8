package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rentpulse/server/internal/comps"
	"rentpulse/server/internal/pricing"
)

// Settings are the engine tunables operators can change at runtime
// through the API. They start from the Engine env defaults and persist
// across restarts as a JSON file.
type Settings struct {
	MaxAreaDeltaPct       float64 `json:"max_area_delta_pct"`
	SimilarityThreshold   int     `json:"similarity_threshold"`
	MaxComparables        int     `json:"max_comparables"`
	MaxPriceAdjustmentPct float64 `json:"max_price_adjustment_pct"`
	Elasticity            float64 `json:"elasticity"`
	VacancyWindowDays     int     `json:"vacancy_window_days"`
	RevenueFloorPct       float64 `json:"revenue_floor_pct"`
	DefaultStrategy       string  `json:"default_strategy"`
	BalancedWeight        float64 `json:"balanced_weight"`
}

// DefaultSettings derives the initial settings from the environment
// configuration
func DefaultSettings(cfg *Config) Settings {
	return Settings{
		MaxAreaDeltaPct:       cfg.Engine.MaxAreaDeltaPct,
		SimilarityThreshold:   cfg.Engine.SimilarityThreshold,
		MaxComparables:        cfg.Engine.MaxComparables,
		MaxPriceAdjustmentPct: cfg.Engine.MaxPriceAdjustmentPct,
		Elasticity:            cfg.Engine.Elasticity,
		VacancyWindowDays:     cfg.Engine.VacancyWindowDays,
		RevenueFloorPct:       cfg.Engine.RevenueFloorPct,
		DefaultStrategy:       string(pricing.StrategyRevenue),
		BalancedWeight:        0.5,
	}
}

// Validate rejects settings that would break the engine's invariants
func (s Settings) Validate() error {
	if s.MaxAreaDeltaPct <= 0 || s.MaxAreaDeltaPct > 1 {
		return fmt.Errorf("max_area_delta_pct must be in (0, 1], got %g", s.MaxAreaDeltaPct)
	}
	if s.SimilarityThreshold < 0 {
		return fmt.Errorf("similarity_threshold must be non-negative, got %d", s.SimilarityThreshold)
	}
	if s.MaxComparables < 1 {
		return fmt.Errorf("max_comparables must be at least 1, got %d", s.MaxComparables)
	}
	if s.MaxPriceAdjustmentPct <= 0 || s.MaxPriceAdjustmentPct > 1 {
		return fmt.Errorf("max_price_adjustment_pct must be in (0, 1], got %g", s.MaxPriceAdjustmentPct)
	}
	if s.Elasticity >= 0 {
		return fmt.Errorf("elasticity must be negative, got %g", s.Elasticity)
	}
	if s.VacancyWindowDays < 1 {
		return fmt.Errorf("vacancy_window_days must be at least 1, got %d", s.VacancyWindowDays)
	}
	if s.RevenueFloorPct <= 0 || s.RevenueFloorPct > 1 {
		return fmt.Errorf("revenue_floor_pct must be in (0, 1], got %g", s.RevenueFloorPct)
	}
	if _, err := pricing.ParseStrategy(s.DefaultStrategy); err != nil {
		return err
	}
	if s.BalancedWeight < 0 || s.BalancedWeight > 1 {
		return fmt.Errorf("balanced_weight must be in [0, 1], got %g", s.BalancedWeight)
	}
	return nil
}

// CompsConfig converts the settings into a selector configuration
func (s Settings) CompsConfig() comps.Config {
	return comps.Config{
		MaxAreaDeltaPct:     s.MaxAreaDeltaPct,
		SimilarityThreshold: s.SimilarityThreshold,
		MaxComparables:      s.MaxComparables,
	}
}

// PricingConfig converts the settings into an optimizer configuration
func (s Settings) PricingConfig() pricing.Config {
	return pricing.Config{
		MaxPriceAdjustmentPct: s.MaxPriceAdjustmentPct,
		Elasticity:            s.Elasticity,
		VacancyWindowDays:     s.VacancyWindowDays,
		RevenueFloorPct:       s.RevenueFloorPct,
	}
}

// SettingsStore holds the current settings and persists updates to disk
type SettingsStore struct {
	mu      sync.RWMutex
	path    string
	current Settings
}

// NewSettingsStore loads persisted settings from path, falling back to
// the given defaults when no file exists yet
func NewSettingsStore(path string, defaults Settings) (*SettingsStore, error) {
	store := &SettingsStore{path: path, current: defaults}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %v", err)
	}
	store.path = absPath

	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		// First run, seed the file with the defaults
		if err := store.save(); err != nil {
			return nil, err
		}
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %v", err)
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %v", err)
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("persisted settings are invalid: %w", err)
	}

	store.current = loaded
	return store, nil
}

// Get returns a copy of the current settings
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates, applies and persists new settings
func (s *SettingsStore) Update(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	previous := s.current
	s.current = next
	if err := s.save(); err != nil {
		s.current = previous
		return err
	}
	return nil
}

// save writes the current settings; callers hold the write lock or are
// the sole owner
func (s *SettingsStore) save() error {
	data, err := json.MarshalIndent(s.current, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %v", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %v", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %v", err)
	}
	return nil
}
