package models

import (
	"math"
	"strings"
)

// AlertFilters limits which optimization results are worth a notification.
// A nil filter set allows everything.
type AlertFilters struct {
	MinChangePct  *float64 `json:"min_change_pct"`
	MinConfidence *float64 `json:"min_confidence"`
	Properties    []string `json:"properties"`
	IncreasesOnly bool     `json:"increases_only"`
}

// NewAlertFilters builds filters from raw thresholds; a zero threshold
// disables its check. Returns nil when nothing is restricted.
func NewAlertFilters(minChangePct, minConfidence float64, increasesOnly bool, properties []string) *AlertFilters {
	if minChangePct <= 0 && minConfidence <= 0 && !increasesOnly && len(properties) == 0 {
		return nil
	}

	f := &AlertFilters{IncreasesOnly: increasesOnly, Properties: properties}
	if minChangePct > 0 {
		f.MinChangePct = &minChangePct
	}
	if minConfidence > 0 {
		f.MinConfidence = &minConfidence
	}
	return f
}

// IsResultAllowed checks if a result passes the alert filter criteria
func (f *AlertFilters) IsResultAllowed(result *OptimizationResult) bool {
	if f == nil {
		return true
	}

	if f.MinChangePct != nil {
		if result.RentChangePct == nil {
			return false
		}
		if math.Abs(*result.RentChangePct) < *f.MinChangePct {
			return false
		}
	}

	if f.MinConfidence != nil && result.Confidence < *f.MinConfidence {
		return false
	}

	if f.IncreasesOnly && result.RentChange <= 0 {
		return false
	}

	if len(f.Properties) > 0 {
		allowed := false
		for _, property := range f.Properties {
			if strings.EqualFold(property, result.PropertyName) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	return true
}
