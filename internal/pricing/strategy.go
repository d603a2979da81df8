package pricing

import "fmt"

// Strategy is the closed set of optimization goals
type Strategy string

const (
	StrategyRevenue  Strategy = "revenue"
	StrategyLeaseUp  Strategy = "lease_up"
	StrategyBalanced Strategy = "balanced"
)

// ParseStrategy validates a caller-supplied strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyRevenue, StrategyLeaseUp, StrategyBalanced:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}
