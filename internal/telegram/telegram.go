package telegram

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"rentpulse/server/internal/models"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultAPIBase = "https://api.telegram.org"

// How many individual recommendations a sweep report lists before
// collapsing the rest into a count
const maxReportLines = 5

type Config struct {
	Enabled  bool
	BotToken string
	ChatID   string
	Filters  *models.AlertFilters
}

// Notifier pushes pricing reports to a Telegram chat. A disabled notifier
// accepts every call and sends nothing.
type Notifier struct {
	logger  *logrus.Logger
	client  *http.Client
	config  Config
	apiBase string
}

func NewNotifier(config Config, logger *logrus.Logger) *Notifier {
	return &Notifier{
		logger: logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		config:  config,
		apiBase: defaultAPIBase,
	}
}

// SendMessage sends a message to the configured Telegram chat
func (n *Notifier) SendMessage(message string) error {
	if !n.config.Enabled {
		return nil
	}

	if n.config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}

	if n.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    n.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := n.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifySweepResult reports a finished batch run. The summary always goes
// out; individual lines are limited to the filtered top movers.
func (n *Notifier) NotifySweepResult(result models.BatchResult) error {
	if !n.config.Enabled {
		return nil
	}

	movers := n.topMovers(result.Results)
	if err := n.SendMessage(formatSweepReport(result, movers)); err != nil {
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"movers":    len(movers),
		"succeeded": result.Succeeded,
	}).Info("Sent sweep report to Telegram")
	return nil
}

// topMovers keeps the results worth alerting on, biggest change first
func (n *Notifier) topMovers(results []models.OptimizationResult) []models.OptimizationResult {
	var movers []models.OptimizationResult
	for i := range results {
		if !n.config.Filters.IsResultAllowed(&results[i]) {
			continue
		}
		if results[i].RentChange == 0 {
			continue
		}
		movers = append(movers, results[i])
	}

	sort.Slice(movers, func(i, j int) bool {
		return math.Abs(movers[i].RentChange) > math.Abs(movers[j].RentChange)
	})

	if len(movers) > maxReportLines {
		movers = movers[:maxReportLines]
	}
	return movers
}

func formatSweepReport(result models.BatchResult, movers []models.OptimizationResult) string {
	message := fmt.Sprintf(
		"<b>🌙 Reprice sweep finished</b>\n\n"+
			"🏠 Units processed: %d\n"+
			"✅ Succeeded: %d\n"+
			"❌ Failed: %d\n",
		result.TotalUnits,
		result.Succeeded,
		result.Failed,
	)

	if len(movers) > 0 {
		message += "\n<b>Top moves</b>\n"
		for _, mover := range movers {
			message += formatMoverLine(mover)
		}
	}

	if remaining := result.Succeeded - len(movers); remaining > 0 && len(movers) > 0 {
		message += fmt.Sprintf("\n…and %d more recommendations", remaining)
	}

	return message
}

func formatMoverLine(result models.OptimizationResult) string {
	arrow := "📈"
	if result.RentChange < 0 {
		arrow = "📉"
	}

	pct := 0.0
	if result.RentChangePct != nil {
		pct = *result.RentChangePct
	}

	return fmt.Sprintf("%s %s: $%.0f → $%.0f (%+.1f%%)\n",
		arrow,
		result.UnitID,
		result.CurrentRent,
		result.RecommendedRent,
		pct,
	)
}
