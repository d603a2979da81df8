package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpulse/server/internal/models"
)

func testNotifier(t *testing.T, config Config, handler http.HandlerFunc) *Notifier {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	notifier := NewNotifier(config, logger)
	notifier.apiBase = server.URL
	return notifier
}

func enabledConfig() Config {
	return Config{Enabled: true, BotToken: "123:abc", ChatID: "42"}
}

func TestSendMessagePostsPayload(t *testing.T) {
	var gotPath string
	var gotPayload map[string]interface{}

	notifier := testNotifier(t, enabledConfig(), func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, notifier.SendMessage("hello"))
	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "42", gotPayload["chat_id"])
	assert.Equal(t, "hello", gotPayload["text"])
	assert.Equal(t, "HTML", gotPayload["parse_mode"])
}

func TestSendMessageDisabledSendsNothing(t *testing.T) {
	requests := 0
	notifier := testNotifier(t, Config{Enabled: false}, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	require.NoError(t, notifier.SendMessage("hello"))
	assert.Equal(t, 0, requests)
}

func TestSendMessageRequiresCredentials(t *testing.T) {
	requests := 0
	notifier := testNotifier(t, Config{Enabled: true, ChatID: "42"}, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	err := notifier.SendMessage("hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token")
	assert.Equal(t, 0, requests)
}

func TestSendMessageMapsStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   string
	}{
		{"unauthorized", http.StatusUnauthorized, "invalid bot token"},
		{"bad request", http.StatusBadRequest, "invalid chat ID"},
		{"forbidden", http.StatusForbidden, "blocked"},
		{"not found", http.StatusNotFound, "bot not found"},
		{"server error", http.StatusInternalServerError, "status 500"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := testNotifier(t, enabledConfig(), func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			})

			err := notifier.SendMessage("hello")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func sweepResult() models.BatchResult {
	big := 15.0
	small := 1.2
	return models.BatchResult{
		TotalUnits: 3,
		Succeeded:  3,
		Failed:     0,
		Results: []models.OptimizationResult{
			{UnitID: "u-small", CurrentRent: 1480, RecommendedRent: 1498, RentChange: 18, RentChangePct: &small},
			{UnitID: "u-big", CurrentRent: 1500, RecommendedRent: 1725, RentChange: 225, RentChangePct: &big},
			{UnitID: "u-flat", CurrentRent: 1600, RecommendedRent: 1600, RentChange: 0},
		},
	}
}

func TestNotifySweepResultFiltersAndRanks(t *testing.T) {
	var gotText string
	minChange := 5.0
	config := enabledConfig()
	config.Filters = &models.AlertFilters{MinChangePct: &minChange}

	notifier := testNotifier(t, config, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotText, _ = payload["text"].(string)
		w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, notifier.NotifySweepResult(sweepResult()))
	assert.Contains(t, gotText, "Reprice sweep finished")
	assert.Contains(t, gotText, "Units processed: 3")
	assert.Contains(t, gotText, "u-big")
	assert.Contains(t, gotText, "+15.0%")
	assert.NotContains(t, gotText, "u-small")
	assert.NotContains(t, gotText, "u-flat")
}

func TestNotifySweepResultCapsReportLines(t *testing.T) {
	var gotText string
	notifier := testNotifier(t, enabledConfig(), func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		gotText, _ = payload["text"].(string)
		w.Write([]byte(`{"ok":true}`))
	})

	result := models.BatchResult{TotalUnits: 8, Succeeded: 8}
	for i := 0; i < 8; i++ {
		pct := float64(i + 1)
		result.Results = append(result.Results, models.OptimizationResult{
			UnitID:          string(rune('a' + i)),
			CurrentRent:     1000,
			RecommendedRent: 1000 + float64(10*(i+1)),
			RentChange:      float64(10 * (i + 1)),
			RentChangePct:   &pct,
		})
	}

	require.NoError(t, notifier.NotifySweepResult(result))
	// The five biggest moves are listed, the rest summarized
	assert.Contains(t, gotText, "…and 3 more recommendations")
	assert.NotContains(t, gotText, "📈 a:")
	assert.Contains(t, gotText, "📈 h:")
}

func TestNotifySweepResultDisabled(t *testing.T) {
	requests := 0
	notifier := testNotifier(t, Config{Enabled: false}, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	require.NoError(t, notifier.NotifySweepResult(sweepResult()))
	assert.Equal(t, 0, requests)
}
