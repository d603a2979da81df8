package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// Interface the HTTP API binds to
		Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`

		// Port the HTTP API listens on
		Port int `env:"SERVER_PORT" envDefault:"8080"`
	}

	// Logging configuration
	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}

	// Database configuration
	Database struct {
		// Path to the sqlite database file
		Path string `env:"DB_PATH" envDefault:"data/rentpulse.db"`
	}

	// Engine defaults, overridable at runtime through the settings store
	Engine struct {
		// Maximum area difference for a comparable, as a fraction
		MaxAreaDeltaPct float64 `env:"ENGINE_MAX_AREA_DELTA_PCT" envDefault:"0.15"`

		// Minimum similarity score for a candidate to qualify
		SimilarityThreshold int `env:"ENGINE_SIMILARITY_THRESHOLD" envDefault:"50"`

		// Maximum number of comparables kept per unit
		MaxComparables int `env:"ENGINE_MAX_COMPARABLES" envDefault:"10"`

		// Half-width of the recommendation band around current rent
		MaxPriceAdjustmentPct float64 `env:"ENGINE_MAX_PRICE_ADJUSTMENT_PCT" envDefault:"0.15"`

		// Demand elasticity per percent of price deviation
		Elasticity float64 `env:"ENGINE_ELASTICITY" envDefault:"-0.003"`

		// Expected-days-to-lease window in days
		VacancyWindowDays int `env:"ENGINE_VACANCY_WINDOW_DAYS" envDefault:"30"`

		// Fraction of status-quo revenue the lease_up strategy must keep
		RevenueFloorPct float64 `env:"ENGINE_REVENUE_FLOOR_PCT" envDefault:"0.90"`
	}

	// Batch optimization configuration
	Batch struct {
		// Maximum units accepted per batch request
		MaxUnits int `env:"BATCH_MAX_UNITS" envDefault:"100"`

		// Number of concurrent optimization workers
		Workers int `env:"BATCH_WORKERS" envDefault:"4"`
	}

	// Ingest queue configuration
	Queue struct {
		// Buffer size in batches
		Size int `env:"QUEUE_SIZE" envDefault:"64"`
	}

	// Persister configuration
	Processor struct {
		// Number of concurrent persist workers
		Count int `env:"PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"PROCESSOR_MAX_RETRIES" envDefault:"3"`

		// Initial delay between retries in seconds
		RetryDelay int `env:"PROCESSOR_RETRY_DELAY" envDefault:"5"`
	}

	// Scheduler configuration
	Scheduler struct {
		Enabled bool `env:"SCHEDULER_ENABLED" envDefault:"true"`

		// Cron expression for the nightly repricing sweep
		RepriceSpec string `env:"SCHEDULER_REPRICE_CRON" envDefault:"0 3 * * *"`

		// Strategy the sweep prices with
		Strategy string `env:"SCHEDULER_STRATEGY" envDefault:"revenue"`
	}

	// Runtime settings store
	Settings struct {
		Path string `env:"SETTINGS_PATH" envDefault:"data/settings.json"`
	}

	// Telegram notifications. The filter thresholds keep routine sweeps
	// from paging anyone; zero disables a threshold.
	Telegram struct {
		Enabled       bool     `env:"TELEGRAM_ENABLED" envDefault:"false"`
		BotToken      string   `env:"TELEGRAM_BOT_TOKEN"`
		ChatID        string   `env:"TELEGRAM_CHAT_ID"`
		MinChangePct  float64  `env:"TELEGRAM_MIN_CHANGE_PCT" envDefault:"0"`
		MinConfidence float64  `env:"TELEGRAM_MIN_CONFIDENCE" envDefault:"0"`
		IncreasesOnly bool     `env:"TELEGRAM_INCREASES_ONLY" envDefault:"false"`
		Properties    []string `env:"TELEGRAM_PROPERTIES"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
