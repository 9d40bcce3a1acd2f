package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "FESTIVA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	API           APIConfig
	Availability  AvailabilityConfig
	Notifications NotificationsConfig
	Checkout      CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FESTIVA_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"FESTIVA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FESTIVA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the client at the remote marketplace APIs.
type APIConfig struct {
	BaseURL     string        `envconfig:"FESTIVA_API_BASE_URL" required:"true"`
	HTTPTimeout time.Duration `envconfig:"FESTIVA_API_HTTP_TIMEOUT" default:"15s"`
}

func (a APIConfig) validate() error {
	if strings.TrimSpace(a.BaseURL) == "" {
		return fmt.Errorf("%s_API_BASE_URL is required", EnvPrefix)
	}
	return nil
}

// AvailabilityConfig tunes the booking-date availability checker.
type AvailabilityConfig struct {
	DebounceDelay      time.Duration `envconfig:"FESTIVA_AVAILABILITY_DEBOUNCE" default:"500ms"`
	SubscribeCloseWait time.Duration `envconfig:"FESTIVA_AVAILABILITY_SUBSCRIBE_CLOSE_WAIT" default:"1500ms"`
	BreakerMaxRequests uint32        `envconfig:"FESTIVA_AVAILABILITY_BREAKER_MAX_REQUESTS" default:"3"`
	BreakerInterval    time.Duration `envconfig:"FESTIVA_AVAILABILITY_BREAKER_INTERVAL" default:"60s"`
	BreakerTimeout     time.Duration `envconfig:"FESTIVA_AVAILABILITY_BREAKER_TIMEOUT" default:"30s"`
}

// NotificationsConfig tunes the notification reconciler's polling.
type NotificationsConfig struct {
	OrderPollInterval   time.Duration `envconfig:"FESTIVA_NOTIFICATIONS_ORDER_POLL_INTERVAL" default:"10s"`
	RestockPollInterval time.Duration `envconfig:"FESTIVA_NOTIFICATIONS_RESTOCK_POLL_INTERVAL" default:"30s"`
	ReadConfirmDelay    time.Duration `envconfig:"FESTIVA_NOTIFICATIONS_READ_CONFIRM_DELAY" default:"15s"`
	FetchMaxRetries     uint64        `envconfig:"FESTIVA_NOTIFICATIONS_FETCH_MAX_RETRIES" default:"3"`
	FetchRetryBase      time.Duration `envconfig:"FESTIVA_NOTIFICATIONS_FETCH_RETRY_BASE" default:"500ms"`
}

// CheckoutConfig controls order submission behavior.
type CheckoutConfig struct {
	// ClearCartOnPartialFailure restores the legacy behavior of emptying the
	// whole cart whenever at least one vendor order succeeds, even if other
	// vendors failed. The default keeps failed vendors' items for retry.
	ClearCartOnPartialFailure bool          `envconfig:"FESTIVA_CHECKOUT_CLEAR_ON_PARTIAL_FAILURE" default:"false"`
	SubmitTimeout             time.Duration `envconfig:"FESTIVA_CHECKOUT_SUBMIT_TIMEOUT" default:"30s"`
}
