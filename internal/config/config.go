package config

import (
	"errors"
	"fmt"
	"os"

	"salonvox/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Redis      RedisConfig      `yaml:"redis"`
	Salon      SalonConfig      `yaml:"salon"`
	Dialog     DialogConfig     `yaml:"dialog"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	Notify     NotifyConfig     `yaml:"notify"`
	Intent     IntentConfig     `yaml:"intent"`
	Database   DatabaseConfig   `yaml:"database"`
	Exports    ExportConfig     `yaml:"exports"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Services   []models.Service `yaml:"services"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// SalonConfig carries the fixed answers the menu can speak without leaving
// the menu state.
type SalonConfig struct {
	Name      string `yaml:"name"`
	PriceInfo string `yaml:"price_info"`
	Address   string `yaml:"address"`
	Hours     string `yaml:"hours"`
}

type DialogConfig struct {
	CountryCode    string `yaml:"country_code"`
	FallbackNumber string `yaml:"fallback_number"`
	BaseURL        string `yaml:"base_url"`
}

type SchedulingConfig struct {
	Provider string               `yaml:"provider"`
	Calendly CalendlyConfig       `yaml:"calendly"`
	Google   GoogleCalendarConfig `yaml:"google"`
}

type CalendlyConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type GoogleCalendarConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SlotDuration    int    `yaml:"slot_duration_minutes"`
	DayStartHour    int    `yaml:"day_start_hour"`
	DayEndHour      int    `yaml:"day_end_hour"`
}

type NotifyConfig struct {
	SMS      SMSConfig           `yaml:"sms"`
	Telegram TelegramStaffConfig `yaml:"telegram"`
}

type SMSConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
	BaseURL    string `yaml:"base_url"`
}

type TelegramStaffConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type IntentConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; environment wins either way
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Подставляем переменные окружения до разбора YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Dialog.FallbackNumber == "" {
		return errors.New("dialog fallback number is required")
	}
	if c.Dialog.BaseURL == "" {
		return errors.New("dialog base_url is required")
	}
	if c.Scheduling.Provider == "calendly" && c.Scheduling.Calendly.Token == "" {
		return errors.New("calendly token is required")
	}
	if c.Scheduling.Provider == "google" && c.Scheduling.Google.CredentialsFile == "" {
		return errors.New("google credentials_file is required")
	}
	return ValidateServices(c.Services)
}

func ValidateServices(services []models.Service) error {
	seen := make(map[models.ServiceKind]bool)
	for _, svc := range services {
		if svc.Kind == "" || svc.Kind == models.ServiceNone {
			return fmt.Errorf("service '%s' has invalid kind %q", svc.Label, svc.Kind)
		}
		if seen[svc.Kind] {
			return fmt.Errorf("duplicate service kind: %s", svc.Kind)
		}
		if len(svc.Keywords) == 0 {
			return fmt.Errorf("service '%s' has no keywords", svc.Label)
		}
		seen[svc.Kind] = true
	}
	return nil
}

// ServiceByKind returns the configured service for a kind, or nil.
func (c *Config) ServiceByKind(kind models.ServiceKind) *models.Service {
	for i := range c.Services {
		if c.Services[i].Kind == kind {
			return &c.Services[i]
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 5
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 10
	}
	if c.Dialog.CountryCode == "" {
		c.Dialog.CountryCode = "1"
	}
	if c.Scheduling.Provider == "" {
		c.Scheduling.Provider = "calendly"
	}
	if c.Scheduling.Calendly.BaseURL == "" {
		c.Scheduling.Calendly.BaseURL = "https://api.calendly.com"
	}
	if c.Scheduling.Google.SlotDuration == 0 {
		c.Scheduling.Google.SlotDuration = 30
	}
	if c.Scheduling.Google.DayStartHour == 0 {
		c.Scheduling.Google.DayStartHour = 9
	}
	if c.Scheduling.Google.DayEndHour == 0 {
		c.Scheduling.Google.DayEndHour = 19
	}
	if c.Notify.SMS.BaseURL == "" {
		c.Notify.SMS.BaseURL = "https://api.twilio.com"
	}
	if c.Intent.Model == "" {
		c.Intent.Model = "gemini-1.5-flash"
	}
	if c.Intent.TimeoutSeconds == 0 {
		c.Intent.TimeoutSeconds = 3
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/salonvox.db"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
