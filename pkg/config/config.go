package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfig marks configuration problems the process cannot start with
var ErrConfig = errors.New("invalid configuration")

const (
	DefaultPath = "config.json"

	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Debug   bool `json:"debug" yaml:"debug"`
	RunOnce bool `json:"-" yaml:"-"` // single pipeline pass, then exit

	DeepSeek  DeepSeek  `json:"deepseek" yaml:"deepseek"`
	Anthropic Anthropic `json:"anthropic" yaml:"anthropic"`
	Summary   Summary   `json:"summary" yaml:"summary"`
	Telegram  Telegram  `json:"telegram" yaml:"telegram"`
	Nhk       Nhk       `json:"nhk" yaml:"nhk"`
	Browser   Browser   `json:"browser" yaml:"browser"`
	Schedule  Schedule  `json:"schedule" yaml:"schedule"`
	Report    Report    `json:"report" yaml:"report"`
	Alert     Alert     `json:"alert" yaml:"alert"`
	Server    Server    `json:"server" yaml:"server"`
	Log       Log       `json:"log" yaml:"log"`
}

type DeepSeek struct {
	APIKey string `json:"api_key" yaml:"api_key"`
	APIURL string `json:"api_url" yaml:"api_url"`
	Model  string `json:"model" yaml:"model"`
}

type Anthropic struct {
	APIKey string `json:"api_key" yaml:"api_key"`
	Model  string `json:"model" yaml:"model"`
}

type Summary struct {
	Provider    string   `json:"provider" yaml:"provider"`
	Rephrase    *bool    `json:"rephrase" yaml:"rephrase"`
	FocusCities []string `json:"focus_cities" yaml:"focus_cities"`
}

type Telegram struct {
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
}

type Nhk struct {
	URL         string `json:"url" yaml:"url"`
	MapSelector string `json:"map_selector" yaml:"map_selector"`
}

type Browser struct {
	ExecPath             string `json:"exec_path" yaml:"exec_path"`
	Headless             *bool  `json:"headless" yaml:"headless"`
	Width                int    `json:"width" yaml:"width"`
	Height               int    `json:"height" yaml:"height"`
	RenderTimeoutSeconds int    `json:"render_timeout_seconds" yaml:"render_timeout_seconds"`
	SettleTimeoutSeconds int    `json:"settle_timeout_seconds" yaml:"settle_timeout_seconds"`
}

// Schedule is the daily trigger time
// hours and minutes are pointers because 0 is a valid value
type Schedule struct {
	Hours             *int   `json:"hours" yaml:"hours"`
	Minutes           *int   `json:"minutes" yaml:"minutes"`
	Timezone          string `json:"timezone" yaml:"timezone"`
	PollSeconds       int    `json:"poll_seconds" yaml:"poll_seconds"`
	RunTimeoutSeconds int    `json:"run_timeout_seconds" yaml:"run_timeout_seconds"`
}

type Report struct {
	Timezone string `json:"timezone" yaml:"timezone"`
}

type Alert struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

type Server struct {
	Port      int    `json:"port" yaml:"port"`
	AuthToken string `json:"auth_token" yaml:"auth_token"` // protects the manual trigger endpoint
}

type Log struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

// Path returns the configuration file location
func Path() string {
	return getStringEnvDefault("CONFIG_PATH", DefaultPath)
}

// Load reads the configuration file, fills empty values from the environment
// and applies defaults. A missing file is not an error, the environment alone
// may carry everything.
func Load(path string) (*Config, error) {
	conf := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Printf("Configuration file %s not found, using environment only\n", path)
	case err != nil:
		return nil, fmt.Errorf("%w: could not read %s: %v", ErrConfig, path, err)
	default:
		if err := decode(path, data, conf); err != nil {
			return nil, fmt.Errorf("%w: could not parse %s: %v", ErrConfig, path, err)
		}
	}

	conf.applyEnv()
	conf.applyDefaults()

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func decode(path string, data []byte, conf *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, conf)
	default:
		return json.Unmarshal(data, conf)
	}
}

func (c *Config) applyEnv() {
	c.Debug = c.Debug || getBoolEnvDefault("DEBUG", false)
	c.RunOnce = getBoolEnvDefault("RUN_ONCE", false)

	c.DeepSeek.APIKey = orEnv(c.DeepSeek.APIKey, "DEEPSEEK_API_KEY")
	c.Anthropic.APIKey = orEnv(c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	c.Telegram.BotToken = orEnv(c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	c.Telegram.ChatID = orEnv(c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	c.Alert.WebhookURL = orEnv(c.Alert.WebhookURL, "ALERT_WEBHOOK_URL")
	c.Server.AuthToken = orEnv(c.Server.AuthToken, "AUTH_TOKEN")
	c.Log.Level = orEnv(c.Log.Level, "LOG_LEVEL")
	c.Log.File = orEnv(c.Log.File, "LOG_FILE")

	if c.Server.Port == 0 {
		c.Server.Port = getIntEnvDefault("METRICS_PORT", 8080)
	}
}

func (c *Config) applyDefaults() {
	c.DeepSeek.APIURL = orDefault(c.DeepSeek.APIURL, "https://api.deepseek.com/chat/completions")
	c.DeepSeek.Model = orDefault(c.DeepSeek.Model, "deepseek-chat")
	c.Anthropic.Model = orDefault(c.Anthropic.Model, "claude-3-5-haiku-latest")

	c.Summary.Provider = strings.ToLower(orDefault(c.Summary.Provider, ProviderDeepSeek))
	if c.Summary.Rephrase == nil {
		c.Summary.Rephrase = boolPtr(true)
	}
	if len(c.Summary.FocusCities) == 0 {
		c.Summary.FocusCities = []string{"東京", "札幌"}
	}

	c.Nhk.URL = orDefault(c.Nhk.URL, "https://www.nhk.or.jp/kishou-saigai/")
	c.Nhk.MapSelector = orDefault(c.Nhk.MapSelector, ".theWeatherForecastWeeklyMap")

	if c.Browser.Headless == nil {
		c.Browser.Headless = boolPtr(true)
	}
	c.Browser.Width = positiveOr(c.Browser.Width, 1600)
	c.Browser.Height = positiveOr(c.Browser.Height, 1200)
	c.Browser.RenderTimeoutSeconds = positiveOr(c.Browser.RenderTimeoutSeconds, 30)
	c.Browser.SettleTimeoutSeconds = positiveOr(c.Browser.SettleTimeoutSeconds, 20)

	if c.Schedule.Hours == nil {
		c.Schedule.Hours = intPtr(16)
	}
	if c.Schedule.Minutes == nil {
		c.Schedule.Minutes = intPtr(0)
	}
	c.Schedule.Timezone = orDefault(c.Schedule.Timezone, "UTC")
	c.Schedule.PollSeconds = positiveOr(c.Schedule.PollSeconds, 30)
	c.Schedule.RunTimeoutSeconds = positiveOr(c.Schedule.RunTimeoutSeconds, 600)

	c.Report.Timezone = orDefault(c.Report.Timezone, "Asia/Tokyo")
	c.Log.Level = orDefault(c.Log.Level, "info")
}

// Validate reports the first problem which prevents the process from starting
func (c *Config) Validate() error {
	switch c.Summary.Provider {
	case ProviderDeepSeek:
		if c.DeepSeek.APIKey == "" {
			return fmt.Errorf("%w: DeepSeek API key is not set", ErrConfig)
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("%w: Anthropic API key is not set", ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown summary provider %q", ErrConfig, c.Summary.Provider)
	}

	if c.Telegram.BotToken == "" {
		return fmt.Errorf("%w: Telegram bot token is not set", ErrConfig)
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("%w: Telegram chat ID is not set", ErrConfig)
	}

	if h := *c.Schedule.Hours; h < 0 || h > 23 {
		return fmt.Errorf("%w: schedule hours out of range: %d", ErrConfig, h)
	}
	if m := *c.Schedule.Minutes; m < 0 || m > 59 {
		return fmt.Errorf("%w: schedule minutes out of range: %d", ErrConfig, m)
	}

	// a slower poll can step over the whole trigger minute
	if c.Schedule.PollSeconds >= 60 {
		return fmt.Errorf("%w: schedule poll_seconds must be below 60: %d", ErrConfig, c.Schedule.PollSeconds)
	}

	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("%w: invalid schedule timezone: %v", ErrConfig, err)
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("%w: invalid report timezone: %v", ErrConfig, err)
	}

	return nil
}

func (c *Config) ScheduleLocation() *time.Location {
	return mustLocation(c.Schedule.Timezone)
}

func (c *Config) ReportLocation() *time.Location {
	return mustLocation(c.Report.Timezone)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Schedule.PollSeconds) * time.Second
}

func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Schedule.RunTimeoutSeconds) * time.Second
}

func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Browser.RenderTimeoutSeconds) * time.Second
}

func (c *Config) SettleTimeout() time.Duration {
	return time.Duration(c.Browser.SettleTimeoutSeconds) * time.Second
}

// mustLocation is called only after Validate
func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}

	return loc
}

func orEnv(value, key string) string {
	if value != "" {
		return value
	}

	return os.Getenv(key)
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}

	return defaultValue
}

func positiveOr(value, defaultValue int) int {
	if value > 0 {
		return value
	}

	return defaultValue
}

func boolPtr(b bool) *bool {
	return &b
}

func intPtr(i int) *int {
	return &i
}

func getBoolEnvDefault(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

func getStringEnvDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	fmt.Printf("Using default value for %s\n", key)
	return defaultValue
}

func getIntEnvDefault(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	fmt.Printf("Using default value for %s\n", key)
	return defaultValue
}

func (c *Config) ScheduleHour() int {
	return *c.Schedule.Hours
}

func (c *Config) ScheduleMinute() int {
	return *c.Schedule.Minutes
}

func (c *Config) RephraseEnabled() bool {
	return c.Summary.Rephrase != nil && *c.Summary.Rephrase
}
