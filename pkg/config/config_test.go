package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEEPSEEK_API_KEY", "ANTHROPIC_API_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"ALERT_WEBHOOK_URL", "AUTH_TOKEN", "LOG_LEVEL", "LOG_FILE", "DEBUG", "RUN_ONCE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("METRICS_PORT", "8080")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSONWithEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "env-key")
	t.Setenv("TELEGRAM_CHAT_ID", "@nhk_weather")

	path := writeFile(t, "config.json", `{
		"deepseek": {"model": "deepseek-reasoner"},
		"telegram": {"bot_token": "file-token"},
		"nhk": {"map_selector": "#map"},
		"schedule": {"hours": 7, "minutes": 30}
	}`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", conf.DeepSeek.APIKey)
	assert.Equal(t, "deepseek-reasoner", conf.DeepSeek.Model)
	assert.Equal(t, "https://api.deepseek.com/chat/completions", conf.DeepSeek.APIURL)
	assert.Equal(t, "file-token", conf.Telegram.BotToken)
	assert.Equal(t, "@nhk_weather", conf.Telegram.ChatID)
	assert.Equal(t, "#map", conf.Nhk.MapSelector)
	assert.Equal(t, "https://www.nhk.or.jp/kishou-saigai/", conf.Nhk.URL)
	assert.Equal(t, 7, conf.ScheduleHour())
	assert.Equal(t, 30, conf.ScheduleMinute())
	assert.True(t, conf.RephraseEnabled())
}

func TestLoadFileValueWinsOverEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")

	path := writeFile(t, "config.json", `{
		"deepseek": {"api_key": "k"},
		"telegram": {"bot_token": "file-token", "chat_id": "1"}
	}`)

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", conf.Telegram.BotToken)
}

func TestLoadScheduleDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		"deepseek": {"api_key": "k"},
		"telegram": {"bot_token": "t", "chat_id": "1"}
	}`)

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, conf.ScheduleHour())
	assert.Equal(t, 0, conf.ScheduleMinute())
	assert.Equal(t, "UTC", conf.ScheduleLocation().String())
	assert.Equal(t, "Asia/Tokyo", conf.ReportLocation().String())
	assert.Equal(t, 30, conf.Schedule.PollSeconds)
}

func TestLoadMidnightIsNotDefaulted(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		"deepseek": {"api_key": "k"},
		"telegram": {"bot_token": "t", "chat_id": "1"},
		"schedule": {"hours": 0, "minutes": 0}
	}`)

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, conf.ScheduleHour())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
summary:
  provider: anthropic
  rephrase: false
anthropic:
  api_key: a-key
telegram:
  bot_token: t
  chat_id: "-100123"
`)

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, conf.Summary.Provider)
	assert.Equal(t, "a-key", conf.Anthropic.APIKey)
	assert.Equal(t, "-100123", conf.Telegram.ChatID)
	assert.False(t, conf.RephraseEnabled())
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "k")
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("TELEGRAM_CHAT_ID", "1")

	conf, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, "k", conf.DeepSeek.APIKey)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing deepseek key", `{"telegram": {"bot_token": "t", "chat_id": "1"}}`},
		{"missing bot token", `{"deepseek": {"api_key": "k"}, "telegram": {"chat_id": "1"}}`},
		{"missing chat id", `{"deepseek": {"api_key": "k"}, "telegram": {"bot_token": "t"}}`},
		{"unknown provider", `{"summary": {"provider": "gpt"}, "telegram": {"bot_token": "t", "chat_id": "1"}}`},
		{"hours out of range", `{"deepseek": {"api_key": "k"}, "telegram": {"bot_token": "t", "chat_id": "1"}, "schedule": {"hours": 24}}`},
		{"minutes out of range", `{"deepseek": {"api_key": "k"}, "telegram": {"bot_token": "t", "chat_id": "1"}, "schedule": {"minutes": 60}}`},
		{"poll slower than a minute", `{"deepseek": {"api_key": "k"}, "telegram": {"bot_token": "t", "chat_id": "1"}, "schedule": {"poll_seconds": 90}}`},
		{"poll of exactly a minute", `{"deepseek": {"api_key": "k"}, "telegram": {"bot_token": "t", "chat_id": "1"}, "schedule": {"poll_seconds": 60}}`},
		{"bad timezone", `{"deepseek": {"api_key": "k"}, "telegram": {"bot_token": "t", "chat_id": "1"}, "schedule": {"timezone": "Mars/Olympus"}}`},
		{"invalid json", `{"deepseek": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeFile(t, "config.json", tt.content)

			_, err := Load(path)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}
