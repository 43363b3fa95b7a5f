package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/config"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/sirupsen/logrus"
)

// DeepSeek talks to the OpenAI compatible chat completion API of DeepSeek
type DeepSeek struct {
	client openai.Client
	model  string

	monitor *prometheus.Monitor
	logger  *logrus.Logger
}

func NewDeepSeek(conf config.DeepSeek, m *prometheus.Monitor, l *logrus.Logger) *DeepSeek {
	return &DeepSeek{
		client: openai.NewClient(
			option.WithAPIKey(conf.APIKey),
			option.WithBaseURL(BaseURL(conf.APIURL)),
			option.WithRequestTimeout(60*time.Second),
			option.WithMaxRetries(0),
		),
		model: conf.Model,

		monitor: m,
		logger:  l,
	}
}

// BaseURL turns the configured endpoint into the client base URL,
// the client appends chat/completions itself
func BaseURL(apiURL string) string {
	base := strings.TrimSuffix(strings.TrimRight(apiURL, "/"), "chat/completions")
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return base
}

func (ai *DeepSeek) Name() string {
	return config.ProviderDeepSeek
}

func (ai *DeepSeek) Complete(ctx context.Context, req Request) (Response, error) {
	output := Response{}

	resp, err := ai.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Model:       ai.model,
		Temperature: openai.Float(req.Temperature),
	})
	if err != nil {
		var e *openai.Error
		if errors.As(err, &e) {
			return output, fmt.Errorf("chat completion error, status: %d, message: %s", e.StatusCode, e.Message)
		}

		return output, fmt.Errorf("chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return output, errors.New("chat completion returned no choices")
	}

	output.Text = strings.TrimSpace(resp.Choices[0].Message.Content)
	output.Cost.Input = int(resp.Usage.PromptTokens)
	output.Cost.Output = int(resp.Usage.CompletionTokens)

	ai.monitor.AiInputTokens.WithLabelValues(ai.Name()).Add(float64(resp.Usage.PromptTokens))
	ai.monitor.AiOutputTokens.WithLabelValues(ai.Name()).Add(float64(resp.Usage.CompletionTokens))

	ai.logger.WithField("billing", "input").Infof("DeepSeek input tokens: %d", resp.Usage.PromptTokens)
	ai.logger.WithField("billing", "output").Infof("DeepSeek output tokens: %d", resp.Usage.CompletionTokens)

	return output, nil
}
