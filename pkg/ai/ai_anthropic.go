package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/config"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sirupsen/logrus"
)

type Anthropic struct {
	client *anthropic.Client
	model  string

	monitor *prometheus.Monitor
	logger  *logrus.Logger
}

func NewAnthropic(conf config.Anthropic, m *prometheus.Monitor, l *logrus.Logger, opts ...anthropic.ClientOption) *Anthropic {
	return &Anthropic{
		client: anthropic.NewClient(conf.APIKey, opts...),
		model:  conf.Model,

		monitor: m,
		logger:  l,
	}
}

func (ai *Anthropic) Name() string {
	return config.ProviderAnthropic
}

func (ai *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	output := Response{}
	temperature := float32(req.Temperature)

	resp, err := ai.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(ai.model),
		System:      req.System,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(req.User)},
		MaxTokens:   1000,
		Temperature: &temperature,
	})
	if err != nil {
		var e *anthropic.APIError
		if errors.As(err, &e) {
			return output, fmt.Errorf("messages error, type: %s, message: %s", e.Type, e.Message)
		}

		return output, fmt.Errorf("messages error: %w", err)
	}

	var parts []string
	for _, content := range resp.Content {
		if text := content.GetText(); text != "" {
			parts = append(parts, text)
		}
	}

	output.Text = strings.TrimSpace(strings.Join(parts, "\n"))
	output.Cost.Input = resp.Usage.InputTokens
	output.Cost.Output = resp.Usage.OutputTokens

	ai.monitor.AiInputTokens.WithLabelValues(ai.Name()).Add(float64(resp.Usage.InputTokens))
	ai.monitor.AiOutputTokens.WithLabelValues(ai.Name()).Add(float64(resp.Usage.OutputTokens))

	ai.logger.WithField("billing", "input").Infof("Anthropic input tokens: %d", resp.Usage.InputTokens)
	ai.logger.WithField("billing", "output").Infof("Anthropic output tokens: %d", resp.Usage.OutputTokens)

	return output, nil
}
