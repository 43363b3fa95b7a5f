package ai

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/config"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/prometheus"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/utils"
	"github.com/MaestroOfAutomation/nhk-weather-parser/pkg/weather"
	"github.com/sirupsen/logrus"
	"mvdan.cc/xurls/v2"
)

// ErrSummary aborts the run, nothing is published without a summary
var ErrSummary = errors.New("summary generation failed")

//go:embed summary.prompt
var summaryPrompt string

//go:embed rephrase.prompt
var rephrasePrompt string

//go:embed translate.prompt
var translatePrompt string

const (
	summaryTemperature   = 0.7
	rephraseTemperature  = 0.5
	translateTemperature = 0.0
)

// Provider is a single chat completion, system prompt plus one user message
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

type Request struct {
	System      string
	User        string
	Temperature float64
}

type Response struct {
	Text string `json:"text"`
	Cost Cost   `json:"cost"`
}

type Cost struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// NewProvider returns the provider selected in the configuration
func NewProvider(conf *config.Config, m *prometheus.Monitor, l *logrus.Logger) (Provider, error) {
	switch conf.Summary.Provider {
	case config.ProviderDeepSeek:
		return NewDeepSeek(conf.DeepSeek, m, l), nil
	case config.ProviderAnthropic:
		return NewAnthropic(conf.Anthropic, m, l), nil
	default:
		return nil, fmt.Errorf("%w: unknown summary provider %q", config.ErrConfig, conf.Summary.Provider)
	}
}

type Options struct {
	Rephrase    bool
	FocusCities []string // source names, mentioned in the summary when present
	Location    *time.Location
}

// Summarizer writes the Russian forecast text and translates unknown city names
type Summarizer struct {
	provider Provider
	options  Options
	logger   *logrus.Logger
}

func NewSummarizer(provider Provider, options Options, logger *logrus.Logger) *Summarizer {
	if options.Location == nil {
		options.Location = time.UTC
	}

	return &Summarizer{
		provider: provider,
		options:  options,
		logger:   logger,
	}
}

// Summarize asks the provider for the forecast text and optionally for a
// rephrased version of it
func (s *Summarizer) Summarize(ctx context.Context, report weather.Report) (string, error) {
	if len(report.Entries) == 0 {
		return "", fmt.Errorf("%w: no weather entries", ErrSummary)
	}

	system, user, err := s.BuildPrompt(report)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSummary, err)
	}
	s.logger.WithField("prompt", user).Debug("summary prompt built")

	text, err := s.complete(ctx, Request{System: system, User: user, Temperature: summaryTemperature})
	if err != nil {
		return "", err
	}
	s.logger.WithField("summary", text).Info("summary generated")

	if !s.options.Rephrase {
		return text, nil
	}

	return s.Rephrase(ctx, text)
}

func (s *Summarizer) Rephrase(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: nothing to rephrase", ErrSummary)
	}

	rephrased, err := s.complete(ctx, Request{System: rephrasePrompt, User: text, Temperature: rephraseTemperature})
	if err != nil {
		return "", err
	}
	s.logger.WithField("summary", rephrased).Info("summary rephrased")

	return rephrased, nil
}

// BuildPrompt renders the system prompt and the user message carrying all entries
func (s *Summarizer) BuildPrompt(report weather.Report) (string, string, error) {
	date := report.Date
	if date.IsZero() {
		date = time.Now()
	}

	system := strings.NewReplacer(
		"${date}", utils.FormatDate(date, s.options.Location),
		"${focus}", s.focus(report),
	).Replace(summaryPrompt)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report.Entries); err != nil {
		return "", "", fmt.Errorf("could not encode weather entries: %w", err)
	}

	user := "Прогноз по городам (max_c — максимальная температура в °C, condition — описание с карты, category — тип погоды):\n" + buf.String()

	return system, user, nil
}

func (s *Summarizer) focus(report weather.Report) string {
	var names []string
	for _, city := range s.options.FocusCities {
		if e, ok := report.Find(city); ok {
			names = append(names, e.CityTranslated)
		}
	}

	if len(names) == 0 {
		return "самые крупные города из списка"
	}

	return strings.Join(names, ", ")
}

// TranslateNames asks the provider for a {source: target} JSON object
func (s *Summarizer) TranslateNames(ctx context.Context, names []string) (map[string]string, error) {
	list, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("could not encode names: %w", err)
	}

	resp, err := s.provider.Complete(ctx, Request{System: translatePrompt, User: string(list), Temperature: translateTemperature})
	if err != nil {
		return nil, fmt.Errorf("could not get translation: %w", err)
	}

	return parseMapping(resp.Text)
}

// parseMapping reads the JSON object between the first { and the last }
func parseMapping(text string) (map[string]string, error) {
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response: %q", text)
	}

	mapping := map[string]string{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &mapping); err != nil {
		return nil, fmt.Errorf("could not parse translation: %w", err)
	}

	return mapping, nil
}

func (s *Summarizer) complete(ctx context.Context, req Request) (string, error) {
	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSummary, s.provider.Name(), err)
	}

	text := sanitize(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%w: %s returned empty text", ErrSummary, s.provider.Name())
	}

	return text, nil
}

// sanitize drops links and wrapping quotes the model sometimes adds
func sanitize(text string) string {
	text = xurls.Strict().ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"«»")

	return strings.TrimSpace(text)
}
